package fixture

import (
	"encoding/hex"
	"strings"

	"github.com/cockroachdb/errors"
)

// HexBytes is a byte string written as hex in fixture files. Colons, dashes
// and whitespace separate groups; each group may carry a 0x prefix.
type HexBytes []byte

func isHexSeparator(r rune) bool {
	switch r {
	case ':', '-', ' ', '\t', '\n', '\r':
		return true
	}
	return false
}

func (b *HexBytes) UnmarshalText(text []byte) error {
	groups := strings.FieldsFunc(string(text), isHexSeparator)
	for i, g := range groups {
		groups[i] = strings.TrimPrefix(strings.TrimPrefix(g, "0x"), "0X")
	}
	decoded, err := hex.DecodeString(strings.Join(groups, ""))
	if err != nil {
		return errors.Wrapf(err, "decode hex %q", string(text))
	}
	*b = decoded
	return nil
}

func (b HexBytes) MarshalText() ([]byte, error) {
	return []byte(strings.ToUpper(hex.EncodeToString(b))), nil
}

func (b HexBytes) String() string {
	text, _ := b.MarshalText()
	return string(text)
}
