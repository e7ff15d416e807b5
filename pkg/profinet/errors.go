package profinet

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

var (
	// ErrEncoding is matched by every *EncodingError.
	ErrEncoding = errors.New("profinet: invalid frame field")

	ErrNotProfinet           = errors.New("not a profinet frame")
	ErrPacketTooShort        = errors.New("packet too short")
	ErrUnknownFrameID        = errors.New("unknown frame id")
	ErrInvalidDCPBlockLength = errors.New("invalid dcp block length")
	ErrInvalidNameOfStation  = errors.New("invalid name of station encoding")
)

// EncodingError reports a frame field that cannot be encoded.
type EncodingError struct {
	Field  string
	Value  any
	Reason string
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("profinet: invalid %s %v: %s", e.Field, e.Value, e.Reason)
}

func (e *EncodingError) Is(target error) bool {
	return target == ErrEncoding
}
