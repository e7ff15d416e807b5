//go:build !linux

package inspect

import "github.com/cockroachdb/errors"

func openInterface(name string) (liveHandle, error) {
	return nil, errors.Wrapf(ErrLiveCaptureUnsupported, "interface %s", name)
}
