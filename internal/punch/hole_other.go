//go:build !linux

package punch

import "os"

func punchHole(_ *os.File, _, _ int64) error {
	return ErrUnsupported
}
