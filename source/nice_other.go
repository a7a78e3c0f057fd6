//go:build !unix

package source

import "errors"

// setNice is not supported off Unix.
func setNice(int32, int) error {
	return errors.ErrUnsupported
}
