package utils

import (
	"errors"
	"unsafe"
)

// Str converts the byte slice into a string without copying.  The slice
// must not be modified for as long as the string is in use.
func Str(b []byte) string {
	return unsafe.String(unsafe.SliceData(b), len(b))
}

func FlattenErrors(errs []error) error {
	switch len(errs) {
	default:
		return errors.Join(errs...)
	case 1:
		return errs[0]
	case 0:
		return nil
	}
}
