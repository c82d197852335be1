// SPDX-License-Identifier: MIT
package asset

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidFileType is returned when the declared MIME type is not audio/*.
	ErrInvalidFileType = errors.New("invalid file type")
	// ErrDecode is returned when the container is unsupported or the data is corrupt.
	ErrDecode = errors.New("audio decode failed")
)

// FileTypeError reports a rejected declared MIME type.
type FileTypeError struct {
	MIMEType string
}

func (e *FileTypeError) Error() string {
	return fmt.Sprintf("%s: %q is not an audio type", ErrInvalidFileType, e.MIMEType)
}

func (e *FileTypeError) Unwrap() error {
	return ErrInvalidFileType
}

// DecodeError wraps the decoder failure for a given container format.
type DecodeError struct {
	Format string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Format == "" {
		return fmt.Sprintf("%s: %v", ErrDecode, e.Err)
	}
	return fmt.Sprintf("%s (%s): %v", ErrDecode, e.Format, e.Err)
}

func (e *DecodeError) Unwrap() []error {
	return []error{ErrDecode, e.Err}
}
