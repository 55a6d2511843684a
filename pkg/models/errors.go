package models

import "fmt"

// NotFoundError indicates a missing input or recipe file. It is fatal and
// never retried.
type NotFoundError struct {
	Path string
}

func (x *NotFoundError) Error() string {
	return fmt.Sprintf("File not found: %s", x.Path)
}

// NewNotFoundError is a constructor of NotFoundError.
func NewNotFoundError(path string) *NotFoundError {
	return &NotFoundError{Path: path}
}

// InvalidFormatError indicates an override or recipe that fails to compile
// or yields structurally invalid output. Tagged with the attempted family.
type InvalidFormatError struct {
	Family Family
	Msg    string
	Err    error
}

func (x *InvalidFormatError) Error() string {
	if x.Err != nil {
		return fmt.Sprintf("Invalid %s format: %s: %v", x.Family, x.Msg, x.Err)
	}
	return fmt.Sprintf("Invalid %s format: %s", x.Family, x.Msg)
}

func (x *InvalidFormatError) Unwrap() error { return x.Err }

// NewInvalidFormatError is a constructor of InvalidFormatError.
func NewInvalidFormatError(family Family, msg string, err error) *InvalidFormatError {
	return &InvalidFormatError{Family: family, Msg: msg, Err: err}
}
