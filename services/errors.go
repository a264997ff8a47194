package services

import "errors"

// Error kinds the handlers translate into HTTP statuses. Services wrap these
// with fmt.Errorf("%w: ...") to carry detail.
var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
)
