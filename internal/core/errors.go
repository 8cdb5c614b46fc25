package core

import (
	"errors"
	"fmt"
)

// Error kinds. Specific errors wrap one of these so callers can classify
// with errors.Is without enumerating every case.
var (
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("not found")
)

var (
	ErrEmptyMonthSelection      = fmt.Errorf("%w: select at least one month", ErrValidation)
	ErrStudentInactiveOrMissing = fmt.Errorf("%w: student is inactive or missing", ErrValidation)
	ErrInvalidAmount            = fmt.Errorf("%w: invalid amount", ErrValidation)
	ErrInvalidMonthKey          = fmt.Errorf("%w: invalid month key", ErrValidation)
	ErrInvalidDate              = fmt.Errorf("%w: invalid date", ErrValidation)
	ErrEmptyField               = fmt.Errorf("%w: required field is empty", ErrValidation)
	ErrDuplicateMonth           = fmt.Errorf("%w: month selected more than once", ErrValidation)
	ErrMonthAlreadyPaid         = fmt.Errorf("%w: month already paid", ErrValidation)

	ErrStudentNotFound = fmt.Errorf("student %w", ErrNotFound)
	ErrPaymentNotFound = fmt.Errorf("payment %w", ErrNotFound)
)

// IsValidation reports whether err is a caller-recoverable validation failure.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsNotFound reports whether err refers to a missing student or payment.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
