package statement

import "errors"

var (
	// ErrPeriodNotFound is returned when a requested period date has no unique record.
	ErrPeriodNotFound = errors.New("period not found")

	// ErrInsufficientHistory is returned when a trailing window or growth rate
	// needs more quarters than the series holds.
	ErrInsufficientHistory = errors.New("insufficient history")

	// ErrDivisionUndefined is returned when a ratio's denominator is zero.
	ErrDivisionUndefined = errors.New("division undefined")

	// ErrMergeKeyMismatch is returned by a strict merge when fragments disagree on period dates.
	ErrMergeKeyMismatch = errors.New("merge key mismatch")

	// ErrMissingField is returned when a record lacks a line item a calculation needs.
	ErrMissingField = errors.New("missing field")

	// ErrUnordered is returned when a series is not strictly ascending by date.
	ErrUnordered = errors.New("series not strictly ascending")
)
