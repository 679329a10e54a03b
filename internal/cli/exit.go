package cli

import (
	"errors"
	"fmt"

	"github.com/cwygoda/thumbcap/internal/domain"
)

// Category classifies a failure for the process exit status.
type Category int

const (
	CategoryGeneral Category = iota + 1
	CategoryBadArgument
	CategoryUnknownCommand
	CategoryNotRepository
	CategoryNoConnectivity
	CategoryMissingDependency
)

// CategorizedError carries an exit category with its cause.
type CategorizedError struct {
	Category Category
	Err      error
}

func (e CategorizedError) Error() string {
	return e.Err.Error()
}

func (e CategorizedError) Unwrap() error {
	return e.Err
}

func wrapCategory(c Category, err error) error {
	return CategorizedError{Category: c, Err: err}
}

func badArgument(format string, args ...any) error {
	return wrapCategory(CategoryBadArgument, fmt.Errorf(format, args...))
}

// ExitCode maps an error to the process exit status.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var ce CategorizedError
	if errors.As(err, &ce) {
		return int(ce.Category)
	}
	if errors.Is(err, domain.ErrNotRepository) {
		return int(CategoryNotRepository)
	}
	return int(CategoryGeneral)
}
