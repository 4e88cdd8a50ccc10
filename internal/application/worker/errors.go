package worker

import (
	"errors"

	"vectorsync/internal/domain/valueobject"
)

// ErrJobCancelled signals that a processor observed a persisted cancellation
// at a batch boundary and stopped cooperatively.
var ErrJobCancelled = errors.New("job cancelled")

// categorizedError carries the pipeline stage a job-aborting failure belongs to.
type categorizedError struct {
	category valueobject.ErrorCategory
	err      error
}

func (e *categorizedError) Error() string {
	return e.err.Error()
}

func (e *categorizedError) Unwrap() error {
	return e.err
}

// Categorize wraps a job-aborting error with its error category.
func Categorize(category valueobject.ErrorCategory, err error) error {
	if err == nil {
		return nil
	}
	return &categorizedError{category: category, err: err}
}

// CategoryOf extracts the error category from a job-aborting error, defaulting
// to job_error for uncategorized failures.
func CategoryOf(err error) valueobject.ErrorCategory {
	var categorized *categorizedError
	if errors.As(err, &categorized) {
		return categorized.category
	}
	return valueobject.ErrorCategoryJob
}
