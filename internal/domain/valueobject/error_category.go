package valueobject

import "fmt"

// ErrorCategory classifies a sync failure by where in the pipeline it occurred.
type ErrorCategory string

// Error category constants.
const (
	ErrorCategoryConnection  ErrorCategory = "connection_error"
	ErrorCategoryQuery       ErrorCategory = "query_error"
	ErrorCategoryEmbedding   ErrorCategory = "embedding_error"
	ErrorCategoryIdentity    ErrorCategory = "identity_error"
	ErrorCategoryVectorStore ErrorCategory = "vector_store_error"
	ErrorCategoryBatch       ErrorCategory = "batch_error"
	ErrorCategoryJob         ErrorCategory = "job_error"
)

// validErrorCategories contains all valid error categories.
var validErrorCategories = map[ErrorCategory]bool{
	ErrorCategoryConnection:  true,
	ErrorCategoryQuery:       true,
	ErrorCategoryEmbedding:   true,
	ErrorCategoryIdentity:    true,
	ErrorCategoryVectorStore: true,
	ErrorCategoryBatch:       true,
	ErrorCategoryJob:         true,
}

// NewErrorCategory creates a new ErrorCategory with validation.
func NewErrorCategory(category string) (ErrorCategory, error) {
	c := ErrorCategory(category)
	if !validErrorCategories[c] {
		return "", fmt.Errorf("invalid error category: %s", category)
	}
	return c, nil
}

// String returns the string representation of the category.
func (c ErrorCategory) String() string {
	return string(c)
}

// AbortsJob reports whether a failure of this category stops the whole job.
// Connection and query failures happen outside the batch loop and abort the
// run; everything else is isolated to the failing batch or record.
func (c ErrorCategory) AbortsJob() bool {
	return c == ErrorCategoryConnection || c == ErrorCategoryQuery || c == ErrorCategoryJob
}
