package errors

import (
	"fmt"
)

var (
	ErrNotFound               = fmt.Errorf("not found")
	ErrOutOfSequence          = fmt.Errorf("out of sequence")
	ErrValidation             = fmt.Errorf("validation failed")
	ErrIncompleteDraft        = fmt.Errorf("incomplete draft")
	ErrDraftInProgress        = fmt.Errorf("draft in progress")
	ErrDuplicateProductID     = fmt.Errorf("duplicate product id")
	ErrConcurrentModification = fmt.Errorf("concurrent modification")
)
