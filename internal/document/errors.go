package document

import (
	"errors"
	"fmt"
)

// ErrNameError is the family of naming failures. Fixture creation treats any
// error matching it as recoverable.
var ErrNameError = errors.New("name error")

var (
	// ErrInvalidName means the document name is empty or not allowed.
	ErrInvalidName = fmt.Errorf("%w: invalid name", ErrNameError)
	// ErrNameCollision means another document of the same doctype already
	// uses the name with different casing.
	ErrNameCollision = fmt.Errorf("%w: name collides with an existing document", ErrNameError)

	ErrDuplicateEntry = errors.New("duplicate entry")
	ErrMandatory      = errors.New("missing mandatory fields")
	ErrLinkValidation = errors.New("could not find linked document")
	ErrNotSubmittable = errors.New("doctype is not submittable")
	ErrDocStatus      = errors.New("invalid docstatus transition")
	ErrDoesNotExist   = errors.New("document does not exist")
)
