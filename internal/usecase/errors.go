package usecase

import "errors"

// Pipeline and account failure modes. Messages mirror the API's response
// bodies.
var (
	ErrMissingImage      = errors.New("no image file provided")
	ErrUnsupportedFormat = errors.New("file must be a .jpg or .jpeg image")
	ErrMalformedLocation = errors.New("malformed location")
	ErrInferenceFailed   = errors.New("inference failed")
	ErrStorageFailed     = errors.New("storage failed")

	ErrUnknownUser       = errors.New("username not found")
	ErrWrongPassword     = errors.New("incorrect password")
	ErrDuplicateUsername = errors.New("username already exists")
)
