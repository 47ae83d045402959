package gateway

import "errors"

var (
	// ErrMissingImage is returned when the upload is absent or empty.
	ErrMissingImage = errors.New("no image provided")
	// ErrInvalidImage is returned when the upload cannot be decoded as an image.
	ErrInvalidImage = errors.New("invalid image")
	// ErrTimeout is returned when decode and inference do not finish before the deadline.
	ErrTimeout = errors.New("detection timed out")
	// ErrInference is returned when the backend fails while running the model.
	ErrInference = errors.New("inference failed")
)
