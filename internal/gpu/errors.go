package gpu

import (
	"github.com/cockroachdb/errors"
)

// Failure classes. Use errors.Is against these; the concrete errors carry
// the underlying Vulkan cause and a stack.
var (
	ErrInitialization          = errors.New("gpu initialization failed")
	ErrNoSuitableDevice        = errors.New("failed to find a suitable GPU")
	ErrIncompleteQueueFamilies = errors.New("required queue families are not all available")
	ErrResourceCreation        = errors.New("gpu resource creation failed")
	ErrFrameSubmit             = errors.New("frame submission failed")
)

// InitError wraps err as a fatal initialization failure. A nil err stays nil.
func InitError(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return errors.Mark(errors.Wrapf(err, format, args...), ErrInitialization)
}

// ResourceError wraps err as a failure to create a buffer, image, pipeline
// or descriptor object. A nil err stays nil.
func ResourceError(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return errors.Mark(errors.Wrapf(err, format, args...), ErrResourceCreation)
}

// SubmitError wraps err as a per-frame queue failure. A nil err stays nil.
func SubmitError(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return errors.Mark(errors.Wrapf(err, format, args...), ErrFrameSubmit)
}
