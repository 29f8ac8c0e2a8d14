package limiter

import "errors"

var (
	// ErrStoreUnavailable marks transport failures talking to the counter
	// store. The gate maps it to its fail-open/fail-closed policy.
	ErrStoreUnavailable = errors.New("limiter store unavailable")

	// ErrKeyNotFound is returned by stores for missing keys.
	ErrKeyNotFound = errors.New("key not found")

	// ErrInvalidConfig marks configuration rejected at construction time.
	ErrInvalidConfig = errors.New("invalid limiter config")

	// ErrStoreNotSupported is returned for operations a store cannot perform.
	ErrStoreNotSupported = errors.New("store operation not supported")
)

// ValidationError describes a configuration field that failed validation.
type ValidationError struct {
	Resource string
	Field    string
	Message  string
	Err      error
}

func (e *ValidationError) Error() string {
	if e.Resource != "" {
		if e.Err != nil {
			return "limiter config validation failed for resource '" + e.Resource + "': " + e.Err.Error()
		}
		return "limiter config validation failed for resource '" + e.Resource + "." + e.Field + "': " + e.Message
	}
	if e.Field != "" {
		return "limiter config validation failed for field '" + e.Field + "': " + e.Message
	}
	if e.Err != nil {
		return "limiter config validation failed: " + e.Err.Error()
	}
	return "limiter config validation failed"
}

// Unwrap lets errors.Is see through to ErrInvalidConfig when wrapped.
func (e *ValidationError) Unwrap() error {
	return e.Err
}
