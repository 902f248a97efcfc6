package translate

import "fmt"

// ProviderError indicates a translation service failure (network
// error, non-success response, malformed payload).
type ProviderError struct {
	Message string
	Cause   error
}

func (e *ProviderError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("provider error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("provider error: %s", e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// CountMismatchError indicates the service returned a different key or
// language set than requested.
type CountMismatchError struct {
	What     string
	Expected int
	Got      int
}

func (e *CountMismatchError) Error() string {
	return fmt.Sprintf("translation %s count mismatch: expected %d, got %d", e.What, e.Expected, e.Got)
}
