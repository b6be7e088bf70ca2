package provider

import "fmt"

// ConversionError represents a native message that could not be
// converted to or from canonical form. Index names the offending
// message within the batch; conversion aborts for the whole batch.
type ConversionError struct {
	Provider Type
	Index    int
	Reason   string
	Err      error
}

func (e *ConversionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("conversion error [%s] message %d: %s: %v", e.Provider, e.Index, e.Reason, e.Err)
	}
	return fmt.Sprintf("conversion error [%s] message %d: %s", e.Provider, e.Index, e.Reason)
}

func (e *ConversionError) Unwrap() error {
	return e.Err
}
