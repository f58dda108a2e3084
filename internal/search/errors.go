package search

import "fmt"

// ResponseSchemaError means the provider answered with something the
// mapping layer could not trust. Field is a path like "data[3].jobTitle".
type ResponseSchemaError struct {
	Field  string
	Reason string
}

func (e *ResponseSchemaError) Error() string {
	return fmt.Sprintf("search: bad provider response at %s: %s", e.Field, e.Reason)
}

// ProviderError is a failure the provider reported inside a 2xx response.
type ProviderError struct {
	Code    string
	Message string
}

func (e *ProviderError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("search: provider returned status %q", e.Code)
	}
	return fmt.Sprintf("search: provider returned status %q: %s", e.Code, e.Message)
}
