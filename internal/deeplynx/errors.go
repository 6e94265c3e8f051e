package deeplynx

import "fmt"

// QueryError reports a failed call against the Deep Lynx API: a transport
// failure, an authentication failure, a non-success status, or a GraphQL
// error in an otherwise successful response.
type QueryError struct {
	// Endpoint is the request path that failed.
	Endpoint string

	// StatusCode is the HTTP status, or zero when the request never
	// produced a response.
	StatusCode int

	// Message describes the failure as reported by the server.
	Message string

	// Err is the underlying transport or decoding error, if any.
	Err error
}

// Error implements the error interface.
func (e *QueryError) Error() string {
	switch {
	case e.Err != nil && e.StatusCode == 0:
		return fmt.Sprintf("deeplynx: %s: %v", e.Endpoint, e.Err)
	case e.Message != "":
		return fmt.Sprintf("deeplynx: %s: status %d: %s", e.Endpoint, e.StatusCode, e.Message)
	default:
		return fmt.Sprintf("deeplynx: %s: status %d", e.Endpoint, e.StatusCode)
	}
}

// Unwrap exposes the underlying cause for errors.Is/As chains.
func (e *QueryError) Unwrap() error { return e.Err }
