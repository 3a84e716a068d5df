package appstore

import "fmt"

// StatusError reports a nonzero verification status from Apple.
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("apple verification failed with status %d: %s", e.Status, e.Message)
}

// TamperError reports a receipt that verified successfully but purchased
// nothing. Apple hands these back with status 0, so the empty purchase list
// is the only signal; treat it as a possible hack.
type TamperError struct{}

func (e *TamperError) Error() string {
	return "failed to validate for empty purchased list"
}

// TransportError reports a request that never produced a usable Apple status:
// a connection failure or an HTTP-level error from the endpoint.
type TransportError struct {
	Endpoint string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("verification request to %s failed: %v", e.Endpoint, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
