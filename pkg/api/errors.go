package api

import "fmt"

// APIError is returned for any non-2xx reply from the analysis backend.
type APIError struct {
	Status   int
	Endpoint string
	Message  string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (status %d)", e.Message, e.Status)
}
