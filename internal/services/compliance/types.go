package compliance

import (
	"fmt"
	"strings"
)

// APIError is returned when the test suite answers with a non-2xx status. Body is the raw
// response text.
type APIError struct {
	StatusCode int
	Body       string
	Endpoint   string
}

func (e *APIError) Error() string {
	body := strings.TrimSpace(e.Body)
	if body == "" {
		return fmt.Sprintf("Request failed with status code %d", e.StatusCode)
	}
	return fmt.Sprintf("Request failed with status code %d: %s", e.StatusCode, body)
}
