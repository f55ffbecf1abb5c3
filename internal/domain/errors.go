package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds of a pipeline run. Every one of them is fatal to the run; callers
// match them with errors.Is while the wrapped cause stays reachable.
var (
	ErrConfig            = errors.New("config error")
	ErrUpload            = errors.New("upload error")
	ErrGenerationRequest = errors.New("generation request error")
	ErrGenerationFailed  = errors.New("generation failed")
	ErrPollTimeout       = errors.New("timed out waiting for image generation")
	ErrDownload          = errors.New("download error")
	ErrRender            = errors.New("render error")
	ErrInvalidClub       = errors.New("invalid club")
	ErrEmptyRoster       = errors.New("club roster is empty")
)

// APIError is returned when the remote service answers with a non-2xx status.
// Payload keeps the raw response body so it can be reported as-is.
type APIError struct {
	Op         string
	StatusCode int
	Payload    string
}

func (e *APIError) Error() string {
	payload := strings.TrimSpace(e.Payload)
	if payload == "" {
		return fmt.Sprintf("%s: http %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: http %d: %s", e.Op, e.StatusCode, payload)
}

// RemotePayload returns the remote error body carried by err, if any.
func RemotePayload(err error) (string, bool) {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return "", false
	}
	payload := strings.TrimSpace(apiErr.Payload)
	return payload, payload != ""
}
