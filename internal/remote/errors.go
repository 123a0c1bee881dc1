package remote

import (
	"encoding/json"
	"fmt"
)

// detailBody is the error shape the service returns on non-2xx responses.
type detailBody struct {
	Detail string `json:"detail"`
}

// UploadError reports a non-2xx response from the upload endpoint. The
// attempt is lost but the failure is recoverable by re-uploading.
type UploadError struct {
	StatusCode int
	Detail     string
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload failed: HTTP %d: %s", e.StatusCode, e.Detail)
}

// SubmitError reports a non-2xx response from the process endpoint. It is
// recoverable; the session and its parameters stay intact for a retry.
type SubmitError struct {
	StatusCode int
	Detail     string
}

func (e *SubmitError) Error() string {
	return fmt.Sprintf("processing failed: HTTP %d: %s", e.StatusCode, e.Detail)
}

// extractDetail pulls the structured error message out of a failure body,
// falling back to a generic message when the body is absent or malformed.
func extractDetail(body []byte, fallback string) string {
	var parsed detailBody
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Detail != "" {
		return parsed.Detail
	}
	return fallback
}
