package zipdemographics

import (
	"encoding/json"
	"fmt"
)

// Response is the envelope returned by every completed call, including error
// responses. The Data payload is opaque to the client; callers decode it
// into their own types.
type Response struct {
	// Status is the remote status tag, "ok" on success.
	Status string `json:"status"`

	// Error is the raw error field, null when the call succeeded. It may be
	// a JSON string or an object depending on the failure.
	Error json.RawMessage `json:"error"`

	// Data is the raw payload. For this API it carries the ZIP code
	// demographic fields documented at apiverve.com.
	Data json.RawMessage `json:"data"`
}

// RemoteError surfaces an envelope-level failure as an error. It returns nil
// when the status is "ok" or "success", or when the error field is absent.
// The HTTP exchange itself succeeded either way; calling this is optional.
func (r *Response) RemoteError() error {
	if r.Status == "ok" || r.Status == "success" {
		return nil
	}
	if len(r.Error) == 0 || string(r.Error) == "null" {
		return nil
	}

	var message string
	if err := json.Unmarshal(r.Error, &message); err != nil {
		message = string(r.Error)
	}
	return &RemoteError{Status: r.Status, Message: message}
}

// DecodeData unmarshals the opaque payload into out.
func (r *Response) DecodeData(out any) error {
	if len(r.Data) == 0 {
		return fmt.Errorf("response has no data")
	}
	return json.Unmarshal(r.Data, out)
}

// RemoteError is an application-level failure reported inside an otherwise
// successful HTTP response.
type RemoteError struct {
	Status  string
	Message string
}

// Error implements the error interface.
func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote error (status %q): %s", e.Status, e.Message)
}
