// Package apiresponse decodes bodies from the budget tracker API, which may be
// wrapped in the standard envelope {success, data, error, timestamp}.
package apiresponse

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"
)

// RequestIDHeader carries a per-request correlation ID.
const RequestIDHeader = "X-Request-ID"

// ErrorInfo is the error part of the envelope.
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type envelope struct {
	Success *bool           `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *ErrorInfo      `json:"error"`
}

// Decode unmarshals body into v, unwrapping the envelope when one is present.
func Decode(body []byte, v any) error {
	var env envelope
	if err := json.Unmarshal(body, &env); err == nil && env.Success != nil {
		if !*env.Success {
			if env.Error != nil {
				return fmt.Errorf("api error %s: %s", env.Error.Code, env.Error.Message)
			}
			return fmt.Errorf("api error")
		}
		if len(env.Data) == 0 || string(env.Data) == "null" {
			return nil
		}
		body = env.Data
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// StampRequest sets the headers every API request carries.
func StampRequest(req *http.Request) string {
	requestID := uuid.New().String()
	req.Header.Set(RequestIDHeader, requestID)
	req.Header.Set("Accept", "application/json")
	return requestID
}
