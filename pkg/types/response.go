// Package types holds the JSON envelopes every HTTP response is wrapped in.
package types

// SuccessEnvelope wraps a successful payload under a "data" key so list and
// detail responses share one shape.
type SuccessEnvelope struct {
	Data any `json:"data"`
}

// APIError is the wire form of a typed service error. Code carries the
// machine-readable taxonomy value (VALIDATION_ERROR, INSUFFICIENT_STOCK, ...)
// and Details the per-field context, when any.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ErrorEnvelope wraps an APIError under an "error" key, mirroring
// SuccessEnvelope for failures.
type ErrorEnvelope struct {
	Error APIError `json:"error"`
}
