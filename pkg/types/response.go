// Package types holds the JSON envelopes every endpoint responds with.
package types

// SuccessEnvelope wraps a 2xx payload. Meta is only set on list endpoints.
type SuccessEnvelope struct {
	Data any       `json:"data"`
	Meta *PageMeta `json:"meta,omitempty"`
}

// PageMeta echoes the window a list endpoint applied.
type PageMeta struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
	Count  int `json:"count"`
}

// APIError is the public face of a typed error. Reason is the stable,
// machine-readable rejection cause (OUTSIDE_GEOFENCE, NO_OPEN_SESSION).
type APIError struct {
	Code    string `json:"code"`
	Reason  string `json:"reason,omitempty"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}
