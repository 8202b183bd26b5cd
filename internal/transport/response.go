package transport

import (
	"encoding/json"
	"net/http"

	"github.com/williamzujkowski/obmc-manager/internal/typederrors"
)

// Response is a completed HTTP exchange. The body is read eagerly and parsed
// as JSON on first use.
type Response struct {
	status int
	header http.Header
	body   []byte

	parsed  bool
	json    any
	jsonErr error
}

// NewResponse builds a Response from its parts.
func NewResponse(status int, header http.Header, body []byte) *Response {
	if header == nil {
		header = http.Header{}
	}
	return &Response{status: status, header: header, body: body}
}

// StatusCode returns the HTTP status code.
func (r *Response) StatusCode() int {
	return r.status
}

// Header returns the response headers.
func (r *Response) Header() http.Header {
	return r.header
}

// Body returns the raw response body.
func (r *Response) Body() []byte {
	return r.body
}

// IsSuccess reports whether the status is one of 200, 201, 202 or 204.
func (r *Response) IsSuccess() bool {
	switch r.status {
	case http.StatusOK, http.StatusCreated, http.StatusAccepted, http.StatusNoContent:
		return true
	}
	return false
}

// JSON returns the body decoded into generic JSON values.
func (r *Response) JSON() (any, error) {
	if !r.parsed {
		r.parsed = true
		if err := json.Unmarshal(r.body, &r.json); err != nil {
			r.jsonErr = typederrors.NewJSONDecodeError("decoding response body", err)
		}
	}
	return r.json, r.jsonErr
}

// Decode unmarshals the body into v.
func (r *Response) Decode(v any) error {
	if err := json.Unmarshal(r.body, v); err != nil {
		return typederrors.NewJSONDecodeError("decoding response body", err)
	}
	return nil
}
