// Package rest wraps a transport with HTTP verb helpers and maps failures
// onto the NotFoundError / RequestError / ConnectionError taxonomy.
package rest

import (
	"net/http"

	"github.com/williamzujkowski/obmc-manager/internal/transport"
	"github.com/williamzujkowski/obmc-manager/internal/typederrors"
)

// Doer performs a single HTTP exchange.
type Doer interface {
	Do(req transport.Request) (*transport.Response, error)
}

// Client issues Redfish requests and classifies failures.
type Client struct {
	transport Doer
}

// NewClient creates a Client on top of t.
func NewClient(t Doer) *Client {
	return &Client{transport: t}
}

// Get fetches path.
func (c *Client) Get(path string) (*transport.Response, error) {
	return c.Do(transport.Request{Method: http.MethodGet, Path: path})
}

// Post sends body to path.
func (c *Client) Post(path string, body any) (*transport.Response, error) {
	return c.Do(transport.Request{Method: http.MethodPost, Path: path, Body: body})
}

// Patch sends a partial update of path.
func (c *Client) Patch(path string, body any) (*transport.Response, error) {
	return c.Do(transport.Request{Method: http.MethodPatch, Path: path, Body: body})
}

// Delete removes path.
func (c *Client) Delete(path string) (*transport.Response, error) {
	return c.Do(transport.Request{Method: http.MethodDelete, Path: path})
}

// Do performs req. Any response outside 200/201/202/204 is returned as an error.
func (c *Client) Do(req transport.Request) (*transport.Response, error) {
	resp, err := c.transport.Do(req)
	if err != nil {
		if typederrors.IsUnsupportedBodyTypeError(err) || typederrors.IsUnsupportedAuthTypeError(err) {
			return nil, err
		}
		return nil, typederrors.NewConnectionError("redfish request failed", err)
	}

	if resp.IsSuccess() {
		return resp, nil
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, typederrors.NewNotFoundError(req.Path)
	}

	var body any = string(resp.Body())
	if parsed, err := resp.JSON(); err == nil {
		body = parsed
	}
	return nil, typederrors.NewRequestError(req.Method, req.Path, resp.StatusCode(), body)
}
