package client

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ConnectivityError means no HTTP response was received at all
type ConnectivityError struct {
	BaseURL string
	Err     error
}

func (e *ConnectivityError) Error() string {
	return fmt.Sprintf("cannot reach the API at %s: %v (check that the server is running and that its CORS allowlist includes this origin)", e.BaseURL, e.Err)
}

func (e *ConnectivityError) Unwrap() error { return e.Err }

// UnauthorizedError means the server answered 401. The stored token has
// already been cleared by the time the caller sees this error; redirecting
// is the caller's decision, never the pipeline's.
type UnauthorizedError struct {
	Body string
}

func (e *UnauthorizedError) Error() string {
	if msg := messageFromBody(e.Body); msg != "" {
		return fmt.Sprintf("unauthorized: %s", msg)
	}
	return "unauthorized"
}

// ForbiddenError means the server answered 403: the token is valid but the
// role is insufficient. The stored token is left untouched.
type ForbiddenError struct {
	Body string
}

func (e *ForbiddenError) Error() string {
	if msg := messageFromBody(e.Body); msg != "" {
		return fmt.Sprintf("forbidden: %s", msg)
	}
	return "forbidden"
}

// RequestError covers every other non-2xx response
type RequestError struct {
	Status int
	Body   string
}

func (e *RequestError) Error() string {
	if msg := messageFromBody(e.Body); msg != "" {
		return msg
	}
	return fmt.Sprintf("HTTP error %d", e.Status)
}

// messageFromBody pulls a human-readable message out of a response body:
// a JSON "error" or "message" field when present, the raw text otherwise.
func messageFromBody(body string) string {
	body = strings.TrimSpace(body)
	if body == "" {
		return ""
	}
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal([]byte(body), &payload); err == nil {
		if payload.Error != "" {
			return payload.Error
		}
		if payload.Message != "" {
			return payload.Message
		}
	}
	return body
}
