package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
)

// Kind groups failures by what the caller can do about them.
type Kind int

const (
	// KindAuth is a 401/403: the session has been invalidated.
	KindAuth Kind = iota + 1
	// KindRequest is any other 4xx.
	KindRequest
	// KindServer is a 5xx.
	KindServer
	// KindTransport covers dial failures, timeouts and cancellation.
	KindTransport
	// KindDecode means a 2xx body could not be decoded.
	KindDecode
)

func (k Kind) String() string {
	switch k {
	case KindAuth:
		return "auth"
	case KindRequest:
		return "request"
	case KindServer:
		return "server"
	case KindTransport:
		return "transport"
	case KindDecode:
		return "decode"
	default:
		return "unknown"
	}
}

// Stable error codes.
const (
	CodeBadRequest          = "BAD_REQUEST"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeForbidden           = "FORBIDDEN"
	CodeNotFound            = "NOT_FOUND"
	CodeConflict            = "CONFLICT"
	CodeUnprocessableEntity = "UNPROCESSABLE_ENTITY"
	CodeInternalServerError = "INTERNAL_SERVER_ERROR"
	CodeServiceUnavailable  = "SERVICE_UNAVAILABLE"
	CodeTimeout             = "TIMEOUT"
	CodeNetworkError        = "NETWORK_ERROR"
	CodeCanceled            = "CANCELED"
	CodeDecodeError         = "DECODE_ERROR"
)

// AuthFailedMessage is shown whenever the backend rejects the session.
const AuthFailedMessage = "Authentication failed. Please login again."

// Error is a classified backend failure.
type Error struct {
	Kind    Kind
	Status  int
	Code    string
	Message string
	Details string
	Method  string
	Path    string
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Method)
	b.WriteByte(' ')
	b.WriteString(e.Path)
	b.WriteString(": ")
	b.WriteString(e.Code)
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// IsKind reports whether err is an *Error of kind k.
func IsKind(err error, k Kind) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Kind == k
}

// StatusOf returns the HTTP status of err, or 0.
func StatusOf(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

type statusText struct {
	code    string
	message string
	details string
}

var statusTexts = map[int]statusText{
	http.StatusBadRequest:          {CodeBadRequest, "Invalid request data provided.", "Please check your input and try again."},
	http.StatusUnauthorized:        {CodeUnauthorized, AuthFailedMessage, "Your session may have expired."},
	http.StatusForbidden:           {CodeForbidden, AuthFailedMessage, "Access denied for this operation."},
	http.StatusNotFound:            {CodeNotFound, "The requested resource was not found.", "The endpoint or record is not available."},
	http.StatusConflict:            {CodeConflict, "Conflict. Some items may no longer be available.", "Please refresh and try again."},
	http.StatusUnprocessableEntity: {CodeUnprocessableEntity, "Invalid data format.", "The data could not be processed."},
	http.StatusInternalServerError: {CodeInternalServerError, "Server error occurred.", "Please try again later or contact support."},
	http.StatusServiceUnavailable:  {CodeServiceUnavailable, "Service is temporarily unavailable.", "Please try again in a few moments."},
}

// classifyStatus turns a non-2xx response into an *Error. body is the raw
// response body, possibly empty.
func classifyStatus(method, path string, status int, body []byte) *Error {
	e := &Error{Status: status, Method: method, Path: path}
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		e.Kind = KindAuth
	case status >= 500:
		e.Kind = KindServer
	default:
		e.Kind = KindRequest
	}

	if txt, ok := statusTexts[status]; ok {
		e.Code, e.Message, e.Details = txt.code, txt.message, txt.details
	} else {
		e.Code = strconv.Itoa(status)
		e.Message = fmt.Sprintf("Unexpected error occurred (Status: %d).", status)
		e.Details = "Please try again or contact support if the problem persists."
	}

	if server := serverMessage(body); server != "" {
		switch e.Kind {
		case KindRequest:
			e.Message = server
		case KindServer:
			e.Details = server
		}
	}
	return e
}

// serverMessage extracts the backend's explanation: a JSON "message" or
// "error" field, a JSON string, or short plain text.
func serverMessage(body []byte) string {
	body = []byte(strings.TrimSpace(string(body)))
	if len(body) == 0 {
		return ""
	}

	var fields struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &fields); err == nil {
		if fields.Message != "" {
			return fields.Message
		}
		return fields.Error
	}

	var s string
	if err := json.Unmarshal(body, &s); err == nil {
		return s
	}
	if body[0] == '{' || body[0] == '[' || body[0] == '<' || len(body) > 200 {
		return ""
	}
	return string(body)
}

// classifyTransport wraps a failure to get any response at all.
func classifyTransport(method, path string, err error) *Error {
	e := &Error{Kind: KindTransport, Method: method, Path: path, Err: err}
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()):
		e.Code = CodeTimeout
		e.Message = "Request timed out. Please try again."
		e.Details = "The server took too long to respond."
	case errors.Is(err, context.Canceled):
		e.Code = CodeCanceled
		e.Message = "Request was canceled."
	default:
		e.Code = CodeNetworkError
		e.Message = "Network error. Please check your connection."
		e.Details = "Unable to reach the server."
	}
	return e
}

func classifyDecode(method, path string, status int, err error) *Error {
	return &Error{
		Kind:    KindDecode,
		Status:  status,
		Code:    CodeDecodeError,
		Message: "Unexpected response from the server.",
		Details: "The response could not be read.",
		Method:  method,
		Path:    path,
		Err:     err,
	}
}
