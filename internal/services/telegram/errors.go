package telegram

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrorKind tags a delivery failure. The tag, not the message text, decides
// whether a job retries.
type ErrorKind int

const (
	KindRateLimited ErrorKind = iota + 1
	KindBadRequest
	KindForbidden
	KindNotFound
	KindServerError
	KindTransport
	KindAPI
)

func (k ErrorKind) String() string {
	switch k {
	case KindRateLimited:
		return "rate_limited"
	case KindBadRequest:
		return "bad_request"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindServerError:
		return "server_error"
	case KindTransport:
		return "transport_error"
	case KindAPI:
		return "api_error"
	default:
		return "unknown"
	}
}

// Retryable reports the static retry category of the kind.
func (k ErrorKind) Retryable() bool {
	switch k {
	case KindRateLimited, KindServerError, KindTransport:
		return true
	default:
		return false
	}
}

// Error is a classified Bot API failure. Only the fields relevant to Kind
// are set.
type Error struct {
	Kind        ErrorKind
	Description string
	StatusCode  int
	ErrorCode   *int
	RetryAfter  *time.Duration
	Parameters  map[string]any
	Body        string
	Cause       error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindRateLimited:
		if e.RetryAfter != nil {
			return fmt.Sprintf("telegram rate limited (retry_after=%s)", *e.RetryAfter)
		}
		return "telegram rate limited"
	case KindServerError:
		return fmt.Sprintf("telegram server error (status %d)", e.StatusCode)
	case KindTransport:
		return fmt.Sprintf("telegram transport error: %v", e.Cause)
	case KindAPI:
		if e.ErrorCode != nil {
			return fmt.Sprintf("telegram api error %d: %s", *e.ErrorCode, e.Description)
		}
		return "telegram api error: " + e.Description
	default:
		return fmt.Sprintf("telegram %s: %s", e.Kind, e.Description)
	}
}

func (e *Error) Unwrap() error { return e.Cause }

func (e *Error) Retryable() bool { return e.Kind.Retryable() }

// AsError extracts a classified error from err's chain.
func AsError(err error) (*Error, bool) {
	var tgErr *Error
	if errors.As(err, &tgErr) {
		return tgErr, true
	}
	return nil, false
}

// IsRetryable reports whether err is a classified error of a retryable kind.
func IsRetryable(err error) bool {
	tgErr, ok := AsError(err)
	return ok && tgErr.Retryable()
}

// IsNonRetryable reports whether err is a classified error of a permanent
// kind. Unclassified errors are neither retryable nor non-retryable here.
func IsNonRetryable(err error) bool {
	tgErr, ok := AsError(err)
	return ok && !tgErr.Retryable()
}

// TransportError classifies a failure that happened before any response,
// including timeouts.
func TransportError(cause error) *Error {
	return &Error{Kind: KindTransport, Cause: cause, Description: cause.Error()}
}

type apiResponse struct {
	OK          *bool          `json:"ok"`
	Description string         `json:"description"`
	ErrorCode   *int           `json:"error_code"`
	Parameters  map[string]any `json:"parameters"`
}

// Classify maps a Bot API response to nil or exactly one classified error.
// HTTP status takes precedence over the body; a body that is not a JSON
// object only supplies the description.
func Classify(status int, body []byte) error {
	var parsed *apiResponse
	var candidate apiResponse
	if trimmed := bytes.TrimSpace(body); len(trimmed) > 0 && trimmed[0] == '{' {
		if err := json.Unmarshal(trimmed, &candidate); err == nil {
			parsed = &candidate
		}
	}

	if status >= http.StatusBadRequest {
		return classifyHTTP(status, body, parsed)
	}

	if parsed == nil {
		return &Error{
			Kind:        KindServerError,
			StatusCode:  status,
			Body:        string(body),
			Description: string(body),
		}
	}

	if parsed.OK != nil && !*parsed.OK {
		description := parsed.Description
		if description == "" {
			description = "Unknown Telegram error"
		}
		return &Error{
			Kind:        KindAPI,
			StatusCode:  status,
			Description: description,
			ErrorCode:   parsed.ErrorCode,
			Parameters:  parsed.Parameters,
		}
	}

	return nil
}

func classifyHTTP(status int, body []byte, parsed *apiResponse) *Error {
	description := ""
	var params map[string]any
	if parsed != nil {
		description = parsed.Description
		params = parsed.Parameters
	}
	if description == "" {
		description = string(body)
	}
	if description == "" {
		description = fmt.Sprintf("HTTP %d", status)
	}

	switch {
	case status == http.StatusTooManyRequests:
		return &Error{
			Kind:        KindRateLimited,
			StatusCode:  status,
			Description: description,
			RetryAfter:  retryAfter(params),
			Parameters:  params,
		}
	case status >= 500 && status <= 599:
		return &Error{Kind: KindServerError, StatusCode: status, Body: string(body), Description: description}
	case status == http.StatusForbidden:
		return &Error{Kind: KindForbidden, StatusCode: status, Description: description}
	case status == http.StatusNotFound:
		return &Error{Kind: KindNotFound, StatusCode: status, Description: description}
	default:
		// 400 and any other 4xx
		return &Error{Kind: KindBadRequest, StatusCode: status, Description: description}
	}
}

func retryAfter(params map[string]any) *time.Duration {
	if params == nil {
		return nil
	}
	seconds, ok := params["retry_after"].(float64)
	if !ok || seconds < 0 {
		return nil
	}
	d := time.Duration(seconds * float64(time.Second))
	return &d
}
