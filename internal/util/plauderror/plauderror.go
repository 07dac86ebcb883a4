// Package plauderror maps Plaud API failures to stable, user-facing messages
// and carries the error taxonomy used by the client layer.
package plauderror

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// Known Plaud error codes and their friendly messages.
var knownErrorMessages = map[string]string{
	"INVALID_CREDENTIALS":  "Invalid API credentials. Please check your Client ID and Secret Key.",
	"TOKEN_EXPIRED":        "API token has expired. Please try again.",
	"DEVICE_NOT_FOUND":     "The specified device was not found.",
	"DEVICE_ALREADY_BOUND": "This device is already bound to a user account.",
	"WORKFLOW_NOT_FOUND":   "The specified workflow was not found.",
	"RATE_LIMIT_EXCEEDED":  "Rate limit exceeded. Please wait before making more requests.",
	"INVALID_FILE_TYPE":    "The specified file type is not supported.",
	"FILE_TOO_LARGE":       "The file exceeds the maximum allowed size.",
}

// Classify maps an HTTP status code and optional response body to a friendly
// message. It is total: it always returns a non-empty string.
func Classify(statusCode int, body []byte) string {
	code, message := extractCodeAndMessage(body)

	if code != "" {
		if msg, ok := knownErrorMessages[code]; ok {
			return msg
		}
	}

	switch statusCode {
	case 400:
		if message != "" {
			return message
		}
		return "Bad request. Please check your input parameters."
	case 401:
		return "Authentication failed. Please verify your Plaud API credentials."
	case 403:
		return "Access denied. You do not have permission to perform this action."
	case 404:
		if message != "" {
			return message
		}
		return "The requested resource was not found."
	case 429:
		return "Too many requests. Please wait before making more API calls."
	case 500:
		return "Plaud API server error. Please try again later."
	case 502, 503, 504:
		return "Plaud API is temporarily unavailable. Please try again later."
	default:
		if message != "" {
			return message
		}
		return fmt.Sprintf("Request failed with status code %d", statusCode)
	}
}

func extractCodeAndMessage(body []byte) (string, string) {
	if len(body) == 0 || !gjson.ValidBytes(body) {
		return "", ""
	}
	code := strings.TrimSpace(gjson.GetBytes(body, "code").String())
	message := strings.TrimSpace(gjson.GetBytes(body, "message").String())
	return code, message
}

// ConfigurationError reports an unusable request before it reaches the wire:
// an unknown resource/operation pair or a malformed JSON parameter.
type ConfigurationError struct {
	Message string
}

func (e *ConfigurationError) Error() string {
	return e.Message
}

// AuthenticationError reports an unrecoverable credential failure: a token
// exchange that yielded no token, or a 401 that survived the single forced
// refresh.
type AuthenticationError struct {
	Message string
}

func (e *AuthenticationError) Error() string {
	return e.Message
}

// RequestError is any classified non-2xx response, including an exhausted
// rate-limit budget. StatusCode carries the last status observed.
type RequestError struct {
	StatusCode int
	Message    string
}

func (e *RequestError) Error() string {
	return e.Message
}

// TruncateBody truncates body text for logging.
func TruncateBody(body []byte, max int) string {
	if max <= 0 {
		max = 512
	}
	raw := strings.TrimSpace(string(body))
	if len(raw) <= max {
		return raw
	}
	return raw[:max] + "...(truncated)"
}
