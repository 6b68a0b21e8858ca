package gemini

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/mindful-auto/maa-core/pkg/core"
)

// geminiError represents an error response from the Gemini API.
type geminiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
		Details []struct {
			Type     string            `json:"@type"`
			Reason   string            `json:"reason,omitempty"`
			Domain   string            `json:"domain,omitempty"`
			Metadata map[string]string `json:"metadata,omitempty"`
		} `json:"details,omitempty"`
	} `json:"error"`
}

// parseError translates a Gemini error response into the shared taxonomy.
func (c *Client) parseError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)

	var geminiErr geminiError
	if err := json.Unmarshal(body, &geminiErr); err != nil {
		return &core.Error{
			Type:    core.ErrAPI,
			Message: string(body),
		}
	}

	// Map Gemini status strings to our error types.
	var errType core.ErrorType
	switch geminiErr.Error.Status {
	case "INVALID_ARGUMENT", "FAILED_PRECONDITION":
		errType = core.ErrInvalidRequest
	case "UNAUTHENTICATED":
		errType = core.ErrAuthentication
	case "PERMISSION_DENIED":
		errType = core.ErrPermission
	case "NOT_FOUND":
		errType = core.ErrNotFound
	case "RESOURCE_EXHAUSTED":
		errType = core.ErrRateLimit
	case "INTERNAL":
		errType = core.ErrAPI
	case "UNAVAILABLE":
		errType = core.ErrOverloaded
	default:
		errType = core.ErrAPI
	}

	// The HTTP status code wins when the body disagrees.
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		errType = core.ErrRateLimit
	case resp.StatusCode == http.StatusServiceUnavailable:
		errType = core.ErrOverloaded
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		errType = core.ErrAuthentication
	}

	var coreErr *core.Error
	switch errType {
	case core.ErrNotFound:
		coreErr = core.NewNotFoundError(geminiErr.Error.Message)
	case core.ErrRateLimit:
		coreErr = core.NewRateLimitError(geminiErr.Error.Message, retryAfterSeconds(resp))
	default:
		coreErr = &core.Error{
			Type:    errType,
			Message: geminiErr.Error.Message,
		}
	}
	coreErr.Code = geminiErr.Error.Status
	coreErr.ProviderError = geminiErr.Error
	return coreErr
}

// retryAfterSeconds reads the Retry-After response header; 0 when absent or
// not a plain second count.
func retryAfterSeconds(resp *http.Response) int {
	raw := resp.Header.Get("Retry-After")
	if raw == "" {
		return 0
	}
	secs, err := strconv.Atoi(raw)
	if err != nil || secs < 0 {
		return 0
	}
	return secs
}
