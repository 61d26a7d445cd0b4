package telegram

import (
	"encoding/json"
	"fmt"
)

// APIResponse базовая структура ответа от Telegram API
type APIResponse struct {
	OK          bool                `json:"ok"`
	Description string              `json:"description,omitempty"`
	ErrorCode   int                 `json:"error_code,omitempty"`
	Parameters  *ResponseParameters `json:"parameters,omitempty"`
}

// ResponseParameters подсказки от Telegram при ошибке (flood control)
type ResponseParameters struct {
	RetryAfter int `json:"retry_after,omitempty"`
}

type envelope struct {
	APIResponse
	Result json.RawMessage `json:"result"`
}

// APIError ответ ok=false
type APIError struct {
	Method      string
	Code        int
	Description string
	RetryAfter  int
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram API error [method=%s, code=%d]: %s", e.Method, e.Code, e.Description)
}
