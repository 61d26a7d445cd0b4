package telegram_stars

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

const (
	payloadType     = "book_purchase"
	maxPayloadBytes = 128
)

// invoicePayload возвращается Telegram в successful_payment как есть.
// Nonce есть только у наших invoice, ссылки мини-приложения приходят без него
type invoicePayload struct {
	BookID string `json:"bookId"`
	UserID string `json:"userId"`
	Type   string `json:"type"`
	Nonce  string `json:"nonce,omitempty"`
}

// newNonce 16 hex символов, payload ограничен 128 байтами
func newNonce() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
}

func encodePayload(p invoicePayload) (string, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("failed to marshal invoice payload: %w", err)
	}
	if len(data) > maxPayloadBytes {
		return "", fmt.Errorf("invoice payload too long: %d bytes", len(data))
	}
	return string(data), nil
}

func decodePayload(raw string) (*invoicePayload, error) {
	var p invoicePayload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, fmt.Errorf("invalid invoice payload: %w", err)
	}
	if p.Type != payloadType {
		return nil, fmt.Errorf("unexpected payload type %q", p.Type)
	}
	if p.BookID == "" || p.UserID == "" {
		return nil, fmt.Errorf("incomplete invoice payload")
	}
	return &p, nil
}

// truncateRunes обрезает по символам, а не байтам (названия книг на кириллице)
func truncateRunes(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
