package alerter

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestClip(t *testing.T) {
	assert.Equal(t, "короткий", clip("короткий"))

	long := strings.Repeat("я", maxMessageRunes+10)
	clipped := clip(long)
	assert.Equal(t, maxMessageRunes, utf8.RuneCountInString(clipped))
	assert.True(t, strings.HasSuffix(clipped, "…"))
}

func TestNilClient(t *testing.T) {
	assert.Nil(t, NewClient(nil, slog.New(slog.NewTextHandler(io.Discard, nil))))

	var c *Client
	assert.Error(t, c.SendAlert(context.Background(), "x"))
}
