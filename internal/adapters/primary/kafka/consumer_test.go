package kafka

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/IBM/sarama"
	"github.com/stretchr/testify/assert"
)

type recordingHandler struct {
	keys    []string
	headers []map[string]string
	err     error
}

func (h *recordingHandler) HandleMessage(_ context.Context, key string, _ []byte, headers map[string]string) error {
	h.keys = append(h.keys, key)
	h.headers = append(h.headers, headers)
	return h.err
}

// session реализует только то, что использует consumerGroupHandler
type session struct {
	sarama.ConsumerGroupSession
	marked []int64
}

func (s *session) Context() context.Context { return context.Background() }

func (s *session) MarkMessage(msg *sarama.ConsumerMessage, _ string) {
	s.marked = append(s.marked, msg.Offset)
}

func TestProcessMarksMessageEvenOnError(t *testing.T) {
	handler := &recordingHandler{err: errors.New("telegram down")}
	h := &consumerGroupHandler{handler: handler, log: slog.New(slog.NewTextHandler(io.Discard, nil)), topic: "bookly.purchases"}
	sess := &session{}

	h.process(sess, &sarama.ConsumerMessage{
		Topic:  "bookly.purchases",
		Key:    []byte("u1"),
		Value:  []byte(`{}`),
		Offset: 7,
		Headers: []*sarama.RecordHeader{
			{Key: []byte("event_type"), Value: []byte("purchase.completed")},
			nil,
		},
	})

	assert.Equal(t, []string{"u1"}, handler.keys)
	assert.Equal(t, "purchase.completed", handler.headers[0]["event_type"])
	assert.Equal(t, []int64{7}, sess.marked)
}
