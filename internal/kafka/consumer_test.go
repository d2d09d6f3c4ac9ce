package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// A burst of handler failures must be absorbed one by one in the worker,
// without committing offsets and without anything backing up.
func TestConsumeSkipsFailedMessages(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	c := NewConsumer([]string{"127.0.0.1:9092"}, "test-group", "test-topic", 1, zap.New(core))

	boom := errors.New("handler rejected message")
	failing := func(context.Context, kafka.Message) error { return boom }

	const n = 100
	for i := 0; i < n; i++ {
		// a failing handler returns before the reader is touched, so no
		// broker is needed here
		c.consume(context.Background(), failing, kafka.Message{Topic: "test-topic", Offset: int64(i)})
	}

	if got := logs.FilterMessage("event handler failed").Len(); got != n {
		t.Fatalf("logged %d handler failures, want %d", got, n)
	}
}
