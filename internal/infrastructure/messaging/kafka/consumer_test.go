package kafka

import (
	"context"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medimatch/medimatch/internal/config"
	"github.com/medimatch/medimatch/internal/infrastructure/monitoring/logging"
)

type mockKafkaReader struct {
	fetchFunc  func(ctx context.Context) (kafka.Message, error)
	commitFunc func(ctx context.Context, msgs ...kafka.Message) error
}

func (m *mockKafkaReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	if m.fetchFunc != nil {
		return m.fetchFunc(ctx)
	}
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (m *mockKafkaReader) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	if m.commitFunc != nil {
		return m.commitFunc(ctx, msgs...)
	}
	return nil
}

func (m *mockKafkaReader) Close() error             { return nil }
func (m *mockKafkaReader) Stats() kafka.ReaderStats { return kafka.ReaderStats{} }

func newTestConsumer(reader ReaderInterface, dl *Producer) *Consumer {
	return &Consumer{
		reader: reader,
		config: ConsumerConfig{
			Brokers: []string{"localhost:9092"},
			GroupID: "medimatch-worker",
			Topics:  []string{TopicOCRRequested},
			Retry: RetryConfig{
				MaxRetries:      2,
				RetryBackoff:    time.Millisecond,
				DeadLetterTopic: TopicOCRDeadLetter,
			},
		},
		log:                logging.NewNopLogger(),
		handlers:           make(map[string]MessageHandler),
		deadLetterProducer: dl,
		metrics:            &ConsumerMetrics{},
	}
}

func TestProcessMessage_SucceedsFirstAttempt(t *testing.T) {
	c := newTestConsumer(&mockKafkaReader{}, nil)

	calls := 0
	err := c.processMessage(context.Background(), &Message{Topic: TopicOCRRequested},
		func(ctx context.Context, msg *Message) error {
			calls++
			return nil
		})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestProcessMessage_RetriesThenSucceeds(t *testing.T) {
	c := newTestConsumer(&mockKafkaReader{}, nil)

	calls := 0
	err := c.processMessage(context.Background(), &Message{Topic: TopicOCRRequested},
		func(ctx context.Context, msg *Message) error {
			calls++
			if calls < 3 {
				return assert.AnError
			}
			return nil
		})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, int64(2), c.metrics.MessagesRetried.Load())
}

func TestProcessMessage_ExhaustedRetriesDeadLetters(t *testing.T) {
	var dlMsgs []kafka.Message
	dl := newTestProducer(&mockKafkaWriter{
		writeFunc: func(ctx context.Context, msgs ...kafka.Message) error {
			dlMsgs = msgs
			return nil
		},
	})
	c := newTestConsumer(&mockKafkaReader{}, dl)

	msg := &Message{
		Topic:   TopicOCRRequested,
		Key:     []byte("rx-1"),
		Value:   []byte(`{"x":1}`),
		Headers: map[string]string{"event_type": TopicOCRRequested},
	}
	err := c.processMessage(context.Background(), msg,
		func(ctx context.Context, m *Message) error {
			return assert.AnError
		})

	assert.Error(t, err)
	assert.Equal(t, int64(1), c.metrics.MessagesDeadLettered.Load())
	require.Len(t, dlMsgs, 1)
	assert.Equal(t, TopicOCRDeadLetter, dlMsgs[0].Topic)
	assert.Equal(t, []byte("rx-1"), dlMsgs[0].Key)

	headers := make(map[string]string)
	for _, h := range dlMsgs[0].Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, TopicOCRRequested, headers["original_topic"])
	assert.NotEmpty(t, headers["error_message"])
}

func TestConsumeLoop_DispatchesAndCommits(t *testing.T) {
	delivered := make(chan *Message, 1)
	committed := make(chan kafka.Message, 1)
	fetched := false

	reader := &mockKafkaReader{
		fetchFunc: func(ctx context.Context) (kafka.Message, error) {
			if fetched {
				<-ctx.Done()
				return kafka.Message{}, ctx.Err()
			}
			fetched = true
			return kafka.Message{
				Topic:  TopicOCRRequested,
				Key:    []byte("rx-9"),
				Value:  []byte(`{"v":1}`),
				Offset: 7,
			}, nil
		},
		commitFunc: func(ctx context.Context, msgs ...kafka.Message) error {
			committed <- msgs[0]
			return nil
		},
	}

	c := newTestConsumer(reader, nil)
	c.Subscribe(TopicOCRRequested, func(ctx context.Context, msg *Message) error {
		delivered <- msg
		return nil
	})

	require.NoError(t, c.Start(context.Background()))
	defer c.Close()

	select {
	case msg := <-delivered:
		assert.Equal(t, []byte("rx-9"), msg.Key)
		assert.Equal(t, int64(7), msg.Offset)
	case <-time.After(2 * time.Second):
		t.Fatal("handler was not invoked")
	}

	select {
	case m := <-committed:
		assert.Equal(t, int64(7), m.Offset)
	case <-time.After(2 * time.Second):
		t.Fatal("offset was not committed")
	}
}

func TestStart_Twice(t *testing.T) {
	c := newTestConsumer(&mockKafkaReader{}, nil)
	require.NoError(t, c.Start(context.Background()))
	defer c.Close()

	assert.Equal(t, ErrAlreadyRunning, c.Start(context.Background()))
}

func TestValidateConsumerConfig(t *testing.T) {
	valid := ConsumerConfig{
		Brokers: []string{"localhost:9092"},
		GroupID: "g",
		Topics:  []string{TopicOCRRequested},
	}
	assert.NoError(t, validateConsumerConfig(valid))

	tests := []struct {
		name   string
		mutate func(*ConsumerConfig)
	}{
		{"no brokers", func(c *ConsumerConfig) { c.Brokers = nil }},
		{"no group", func(c *ConsumerConfig) { c.GroupID = "" }},
		{"no topics", func(c *ConsumerConfig) { c.Topics = nil }},
		{"bad offset reset", func(c *ConsumerConfig) { c.AutoOffsetReset = "middle" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			assert.Error(t, validateConsumerConfig(cfg))
		})
	}
}

func TestNewConsumerConfig(t *testing.T) {
	cfg := NewConsumerConfig(
		config.KafkaConfig{
			Brokers:         []string{"k1:9092", "k2:9092"},
			GroupID:         "medimatch-worker",
			AutoOffsetReset: "latest",
		},
		config.WorkerConfig{
			MaxRetries:     5,
			RetryBackoff:   2 * time.Second,
			CommitInterval: time.Second,
		},
	)

	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Brokers)
	assert.Equal(t, []string{TopicOCRRequested}, cfg.Topics)
	assert.Equal(t, "latest", cfg.AutoOffsetReset)
	assert.Equal(t, 5, cfg.Retry.MaxRetries)
	assert.Equal(t, TopicOCRDeadLetter, cfg.Retry.DeadLetterTopic)
}
