package kafka

import (
	"context"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medimatch/medimatch/internal/infrastructure/monitoring/logging"
	pkgerrors "github.com/medimatch/medimatch/pkg/errors"
)

type mockKafkaWriter struct {
	writeFunc func(ctx context.Context, msgs ...kafka.Message) error
	closeFunc func() error
}

func (m *mockKafkaWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if m.writeFunc != nil {
		return m.writeFunc(ctx, msgs...)
	}
	return nil
}

func (m *mockKafkaWriter) Close() error {
	if m.closeFunc != nil {
		return m.closeFunc()
	}
	return nil
}

func (m *mockKafkaWriter) Stats() kafka.WriterStats { return kafka.WriterStats{} }

func newTestProducer(w WriterInterface) *Producer {
	return &Producer{
		writer:  w,
		config:  ProducerConfig{Brokers: []string{"localhost:9092"}, MaxMessageBytes: 1024},
		log:     logging.NewNopLogger(),
		metrics: &ProducerMetrics{},
	}
}

func TestPublish_Success(t *testing.T) {
	var captured []kafka.Message
	p := newTestProducer(&mockKafkaWriter{
		writeFunc: func(ctx context.Context, msgs ...kafka.Message) error {
			captured = msgs
			return nil
		},
	})

	err := p.Publish(context.Background(), &ProducerMessage{
		Topic:   TopicOCRRequested,
		Key:     []byte("rx-1"),
		Value:   []byte(`{"a":1}`),
		Headers: map[string]string{"event_type": TopicOCRRequested},
	})

	require.NoError(t, err)
	require.Len(t, captured, 1)
	assert.Equal(t, TopicOCRRequested, captured[0].Topic)
	assert.Equal(t, []byte("rx-1"), captured[0].Key)
	require.Len(t, captured[0].Headers, 1)
	assert.Equal(t, "event_type", captured[0].Headers[0].Key)

	sent, failed, bytes := p.Metrics()
	assert.Equal(t, int64(1), sent)
	assert.Equal(t, int64(0), failed)
	assert.Equal(t, int64(7), bytes)
}

func TestPublish_Validation(t *testing.T) {
	p := newTestProducer(&mockKafkaWriter{})

	tests := []struct {
		name string
		msg  *ProducerMessage
	}{
		{"missing topic", &ProducerMessage{Value: []byte("v")}},
		{"missing value", &ProducerMessage{Topic: "t"}},
		{"oversized value", &ProducerMessage{Topic: "t", Value: make([]byte, 2048)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := p.Publish(context.Background(), tt.msg)
			assert.True(t, pkgerrors.IsCode(err, pkgerrors.ErrCodeValidation))
		})
	}
}

func TestPublish_WriteFailure(t *testing.T) {
	p := newTestProducer(&mockKafkaWriter{
		writeFunc: func(ctx context.Context, msgs ...kafka.Message) error {
			return assert.AnError
		},
	})

	err := p.Publish(context.Background(), &ProducerMessage{Topic: "t", Value: []byte("v")})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.ErrCodeServiceUnavailable))

	_, failed, _ := p.Metrics()
	assert.Equal(t, int64(1), failed)
}

func TestPublish_AfterClose(t *testing.T) {
	p := newTestProducer(&mockKafkaWriter{})
	require.NoError(t, p.Close())
	require.NoError(t, p.Close())

	err := p.Publish(context.Background(), &ProducerMessage{Topic: "t", Value: []byte("v")})
	assert.Equal(t, ErrProducerClosed, err)
}

func TestEventPublisher_OCRRequested(t *testing.T) {
	var captured []kafka.Message
	p := newTestProducer(&mockKafkaWriter{
		writeFunc: func(ctx context.Context, msgs ...kafka.Message) error {
			captured = msgs
			return nil
		},
	})
	pub := NewEventPublisher(p)

	require.NoError(t, pub.PublishOCRRequested(context.Background(), "rx-42"))
	require.Len(t, captured, 1)
	assert.Equal(t, TopicOCRRequested, captured[0].Topic)
	assert.Equal(t, []byte("rx-42"), captured[0].Key)

	env, err := DecodeEnvelope(&Message{Topic: captured[0].Topic, Value: captured[0].Value})
	require.NoError(t, err)
	assert.Equal(t, TopicOCRRequested, env.EventType)
	assert.Equal(t, sourceService, env.Source)

	var payload OCRRequestedPayload
	require.NoError(t, env.DecodePayload(&payload))
	assert.Equal(t, "rx-42", payload.PrescriptionID)
	assert.False(t, payload.RequestedAt.IsZero())
}

func TestEventPublisher_OCRCompleted(t *testing.T) {
	var captured []kafka.Message
	p := newTestProducer(&mockKafkaWriter{
		writeFunc: func(ctx context.Context, msgs ...kafka.Message) error {
			captured = msgs
			return nil
		},
	})
	pub := NewEventPublisher(p)

	err := pub.PublishOCRCompleted(context.Background(), OCRCompletedPayload{
		PrescriptionID: "rx-42",
		Status:         "completed",
		Engine:         "hosted",
		ItemCount:      2,
	})
	require.NoError(t, err)
	require.Len(t, captured, 1)

	env, err := DecodeEnvelope(&Message{Value: captured[0].Value})
	require.NoError(t, err)

	var payload OCRCompletedPayload
	require.NoError(t, env.DecodePayload(&payload))
	assert.Equal(t, 2, payload.ItemCount)
	assert.False(t, payload.CompletedAt.IsZero())
}

func TestNewProducer_Validation(t *testing.T) {
	_, err := newProducer(ProducerConfig{}, nil)
	assert.Error(t, err)
}
