package kafka

import (
	"context"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medimatch/medimatch/internal/infrastructure/monitoring/logging"
)

type mockConn struct {
	createFunc     func(topics ...kafka.TopicConfig) error
	partitionsFunc func(topics ...string) ([]kafka.Partition, error)
	created        []kafka.TopicConfig
}

func (m *mockConn) CreateTopics(topics ...kafka.TopicConfig) error {
	m.created = append(m.created, topics...)
	if m.createFunc != nil {
		return m.createFunc(topics...)
	}
	return nil
}

func (m *mockConn) ReadPartitions(topics ...string) ([]kafka.Partition, error) {
	if m.partitionsFunc != nil {
		return m.partitionsFunc(topics...)
	}
	return nil, nil
}

func (m *mockConn) Close() error { return nil }

func newTestTopicManager(conn ConnInterface) *TopicManager {
	return &TopicManager{conn: conn, log: logging.NewNopLogger()}
}

func TestCreateTopic(t *testing.T) {
	conn := &mockConn{}
	m := newTestTopicManager(conn)

	err := m.CreateTopic(context.Background(), TopicConfig{
		Name:              TopicOCRRequested,
		NumPartitions:     3,
		ReplicationFactor: 1,
		RetentionMs:       86400000,
	})

	require.NoError(t, err)
	require.Len(t, conn.created, 1)
	assert.Equal(t, TopicOCRRequested, conn.created[0].Topic)
	assert.Equal(t, 3, conn.created[0].NumPartitions)
	require.Len(t, conn.created[0].ConfigEntries, 1)
	assert.Equal(t, "retention.ms", conn.created[0].ConfigEntries[0].ConfigName)
	assert.Equal(t, "86400000", conn.created[0].ConfigEntries[0].ConfigValue)
}

func TestCreateTopic_Validation(t *testing.T) {
	m := newTestTopicManager(&mockConn{})

	assert.Error(t, m.CreateTopic(context.Background(), TopicConfig{NumPartitions: 1, ReplicationFactor: 1}))
	assert.Error(t, m.CreateTopic(context.Background(), TopicConfig{Name: "t", ReplicationFactor: 1}))
	assert.Error(t, m.CreateTopic(context.Background(), TopicConfig{Name: "t", NumPartitions: 1}))
}

func TestCreateTopic_AlreadyExists(t *testing.T) {
	conn := &mockConn{
		createFunc: func(topics ...kafka.TopicConfig) error {
			return assert.AnError
		},
		partitionsFunc: func(topics ...string) ([]kafka.Partition, error) {
			return []kafka.Partition{{Topic: topics[0]}}, nil
		},
	}
	m := newTestTopicManager(conn)

	err := m.CreateTopic(context.Background(), TopicConfig{
		Name:              TopicOCRCompleted,
		NumPartitions:     3,
		ReplicationFactor: 1,
	})
	assert.NoError(t, err)
}

func TestEnsureDefaultTopics(t *testing.T) {
	conn := &mockConn{}
	m := newTestTopicManager(conn)

	require.NoError(t, m.EnsureDefaultTopics(context.Background()))
	assert.Len(t, conn.created, 3)

	names := make([]string, len(conn.created))
	for i, c := range conn.created {
		names[i] = c.Topic
	}
	assert.Contains(t, names, TopicOCRRequested)
	assert.Contains(t, names, TopicOCRCompleted)
	assert.Contains(t, names, TopicOCRDeadLetter)
}

func TestEventEnvelope_RoundTrip(t *testing.T) {
	env, err := NewEventEnvelope(TopicOCRRequested, sourceService, OCRRequestedPayload{
		PrescriptionID: "rx-7",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, env.EventID)
	assert.Equal(t, "v1", env.SchemaVersion)

	msg, err := env.ToMessage(TopicOCRRequested, "rx-7")
	require.NoError(t, err)
	assert.Equal(t, TopicOCRRequested, msg.Topic)
	assert.Equal(t, TopicOCRRequested, msg.Headers["event_type"])

	decoded, err := DecodeEnvelope(&Message{Topic: msg.Topic, Value: msg.Value})
	require.NoError(t, err)
	assert.Equal(t, env.EventID, decoded.EventID)

	var payload OCRRequestedPayload
	require.NoError(t, decoded.DecodePayload(&payload))
	assert.Equal(t, "rx-7", payload.PrescriptionID)
}

func TestDecodeEnvelope_Invalid(t *testing.T) {
	_, err := DecodeEnvelope(&Message{})
	assert.Error(t, err)

	_, err = DecodeEnvelope(&Message{Value: []byte("{bad json")})
	assert.Error(t, err)
}

func TestDecodePayload_Empty(t *testing.T) {
	env := &EventEnvelope{}
	var payload OCRRequestedPayload
	assert.Error(t, env.DecodePayload(&payload))
}
