package events

import (
	"context"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs   []kafka.Message
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestKafkaPublisherSetsTopicPerMessage(t *testing.T) {
	w := &fakeWriter{}
	p := &KafkaPublisher{writer: w}

	require.NoError(t, p.Publish(context.Background(), "identity.events", []byte("user-1"), []byte(`{}`)))
	require.NoError(t, p.Publish(context.Background(), "identity.admin", nil, []byte(`{}`)))

	require.Len(t, w.msgs, 2)
	assert.Equal(t, "identity.events", w.msgs[0].Topic)
	assert.Equal(t, []byte("user-1"), w.msgs[0].Key)
	assert.Equal(t, "identity.admin", w.msgs[1].Topic)

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestApplyWriterProperties(t *testing.T) {
	w := &kafka.Writer{}
	err := applyWriterProperties(w, map[string]any{
		PropBatchTimeout:           "50ms",
		PropBatchSize:              "10",
		PropRequiredAcks:           "all",
		PropMaxAttempts:            3,
		PropCompression:            "snappy",
		PropWriteTimeout:           "5s",
		PropAllowAutoTopicCreation: "true",
		"linger.ms":                5,
	}, defLogger{})
	require.NoError(t, err)

	assert.Equal(t, 50*time.Millisecond, w.BatchTimeout)
	assert.Equal(t, 10, w.BatchSize)
	assert.Equal(t, kafka.RequireAll, w.RequiredAcks)
	assert.Equal(t, 3, w.MaxAttempts)
	assert.Equal(t, kafka.Snappy, w.Compression)
	assert.Equal(t, 5*time.Second, w.WriteTimeout)
	assert.True(t, w.AllowAutoTopicCreation)
}

func TestApplyWriterPropertiesDefaults(t *testing.T) {
	w := &kafka.Writer{}
	require.NoError(t, applyWriterProperties(w, nil, defLogger{}))
	assert.Equal(t, 1, w.MaxAttempts)
	assert.Equal(t, 10*time.Millisecond, w.BatchTimeout)
}

func TestApplyWriterPropertiesRejectsBadValues(t *testing.T) {
	err := applyWriterProperties(&kafka.Writer{}, map[string]any{PropRequiredAcks: "most"}, defLogger{})
	assert.Error(t, err)

	err = applyWriterProperties(&kafka.Writer{}, map[string]any{PropBatchSize: "lots"}, defLogger{})
	assert.Error(t, err)
}

func TestKafkaProducerFactory(t *testing.T) {
	_, err := NewKafkaProducerFactory(nil, "svc", nil)(nil)
	assert.Error(t, err)

	pub, err := NewKafkaProducerFactory([]string{"localhost:9092"}, "svc", nil)(map[string]any{PropRequiredAcks: "one"})
	require.NoError(t, err)

	kp, ok := pub.(*KafkaPublisher)
	require.True(t, ok)
	w, ok := kp.writer.(*kafka.Writer)
	require.True(t, ok)
	assert.Equal(t, kafka.RequireOne, w.RequiredAcks)
	assert.Equal(t, 1, w.MaxAttempts)
	require.NoError(t, kp.Close())
}
