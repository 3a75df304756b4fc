package events

import (
	"context"
	"sort"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/segmentio/kafka-go"
	"github.com/spf13/cast"
)

// property keys understood by the kafka producer
const (
	PropBatchTimeout           = "batch_timeout"
	PropBatchSize              = "batch_size"
	PropRequiredAcks           = "required_acks"
	PropMaxAttempts            = "max_attempts"
	PropCompression            = "compression"
	PropWriteTimeout           = "write_timeout"
	PropAllowAutoTopicCreation = "allow_auto_topic_creation"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher publishes through a kafka-go Writer. The topic is set per
// message so one writer serves both destinations.
type KafkaPublisher struct {
	writer messageWriter
}

// NewKafkaPublisher wraps an existing writer. The writer must not have its
// Topic field set.
func NewKafkaPublisher(writer *kafka.Writer) *KafkaPublisher {
	return &KafkaPublisher{writer: writer}
}

func (p *KafkaPublisher) Publish(ctx context.Context, topic string, key, value []byte) error {
	return p.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   key,
		Value: value,
	})
}

// Close flushes and closes the writer
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NewKafkaProducerFactory returns a factory building kafka publishers for
// the given brokers. Nothing outside the returned writer is configured.
func NewKafkaProducerFactory(brokers []string, clientID string, logger Logger) ProducerFactory {
	if logger == nil {
		logger = defLogger{}
	}
	return func(properties map[string]any) (Publisher, error) {
		if len(brokers) == 0 {
			return nil, goerrors.New("at least one kafka broker is required", goerrors.CategoryValidation)
		}

		writer := &kafka.Writer{
			Addr:        kafka.TCP(brokers...),
			Balancer:    &kafka.Hash{},
			MaxAttempts: 1,
		}
		if clientID != "" {
			writer.Transport = &kafka.Transport{ClientID: clientID}
		}

		if err := applyWriterProperties(writer, properties, logger); err != nil {
			return nil, err
		}

		return NewKafkaPublisher(writer), nil
	}
}

func applyWriterProperties(w *kafka.Writer, properties map[string]any, logger Logger) error {
	keys := make([]string, 0, len(properties))
	for k := range properties {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		raw := properties[key]
		var err error

		switch strings.ToLower(key) {
		case PropBatchTimeout:
			w.BatchTimeout, err = cast.ToDurationE(raw)
		case PropWriteTimeout:
			w.WriteTimeout, err = cast.ToDurationE(raw)
		case PropBatchSize:
			w.BatchSize, err = cast.ToIntE(raw)
		case PropMaxAttempts:
			w.MaxAttempts, err = cast.ToIntE(raw)
		case PropAllowAutoTopicCreation:
			w.AllowAutoTopicCreation, err = cast.ToBoolE(raw)
		case PropRequiredAcks:
			var acks kafka.RequiredAcks
			err = acks.UnmarshalText([]byte(cast.ToString(raw)))
			w.RequiredAcks = acks
		case PropCompression:
			var codec kafka.Compression
			err = codec.UnmarshalText([]byte(cast.ToString(raw)))
			w.Compression = codec
		default:
			logger.Debug("kafka producer ignores property %q", key)
			continue
		}

		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid kafka producer property").
				WithMetadata(map[string]any{"property": key, "value": raw})
		}
	}

	if w.MaxAttempts <= 0 {
		w.MaxAttempts = 1
	}
	if w.BatchTimeout <= 0 {
		// a single event should not wait for a batch to fill
		w.BatchTimeout = 10 * time.Millisecond
	}
	return nil
}
