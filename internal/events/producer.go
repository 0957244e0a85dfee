package events

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/vedants521/CancelFillMD/internal/shared/config"

	"github.com/IBM/sarama"
)

// Publisher publishes slot lifecycle events
type Publisher interface {
	Publish(ctx context.Context, event *SlotEvent) error
	Close() error
}

// KafkaPublisher publishes slot events to Kafka
type KafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
}

// NewKafkaPublisher creates a Kafka publisher for the slot event stream
func NewKafkaPublisher(cfg config.KafkaConfig) (*KafkaPublisher, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Producer.Return.Successes = true
	saramaConfig.Producer.Return.Errors = true
	saramaConfig.Producer.RequiredAcks = sarama.WaitForAll
	saramaConfig.Producer.Compression = sarama.CompressionSnappy
	saramaConfig.Producer.Retry.Max = 3
	saramaConfig.Producer.Timeout = 10 * time.Second
	saramaConfig.Producer.Idempotent = true
	saramaConfig.Net.MaxOpenRequests = 1

	// Hash partitioner keeps one slot's events on one partition
	saramaConfig.Producer.Partitioner = sarama.NewHashPartitioner

	producer, err := sarama.NewSyncProducer(cfg.Brokers, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}

	log.Printf("Kafka slot event publisher created, topic %s", cfg.Topic)
	return &KafkaPublisher{producer: producer, topic: cfg.Topic}, nil
}

func (p *KafkaPublisher) Publish(ctx context.Context, event *SlotEvent) error {
	messageBytes, err := event.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to marshal slot event: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic:     p.topic,
		Key:       sarama.StringEncoder(event.PartitionKey()),
		Value:     sarama.ByteEncoder(messageBytes),
		Headers:   p.createHeaders(event),
		Timestamp: event.OccurredAt,
	}

	partition, offset, err := p.producer.SendMessage(message)
	if err != nil {
		return fmt.Errorf("failed to publish slot event: %w", err)
	}

	log.Printf("Slot event published - Topic: %s, Partition: %d, Offset: %d, Type: %s, Slot: %s",
		p.topic, partition, offset, event.Type, event.SlotID)
	return nil
}

func (p *KafkaPublisher) createHeaders(event *SlotEvent) []sarama.RecordHeader {
	headers := []sarama.RecordHeader{
		{Key: []byte("event_id"), Value: []byte(event.ID.String())},
		{Key: []byte("event_type"), Value: []byte(event.Type)},
		{Key: []byte("slot_id"), Value: []byte(event.SlotID.String())},
		{Key: []byte("specialty"), Value: []byte(event.Specialty)},
		{Key: []byte("producer"), Value: []byte("cancelfillmd-engine")},
		{Key: []byte("occurred_at"), Value: []byte(event.OccurredAt.Format(time.RFC3339))},
	}

	if event.WaitlistEntryID != nil {
		headers = append(headers, sarama.RecordHeader{
			Key:   []byte("waitlist_entry_id"),
			Value: []byte(event.WaitlistEntryID.String()),
		})
	}

	return headers
}

func (p *KafkaPublisher) Close() error {
	if p.producer != nil {
		if err := p.producer.Close(); err != nil {
			return fmt.Errorf("failed to close Kafka producer: %w", err)
		}
	}
	return nil
}

// NoopPublisher drops events; used when Kafka is disabled
type NoopPublisher struct{}

func NewNoopPublisher() *NoopPublisher {
	return &NoopPublisher{}
}

func (p *NoopPublisher) Publish(ctx context.Context, event *SlotEvent) error {
	return nil
}

func (p *NoopPublisher) Close() error {
	return nil
}
