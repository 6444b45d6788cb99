package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/wonny/niftron/internal/contracts"
	"github.com/wonny/niftron/pkg/config"
	"github.com/wonny/niftron/pkg/logger"
)

// EventRecommendationsPublished is emitted after a ranking run is stored
const EventRecommendationsPublished = "RECOMMENDATIONS_PUBLISHED"

// RecommendationEvent is the message body published per ranking run
type RecommendationEvent struct {
	EventType string                     `json:"event_type"`
	Date      string                     `json:"date"`
	Heuristic []contracts.Recommendation `json:"heuristic"`
	Learned   []contracts.Recommendation `json:"learned"`
	Timestamp time.Time                  `json:"timestamp"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes recommendation events to Kafka
// ⭐ SSOT: 추천 이벤트 발행은 여기서만
type Producer struct {
	writer messageWriter
	topic  string
	logger *logger.Logger
}

// NewProducer creates a new Kafka producer
func NewProducer(brokers []string, topic string, log *logger.Logger) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
	}

	return &Producer{
		writer: writer,
		topic:  topic,
		logger: log.WithField("module", "events"),
	}
}

// New returns a Kafka producer when enabled, otherwise a no-op publisher
func New(cfg *config.Config, log *logger.Logger) Publisher {
	if !cfg.Kafka.Enabled {
		return NoopPublisher{}
	}
	return NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic, log)
}

// Publisher is a recommendation publisher that owns a connection
type Publisher interface {
	contracts.RecommendationPublisher
	Close() error
}

// PublishRecommendations publishes one event keyed by date
func (p *Producer) PublishRecommendations(ctx context.Context, set *contracts.RecommendationSet) error {
	date := contracts.DateKey(set.Date)
	event := RecommendationEvent{
		EventType: EventRecommendationsPublished,
		Date:      date,
		Heuristic: set.Heuristic,
		Learned:   set.Learned,
		Timestamp: time.Now().UTC(),
	}

	if err := p.publish(ctx, date, event); err != nil {
		return err
	}

	p.logger.WithFields(map[string]interface{}{
		"topic": p.topic,
		"date":  date,
		"count": set.Count(),
	}).Info("Recommendations published")

	return nil
}

func (p *Producer) publish(ctx context.Context, key string, event RecommendationEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: data,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write message to kafka: %w", err)
	}

	return nil
}

// Close closes the Kafka producer
func (p *Producer) Close() error {
	return p.writer.Close()
}

// NoopPublisher drops every event
type NoopPublisher struct{}

// PublishRecommendations does nothing
func (NoopPublisher) PublishRecommendations(context.Context, *contracts.RecommendationSet) error {
	return nil
}

// Close does nothing
func (NoopPublisher) Close() error { return nil }
