package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
)

// OddsUpdate is one odds change on the Kafka feed, emitted whenever a merge
// cycle creates or updates a bookmaker entry on a canonical event.
type OddsUpdate struct {
	EventID   int64     `json:"event_id"`
	Bookmaker string    `json:"bookmaker"`
	HomeTeam  string    `json:"home_team"`
	AwayTeam  string    `json:"away_team"`
	Market    string    `json:"market"`
	Home      float64   `json:"home"`
	Draw      float64   `json:"draw"`
	Away      float64   `json:"away"`
	UpdatedAt time.Time `json:"updated_at"`
}

// KafkaFeed writes odds updates to a Kafka topic. Messages are keyed by
// event id so one event's updates stay ordered within a partition.
type KafkaFeed struct {
	writer *kafka.Writer
}

// NewKafkaFeed creates the topic if missing and returns the feed writer.
func NewKafkaFeed(ctx context.Context, brokers []string, topic string) (*KafkaFeed, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("no brokers configured")
	}
	if err := ensureTopic(ctx, brokers, topic); err != nil {
		return nil, err
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
		Async:        false,
		BatchTimeout: 100 * time.Millisecond,
	}
	return &KafkaFeed{writer: writer}, nil
}

// PublishUpdates writes the batch in one call. Nil feed is a no-op so the
// engine can run without Kafka configured.
func (f *KafkaFeed) PublishUpdates(ctx context.Context, updates []OddsUpdate) error {
	if f == nil || len(updates) == 0 {
		return nil
	}
	messages := make([]kafka.Message, 0, len(updates))
	for _, u := range updates {
		payload, err := json.Marshal(u)
		if err != nil {
			return fmt.Errorf("marshal odds update: %w", err)
		}
		messages = append(messages, kafka.Message{
			Key:   []byte(fmt.Sprintf("%d", u.EventID)),
			Value: payload,
		})
	}
	if err := f.writer.WriteMessages(ctx, messages...); err != nil {
		return fmt.Errorf("write odds updates: %w", err)
	}
	return nil
}

func (f *KafkaFeed) Close() error {
	if f == nil {
		return nil
	}
	return f.writer.Close()
}

func ensureTopic(ctx context.Context, brokers []string, topic string) error {
	conn, err := kafka.DialContext(ctx, "tcp", brokers[0])
	if err != nil {
		return fmt.Errorf("dial broker %s: %w", brokers[0], err)
	}
	defer conn.Close()

	controller, err := conn.Controller()
	if err != nil {
		return fmt.Errorf("get controller: %w", err)
	}

	ctrlConn, err := kafka.DialContext(ctx, "tcp", net.JoinHostPort(controller.Host, fmt.Sprintf("%d", controller.Port)))
	if err != nil {
		return fmt.Errorf("dial controller: %w", err)
	}
	defer ctrlConn.Close()

	err = ctrlConn.CreateTopics(kafka.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	})
	if err != nil && !strings.Contains(err.Error(), "Topic with this name already exists") {
		return fmt.Errorf("create topic: %w", err)
	}
	return nil
}
