package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/segmentio/kafka-go"
)

// Notice is a team-scoped event published by a service without sockets and
// relayed by every gateway into the team room.
type Notice struct {
	TeamID       string          `json:"teamId" validate:"required"`
	Event        string          `json:"event" validate:"required"`
	Notification json.RawMessage `json:"notification" validate:"required"`
	PublishedAt  time.Time       `json:"publishedAt"`
}

var (
	ErrInvalidNotice = errors.New("invalid notice")

	validate = validator.New(validator.WithRequiredStructEnabled())
)

func NewNotice(teamID, event string, payload any) (Notice, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Notice{}, fmt.Errorf("%w: %v", ErrInvalidNotice, err)
	}
	n := Notice{TeamID: teamID, Event: event, Notification: data, PublishedAt: time.Now().UTC()}
	if err := validate.Struct(n); err != nil {
		return Notice{}, fmt.Errorf("%w: %v", ErrInvalidNotice, err)
	}
	return n, nil
}

// Decode parses and validates one Kafka record value.
func Decode(value []byte) (Notice, error) {
	var n Notice
	if err := json.Unmarshal(value, &n); err != nil {
		return Notice{}, fmt.Errorf("%w: %v", ErrInvalidNotice, err)
	}
	if err := validate.Struct(n); err != nil {
		return Notice{}, fmt.Errorf("%w: %v", ErrInvalidNotice, err)
	}
	return n, nil
}

// Publisher writes notices keyed by team id, so one team's notices stay ordered
// within a partition.
type Publisher struct {
	writer *kafka.Writer
	log    *slog.Logger
}

func NewPublisher(brokers []string, topic string, log *slog.Logger) *Publisher {
	return &Publisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			AllowAutoTopicCreation: true,
		},
		log: log,
	}
}

func (p *Publisher) Publish(ctx context.Context, notices ...Notice) error {
	if len(notices) == 0 {
		return nil
	}
	records := make([]kafka.Message, 0, len(notices))
	for _, n := range notices {
		value, err := json.Marshal(n)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidNotice, err)
		}
		records = append(records, kafka.Message{Key: []byte(n.TeamID), Value: value, Time: n.PublishedAt})
	}
	if err := p.writer.WriteMessages(ctx, records...); err != nil {
		return fmt.Errorf("publish notices: %w", err)
	}
	p.log.Debug("Notices published", "count", len(records), "topic", p.writer.Topic)
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// Consumer reads notices for one gateway. Each gateway uses its own group so
// that every instance sees every notice.
type Consumer struct {
	reader     *kafka.Reader
	log        *slog.Logger
	retryDelay time.Duration
}

func NewConsumer(brokers []string, topic, groupID string, log *slog.Logger) *Consumer {
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:     brokers,
			Topic:       topic,
			GroupID:     groupID,
			StartOffset: kafka.LastOffset,
			MinBytes:    1,
			MaxBytes:    10e6,
			MaxWait:     500 * time.Millisecond,
		}),
		log:        log,
		retryDelay: time.Second,
	}
}

// Run delivers notices until ctx is cancelled. Undecodable records are skipped.
func (c *Consumer) Run(ctx context.Context, deliver func(Notice)) error {
	for {
		m, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.log.Warn("Notice read failed, retrying", "error", err, "delay", c.retryDelay)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(c.retryDelay):
			}
			continue
		}
		n, err := Decode(m.Value)
		if err != nil {
			c.log.Warn("Skipping notice", "offset", m.Offset, "partition", m.Partition, "error", err)
			continue
		}
		deliver(n)
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
