package audit

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"
	"github.com/twmb/franz-go/pkg/kgo"

	"vn.io.arda/useradmin/internal/application"
)

// Publisher implements application.AuditSink by producing audit records to
// a Kafka topic. The audit trail is a non-authoritative side channel: a
// failed produce is logged and dropped, never surfaced to the action.
type Publisher struct {
	client *kgo.Client
	topic  string
}

// NewPublisher creates a Publisher for the given brokers and topic.
func NewPublisher(brokers []string, topic string) (*Publisher, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
	)
	if err != nil {
		return nil, err
	}
	return &Publisher{client: client, topic: topic}, nil
}

// Record publishes one audit entry asynchronously.
func (p *Publisher) Record(ctx context.Context, e application.AuditEntry) {
	b, err := json.Marshal(e)
	if err != nil {
		log.Warn().Err(err).Str("action", e.Action).Msg("audit entry marshal failed")
		return
	}

	p.client.Produce(ctx, &kgo.Record{
		Topic: p.topic,
		Key:   []byte(e.Actor),
		Value: b,
	}, func(_ *kgo.Record, err error) {
		if err != nil {
			log.Warn().Err(err).Str("action", e.Action).Str("actor", e.Actor).
				Msg("audit publish failed")
		}
	})
}

// Close flushes and closes the underlying Kafka client.
func (p *Publisher) Close() {
	p.client.Close()
}
