package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"cloud.google.com/go/pubsub"
)

// wireEvent is the publish-side counterpart of source.wireEvent: the same
// JSON shape, so a PubSub sink on one deployment can feed a PubSub source on
// another without a translation layer.
type wireEvent struct {
	Subject   string `json:"subject"`
	Predicate string `json:"predicate"`
	Object    string `json:"object"`
	TenantID  string `json:"tenant_id"`
}

// PubSub is an EMIT sink publishing to a Google Cloud Pub/Sub topic.
//
// Grounded on the teacher's internal/events/pubsub_bus.go publishToPubSub:
// topic creation if missing, tenant-scoped OrderingKey, and a
// non-blocking-publish-result-checked-in-a-goroutine pattern so a slow
// broker never stalls EMIT.
type PubSub struct {
	client *pubsub.Client
	topic  *pubsub.Topic
	logger *slog.Logger
}

// NewPubSubSink opens (or creates) a topic and returns a Sink publishing to
// it.
func NewPubSubSink(ctx context.Context, projectID, topicID string) (*PubSub, error) {
	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("pubsub sink: new client: %w", err)
	}

	topic := client.Topic(topicID)
	exists, err := topic.Exists(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("pubsub sink: topic exists: %w", err)
	}
	if !exists {
		topic, err = client.CreateTopic(ctx, topicID)
		if err != nil {
			client.Close()
			return nil, fmt.Errorf("pubsub sink: create topic: %w", err)
		}
	}
	topic.EnableMessageOrdering = true

	return &PubSub{
		client: client,
		topic:  topic,
		logger: slog.Default().With("component", "sink.pubsub"),
	}, nil
}

func (s *PubSub) Write(ctx context.Context, rec Record) error {
	for _, t := range rec.Triples {
		we := wireEvent{
			Subject:   fmt.Sprintf("fp://%d", t.S),
			Predicate: fmt.Sprintf("fp://%d", t.P),
			Object:    fmt.Sprintf("fp://%d", t.O),
			TenantID:  rec.TenantID,
		}
		payload, err := json.Marshal(we)
		if err != nil {
			return fmt.Errorf("pubsub sink: marshal: %w", err)
		}
		msg := &pubsub.Message{
			Data:        payload,
			Attributes:  map[string]string{"tenant_id": rec.TenantID, "ce-time": time.Now().UTC().Format(time.RFC3339Nano)},
			OrderingKey: rec.TenantID,
		}
		result := s.topic.Publish(ctx, msg)
		go func() {
			if _, err := result.Get(context.Background()); err != nil {
				s.logger.Error("pubsub publish failed", "error", err)
			}
		}()
	}
	return nil
}

func (s *PubSub) Close() error {
	s.topic.Stop()
	return s.client.Close()
}
