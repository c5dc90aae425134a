package source

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"cloud.google.com/go/pubsub"

	"github.com/knhk/core/internal/triple"
)

// wireEvent is the JSON payload a PubSub publisher is expected to send —
// the publish-side counterpart of the sink package's identical type.
type wireEvent struct {
	Subject   string `json:"subject"`
	Predicate string `json:"predicate"`
	Object    string `json:"object"`
	TenantID  string `json:"tenant_id"`
}

// PubSub is an INGEST source backed by a Google Cloud Pub/Sub subscription
// (SPEC_FULL.md's domain-stack wiring for `cloud.google.com/go/pubsub`).
//
// Grounded on the teacher's internal/events/pubsub_bus.go client/topic
// setup, inverted from publish to subscribe: messages are pulled via
// Subscription.Receive on a background goroutine and buffered on a channel
// so Next can present the same blocking pull-iterator shape as every other
// Source, rather than exposing Pub/Sub's push-callback API directly.
type PubSub struct {
	client *pubsub.Client
	sub    *pubsub.Subscription
	logger *slog.Logger

	batches chan Batch
	errs    chan error
	cancel  context.CancelFunc
}

// NewPubSubSource opens a subscription and starts pulling messages in the
// background.
func NewPubSubSource(ctx context.Context, projectID, subscriptionID string) (*PubSub, error) {
	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("pubsub source: new client: %w", err)
	}
	sub := client.Subscription(subscriptionID)

	recvCtx, cancel := context.WithCancel(ctx)
	s := &PubSub{
		client:  client,
		sub:     sub,
		logger:  slog.Default().With("component", "source.pubsub"),
		batches: make(chan Batch, 256),
		errs:    make(chan error, 1),
		cancel:  cancel,
	}

	go s.run(recvCtx)
	return s, nil
}

func (s *PubSub) run(ctx context.Context) {
	err := s.sub.Receive(ctx, func(_ context.Context, msg *pubsub.Message) {
		var we wireEvent
		if err := json.Unmarshal(msg.Data, &we); err != nil {
			s.logger.Warn("dropping malformed pubsub message", "error", err)
			msg.Nack()
			return
		}
		batch := Batch{
			Events:   []triple.RawEvent{{Subject: we.Subject, Predicate: we.Predicate, Object: we.Object, TenantID: we.TenantID}},
			TenantID: we.TenantID,
		}
		select {
		case s.batches <- batch:
			msg.Ack()
		case <-ctx.Done():
			msg.Nack()
		}
	})
	if err != nil {
		select {
		case s.errs <- err:
		default:
		}
	}
	close(s.batches)
}

func (s *PubSub) Next(ctx context.Context) (Batch, bool, error) {
	select {
	case b, ok := <-s.batches:
		return b, ok, nil
	case err := <-s.errs:
		return Batch{}, false, fmt.Errorf("pubsub source: receive: %w", err)
	case <-ctx.Done():
		return Batch{}, false, ctx.Err()
	}
}

func (s *PubSub) Close() error {
	s.cancel()
	return s.client.Close()
}
