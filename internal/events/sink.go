package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/HaulBid/BidBox/internal/broker/messages"
	"github.com/HaulBid/BidBox/internal/integrations/marketplace"
	"github.com/HaulBid/BidBox/internal/metrics"
	"github.com/HaulBid/BidBox/internal/models"
	"github.com/jonboulle/clockwork"
)

// Publisher is the broker producer slice the sink needs.
type Publisher interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}

// Sink fans engine lifecycle events out to metrics and the marketplace
// activity topic. Publishing is fire-and-forget so the fetch loop is never
// blocked on the broker.
type Sink struct {
	publisher Publisher
	topic     string
	metrics   *metrics.Metrics
	clock     clockwork.Clock
}

func NewSink(publisher Publisher, topic string, m *metrics.Metrics, clock clockwork.Clock) *Sink {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Sink{publisher: publisher, topic: topic, metrics: m, clock: clock}
}

func (s *Sink) SnapshotApplied(key string, seq uint64) {
	if s.metrics != nil {
		s.metrics.SnapshotsApplied.WithLabelValues(key).Inc()
	}
	s.publish(key, messages.SnapshotApplied{
		ResourceKey: key,
		FetchSeq:    seq,
		AppliedAt:   s.clock.Now().UTC(),
	})
}

func (s *Sink) FetchFailed(key string, err error) {
	if s.metrics != nil {
		s.metrics.FetchErrors.WithLabelValues(key).Inc()
	}
}

func (s *Sink) StaleDiscarded(key string, seq uint64) {
	if s.metrics != nil {
		s.metrics.StaleDiscarded.WithLabelValues(key).Inc()
	}
	s.publish(key, messages.StaleSnapshotDiscarded{
		ResourceKey: key,
		FetchSeq:    seq,
		DiscardedAt: s.clock.Now().UTC(),
	})
}

func (s *Sink) BidPlaced(receipt models.BidReceipt, req marketplace.BidRequest) {
	if s.metrics != nil {
		s.metrics.BidsPlaced.Inc()
	}
	s.publish(receipt.RouteID, messages.BidPlaced{
		BidID:     receipt.BidID,
		RouteID:   receipt.RouteID,
		DriverID:  req.DriverID,
		Amount:    req.Amount,
		Reference: receipt.Reference,
		PlacedAt:  receipt.SubmittedAt,
	})
}

func (s *Sink) publish(key string, msg any) {
	if s.publisher == nil || s.topic == "" {
		return
	}
	b, err := json.Marshal(msg)
	if err != nil {
		slog.Error("marshal engine event", "error", err.Error())
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.publisher.Publish(ctx, s.topic, []byte(key), b); err != nil {
			slog.Error("publish engine event", "topic", s.topic, "error", err.Error())
		}
	}()
}
