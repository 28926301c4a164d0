package events

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/HaulBid/BidBox/internal/broker/messages"
	"github.com/HaulBid/BidBox/internal/integrations/marketplace"
	"github.com/HaulBid/BidBox/internal/metrics"
	"github.com/HaulBid/BidBox/internal/models"
	"github.com/stretchr/testify/require"
)

type capturingPublisher struct {
	mu     sync.Mutex
	topics []string
	keys   []string
	values [][]byte
	done   chan struct{}
}

func newCapturingPublisher(expected int) *capturingPublisher {
	return &capturingPublisher{done: make(chan struct{}, expected)}
}

func (p *capturingPublisher) Publish(ctx context.Context, topic string, key, value []byte) error {
	p.mu.Lock()
	p.topics = append(p.topics, topic)
	p.keys = append(p.keys, string(key))
	p.values = append(p.values, value)
	p.mu.Unlock()
	p.done <- struct{}{}
	return nil
}

func (p *capturingPublisher) wait(t *testing.T) {
	t.Helper()
	select {
	case <-p.done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish did not happen")
	}
}

func TestSink_SnapshotApplied_Publishes(t *testing.T) {
	pub := newCapturingPublisher(1)
	s := NewSink(pub, "marketplace.events", metrics.New(), nil)

	s.SnapshotApplied("routes:d1", 7)
	pub.wait(t)

	pub.mu.Lock()
	defer pub.mu.Unlock()
	require.Equal(t, []string{"marketplace.events"}, pub.topics)
	require.Equal(t, []string{"routes:d1"}, pub.keys)

	var msg messages.SnapshotApplied
	require.NoError(t, json.Unmarshal(pub.values[0], &msg))
	require.Equal(t, uint64(7), msg.FetchSeq)
}

func TestSink_BidPlaced_Publishes(t *testing.T) {
	pub := newCapturingPublisher(1)
	s := NewSink(pub, "marketplace.events", nil, nil)

	s.BidPlaced(
		models.BidReceipt{BidID: "b1", RouteID: "r1", Reference: "ref-1", SubmittedAt: time.Now().UTC()},
		marketplace.BidRequest{RouteID: "r1", DriverID: "d1", Amount: 50},
	)
	pub.wait(t)

	pub.mu.Lock()
	defer pub.mu.Unlock()
	var msg messages.BidPlaced
	require.NoError(t, json.Unmarshal(pub.values[0], &msg))
	require.Equal(t, "d1", msg.DriverID)
	require.Equal(t, 50.0, msg.Amount)
	require.Equal(t, "ref-1", msg.Reference)
}

func TestSink_NoPublisherIsNoop(t *testing.T) {
	s := NewSink(nil, "", metrics.New(), nil)

	// Must not panic or block.
	s.SnapshotApplied("routes:d1", 1)
	s.FetchFailed("routes:d1", context.DeadlineExceeded)
	s.StaleDiscarded("routes:d1", 2)
}
