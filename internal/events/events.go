// Package events publishes analysis pipeline state changes on an in-process
// pub/sub bus so reporting collaborators can observe run progress without
// polling.
package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"minecomply/internal/domain"
)

// TopicAnalysisState carries one message per pipeline state transition.
const TopicAnalysisState = "analysis.state"

// StateChange is the payload published on every transition.
type StateChange struct {
	AnalysisID string          `json:"analysis_id"`
	DocumentID string          `json:"document_id"`
	State      domain.RunState `json:"state"`
	Error      string          `json:"error,omitempty"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// Bus wraps a watermill publisher for pipeline events.
type Bus struct {
	pub message.Publisher
}

// NewBus wraps an existing publisher.
func NewBus(pub message.Publisher) *Bus {
	return &Bus{pub: pub}
}

// NewInProcessBus creates a gochannel-backed bus and returns the subscriber
// side for consumers wired in the same process.
func NewInProcessBus() (*Bus, message.Subscriber) {
	ch := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 64}, watermill.NopLogger{})
	return &Bus{pub: ch}, ch
}

// PublishStateChange emits one state transition event. Publish failures are
// returned to the caller; run progress never blocks on subscribers.
func (b *Bus) PublishStateChange(sc StateChange) error {
	if b == nil || b.pub == nil {
		return nil
	}
	if sc.OccurredAt.IsZero() {
		sc.OccurredAt = time.Now().UTC()
	}
	payload, err := json.Marshal(sc)
	if err != nil {
		return fmt.Errorf("marshal state change: %w", err)
	}
	return b.pub.Publish(TopicAnalysisState, message.NewMessage(watermill.NewUUID(), payload))
}

// Close shuts the underlying publisher down.
func (b *Bus) Close() error {
	if b == nil || b.pub == nil {
		return nil
	}
	return b.pub.Close()
}
