package messaging

import (
	"context"
	"log/slog"
	"sync"

	"crosspost/internal/shared/events"
)

const subscriberBuffer = 128

// Kafka is the event bus used between the queue and the posting registry.
// Delivery is in-process; members of one consumer group share a topic's events
// round robin while distinct groups each receive every event.
type Kafka struct {
	mu      sync.RWMutex
	brokers []string
	groups  map[string]map[string]*groupState
	logger  *slog.Logger
}

type groupState struct {
	members []chan events.Envelope
	next    int
}

func NewKafka(brokers []string, logger *slog.Logger) (*Kafka, error) {
	if logger == nil {
		logger = slog.Default()
	}
	return &Kafka{
		brokers: append([]string(nil), brokers...),
		groups:  make(map[string]map[string]*groupState),
		logger:  logger,
	}, nil
}

func (k *Kafka) Brokers() []string {
	return append([]string(nil), k.brokers...)
}

func (k *Kafka) Publish(ctx context.Context, topic string, event events.Envelope) error {
	targets := k.pickMembers(topic)

	for _, target := range targets {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case target <- event:
		default:
			k.logger.Warn("dropping event for slow subscriber",
				"event", "kafka_publish_drop",
				"module", "internal/platform/messaging",
				"layer", "platform",
				"topic", topic,
				"event_id", event.EventID,
			)
		}
	}

	k.logger.Debug("event published",
		"event", "kafka_publish",
		"module", "internal/platform/messaging",
		"layer", "platform",
		"topic", topic,
		"event_id", event.EventID,
		"event_type", event.EventType,
		"groups", len(targets),
	)
	return nil
}

// Subscribe registers handler as a member of consumerGroup until ctx is done.
func (k *Kafka) Subscribe(
	ctx context.Context,
	topic string,
	consumerGroup string,
	handler func(context.Context, events.Envelope) error,
) error {
	ch := make(chan events.Envelope, subscriberBuffer)
	k.addMember(topic, consumerGroup, ch)

	go func() {
		for {
			select {
			case <-ctx.Done():
				k.removeMember(topic, consumerGroup, ch)
				return
			case event := <-ch:
				if err := handler(ctx, event); err != nil {
					k.logger.Error("consumer handler failed",
						"event", "kafka_consume_failed",
						"module", "internal/platform/messaging",
						"layer", "platform",
						"topic", topic,
						"consumer_group", consumerGroup,
						"event_id", event.EventID,
						"event_type", event.EventType,
						"error", err.Error(),
					)
				}
			}
		}
	}()
	return nil
}

func (k *Kafka) pickMembers(topic string) []chan events.Envelope {
	k.mu.Lock()
	defer k.mu.Unlock()

	groups := k.groups[topic]
	targets := make([]chan events.Envelope, 0, len(groups))
	for _, group := range groups {
		if len(group.members) == 0 {
			continue
		}
		targets = append(targets, group.members[group.next%len(group.members)])
		group.next++
	}
	return targets
}

func (k *Kafka) addMember(topic string, consumerGroup string, ch chan events.Envelope) {
	k.mu.Lock()
	defer k.mu.Unlock()

	groups, ok := k.groups[topic]
	if !ok {
		groups = make(map[string]*groupState)
		k.groups[topic] = groups
	}
	group, ok := groups[consumerGroup]
	if !ok {
		group = &groupState{}
		groups[consumerGroup] = group
	}
	group.members = append(group.members, ch)
}

func (k *Kafka) removeMember(topic string, consumerGroup string, target chan events.Envelope) {
	k.mu.Lock()
	defer k.mu.Unlock()

	group := k.groups[topic][consumerGroup]
	if group == nil {
		return
	}
	filtered := make([]chan events.Envelope, 0, len(group.members))
	for _, item := range group.members {
		if item != target {
			filtered = append(filtered, item)
		}
	}
	group.members = filtered
}
