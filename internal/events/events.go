package events

import (
	"bptracker/config"
	"bptracker/internal/database"
	"bptracker/internal/logger"
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/valkey-io/valkey-go"
)

const (
	ChannelMeasurements = "measurements"

	MeasurementCreated = "measurement.created"
	MeasurementUpdated = "measurement.updated"
	MeasurementDeleted = "measurement.deleted"
)

type Event struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Channel   string         `json:"channel,omitempty"`
	Action    string         `json:"action,omitempty"`
	UserID    string         `json:"userId,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

type Handler func(Event)

// EventBus fans events out to subscribers. With a cache client events go
// through valkey pub/sub so every server instance sees them; without one
// they are delivered in process.
type EventBus struct {
	client   database.CacheClient
	prefix   string
	mu       sync.RWMutex
	handlers map[string][]Handler
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	log      logger.Logger
}

func New(client database.CacheClient, config config.Config) *EventBus {
	prefix := "bptracker"
	if config.Environment != "" {
		prefix += ":" + config.Environment
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &EventBus{
		client:   client,
		prefix:   prefix,
		handlers: make(map[string][]Handler),
		ctx:      ctx,
		cancel:   cancel,
		log:      logger.New("events"),
	}
}

func (b *EventBus) channelName(channel string) string {
	return b.prefix + ":" + channel
}

// Subscribe registers handler for channel. The first subscription to a
// channel starts its valkey receive loop.
func (b *EventBus) Subscribe(channel string, handler Handler) {
	b.mu.Lock()
	first := len(b.handlers[channel]) == 0
	b.handlers[channel] = append(b.handlers[channel], handler)
	b.mu.Unlock()

	if first && b.client != nil {
		b.listen(channel)
	}
}

func (b *EventBus) Publish(channel string, event Event) error {
	log := b.log.Function("Publish")

	if event.Channel == "" {
		event.Channel = channel
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	if b.client == nil {
		b.dispatch(channel, event)
		return nil
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return log.Err("failed to marshal event", err, "type", event.Type)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cmd := b.client.B().Publish().Channel(b.channelName(channel)).Message(valkey.BinaryString(payload)).Build()
	if err := b.client.Do(ctx, cmd).Error(); err != nil {
		return log.Err("failed to publish event", err, "channel", channel, "type", event.Type)
	}

	return nil
}

func (b *EventBus) listen(channel string) {
	log := b.log.Function("listen")

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		cmd := b.client.B().Subscribe().Channel(b.channelName(channel)).Build()
		err := b.client.Receive(b.ctx, cmd, func(msg valkey.PubSubMessage) {
			var event Event
			if err := json.Unmarshal([]byte(msg.Message), &event); err != nil {
				log.Er("failed to unmarshal event", err, "channel", channel)
				return
			}
			b.dispatch(channel, event)
		})
		if err != nil && b.ctx.Err() == nil {
			log.Er("event subscription ended", err, "channel", channel)
		}
	}()
}

func (b *EventBus) dispatch(channel string, event Event) {
	b.mu.RLock()
	handlers := append([]Handler(nil), b.handlers[channel]...)
	b.mu.RUnlock()

	for _, handler := range handlers {
		handler(event)
	}
}

func (b *EventBus) Close() error {
	b.cancel()
	b.wg.Wait()

	return nil
}
