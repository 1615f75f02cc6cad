package transport

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"github.com/redis/go-redis/v9"
)

// RedisTransport fans events out over Redis Pub/Sub so hubs on different
// instances see the same session stream. Redis Pub/Sub already has the
// required semantics: fire-and-forget, per-publisher FIFO, nothing retained
// for late subscribers.
type RedisTransport struct {
	client *redis.Client
}

// NewRedisTransport wraps an existing Redis client
func NewRedisTransport(client *redis.Client) *RedisTransport {
	return &RedisTransport{client: client}
}

type redisSubscription struct {
	pubsub  *redis.PubSub
	cancel  context.CancelFunc
	stopped chan struct{}
	closeMu sync.Once
}

// Subscribe opens one Pub/Sub connection for the session channel
func (t *RedisTransport) Subscribe(ctx context.Context, sessionID string, h Handler) (Subscription, error) {
	key := ChannelKey(sessionID)

	subCtx, cancel := context.WithCancel(context.Background())
	pubsub := t.client.Subscribe(subCtx, key)

	// Wait for the subscription to be confirmed so publishes from this
	// process after Subscribe returns are actually observable.
	if _, err := pubsub.Receive(ctx); err != nil {
		cancel()
		pubsub.Close()
		return nil, err
	}

	sub := &redisSubscription{pubsub: pubsub, cancel: cancel, stopped: make(chan struct{})}

	go func() {
		defer close(sub.stopped)
		ch := pubsub.Channel()
		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var ev Event
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					log.Printf("[RedisTransport] Dropping undecodable message on %s: %v", key, err)
					continue
				}
				select {
				case <-subCtx.Done():
					return
				default:
				}
				h(ev)
			}
		}
	}()

	return sub, nil
}

// Publish sends an event to the session channel; receipt is not acknowledged
func (t *RedisTransport) Publish(ctx context.Context, sessionID string, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if err := t.client.Publish(ctx, ChannelKey(sessionID), data).Err(); err != nil {
		log.Printf("[RedisTransport] Publish failed on %s: %v", ChannelKey(sessionID), err)
		return err
	}
	return nil
}

// Close tears down the Pub/Sub connection and waits for any in-flight
// handler call to finish; idempotent
func (s *redisSubscription) Close() error {
	var err error
	s.closeMu.Do(func() {
		s.cancel()
		err = s.pubsub.Close()
	})
	<-s.stopped
	return err
}
