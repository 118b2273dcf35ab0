package setlist

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"setlist-service/internal/logger"
)

// Notifier delivers committed aggregates to every subscriber of a setlist.
type Notifier interface {
	Publish(ctx context.Context, sl *SetList) error
	Subscribe(ctx context.Context, setlistID string, onChange func(*SetList)) (unsubscribe func(), err error)
}

// ChangeEvent is the message published after every successful write.
type ChangeEvent struct {
	Type    string   `json:"type"`
	Payload *SetList `json:"payload"`
}

const eventSetlistUpdated = "setlist.updated"

func channelFor(setlistID string) string { return "setlist:" + setlistID }

// RedisNotifier fans changes out through Redis pub/sub, one channel per
// setlist, so every service instance sees every write.
type RedisNotifier struct {
	rdb *redis.Client
	log *logger.Logger
}

func NewRedisNotifier(rdb *redis.Client, log *logger.Logger) *RedisNotifier {
	return &RedisNotifier{rdb: rdb, log: log.With("component", "RedisNotifier")}
}

func (n *RedisNotifier) Publish(ctx context.Context, sl *SetList) error {
	data, err := json.Marshal(ChangeEvent{Type: eventSetlistUpdated, Payload: sl})
	if err != nil {
		return err
	}
	return n.rdb.Publish(ctx, channelFor(sl.ID), data).Err()
}

func (n *RedisNotifier) Subscribe(ctx context.Context, setlistID string, onChange func(*SetList)) (func(), error) {
	if onChange == nil {
		return nil, fmt.Errorf("onChange callback required")
	}
	ctx, cancel := context.WithCancel(ctx)
	sub := n.rdb.Subscribe(ctx, channelFor(setlistID))

	// make sure the subscription is live before returning
	if _, err := sub.Receive(ctx); err != nil {
		cancel()
		_ = sub.Close()
		return nil, fmt.Errorf("redis subscribe: %w", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-ch:
				if !ok || m == nil {
					return
				}
				var evt ChangeEvent
				if err := json.Unmarshal([]byte(m.Payload), &evt); err != nil || evt.Payload == nil {
					n.log.Warn("bad setlist change payload", "setlistId", setlistID, "error", err)
					continue
				}
				onChange(evt.Payload)
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			_ = sub.Close()
			<-done
		})
	}, nil
}

// LocalNotifier delivers changes to subscribers in the same process. It is
// used when the service runs without Redis.
type LocalNotifier struct {
	mu   sync.Mutex
	next int
	subs map[string]map[int]func(*SetList)
}

func NewLocalNotifier() *LocalNotifier {
	return &LocalNotifier{subs: make(map[string]map[int]func(*SetList))}
}

func (n *LocalNotifier) Publish(ctx context.Context, sl *SetList) error {
	n.mu.Lock()
	fns := make([]func(*SetList), 0, len(n.subs[sl.ID]))
	for _, fn := range n.subs[sl.ID] {
		fns = append(fns, fn)
	}
	n.mu.Unlock()
	for _, fn := range fns {
		c, err := cloneSetList(sl)
		if err != nil {
			return err
		}
		fn(c)
	}
	return nil
}

func (n *LocalNotifier) Subscribe(ctx context.Context, setlistID string, onChange func(*SetList)) (func(), error) {
	if onChange == nil {
		return nil, fmt.Errorf("onChange callback required")
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	id := n.next
	n.next++
	if n.subs[setlistID] == nil {
		n.subs[setlistID] = make(map[int]func(*SetList))
	}
	n.subs[setlistID][id] = onChange
	return func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		delete(n.subs[setlistID], id)
	}, nil
}
