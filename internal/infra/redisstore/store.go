// Package redisstore keeps points state in Redis. Each user's aggregate is
// one JSON value; the award journal is a capped list, newest at the head.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/kickoff-wellness/kickoff/internal/domain"
)

// MaxJournal caps how many events are kept per user.
const MaxJournal = 1000

// EventIDTTL is how long an appended event ID is remembered for replay
// suppression.
const EventIDTTL = 7 * 24 * time.Hour

// appendEvent claims the event ID marker and pushes only on a fresh claim.
// KEYS: marker, journal. ARGV: event JSON, cap, marker TTL seconds.
var appendEvent = redis.NewScript(`
if redis.call('SET', KEYS[1], '1', 'NX', 'EX', ARGV[3]) then
  redis.call('LPUSH', KEYS[2], ARGV[1])
  redis.call('LTRIM', KEYS[2], 0, tonumber(ARGV[2]) - 1)
  return 1
end
return 0
`)

var _ domain.Store = (*Store)(nil)

// Options selects the Redis server.
type Options struct {
	Addr     string
	Password string
	DB       int
	Prefix   string // key namespace, default "kickoff"
}

// Store is a domain.Store backed by a go-redis client.
type Store struct {
	client *redis.Client
	prefix string
}

// Open connects and pings the server.
func Open(ctx context.Context, opts Options) (*Store, error) {
	if opts.Addr == "" {
		return nil, errors.New("redis address is empty")
	}
	client := redis.NewClient(&redis.Options{Addr: opts.Addr, Password: opts.Password, DB: opts.DB})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return New(client, opts.Prefix), nil
}

// New wraps an existing client.
func New(client *redis.Client, prefix string) *Store {
	if prefix == "" {
		prefix = "kickoff"
	}
	return &Store{client: client, prefix: prefix}
}

func (s *Store) pointsKey(userKey string) string { return s.prefix + ":points:" + userKey }
func (s *Store) eventsKey(userKey string) string { return s.prefix + ":events:" + userKey }
func (s *Store) eventIDKey(userKey, id string) string {
	return s.prefix + ":event-id:" + userKey + ":" + id
}

// LoadPoints returns the saved state for userKey, or nil if none exists.
func (s *Store) LoadPoints(ctx context.Context, userKey string) (*domain.PointsState, error) {
	raw, err := s.client.Get(ctx, s.pointsKey(userKey)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var st domain.PointsState
	if err := json.Unmarshal(raw, &st); err != nil {
		return nil, fmt.Errorf("decode points for %q: %w", userKey, err)
	}
	return &st, nil
}

// SavePoints overwrites the aggregate for userKey.
func (s *Store) SavePoints(ctx context.Context, userKey string, state domain.PointsState) error {
	raw, err := json.Marshal(state.Normalize())
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.pointsKey(userKey), raw, 0).Err()
}

// AppendPointEvent pushes ev to the head of the user's journal. Replaying
// an event ID within EventIDTTL is a no-op.
func (s *Store) AppendPointEvent(ctx context.Context, ev domain.PointEvent) error {
	raw, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	keys := []string{s.eventIDKey(ev.UserKey, ev.ID), s.eventsKey(ev.UserKey)}
	return appendEvent.Run(ctx, s.client, keys, raw, MaxJournal, int64(EventIDTTL/time.Second)).Err()
}

// ListPointEvents returns up to limit events for userKey, newest first.
func (s *Store) ListPointEvents(ctx context.Context, userKey string, limit int) ([]domain.PointEvent, error) {
	if limit <= 0 {
		return []domain.PointEvent{}, nil
	}
	raws, err := s.client.LRange(ctx, s.eventsKey(userKey), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}
	events := make([]domain.PointEvent, 0, len(raws))
	for _, raw := range raws {
		var ev domain.PointEvent
		if err := json.Unmarshal([]byte(raw), &ev); err != nil {
			return nil, fmt.Errorf("decode point event: %w", err)
		}
		events = append(events, ev)
	}
	return events, nil
}

// Ping checks server connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the client.
func (s *Store) Close() error {
	return s.client.Close()
}
