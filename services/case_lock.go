package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"writ_docket_go/config"
)

// CaseLocker serializes sequence placement per case. The returned release
// func must be called exactly once.
type CaseLocker interface {
	Lock(ctx context.Context, caseID string) (func(), error)
}

// DefaultCaseLockTTL bounds how long a placement may hold a case
const DefaultCaseLockTTL = 10 * time.Second

const caseLockKeyPrefix = "writ:case-lock:"

// errLockTimeout is wrapped in a ConflictError so callers retry the request
var errLockTimeout = errors.New("timed out waiting for case lock")

// LocalCaseLocker locks cases within one process
type LocalCaseLocker struct {
	mu    sync.Mutex
	slots map[string]*caseSlot
}

type caseSlot struct {
	ch   chan struct{}
	refs int
}

// NewLocalCaseLocker creates an in-process locker
func NewLocalCaseLocker() *LocalCaseLocker {
	return &LocalCaseLocker{slots: make(map[string]*caseSlot)}
}

// Lock blocks until the case is free or ctx is done
func (l *LocalCaseLocker) Lock(ctx context.Context, caseID string) (func(), error) {
	l.mu.Lock()
	slot, ok := l.slots[caseID]
	if !ok {
		slot = &caseSlot{ch: make(chan struct{}, 1)}
		l.slots[caseID] = slot
	}
	slot.refs++
	l.mu.Unlock()

	select {
	case slot.ch <- struct{}{}:
	case <-ctx.Done():
		l.unref(caseID, slot)
		return nil, &ConflictError{Resource: "case " + caseID, Err: errLockTimeout}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-slot.ch
			l.unref(caseID, slot)
		})
	}, nil
}

func (l *LocalCaseLocker) unref(caseID string, slot *caseSlot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	slot.refs--
	if slot.refs == 0 {
		delete(l.slots, caseID)
	}
}

// releaseScript deletes the lock only while it still holds our token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisCaseLocker locks cases across every API instance sharing a Redis
type RedisCaseLocker struct {
	rdb        *redis.Client
	ttl        time.Duration
	retryDelay time.Duration
}

// NewRedisCaseLocker creates a locker backed by rdb
func NewRedisCaseLocker(rdb *redis.Client, ttl time.Duration) *RedisCaseLocker {
	if ttl <= 0 {
		ttl = DefaultCaseLockTTL
	}
	return &RedisCaseLocker{rdb: rdb, ttl: ttl, retryDelay: 25 * time.Millisecond}
}

// Lock polls SETNX until the case is free. Waiting is bounded by the lock TTL.
func (l *RedisCaseLocker) Lock(ctx context.Context, caseID string) (func(), error) {
	key := caseLockKeyPrefix + caseID
	token := uuid.New().String()

	waitCtx, cancel := context.WithTimeout(ctx, l.ttl)
	defer cancel()

	for {
		ok, err := l.rdb.SetNX(waitCtx, key, token, l.ttl).Result()
		if err != nil {
			if waitCtx.Err() != nil {
				return nil, &ConflictError{Resource: "case " + caseID, Err: errLockTimeout}
			}
			return nil, &DependencyError{Dependency: "redis", Err: fmt.Errorf("case lock SETNX: %w", err)}
		}
		if ok {
			break
		}

		select {
		case <-waitCtx.Done():
			return nil, &ConflictError{Resource: "case " + caseID, Err: errLockTimeout}
		case <-time.After(l.retryDelay):
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := releaseScript.Run(releaseCtx, l.rdb, []string{key}, token).Err(); err != nil {
				log.Warn().Err(err).Str("case_id", caseID).Msg("Failed to release case lock")
			}
		})
	}, nil
}

// InitializeCaseLocker connects to REDIS_URL when set, otherwise falls back
// to an in-process locker suitable for a single instance.
func InitializeCaseLocker(cfg *config.Config) CaseLocker {
	if cfg.RedisURL == "" {
		log.Info().Msg("REDIS_URL not set, using in-process case locks")
		return NewLocalCaseLocker()
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Warn().Err(err).Msg("Invalid REDIS_URL, using in-process case locks")
		return NewLocalCaseLocker()
	}

	rdb := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn().Err(err).Msg("Redis unreachable, using in-process case locks")
		_ = rdb.Close()
		return NewLocalCaseLocker()
	}

	log.Info().Str("addr", opts.Addr).Msg("Using Redis case locks")
	return NewRedisCaseLocker(rdb, cfg.CaseLockTTL)
}
