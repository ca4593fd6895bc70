package infra

// lock.go: per-branch write serialization.
// Every stock-changing operation locks the branches whose ingredient sets it touches
// before opening its transaction. Locks are always taken in sorted order so two
// operations touching {A, B} can never deadlock each other.

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// ErrLockTimeout is returned when a branch lock cannot be obtained before the context expires.
var ErrLockTimeout = errors.New("no se pudo obtener el bloqueo de la sucursal a tiempo")

// BranchLocker serializes mutating operations per branch.
type BranchLocker interface {
	// Lock blocks until every branch is held, the wait bound elapses or ctx is done.
	// The returned func releases all of them.
	Lock(ctx context.Context, sucursales ...string) (func(), error)
}

const defaultLockWait = 5 * time.Second

func ordenarSucursales(sucursales []string) []string {
	seen := make(map[string]bool, len(sucursales))
	out := make([]string, 0, len(sucursales))
	for _, s := range sucursales {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// ── In-process locker ─────────────────────────────────────────────────────────

// LocalLocker keeps one single-slot semaphore per branch. Valid for a single API instance.
type LocalLocker struct {
	mu    sync.Mutex
	slots map[string]chan struct{}
	wait  time.Duration
}

func NewLocalLocker(wait time.Duration) *LocalLocker {
	if wait <= 0 {
		wait = defaultLockWait
	}
	return &LocalLocker{slots: make(map[string]chan struct{}), wait: wait}
}

func (l *LocalLocker) slot(sucursal string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	ch, ok := l.slots[sucursal]
	if !ok {
		ch = make(chan struct{}, 1)
		l.slots[sucursal] = ch
	}
	return ch
}

func (l *LocalLocker) Lock(ctx context.Context, sucursales ...string) (func(), error) {
	ctx, cancel := context.WithTimeout(ctx, l.wait)
	defer cancel()

	held := make([]chan struct{}, 0, len(sucursales))
	release := func() {
		for i := len(held) - 1; i >= 0; i-- {
			<-held[i]
		}
	}
	for _, s := range ordenarSucursales(sucursales) {
		ch := l.slot(s)
		select {
		case ch <- struct{}{}:
			held = append(held, ch)
		case <-ctx.Done():
			release()
			return nil, fmt.Errorf("%w: %s", ErrLockTimeout, s)
		}
	}
	return release, nil
}

// ── Redis locker ──────────────────────────────────────────────────────────────

// RedisLocker uses bsm/redislock so several API instances share the same branch locks.
// The ttl bounds how long a crashed holder can keep a branch blocked.
type RedisLocker struct {
	client *redislock.Client
	ttl    time.Duration
	wait   time.Duration
	retry  time.Duration
}

func NewRedisLocker(rdb *redis.Client, ttl, wait time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if wait <= 0 {
		wait = defaultLockWait
	}
	return &RedisLocker{client: redislock.New(rdb), ttl: ttl, wait: wait, retry: 50 * time.Millisecond}
}

func (l *RedisLocker) Lock(ctx context.Context, sucursales ...string) (func(), error) {
	ctx, cancel := context.WithTimeout(ctx, l.wait)
	defer cancel()

	var held []*redislock.Lock
	release := func() {
		// release with a fresh context: the caller's may already be cancelled
		relCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		for i := len(held) - 1; i >= 0; i-- {
			if err := held[i].Release(relCtx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
				log.Warn().Err(err).Str("key", held[i].Key()).Msg("lock: release failed")
			}
		}
	}
	for _, s := range ordenarSucursales(sucursales) {
		key := "lock:sucursal:" + s
		lock, err := l.client.Obtain(ctx, key, l.ttl, &redislock.Options{
			RetryStrategy: redislock.LinearBackoff(l.retry),
		})
		if err != nil {
			release()
			if errors.Is(err, redislock.ErrNotObtained) || errors.Is(err, context.DeadlineExceeded) {
				return nil, fmt.Errorf("%w: %s", ErrLockTimeout, s)
			}
			return nil, err
		}
		held = append(held, lock)
	}
	return release, nil
}
