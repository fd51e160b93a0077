// Package sequence issues globally unique identifiers backed by named
// monotonic counters. Uniqueness comes from the atomicity of the counter
// increment; the hashed form only hides position and length from callers.
package sequence

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Sequence names used by the result engine.
const (
	NameStatus       = "status"
	NameTransportRun = "transportRun"
	NameTestRun      = "testRun"
)

// DefaultSeed keeps new counters clear of legacy numeric ranges.
const DefaultSeed = 10000

// Source issues unique values from named counters.
type Source interface {
	// UniqueValue atomically increments the named counter and returns an
	// opaque digest of the new count and the current time.
	UniqueValue(ctx context.Context, name string) (string, error)
	// UniqueID atomically increments the named counter and returns the raw
	// post-increment integer as a decimal string.
	UniqueID(ctx context.Context, name string) (string, error)
}

func digest(count int64, now time.Time) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%d:%d", count, now.UnixNano())))
	return hex.EncodeToString(sum[:])[:24]
}

// PG is the Postgres-backed Source. The seed-or-increment runs as a single
// statement so concurrent callers always observe distinct counts.
type PG struct {
	pool *pgxpool.Pool
	seed int64
}

func NewPG(pool *pgxpool.Pool, seed int64) *PG {
	if seed <= 0 {
		seed = DefaultSeed
	}
	return &PG{pool: pool, seed: seed}
}

func (s *PG) next(ctx context.Context, name string) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO id_counter (name, count) VALUES ($1, $2 + 1)
		ON CONFLICT (name) DO UPDATE SET count = id_counter.count + 1
		RETURNING count`, name, s.seed).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("increment counter %s: %w", name, err)
	}
	return count, nil
}

func (s *PG) UniqueValue(ctx context.Context, name string) (string, error) {
	count, err := s.next(ctx, name)
	if err != nil {
		return "", err
	}
	return digest(count, time.Now()), nil
}

func (s *PG) UniqueID(ctx context.Context, name string) (string, error) {
	count, err := s.next(ctx, name)
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(count, 10), nil
}

// Memory is an in-process Source for tests and development mode.
type Memory struct {
	mu       sync.Mutex
	seed     int64
	counters map[string]int64
}

func NewMemory(seed int64) *Memory {
	if seed <= 0 {
		seed = DefaultSeed
	}
	return &Memory{seed: seed, counters: make(map[string]int64)}
}

func (s *Memory) next(name string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.counters[name]; !ok {
		s.counters[name] = s.seed
	}
	s.counters[name]++
	return s.counters[name]
}

func (s *Memory) UniqueValue(_ context.Context, name string) (string, error) {
	return digest(s.next(name), time.Now()), nil
}

func (s *Memory) UniqueID(_ context.Context, name string) (string, error) {
	return strconv.FormatInt(s.next(name), 10), nil
}

// Max reports the highest count observed for name; zero if never used.
func (s *Memory) Max(name string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counters[name]
}
