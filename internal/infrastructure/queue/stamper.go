package queue

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/pyramid-aftercare/portal/internal/core/ports"
	"github.com/pyramid-aftercare/portal/internal/pkg/metrics"
)

const (
	defaultWorkers = 4
	channelBuffer  = 64
	writeTimeout   = 5 * time.Second
)

// lastLoginWriter is the part of the profile repository the stamper needs.
type lastLoginWriter interface {
	TouchLastLogin(ctx context.Context, id string, at time.Time) error
}

type stampJob struct {
	userID string
	at     time.Time
}

// LoginStamper writes last_login values off the read path. Jobs are sharded
// by user id so stamps for one user are applied in the order they were made.
type LoginStamper struct {
	workers []chan stampJob
	repo    lastLoginWriter
	log     zerolog.Logger
	wg      sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

var _ ports.LastLoginStamper = (*LoginStamper)(nil)

// NewLoginStamper creates a stamper with numWorkers shards.
// If numWorkers <= 0, defaultWorkers is used.
func NewLoginStamper(numWorkers int, repo lastLoginWriter, log zerolog.Logger) *LoginStamper {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	s := &LoginStamper{
		workers: make([]chan stampJob, numWorkers),
		repo:    repo,
		log:     log,
	}
	for i := range s.workers {
		s.workers[i] = make(chan stampJob, channelBuffer)
	}
	return s
}

// Start launches the workers. Cancelling ctx closes the stamper the way
// Close does: new stamps are dropped and queued ones are still written, each
// under its own writeTimeout.
func (s *LoginStamper) Start(ctx context.Context) {
	for i, ch := range s.workers {
		s.wg.Add(1)
		go s.runWorker(ctx, i, ch)
	}
}

// Stamp queues a last_login write. It never blocks: when the shard is full
// or the stamper is closed the stamp is dropped and counted as a failure.
func (s *LoginStamper) Stamp(userID string, at time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		s.drop(userID, "stamper closed")
		return
	}
	select {
	case s.workers[s.shardIndex(userID)] <- stampJob{userID: userID, at: at}:
	default:
		s.drop(userID, "stamp queue full")
	}
}

// Close stops accepting stamps and waits for queued ones to be written.
func (s *LoginStamper) Close() {
	s.closeQueues()
	s.wg.Wait()
}

func (s *LoginStamper) closeQueues() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for _, ch := range s.workers {
		close(ch)
	}
}

func (s *LoginStamper) drop(userID, reason string) {
	metrics.LastLoginStampFailuresTotal.Inc()
	s.log.Warn().Str("user_id", userID).Msg(reason + ", last_login not recorded")
}

// shardIndex maps a user id deterministically to a worker index.
func (s *LoginStamper) shardIndex(userID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(userID))
	return int(h.Sum32() % uint32(len(s.workers)))
}

func (s *LoginStamper) runWorker(ctx context.Context, id int, ch <-chan stampJob) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			s.closeQueues()
			drainCtx := context.WithoutCancel(ctx)
			for job := range ch {
				s.write(drainCtx, id, job)
			}
			return
		case job, ok := <-ch:
			if !ok {
				return
			}
			s.write(ctx, id, job)
		}
	}
}

func (s *LoginStamper) write(ctx context.Context, id int, job stampJob) {
	wctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	if err := s.repo.TouchLastLogin(wctx, job.userID, job.at); err != nil {
		metrics.LastLoginStampFailuresTotal.Inc()
		s.log.Warn().Err(err).
			Str("user_id", job.userID).
			Int("worker_id", id).
			Msg("failed to stamp last_login")
	}
}
