package jobs

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"mediavault/api/internal/service"
)

// Scheduler enqueues a daily sweep task on the cleanup stream. The janitor
// consuming the stream reconciles objects left behind by deletes that
// removed the metadata but failed to remove the bytes.
type Scheduler struct {
	cron  *cron.Cron
	queue *redis.Client
	log   zerolog.Logger
}

func NewScheduler(queue *redis.Client, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:  cron.New(),
		queue: queue,
		log:   log,
	}
}

func (s *Scheduler) Start() error {
	if s.queue == nil {
		return nil
	}

	if _, err := s.cron.AddFunc("@daily", s.enqueueSweep); err != nil {
		return err
	}

	s.cron.Start()
	return nil
}

func (s *Scheduler) Stop() {
	stopCtx := s.cron.Stop()

	select {
	case <-stopCtx.Done():
	case <-time.After(5 * time.Second):
		s.log.Warn().Msg("scheduler stop timed out")
	}
}

func (s *Scheduler) enqueueSweep() {
	err := s.queue.XAdd(context.Background(), &redis.XAddArgs{
		Stream: service.CleanupStream,
		Values: map[string]any{"type": "sweep"},
	}).Err()
	if err != nil {
		s.log.Error().Err(err).Msg("enqueue sweep failed")
	}
}
