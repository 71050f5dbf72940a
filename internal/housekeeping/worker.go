package housekeeping

import (
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// QueueName is the asynq queue housekeeping tasks run on.
const QueueName = "housekeeping"

// NewServer returns an asynq server consuming the housekeeping queue.
func NewServer(redis asynq.RedisConnOpt, log *zap.Logger) *asynq.Server {
	return asynq.NewServer(redis, asynq.Config{
		Concurrency: 2,
		Queues:      map[string]int{QueueName: 1},
		Logger:      log.Sugar(),
	})
}

// NewMux routes housekeeping task types to their handlers.
func NewMux(purge *PurgeHandler) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.Handle(TypePendingPurge, purge)
	return mux
}

// NewScheduler returns a scheduler with the purge task registered on cronspec
// (e.g. "@every 1h"). It returns the scheduler entry id.
func NewScheduler(redis asynq.RedisConnOpt, cronspec string, log *zap.Logger) (*asynq.Scheduler, string, error) {
	scheduler := asynq.NewScheduler(redis, &asynq.SchedulerOpts{Logger: log.Sugar()})
	task, err := NewPurgeTask(0)
	if err != nil {
		return nil, "", err
	}
	id, err := scheduler.Register(cronspec, task, asynq.Queue(QueueName))
	if err != nil {
		return nil, "", err
	}
	return scheduler, id, nil
}
