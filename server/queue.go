package server

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"veil/veil-verifier/logging"
)

const (
	VerifyQueue           = "verify_queue"
	VerifyProcessingQueue = "verify_processing_queue"
	VerifyFailedQueue     = "verify_failed_queue"
	VerifyResultsQueue    = "verify_results_queue"
)

type RedisQueue struct {
	Client *redis.Client
	Ctx    context.Context
}

func NewRedisQueue(redisURL string) (*RedisQueue, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	// Connection pool and timeouts tuned for many concurrent submitters
	// hitting a small worker pool.
	opts.PoolSize = 100
	opts.MinIdleConns = 10
	opts.DialTimeout = 10 * time.Second
	opts.ReadTimeout = 30 * time.Second // BLPOP blocks up to its own timeout
	opts.WriteTimeout = 10 * time.Second
	opts.PoolTimeout = 15 * time.Second
	opts.ConnMaxIdleTime = 5 * time.Minute
	opts.MaxRetries = 3

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logging.Logger().Info().
		Int("pool_size", opts.PoolSize).
		Int("min_idle_conns", opts.MinIdleConns).
		Dur("dial_timeout", opts.DialTimeout).
		Dur("read_timeout", opts.ReadTimeout).
		Dur("write_timeout", opts.WriteTimeout).
		Int("max_retries", opts.MaxRetries).
		Msg("Redis client configured with connection pool")

	return &RedisQueue{Client: client, Ctx: context.Background()}, nil
}

func (rq *RedisQueue) EnqueueJob(queueName string, job *VerifyJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	err = rq.Client.RPush(rq.Ctx, queueName, data).Err()
	if err != nil {
		return fmt.Errorf("failed to enqueue job: %w", err)
	}

	logging.Logger().Info().
		Str("job_id", job.ID).
		Str("queue", queueName).
		Str("redis_addr", rq.Client.Options().Addr).
		Msg("Job enqueued successfully")
	return nil
}

func (rq *RedisQueue) DequeueJob(queueName string, timeout time.Duration) (*VerifyJob, error) {
	result, err := rq.Client.BLPop(rq.Ctx, timeout, queueName).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to dequeue job: %w", err)
	}

	if len(result) < 2 {
		return nil, fmt.Errorf("invalid result from Redis")
	}

	var job VerifyJob
	err = json.Unmarshal([]byte(result[1]), &job)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal job: %w", err)
	}

	return &job, nil
}

// StoreJobMeta stores job metadata when a job is submitted so the
// status endpoint can find the job even before a worker picks it up.
// TTL matches the result TTL.
func (rq *RedisQueue) StoreJobMeta(jobID string, key string) error {
	metaKey := fmt.Sprintf("verify_job_meta_%s", jobID)
	meta := map[string]interface{}{
		"verifying_key": key,
		"submitted_at":  time.Now(),
		"status":        "queued",
	}
	data, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("failed to marshal job meta: %w", err)
	}

	err = rq.Client.Set(rq.Ctx, metaKey, data, 1*time.Hour).Err()
	if err != nil {
		return fmt.Errorf("failed to store job meta: %w", err)
	}

	logging.Logger().Debug().
		Str("job_id", jobID).
		Str("verifying_key", key).
		Msg("Stored job metadata for status tracking")

	return nil
}

// GetJobMeta retrieves job metadata by job ID. Returns nil if the job
// metadata doesn't exist.
func (rq *RedisQueue) GetJobMeta(jobID string) (map[string]interface{}, error) {
	metaKey := fmt.Sprintf("verify_job_meta_%s", jobID)
	result, err := rq.Client.Get(rq.Ctx, metaKey).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job meta: %w", err)
	}

	var meta map[string]interface{}
	if err := json.Unmarshal([]byte(result), &meta); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job meta: %w", err)
	}

	return meta, nil
}

func (rq *RedisQueue) DeleteJobMeta(jobID string) error {
	metaKey := fmt.Sprintf("verify_job_meta_%s", jobID)
	return rq.Client.Del(rq.Ctx, metaKey).Err()
}

func (rq *RedisQueue) StoreResult(jobID string, result *VerificationResult) error {
	resultData, err := json.Marshal(result)
	if err != nil {
		logging.Logger().Error().
			Str("job_id", jobID).
			Err(err).
			Msg("Failed to marshal result")
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	key := fmt.Sprintf("verify_result_%s", jobID)
	err = rq.Client.Set(rq.Ctx, key, resultData, 1*time.Hour).Err()
	if err != nil {
		return fmt.Errorf("failed to store result: %w", err)
	}

	logging.Logger().Info().
		Str("job_id", jobID).
		Str("key", key).
		Msg("Result stored successfully")

	return nil
}

func (rq *RedisQueue) GetResult(jobID string) (*VerificationResult, error) {
	key := fmt.Sprintf("verify_result_%s", jobID)
	result, err := rq.Client.Get(rq.Ctx, key).Result()
	if err == nil {
		var vr VerificationResult
		err = json.Unmarshal([]byte(result), &vr)
		if err != nil {
			logging.Logger().Error().
				Str("job_id", jobID).
				Err(err).
				Str("result", result).
				Msg("Failed to unmarshal result")
			return nil, fmt.Errorf("failed to unmarshal direct result: %w", err)
		}
		return &vr, nil
	}

	if err != redis.Nil {
		return nil, err
	}

	return rq.searchResultInQueue(jobID)
}

func (rq *RedisQueue) searchResultInQueue(jobID string) (*VerificationResult, error) {
	items, err := rq.Client.LRange(rq.Ctx, VerifyResultsQueue, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to search results queue: %w", err)
	}

	for _, item := range items {
		var resultJob VerifyJob
		if json.Unmarshal([]byte(item), &resultJob) == nil {
			if resultJob.ID == jobID && resultJob.Type == "result" {
				var vr VerificationResult
				err = json.Unmarshal(resultJob.Payload, &vr)
				if err != nil {
					return nil, fmt.Errorf("failed to unmarshal queued result: %w", err)
				}
				rq.StoreResult(jobID, &vr)

				return &vr, nil
			}
		}
	}

	return nil, redis.Nil
}

func (rq *RedisQueue) GetQueueStats() (map[string]int64, error) {
	stats := make(map[string]int64)

	queues := []string{VerifyQueue, VerifyProcessingQueue, VerifyFailedQueue, VerifyResultsQueue}

	for _, queue := range queues {
		length, err := rq.Client.LLen(rq.Ctx, queue).Result()
		if err != nil {
			logging.Logger().Warn().Err(err).Str("queue", queue).Msg("Failed to get queue length")
			length = 0
		}
		stats[queue] = length
	}

	return stats, nil
}

func (rq *RedisQueue) GetQueueHealth() (map[string]interface{}, error) {
	stats, err := rq.GetQueueStats()
	if err != nil {
		return nil, err
	}

	health := make(map[string]interface{})
	health["queue_lengths"] = stats
	health["timestamp"] = time.Now().Unix()
	health["total_pending"] = stats[VerifyQueue]
	health["total_processing"] = stats[VerifyProcessingQueue]
	health["total_failed"] = stats[VerifyFailedQueue]
	health["total_results"] = stats[VerifyResultsQueue]

	stuckJobs := rq.countStuckJobs()
	health["stuck_jobs"] = stuckJobs

	healthStatus := "healthy"
	if stuckJobs > 0 {
		healthStatus = "degraded"
	}
	if health["total_failed"].(int64) > 50 {
		healthStatus = "unhealthy"
	}
	health["status"] = healthStatus

	return health, nil
}

func (rq *RedisQueue) countStuckJobs() int64 {
	stuckTimeout := time.Now().Add(-2 * time.Minute)

	items, err := rq.Client.LRange(rq.Ctx, VerifyProcessingQueue, 0, -1).Result()
	if err != nil {
		return 0
	}

	var totalStuck int64
	for _, item := range items {
		var job VerifyJob
		if json.Unmarshal([]byte(item), &job) == nil {
			if job.CreatedAt.Before(stuckTimeout) {
				totalStuck++
			}
		}
	}

	return totalStuck
}

func (rq *RedisQueue) CleanupOldResults() error {
	cutoffTime := time.Now().Add(-1 * time.Hour)

	removed, err := rq.cleanupOldJobsFromQueue(VerifyResultsQueue, cutoffTime)
	if err != nil {
		logging.Logger().Error().
			Err(err).
			Msg("Failed to cleanup old results by time")
		return err
	}

	if removed > 0 {
		logging.Logger().Info().
			Int64("removed_results", removed).
			Time("cutoff_time", cutoffTime).
			Msg("Cleaned up old results by time")
	}

	return nil
}

func (rq *RedisQueue) CleanupOldRequests() error {
	cutoffTime := time.Now().Add(-30 * time.Minute)

	removed, err := rq.cleanupOldJobsFromQueue(VerifyQueue, cutoffTime)
	if err != nil {
		logging.Logger().Error().
			Err(err).
			Msg("Failed to cleanup old requests from queue")
		return err
	}

	if removed > 0 {
		logging.Logger().Info().
			Int64("removed_items", removed).
			Time("cutoff_time", cutoffTime).
			Msg("Cleaned up old verification requests")
	}

	return nil
}

func (rq *RedisQueue) CleanupOldFailedJobs() error {
	cutoffTime := time.Now().Add(-1 * time.Hour)

	removed, err := rq.cleanupOldJobsFromQueue(VerifyFailedQueue, cutoffTime)
	if err != nil {
		logging.Logger().Error().
			Err(err).
			Msg("Failed to cleanup old failed jobs")
		return err
	}

	if removed > 0 {
		logging.Logger().Info().
			Int64("removed_failed_jobs", removed).
			Time("cutoff_time", cutoffTime).
			Msg("Cleaned up old failed jobs")
	}

	return nil
}

// CleanupStuckProcessingJobs recovers jobs that have sat in the
// processing queue past the timeout. Recently stuck jobs go back to the
// main queue, jobs stuck for over five minutes are moved to the failed
// queue.
func (rq *RedisQueue) CleanupStuckProcessingJobs() error {
	processingTimeout := time.Now().Add(-2 * time.Minute)

	items, err := rq.Client.LRange(rq.Ctx, VerifyProcessingQueue, 0, -1).Result()
	if err != nil {
		return fmt.Errorf("failed to get processing queue items: %w", err)
	}

	var recoveredCount int64
	var failedCount int64

	for _, item := range items {
		var job VerifyJob
		if json.Unmarshal([]byte(item), &job) != nil {
			continue
		}
		if !job.CreatedAt.Before(processingTimeout) {
			continue
		}

		count, err := rq.Client.LRem(rq.Ctx, VerifyProcessingQueue, 1, item).Result()
		if err != nil {
			logging.Logger().Error().
				Err(err).
				Str("job_id", job.ID).
				Msg("Failed to remove stuck job from processing queue")
			continue
		}
		if count == 0 {
			continue
		}

		originalJobID := job.ID
		if len(job.ID) > 11 && job.ID[len(job.ID)-11:] == "_processing" {
			originalJobID = job.ID[:len(job.ID)-11]
		}

		fiveMinutesAgo := time.Now().Add(-5 * time.Minute)
		if job.CreatedAt.Before(fiveMinutesAgo) {
			failureDetails := map[string]interface{}{
				"original_job": map[string]interface{}{
					"id":           originalJobID,
					"type":         "verify",
					"payload_size": len(job.Payload),
					"created_at":   job.CreatedAt,
				},
				"error":     "Job timed out in processing queue (stuck for >5 minutes)",
				"failed_at": time.Now(),
				"timeout":   true,
			}

			failedData, _ := json.Marshal(failureDetails)
			failedJob := &VerifyJob{
				ID:        originalJobID + "_failed",
				Type:      "failed",
				Payload:   json.RawMessage(failedData),
				CreatedAt: time.Now(),
			}

			err = rq.EnqueueJob(VerifyFailedQueue, failedJob)
			if err != nil {
				logging.Logger().Error().
					Err(err).
					Str("job_id", originalJobID).
					Msg("Failed to move timed out job to failed queue")
			} else {
				failedCount++
				logging.Logger().Warn().
					Str("job_id", originalJobID).
					Time("stuck_since", job.CreatedAt).
					Msg("Moved timed out job to failed queue (processing timeout >5min)")
			}
		} else {
			originalJob := &VerifyJob{
				ID:        originalJobID,
				Type:      "verify",
				Payload:   job.Payload,
				CreatedAt: job.CreatedAt,
			}

			err = rq.EnqueueJob(VerifyQueue, originalJob)
			if err != nil {
				logging.Logger().Error().
					Err(err).
					Str("job_id", originalJobID).
					Msg("Failed to recover stuck job")
			} else {
				recoveredCount++
				logging.Logger().Info().
					Str("job_id", originalJobID).
					Time("stuck_since", job.CreatedAt).
					Msg("Recovered stuck job")
			}
		}
	}

	if recoveredCount > 0 || failedCount > 0 {
		logging.Logger().Info().
			Int64("recovered_jobs", recoveredCount).
			Int64("failed_jobs", failedCount).
			Time("timeout_cutoff", processingTimeout).
			Msg("Processed stuck jobs from processing queue")
	}

	return nil
}

func (rq *RedisQueue) cleanupOldJobsFromQueue(queueName string, cutoffTime time.Time) (int64, error) {
	items, err := rq.Client.LRange(rq.Ctx, queueName, 0, -1).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to get queue items: %w", err)
	}

	var removedCount int64

	for _, item := range items {
		var job VerifyJob
		if json.Unmarshal([]byte(item), &job) == nil {
			if job.CreatedAt.Before(cutoffTime) {
				count, err := rq.Client.LRem(rq.Ctx, queueName, 1, item).Result()
				if err != nil {
					logging.Logger().Error().
						Err(err).
						Str("job_id", job.ID).
						Str("queue", queueName).
						Msg("Failed to remove old job")
					continue
				}
				if count > 0 {
					removedCount++
					logging.Logger().Debug().
						Str("job_id", job.ID).
						Str("queue", queueName).
						Time("created_at", job.CreatedAt).
						Msg("Removed old verification job")
				}
			}
		}
	}

	return removedCount, nil
}

// StartCleanupRoutine runs the periodic queue maintenance until the
// returned job is stopped.
func (rq *RedisQueue) StartCleanupRoutine() RunningJob {
	stop := make(chan struct{})
	start := func() {
		ticker := time.NewTicker(1 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				rq.CleanupStuckProcessingJobs()
				rq.CleanupOldRequests()
				rq.CleanupOldResults()
				rq.CleanupOldFailedJobs()
			}
		}
	}
	return SpawnJob(start, func() { close(stop) })
}
