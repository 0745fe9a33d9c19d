package server

import (
	"encoding/json"
	"fmt"
	"time"

	"veil/veil-verifier/logging"
	"veil/veil-verifier/verifier"
)

type VerifyJob struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

type QueueWorker interface {
	Start()
	Stop()
}

// VerificationWorker pulls jobs off the verify queue and drives them
// through the partial verification engine to completion.
type VerificationWorker struct {
	queue    *RedisQueue
	keys     map[string]*verifier.VerifyingKey
	stopChan chan struct{}
}

func NewVerificationWorker(redisQueue *RedisQueue, keys map[string]*verifier.VerifyingKey) *VerificationWorker {
	return &VerificationWorker{
		queue:    redisQueue,
		keys:     keys,
		stopChan: make(chan struct{}),
	}
}

func (w *VerificationWorker) Start() {
	logging.Logger().Info().Str("queue", VerifyQueue).Msg("Starting verification worker")

	for {
		select {
		case <-w.stopChan:
			logging.Logger().Info().Str("queue", VerifyQueue).Msg("Verification worker stopping")
			return
		default:
			w.processJobs()
		}
	}
}

func (w *VerificationWorker) Stop() {
	close(w.stopChan)
}

func (w *VerificationWorker) processJobs() {
	job, err := w.queue.DequeueJob(VerifyQueue, 5*time.Second)
	if err != nil {
		logging.Logger().Error().Err(err).Str("queue", VerifyQueue).Msg("Error dequeuing from queue")
		time.Sleep(2 * time.Second)
		return
	}

	if job == nil {
		time.Sleep(1 * time.Second)
		return
	}

	logging.Logger().Info().
		Str("job_id", job.ID).
		Str("job_type", job.Type).
		Msg("Processing verification job")

	processingJob := &VerifyJob{
		ID:        job.ID + "_processing",
		Type:      "processing",
		Payload:   job.Payload,
		CreatedAt: time.Now(),
	}
	w.queue.EnqueueJob(VerifyProcessingQueue, processingJob)

	err = w.processVerificationJob(job)
	w.removeFromProcessingQueue(job.ID)

	if err != nil {
		logging.Logger().Error().
			Err(err).
			Str("job_id", job.ID).
			Msg("Failed to process verification job")

		w.addToFailedQueue(job, err)
		RecordJobComplete(false)
	} else {
		RecordJobComplete(true)
	}
}

func (w *VerificationWorker) processVerificationJob(job *VerifyJob) error {
	req, err := ParseVerifyRequest(job.Payload)
	if err != nil {
		return fmt.Errorf("failed to parse verification request: %w", err)
	}

	vk, ok := w.keys[req.VerifyingKey]
	if !ok {
		return fmt.Errorf("unknown verifying key: %s", req.VerifyingKey)
	}

	proof, inputs, err := req.Decode()
	if err != nil {
		return fmt.Errorf("failed to decode verification request: %w", err)
	}

	timer := StartVerificationTimer(req.VerifyingKey)
	result := RunVerification(vk, req.VerifyingKey, proof, inputs)
	if result.Error != "" {
		timer.ObserveError("verification_error")
	} else {
		timer.ObserveDuration()
	}

	resultData, _ := json.Marshal(result)
	resultJob := &VerifyJob{
		ID:        job.ID,
		Type:      "result",
		Payload:   json.RawMessage(resultData),
		CreatedAt: time.Now(),
	}
	w.queue.EnqueueJob(VerifyResultsQueue, resultJob)
	w.queue.DeleteJobMeta(job.ID)
	return w.queue.StoreResult(job.ID, result)
}

func (w *VerificationWorker) removeFromProcessingQueue(jobID string) {
	processingQueueLength, _ := w.queue.Client.LLen(w.queue.Ctx, VerifyProcessingQueue).Result()

	for i := int64(0); i < processingQueueLength; i++ {
		item, err := w.queue.Client.LIndex(w.queue.Ctx, VerifyProcessingQueue, i).Result()
		if err != nil {
			continue
		}

		var job VerifyJob
		if json.Unmarshal([]byte(item), &job) == nil && job.ID == jobID+"_processing" {
			w.queue.Client.LRem(w.queue.Ctx, VerifyProcessingQueue, 1, item)
			break
		}
	}
}

func (w *VerificationWorker) addToFailedQueue(job *VerifyJob, err error) {
	failedJob := map[string]interface{}{
		"original_job": job,
		"error":        err.Error(),
		"failed_at":    time.Now(),
	}

	failedData, _ := json.Marshal(failedJob)
	failedJobStruct := &VerifyJob{
		ID:        job.ID + "_failed",
		Type:      "failed",
		Payload:   json.RawMessage(failedData),
		CreatedAt: time.Now(),
	}

	w.queue.EnqueueJob(VerifyFailedQueue, failedJobStruct)
}
