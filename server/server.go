package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/handlers"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"veil/veil-verifier/logging"
	"veil/veil-verifier/verifier"
)

type Config struct {
	Address        string
	MetricsAddress string
	APIKey         string
}

type QueueConfig struct {
	RedisURL string
	Enabled  bool
}

type verifyHandler struct {
	keys        map[string]*verifier.VerifyingKey
	redisQueue  *RedisQueue
	enableQueue bool
}

func (handler verifyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	buf, err := io.ReadAll(r.Body)
	if err != nil {
		logging.Logger().Error().Err(err).Msg("Error reading request body")
		malformedBodyError(err).send(w)
		return
	}
	RecordRequestBodySize(len(buf))

	req, err := ParseVerifyRequest(buf)
	if err != nil {
		malformedBodyError(err).send(w)
		return
	}

	forceAsync := r.Header.Get("X-Async") == "true" || r.URL.Query().Get("async") == "true"
	forceSync := r.Header.Get("X-Sync") == "true" || r.URL.Query().Get("sync") == "true"

	useQueue := handler.enableQueue && handler.redisQueue != nil && forceAsync && !forceSync

	logging.Logger().Info().
		Str("verifying_key", req.VerifyingKey).
		Int("public_inputs", len(req.PublicInputs)).
		Bool("force_async", forceAsync).
		Bool("force_sync", forceSync).
		Bool("use_queue", useQueue).
		Msg("Processing verify request")

	if useQueue {
		handler.handleAsyncVerify(w, buf, req)
	} else {
		handler.handleSyncVerify(w, r, req)
	}
}

func (handler verifyHandler) handleAsyncVerify(w http.ResponseWriter, buf []byte, req *VerifyRequest) {
	if _, ok := handler.keys[req.VerifyingKey]; !ok {
		unknownKeyError(req.VerifyingKey).send(w)
		return
	}

	jobID := uuid.New().String()

	job := &VerifyJob{
		ID:        jobID,
		Type:      "verify",
		Payload:   json.RawMessage(buf),
		CreatedAt: time.Now(),
	}

	err := handler.redisQueue.EnqueueJob(VerifyQueue, job)
	if err != nil {
		logging.Logger().Error().Err(err).Msg("Failed to enqueue verification job")
		unexpectedError(err).send(w)
		return
	}
	handler.redisQueue.StoreJobMeta(jobID, req.VerifyingKey)

	response := map[string]interface{}{
		"job_id":        jobID,
		"status":        "queued",
		"verifying_key": req.VerifyingKey,
		"status_url":    fmt.Sprintf("/verify/status?job_id=%s", jobID),
		"message":       "Verification queued. Use status_url to check progress.",
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(response)

	logging.Logger().Info().
		Str("job_id", jobID).
		Str("verifying_key", req.VerifyingKey).
		Msg("Verification job queued successfully")
}

func (handler verifyHandler) handleSyncVerify(w http.ResponseWriter, r *http.Request, req *VerifyRequest) {
	vk, ok := handler.keys[req.VerifyingKey]
	if !ok {
		unknownKeyError(req.VerifyingKey).send(w)
		return
	}

	proof, inputs, err := req.Decode()
	if err != nil {
		malformedBodyError(err).send(w)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	resultChan := make(chan *VerificationResult, 1)

	timer := StartVerificationTimer(req.VerifyingKey)
	go func() {
		resultChan <- RunVerification(vk, req.VerifyingKey, proof, inputs)
	}()

	select {
	case result := <-resultChan:
		if result.Error != "" {
			timer.ObserveError("verification_error")
			verificationError(result).send(w)
			return
		}
		timer.ObserveDuration()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(result)

		logging.Logger().Info().
			Str("verifying_key", req.VerifyingKey).
			Bool("verified", result.Verified).
			Int("instructions", result.Instructions).
			Msg("Synchronous verification completed")

	case <-ctx.Done():
		timer.ObserveError("timeout")
		timeoutError := &Error{
			StatusCode: http.StatusRequestTimeout,
			Code:       "verification_timeout",
			Message:    "Verification timed out. Use asynchronous mode with X-Async: true header.",
		}
		timeoutError.send(w)

		logging.Logger().Warn().
			Str("verifying_key", req.VerifyingKey).
			Msg("Synchronous verification timed out")
	}
}

// RunVerification drives a full verification through the instruction
// engine. Engine failures are folded into the result's Error fields
// rather than returned, a completed run with a negative verdict is not
// an error.
func RunVerification(vk *verifier.VerifyingKey, key string, proof *verifier.Proof, inputs [][32]byte) *VerificationResult {
	start := time.Now()
	result := &VerificationResult{VerifyingKey: key}

	data := make([]byte, verifier.AccountSize(vk.PublicInputsCount))
	account, err := verifier.NewVerificationAccount(data, vk)
	if err != nil {
		result.Error = err.Error()
		result.ErrorCode = verifier.ErrorCode(err)
		return result
	}
	if err := account.Setup(proof, inputs); err != nil {
		result.Error = err.Error()
		result.ErrorCode = verifier.ErrorCode(err)
		return result
	}

	for {
		verdict, err := account.ProcessInstruction()
		result.Instructions++
		if err != nil {
			result.Error = err.Error()
			result.ErrorCode = verifier.ErrorCode(err)
			result.DurationMs = time.Since(start).Milliseconds()
			return result
		}
		if verdict != nil {
			result.Verified = *verdict
			break
		}
	}

	result.DurationMs = time.Since(start).Milliseconds()
	RecordVerdict(key, result.Verified)
	RecordInstructions(key, result.Instructions)
	return result
}

type verifyStatusHandler struct {
	redisQueue *RedisQueue
}

func (handler verifyStatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	jobID := r.URL.Query().Get("job_id")
	if jobID == "" {
		malformedBodyError(fmt.Errorf("job_id parameter required")).send(w)
		return
	}

	if !isValidJobID(jobID) {
		invalidIDError := &Error{
			StatusCode: http.StatusBadRequest,
			Code:       "invalid_job_id",
			Message:    "Invalid job ID format. Job ID must be a valid UUID.",
		}
		invalidIDError.send(w)
		return
	}

	logging.Logger().Info().
		Str("job_id", jobID).
		Msg("Checking job status")

	result, err := handler.redisQueue.GetResult(jobID)
	if err != nil && err != redis.Nil {
		logging.Logger().Error().
			Err(err).
			Str("job_id", jobID).
			Msg("Error retrieving result")
		unexpectedError(err).send(w)
		return
	}

	if err == nil && result != nil {
		logging.Logger().Info().
			Str("job_id", jobID).
			Msg("Job completed - returning result")

		response := map[string]interface{}{
			"job_id": jobID,
			"status": "completed",
			"result": result,
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(response)
		return
	}

	jobExists, jobStatus, jobInfo := handler.checkJobExists(jobID)

	if !jobExists {
		logging.Logger().Warn().
			Str("job_id", jobID).
			Msg("Job not found in any queue")

		notFoundError := &Error{
			StatusCode: http.StatusNotFound,
			Code:       "job_not_found",
			Message:    fmt.Sprintf("Job with ID %s not found. It may have expired or never existed.", jobID),
		}
		notFoundError.send(w)
		return
	}

	response := map[string]interface{}{
		"job_id": jobID,
		"status": jobStatus,
	}

	if jobStatus == "failed" && jobInfo != nil {
		if payloadRaw, ok := jobInfo["payload"].(string); ok {
			var failureDetails map[string]interface{}
			if err := json.Unmarshal([]byte(payloadRaw), &failureDetails); err == nil {
				if errorMsg, ok := failureDetails["error"].(string); ok {
					response["message"] = fmt.Sprintf("Job processing failed: %s", errorMsg)
					response["error"] = errorMsg
				}
				if failedAt, ok := failureDetails["failed_at"]; ok {
					response["failed_at"] = failedAt
				}
			} else {
				response["message"] = "Job processing failed. Unable to parse failure details."
			}
		} else {
			response["message"] = "Job processing failed. No failure details available."
		}
	} else {
		response["message"] = getStatusMessage(jobStatus)

		if jobInfo != nil {
			if createdAt, ok := jobInfo["created_at"]; ok {
				response["created_at"] = createdAt
			}
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(response)
}

func isValidJobID(jobID string) bool {
	_, err := uuid.Parse(jobID)
	return err == nil
}

func getStatusMessage(status string) string {
	switch status {
	case "queued":
		return "Job is queued and waiting to be processed"
	case "processing":
		return "Job is currently being processed"
	case "failed":
		return "Job processing failed. Check the failed queue for details"
	case "completed":
		return "Job completed successfully"
	default:
		return "Job status unknown"
	}
}

func (handler verifyStatusHandler) checkJobExists(jobID string) (bool, string, map[string]interface{}) {
	if job, found := handler.findJobInQueue(VerifyQueue, jobID); found {
		return true, "queued", job
	}

	if job, found := handler.findJobInQueue(VerifyProcessingQueue, jobID); found {
		return true, "processing", job
	}

	if job, found := handler.findJobInQueue(VerifyFailedQueue, jobID); found {
		return true, "failed", job
	}

	if meta, err := handler.redisQueue.GetJobMeta(jobID); err == nil && meta != nil {
		return true, "queued", meta
	}

	return false, "", nil
}

func (handler verifyStatusHandler) findJobInQueue(queueName, jobID string) (map[string]interface{}, bool) {
	items, err := handler.redisQueue.Client.LRange(handler.redisQueue.Ctx, queueName, 0, -1).Result()
	if err != nil {
		logging.Logger().Error().
			Err(err).
			Str("queue", queueName).
			Str("job_id", jobID).
			Msg("Error searching queue")
		return nil, false
	}

	for _, item := range items {
		var job VerifyJob
		if json.Unmarshal([]byte(item), &job) == nil {
			if job.ID == jobID ||
				job.ID == jobID+"_processing" ||
				job.ID == jobID+"_failed" {

				jobInfo := map[string]interface{}{
					"created_at": job.CreatedAt,
				}
				if len(job.Payload) > 0 {
					jobInfo["payload"] = string(job.Payload)
				}

				return jobInfo, true
			}
		}
	}

	return nil, false
}

type queueStatsHandler struct {
	redisQueue *RedisQueue
}

func (handler queueStatsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	stats, err := handler.redisQueue.GetQueueStats()
	if err != nil {
		unexpectedError(err).send(w)
		return
	}

	response := map[string]interface{}{
		"queues":        stats,
		"total_pending": stats[VerifyQueue],
		"total_active":  stats[VerifyProcessingQueue],
		"total_failed":  stats[VerifyFailedQueue],
		"timestamp":     time.Now().Unix(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

type healthHandler struct {
}

func (handler healthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	responseBytes, err := json.Marshal(map[string]string{"status": "ok"})
	w.WriteHeader(http.StatusOK)
	_, err = w.Write(responseBytes)
	if err != nil {
		logging.Logger().Error().Err(err).Msg("error writing response")
	}
}

func Run(config *Config, keys map[string]*verifier.VerifyingKey) RunningJob {
	return RunWithQueue(config, nil, keys)
}

func RunWithQueue(config *Config, redisQueue *RedisQueue, keys map[string]*verifier.VerifyingKey) RunningJob {
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsServer := &http.Server{Addr: config.MetricsAddress, Handler: metricsMux}
	metricsJob := spawnServerJob(metricsServer, "metrics server")
	logging.Logger().Info().Str("addr", config.MetricsAddress).Msg("metrics server started")

	verifierMux := http.NewServeMux()

	verifierMux.Handle("/verify", verifyHandler{
		keys:        keys,
		redisQueue:  redisQueue,
		enableQueue: redisQueue != nil,
	})

	verifierMux.Handle("/health", healthHandler{})

	if redisQueue != nil {
		verifierMux.Handle("/verify/status", verifyStatusHandler{redisQueue: redisQueue})
		verifierMux.Handle("/queue/stats", queueStatsHandler{redisQueue: redisQueue})
	}

	corsHandler := handlers.CORS(
		handlers.AllowedHeaders([]string{
			"X-Requested-With",
			"Content-Type",
			"Authorization",
			"X-API-Key",
			"X-Async",
			"X-Sync",
		}),
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{"GET", "POST", "OPTIONS"}),
	)

	var rootHandler http.Handler = verifierMux
	if config.APIKey != "" {
		rootHandler = conditionalAuthMiddleware(config.APIKey)(rootHandler)
	}

	verifierServer := &http.Server{Addr: config.Address, Handler: corsHandler(rootHandler)}
	verifierJob := spawnServerJob(verifierServer, "verifier server")

	logging.Logger().Info().
		Str("addr", config.Address).
		Bool("queue_enabled", redisQueue != nil).
		Int("verifying_keys", len(keys)).
		Msg("verifier server started")

	return CombineJobs(metricsJob, verifierJob)
}

type Error struct {
	StatusCode int
	Code       string
	Message    string
}

func malformedBodyError(err error) *Error {
	return &Error{StatusCode: http.StatusBadRequest, Code: "malformed_body", Message: err.Error()}
}

func unknownKeyError(key string) *Error {
	return &Error{StatusCode: http.StatusBadRequest, Code: "unknown_verifying_key", Message: fmt.Sprintf("no verifying key registered under %q", key)}
}

func verificationError(result *VerificationResult) *Error {
	return &Error{
		StatusCode: http.StatusBadRequest,
		Code:       "verification_error",
		Message:    fmt.Sprintf("%s (code %d)", result.Error, result.ErrorCode),
	}
}

func unexpectedError(err error) *Error {
	return &Error{StatusCode: http.StatusInternalServerError, Code: "unexpected_error", Message: err.Error()}
}

func (error *Error) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]string{
		"code":    error.Code,
		"message": error.Message,
	})
}

func (error *Error) send(w http.ResponseWriter) {
	w.WriteHeader(error.StatusCode)
	jsonBytes, err := error.MarshalJSON()
	if err != nil {
		jsonBytes = []byte(`{"code": "unexpected_error", "message": "failed to marshal error"}`)
	}
	length, err := w.Write(jsonBytes)
	if err != nil || length != len(jsonBytes) {
		logging.Logger().Error().Err(err).Msg("error writing response")
	}
}

func spawnServerJob(server *http.Server, label string) RunningJob {
	start := func() {
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			panic(fmt.Sprintf("%s failed: %s", label, err))
		}
	}
	shutdown := func() {
		logging.Logger().Info().Msgf("shutting down %s", label)
		err := server.Shutdown(context.Background())
		if err != nil {
			logging.Logger().Error().Err(err).Msgf("error when shutting down %s", label)
		}
		logging.Logger().Info().Msgf("%s shut down", label)
	}
	return SpawnJob(start, shutdown)
}
