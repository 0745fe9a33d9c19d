package server

// RunningJob tracks a background task until its shutdown completes.
type RunningJob struct {
	stop chan struct{}
	done chan struct{}
}

// RequestStop asks the job to shut down. It does not wait.
func (job *RunningJob) RequestStop() {
	close(job.stop)
}

// AwaitStop blocks until the job's shutdown has finished.
func (job *RunningJob) AwaitStop() {
	<-job.done
}

// SpawnJob runs start in the background and invokes shutdown once
// RequestStop is called.
func SpawnJob(start func(), shutdown func()) RunningJob {
	job := RunningJob{
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	go start()
	go func() {
		defer close(job.done)
		<-job.stop
		shutdown()
	}()
	return job
}

// CombineJobs folds several jobs into one. A stop request fans out to
// every member and AwaitStop returns after all of them have drained.
func CombineJobs(jobs ...RunningJob) RunningJob {
	return SpawnJob(func() {}, func() {
		for _, job := range jobs {
			job.RequestStop()
		}
		for _, job := range jobs {
			job.AwaitStop()
		}
	})
}
