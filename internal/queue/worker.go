package queue

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path"
	"path/filepath"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/codebuildervaibhav/voice-to-text/internal/metrics"
	"github.com/codebuildervaibhav/voice-to-text/internal/storage"
	"github.com/codebuildervaibhav/voice-to-text/internal/transcription"
	"github.com/codebuildervaibhav/voice-to-text/internal/types"
)

var (
	ErrQueueFull   = errors.New("job queue is full")
	ErrPoolStopped = errors.New("worker pool is stopped")
	ErrJobNotFound = errors.New("job not found")
)

// finished jobs stay queryable for this long
const jobRetention = 24 * time.Hour

// ObjectStore uploads staged audio and removes it afterwards
type ObjectStore interface {
	Upload(ctx context.Context, path, bucket, key string) (string, int64, error)
	Delete(ctx context.Context, bucket, key string) error
}

// ResultFetcher downloads a result document and extracts the transcript
type ResultFetcher interface {
	Fetch(ctx context.Context, uri string) (string, error)
}

// TranscriptStore keeps a local copy of each transcript
type TranscriptStore interface {
	SaveTranscript(requestName string, result *types.TranscriptionResult) (string, error)
}

// TranscriptMirror copies transcripts to a remote folder
type TranscriptMirror interface {
	Upload(ctx context.Context, requestName string, result *types.TranscriptionResult) (string, error)
}

// MetadataStore records finished jobs
type MetadataStore interface {
	SaveTranscript(rec storage.TranscriptRecord) error
}

// PoolConfig holds the pool's sizing and the remote layout
type PoolConfig struct {
	Workers   int
	QueueSize int

	Bucket           string
	InputPrefix      string
	ResultBucket     string
	OutputPrefix     string
	DeleteInputAfter bool

	LanguageCode    string
	PollInterval    time.Duration
	MaxPollAttempts int
}

// Dependencies are the collaborators a job runs through. Mirror, DB and
// Metrics are optional.
type Dependencies struct {
	Objects ObjectStore
	Service transcription.Service
	Fetcher ResultFetcher
	Names   *transcription.NameGenerator
	Scratch *storage.Scratch
	Local   TranscriptStore
	Mirror  TranscriptMirror
	DB      MetadataStore
	Metrics *metrics.Metrics
}

// WorkerPool manages a pool of workers processing transcription jobs
type WorkerPool struct {
	cfg  PoolConfig
	deps Dependencies

	jobQueue chan *Job

	mu   sync.RWMutex
	jobs map[string]*Job

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewWorkerPool creates a new worker pool
func NewWorkerPool(cfg PoolConfig, deps Dependencies) *WorkerPool {
	if deps.Metrics == nil {
		deps.Metrics = metrics.NewMetrics(prometheus.NewRegistry())
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &WorkerPool{
		cfg:      cfg,
		deps:     deps,
		jobQueue: make(chan *Job, cfg.QueueSize),
		jobs:     make(map[string]*Job),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start initializes all workers
func (wp *WorkerPool) Start() {
	log.Printf("Starting worker pool with %d workers", wp.cfg.Workers)
	for i := 0; i < wp.cfg.Workers; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
}

// Stop cancels running jobs, waits for the workers to exit and cancels
// whatever was still waiting in the queue
func (wp *WorkerPool) Stop() {
	wp.mu.Lock()
	wp.cancel()
	wp.mu.Unlock()
	wp.wg.Wait()

	for {
		select {
		case job := <-wp.jobQueue:
			wp.deps.Metrics.QueueDepth.Dec()
			if job.finish(types.StatusCancelled, ErrPoolStopped, nil) {
				wp.deps.Metrics.JobsCancelled.Inc()
			}
			wp.deps.Scratch.Remove(job.FilePath)
			log.Printf("Job %s cancelled at shutdown", job.ID)
		default:
			log.Println("Worker pool stopped")
			return
		}
	}
}

// EnqueueJob registers a job and hands it to the workers. It never blocks:
// a full queue is reported as ErrQueueFull.
func (wp *WorkerPool) EnqueueJob(job *Job) error {
	wp.mu.Lock()
	defer wp.mu.Unlock()

	if wp.ctx.Err() != nil {
		return ErrPoolStopped
	}
	if job.Language == "" {
		job.Language = wp.cfg.LanguageCode
	}
	job.ctx, job.cancel = context.WithCancel(wp.ctx)

	wp.pruneLocked(time.Now())
	wp.jobs[job.ID] = job

	// counted before the send so a worker's Dec never runs first
	wp.deps.Metrics.QueueDepth.Inc()
	select {
	case wp.jobQueue <- job:
	default:
		wp.deps.Metrics.QueueDepth.Dec()
		job.cancel()
		delete(wp.jobs, job.ID)
		return ErrQueueFull
	}

	wp.deps.Metrics.JobsEnqueued.WithLabelValues(job.SourceType).Inc()
	log.Printf("Job %s enqueued (source: %s, name: %s)", job.ID, job.SourceType, job.RequestName)
	return nil
}

// Get returns a snapshot of a known job
func (wp *WorkerPool) Get(id string) (JobView, error) {
	wp.mu.RLock()
	job, ok := wp.jobs[id]
	wp.mu.RUnlock()
	if !ok {
		return JobView{}, ErrJobNotFound
	}
	return job.Snapshot(), nil
}

// Cancel stops a queued or running job. Jobs that are already writing
// their results finish normally and are returned unchanged.
func (wp *WorkerPool) Cancel(id string) (JobView, error) {
	wp.mu.RLock()
	job, ok := wp.jobs[id]
	wp.mu.RUnlock()
	if !ok {
		return JobView{}, ErrJobNotFound
	}

	if job.tryCancel() {
		wp.deps.Metrics.JobsCancelled.Inc()
		job.cancel()
		log.Printf("Job %s cancelled", job.ID)
	}
	return job.Snapshot(), nil
}

func (wp *WorkerPool) pruneLocked(now time.Time) {
	for id, job := range wp.jobs {
		if job.Done() && now.Sub(job.Snapshot().UpdatedAt) > jobRetention {
			delete(wp.jobs, id)
		}
	}
}

// worker processes jobs from the queue
func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()
	log.Printf("Worker %d started", id)

	for {
		select {
		case <-wp.ctx.Done():
			return
		case job := <-wp.jobQueue:
			wp.deps.Metrics.QueueDepth.Dec()
			wp.runJob(id, job)
		}
	}
}

// runJob wraps processJob with panic recovery and scratch cleanup, so the
// staged file is removed on every path
func (wp *WorkerPool) runJob(workerID int, job *Job) {
	start := time.Now()
	defer wp.deps.Scratch.Remove(job.FilePath)
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Worker %d: PANIC processing job %s: %v\n%s",
				workerID, job.ID, r, string(debug.Stack()))
			wp.fail(workerID, job, "panic", fmt.Errorf("worker panic: %v", r))
		}
		wp.deps.Metrics.JobDuration.Observe(time.Since(start).Seconds())
	}()

	if job.Done() {
		log.Printf("Worker %d: Skipping job %s (%s)", workerID, job.ID, job.Snapshot().Status)
		return
	}
	wp.processJob(workerID, job)
}

// processJob handles the complete transcription pipeline
func (wp *WorkerPool) processJob(workerID int, job *Job) {
	ctx := job.ctx
	log.Printf("Worker %d: Processing job %s", workerID, job.ID)
	if err := ctx.Err(); err != nil {
		wp.fail(workerID, job, "queued", err)
		return
	}

	// Step 1: Inspect staged audio
	mediaFormat, err := transcription.MediaFormat(job.FilePath)
	if err != nil {
		wp.fail(workerID, job, "validate", err)
		return
	}
	var duration float64
	if mediaFormat == "wav" {
		if duration, err = transcription.WAVDuration(job.FilePath); err != nil {
			log.Printf("Worker %d: WARNING - could not read duration for job %s: %v", workerID, job.ID, err)
		}
	}

	// Step 2: Upload to object storage
	jobName := wp.deps.Names.Next()
	job.setTranscriptionJob(jobName)
	job.setStage(StageUploading)

	inputKey := path.Join(wp.cfg.InputPrefix, jobName+strings.ToLower(filepath.Ext(job.FilePath)))
	uploadStart := time.Now()
	mediaURI, size, err := wp.deps.Objects.Upload(ctx, job.FilePath, wp.cfg.Bucket, inputKey)
	if err != nil {
		wp.fail(workerID, job, "upload", fmt.Errorf("failed to upload to storage: %w", err))
		return
	}
	wp.deps.Metrics.UploadBytes.Add(float64(size))
	wp.deps.Metrics.UploadDuration.Observe(time.Since(uploadStart).Seconds())
	log.Printf("Worker %d: Uploaded %s to %s (%d bytes)", workerID, filepath.Base(job.FilePath), mediaURI, size)

	if wp.cfg.DeleteInputAfter {
		defer wp.deleteInput(workerID, inputKey)
	}

	// Step 3: Submit the transcription job
	job.setStage(StageSubmitting)
	req := transcription.JobRequest{
		Name:         jobName,
		MediaURI:     mediaURI,
		MediaFormat:  mediaFormat,
		LanguageCode: job.Language,
	}
	if wp.cfg.ResultBucket != "" {
		req.OutputBucket = wp.cfg.ResultBucket
		req.OutputKey = path.Join(wp.cfg.OutputPrefix, jobName+".json")
	}
	if err := wp.deps.Service.StartJob(ctx, req); err != nil {
		wp.fail(workerID, job, "submit", fmt.Errorf("failed to start transcription job: %w", err))
		return
	}

	// Step 4: Wait for a terminal state
	job.setStage(StageTranscribing)
	poller := &transcription.Poller{
		Service:     wp.deps.Service,
		Interval:    wp.cfg.PollInterval,
		MaxAttempts: wp.cfg.MaxPollAttempts,
		OnAttempt: func(attempt int, info *transcription.JobInfo) {
			wp.deps.Metrics.PollAttempts.Inc()
			job.setPollAttempts(attempt)
			if !info.Status.IsTerminal() {
				log.Printf("Worker %d: Job %s transcription in progress (check %d/%d, status %s)",
					workerID, job.ID, attempt, wp.cfg.MaxPollAttempts, info.Status)
			}
		},
	}
	info, err := poller.Wait(ctx, jobName)
	if err != nil {
		wp.fail(workerID, job, "transcribe", err)
		return
	}

	// Step 5: Fetch the transcript
	job.setStage(StageFetching)
	resultURI := info.TranscriptURI
	if req.OutputBucket != "" {
		resultURI = storage.ObjectURI(req.OutputBucket, req.OutputKey)
	}
	text, err := wp.deps.Fetcher.Fetch(ctx, resultURI)
	if err != nil {
		wp.fail(workerID, job, "fetch", fmt.Errorf("failed to retrieve transcript: %w", err))
		return
	}

	result := &types.TranscriptionResult{
		JobID:            job.ID,
		TranscriptionJob: jobName,
		Text:             text,
		Language:         job.Language,
		MediaURI:         mediaURI,
		TranscriptURI:    resultURI,
		Duration:         duration,
		WordCount:        len(strings.Fields(text)),
		ProcessedAt:      time.Now(),
	}

	// Step 6: Save locally. Past this point a cancel request no longer
	// applies, so history and job status always agree.
	if err := ctx.Err(); err != nil {
		wp.fail(workerID, job, "fetch", err)
		return
	}
	if !job.commit() {
		log.Printf("Worker %d: Job %s cancelled before saving", workerID, job.ID)
		return
	}
	localPath, err := wp.deps.Local.SaveTranscript(job.RequestName, result)
	if err != nil {
		wp.fail(workerID, job, "save", fmt.Errorf("local save failed: %w", err))
		return
	}
	result.LocalPath = localPath

	// Step 7: Mirror to Google Drive (with retry)
	if wp.deps.Mirror != nil {
		result.GDriveURL = wp.mirror(ctx, workerID, job, result)
	}

	// Step 8: Save metadata to database
	if wp.deps.DB != nil {
		err := wp.deps.DB.SaveTranscript(storage.TranscriptRecord{
			JobID:            job.ID,
			RequestName:      job.RequestName,
			SourceType:       job.SourceType,
			TranscriptionJob: jobName,
			MediaURI:         mediaURI,
			TranscriptURI:    resultURI,
			GDriveURL:        result.GDriveURL,
			LocalPath:        localPath,
			CreatedAt:        result.ProcessedAt,
			Duration:         duration,
			WordCount:        result.WordCount,
		})
		if err != nil {
			log.Printf("Worker %d: Database save failed: %v", workerID, err)
		}
	}

	if job.finish(types.StatusCompleted, nil, result) {
		wp.deps.Metrics.JobsCompleted.Inc()
		wp.deps.Metrics.TranscriptSize.Observe(float64(result.WordCount))
	}
	log.Printf("Worker %d: Job %s completed successfully (transcription job: %s, words: %d, local: %s)",
		workerID, job.ID, jobName, result.WordCount, localPath)
}

func (wp *WorkerPool) mirror(ctx context.Context, workerID int, job *Job, result *types.TranscriptionResult) string {
	var err error
	for attempt := 1; attempt <= 3; attempt++ {
		var url string
		url, err = wp.deps.Mirror.Upload(ctx, job.RequestName, result)
		if err == nil {
			return url
		}
		log.Printf("Worker %d: Google Drive upload attempt %d/3 failed: %v", workerID, attempt, err)
		if attempt < 3 {
			select {
			case <-ctx.Done():
				return ""
			case <-time.After(time.Duration(attempt*attempt) * time.Second):
			}
		}
	}
	log.Printf("Worker %d: WARNING - Google Drive upload failed after 3 attempts, continuing with local save only", workerID)
	return ""
}

func (wp *WorkerPool) deleteInput(workerID int, key string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := wp.deps.Objects.Delete(ctx, wp.cfg.Bucket, key); err != nil {
		log.Printf("Worker %d: Failed to delete input object %s: %v", workerID, key, err)
	}
}

// fail records a failed (or cancelled) job
func (wp *WorkerPool) fail(workerID int, job *Job, stage string, err error) {
	if errors.Is(err, context.Canceled) || job.ctx.Err() != nil {
		if job.finish(types.StatusCancelled, err, nil) {
			wp.deps.Metrics.JobsCancelled.Inc()
		}
		log.Printf("Worker %d: Job %s cancelled during %s", workerID, job.ID, stage)
		return
	}
	if job.finish(types.StatusFailed, err, nil) {
		wp.deps.Metrics.JobsFailed.WithLabelValues(stage).Inc()
	}
	log.Printf("Worker %d: Job %s failed during %s: %v", workerID, job.ID, stage, err)
}
