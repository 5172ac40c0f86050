package jobs

import (
	"context"
	"time"
)

// JobType represents the type of job to be executed.
type JobType string

const (
	// JobTypeArchiveReceipt uploads a receipt image and records the model reply.
	JobTypeArchiveReceipt JobType = "archive_receipt"
)

// JobStatus represents the current status of a job.
type JobStatus string

const (
	// JobStatusPending indicates the job is waiting to be processed.
	JobStatusPending JobStatus = "pending"
	// JobStatusRunning indicates the job is currently being processed.
	JobStatusRunning JobStatus = "running"
	// JobStatusCompleted indicates the job completed successfully.
	JobStatusCompleted JobStatus = "completed"
	// JobStatusFailed indicates the job failed.
	JobStatusFailed JobStatus = "failed"
	// JobStatusRetrying indicates the job failed and is being retried.
	JobStatusRetrying JobStatus = "retrying"
)

// ArchiveReceiptJob archives one analyzed receipt: the image goes to
// object storage and the raw model reply goes to model_outputs.
type ArchiveReceiptJob struct {
	JobID     string `json:"job_id"`
	ReceiptID string `json:"receipt_id"`
	UserID    string `json:"user_id"`

	// ObjectName is the destination object inside the archive bucket.
	ObjectName  string `json:"object_name"`
	ContentType string `json:"content_type"`

	// Image and RawText are not persisted in the store snapshot.
	Image   []byte `json:"-"`
	RawText string `json:"-"`

	ModelName string `json:"model_name"`
	ItemCount int    `json:"item_count"`

	// ImageURI is filled once the upload succeeded.
	ImageURI string `json:"image_uri,omitempty"`

	Status      JobStatus  `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Error       string     `json:"error,omitempty"`
	RetryCount  int        `json:"retry_count"`
	MaxRetries  int        `json:"max_retries"`
}

// Job is a generic interface for all job types.
type Job interface {
	GetID() string
	GetType() JobType
	GetStatus() JobStatus
}

// GetID implements the Job interface.
func (j *ArchiveReceiptJob) GetID() string {
	return j.JobID
}

// GetType implements the Job interface.
func (j *ArchiveReceiptJob) GetType() JobType {
	return JobTypeArchiveReceipt
}

// GetStatus implements the Job interface.
func (j *ArchiveReceiptJob) GetStatus() JobStatus {
	return j.Status
}

// Publisher defines the interface for publishing jobs to a queue.
type Publisher interface {
	// PublishArchiveReceipt enqueues a receipt archive job.
	PublishArchiveReceipt(ctx context.Context, job *ArchiveReceiptJob) error

	// Close closes the publisher and releases resources.
	Close() error
}

// Consumer defines the interface for consuming jobs from a queue.
type Consumer interface {
	// Start begins consuming jobs from the queue.
	// The handler function is called for each job received.
	Start(ctx context.Context, handler JobHandler) error

	// Stop stops consuming jobs and waits for in-flight jobs to complete.
	Stop(ctx context.Context) error
}

// JobHandler is a function that processes a job.
// It should return an error if the job failed and should be retried.
type JobHandler func(ctx context.Context, job Job) error

// JobStore defines the interface for storing and retrieving job status.
type JobStore interface {
	// SaveJob saves or updates a job's state.
	SaveJob(ctx context.Context, job *ArchiveReceiptJob) error

	// GetJob retrieves a job by ID.
	GetJob(ctx context.Context, jobID string) (*ArchiveReceiptJob, error)

	// ListJobs retrieves jobs with optional filtering.
	ListJobs(ctx context.Context, filter JobFilter) ([]*ArchiveReceiptJob, error)

	// UpdateJobStatus updates the status of a job.
	UpdateJobStatus(ctx context.Context, jobID string, status JobStatus, errorMsg string) error
}

// JobFilter defines filtering criteria for listing jobs.
type JobFilter struct {
	UserID    string
	ReceiptID string
	Status    JobStatus
	Limit     int
	Offset    int
}
