package inmemory

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/dvloznov/receipt-tracker/internal/jobs"
)

// defaultRetention is how many finished archive jobs are kept per user.
const defaultRetention = 100

// Store keeps archive job snapshots in memory, indexed by owner.
// Snapshots never hold the image or the model reply.
type Store struct {
	mu        sync.RWMutex
	byID      map[string]*jobs.ArchiveReceiptJob
	byOwner   map[string][]string // job IDs in creation order
	retention int
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithRetention caps the finished jobs kept per user; the oldest finished
// jobs are dropped first. Pending and running jobs are never dropped.
func WithRetention(n int) StoreOption {
	return func(s *Store) {
		if n > 0 {
			s.retention = n
		}
	}
}

// NewStore creates an empty Store.
func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		byID:      make(map[string]*jobs.ArchiveReceiptJob),
		byOwner:   make(map[string][]string),
		retention: defaultRetention,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SaveJob inserts or replaces the snapshot of job.
func (s *Store) SaveJob(ctx context.Context, job *jobs.ArchiveReceiptJob) error {
	if job.JobID == "" {
		return errors.New("SaveJob: job ID is required")
	}

	snapshot := *job
	snapshot.Image = nil
	snapshot.RawText = ""

	s.mu.Lock()
	defer s.mu.Unlock()

	prev, exists := s.byID[job.JobID]
	if exists && prev.UserID != job.UserID {
		s.unindex(prev.UserID, job.JobID)
		exists = false
	}
	if !exists {
		s.insertOrdered(&snapshot)
	}
	s.byID[job.JobID] = &snapshot
	s.evict(job.UserID)

	return nil
}

// GetJob returns a copy of the snapshot for jobID.
func (s *Store) GetJob(ctx context.Context, jobID string) (*jobs.ArchiveReceiptJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.byID[jobID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", jobs.ErrJobNotFound, jobID)
	}
	out := *job
	return &out, nil
}

// ListJobs returns copies of the matching jobs, oldest first. With a UserID
// filter only that user's index is walked.
func (s *Store) ListJobs(ctx context.Context, filter jobs.JobFilter) ([]*jobs.ArchiveReceiptJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []string
	if filter.UserID != "" {
		ids = s.byOwner[filter.UserID]
	} else {
		for _, owned := range s.byOwner {
			ids = append(ids, owned...)
		}
	}

	matched := make([]*jobs.ArchiveReceiptJob, 0, len(ids))
	for _, id := range ids {
		job := s.byID[id]
		if filter.ReceiptID != "" && job.ReceiptID != filter.ReceiptID {
			continue
		}
		if filter.Status != "" && job.Status != filter.Status {
			continue
		}
		out := *job
		matched = append(matched, &out)
	}

	if filter.UserID == "" {
		slices.SortStableFunc(matched, func(a, b *jobs.ArchiveReceiptJob) int {
			return a.CreatedAt.Compare(b.CreatedAt)
		})
	}

	if filter.Offset >= len(matched) {
		return []*jobs.ArchiveReceiptJob{}, nil
	}
	matched = matched[max(filter.Offset, 0):]
	if filter.Limit > 0 && filter.Limit < len(matched) {
		matched = matched[:filter.Limit]
	}
	return matched, nil
}

// UpdateJobStatus sets the status of jobID; a non-empty errorMsg replaces the
// recorded error.
func (s *Store) UpdateJobStatus(ctx context.Context, jobID string, status jobs.JobStatus, errorMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.byID[jobID]
	if !ok {
		return fmt.Errorf("%w: %s", jobs.ErrJobNotFound, jobID)
	}
	job.Status = status
	if errorMsg != "" {
		job.Error = errorMsg
	}
	s.evict(job.UserID)
	return nil
}

// insertOrdered adds job to its owner's index, keeping creation order.
func (s *Store) insertOrdered(job *jobs.ArchiveReceiptJob) {
	ids := s.byOwner[job.UserID]
	i := len(ids)
	for i > 0 && s.byID[ids[i-1]].CreatedAt.After(job.CreatedAt) {
		i--
	}
	s.byOwner[job.UserID] = slices.Insert(ids, i, job.JobID)
}

func (s *Store) unindex(owner, jobID string) {
	ids := slices.DeleteFunc(s.byOwner[owner], func(id string) bool { return id == jobID })
	if len(ids) == 0 {
		delete(s.byOwner, owner)
		return
	}
	s.byOwner[owner] = ids
}

// evict drops the owner's oldest finished jobs beyond the retention cap.
func (s *Store) evict(owner string) {
	ids := s.byOwner[owner]
	finished := 0
	for _, id := range ids {
		if isFinished(s.byID[id].Status) {
			finished++
		}
	}
	if finished <= s.retention {
		return
	}

	drop := finished - s.retention
	kept := ids[:0]
	for _, id := range ids {
		if drop > 0 && isFinished(s.byID[id].Status) {
			delete(s.byID, id)
			drop--
			continue
		}
		kept = append(kept, id)
	}
	s.byOwner[owner] = kept
}

func isFinished(status jobs.JobStatus) bool {
	return status == jobs.JobStatusCompleted || status == jobs.JobStatusFailed
}

var _ jobs.JobStore = (*Store)(nil)
