package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dvloznov/receipt-tracker/internal/jobs"
	"github.com/dvloznov/receipt-tracker/internal/jobs/inmemory"
	"github.com/dvloznov/receipt-tracker/internal/logger"
)

func TestJobs_OwnerScoped(t *testing.T) {
	store := inmemory.NewStore()
	ctx := context.Background()
	now := time.Now()
	for _, j := range []*jobs.ArchiveReceiptJob{
		{JobID: "job-1", ReceiptID: "r1", UserID: testUser, Status: jobs.JobStatusCompleted, CreatedAt: now},
		{JobID: "job-2", ReceiptID: "r2", UserID: "user-2", Status: jobs.JobStatusPending, CreatedAt: now},
	} {
		if err := store.SaveJob(ctx, j); err != nil {
			t.Fatalf("SaveJob: %v", err)
		}
	}

	h := NewJobsHandler(store, logger.Nop())
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/jobs/{id}", h.GetJob)
	mux.HandleFunc("GET /api/jobs", h.ListJobs)

	for id, want := range map[string]int{"job-1": http.StatusOK, "job-2": http.StatusNotFound, "job-3": http.StatusNotFound} {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, withUser(httptest.NewRequest(http.MethodGet, "/api/jobs/"+id, nil), testUser))
		if rec.Code != want {
			t.Errorf("%s: status = %d, want %d", id, rec.Code, want)
		}
	}

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, withUser(httptest.NewRequest(http.MethodGet, "/api/jobs", nil), testUser))
	var body struct {
		Jobs  []jobs.ArchiveReceiptJob `json:"jobs"`
		Count int                      `json:"count"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Count != 1 || body.Jobs[0].JobID != "job-1" {
		t.Errorf("unexpected jobs %+v", body)
	}
}
