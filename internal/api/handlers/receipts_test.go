package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/receipt-tracker/internal/domain"
	"github.com/dvloznov/receipt-tracker/internal/jobs"
	"github.com/dvloznov/receipt-tracker/internal/jobs/inmemory"
	"github.com/dvloznov/receipt-tracker/internal/logger"
	"github.com/dvloznov/receipt-tracker/internal/pipeline"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

func multipartRequest(t *testing.T, field, contentType string, data []byte) *http.Request {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename="receipt"`, field))
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	if err != nil {
		t.Fatalf("CreatePart: %v", err)
	}
	if _, err := part.Write(data); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/receipts/analyze", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

type analyzeBody struct {
	Items      []domain.LineItem    `json:"items"`
	Rejected   []pipeline.Rejection `json:"rejected"`
	ReceiptID  string               `json:"receiptId"`
	ReceiptURL string               `json:"receiptUrl"`
	JobID      string               `json:"jobId"`
	Error      string               `json:"error"`
}

func decodeAnalyze(t *testing.T, rec *httptest.ResponseRecorder) analyzeBody {
	t.Helper()
	var body analyzeBody
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return body
}

func TestAnalyze_EndToEnd(t *testing.T) {
	reply := "Sure! Here you go:\n```json\n" +
		`{"items":[{"name":"Taxi","amount":12000,"date":"2024-03-01","type":"expense","category":"transport","isNewCategory":false},` +
		`{"name":"Refund","amount":-5,"category":"Food"}]}` +
		"\n```"
	analyzer := pipeline.NewAnalyzer(&mockCategoryRepo{}, &mockVisionModel{reply: reply})
	h := NewReceiptsHandler(analyzer, nil, "", logger.Nop())

	rec := httptest.NewRecorder()
	h.Analyze(rec, withUser(multipartRequest(t, "image", "image/png", pngBytes), testUser))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	body := decodeAnalyze(t, rec)
	if len(body.Items) != 1 {
		t.Fatalf("expected 1 item, got %+v", body.Items)
	}
	item := body.Items[0]
	if item.Name != "Taxi" || item.Amount != 12000 || item.CategoryID == nil || *item.CategoryID != "default-transport" {
		t.Errorf("unexpected item %+v", item)
	}
	if len(body.Rejected) != 1 || body.Rejected[0].Index != 1 {
		t.Errorf("Rejected = %+v", body.Rejected)
	}
	if body.ReceiptID == "" {
		t.Error("expected a receipt id")
	}
	if body.ReceiptURL != "" || body.JobID != "" {
		t.Error("nothing is archived without a publisher")
	}
}

func TestAnalyze_Errors(t *testing.T) {
	tests := []struct {
		name       string
		request    func(t *testing.T) *http.Request
		analyzeErr error
		wantStatus int
		wantError  string
	}{
		{
			name: "unauthenticated",
			request: func(t *testing.T) *http.Request {
				return multipartRequest(t, "image", "image/png", pngBytes)
			},
			wantStatus: http.StatusUnauthorized,
			wantError:  "Unauthorized",
		},
		{
			name: "missing image field",
			request: func(t *testing.T) *http.Request {
				return withUser(multipartRequest(t, "file", "image/png", pngBytes), testUser)
			},
			wantStatus: http.StatusBadRequest,
			wantError:  "No image provided",
		},
		{
			name: "not multipart",
			request: func(t *testing.T) *http.Request {
				req := httptest.NewRequest(http.MethodPost, "/api/receipts/analyze", strings.NewReader(`{}`))
				req.Header.Set("Content-Type", "application/json")
				return withUser(req, testUser)
			},
			wantStatus: http.StatusBadRequest,
			wantError:  "No image provided",
		},
		{
			name: "empty image",
			request: func(t *testing.T) *http.Request {
				return withUser(multipartRequest(t, "image", "image/png", pngBytes), testUser)
			},
			analyzeErr: pipeline.ErrNoImage,
			wantStatus: http.StatusBadRequest,
			wantError:  "No image provided",
		},
		{
			name: "too large",
			request: func(t *testing.T) *http.Request {
				return withUser(multipartRequest(t, "image", "image/png", pngBytes), testUser)
			},
			analyzeErr: pipeline.ErrImageTooLarge,
			wantStatus: http.StatusRequestEntityTooLarge,
			wantError:  "Image too large",
		},
		{
			name: "provider failure",
			request: func(t *testing.T) *http.Request {
				return withUser(multipartRequest(t, "image", "image/png", pngBytes), testUser)
			},
			analyzeErr: fmt.Errorf("%w: quota exceeded for key sk-secret", pipeline.ErrAnalysisFailed),
			wantStatus: http.StatusInternalServerError,
			wantError:  "Failed to analyze receipt",
		},
		{
			name: "malformed reply",
			request: func(t *testing.T) *http.Request {
				return withUser(multipartRequest(t, "image", "image/png", pngBytes), testUser)
			},
			analyzeErr: pipeline.ErrMalformedResponse,
			wantStatus: http.StatusInternalServerError,
			wantError:  "Failed to analyze receipt",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			analyzer := &mockAnalyzer{AnalyzeFunc: func(ctx context.Context, userID string, r io.Reader, declaredMIME string) (*pipeline.Analysis, error) {
				if tt.analyzeErr != nil {
					return nil, tt.analyzeErr
				}
				return &pipeline.Analysis{}, nil
			}}
			h := NewReceiptsHandler(analyzer, nil, "", logger.Nop())

			rec := httptest.NewRecorder()
			h.Analyze(rec, tt.request(t))

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			body := decodeAnalyze(t, rec)
			if body.Error != tt.wantError {
				t.Errorf("error = %q, want %q", body.Error, tt.wantError)
			}
		})
	}
}

func TestAnalyze_PublishesArchiveJob(t *testing.T) {
	store := inmemory.NewStore()
	queue := inmemory.NewQueue(4, store)
	defer queue.Close()

	analyzer := &mockAnalyzer{AnalyzeFunc: func(ctx context.Context, userID string, r io.Reader, declaredMIME string) (*pipeline.Analysis, error) {
		if declaredMIME != "image/png" {
			t.Errorf("declaredMIME = %q", declaredMIME)
		}
		return &pipeline.Analysis{
			Items:     []domain.LineItem{{Name: "Coffee", Amount: 4500, Date: civil.Date{Year: 2024, Month: time.March, Day: 5}}},
			RawText:   `{"items":[]}`,
			Image:     pipeline.Image{Data: pngBytes, MIMEType: "image/png"},
			ModelName: "mock-vision",
		}, nil
	}}
	h := NewReceiptsHandler(analyzer, queue, "receipts-bucket", logger.Nop())

	rec := httptest.NewRecorder()
	h.Analyze(rec, withUser(multipartRequest(t, "image", "image/png", pngBytes), testUser))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	body := decodeAnalyze(t, rec)

	wantURL := "gs://receipts-bucket/receipts/" + testUser + "/" + body.ReceiptID + ".png"
	if body.ReceiptURL != wantURL {
		t.Errorf("ReceiptURL = %q, want %q", body.ReceiptURL, wantURL)
	}

	saved, err := store.GetJob(context.Background(), body.JobID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if saved.ReceiptID != body.ReceiptID || saved.UserID != testUser || saved.ItemCount != 1 {
		t.Errorf("unexpected job %+v", saved)
	}
	if saved.Status != jobs.JobStatusPending {
		t.Errorf("Status = %q, want pending", saved.Status)
	}
}
