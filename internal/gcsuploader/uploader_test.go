package gcsuploader

import "testing"

func TestParseGCSURI(t *testing.T) {
	tests := []struct {
		uri        string
		wantBucket string
		wantObject string
		wantErr    bool
	}{
		{"gs://bucket/receipts/u1/r1.png", "bucket", "receipts/u1/r1.png", false},
		{"gs://bucket/file.jpg", "bucket", "file.jpg", false},
		{"gs://bucket", "", "", true},
		{"gs://bucket/", "", "", true},
		{"https://example.com/file.jpg", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			bucket, object, err := ParseGCSURI(tt.uri)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseGCSURI() error = %v, wantErr %v", err, tt.wantErr)
			}
			if bucket != tt.wantBucket || object != tt.wantObject {
				t.Errorf("ParseGCSURI() = (%q, %q), want (%q, %q)", bucket, object, tt.wantBucket, tt.wantObject)
			}
		})
	}
}

func TestReceiptObjectName(t *testing.T) {
	tests := []struct {
		contentType string
		want        string
	}{
		{"image/png", "receipts/u1/r1.png"},
		{"image/jpeg", "receipts/u1/r1.jpg"},
		{"IMAGE/WEBP", "receipts/u1/r1.webp"},
		{"", "receipts/u1/r1.jpg"},
	}
	for _, tt := range tests {
		if got := ReceiptObjectName("u1", "r1", tt.contentType); got != tt.want {
			t.Errorf("ReceiptObjectName(%q) = %q, want %q", tt.contentType, got, tt.want)
		}
	}
}

func TestObjectURI(t *testing.T) {
	if got := ObjectURI("b", "/receipts/x.png"); got != "gs://b/receipts/x.png" {
		t.Errorf("ObjectURI = %q", got)
	}
}
