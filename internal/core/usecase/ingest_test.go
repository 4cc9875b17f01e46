package usecase

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/uxlab/synthetic-merchant/internal/core/domain"
)

type storageFake struct {
	saved map[string]string
	err   error
}

func (f *storageFake) Save(_ context.Context, key string, data io.Reader) error {
	if f.err != nil {
		return f.err
	}
	content, _ := io.ReadAll(data)
	if f.saved == nil {
		f.saved = make(map[string]string)
	}
	f.saved[key] = string(content)
	return nil
}

func (f *storageFake) Open(context.Context, string) (io.ReadCloser, error) {
	return nil, errors.New("not implemented")
}

type queueFake struct {
	published []string
	err       error
}

func (f *queueFake) PublishTranscriptIngested(_ context.Context, transcriptID string) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, transcriptID)
	return nil
}

func (f *queueFake) SubscribeTranscriptIngested(context.Context, func(ctx context.Context, transcriptID string) error) error {
	return nil
}

func (f *queueFake) Close() {}

func TestUploadPersistsAndPublishes(t *testing.T) {
	storage := &storageFake{}
	queue := &queueFake{}
	uc := NewIngestTranscriptUseCase(&processRepoFake{}, storage, queue)

	got, err := uc.Upload(context.Background(), "merchant call.txt", "text/plain", strings.NewReader("dialogue"))
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if got.ID == "" || got.Status != domain.StatusUploaded {
		t.Fatalf("unexpected transcript: %+v", got)
	}
	if !strings.HasSuffix(got.StoragePath, "_merchant_call.txt") {
		t.Fatalf("unexpected storage key %q", got.StoragePath)
	}
	if storage.saved[got.StoragePath] != "dialogue" {
		t.Fatalf("content not stored under %q", got.StoragePath)
	}
	if len(queue.published) != 1 || queue.published[0] != got.ID {
		t.Fatalf("ingestion event not published: %v", queue.published)
	}
}

func TestUploadFailsWhenStorageFails(t *testing.T) {
	queue := &queueFake{}
	uc := NewIngestTranscriptUseCase(&processRepoFake{}, &storageFake{err: errors.New("disk full")}, queue)

	if _, err := uc.Upload(context.Background(), "a.txt", "text/plain", strings.NewReader("x")); err == nil {
		t.Fatal("expected error")
	}
	if len(queue.published) != 0 {
		t.Fatal("event published despite storage failure")
	}
}

func TestUploadFailsWhenPublishFails(t *testing.T) {
	uc := NewIngestTranscriptUseCase(&processRepoFake{}, &storageFake{}, &queueFake{err: errors.New("nats down")})

	if _, err := uc.Upload(context.Background(), "a.txt", "text/plain", strings.NewReader("x")); err == nil {
		t.Fatal("expected error")
	}
}

func TestSanitizeFilename(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"merchant call.txt", "merchant_call.txt"},
		{"../../etc/passwd", "passwd"},
		{"отчёт.pdf", "_____.pdf"},
		{"report-2026_q1.xlsx", "report-2026_q1.xlsx"},
		{"", "transcript.bin"},
	}
	for _, tc := range cases {
		if got := sanitizeFilename(tc.in); got != tc.want {
			t.Fatalf("sanitizeFilename(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
