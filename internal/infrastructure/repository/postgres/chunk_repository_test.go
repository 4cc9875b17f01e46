package postgres

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/uxlab/synthetic-merchant/internal/core/domain"
)

func newChunkRepoWithMock(t *testing.T) (*ChunkRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	return &ChunkRepository{db: db}, mock, func() { _ = db.Close() }
}

func TestReplaceForTranscriptDeletesThenInserts(t *testing.T) {
	repo, mock, done := newChunkRepoWithMock(t)
	defer done()

	chunks := []domain.Chunk{
		{ID: "tr-1:0000", TranscriptID: "tr-1", Ordinal: 0, Text: "a"},
		{ID: "tr-1:0001", TranscriptID: "tr-1", Ordinal: 1, Text: "b"},
	}
	vectors := [][]float32{{1, 0}, {0, 1}}

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM chunks").
		WithArgs("tr-1").
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec("INSERT INTO chunks").
		WithArgs("tr-1:0000", "tr-1", 0, "a", []byte(`[]`), encodeVector(vectors[0])).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO chunks").
		WithArgs("tr-1:0001", "tr-1", 1, "b", []byte(`[]`), encodeVector(vectors[1])).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := repo.ReplaceForTranscript(context.Background(), "tr-1", chunks, vectors); err != nil {
		t.Fatalf("ReplaceForTranscript() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestReplaceForTranscriptRejectsMismatchedLengths(t *testing.T) {
	repo, _, done := newChunkRepoWithMock(t)
	defer done()

	err := repo.ReplaceForTranscript(context.Background(), "tr-1",
		[]domain.Chunk{{ID: "tr-1:0000"}}, nil)
	if err == nil {
		t.Fatal("expected error for chunk/vector count mismatch")
	}
}

func TestLoadAllStreamsDecodedVectors(t *testing.T) {
	repo, mock, done := newChunkRepoWithMock(t)
	defer done()

	rows := sqlmock.NewRows([]string{"id", "transcript_id", "ordinal", "text", "topics", "embedding"}).
		AddRow("tr-1:0000", "tr-1", 0, "a", []byte(`["fees"]`), encodeVector([]float32{0.5, -1})).
		AddRow("tr-2:0000", "tr-2", 0, "b", []byte(`[]`), encodeVector([]float32{1, 0}))

	mock.ExpectQuery("SELECT id, transcript_id, ordinal, text, topics, embedding").
		WillReturnRows(rows)

	var loaded []domain.Chunk
	var vectors [][]float32
	err := repo.LoadAll(context.Background(), func(c domain.Chunk, v []float32) error {
		loaded = append(loaded, c)
		vectors = append(vectors, v)
		return nil
	})
	if err != nil {
		t.Fatalf("LoadAll() error = %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(loaded))
	}
	if loaded[0].Topics[0] != "fees" {
		t.Fatalf("topics not decoded: %+v", loaded[0])
	}
	if vectors[0][0] != 0.5 || vectors[0][1] != -1 {
		t.Fatalf("vector not decoded: %v", vectors[0])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestEncodeDecodeVectorRoundTrip(t *testing.T) {
	in := []float32{0, 1, -1, 0.333, 3.4e38, -2.5e-12}
	out, err := decodeVector(encodeVector(in))
	if err != nil {
		t.Fatalf("decodeVector() error = %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("length changed: %d -> %d", len(in), len(out))
	}
	for i := range in {
		if in[i] != out[i] {
			t.Fatalf("component %d changed: %v -> %v", i, in[i], out[i])
		}
	}
}

func TestDecodeVectorRejectsBadLength(t *testing.T) {
	if _, err := decodeVector([]byte{1, 2, 3}); err == nil {
		t.Fatal("expected error for blob length not a multiple of 4")
	}
}
