package store

import (
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestJobRepository_CreateAndGet(t *testing.T) {
	s := newTestStore(t)
	repo := s.Jobs()

	job := &Job{
		ID:         "job-1",
		Sentence:   "Hello Unknownword You",
		Status:     JobSucceeded,
		Output:     "final_output_1_abcd.mp4",
		FPS:        25,
		DurationMs: 1200,
		Tokens: []JobToken{
			{Position: 0, Token: "Hello", Outcome: TokenResolved, Clip: "cropped_Hello.mp4"},
			{Position: 1, Token: "Unknownword", Outcome: TokenMissing},
			{Position: 2, Token: "You", Outcome: TokenResolved, Clip: "cropped_You.mp4"},
		},
	}
	if err := repo.Create(job); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := repo.GetByID("job-1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}

	if got.Sentence != job.Sentence || got.Status != JobSucceeded || got.Output != job.Output {
		t.Errorf("GetByID() = %+v, want %+v", got, job)
	}
	if got.FPS != 25 || got.DurationMs != 1200 {
		t.Errorf("FPS/DurationMs = %v/%d, want 25/1200", got.FPS, got.DurationMs)
	}
	if len(got.Tokens) != 3 {
		t.Fatalf("len(Tokens) = %d, want 3", len(got.Tokens))
	}
	if got.Tokens[1].Token != "Unknownword" || got.Tokens[1].Outcome != TokenMissing {
		t.Errorf("Tokens[1] = %+v, want missing Unknownword", got.Tokens[1])
	}
	if got.Tokens[2].Clip != "cropped_You.mp4" {
		t.Errorf("Tokens[2].Clip = %q", got.Tokens[2].Clip)
	}
}

func TestJobRepository_GetByID_NotFound(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.Jobs().GetByID("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByID() error = %v, want ErrNotFound", err)
	}
}

func TestJobRepository_RejectsBadStatus(t *testing.T) {
	s := newTestStore(t)

	err := s.Jobs().Create(&Job{ID: "bad", Sentence: "Hello", Status: "pending"})
	if err == nil {
		t.Error("Create() should reject an unknown status")
	}
}

func TestJobRepository_List(t *testing.T) {
	s := newTestStore(t)
	repo := s.Jobs()

	base := time.Now().Add(-time.Hour)
	for i, id := range []string{"a", "b", "c"} {
		err := repo.Create(&Job{
			ID:        id,
			Sentence:  "Hello",
			Status:    JobFailed,
			Error:     "no videos to merge",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("Create(%s) error = %v", id, err)
		}
	}

	jobs, err := repo.List(0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(jobs) != 3 {
		t.Fatalf("len(List()) = %d, want 3", len(jobs))
	}
	if jobs[0].ID != "c" || jobs[2].ID != "a" {
		t.Errorf("List() order = %s,%s,%s, want newest first", jobs[0].ID, jobs[1].ID, jobs[2].ID)
	}

	limited, err := repo.List(2)
	if err != nil {
		t.Fatalf("List(2) error = %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("len(List(2)) = %d, want 2", len(limited))
	}
}

func TestJobRepository_DeleteCascades(t *testing.T) {
	s := newTestStore(t)
	repo := s.Jobs()

	job := &Job{
		ID:       "job-1",
		Sentence: "Hello",
		Status:   JobSucceeded,
		Tokens:   []JobToken{{Position: 0, Token: "Hello", Outcome: TokenResolved}},
	}
	if err := repo.Create(job); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := repo.Delete("job-1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := repo.Delete("job-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete() error = %v, want ErrNotFound", err)
	}

	var n int
	if err := s.DB().QueryRow("SELECT COUNT(*) FROM job_tokens").Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("job_tokens has %d rows after delete, want 0", n)
	}
}
