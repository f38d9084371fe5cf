package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"reencoder/internal/progress"
)

func TestBatch_WriteFile(t *testing.T) {
	b := NewBatch()
	b.FileDone(progress.Result{Stage: progress.StageComplete, Bytes: 2048}, 90*time.Second)
	b.FileDone(progress.Result{Stage: progress.StageComplete, Bytes: 1024}, 30*time.Second)
	b.FileDone(progress.Result{Stage: progress.StageError}, 0)
	b.FileDone(progress.Result{Stage: progress.StageSkipped}, 0)
	b.BatchDone(2 * time.Minute)

	path := filepath.Join(t.TempDir(), "reencoder.prom")
	if err := b.WriteFile(path); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	text := string(data)
	for _, want := range []string{
		`reencoder_files_total{status="complete"} 2`,
		`reencoder_files_total{status="error"} 1`,
		`reencoder_files_total{status="skipped"} 1`,
		`reencoder_output_bytes_total 3072`,
		`reencoder_encode_duration_seconds_count 2`,
		`reencoder_batch_duration_seconds 120`,
		`reencoder_batch_last_run_timestamp_seconds`,
	} {
		if !strings.Contains(text, want) {
			t.Errorf("missing %q in:\n%s", want, text)
		}
	}
}

func TestBatch_RegistriesAreIndependent(t *testing.T) {
	a, b := NewBatch(), NewBatch()
	a.FileDone(progress.Result{Stage: progress.StageComplete}, time.Second)
	mfs, err := b.Registry().Gather()
	if err != nil {
		t.Fatal(err)
	}
	for _, mf := range mfs {
		if mf.GetName() == "reencoder_files_total" && len(mf.GetMetric()) != 0 {
			t.Errorf("second batch saw first batch's counters")
		}
	}
}
