package archive

import (
	"context"
	"strings"
	"testing"
)

func TestMemoryArchive(t *testing.T) {
	ctx := context.Background()

	t.Run("stores and retrieves reports", func(t *testing.T) {
		a := NewMemoryArchive()
		body := "ranking report"
		if err := a.PutReport(ctx, "reports/2024-01-15.txt", strings.NewReader(body), int64(len(body))); err != nil {
			t.Fatalf("putting report: %v", err)
		}

		got, ok := a.Report("reports/2024-01-15.txt")
		if !ok {
			t.Fatal("report not found")
		}
		if string(got) != body {
			t.Errorf("report = %q, want %q", got, body)
		}
	})

	t.Run("overwrites on repeated put", func(t *testing.T) {
		a := NewMemoryArchive()
		for _, body := range []string{"first", "second"} {
			if err := a.PutReport(ctx, "r.txt", strings.NewReader(body), int64(len(body))); err != nil {
				t.Fatalf("putting report: %v", err)
			}
		}
		got, _ := a.Report("r.txt")
		if string(got) != "second" {
			t.Errorf("report = %q, want second", got)
		}
	})

	t.Run("rejects size mismatch", func(t *testing.T) {
		a := NewMemoryArchive()
		if err := a.PutReport(ctx, "r.txt", strings.NewReader("abc"), 99); err == nil {
			t.Fatal("expected an error")
		}
		if _, ok := a.Report("r.txt"); ok {
			t.Error("mismatched report should not be stored")
		}
	})

	t.Run("missing report reports absence", func(t *testing.T) {
		a := NewMemoryArchive()
		if _, ok := a.Report("nope.txt"); ok {
			t.Error("expected absence")
		}
	})
}
