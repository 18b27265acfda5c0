package logging

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/kilianp07/cogen/core/model"
)

func typeName(v any) string { return fmt.Sprintf("%T", v) }

func TestSQLiteStore_PersistQuery(t *testing.T) {
	store, err := NewSQLiteStore("file:test.db?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer func() { _ = store.Close() }()
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	for i, st := range []model.Status{model.StatusOptimal, model.StatusInfeasible, model.StatusOptimal} {
		if err := store.Append(context.Background(), record(i, st, base.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	out, err := store.Query(context.Background(), LogQuery{RunID: "run-1"})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(out) != 1 || out[0].Status != "infeasible" {
		t.Fatalf("expected 1 infeasible record, got %+v", out)
	}
	out, _ = store.Query(context.Background(), LogQuery{Status: "optimal"})
	if len(out) != 2 {
		t.Fatalf("expected 2 optimal records, got %d", len(out))
	}
	out, _ = store.Query(context.Background(), LogQuery{Limit: 2})
	if len(out) != 2 || out[0].RunID != "run-1" || out[1].RunID != "run-2" {
		t.Fatalf("limit should keep the two most recent in order, got %+v", out)
	}
	if !out[0].Result.HasRecommendation("off_peak") {
		t.Fatal("result recommendations not persisted")
	}
}
