package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rexbrahh/lp-vault/events"
)

func TestLoadFixturesAssignsIDs(t *testing.T) {
	fixtures, err := loadFixtures(filepath.Join("..", "..", "..", "fixtures", "ledger_events.json"))
	if err != nil {
		t.Fatalf("loadFixtures: %v", err)
	}
	if len(fixtures) != 5 {
		t.Fatalf("expected 5 fixtures, got %d", len(fixtures))
	}
	seen := make(map[string]struct{})
	for i, fx := range fixtures {
		if fx.ID == "" {
			t.Fatalf("fixture %d has no id", i)
		}
		if _, dup := seen[fx.ID]; dup {
			t.Fatalf("fixture %d reuses id %s", i, fx.ID)
		}
		seen[fx.ID] = struct{}{}
	}
	if fixtures[1].Kind != events.KindPositionOpened || fixtures[1].FeePaid != 7000 || fixtures[1].SleepMillis != 50 {
		t.Fatalf("unexpected fixture %+v", fixtures[1])
	}
	if fixtures[0].ID != events.WithID(fixtures[0].Event).ID {
		t.Fatal("fixture id is not the deterministic id")
	}
}

func TestLoadFixturesRequiresKind(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte(`[{"owner":"11111111111111111111111111111111"}]`), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := loadFixtures(path); err == nil {
		t.Fatal("expected error for fixture without kind")
	}
}
