package main

import (
	"testing"

	archive "github.com/rexbrahh/lp-vault/sinks/parquet"
)

func TestInspectorSummary(t *testing.T) {
	in := newInspector()
	rows := []archive.EventRow{
		{EventID: "a", Kind: "position.opened", Owner: "o1", FeePaid: 10, TimestampMillis: 1},
		{EventID: "a", Kind: "position.opened", Owner: "o1", TimestampMillis: 1},
		{EventID: "", Kind: "vault.created", Owner: "o2", TimestampMillis: 1},
		{EventID: "b", Kind: "bogus", Owner: "o2"},
	}
	for i := range rows {
		in.processRow(&rows[i])
	}
	sum := in.summary()

	if sum.TotalRows != 4 {
		t.Fatalf("total rows = %d", sum.TotalRows)
	}
	if sum.DuplicateEventID != 1 || sum.MissingEventID != 1 {
		t.Fatalf("duplicate=%d missing=%d", sum.DuplicateEventID, sum.MissingEventID)
	}
	if sum.UnknownKind != 1 || sum.MissingTimestamp != 1 || sum.OpenedWithoutFee != 1 {
		t.Fatalf("unexpected summary %+v", sum)
	}
	if sum.UniqueOwners != 2 {
		t.Fatalf("unique owners = %d", sum.UniqueOwners)
	}
	want := []string{"bogus", "position.opened", "vault.created"}
	if len(sum.UniqueKinds) != len(want) {
		t.Fatalf("kinds = %v", sum.UniqueKinds)
	}
	for i := range want {
		if sum.UniqueKinds[i] != want[i] {
			t.Fatalf("kinds = %v", sum.UniqueKinds)
		}
	}
}
