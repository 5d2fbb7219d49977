package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/rexbrahh/lp-vault/address"
)

var (
	owner = address.Address{1}
	pool  = address.Address{2}
)

func TestWithIDIsDeterministic(t *testing.T) {
	a := PositionOpened(owner, pool, 3, 1_000_000, 7000, 1, 1700000000)
	b := PositionOpened(owner, pool, 3, 1_000_000, 7000, 1, 1700000000)
	if a.ID == "" || a.ID != b.ID {
		t.Fatalf("expected equal non-empty ids, got %q and %q", a.ID, b.ID)
	}

	c := PositionOpened(owner, pool, 4, 1_000_000, 7000, 1, 1700000000)
	if c.ID == a.ID {
		t.Fatalf("different position ids must not share an event id")
	}
	d := PositionUpdated(owner, 3, 1_000_000, 0, 0, 1700000000)
	if d.ID == a.ID {
		t.Fatalf("different kinds must not share an event id")
	}
}

func TestConstructorsFillKindFields(t *testing.T) {
	opened := PositionOpened(owner, pool, 0, 500, 3, 2, 10)
	if opened.Kind != KindPositionOpened || opened.TVL != 500 || opened.FeePaid != 3 || opened.Protocol != 2 {
		t.Fatalf("unexpected opened event: %+v", opened)
	}
	closed := PositionClosed(owner, 0, 450, 12, 20)
	if closed.Kind != KindPositionClosed || closed.TVL != 450 || closed.FeesClaimed != 12 {
		t.Fatalf("unexpected closed event: %+v", closed)
	}
	created := VaultCreated(owner, pool, 5)
	if created.IsPositionEvent() || created.Attribution != pool {
		t.Fatalf("unexpected created event: %+v", created)
	}
	if got := VaultClosed(owner, 6).String(); got != "vault.closed owner="+owner.String() {
		t.Fatalf("unexpected string %q", got)
	}
}

func TestEventJSONUsesBase58(t *testing.T) {
	evt := VaultCreated(owner, address.Zero, 1)
	raw, err := json.Marshal(evt)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded Event
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded != evt {
		t.Fatalf("decoded %+v, want %+v", decoded, evt)
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		t.Fatalf("unmarshal map: %v", err)
	}
	if fields["owner"] != owner.String() {
		t.Fatalf("owner rendered as %v", fields["owner"])
	}
}

func TestMultiJoinsErrors(t *testing.T) {
	boom := errors.New("boom")
	rec := &Recorder{}
	m := Multi{
		SinkFunc(func(context.Context, Event) error { return boom }),
		rec,
		NewLogSink(zerolog.Nop()),
		Discard,
	}
	evt := VaultClosed(owner, 1)
	err := m.Emit(context.Background(), evt)
	if !errors.Is(err, boom) {
		t.Fatalf("expected joined error, got %v", err)
	}
	if got := rec.Events(); len(got) != 1 || got[0].ID != evt.ID {
		t.Fatalf("recorder missed event: %+v", got)
	}
	rec.Reset()
	if len(rec.Events()) != 0 {
		t.Fatalf("reset did not clear events")
	}
}
