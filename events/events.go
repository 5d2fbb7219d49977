// Package events defines the notifications emitted after a ledger command
// commits and the sinks that deliver them.
package events

import (
	"encoding/binary"
	"fmt"

	"github.com/google/uuid"

	"github.com/rexbrahh/lp-vault/address"
)

// Kind names an event type. It doubles as the subject suffix.
type Kind string

const (
	KindVaultCreated    Kind = "vault.created"
	KindVaultClosed     Kind = "vault.closed"
	KindPositionOpened  Kind = "position.opened"
	KindPositionUpdated Kind = "position.updated"
	KindPositionClosed  Kind = "position.closed"
)

// Kinds lists every event kind.
var Kinds = []Kind{KindVaultCreated, KindVaultClosed, KindPositionOpened, KindPositionUpdated, KindPositionClosed}

// namespace seeds deterministic event ids.
var namespace = uuid.MustParse("5f7b6c3e-2a0d-4c59-9a57-7d2f0c1b8e41")

// Event is a flat notification. Fields that do not apply to Kind are zero.
type Event struct {
	ID              string          `json:"id"`
	Kind            Kind            `json:"kind"`
	Owner           address.Address `json:"owner"`
	Attribution     address.Address `json:"attribution"`
	Pool            address.Address `json:"pool"`
	PositionID      uint64          `json:"position_id"`
	Protocol        uint8           `json:"protocol"`
	InitialTVL      uint64          `json:"initial_tvl,omitempty"`
	FeePaid         uint64          `json:"fee_paid,omitempty"`
	TVL             uint64          `json:"tvl,omitempty"`
	FeesClaimed     uint64          `json:"fees_claimed,omitempty"`
	TotalCompounded uint64          `json:"total_compounded,omitempty"`
	Revision        uint64          `json:"revision,omitempty"`
	Timestamp       int64           `json:"timestamp"`
}

// VaultCreated builds the notification for a new vault.
func VaultCreated(owner, attribution address.Address, ts int64) Event {
	return WithID(Event{Kind: KindVaultCreated, Owner: owner, Attribution: attribution, Timestamp: ts})
}

// VaultClosed builds the notification for a closed vault.
func VaultClosed(owner address.Address, ts int64) Event {
	return WithID(Event{Kind: KindVaultClosed, Owner: owner, Timestamp: ts})
}

// PositionOpened builds the notification for a newly opened position.
func PositionOpened(owner, pool address.Address, positionID, initialTVL, feePaid uint64, protocol uint8, ts int64) Event {
	return WithID(Event{
		Kind:       KindPositionOpened,
		Owner:      owner,
		Pool:       pool,
		PositionID: positionID,
		Protocol:   protocol,
		InitialTVL: initialTVL,
		FeePaid:    feePaid,
		TVL:        initialTVL,
		Timestamp:  ts,
	})
}

// PositionUpdated builds the notification for a TVL resync.
func PositionUpdated(owner address.Address, positionID, newTVL, feesClaimed, totalCompounded uint64, ts int64) Event {
	return WithID(Event{
		Kind:            KindPositionUpdated,
		Owner:           owner,
		PositionID:      positionID,
		TVL:             newTVL,
		FeesClaimed:     feesClaimed,
		TotalCompounded: totalCompounded,
		Timestamp:       ts,
	})
}

// PositionClosed builds the notification for a closed position. TVL is the
// final value and FeesClaimed the cumulative claim at close time.
func PositionClosed(owner address.Address, positionID, finalTVL, feesClaimed uint64, ts int64) Event {
	return WithID(Event{
		Kind:        KindPositionClosed,
		Owner:       owner,
		PositionID:  positionID,
		TVL:         finalTVL,
		FeesClaimed: feesClaimed,
		Timestamp:   ts,
	})
}

// AtRevision stamps the position revision the event was committed at and
// re-derives the ID. Two updates carrying identical values stay distinct.
func (e Event) AtRevision(rev uint64) Event {
	e.Revision = rev
	return WithID(e)
}

// IsPositionEvent reports whether the event refers to a position.
func (e Event) IsPositionEvent() bool {
	switch e.Kind {
	case KindPositionOpened, KindPositionUpdated, KindPositionClosed:
		return true
	}
	return false
}

func (e Event) String() string {
	if e.IsPositionEvent() {
		return fmt.Sprintf("%s owner=%s position=%d", e.Kind, e.Owner, e.PositionID)
	}
	return fmt.Sprintf("%s owner=%s", e.Kind, e.Owner)
}

// WithID fills ID with a name-based UUID over every other field. Identical
// events always share an ID.
func WithID(e Event) Event {
	buf := make([]byte, 0, 3*address.Size+8*8+1+len(e.Kind))
	buf = append(buf, e.Kind...)
	buf = append(buf, e.Owner[:]...)
	buf = append(buf, e.Attribution[:]...)
	buf = append(buf, e.Pool[:]...)
	for _, v := range []uint64{e.PositionID, e.InitialTVL, e.FeePaid, e.TVL, e.FeesClaimed, e.TotalCompounded, e.Revision, uint64(e.Timestamp)} {
		buf = binary.LittleEndian.AppendUint64(buf, v)
	}
	buf = append(buf, e.Protocol)
	e.ID = uuid.NewSHA1(namespace, buf).String()
	return e
}
