package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"

	"github.com/parquet-go/parquet-go"

	"github.com/rexbrahh/lp-vault/events"
	archive "github.com/rexbrahh/lp-vault/sinks/parquet"
)

type summary struct {
	TotalRows        int            `json:"total_rows"`
	RowsByKind       map[string]int `json:"rows_by_kind"`
	MissingEventID   int            `json:"missing_event_id"`
	DuplicateEventID int            `json:"duplicate_event_id"`
	UnknownKind      int            `json:"unknown_kind"`
	MissingTimestamp int            `json:"missing_timestamp"`
	OpenedWithoutFee int            `json:"opened_without_fee"`
	UniqueOwners     int            `json:"unique_owners"`
	UniqueKinds      []string       `json:"unique_kinds"`
}

type inspector struct {
	sum    summary
	ids    map[string]struct{}
	owners map[string]struct{}
	known  map[string]struct{}
}

func main() {
	pattern := flag.String("pattern", "", "glob pattern selecting parquet files to inspect")
	flag.Parse()

	if *pattern == "" {
		log.Fatal("pattern is required")
	}

	files, err := filepath.Glob(*pattern)
	if err != nil {
		log.Fatalf("glob parquet files: %v", err)
	}
	if len(files) == 0 {
		log.Fatalf("no parquet files match pattern %s", *pattern)
	}

	in := newInspector()
	for _, path := range files {
		if err := in.inspectFile(path); err != nil {
			log.Fatalf("inspect %s: %v", path, err)
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(in.summary()); err != nil {
		log.Fatalf("encode summary: %v", err)
	}
}

func newInspector() *inspector {
	known := make(map[string]struct{}, len(events.Kinds))
	for _, kind := range events.Kinds {
		known[string(kind)] = struct{}{}
	}
	return &inspector{
		sum:    summary{RowsByKind: make(map[string]int)},
		ids:    make(map[string]struct{}),
		owners: make(map[string]struct{}),
		known:  known,
	}
}

func (in *inspector) inspectFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open file: %w", err)
	}
	defer file.Close()

	reader := parquet.NewGenericReader[archive.EventRow](file)
	defer reader.Close()

	rows := make([]archive.EventRow, 128)

	for {
		n, err := reader.Read(rows)
		for i := 0; i < n; i++ {
			in.processRow(&rows[i])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("read parquet rows: %w", err)
		}
	}
	return nil
}

func (in *inspector) processRow(row *archive.EventRow) {
	in.sum.TotalRows++
	in.sum.RowsByKind[row.Kind]++

	if row.EventID == "" {
		in.sum.MissingEventID++
	} else if _, seen := in.ids[row.EventID]; seen {
		in.sum.DuplicateEventID++
	} else {
		in.ids[row.EventID] = struct{}{}
	}

	if _, ok := in.known[row.Kind]; !ok {
		in.sum.UnknownKind++
	}
	if row.TimestampMillis <= 0 {
		in.sum.MissingTimestamp++
	}
	if row.Kind == string(events.KindPositionOpened) && row.FeePaid == 0 {
		in.sum.OpenedWithoutFee++
	}
	in.owners[row.Owner] = struct{}{}
}

func (in *inspector) summary() summary {
	out := in.sum
	out.UniqueOwners = len(in.owners)
	out.UniqueKinds = make([]string, 0, len(out.RowsByKind))
	for kind := range out.RowsByKind {
		out.UniqueKinds = append(out.UniqueKinds, kind)
	}
	sort.Strings(out.UniqueKinds)
	return out
}
