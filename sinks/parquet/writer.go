package parquet

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/aws/aws-sdk-go/service/s3/s3manager/s3manageriface"
	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress/snappy"

	"github.com/rexbrahh/lp-vault/events"
)

var ErrWriterDisabled = errors.New("parquet writer disabled: missing configuration")

// Writer buffers ledger events and periodically uploads Parquet files to
// S3-compatible storage, one object per partition and UTC date.
type Writer struct {
	cfg Config

	mu        sync.Mutex
	buckets   map[partition][]EventRow
	uploader  s3manageriface.UploaderAPI
	lastFlush time.Time
	now       func() time.Time
}

type partition struct {
	kind string
	date string
}

// EventRow is the archived column layout of a ledger event.
type EventRow struct {
	EventID         string `parquet:"event_id"`
	Kind            string `parquet:"kind,dict"`
	Owner           string `parquet:"owner"`
	Attribution     string `parquet:"attribution,optional"`
	Pool            string `parquet:"pool,optional"`
	PositionID      uint64 `parquet:"position_id"`
	Protocol        int32  `parquet:"protocol"`
	InitialTVL      uint64 `parquet:"initial_tvl"`
	FeePaid         uint64 `parquet:"fee_paid"`
	TVL             uint64 `parquet:"tvl"`
	FeesClaimed     uint64 `parquet:"fees_claimed"`
	TotalCompounded uint64 `parquet:"total_compounded"`
	Revision        uint64 `parquet:"revision"`
	TimestampMillis int64  `parquet:"ts,timestamp(millisecond)"`
}

// NewWriter validates configuration and prepares a Writer.
func NewWriter(cfg Config) (*Writer, error) {
	if !cfg.Enabled() {
		return nil, ErrWriterDisabled
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	awsCfg := &aws.Config{
		Endpoint:         aws.String(cfg.Endpoint),
		Region:           aws.String(cfg.Region),
		S3ForcePathStyle: aws.Bool(cfg.PathStyle),
		Credentials:      credentials.NewStaticCredentials(cfg.AccessKey, cfg.SecretKey, ""),
	}

	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("create aws session: %w", err)
	}

	return newWriter(cfg, s3manager.NewUploader(sess)), nil
}

func newWriter(cfg Config, uploader s3manageriface.UploaderAPI) *Writer {
	return &Writer{
		cfg:       cfg,
		buckets:   make(map[partition][]EventRow),
		uploader:  uploader,
		lastFlush: time.Now(),
		now:       time.Now,
	}
}

// AppendEvent buffers evt and flushes when the batch or interval is reached.
func (w *Writer) AppendEvent(ctx context.Context, evt events.Event) error {
	if evt.Kind == "" {
		return errors.New("event without kind")
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	ts := time.Unix(evt.Timestamp, 0).UTC()
	row := EventRow{
		EventID:         evt.ID,
		Kind:            string(evt.Kind),
		Owner:           evt.Owner.String(),
		PositionID:      evt.PositionID,
		Protocol:        int32(evt.Protocol),
		InitialTVL:      evt.InitialTVL,
		FeePaid:         evt.FeePaid,
		TVL:             evt.TVL,
		FeesClaimed:     evt.FeesClaimed,
		TotalCompounded: evt.TotalCompounded,
		Revision:        evt.Revision,
		TimestampMillis: ts.UnixMilli(),
	}
	if !evt.Attribution.IsZero() {
		row.Attribution = evt.Attribution.String()
	}
	if !evt.Pool.IsZero() {
		row.Pool = evt.Pool.String()
	}

	key := partition{date: ts.Format("2006-01-02")}
	if w.cfg.Partition == PartitionKindDate {
		key.kind = row.Kind
	}
	bucket := append(w.buckets[key], row)
	w.buckets[key] = bucket

	if len(bucket) >= w.cfg.BatchRows || w.now().Sub(w.lastFlush) >= w.cfg.FlushInterval {
		return w.flushLocked(ctx)
	}
	return nil
}

func (w *Writer) Flush(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.flushLocked(ctx)
}

func (w *Writer) Close() error {
	return w.Flush(context.Background())
}

// Pending reports the number of buffered rows.
func (w *Writer) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	n := 0
	for _, rows := range w.buckets {
		n += len(rows)
	}
	return n
}

func (w *Writer) flushLocked(ctx context.Context) error {
	keys := make([]partition, 0, len(w.buckets))
	for key, rows := range w.buckets {
		if len(rows) > 0 {
			keys = append(keys, key)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].date == keys[j].date {
			return keys[i].kind < keys[j].kind
		}
		return keys[i].date < keys[j].date
	})

	for _, key := range keys {
		if err := w.writeBucket(ctx, key, w.buckets[key]); err != nil {
			return err
		}
		delete(w.buckets, key)
	}
	w.lastFlush = w.now()
	return nil
}

func (w *Writer) writeBucket(ctx context.Context, key partition, rows []EventRow) error {
	buf := bytes.NewBuffer(nil)

	writer := parquet.NewGenericWriter[EventRow](buf, parquet.Compression(&snappy.Codec{}))
	if _, err := writer.Write(rows); err != nil {
		return fmt.Errorf("write parquet rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("close parquet writer: %w", err)
	}

	_, err := w.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:      aws.String(w.cfg.Bucket),
		Key:         aws.String(w.objectKey(key)),
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: aws.String("application/octet-stream"),
	})
	if err != nil {
		return fmt.Errorf("upload parquet to s3: %w", err)
	}
	return nil
}

func (w *Writer) objectKey(key partition) string {
	prefix := strings.TrimSuffix(w.cfg.Prefix, "/")
	filename := fmt.Sprintf("events-%d.parquet", w.now().UnixNano())
	if key.kind == "" {
		return path.Join(prefix, "date="+key.date, filename)
	}
	return path.Join(prefix, "kind="+key.kind, "date="+key.date, filename)
}
