package analytics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/googleapis/gax-go/v2"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type rowPutter interface {
	Put(ctx context.Context, rows any) error
}

// SinkConfig bounds the retries of one streaming insert.
type SinkConfig struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// Sink streams order event rows into BigQuery. Each row is sent with its
// event id as the insert id, so BigQuery drops a row it already received
// when a redelivered event gets past the ledger.
type Sink struct {
	table    rowPutter
	attempts int
	backoff  gax.Backoff
}

func NewSink(table rowPutter, cfg SinkConfig) (*Sink, error) {
	if table == nil {
		return nil, errors.New("bigquery table is required")
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 250 * time.Millisecond
	}
	if cfg.MaxBackoff < cfg.InitialBackoff {
		cfg.MaxBackoff = max(2*time.Second, cfg.InitialBackoff)
	}
	return &Sink{
		table:    table,
		attempts: cfg.MaxAttempts,
		backoff:  gax.Backoff{Initial: cfg.InitialBackoff, Max: cfg.MaxBackoff, Multiplier: 2},
	}, nil
}

// Write inserts row, retrying transient BigQuery failures.
func (s *Sink) Write(ctx context.Context, row OrderEventRow) error {
	saver := &bigquery.StructSaver{Struct: &row, InsertID: row.EventID}
	pause := s.backoff
	for attempt := 1; ; attempt++ {
		err := s.table.Put(ctx, saver)
		if err == nil {
			return nil
		}
		if attempt >= s.attempts || !transient(err) {
			return fmt.Errorf("insert order event %s after %d attempt(s): %w", row.EventID, attempt, err)
		}
		if err := gax.Sleep(ctx, pause.Pause()); err != nil {
			return err
		}
	}
}

// transient reports whether err is worth another insert. Row level errors
// count only when every failed row failed for a retryable reason.
func transient(err error) bool {
	var rows bigquery.PutMultiError
	if errors.As(err, &rows) {
		if len(rows) == 0 {
			return false
		}
		for _, row := range rows {
			for _, inner := range row.Errors {
				if !transient(inner) {
					return false
				}
			}
		}
		return true
	}

	var bqErr *bigquery.Error
	if errors.As(err, &bqErr) {
		switch bqErr.Reason {
		case "backendError", "internalError", "rateLimitExceeded", "timeout", "stopped":
			return true
		}
		return false
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusRequestTimeout, http.StatusTooManyRequests, http.StatusInternalServerError,
			http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return true
		}
		return false
	}

	switch status.Code(err) {
	case codes.Aborted, codes.DeadlineExceeded, codes.Internal, codes.ResourceExhausted, codes.Unavailable:
		return true
	}
	return false
}
