package bigquery

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/googleapi"

	"github.com/angelmondragon/asarum-backend/pkg/config"
	"github.com/angelmondragon/asarum-backend/pkg/logger"
)

const metadataTimeout = 10 * time.Second

var errNotOpen = errors.New("bigquery table not open")

// Table streams rows into the order events table.
type Table struct {
	client *bigquery.Client
	table  *bigquery.Table
}

// Open connects to BigQuery and fails when the configured table is missing.
func Open(ctx context.Context, gcp config.GCPConfig, cfg config.BigQueryConfig, logg *logger.Logger) (*Table, error) {
	project := strings.TrimSpace(gcp.ProjectID)
	dataset := strings.TrimSpace(cfg.Dataset)
	name := strings.TrimSpace(cfg.OrderEventsTable)
	switch {
	case project == "":
		return nil, errors.New("gcp project id is required")
	case dataset == "" || name == "":
		return nil, errors.New("bigquery dataset and order events table are required")
	}

	client, err := bigquery.NewClient(ctx, project, gcp.ClientOptions()...)
	if err != nil {
		return nil, fmt.Errorf("bigquery client: %w", err)
	}
	t := &Table{client: client, table: client.Dataset(dataset).Table(name)}
	if err := t.Ping(ctx); err != nil {
		return nil, errors.Join(err, client.Close())
	}
	logg.Info(logg.WithField(ctx, "table", t.Name()), "bigquery table ready")
	return t, nil
}

// Ping reads the table metadata.
func (t *Table) Ping(ctx context.Context) error {
	if t == nil || t.table == nil {
		return errNotOpen
	}
	ctx, cancel := context.WithTimeout(ctx, metadataTimeout)
	defer cancel()
	if _, err := t.table.Metadata(ctx); err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound {
			return fmt.Errorf("table %s does not exist", t.Name())
		}
		return fmt.Errorf("table %s metadata: %w", t.Name(), err)
	}
	return nil
}

// Put streams rows through the table inserter. rows is anything the
// inserter accepts: a struct, a ValueSaver, or a slice of either.
func (t *Table) Put(ctx context.Context, rows any) error {
	if t == nil || t.table == nil {
		return errNotOpen
	}
	return t.table.Inserter().Put(ctx, rows)
}

// Name is the dataset-qualified table name.
func (t *Table) Name() string {
	if t == nil || t.table == nil {
		return ""
	}
	return t.table.DatasetID + "." + t.table.TableID
}

func (t *Table) Close() error {
	if t == nil || t.client == nil {
		return nil
	}
	return t.client.Close()
}
