// Package bq reads table metadata from one BigQuery dataset and runs queries
// with that dataset as the default.
package bq

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	"github.com/anilkmeesala/db-sense-editor/catalog"
	"github.com/anilkmeesala/db-sense-editor/dbmeta"
)

// Client is a dbmeta.Source over a single project and dataset.
type Client struct {
	client  *bigquery.Client
	project string
	dataset string
	maxRows int
}

var _ dbmeta.Source = (*Client)(nil)

// Open creates a client using application default credentials, or the
// emulator named by BIGQUERY_EMULATOR_HOST.
func Open(ctx context.Context, project, dataset string, maxRows int) (*Client, error) {
	opts, err := clientOptions(ctx)
	if err != nil {
		return nil, err
	}
	cl, err := bigquery.NewClient(ctx, project, opts...)
	if err != nil {
		return nil, fmt.Errorf("bigquery client: %w", err)
	}
	return New(cl, project, dataset, maxRows), nil
}

// New wraps an existing BigQuery client.
func New(cl *bigquery.Client, project, dataset string, maxRows int) *Client {
	return &Client{client: cl, project: project, dataset: dataset, maxRows: maxRows}
}

func (c *Client) Name() string {
	return "bigquery " + c.project + "." + c.dataset
}

func (c *Client) Close() error {
	return c.client.Close()
}

func (c *Client) ListTables(ctx context.Context) ([]catalog.TableInfo, error) {
	var tables []catalog.TableInfo
	it := c.client.DatasetInProject(c.project, c.dataset).Tables(ctx)
	for {
		t, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list tables: %w", err)
		}
		tables = append(tables, catalog.TableInfo{Name: t.TableID})
	}
	return tables, nil
}

func (c *Client) ListColumns(ctx context.Context, table string) ([]catalog.Column, error) {
	md, err := c.client.DatasetInProject(c.project, c.dataset).Table(table).Metadata(ctx)
	if err != nil {
		return nil, fmt.Errorf("table metadata: %w", err)
	}
	cols := make([]catalog.Column, 0, len(md.Schema))
	for _, f := range md.Schema {
		typ := string(f.Type)
		if f.Repeated {
			typ = "ARRAY<" + typ + ">"
		}
		cols = append(cols, catalog.Column{Name: f.Name, Type: typ})
	}
	return cols, nil
}

// RunQuery runs sqlText with the client's dataset as the default for
// unqualified table names.
func (c *Client) RunQuery(ctx context.Context, sqlText string) (*dbmeta.QueryResult, error) {
	start := time.Now()
	q := c.client.Query(sqlText)
	q.DefaultProjectID = c.project
	q.DefaultDatasetID = c.dataset

	job, err := q.Run(ctx)
	if err != nil {
		return nil, fmt.Errorf("run query: %w", err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return nil, fmt.Errorf("wait query: %w", err)
	}
	if status.Err() != nil {
		return nil, fmt.Errorf("query error: %w", status.Err())
	}

	it, err := job.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("read results: %w", err)
	}

	result := &dbmeta.QueryResult{}
	if status.Statistics != nil {
		result.BytesProcessed = status.Statistics.TotalBytesProcessed
	}
	for _, f := range it.Schema {
		result.Columns = append(result.Columns, f.Name)
	}

	for {
		var row []bigquery.Value
		err := it.Next(&row)
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		if c.maxRows > 0 && result.RowCount >= int64(c.maxRows) {
			result.Truncated = true
			break
		}
		strRow := make([]string, len(row))
		for i, v := range row {
			if v == nil {
				strRow[i] = "NULL"
			} else {
				strRow[i] = fmt.Sprintf("%v", v)
			}
		}
		result.Rows = append(result.Rows, strRow)
		result.RowCount++
	}
	result.Duration = time.Since(start)
	return result, nil
}
