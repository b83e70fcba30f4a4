// Package fetcher reads synthesis inputs from CSV files and
// rate-limited HTTP endpoints.
package fetcher

import (
	"context"
	"encoding/csv"
	"io"
	"strings"

	"github.com/rotisserie/eris"
)

// CSVOptions configures the streaming CSV parser.
type CSVOptions struct {
	Delimiter rune // default ','
	TrimSpace bool
}

// CSVTable is a fully parsed CSV file: the header row and all data
// rows beneath it.
type CSVTable struct {
	Header []string
	Rows   [][]string
}

// Column returns the index of the named header column, or -1.
func (t CSVTable) Column(name string) int {
	for i, h := range t.Header {
		if h == name {
			return i
		}
	}
	return -1
}

// StreamCSV reads CSV rows and sends them to a channel. The caller
// must consume the row channel; both channels are closed when
// processing completes.
func StreamCSV(ctx context.Context, r io.Reader, opts CSVOptions) (<-chan []string, <-chan error) {
	rowCh := make(chan []string, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(rowCh)
		defer close(errCh)

		reader := csv.NewReader(r)
		if opts.Delimiter != 0 {
			reader.Comma = opts.Delimiter
		}
		reader.FieldsPerRecord = -1

		for {
			if ctx.Err() != nil {
				errCh <- eris.Wrap(ctx.Err(), "csv: context cancelled")
				return
			}
			record, err := reader.Read()
			if err == io.EOF {
				return
			}
			if err != nil {
				errCh <- eris.Wrap(err, "csv: read row")
				return
			}
			if opts.TrimSpace {
				for i, field := range record {
					record[i] = strings.TrimSpace(field)
				}
			}
			select {
			case rowCh <- record:
			case <-ctx.Done():
				errCh <- eris.Wrap(ctx.Err(), "csv: context cancelled sending row")
				return
			}
		}
	}()

	return rowCh, errCh
}

// ReadCSV drains StreamCSV into a CSVTable, treating the first row as
// the header.
func ReadCSV(ctx context.Context, r io.Reader, opts CSVOptions) (CSVTable, error) {
	rowCh, errCh := StreamCSV(ctx, r, opts)

	var table CSVTable
	first := true
	for row := range rowCh {
		if first {
			table.Header = row
			first = false
			continue
		}
		table.Rows = append(table.Rows, row)
	}
	if err := <-errCh; err != nil {
		return CSVTable{}, err
	}
	if first {
		return CSVTable{}, eris.New("csv: empty file, expected a header row")
	}
	return table, nil
}
