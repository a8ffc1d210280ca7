package ingest

import (
	"context"
	"encoding/csv"
	"io"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// CSVOptions configures the streaming CSV parser.
type CSVOptions struct {
	Delimiter  rune   // default ','
	SkipRows   int    // number of header rows to skip
	Charset    string // e.g. "windows-1252"; default UTF-8 with optional BOM
	LazyQuotes bool
}

// StreamCSV reads CSV records from r and sends them to a channel.
// Both channels are closed when processing completes.
func StreamCSV(ctx context.Context, r io.Reader, opts CSVOptions) (<-chan []string, <-chan error) {
	rowCh := make(chan []string, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(rowCh)
		defer close(errCh)

		decoded, err := decodeReader(r, opts.Charset)
		if err != nil {
			errCh <- err
			return
		}

		reader := csv.NewReader(decoded)
		if opts.Delimiter != 0 {
			reader.Comma = opts.Delimiter
		}
		reader.LazyQuotes = opts.LazyQuotes
		reader.FieldsPerRecord = -1 // exports are ragged

		for i := 0; ; i++ {
			if ctx.Err() != nil {
				errCh <- eris.Wrap(ctx.Err(), "ingest: csv context cancelled")
				return
			}

			record, err := reader.Read()
			if err == io.EOF {
				return
			}
			if err != nil {
				errCh <- eris.Wrap(err, "ingest: csv read row")
				return
			}

			if i < opts.SkipRows {
				continue
			}

			for j, field := range record {
				record[j] = normalizeCell(field)
			}

			select {
			case rowCh <- record:
			case <-ctx.Done():
				errCh <- eris.Wrap(ctx.Err(), "ingest: csv context cancelled")
				return
			}
		}
	}()

	return rowCh, errCh
}

// ReadCSV drains StreamCSV into a slice.
func ReadCSV(ctx context.Context, r io.Reader, opts CSVOptions) ([][]string, error) {
	rowCh, errCh := StreamCSV(ctx, r, opts)

	var rows [][]string
	for row := range rowCh {
		rows = append(rows, row)
	}
	if err := <-errCh; err != nil {
		return nil, err
	}
	return rows, nil
}

func decodeReader(r io.Reader, charset string) (io.Reader, error) {
	var enc encoding.Encoding = unicode.UTF8
	if charset != "" {
		e, err := htmlindex.Get(charset)
		if err != nil {
			return nil, eris.Wrapf(err, "ingest: unknown charset %q", charset)
		}
		enc = e
	}
	// BOMOverride honours a leading BOM and strips it before the CSV reader sees it.
	return transform.NewReader(r, unicode.BOMOverride(enc.NewDecoder())), nil
}
