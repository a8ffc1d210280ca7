// Package ingest turns spreadsheet exports into the typed rows the classifier consumes.
package ingest

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/unicode/norm"

	"github.com/sells-group/pdm-qc/internal/model"
)

// Options configures how a table file is read.
type Options struct {
	SheetName string
	SkipRows  int
	Delimiter rune
	Charset   string
}

// ReadFile reads an .xlsx or .csv table and returns its raw rows.
func ReadFile(ctx context.Context, path string, opts Options) ([][]string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return ReadXLSX(path, SheetOptions{SheetName: opts.SheetName, SkipRows: opts.SkipRows})
	case ".csv", ".txt":
		f, err := os.Open(path)
		if err != nil {
			return nil, eris.Wrap(err, "ingest: open csv")
		}
		defer f.Close()
		return ReadCSV(ctx, f, CSVOptions{
			Delimiter:  opts.Delimiter,
			SkipRows:   opts.SkipRows,
			Charset:    opts.Charset,
			LazyQuotes: true,
		})
	default:
		return nil, eris.Errorf("ingest: unsupported file type %q", filepath.Ext(path))
	}
}

// CoerceRows converts decoded JSON rows into string rows. Entries that are not
// arrays are dropped; a null cell becomes "" and numbers keep their shortest form.
func CoerceRows(raw []any) [][]string {
	rows := make([][]string, 0, len(raw))
	for _, entry := range raw {
		cells, ok := entry.([]any)
		if !ok {
			continue
		}
		row := make([]string, len(cells))
		for i, c := range cells {
			row[i] = normalizeCell(coerceCell(c))
		}
		rows = append(rows, row)
	}
	return rows
}

func coerceCell(c any) string {
	switch v := c.(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}

// normalizeCell composes Unicode so hand-edited accents compare equal.
func normalizeCell(s string) string {
	return norm.NFC.String(s)
}

// ParseAfterproof maps positional afterproof rows onto named fields.
func ParseAfterproof(rows [][]string) []model.AfterproofRow {
	out := make([]model.AfterproofRow, 0, len(rows))
	for _, r := range rows {
		if blank(r) {
			continue
		}
		out = append(out, model.AfterproofRow{
			ClassificationID:   col(r, 0),
			ClassificationName: col(r, 1),
			Category:           col(r, 2),
			Family:             col(r, 3),
			RankPoints:         col(r, 4),
			CompanyType:        col(r, 5),
			SiteLink:           col(r, 6),
			Quality:            col(r, 7),
			ProfileDescription: col(r, 8),
			Definition:         col(r, 9),
		})
	}
	return out
}

// ParseBeforeproof maps positional beforeproof rows; name is column 0, id column 1.
func ParseBeforeproof(rows [][]string) []model.BeforeproofRow {
	out := make([]model.BeforeproofRow, 0, len(rows))
	for _, r := range rows {
		if blank(r) {
			continue
		}
		out = append(out, model.BeforeproofRow{
			ClassificationName: col(r, 0),
			ClassificationID:   col(r, 1),
			Category:           col(r, 2),
			Family:             col(r, 3),
			RankPoints:         col(r, 4),
			CompanyType:        col(r, 5),
			SiteLink:           col(r, 6),
			Quality:            col(r, 7),
			ProfileDescription: col(r, 8),
			Definition:         col(r, 9),
		})
	}
	return out
}

// ParsePdmLookup maps PDM library rows: number, title, text.
func ParsePdmLookup(rows [][]string) []model.PdmLookupRow {
	out := make([]model.PdmLookupRow, 0, len(rows))
	for _, r := range rows {
		if blank(r) {
			continue
		}
		out = append(out, model.PdmLookupRow{
			Number: col(r, 0),
			Title:  col(r, 1),
			Text:   col(r, 2),
		})
	}
	return out
}

func col(r []string, i int) string {
	if i < len(r) {
		return r[i]
	}
	return ""
}

func blank(r []string) bool {
	for _, c := range r {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
