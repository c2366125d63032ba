// internal/intent/loader.go
package intent

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

var (
	// ErrConfiguration marks a CSV source that could not be opened or parsed.
	ErrConfiguration = errors.New("CONFIGURATION_ERROR")
	// ErrNoUsableColumns marks a CSV whose header names neither a text nor a label column.
	ErrNoUsableColumns = errors.New("no usable text/label columns")
)

// LoadOptions combines column selection and table build options.
type LoadOptions struct {
	Columns ColumnOptions
	Build   BuildOptions
}

// LoadTable reads every source and builds one table from the concatenated rows.
// The returned table is never nil: sources that fail are reported through the
// joined error (each wrapping ErrConfiguration) and the rest are still indexed.
func LoadTable(paths []string, opts LoadOptions) (*Table, RowStats, error) {
	var (
		rows []Row
		errs []error
		read RowStats
	)
	for _, path := range paths {
		fileRows, stats, err := ReadRowsFile(path, opts.Columns)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		rows = append(rows, fileRows...)
		read.Skipped += stats.Skipped
	}
	table, built := BuildTable(rows, opts.Build)
	built.Skipped += read.Skipped
	return table, built, errors.Join(errs...)
}

// ReadRowsFile reads one CSV (or TSV, by extension) file.
func ReadRowsFile(path string, cols ColumnOptions) ([]Row, RowStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, RowStats{}, fmt.Errorf("%w: open %s: %v", ErrConfiguration, path, err)
	}
	defer f.Close()

	comma := ','
	if strings.EqualFold(filepath.Ext(path), ".tsv") {
		comma = '\t'
	}
	rows, stats, err := ReadRows(f, comma, cols)
	if err != nil {
		return nil, stats, fmt.Errorf("%w: read %s: %v", ErrConfiguration, filepath.Base(path), err)
	}
	return rows, stats, nil
}

// ReadRows parses delimited records. Rows that are short, empty or malformed
// are counted as skipped; only an unreadable stream or an unusable header is an error.
func ReadRows(r io.Reader, comma rune, cols ColumnOptions) ([]Row, RowStats, error) {
	reader := csv.NewReader(r)
	reader.Comma = comma
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var stats RowStats
	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, stats, nil
		}
		return nil, stats, err
	}
	for i, cell := range header {
		header[i] = cleanCell(cell)
	}

	textIdx, labelIdx, hasHeader, err := resolveColumns(header, cols)
	if err != nil {
		return nil, stats, err
	}

	var rows []Row
	if !hasHeader {
		rows = appendRow(rows, &stats, header, textIdx, labelIdx)
	}
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				stats.Skipped++
				continue
			}
			return rows, stats, err
		}
		rows = appendRow(rows, &stats, record, textIdx, labelIdx)
	}
	return rows, stats, nil
}

func appendRow(rows []Row, stats *RowStats, record []string, textIdx, labelIdx int) []Row {
	if textIdx >= len(record) || labelIdx >= len(record) {
		stats.Skipped++
		return rows
	}
	row := Row{Query: cleanCell(record[textIdx]), Label: cleanCell(record[labelIdx])}
	if row.Query == "" || row.Label == "" {
		stats.Skipped++
		return rows
	}
	stats.Accepted++
	return append(rows, row)
}

// resolveColumns finds the text and label columns. A header that matches no
// known column name is treated as data with text in #1 and label in #2.
func resolveColumns(header []string, cols ColumnOptions) (textIdx, labelIdx int, hasHeader bool, err error) {
	textIdx, textFromHeader, err := pickColumn(header, cols.TextColumn, textColumnCandidates)
	if err != nil {
		return -1, -1, false, err
	}
	labelIdx, labelFromHeader, err := pickColumn(header, cols.LabelColumn, labelColumnCandidates)
	if err != nil {
		return -1, -1, false, err
	}
	hasHeader = textFromHeader || labelFromHeader || looksLikeHeader(header)
	if !hasHeader {
		if len(header) < 2 {
			return -1, -1, false, ErrNoUsableColumns
		}
		if textIdx < 0 {
			textIdx = 0
		}
		if labelIdx < 0 {
			labelIdx = 1
		}
	}
	if textIdx < 0 || labelIdx < 0 || textIdx == labelIdx {
		return -1, -1, false, ErrNoUsableColumns
	}
	return textIdx, labelIdx, hasHeader, nil
}

func pickColumn(header []string, explicit string, candidates []string) (int, bool, error) {
	explicit = strings.TrimSpace(explicit)
	if explicit != "" {
		for i, col := range header {
			if strings.EqualFold(col, explicit) {
				return i, true, nil
			}
		}
		if strings.HasPrefix(explicit, "#") {
			idx, err := strconv.Atoi(strings.TrimPrefix(explicit, "#"))
			if err != nil || idx <= 0 {
				return -1, false, fmt.Errorf("invalid column index %q", explicit)
			}
			return idx - 1, false, nil
		}
		return -1, false, fmt.Errorf("column %q not found", explicit)
	}
	for _, cand := range candidates {
		for i, col := range header {
			if strings.EqualFold(col, cand) {
				return i, true, nil
			}
		}
	}
	return -1, false, nil
}

func looksLikeHeader(header []string) bool {
	for _, candidates := range [][]string{textColumnCandidates, labelColumnCandidates} {
		for _, cand := range candidates {
			for _, col := range header {
				if strings.EqualFold(col, cand) {
					return true
				}
			}
		}
	}
	return false
}

func cleanCell(v string) string {
	v = strings.TrimPrefix(v, "\ufeff")
	return strings.TrimSpace(v)
}
