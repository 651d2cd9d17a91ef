package dataset

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/chrissnell/structbreak/internal/types"
)

// ReadOptions tunes file parsing.
type ReadOptions struct {
	// Sheet selects an Excel worksheet; empty means the first one.
	Sheet string
	// Delimiter for CSV. If 0, auto-detects among ',', ';', '\t'.
	Delimiter rune
}

// Formats lists the accepted file extensions.
var Formats = []string{".csv", ".tsv", ".txt", ".xlsx", ".xlsm"}

// Read parses r according to the extension of name.
func Read(name string, r io.Reader, opts ReadOptions) (*Table, error) {
	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case ".csv", ".txt":
		return ReadCSV(name, r, opts.Delimiter)
	case ".tsv":
		delim := opts.Delimiter
		if delim == 0 {
			delim = '\t'
		}
		return ReadCSV(name, r, delim)
	case ".xlsx", ".xlsm":
		return ReadXLSX(name, r, opts.Sheet)
	default:
		return nil, fmt.Errorf("%w: %q (accepted: %s)", types.ErrUnsupportedFormat, ext, strings.Join(Formats, ", "))
	}
}

// ReadCSV parses delimited text with a header row.
func ReadCSV(name string, r io.Reader, delim rune) (*Table, error) {
	br := bufio.NewReader(r)
	if bom, err := br.Peek(3); err == nil && bytes.Equal(bom, []byte{0xEF, 0xBB, 0xBF}) {
		_, _ = br.Discard(3)
	}

	if delim == 0 {
		head, _ := br.Peek(sniffBytes)
		delim = sniffDelimiter(head)
	}

	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.Comma = delim

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%s: %w: file has no header row", name, types.ErrEmptyDataset)
		}
		return nil, fmt.Errorf("%s: read header: %w: %w", name, types.ErrUnsupportedFormat, err)
	}

	var records [][]string
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w: %w", name, types.ErrUnsupportedFormat, err)
		}
		if blankRecord(rec) {
			continue
		}
		records = append(records, rec)
	}

	return NewTable(name, header, records), nil
}

// ReadXLSX parses an Excel workbook. The first row of the sheet is the header.
func ReadXLSX(name string, r io.Reader, sheet string) (*Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", name, types.ErrUnsupportedFormat, err)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("%s: %w: workbook has no sheets", name, types.ErrEmptyDataset)
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("%s: sheet %q: %w: %w", name, sheet, types.ErrUnsupportedFormat, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s: sheet %q: %w: no header row", name, sheet, types.ErrEmptyDataset)
	}

	var records [][]string
	for _, row := range rows[1:] {
		if blankRecord(row) {
			continue
		}
		records = append(records, row)
	}
	return NewTable(name, rows[0], records), nil
}

const sniffBytes = 4096

// sniffDelimiter picks the candidate that occurs most often, outside quotes,
// on the first line of head.
func sniffDelimiter(head []byte) rune {
	if i := bytes.IndexByte(head, '\n'); i >= 0 {
		head = head[:i]
	}

	counts := map[rune]int{}
	quoted := false
	for _, c := range string(head) {
		switch c {
		case '"':
			quoted = !quoted
		case ',', ';', '\t':
			if !quoted {
				counts[c]++
			}
		}
	}

	best := ','
	for _, c := range []rune{';', '\t'} {
		if counts[c] > counts[best] {
			best = c
		}
	}
	return best
}

func blankRecord(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
