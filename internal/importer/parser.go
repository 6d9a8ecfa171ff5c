package importer

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// MaxRowLimit caps the number of data rows accepted from a single upload.
const MaxRowLimit = 50000

const (
	mimeCSV          = "text/csv"
	mimeExcelLegacy  = "application/vnd.ms-excel"
	mimeExcelOpenXML = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// ParseFile decodes an uploaded byte buffer into column names and string-keyed
// rows. Spreadsheet buffers use the first sheet; anything else is treated as
// delimited text with a header line.
func ParseFile(data []byte, mimeType string) (*ParsedFile, error) {
	var (
		parsed *ParsedFile
		err    error
	)
	if isSpreadsheet(data, mimeType) {
		parsed, err = parseSpreadsheet(data)
	} else {
		parsed, err = parseDelimited(data)
	}
	if err != nil {
		return nil, err
	}

	if parsed.TotalRows > MaxRowLimit {
		return nil, newParseError(
			fmt.Sprintf("File contains %d rows which exceeds the %d row limit", parsed.TotalRows, MaxRowLimit),
			map[string]any{"rowCount": parsed.TotalRows, "limit": MaxRowLimit},
		)
	}
	return parsed, nil
}

// isSpreadsheet reports whether the buffer should go through the XLSX decoder.
// Legacy Excel MIME is ambiguous: browsers attach it to plain .csv files, so
// it only counts as a spreadsheet when the bytes carry a zip signature.
func isSpreadsheet(data []byte, mimeType string) bool {
	switch mimeType {
	case mimeExcelOpenXML:
		return true
	case mimeExcelLegacy:
		return bytes.HasPrefix(data, []byte("PK"))
	default:
		return false
	}
}

func parseSpreadsheet(data []byte) (*ParsedFile, error) {
	book, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, wrapDecodeError(err)
	}
	defer book.Close()

	sheets := book.GetSheetList()
	if len(sheets) == 0 {
		return nil, newParseError("Excel file contains no sheets", nil)
	}

	cells, err := book.GetRows(sheets[0])
	if err != nil {
		return nil, wrapDecodeError(err)
	}
	if len(cells) < 2 {
		return nil, newParseError("File contains no data rows", nil)
	}

	columns := normalizeHeader(cells[0])
	rows := make([]RawRow, 0, len(cells)-1)
	for _, record := range cells[1:] {
		if isBlankRecord(record) {
			continue
		}
		rows = append(rows, recordToRow(columns, record))
	}
	if len(rows) == 0 {
		return nil, newParseError("File contains no data rows", nil)
	}

	return &ParsedFile{Columns: columns, Rows: rows, TotalRows: len(rows)}, nil
}

func parseDelimited(data []byte) (*ParsedFile, error) {
	text := string(data)
	if strings.TrimSpace(text) == "" {
		return nil, newParseError("File is empty", nil)
	}

	reader := csv.NewReader(strings.NewReader(text))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var columns []string
	rows := make([]RawRow, 0, 256)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, wrapDecodeError(err)
		}
		if columns == nil {
			columns = normalizeHeader(record)
			continue
		}
		if isBlankRecord(record) {
			continue
		}
		rows = append(rows, recordToRow(columns, record))
	}
	if len(rows) == 0 {
		return nil, newParseError("File contains no data rows", nil)
	}

	return &ParsedFile{Columns: columns, Rows: rows, TotalRows: len(rows)}, nil
}

func wrapDecodeError(err error) *Error {
	return newParseError(
		"Unable to parse file: it may be corrupt or in an unsupported format",
		map[string]any{"originalError": err.Error()},
	)
}

// recordToRow keys a positional record by column name. Missing trailing cells
// become empty strings; extra cells beyond the header are ignored.
func recordToRow(columns []string, record []string) RawRow {
	row := make(RawRow, len(columns))
	for i, column := range columns {
		if i < len(record) {
			row[column] = strings.TrimSpace(record[i])
		} else {
			row[column] = ""
		}
	}
	return row
}

func normalizeHeader(record []string) []string {
	columns := make([]string, len(record))
	for i, cell := range record {
		columns[i] = strings.TrimPrefix(strings.TrimSpace(cell), "\uFEFF")
	}
	return columns
}

func isBlankRecord(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
