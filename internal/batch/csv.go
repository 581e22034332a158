package batch

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

const (
	titleHeader      = "title"
	attributesHeader = "attributes"
)

// Columns names the input columns holding the title and the external id.
type Columns struct {
	Title string
	ID    string
}

// DefaultColumns returns the column names of the filtered movie list.
func DefaultColumns() Columns {
	return Columns{Title: titleHeader, ID: "imdb_id"}
}

// ReadInput reads batch input rows. Header names are matched
// case-insensitively; short records yield empty cells.
func ReadInput(r io.Reader, cols Columns) ([]InputRow, error) {
	header, records, err := readAll(r)
	if err != nil {
		return nil, err
	}

	titleIdx, err := requireColumn(header, cols.Title)
	if err != nil {
		return nil, err
	}
	idIdx, err := requireColumn(header, cols.ID)
	if err != nil {
		return nil, err
	}

	rows := make([]InputRow, len(records))
	for i, rec := range records {
		rows[i] = InputRow{
			Title: cell(rec, titleIdx),
			RawID: cell(rec, idIdx),
		}
	}
	return rows, nil
}

// WriteOutput writes rows as title,attributes.
func WriteOutput(w io.Writer, rows []OutputRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{titleHeader, attributesHeader}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, row := range rows {
		if err := cw.Write([]string{row.Title, row.Attributes}); err != nil {
			return fmt.Errorf("write row %q: %w", row.Title, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadOutput reads rows written by WriteOutput. A missing attributes
// column or cell reads as an empty summary.
func ReadOutput(r io.Reader) ([]OutputRow, error) {
	header, records, err := readAll(r)
	if err != nil {
		return nil, err
	}

	titleIdx, err := requireColumn(header, titleHeader)
	if err != nil {
		return nil, err
	}
	attrIdx := findColumn(header, attributesHeader)

	rows := make([]OutputRow, len(records))
	for i, rec := range records {
		rows[i] = OutputRow{
			Title:      cell(rec, titleIdx),
			Attributes: cell(rec, attrIdx),
		}
	}
	return rows, nil
}

// WriteSummaries writes rows as title,blank,internet,total.
func WriteSummaries(w io.Writer, rows []SummaryRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{titleHeader, "blank", "internet", "total"}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, row := range rows {
		record := []string{
			row.Title,
			strconv.Itoa(row.Blank),
			strconv.Itoa(row.Internet),
			strconv.Itoa(row.Total),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write row %q: %w", row.Title, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func readAll(r io.Reader) ([]string, [][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, errors.New("csv input is empty")
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read csv header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	records, err := cr.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("read csv records: %w", err)
	}
	return header, records, nil
}

func findColumn(header []string, name string) int {
	for i, h := range header {
		if strings.EqualFold(strings.TrimSpace(h), name) {
			return i
		}
	}
	return -1
}

func requireColumn(header []string, name string) (int, error) {
	idx := findColumn(header, name)
	if idx < 0 {
		return -1, fmt.Errorf("csv column %q not found in header %v", name, header)
	}
	return idx, nil
}

func cell(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return record[idx]
}
