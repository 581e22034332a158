// Package batch turns a list of titles into attribute summaries, one output
// row per input row, and projects those summaries into counts.
package batch

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/Sternrassler/release-attributes/pkg/summary"
)

// InputRow is one title of the batch input.
type InputRow struct {
	Title string
	// RawID is the external id cell as read, before validation.
	RawID string
}

// OutputRow is the batch output for one input row.
type OutputRow struct {
	Title string
	// Attributes is the encoded summary, "" for invalid or skipped rows.
	Attributes string
	// Aggregate is set for rows produced in this process. Rows read back
	// from a file only carry Attributes.
	Aggregate summary.Aggregate
}

// SummaryRow is the counts projection of one OutputRow.
type SummaryRow struct {
	Title string
	summary.Counts
}

// InvalidIDError is returned by ParseExternalID for absent or unusable ids.
type InvalidIDError struct {
	Raw string
}

// Error implements the error interface.
func (e *InvalidIDError) Error() string {
	return fmt.Sprintf("invalid external id %q", e.Raw)
}

// ParseExternalID validates a raw id cell. Empty cells, spreadsheet null
// markers and ids containing whitespace are rejected.
func ParseExternalID(raw string) (string, error) {
	id := strings.TrimSpace(raw)
	switch strings.ToLower(id) {
	case "", "nan", "none", "null", "<na>":
		return "", &InvalidIDError{Raw: raw}
	}
	if strings.IndexFunc(id, unicode.IsSpace) >= 0 {
		return "", &InvalidIDError{Raw: raw}
	}
	return id, nil
}

// Summarize projects output rows into blank, internet and total counts.
// Rows produced in this process are counted from their aggregate; rows
// read back from a file are decoded from their attribute text.
func Summarize(rows []OutputRow) []SummaryRow {
	out := make([]SummaryRow, len(rows))
	for i, row := range rows {
		out[i].Title = row.Title
		if row.Aggregate.IsEmpty() {
			out[i].Counts = summary.Decode(row.Attributes)
		} else {
			out[i].Counts = summary.CountsOf(row.Aggregate)
		}
	}
	return out
}
