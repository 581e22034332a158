package batch

import (
	"bytes"
	"strings"
	"testing"

	"github.com/Sternrassler/release-attributes/pkg/summary"
)

func TestReadInput(t *testing.T) {
	input := "\ufefftitle,Release Date,IMDB_ID\n" +
		"Iron Man,2008-05-02,tt0371746\n" +
		"\"Hulk, The\",2008-06-13,\n" +
		"Short Row\n"

	rows, err := ReadInput(strings.NewReader(input), DefaultColumns())
	if err != nil {
		t.Fatalf("ReadInput failed: %v", err)
	}

	want := []InputRow{
		{Title: "Iron Man", RawID: "tt0371746"},
		{Title: "Hulk, The", RawID: ""},
		{Title: "Short Row", RawID: ""},
	}
	if len(rows) != len(want) {
		t.Fatalf("rows = %+v", rows)
	}
	for i := range want {
		if rows[i] != want[i] {
			t.Errorf("row %d = %+v, want %+v", i, rows[i], want[i])
		}
	}
}

func TestReadInput_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"missing id column", "title,year\nIron Man,2008\n"},
		{"missing title column", "name,imdb_id\nIron Man,tt0371746\n"},
		{"bad quoting", "title,imdb_id\n\"unterminated,tt1\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ReadInput(strings.NewReader(tt.input), DefaultColumns()); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestReadInput_CustomColumns(t *testing.T) {
	input := "movie,const\nIron Man,tt0371746\n"

	rows, err := ReadInput(strings.NewReader(input), Columns{Title: "movie", ID: "const"})
	if err != nil {
		t.Fatalf("ReadInput failed: %v", err)
	}
	if len(rows) != 1 || rows[0].RawID != "tt0371746" {
		t.Errorf("rows = %+v", rows)
	}
}

func TestWriteOutput(t *testing.T) {
	rows := []OutputRow{
		{Title: "Iron Man", Attributes: "premiere (1), blank (1), internet (1)"},
		{Title: "Hulk, The", Attributes: ""},
	}

	var buf bytes.Buffer
	if err := WriteOutput(&buf, rows); err != nil {
		t.Fatalf("WriteOutput failed: %v", err)
	}

	want := "title,attributes\n" +
		"Iron Man,\"premiere (1), blank (1), internet (1)\"\n" +
		"\"Hulk, The\",\n"
	if buf.String() != want {
		t.Errorf("output = %q, want %q", buf.String(), want)
	}

	back, err := ReadOutput(&buf)
	if err != nil {
		t.Fatalf("ReadOutput failed: %v", err)
	}
	for i := range rows {
		if back[i].Title != rows[i].Title || back[i].Attributes != rows[i].Attributes {
			t.Errorf("row %d = %+v, want %+v", i, back[i], rows[i])
		}
	}
}

func TestReadOutput_MissingAttributesColumn(t *testing.T) {
	rows, err := ReadOutput(strings.NewReader("title\nIron Man\n"))
	if err != nil {
		t.Fatalf("ReadOutput failed: %v", err)
	}
	if len(rows) != 1 || rows[0].Attributes != "" {
		t.Errorf("rows = %+v", rows)
	}

	if got := Summarize(rows)[0].Counts; got != (summary.Counts{}) {
		t.Errorf("counts = %+v, want zeros", got)
	}
}

func TestWriteSummaries(t *testing.T) {
	rows := []SummaryRow{
		{Title: "Iron Man", Counts: summary.Counts{Blank: 1, Internet: 1, Total: 3}},
		{Title: "Hulk, The"},
	}

	var buf bytes.Buffer
	if err := WriteSummaries(&buf, rows); err != nil {
		t.Fatalf("WriteSummaries failed: %v", err)
	}

	want := "title,blank,internet,total\n" +
		"Iron Man,1,1,3\n" +
		"\"Hulk, The\",0,0,0\n"
	if buf.String() != want {
		t.Errorf("output = %q, want %q", buf.String(), want)
	}
}
