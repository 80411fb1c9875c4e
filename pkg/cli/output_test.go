package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

type testTable struct {
	Name string  `json:"name"`
	Cost float64 `json:"cost"`
}

func (t testTable) Header() []string { return []string{"NAME", "COST"} }
func (t testTable) Rows() [][]string {
	return [][]string{{t.Name, "0.0450"}, {"with,comma", "1"}}
}

func TestParseOutputFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    OutputFormat
		wantErr bool
	}{
		{in: "", want: FormatText},
		{in: "text", want: FormatText},
		{in: "JSON", want: FormatJSON},
		{in: "csv", want: FormatCSV},
		{in: "junit", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseOutputFormat(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseOutputFormat() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseOutputFormat() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTextFormatter(t *testing.T) {
	t.Run("plain value", func(t *testing.T) {
		buf := &bytes.Buffer{}
		if err := (&TextFormatter{}).FormatTo(buf, "test message"); err != nil {
			t.Fatalf("FormatTo() error = %v", err)
		}
		if buf.String() != "test message\n" {
			t.Errorf("FormatTo() = %q", buf.String())
		}
	})

	t.Run("tabular", func(t *testing.T) {
		buf := &bytes.Buffer{}
		if err := (&TextFormatter{}).FormatTo(buf, testTable{Name: "openai"}); err != nil {
			t.Fatalf("FormatTo() error = %v", err)
		}
		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		if len(lines) != 3 {
			t.Fatalf("got %d lines, want 3:\n%s", len(lines), buf.String())
		}
		if !strings.HasPrefix(lines[0], "NAME") || !strings.Contains(lines[0], "COST") {
			t.Errorf("header = %q", lines[0])
		}
		if strings.Index(lines[0], "COST") != strings.Index(lines[1], "0.0450") {
			t.Errorf("columns not aligned:\n%s", buf.String())
		}
	})
}

func TestJSONFormatter(t *testing.T) {
	buf := &bytes.Buffer{}
	if err := NewFormatter(FormatJSON).FormatTo(buf, testTable{Name: "openai", Cost: 0.045}); err != nil {
		t.Fatalf("FormatTo() error = %v", err)
	}

	var got testTable
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, buf.String())
	}
	if got.Name != "openai" || got.Cost != 0.045 {
		t.Errorf("decoded = %+v", got)
	}
	if !strings.Contains(buf.String(), "\n  ") {
		t.Error("expected indented JSON")
	}
}

func TestCSVFormatter(t *testing.T) {
	buf := &bytes.Buffer{}
	if err := NewFormatter(FormatCSV).FormatTo(buf, testTable{Name: "openai"}); err != nil {
		t.Fatalf("FormatTo() error = %v", err)
	}

	want := "NAME,COST\nopenai,0.0450\n\"with,comma\",1\n"
	if buf.String() != want {
		t.Errorf("FormatTo() = %q, want %q", buf.String(), want)
	}

	if err := NewFormatter(FormatCSV).FormatTo(&bytes.Buffer{}, "not tabular"); err == nil {
		t.Error("expected error for non-tabular data")
	}
}
