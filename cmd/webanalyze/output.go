package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/mamamialezatoz/go-webanalyze/internal/config"
	"github.com/mamamialezatoz/go-webanalyze/pkg/webanalyze"
)

// resultWriter renders results. Write is called from a single goroutine.
type resultWriter interface {
	Write(result webanalyze.Result) error
	Flush() error
}

func newResultWriter(format string, w io.Writer) (resultWriter, error) {
	switch strings.ToLower(format) {
	case config.OutputStdout:
		return &tableWriter{out: w}, nil
	case config.OutputCSV:
		writer := csv.NewWriter(w)
		if err := writer.Write([]string{"Host", "Category", "App", "Version"}); err != nil {
			return nil, err
		}
		return &csvWriter{writer: writer}, nil
	case config.OutputJSON:
		return &jsonWriter{encoder: json.NewEncoder(w)}, nil
	default:
		return nil, fmt.Errorf("unsupported output %q", format)
	}
}

type tableWriter struct {
	out io.Writer
}

func (t *tableWriter) Write(result webanalyze.Result) error {
	tw := table.NewWriter()
	tw.SetOutputMirror(t.out)
	tw.SetStyle(table.StyleLight)
	tw.SetTitle(fmt.Sprintf("%s (%.1fs)", result.Host, result.Duration.Seconds()))
	tw.AppendHeader(table.Row{"Technology", "Version", "Categories"})

	for _, match := range result.Matches {
		name := match.Technology
		if match.Implied {
			name += " (implied)"
		}
		tw.AppendRow(table.Row{name, match.Version, strings.Join(match.Categories, ", ")})
	}
	if len(result.Matches) == 0 {
		tw.AppendRow(table.Row{"<no results>", "", ""})
	}

	tw.Render()
	return nil
}

func (t *tableWriter) Flush() error {
	return nil
}

type csvWriter struct {
	writer *csv.Writer
}

func (c *csvWriter) Write(result webanalyze.Result) error {
	for _, match := range result.Matches {
		record := []string{result.Host, strings.Join(match.Categories, ", "), match.Technology, match.Version}
		if err := c.writer.Write(record); err != nil {
			return err
		}
	}
	c.writer.Flush()
	return c.writer.Error()
}

func (c *csvWriter) Flush() error {
	c.writer.Flush()
	return c.writer.Error()
}

type jsonWriter struct {
	encoder *json.Encoder
}

func (j *jsonWriter) Write(result webanalyze.Result) error {
	return j.encoder.Encode(result)
}

func (j *jsonWriter) Flush() error {
	return nil
}
