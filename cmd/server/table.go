package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// uuidWidth is the canonical hyphenated uuid length.
const uuidWidth = 36

type column struct {
	Title string
	Align text.Align
	// Width pins the column to exactly this many runes; 0 sizes to content.
	Width int
	// Wrap soft-wraps cells longer than this many runes; 0 disables.
	Wrap int
}

var (
	taskColumns = []column{
		{Title: "Task", Width: uuidWidth},
		{Title: "Audio", Width: uuidWidth},
		{Title: "Status"},
		{Title: "Attempts", Align: text.AlignRight},
		{Title: "Updated"},
		{Title: "Last Error", Wrap: 60},
	}
	statsColumns = []column{
		{Title: "Status"},
		{Title: "Count", Align: text.AlignRight},
	}
)

// renderTable draws rows under columns. Short rows are padded with empty
// cells and extra cells are dropped.
func renderTable(columns []column, rows [][]string) string {
	if len(columns) == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, len(columns))
	configs := make([]table.ColumnConfig, len(columns))
	for i, c := range columns {
		header[i] = c.Title
		cfg := table.ColumnConfig{
			Number:      i + 1,
			Align:       c.Align,
			AlignHeader: text.AlignLeft,
		}
		if cfg.Align == text.AlignDefault {
			cfg.Align = text.AlignLeft
		}
		if c.Width > 0 {
			cfg.WidthMin, cfg.WidthMax = c.Width, c.Width
		}
		if c.Wrap > 0 {
			cfg.WidthMax = c.Wrap
			cfg.WidthMaxEnforcer = text.WrapSoft
		}
		configs[i] = cfg
	}
	tw.AppendHeader(header)
	tw.SetColumnConfigs(configs)

	for _, row := range rows {
		r := make(table.Row, len(columns))
		for i := range r {
			r[i] = ""
			if i < len(row) {
				r[i] = row[i]
			}
		}
		tw.AppendRow(r)
	}

	return tw.Render() + "\n"
}
