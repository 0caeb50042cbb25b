package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

type column struct {
	Header   string
	Align    text.Align
	MaxWidth int
}

func leftColumn(header string) column {
	return column{Header: header, Align: text.AlignLeft}
}

func rightColumn(header string) column {
	return column{Header: header, Align: text.AlignRight}
}

func pathColumn(header string) column {
	return column{Header: header, Align: text.AlignLeft, MaxWidth: 60}
}

func renderTable(columns []column, rows [][]string) string {
	if len(columns) == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, len(columns))
	configs := make([]table.ColumnConfig, len(columns))
	for i, col := range columns {
		header[i] = col.Header
		configs[i] = table.ColumnConfig{
			Number:      i + 1,
			Align:       col.Align,
			AlignHeader: text.AlignLeft,
			WidthMax:    col.MaxWidth,
		}
	}
	tw.AppendHeader(header)
	tw.SetColumnConfigs(configs)

	for _, row := range rows {
		r := make(table.Row, len(columns))
		for i := range columns {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}
	return tw.Render() + "\n"
}
