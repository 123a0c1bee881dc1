package console

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/depthview/depthview-client/internal/history"
	"github.com/depthview/depthview-client/internal/results"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := 0; i < columns; i++ {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := 0; i < columns; i++ {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	columnConfigs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		columnConfigs = append(columnConfigs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(columnConfigs)

	return tw.Render()
}

func renderDownloads(result results.Result) string {
	rows := [][]string{
		{"source", result.Source},
		{"depth", result.Depth},
		{"rgbd", result.RGBD},
		{"download", result.Primary},
	}
	return renderTable(
		[]string{"Output", "Reference"},
		rows,
		[]columnAlignment{alignLeft, alignLeft},
	)
}

// RenderHistory renders past job records newest-first.
func RenderHistory(records []history.Record) string {
	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		errText := rec.Error
		if rec.Status == history.StatusSucceeded {
			errText = ""
		}
		rows = append(rows, []string{
			rec.CreatedAt.Local().Format("2006-01-02 15:04"),
			rec.Filename,
			fmt.Sprintf("%.1f", rec.SizeMB),
			rec.Params.Encoder,
			rec.Params.MaxRes,
			rec.Status,
			formatDuration(rec.Duration),
			errText,
		})
	}
	return renderTable(
		[]string{"When", "File", "MB", "Encoder", "Max res", "Status", "Took", "Error"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignRight, alignLeft, alignRight, alignLeft},
	)
}

func formatDuration(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	return d.Round(time.Second).String()
}
