package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/spigell/hr-interviewer/internal/emotion"
	"github.com/spigell/hr-interviewer/internal/interview"
	"github.com/spigell/hr-interviewer/internal/store"
)

const (
	outputTable = "table"
	outputJSON  = "json"

	strongValue = "Strong"
	goodValue   = "Good"
	fairValue   = "Fair"
	weakValue   = "Weak"
)

var (
	strongColor = color.New(color.FgGreen, color.Bold)
	goodColor   = color.New(color.FgGreen)
	fairColor   = color.New(color.FgYellow)
	weakColor   = color.New(color.FgRed, color.Bold)
)

// plainLabel buckets a 0..100 score.
func plainLabel(score float64) string {
	switch {
	case score >= 80:
		return strongValue
	case score >= 60:
		return goodValue
	case score >= 40:
		return fairValue
	default:
		return weakValue
	}
}

func colorLabel(score float64) string {
	text := plainLabel(score)

	switch text {
	case strongValue:
		return strongColor.Sprint(text)
	case goodValue:
		return goodColor.Sprint(text)
	case fairValue:
		return fairColor.Sprint(text)
	default:
		return weakColor.Sprint(text)
	}
}

func fmtFloat(v float64, precision int) string {
	return strconv.FormatFloat(v, 'f', precision, 64)
}

func newTable(w io.Writer, headers []string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.Header(headers)
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})
	return table
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printRecords writes stored results as a table.
func printRecords(w io.Writer, records []store.Record) error {
	table := newTable(w, []string{"ID", "Created", "Name", "Job Title", "Score", "Label", "Confidence"})

	data := make([][]string, 0, len(records))
	for _, r := range records {
		data = append(data, []string{
			r.ID,
			r.CreatedAt.Local().Format("2006-01-02 15:04"),
			r.Name,
			r.JobTitle,
			strconv.Itoa(r.Score),
			colorLabel(float64(r.Score)),
			fmtFloat(r.Confidence, 1),
		})
	}

	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}

func moodRows(mood emotion.Mood) [][]string {
	if mood.Frames == 0 {
		return nil
	}
	return [][]string{
		{"dominant", string(mood.Dominant)},
		{"positive frames", fmtFloat(mood.PositiveShare*100, 0) + "%"},
	}
}

// printScore writes per-label averages, the confidence result and the mood summary.
func printScore(w io.Writer, totals emotion.Totals, res emotion.Result, mood emotion.Mood) error {
	table := newTable(w, []string{"Metric", "Value"})

	data := make([][]string, 0, len(emotion.Labels())+7)
	for _, l := range emotion.Labels() {
		data = append(data, []string{string(l), fmtFloat(totals.Get(l), 4)})
	}
	data = append(data,
		[]string{"frames", strconv.Itoa(res.Frames)},
		[]string{"mean", fmtFloat(res.Mean, 4)},
		[]string{"result", fmtFloat(res.Result, 4)},
		[]string{"conf", fmtFloat(res.Conf, 2)},
		[]string{"label", colorLabel(res.Conf)},
	)
	data = append(data, moodRows(mood)...)

	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}

// printAnalysis writes a short summary of an analysis.
func printAnalysis(w io.Writer, a *interview.Analysis) {
	if a == nil {
		return
	}

	table := newTable(w, []string{"Field", "Value"})

	data := [][]string{
		{"Confidence", fmt.Sprintf("%s (%s)", fmtFloat(a.Confidence.Conf, 2), colorLabel(a.Confidence.Conf))},
		{"Frames with a face", fmt.Sprintf("%d of %d", a.Confidence.Frames, a.SampledFrames)},
	}
	data = append(data, moodRows(a.Mood)...)
	if as := a.Assessment; as != nil {
		data = append(data,
			[]string{"Candidate", as.Name},
			[]string{"Score", fmt.Sprintf("%d (%s)", as.Score, colorLabel(float64(as.Score)))},
			[]string{"Feedback", as.Feedback},
		)
	}
	if a.RecordID != "" {
		data = append(data, []string{"Record", a.RecordID})
	}
	if a.ReportPath != "" {
		data = append(data, []string{"Report", a.ReportPath})
	}

	if err := table.Bulk(data); err != nil {
		fmt.Fprintf(w, "printing analysis: %v\n", err)
		return
	}
	if err := table.Render(); err != nil {
		fmt.Fprintf(w, "printing analysis: %v\n", err)
	}
}
