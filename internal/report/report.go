package report

import (
	_ "embed"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/template"
	"time"

	"github.com/spigell/hr-interviewer/internal/emotion"
)

//go:embed report.md.tmpl
var reportTemplate string

var tmpl = template.Must(template.New("report").Funcs(template.FuncMap{
	"percent": func(share float64) float64 { return share * 100 },
}).Parse(reportTemplate))

// Data is everything the reviewer report shows.
type Data struct {
	Name          string
	Score         int
	JobTitle      string
	Feedback      string
	Question      string
	Grade         string
	Transcript    string
	Confidence    emotion.Result
	Mood          emotion.Mood
	SampledFrames int
	RecordID      string
	GeneratedAt   time.Time
}

// Render writes the Markdown report to w.
func Render(w io.Writer, d Data) error {
	if d.GeneratedAt.IsZero() {
		d.GeneratedAt = time.Now()
	}
	if err := tmpl.Execute(w, d); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	return nil
}

// WriteFile renders the report into path, creating parent directories.
func WriteFile(path string, d Data) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create report directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}

	if err := Render(f, d); err != nil {
		_ = f.Close()
		return err
	}

	return f.Close()
}
