package report

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spigell/hr-interviewer/internal/emotion"
)

func sampleData() Data {
	return Data{
		Name:          "Jane Doe",
		Score:         87,
		JobTitle:      "Backend Engineer",
		Feedback:      "Strong Go background.",
		Question:      "Describe a hard bug.",
		Grade:         "Clear and structured.",
		Transcript:    "Once I chased a race condition.",
		Confidence:    emotion.Result{Mean: 0.2391, Result: 0.3338, Conf: 89.5877, Frames: 12},
		Mood:          emotion.Mood{Dominant: emotion.Happy, PositiveShare: 0.75, Frames: 12},
		SampledFrames: 15,
		RecordID:      "0192b3c4-0000-7000-8000-000000000000",
		GeneratedAt:   time.Date(2026, 10, 17, 12, 30, 0, 0, time.UTC),
	}
}

func TestRender(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, sampleData()))

	out := buf.String()
	for _, want := range []string{
		"# Jane Doe\n",
		"## Overall Score: 87",
		"**Position:** Backend Engineer",
		"## Brief Overview\n\nStrong Go background.",
		"| Confidence | 89.59 |",
		"| Frames with a face | 12 of 15 |",
		"| Dominant emotion | happy |",
		"| Positive frames | 75% |",
		"## Interview Question\n\nDescribe a hard bug.",
		"## Interview Review\n\nClear and structured.",
		"## Transcript\n\nOnce I chased a race condition.",
		"Generated 2026-10-17 12:30 UTC",
		"record 0192b3c4-0000-7000-8000-000000000000",
	} {
		assert.Contains(t, out, want)
	}
	assert.NotContains(t, out, "No usable facial signal")
}

func TestRenderMinimal(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, Data{Confidence: emotion.Result{Conf: 50}}))

	out := buf.String()
	assert.Contains(t, out, "# Unknown candidate")
	assert.Contains(t, out, "No feedback was produced.")
	assert.Contains(t, out, "No usable facial signal")
	assert.NotContains(t, out, "## Transcript")
	assert.NotContains(t, out, "**Position:**")
	assert.NotContains(t, out, "Dominant emotion")
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reports", "jane.md")
	require.NoError(t, WriteFile(path, sampleData()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# Jane Doe")
}
