package grading

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type stubCompleter struct {
	answer  string
	err     error
	prompts []string
}

func (s *stubCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	s.prompts = append(s.prompts, prompt)
	return s.answer, s.err
}

func TestGradeResponseFillsPrompt(t *testing.T) {
	llm := &stubCompleter{answer: "  Strong, structured answer.  "}
	g := New(llm, zap.NewNop(), 0)

	feedback, err := g.GradeResponse(context.Background(), "Tell me about a failure.", 62.456, "I once broke prod.")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if feedback != "Strong, structured answer." {
		t.Fatalf("unexpected feedback: %q", feedback)
	}

	prompt := llm.prompts[0]
	for _, want := range []string{"Tell me about a failure.", "62.46", "I once broke prod."} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("prompt is missing %q", want)
		}
	}
	if strings.Contains(prompt, "{{") {
		t.Fatalf("prompt has unfilled placeholders: %s", prompt)
	}
}

func TestGradeResponseErrors(t *testing.T) {
	g := New(&stubCompleter{err: errors.New("quota")}, nil, 0)
	if _, err := g.GradeResponse(context.Background(), "q", 50, "a"); err == nil || !strings.Contains(err.Error(), "quota") {
		t.Fatalf("expected wrapped completer error, got %v", err)
	}

	g = New(&stubCompleter{answer: "  "}, nil, 0)
	if _, err := g.GradeResponse(context.Background(), "q", 50, "a"); err == nil {
		t.Fatal("expected error for empty answer")
	}
}

func TestRank(t *testing.T) {
	llm := &stubCompleter{answer: "```yaml\nname: Jane Doe\nscore: 87\nfeedback: Solid Go experience and calm delivery.\n```"}
	g := New(llm, zap.NewNop(), 0)

	got, err := g.Rank(context.Background(), "5y Go", "good interview", "# Jane Doe")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got.Name != "Jane Doe" || got.Score != 87 || got.Feedback != "Solid Go experience and calm delivery." {
		t.Fatalf("unexpected assessment: %+v", got)
	}
	if got.Raw != llm.answer {
		t.Fatalf("expected raw answer to be kept")
	}

	prompt := llm.prompts[0]
	for _, want := range []string{"5y Go", "good interview", "# Jane Doe"} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("prompt is missing %q", want)
		}
	}
}

func TestRankWarnsOnMissingKeys(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	g := New(&stubCompleter{answer: "name: Jane\nscore: 40"}, zap.New(core), 0)

	got, err := g.Rank(context.Background(), "r", "f", "cv")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Feedback != "" {
		t.Fatalf("expected empty feedback, got %q", got.Feedback)
	}

	entries := logs.FilterMessage("ranking answer is missing keys").All()
	if len(entries) != 1 {
		t.Fatalf("expected one warning, got %d", len(entries))
	}
}

func TestRankInvalidAnswer(t *testing.T) {
	g := New(&stubCompleter{answer: "I cannot help with that"}, nil, 0)

	if _, err := g.Rank(context.Background(), "r", "f", "cv"); err == nil {
		t.Fatal("expected error for non-yaml answer")
	}
}

func TestParseAssessment(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    Assessment
		missing int
		wantErr bool
	}{
		{
			name: "float score is rounded",
			raw:  "name: Ann\nscore: 72.6\nfeedback: ok",
			want: Assessment{Name: "Ann", Score: 73, Feedback: "ok"},
		},
		{
			name: "string score with suffix",
			raw:  "name: Ann\nscore: \"64/100\"\nfeedback: ok",
			want: Assessment{Name: "Ann", Score: 64, Feedback: "ok"},
		},
		{
			name: "score is clamped",
			raw:  "name: Ann\nscore: 140\nfeedback: ok",
			want: Assessment{Name: "Ann", Score: 100, Feedback: "ok"},
		},
		{
			name: "list feedback is joined",
			raw:  "name: Ann\nscore: 10\nfeedback:\n  - Lacks Go.\n  - Not a fit.",
			want: Assessment{Name: "Ann", Score: 10, Feedback: "Lacks Go. Not a fit."},
		},
		{
			name: "colons in feedback fall back to line parsing",
			raw:  "name: Ann\nscore: 55\nfeedback: Verdict: partial fit\nneeds mentoring",
			want: Assessment{Name: "Ann", Score: 55, Feedback: "Verdict: partial fit needs mentoring"},
		},
		{
			name:    "missing keys",
			raw:     "feedback: short",
			want:    Assessment{Feedback: "short"},
			missing: 2,
		},
		{
			name:    "bad score",
			raw:     "name: Ann\nscore: excellent\nfeedback: ok",
			wantErr: true,
		},
		{
			name:    "empty",
			raw:     "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, missing, err := ParseAssessment(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			got.Raw = ""
			if *got != tt.want {
				t.Fatalf("got %+v, want %+v", *got, tt.want)
			}
			if len(missing) != tt.missing {
				t.Fatalf("expected %d missing keys, got %v", tt.missing, missing)
			}
		})
	}
}
