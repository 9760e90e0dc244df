package grading

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/spigell/hr-interviewer/internal/ai"
	"github.com/spigell/hr-interviewer/internal/utils"
)

//go:embed prompts/grade_response.md
var gradeTemplate string

//go:embed prompts/rank_feedback.md
var rankTemplate string

const defaultMaxLogLength = 200

// Assessment is the parsed ranking answer.
type Assessment struct {
	Name     string `json:"name"`
	Score    int    `json:"score"`
	Feedback string `json:"feedback"`
	// Raw is the unparsed model answer.
	Raw string `json:"-"`
}

// Grader builds grading prompts and interprets the model answers.
type Grader struct {
	llm       ai.Completer
	logger    *zap.Logger
	maxLogLen int
}

// New returns a Grader. A non-positive maxLogLength uses the default preview size.
func New(llm ai.Completer, logger *zap.Logger, maxLogLength int) *Grader {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Grader{llm: llm, logger: logger, maxLogLen: maxLogLength}
}

// GradeResponse asks the model to review an answer given the facial confidence score.
func (g *Grader) GradeResponse(ctx context.Context, question string, conf float64, transcript string) (string, error) {
	prompt := fill(gradeTemplate, map[string]string{
		"INTERVIEW_QUESTION": question,
		"CONFIDENCE_SCORE":   strconv.FormatFloat(conf, 'f', 2, 64),
		"RESPONSE_TEXT":      transcript,
	})

	answer, err := g.complete(ctx, "grade_response", prompt)
	if err != nil {
		return "", fmt.Errorf("grade response: %w", err)
	}

	return answer, nil
}

// Rank asks the model to score the candidate against the job requirements.
func (g *Grader) Rank(ctx context.Context, requirements, feedback, resume string) (*Assessment, error) {
	prompt := fill(rankTemplate, map[string]string{
		"JOB_REQUIREMENTS":   requirements,
		"INTERVIEW_FEEDBACK": feedback,
		"RESUME_TEXT":        resume,
	})

	answer, err := g.complete(ctx, "rank", prompt)
	if err != nil {
		return nil, fmt.Errorf("rank candidate: %w", err)
	}

	assessment, missing, err := ParseAssessment(answer)
	if err != nil {
		g.logger.Warn("ranking answer is not valid yaml",
			zap.String("response_preview", utils.TruncateForLog(answer, g.maxLogLen)),
			zap.Error(err),
		)
		return nil, err
	}

	if len(missing) > 0 {
		g.logger.Warn("ranking answer is missing keys",
			zap.Strings("missing", missing),
			zap.String("response_preview", utils.TruncateForLog(answer, g.maxLogLen)),
		)
	}

	return assessment, nil
}

func (g *Grader) complete(ctx context.Context, kind, prompt string) (string, error) {
	g.logger.Debug("sending prompt",
		zap.String("prompt", kind),
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, g.maxLogLen)),
	)

	answer, err := g.llm.Complete(ctx, prompt)
	if err != nil {
		return "", err
	}

	answer = strings.TrimSpace(answer)
	if answer == "" {
		return "", errors.New("model returned an empty answer")
	}

	return answer, nil
}

// ParseAssessment decodes a YAML ranking answer. It returns the keys that were absent.
func ParseAssessment(raw string) (*Assessment, []string, error) {
	body := utils.StripCodeFence(raw)

	var doc map[string]any
	if err := yaml.Unmarshal([]byte(body), &doc); err != nil {
		if doc = looseDocument(body); doc == nil {
			return nil, nil, fmt.Errorf("decode assessment: %w", err)
		}
	}
	if doc == nil {
		return nil, nil, errors.New("decode assessment: empty document")
	}

	assessment := &Assessment{Raw: raw}
	var missing []string

	if v, ok := doc["name"]; ok && v != nil {
		assessment.Name = strings.TrimSpace(fmt.Sprint(v))
	} else {
		missing = append(missing, "name")
	}

	if v, ok := doc["score"]; ok && v != nil {
		score, err := coerceScore(v)
		if err != nil {
			return nil, nil, err
		}
		assessment.Score = score
	} else {
		missing = append(missing, "score")
	}

	if v, ok := doc["feedback"]; ok && v != nil {
		assessment.Feedback = coerceText(v)
	} else {
		missing = append(missing, "feedback")
	}

	return assessment, missing, nil
}

func coerceScore(v any) (int, error) {
	var f float64
	switch val := v.(type) {
	case int:
		f = float64(val)
	case int64:
		f = float64(val)
	case float64:
		f = val
	case string:
		s := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(val), "/100"))
		s = strings.TrimSuffix(s, "%")
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("score %q is not a number", val)
		}
		f = parsed
	default:
		return 0, fmt.Errorf("score has unexpected type %T", v)
	}

	if math.IsNaN(f) {
		return 0, errors.New("score is not a number")
	}

	return int(math.Round(min(max(f, 0), 100))), nil
}

// coerceText flattens scalar or list feedback into a single string.
func coerceText(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case []any:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			if s := strings.TrimSpace(coerceText(item)); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, " ")
	case map[string]any:
		out, err := yaml.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return strings.TrimSpace(string(out))
	default:
		return strings.TrimSpace(fmt.Sprint(val))
	}
}

func fill(tmpl string, values map[string]string) string {
	pairs := make([]string, 0, len(values)*2)
	for key, value := range values {
		pairs = append(pairs, "{{"+key+"}}", strings.TrimSpace(value))
	}
	return strings.NewReplacer(pairs...).Replace(tmpl)
}

// looseDocument reads "key: value" lines when the answer is not valid YAML, which
// happens when the feedback text itself contains colons. Lines without a known key
// are appended to the previous key.
func looseDocument(body string) map[string]any {
	doc := map[string]any{}
	current := ""
	for _, line := range strings.Split(body, "\n") {
		key, value, found := strings.Cut(line, ":")
		key = strings.ToLower(strings.TrimSpace(key))
		if found && (key == "name" || key == "score" || key == "feedback") {
			current = key
			doc[key] = strings.TrimSpace(value)
			continue
		}
		if current != "" && strings.TrimSpace(line) != "" {
			doc[current] = strings.TrimSpace(fmt.Sprint(doc[current]) + " " + strings.TrimSpace(line))
		}
	}
	if len(doc) == 0 {
		return nil
	}
	return doc
}
