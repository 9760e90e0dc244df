package interview

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/hr-interviewer/internal/ai"
	"github.com/spigell/hr-interviewer/internal/emotion"
	"github.com/spigell/hr-interviewer/internal/grading"
	"github.com/spigell/hr-interviewer/internal/media"
	"github.com/spigell/hr-interviewer/internal/store"
)

// FrameSource decodes the interview recording.
type FrameSource interface {
	Sample(ctx context.Context, videoPath string, stride int) ([]media.Image, error)
	ExtractAudio(ctx context.Context, videoPath, wavPath string) error
}

// FrameClassifier turns sampled frames into emotion distributions, preserving order.
type FrameClassifier interface {
	ClassifyAll(ctx context.Context, images [][]byte) ([]emotion.Frame, error)
}

// Grader reviews the answer and ranks the candidate.
type Grader interface {
	GradeResponse(ctx context.Context, question string, conf float64, transcript string) (string, error)
	Rank(ctx context.Context, requirements, feedback, resume string) (*grading.Assessment, error)
}

// Deps aggregates the collaborators used by the analysis stages.
type Deps struct {
	Media       FrameSource
	Classifier  FrameClassifier
	Scorer      *emotion.Scorer
	Transcriber ai.Transcriber
	Resume      ai.DocumentParser
	Grader      Grader
	// Store is optional, results are not persisted without it.
	Store  store.Store
	Logger *zap.Logger
}

// Submission is the reviewer input for one candidate.
type Submission struct {
	VideoPath    string
	ResumePath   string
	Question     string
	JobTitle     string
	Requirements string
}

// Options tune a single analysis run.
type Options struct {
	// Stride samples every Stride-th video frame. Zero uses the sampler default.
	Stride int
	// WorkDir keeps intermediate files. Empty means a temporary directory.
	WorkDir string
	// ReportPath enables the Markdown report when set.
	ReportPath string
	// Confirm is asked before the result is stored. Nil stores without asking.
	Confirm func(*Analysis) (bool, error)
}

// Analysis is the outcome of a run.
type Analysis struct {
	Submission    Submission
	Transcript    string
	SampledFrames int
	Frames        []emotion.Frame
	Confidence    emotion.Result
	Mood          emotion.Mood
	Resume        string
	Grade         string
	Assessment    *grading.Assessment
	RecordID      string
	ReportPath    string
	Steps         []Step
}

// Step describes one executed or skipped stage.
type Step struct {
	Name     string
	Enabled  bool
	Reason   string
	Duration time.Duration
}

// ValidationError reports unusable reviewer input.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// Validate checks the submission in the order the reviewer fills it in.
func (s Submission) Validate() error {
	switch {
	case strings.TrimSpace(s.VideoPath) == "":
		return &ValidationError{Message: "Please upload an interview video."}
	case strings.TrimSpace(s.ResumePath) == "":
		return &ValidationError{Message: "Please upload a resume (PDF)."}
	case strings.TrimSpace(s.Question) == "":
		return &ValidationError{Message: "Please provide interview questions."}
	case strings.TrimSpace(s.Requirements) == "":
		return &ValidationError{Message: "Please provide job requirements."}
	case media.ValidateVideo(s.VideoPath) != nil:
		return &ValidationError{Message: "Invalid video format."}
	case media.ValidateResume(s.ResumePath) != nil:
		return &ValidationError{Message: "Please submit resume in PDF format."}
	}
	return nil
}
