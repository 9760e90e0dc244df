package interview

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/hr-interviewer/internal/emotion"
	"github.com/spigell/hr-interviewer/internal/grading"
	"github.com/spigell/hr-interviewer/internal/media"
	"github.com/spigell/hr-interviewer/internal/store"
)

type fakeMedia struct {
	images    []media.Image
	audioPath string
	stride    int
	sampleErr error
}

func (f *fakeMedia) Sample(_ context.Context, _ string, stride int) ([]media.Image, error) {
	f.stride = stride
	return f.images, f.sampleErr
}

func (f *fakeMedia) ExtractAudio(_ context.Context, _ string, wavPath string) error {
	f.audioPath = wavPath
	return os.WriteFile(wavPath, []byte("RIFF"), 0o600)
}

type fakeClassifier struct {
	frames []emotion.Frame
	got    [][]byte
}

func (f *fakeClassifier) ClassifyAll(_ context.Context, images [][]byte) ([]emotion.Frame, error) {
	f.got = images
	return f.frames, nil
}

type fakeTranscriber struct{ path string }

func (f *fakeTranscriber) Transcribe(_ context.Context, path string) (string, error) {
	f.path = path
	return "I fixed the outage by rolling back.", nil
}

type fakeParser struct{ err error }

func (f *fakeParser) ParseToMarkdown(context.Context, string) (string, error) {
	return "# Jane Doe\n- Go", f.err
}

type fakeGrader struct {
	conf     float64
	feedback string
}

func (f *fakeGrader) GradeResponse(_ context.Context, _ string, conf float64, _ string) (string, error) {
	f.conf = conf
	return "Calm and precise.", nil
}

func (f *fakeGrader) Rank(_ context.Context, _, feedback, _ string) (*grading.Assessment, error) {
	f.feedback = feedback
	return &grading.Assessment{Name: "Jane Doe", Score: 82, Feedback: "Good fit."}, nil
}

type fixture struct {
	media      *fakeMedia
	classifier *fakeClassifier
	transcr    *fakeTranscriber
	parser     *fakeParser
	grader     *fakeGrader
	store      *store.Memory
	logs       *observer.ObservedLogs
}

func newFixture(t *testing.T) (*fixture, Deps) {
	t.Helper()

	scorer, err := emotion.NewScorer(emotion.DefaultWeights())
	require.NoError(t, err)

	core, logs := observer.New(zapcore.DebugLevel)

	f := &fixture{
		media: &fakeMedia{images: []media.Image{
			{Index: 0, Data: []byte("a")},
			{Index: 8, Data: []byte("b")},
			{Index: 16, Data: []byte("c")},
		}},
		classifier: &fakeClassifier{frames: []emotion.Frame{
			{emotion.Sad: 10, emotion.Fear: 5, emotion.Angry: 15, emotion.Disgust: 2, emotion.Happy: 50, emotion.Neutral: 10, emotion.Surprise: 8},
			nil,
			{emotion.Sad: 20, emotion.Fear: 10, emotion.Angry: 10, emotion.Disgust: 5, emotion.Happy: 40, emotion.Neutral: 15, emotion.Surprise: 5},
		}},
		transcr: &fakeTranscriber{},
		parser:  &fakeParser{},
		grader:  &fakeGrader{},
		store:   store.NewMemory(),
		logs:    logs,
	}

	return f, Deps{
		Media:       f.media,
		Classifier:  f.classifier,
		Scorer:      scorer,
		Transcriber: f.transcr,
		Resume:      f.parser,
		Grader:      f.grader,
		Store:       f.store,
		Logger:      zap.New(core),
	}
}

func validSubmission() Submission {
	return Submission{
		VideoPath:    "interview.mp4",
		ResumePath:   "cv.pdf",
		Question:     "Tell me about an outage.",
		JobTitle:     "SRE",
		Requirements: "On-call experience",
	}
}

func TestAnalyze(t *testing.T) {
	f, deps := newFixture(t)
	a, err := New(deps)
	require.NoError(t, err)

	workDir := t.TempDir()
	reportPath := filepath.Join(t.TempDir(), "jane.md")

	res, err := a.Analyze(context.Background(), validSubmission(), Options{Stride: 8, WorkDir: workDir, ReportPath: reportPath})
	require.NoError(t, err)

	assert.Equal(t, 8, f.media.stride)
	assert.Equal(t, filepath.Join(workDir, audioFileName), f.transcr.path)
	assert.Equal(t, [][]byte{[]byte("a"), []byte("b"), []byte("c")}, f.classifier.got)

	assert.Equal(t, "I fixed the outage by rolling back.", res.Transcript)
	assert.Equal(t, 3, res.SampledFrames)
	assert.Equal(t, 2, res.Confidence.Frames)
	assert.InDelta(t, 89.58774073575991, res.Confidence.Conf, 1e-6)
	assert.InDelta(t, res.Confidence.Conf, f.grader.conf, 1e-12)
	assert.Equal(t, emotion.Mood{Dominant: emotion.Happy, PositiveShare: 1, Frames: 2}, res.Mood)
	assert.Equal(t, "Calm and precise.", f.grader.feedback)
	assert.Equal(t, "Jane Doe", res.Assessment.Name)

	require.NotEmpty(t, res.RecordID)
	rec, err := f.store.Get(context.Background(), res.RecordID)
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", rec.Name)
	assert.Equal(t, 82, rec.Score)
	assert.Equal(t, "Good fit.", rec.Feedback)
	assert.Equal(t, "SRE", rec.JobTitle)
	assert.Equal(t, "On-call experience", rec.JobRequirements)
	assert.Equal(t, "Tell me about an outage.", rec.InterviewQuestion)
	assert.InDelta(t, res.Confidence.Conf, rec.Confidence, 1e-12)

	assert.Equal(t, reportPath, res.ReportPath)
	data, err := os.ReadFile(reportPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# Jane Doe")
	assert.Contains(t, string(data), "| Dominant emotion | happy |")

	names := make([]string, 0, len(res.Steps))
	for _, s := range res.Steps {
		assert.True(t, s.Enabled, s.Name)
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{
		StageValidate, StageExtractAudio, StageTranscribe, StageSampleFrames, StageClassify,
		StageScore, StageParseResume, StageGradeResponse, StageRank, StagePersist, StageReport,
	}, names)

	completed := f.logs.FilterMessage("stage completed").All()
	assert.Len(t, completed, len(names))
	assert.Equal(t, StageValidate, completed[0].ContextMap()["stage"])
}

func TestAnalyzeValidation(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Submission)
		want   string
	}{
		{name: "no video", modify: func(s *Submission) { s.VideoPath = "" }, want: "Please upload an interview video."},
		{name: "no resume", modify: func(s *Submission) { s.ResumePath = " " }, want: "Please upload a resume (PDF)."},
		{name: "no question", modify: func(s *Submission) { s.Question = "" }, want: "Please provide interview questions."},
		{name: "no requirements", modify: func(s *Submission) { s.Requirements = "" }, want: "Please provide job requirements."},
		{name: "bad video", modify: func(s *Submission) { s.VideoPath = "clip.webm" }, want: "Invalid video format."},
		{name: "bad resume", modify: func(s *Submission) { s.ResumePath = "cv.docx" }, want: "Please submit resume in PDF format."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, deps := newFixture(t)
			a, err := New(deps)
			require.NoError(t, err)

			sub := validSubmission()
			tt.modify(&sub)

			res, err := a.Analyze(context.Background(), sub, Options{})
			require.Error(t, err)
			assert.Nil(t, res)
			assert.True(t, IsValidation(err))
			assert.Equal(t, tt.want, err.Error())
			assert.Empty(t, f.media.audioPath, "no work must be done")
		})
	}
}

func TestAnalyzeWithoutStoreOrReport(t *testing.T) {
	_, deps := newFixture(t)
	deps.Store = nil
	a, err := New(deps)
	require.NoError(t, err)

	res, err := a.Analyze(context.Background(), validSubmission(), Options{})
	require.NoError(t, err)

	assert.Empty(t, res.RecordID)
	assert.Empty(t, res.ReportPath)

	last := res.Steps[len(res.Steps)-2:]
	assert.Equal(t, Step{Name: StagePersist, Reason: "no store configured"}, last[0])
	assert.Equal(t, Step{Name: StageReport, Reason: "no report path given"}, last[1])
}

func TestAnalyzeDeclinedConfirmation(t *testing.T) {
	f, deps := newFixture(t)
	a, err := New(deps)
	require.NoError(t, err)

	var asked *Analysis
	res, err := a.Analyze(context.Background(), validSubmission(), Options{
		Confirm: func(an *Analysis) (bool, error) {
			asked = an
			return false, nil
		},
	})
	require.NoError(t, err)

	require.NotNil(t, asked)
	assert.Equal(t, "Jane Doe", asked.Assessment.Name)
	assert.Empty(t, res.RecordID)

	records, err := f.store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestAnalyzeStageFailure(t *testing.T) {
	f, deps := newFixture(t)
	f.parser.err = errors.New("llm quota exhausted")
	a, err := New(deps)
	require.NoError(t, err)

	res, err := a.Analyze(context.Background(), validSubmission(), Options{})
	require.Error(t, err)
	assert.False(t, IsValidation(err))
	assert.Contains(t, err.Error(), StageParseResume+": llm quota exhausted")

	require.NotNil(t, res)
	assert.NotEmpty(t, res.Transcript, "completed stages keep their output")
	assert.Nil(t, res.Assessment)
}

func TestAnalyzeWithoutFaces(t *testing.T) {
	f, deps := newFixture(t)
	f.classifier.frames = []emotion.Frame{nil, nil, nil}
	a, err := New(deps)
	require.NoError(t, err)

	res, err := a.Analyze(context.Background(), validSubmission(), Options{})
	require.NoError(t, err)

	assert.Equal(t, 50.0, res.Confidence.Conf)
	assert.Len(t, f.logs.FilterMessage("no usable facial signal, confidence is neutral").All(), 1)
}

func TestAnalyzeCanceled(t *testing.T) {
	_, deps := newFixture(t)
	a, err := New(deps)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = a.Analyze(ctx, validSubmission(), Options{})
	require.ErrorIs(t, err, context.Canceled)
}

func TestNewRequiresDeps(t *testing.T) {
	_, err := New(Deps{})
	require.Error(t, err)
	for _, want := range []string{"frame source", "classifier", "scorer", "transcriber", "resume parser", "grader"} {
		assert.Contains(t, err.Error(), want)
	}
}
