package interview

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/spigell/hr-interviewer/internal/emotion"
	"github.com/spigell/hr-interviewer/internal/report"
	"github.com/spigell/hr-interviewer/internal/store"
)

// Stage names in execution order.
const (
	StageValidate      = "validate"
	StageExtractAudio  = "extract_audio"
	StageTranscribe    = "transcribe"
	StageSampleFrames  = "sample_frames"
	StageClassify      = "classify_frames"
	StageScore         = "score_confidence"
	StageParseResume   = "parse_resume"
	StageGradeResponse = "grade_response"
	StageRank          = "rank"
	StagePersist       = "persist"
	StageReport        = "report"

	audioFileName = "audio.wav"
)

// Analyzer runs the interview analysis pipeline.
type Analyzer struct {
	deps   Deps
	logger *zap.Logger
}

// run carries the state shared by the stages of one analysis.
type run struct {
	opts     Options
	workDir  string
	audio    string
	images   [][]byte
	analysis *Analysis
}

// New checks that the required collaborators are present.
func New(deps Deps) (*Analyzer, error) {
	var errs []error
	if deps.Media == nil {
		errs = append(errs, errors.New("frame source is required"))
	}
	if deps.Classifier == nil {
		errs = append(errs, errors.New("emotion classifier is required"))
	}
	if deps.Scorer == nil {
		errs = append(errs, errors.New("confidence scorer is required"))
	}
	if deps.Transcriber == nil {
		errs = append(errs, errors.New("transcriber is required"))
	}
	if deps.Resume == nil {
		errs = append(errs, errors.New("resume parser is required"))
	}
	if deps.Grader == nil {
		errs = append(errs, errors.New("grader is required"))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return &Analyzer{deps: deps, logger: log}, nil
}

// Analyze runs every stage for the submission. Validation problems are returned as
// *ValidationError before any work is done.
func (a *Analyzer) Analyze(ctx context.Context, sub Submission, opts Options) (*Analysis, error) {
	r := &run{opts: opts, analysis: &Analysis{Submission: sub}}

	stages := a.stages()
	if a.deps.Store == nil {
		disableByName(stages, StagePersist, "no store configured")
	}
	if opts.ReportPath == "" {
		disableByName(stages, StageReport, "no report path given")
	}

	workDir, cleanup, err := prepareWorkDir(opts.WorkDir)
	if err != nil {
		return nil, err
	}
	defer cleanup()
	r.workDir = workDir

	a.logger.Info("starting interview analysis",
		zap.String("video", filepath.Base(sub.VideoPath)),
		zap.String("resume", filepath.Base(sub.ResumePath)),
		zap.String("job_title", sub.JobTitle),
	)

	if err := runStages(ctx, a.logger, stages, r); err != nil {
		if IsValidation(err) {
			return nil, errors.Unwrap(err)
		}
		return r.analysis, err
	}

	return r.analysis, nil
}

func (a *Analyzer) stages() []stage {
	return []stage{
		newStage(StageValidate, func(_ context.Context, r *run) error {
			return r.analysis.Submission.Validate()
		}),
		newStage(StageExtractAudio, func(ctx context.Context, r *run) error {
			r.audio = filepath.Join(r.workDir, audioFileName)
			return a.deps.Media.ExtractAudio(ctx, r.analysis.Submission.VideoPath, r.audio)
		}),
		newStage(StageTranscribe, func(ctx context.Context, r *run) error {
			text, err := a.deps.Transcriber.Transcribe(ctx, r.audio)
			if err != nil {
				return err
			}
			r.analysis.Transcript = text
			return nil
		}),
		newStage(StageSampleFrames, func(ctx context.Context, r *run) error {
			images, err := a.deps.Media.Sample(ctx, r.analysis.Submission.VideoPath, r.opts.Stride)
			if err != nil {
				return err
			}
			r.images = make([][]byte, len(images))
			for i, img := range images {
				r.images[i] = img.Data
			}
			r.analysis.SampledFrames = len(images)
			return nil
		}),
		newStage(StageClassify, func(ctx context.Context, r *run) error {
			frames, err := a.deps.Classifier.ClassifyAll(ctx, r.images)
			if err != nil {
				return err
			}
			r.analysis.Frames = frames
			r.images = nil
			return nil
		}),
		newStage(StageScore, func(_ context.Context, r *run) error {
			res := a.deps.Scorer.ScoreFrames(r.analysis.Frames)
			r.analysis.Confidence = res
			r.analysis.Mood = emotion.Summarize(r.analysis.Frames)

			fields := []zap.Field{
				zap.Float64("mean", res.Mean),
				zap.Float64("result", res.Result),
				zap.Float64("conf", res.Conf),
				zap.Int("frames_with_face", res.Frames),
				zap.Int("frames_sampled", r.analysis.SampledFrames),
				zap.String("dominant_emotion", string(r.analysis.Mood.Dominant)),
				zap.Float64("positive_share", r.analysis.Mood.PositiveShare),
			}
			if res.NoSignal() {
				a.logger.Warn("no usable facial signal, confidence is neutral", fields...)
			} else {
				a.logger.Info("confidence scored", fields...)
			}
			return nil
		}),
		newStage(StageParseResume, func(ctx context.Context, r *run) error {
			markdown, err := a.deps.Resume.ParseToMarkdown(ctx, r.analysis.Submission.ResumePath)
			if err != nil {
				return err
			}
			r.analysis.Resume = markdown
			return nil
		}),
		newStage(StageGradeResponse, func(ctx context.Context, r *run) error {
			sub := r.analysis.Submission
			grade, err := a.deps.Grader.GradeResponse(ctx, sub.Question, r.analysis.Confidence.Conf, r.analysis.Transcript)
			if err != nil {
				return err
			}
			r.analysis.Grade = grade
			return nil
		}),
		newStage(StageRank, func(ctx context.Context, r *run) error {
			assessment, err := a.deps.Grader.Rank(ctx, r.analysis.Submission.Requirements, r.analysis.Grade, r.analysis.Resume)
			if err != nil {
				return err
			}
			r.analysis.Assessment = assessment
			a.logger.Info("candidate ranked",
				zap.String("candidate", assessment.Name),
				zap.Int("score", assessment.Score),
			)
			return nil
		}),
		newStage(StagePersist, a.persist),
		newStage(StageReport, func(_ context.Context, r *run) error {
			if err := report.WriteFile(r.opts.ReportPath, reportData(r.analysis)); err != nil {
				return err
			}
			r.analysis.ReportPath = r.opts.ReportPath
			a.logger.Info("report written", zap.String("path", r.opts.ReportPath))
			return nil
		}),
	}
}

func (a *Analyzer) persist(ctx context.Context, r *run) error {
	if r.opts.Confirm != nil {
		ok, err := r.opts.Confirm(r.analysis)
		if err != nil {
			return fmt.Errorf("confirmation: %w", err)
		}
		if !ok {
			a.logger.Info("result is not saved", zap.String("reason", "declined by reviewer"))
			return nil
		}
	}

	sub := r.analysis.Submission
	rec := store.Record{
		Confidence:        r.analysis.Confidence.Conf,
		InterviewQuestion: sub.Question,
		JobTitle:          sub.JobTitle,
		JobRequirements:   sub.Requirements,
	}
	if as := r.analysis.Assessment; as != nil {
		rec.Name = as.Name
		rec.Score = as.Score
		rec.Feedback = as.Feedback
	}

	id, err := a.deps.Store.Create(ctx, rec)
	if err != nil {
		return err
	}
	r.analysis.RecordID = id

	a.logger.Info("result saved", zap.String("id", id), zap.String("candidate", rec.Name))
	return nil
}

func reportData(an *Analysis) report.Data {
	d := report.Data{
		JobTitle:      an.Submission.JobTitle,
		Question:      an.Submission.Question,
		Grade:         an.Grade,
		Transcript:    an.Transcript,
		Confidence:    an.Confidence,
		Mood:          an.Mood,
		SampledFrames: an.SampledFrames,
		RecordID:      an.RecordID,
	}
	if an.Assessment != nil {
		d.Name = an.Assessment.Name
		d.Score = an.Assessment.Score
		d.Feedback = an.Assessment.Feedback
	}
	return d
}

func prepareWorkDir(dir string) (string, func(), error) {
	if dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", nil, fmt.Errorf("create work directory: %w", err)
		}
		return dir, func() {}, nil
	}

	tmp, err := os.MkdirTemp("", "hr-interviewer-")
	if err != nil {
		return "", nil, fmt.Errorf("create work directory: %w", err)
	}
	return tmp, func() { _ = os.RemoveAll(tmp) }, nil
}
