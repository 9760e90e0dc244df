package cmd

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/hr-interviewer/internal/ai/gemini"
	"github.com/spigell/hr-interviewer/internal/classifier"
	"github.com/spigell/hr-interviewer/internal/emotion"
	"github.com/spigell/hr-interviewer/internal/grading"
	"github.com/spigell/hr-interviewer/internal/interview"
	"github.com/spigell/hr-interviewer/internal/logger"
	"github.com/spigell/hr-interviewer/internal/media"
	"github.com/spigell/hr-interviewer/internal/store"
)

const (
	PromptYes = "Yes"
	PromptNo  = "No"
)

var savePrompt = promptui.Select{
	Label: "Save the result?",
	Items: []string{PromptYes, PromptNo},
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze an interview recording against the job requirements",
	Run: func(cmd *cobra.Command, _ []string) {
		analyze(cmd)
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().String("video", "", "interview recording (.mp4, .avi, .mkv, .mov)")
	analyzeCmd.Flags().String("resume", "", "candidate resume (.pdf)")
	analyzeCmd.Flags().String("question", "", "the interview question the candidate answers")
	analyzeCmd.Flags().String("job-title", "", "job title stored with the result")
	analyzeCmd.Flags().String("requirements", "", "job requirements")
	analyzeCmd.Flags().String("requirements-file", "", "file with job requirements")
	analyzeCmd.Flags().String("report", "", "write a Markdown report to this path")
	analyzeCmd.Flags().String("work-dir", "", "keep intermediate files in this directory")
	analyzeCmd.Flags().Int("stride", 0, "analyze every N-th video frame (default from media.stride)")
	analyzeCmd.Flags().Bool("no-store", false, "do not save the result")
	analyzeCmd.Flags().BoolP("auto-approve", "y", false, "save the result without asking for confirmation")
}

func analyze(cmd *cobra.Command) {
	ctx := cmd.Context()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}
	defer func() { _ = logger.Sync() }()

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the hr-interviewer", zap.String("version", version))

	sub, err := submissionFromFlags(cmd)
	if err != nil {
		logger.Fatal("reading the submission", zap.Error(err))
	}

	scorer, err := emotion.NewScorer(config.Emotion.Weights)
	if err != nil {
		logger.Fatal("configuring the confidence scorer", zap.Error(err))
	}

	generator, err := newGeminiGenerator(ctx, config.LLM, logger)
	if err != nil {
		logger.Fatal("configuring gemini", zap.Error(err))
	}

	completer, err := newCompleter(config.LLM, generator, logger)
	if err != nil {
		logger.Fatal("configuring the llm provider", zap.Error(err))
	}

	deps := interview.Deps{
		Media:       media.New(config.Media, logger),
		Classifier:  classifier.New(config.Classifier, logger),
		Scorer:      scorer,
		Transcriber: gemini.NewTranscriber(generator, logger),
		Resume:      gemini.NewResumeParser(generator, logger),
		Grader:      grading.New(completer, logger, config.LLM.MaxLogLength),
		Logger:      logger,
	}

	noStore, _ := cmd.Flags().GetBool("no-store")
	if !noStore {
		s, err := store.Open(ctx, config.Store)
		if err != nil {
			logger.Fatal("opening the result store", zap.Error(err), zap.String("backend", config.Store.Backend))
		}
		deps.Store = s
	}
	// fatal releases the store first, os.Exit skips deferred calls.
	fatal := func(msg string, fields ...zap.Field) {
		closeStore(deps.Store, logger)
		logger.Fatal(msg, fields...)
	}
	defer closeStore(deps.Store, logger)

	analyzer, err := interview.New(deps)
	if err != nil {
		fatal("creating the analyzer", zap.Error(err))
	}

	stride, _ := cmd.Flags().GetInt("stride")
	reportPath, _ := cmd.Flags().GetString("report")
	workDir, _ := cmd.Flags().GetString("work-dir")
	autoApprove, _ := cmd.Flags().GetBool("auto-approve")

	opts := interview.Options{
		Stride:     stride,
		WorkDir:    workDir,
		ReportPath: reportPath,
	}
	if !autoApprove {
		opts.Confirm = func(a *interview.Analysis) (bool, error) {
			printAnalysis(cmd.OutOrStdout(), a)
			_, answer, err := savePrompt.Run()
			if err != nil {
				return false, err
			}
			return answer == PromptYes, nil
		}
	}

	result, err := analyzer.Analyze(ctx, sub, opts)
	if err != nil {
		if interview.IsValidation(err) {
			fatal("invalid submission", zap.String("reason", err.Error()))
		}
		fatal("analysis failed", zap.Error(err))
	}

	if autoApprove || deps.Store == nil {
		printAnalysis(cmd.OutOrStdout(), result)
	}

	logger.Info("analysis finished",
		zap.String("candidate", result.Assessment.Name),
		zap.Int("score", result.Assessment.Score),
		zap.Float64("confidence", result.Confidence.Conf),
		zap.String("record_id", result.RecordID),
	)
}

// closeStore closes s if it is set and logs a failed close.
func closeStore(s store.Store, logger *zap.Logger) {
	if s == nil {
		return
	}
	if err := s.Close(); err != nil {
		logger.Warn("closing the result store", zap.Error(err))
	}
}

func submissionFromFlags(cmd *cobra.Command) (interview.Submission, error) {
	flags := cmd.Flags()

	video, _ := flags.GetString("video")
	resume, _ := flags.GetString("resume")
	question, _ := flags.GetString("question")
	jobTitle, _ := flags.GetString("job-title")
	requirements, _ := flags.GetString("requirements")
	requirementsFile, _ := flags.GetString("requirements-file")

	if requirementsFile != "" {
		if requirements != "" {
			return interview.Submission{}, errors.New("use either --requirements or --requirements-file")
		}
		data, err := os.ReadFile(requirementsFile)
		if err != nil {
			return interview.Submission{}, fmt.Errorf("reading requirements file: %w", err)
		}
		requirements = string(data)
	}

	return interview.Submission{
		VideoPath:    strings.TrimSpace(video),
		ResumePath:   strings.TrimSpace(resume),
		Question:     strings.TrimSpace(question),
		JobTitle:     strings.TrimSpace(jobTitle),
		Requirements: strings.TrimSpace(requirements),
	}, nil
}
