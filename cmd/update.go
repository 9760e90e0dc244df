package cmd

import (
	"errors"
	"log"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/hr-interviewer/internal/logger"
	"github.com/spigell/hr-interviewer/internal/store"
)

var updateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Update a stored interview result",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		update(cmd, args[0])
	},
}

func init() {
	rootCmd.AddCommand(updateCmd)

	updateCmd.Flags().String("name", "", "candidate name")
	updateCmd.Flags().Int("score", 0, "overall score (0-100)")
	updateCmd.Flags().Float64("confidence", 0, "confidence score (0-100)")
	updateCmd.Flags().String("feedback", "", "feedback text")
	updateCmd.Flags().String("question", "", "interview question")
	updateCmd.Flags().String("job-title", "", "job title")
	updateCmd.Flags().String("requirements", "", "job requirements")
}

func update(cmd *cobra.Command, id string) {
	ctx := cmd.Context()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	patch, err := patchFromFlags(cmd.Flags())
	if err != nil {
		logger.Fatal("reading the update", zap.Error(err))
	}

	s, err := store.Open(ctx, config.Store)
	if err != nil {
		logger.Fatal("opening the result store", zap.Error(err), zap.String("backend", config.Store.Backend))
	}

	record, err := s.Update(ctx, id, patch)
	closeStore(s, logger)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			logger.Fatal("no such result", zap.String("id", id))
		}
		logger.Fatal("updating the result", zap.Error(err), zap.String("id", id))
	}

	logger.Info("result updated", zap.String("id", record.ID), zap.String("candidate", record.Name))
}

// patchFromFlags builds a patch from the flags that were set explicitly.
func patchFromFlags(flags *pflag.FlagSet) (store.Patch, error) {
	var patch store.Patch

	str := func(name string) *string {
		if !flags.Changed(name) {
			return nil
		}
		v, _ := flags.GetString(name)
		return &v
	}

	patch.Name = str("name")
	patch.Feedback = str("feedback")
	patch.InterviewQuestion = str("question")
	patch.JobTitle = str("job-title")
	patch.JobRequirements = str("requirements")

	if flags.Changed("score") {
		score, _ := flags.GetInt("score")
		if score < 0 || score > 100 {
			return patch, errors.New("score must be between 0 and 100")
		}
		patch.Score = &score
	}

	if flags.Changed("confidence") {
		conf, _ := flags.GetFloat64("confidence")
		if conf < 0 || conf > 100 {
			return patch, errors.New("confidence must be between 0 and 100")
		}
		patch.Confidence = &conf
	}

	if patch.Empty() {
		return patch, errors.New("nothing to update, set at least one field flag")
	}

	return patch, nil
}
