package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/hr-interviewer/internal/emotion"
	"github.com/spigell/hr-interviewer/internal/logger"
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Compute the confidence score for classifier output",
	Long: `Compute the confidence score for per-frame emotion probabilities.

The input is a JSON array with one object per sampled frame, mapping emotion labels to
probabilities in 0..100. A null entry marks a frame without a detected face.`,
	Run: func(cmd *cobra.Command, _ []string) {
		score(cmd)
	},
}

func init() {
	rootCmd.AddCommand(scoreCmd)

	scoreCmd.Flags().StringP("frames", "f", "-", "JSON file with frame emotions, - reads stdin")
	scoreCmd.Flags().StringP("output", "o", outputTable, "output format: table or json")
}

type scoreOutput struct {
	Totals emotion.Totals `json:"totals"`
	Result emotion.Result `json:"result"`
	Mood   emotion.Mood   `json:"mood"`
}

func score(cmd *cobra.Command) {
	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	scorer, err := emotion.NewScorer(config.Emotion.Weights)
	if err != nil {
		logger.Fatal("configuring the confidence scorer", zap.Error(err))
	}

	path, _ := cmd.Flags().GetString("frames")
	output, _ := cmd.Flags().GetString("output")

	frames, err := loadFrames(cmd.InOrStdin(), path)
	if err != nil {
		logger.Fatal("reading frames", zap.Error(err), zap.String("path", path))
	}

	totals := emotion.Aggregate(frames)
	res := scorer.Score(totals)
	mood := emotion.Summarize(frames)

	logger.Debug("frames scored", zap.Int("frames", len(frames)), zap.Int("frames_with_face", res.Frames))

	if err := writeScore(cmd.OutOrStdout(), output, totals, res, mood); err != nil {
		logger.Fatal("printing the result", zap.Error(err))
	}
}

func writeScore(w io.Writer, output string, totals emotion.Totals, res emotion.Result, mood emotion.Mood) error {
	switch output {
	case outputJSON:
		return printJSON(w, scoreOutput{Totals: totals, Result: res, Mood: mood})
	case outputTable, "":
		return printScore(w, totals, res, mood)
	default:
		return fmt.Errorf("unknown output format %q", output)
	}
}

func loadFrames(stdin io.Reader, path string) ([]emotion.Frame, error) {
	if path == "-" || path == "" {
		return readFrames(stdin)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return readFrames(f)
}

// readFrames decodes a JSON array of label to probability objects. null entries and
// empty objects become frames without a face.
func readFrames(r io.Reader) ([]emotion.Frame, error) {
	var raw []map[string]float64
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode frames: %w", err)
	}

	frames := make([]emotion.Frame, len(raw))
	for i, m := range raw {
		frames[i] = emotion.FrameFromMap(m)
	}
	return frames, nil
}
