package cmd

import (
	"log"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/hr-interviewer/internal/logger"
	"github.com/spigell/hr-interviewer/internal/store"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored interview results",
	Run: func(cmd *cobra.Command, _ []string) {
		list(cmd)
	},
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().StringP("output", "o", outputTable, "output format: table or json")
}

func list(cmd *cobra.Command) {
	ctx := cmd.Context()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	s, err := store.Open(ctx, config.Store)
	if err != nil {
		logger.Fatal("opening the result store", zap.Error(err), zap.String("backend", config.Store.Backend))
	}

	records, err := s.List(ctx)
	closeStore(s, logger)
	if err != nil {
		logger.Fatal("listing results", zap.Error(err))
	}

	if len(records) == 0 {
		logger.Info("no results stored yet")
		return
	}

	output, _ := cmd.Flags().GetString("output")
	if output == outputJSON {
		err = printJSON(cmd.OutOrStdout(), records)
	} else {
		err = printRecords(cmd.OutOrStdout(), records)
	}
	if err != nil {
		logger.Fatal("printing results", zap.Error(err))
	}
}
