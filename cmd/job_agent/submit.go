package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jonathan/job-agent/internal/types"
)

var (
	flagURL      string
	flagFile     string
	flagFullMode bool
)

var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Process a single job posting and exit",
	Long: `Runs the preparation pipeline for one posting synchronously. Pass the
posting as a URL (--url) or a JSON file with title, company, and description
fields (--file). By default the run ends when the document is rendered; with
--full the job parks at pending_review for a later decision via the service.`,
	RunE: runSubmit,
}

func init() {
	submitCmd.Flags().StringVar(&flagURL, "url", "", "job posting URL")
	submitCmd.Flags().StringVar(&flagFile, "file", "", "path to a JSON file with the posting")
	submitCmd.Flags().BoolVar(&flagFullMode, "full", false, "park at pending_review instead of finishing at completed")
	submitCmd.MarkFlagsOneRequired("url", "file")
	submitCmd.MarkFlagsMutuallyExclusive("url", "file")
}

func runSubmit(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	a, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	raw, err := buildRawInput()
	if err != nil {
		return err
	}

	mode := types.ModeMVP
	if flagFullMode {
		mode = types.ModeFull
	}

	rec, err := a.pipelines.Submit(ctx, raw, mode)
	if err != nil {
		return err
	}

	rec, err = a.pipelines.Run(ctx, rec.ID)
	if err != nil {
		a.logger.Error("pipeline run failed",
			zap.String("job_id", rec.ID.String()),
			zap.Error(err))
	}

	out, jsonErr := json.MarshalIndent(rec, "", "  ")
	if jsonErr != nil {
		return jsonErr
	}
	fmt.Println(string(out))
	return err
}

func buildRawInput() (types.RawInput, error) {
	if flagURL != "" {
		return types.RawInput{Source: types.SourceURL, URL: flagURL}, nil
	}

	data, err := os.ReadFile(flagFile)
	if err != nil {
		return types.RawInput{}, fmt.Errorf("failed to read posting file: %w", err)
	}
	var manual types.ManualInput
	if err := json.Unmarshal(data, &manual); err != nil {
		return types.RawInput{}, fmt.Errorf("posting file is not valid JSON: %w", err)
	}
	return types.RawInput{Source: types.SourceManual, Manual: &manual}, nil
}
