package cmd

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/fakeyudi/moodwatch/internal/api"
	"github.com/fakeyudi/moodwatch/internal/logger"
	"github.com/fakeyudi/moodwatch/internal/render"
	"github.com/fakeyudi/moodwatch/internal/video"
)

var summaryJSON bool

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Fetch the service's current emotion summary once",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		sum, err := client.Summary(cmd.Context())
		if err != nil {
			logger.Warn("summary fetch failed", "server", client.BaseURL(), "err", err)
			return loginHint(err)
		}
		return printSummary(cmd, sum, summaryJSON)
	},
}

var predictJSON bool

var predictCmd = &cobra.Command{
	Use:   "predict <image>",
	Short: "Run emotion detection on a still image",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		img, err := video.LoadImage(args[0])
		if err != nil {
			return err
		}
		uri, err := captureProfile().Encoder().DataURI(img)
		if err != nil {
			return err
		}

		client, err := newClient()
		if err != nil {
			return err
		}
		sum, err := client.Predict(cmd.Context(), uri)
		if err != nil {
			logger.Warn("predict failed", "server", client.BaseURL(), "image", args[0], "err", err)
			return loginHint(err)
		}
		return printSummary(cmd, sum, predictJSON)
	},
}

func printSummary(cmd *cobra.Command, sum *api.Summary, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(sum)
	}
	for _, line := range render.Lines(*sum) {
		cmd.Println(line)
	}
	return nil
}

func init() {
	summaryCmd.Flags().BoolVar(&summaryJSON, "json", false, "print the raw summary as JSON")
	predictCmd.Flags().BoolVar(&predictJSON, "json", false, "print the raw summary as JSON")
	rootCmd.AddCommand(summaryCmd, predictCmd)
}
