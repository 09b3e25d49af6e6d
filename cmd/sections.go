package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"serprank/checker"
	"serprank/serp"
)

var (
	sectionsDevice string
	sectionsFile   string
	sectionsRender bool
)

func init() {
	sectionsCmd.Flags().StringVar(&sectionsDevice, "device", "pc", "pc or mobile")
	sectionsCmd.Flags().StringVar(&sectionsFile, "file", "", "Outline a saved HTML page instead of searching")
	sectionsCmd.Flags().BoolVar(&sectionsRender, "render", false, "Render the page in a browser instead of fetching it")
	rootCmd.AddCommand(sectionsCmd)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "    ")
	return enc.Encode(v)
}

var sectionsCmd = &cobra.Command{
	Use:   "sections [keyword] [--file page.html]",
	Short: "Outlines the sections of an integrated result page.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup()
		if err != nil {
			return err
		}

		if sectionsFile != "" {
			data, err := os.ReadFile(sectionsFile)
			if err != nil {
				return fmt.Errorf("failed to read page: %w", err)
			}
			c := checker.New(nil, cfg.Thresholds, logger,
				checker.WithSegmenter(serp.NewSegmenter(cfg.Segmenter, nil)))
			res, err := c.Outline(string(data))
			if err != nil {
				return err
			}
			if len(args) == 1 {
				res.Keyword = args[0]
			}
			return printJSON(cmd.OutOrStdout(), res)
		}

		if len(args) == 0 {
			return errors.New("a keyword or --file is required")
		}
		a := newApp(cfg, logger, sectionsRender)
		defer a.Close()

		res, err := a.checker.Sections(cmd.Context(), args[0], sectionsDevice)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), res)
	},
}
