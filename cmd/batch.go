package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"serprank/checker"
	"serprank/history"
	"serprank/report"
)

var batchFlags struct {
	file      string
	device    string
	tab       string
	snippet   string
	nicknames []string
	out       string
	record    bool
}

func init() {
	f := batchCmd.Flags()
	f.StringVar(&batchFlags.file, "keywords", "", "File with one keyword per line")
	f.StringVar(&batchFlags.device, "device", "pc", "pc or mobile")
	f.StringVar(&batchFlags.tab, "tab", "blog", "Result tab to rank in")
	f.StringVar(&batchFlags.snippet, "snippet", "", "Title text of the post to find")
	f.StringSliceVar(&batchFlags.nicknames, "nickname", nil, "Author nickname to find (repeatable)")
	f.StringVarP(&batchFlags.out, "out", "o", "", "Write the results to this .xlsx file")
	f.BoolVar(&batchFlags.record, "record", true, "Record every result in the history database")
	rootCmd.AddCommand(batchCmd)
}

// readKeywords reads one keyword per line, skipping blanks and # comments.
func readKeywords(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open keywords: %w", err)
	}
	defer f.Close()

	var keywords []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		keywords = append(keywords, line)
	}
	return keywords, sc.Err()
}

var batchCmd = &cobra.Command{
	Use:   "batch [keyword...] [--keywords file] (--snippet <title> | --nickname <name>...)",
	Short: "Checks a list of keywords one after another.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if (batchFlags.snippet == "") == (len(batchFlags.nicknames) == 0) {
			return errors.New("exactly one of --snippet and --nickname is required")
		}
		keywords := args
		if batchFlags.file != "" {
			fromFile, err := readKeywords(batchFlags.file)
			if err != nil {
				return err
			}
			keywords = append(keywords, fromFile...)
		}
		if len(keywords) == 0 {
			return errors.New("no keywords given")
		}

		cfg, logger, err := setup()
		if err != nil {
			return err
		}

		var store *history.Store
		if batchFlags.record {
			store, err = history.Open(cfg.History.Path)
			if err != nil {
				return err
			}
			defer store.Close()
		}

		a := newApp(cfg, logger, true)
		defer a.Close()

		base := checker.Request{
			Device:    batchFlags.device,
			Tab:       batchFlags.tab,
			Snippet:   batchFlags.snippet,
			Nicknames: batchFlags.nicknames,
		}
		results, batchErr := a.checker.CheckBatch(cmd.Context(), base, keywords, func(res checker.RankResult) {
			if store == nil {
				return
			}
			if err := store.Record(context.WithoutCancel(cmd.Context()), res, time.Now()); err != nil {
				logger.WithError(err).WithField("keyword", res.Keyword).Warn("failed to record history")
			}
		})
		if batchErr != nil {
			logger.WithFields(logrus.Fields{"done": len(results), "total": len(keywords)}).Warn("batch interrupted")
		}

		if batchFlags.out != "" {
			f, err := os.Create(batchFlags.out)
			if err != nil {
				return fmt.Errorf("failed to create report: %w", err)
			}
			if err := report.WriteXLSX(f, results); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			logger.WithField("path", batchFlags.out).Info("report written")
		} else if err := printJSON(cmd.OutOrStdout(), results); err != nil {
			return err
		}
		return batchErr
	},
}
