package cmd

import (
	"errors"

	"github.com/spf13/cobra"

	"serprank/checker"
)

var rankFlags struct {
	device    string
	tab       string
	snippet   string
	nicknames []string
}

func init() {
	f := rankCmd.Flags()
	f.StringVar(&rankFlags.device, "device", "pc", "pc or mobile")
	f.StringVar(&rankFlags.tab, "tab", "blog", "Result tab to rank in (blog, view, cafe, kin, news, influencer)")
	f.StringVar(&rankFlags.snippet, "snippet", "", "Title text of the post to find")
	f.StringSliceVar(&rankFlags.nicknames, "nickname", nil, "Author nickname to find (repeatable)")
	rootCmd.AddCommand(rankCmd)
}

var rankCmd = &cobra.Command{
	Use:   "rank <keyword> (--snippet <title> | --nickname <name>...)",
	Short: "Finds where a post ranks for a keyword.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if (rankFlags.snippet == "") == (len(rankFlags.nicknames) == 0) {
			return errors.New("exactly one of --snippet and --nickname is required")
		}
		cfg, logger, err := setup()
		if err != nil {
			return err
		}
		a := newApp(cfg, logger, true)
		defer a.Close()

		res := a.checker.Check(cmd.Context(), checker.Request{
			Keyword:   args[0],
			Device:    rankFlags.device,
			Tab:       rankFlags.tab,
			Snippet:   rankFlags.snippet,
			Nicknames: rankFlags.nicknames,
		})
		if err := printJSON(cmd.OutOrStdout(), res); err != nil {
			return err
		}
		if !res.Success {
			return errors.New(res.Message)
		}
		return nil
	},
}
