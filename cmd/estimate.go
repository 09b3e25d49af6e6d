package cmd

import (
	"errors"

	"github.com/spf13/cobra"

	"serprank/searchapi"
)

var estimateKind string

func init() {
	estimateCmd.Flags().StringVar(&estimateKind, "kind", "", "Only estimate one kind (blog, cafe, kin, news)")
	rootCmd.AddCommand(estimateCmd)
}

var estimateCmd = &cobra.Command{
	Use:   "estimate <keyword> [--kind blog]",
	Short: "Estimates how many posts a keyword got over the trailing window.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup()
		if err != nil {
			return err
		}
		a := newApp(cfg, logger, false)
		defer a.Close()

		svc := a.estimator()
		if svc == nil {
			return errors.New("search_api.client_id and search_api.client_secret are required")
		}

		if estimateKind != "" {
			kind, err := searchapi.ParseKind(estimateKind)
			if err != nil {
				return err
			}
			res, err := svc.EstimateKind(cmd.Context(), kind, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		}

		res, err := svc.EstimateKeyword(cmd.Context(), args[0])
		if err != nil && !errors.Is(err, searchapi.ErrPartial) {
			return err
		}
		if perr := printJSON(cmd.OutOrStdout(), res); perr != nil {
			return perr
		}
		return err
	},
}
