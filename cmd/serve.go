package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/spf13/cobra"

	"serprank/history"
	"serprank/search"
)

var serveFetch bool

func init() {
	serveCmd.Flags().BoolVar(&serveFetch, "fetch", false, "Fetch pages over plain HTTP instead of rendering them (sections only)")
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve [--fetch]",
	Short: "Serves the rank, section and estimate API over HTTP.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup()
		if err != nil {
			return err
		}

		a := newApp(cfg, logger, !serveFetch)
		defer a.Close()

		store, err := history.Open(cfg.History.Path)
		if err != nil {
			return err
		}
		defer store.Close()

		h := &search.Handlers{
			Checker: a.checker,
			History: store,
			Metrics: a.metrics.Handler(),
			Logger:  logger,
		}
		// a nil *Service must not end up as a non-nil interface
		if svc := a.estimator(); svc != nil {
			h.Estimator = svc
		} else {
			logger.Warn("search API credentials missing, /estimate is disabled")
		}

		router := mux.NewRouter()
		h.Register(router)

		var handler http.Handler = router
		handler = handlers.CORS(
			handlers.AllowedOrigins(cfg.Server.CORSOrigins),
			handlers.AllowedMethods([]string{"GET", "POST", "OPTIONS"}),
			handlers.AllowedHeaders([]string{"Content-Type"}),
		)(handler)
		handler = handlers.RecoveryHandler(handlers.RecoveryLogger(logger))(handler)
		handler = handlers.CombinedLoggingHandler(os.Stdout, handler)

		srv := &http.Server{
			Addr:              cfg.Server.Addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		}

		ctx := cmd.Context()
		errc := make(chan error, 1)
		go func() {
			logger.WithField("addr", cfg.Server.Addr).Info("server is running")
			errc <- srv.ListenAndServe()
		}()

		select {
		case err := <-errc:
			if !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		case <-ctx.Done():
		}

		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Browser.Timeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	},
}
