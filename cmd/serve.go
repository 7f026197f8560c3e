package main

import (
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/dropaudit/internal/batch"
	"github.com/sells-group/dropaudit/internal/harvest"
	"github.com/sells-group/dropaudit/internal/normalize"
	"github.com/sells-group/dropaudit/internal/ocr"
	"github.com/sells-group/dropaudit/internal/reconcile"
	"github.com/sells-group/dropaudit/internal/screener"
	"github.com/sells-group/dropaudit/internal/server"
	"github.com/sells-group/dropaudit/pkg/twitterx"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		pdf, err := ocr.NewExtractor(cfg.OCR)
		if err != nil {
			return err
		}

		// Tweet routes stay up but report a configuration error when no
		// bearer token is set.
		var harvester *harvest.Harvester
		if cfg.Twitter.BearerToken != "" {
			client := twitterx.NewClient(cfg.Twitter.BearerToken,
				twitterx.WithBaseURL(cfg.Twitter.BaseURL))
			harvester = harvest.New(client, cfg.Twitter)
		} else {
			zap.L().Warn("no X API bearer token configured, tweet extraction disabled")
		}

		srvHandler := server.New(
			st,
			batch.NewProcessor(normalize.New(pdf), cfg.Server.MaxFiles),
			reconcile.New(st),
			harvester,
			screener.NewStub(),
			cfg.Server,
		)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: srvHandler.Router(),
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(ctx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
