package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/omule0/ai-csv-analyst/internal/chat"
	"github.com/omule0/ai-csv-analyst/internal/server"
)

var (
	serveAddr     string
	serveOrigins  string
	serveRawCells bool
	serveData     = datasetFlags{SampleRows: -1}
	serveAI       assistantFlags
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API (upload, chat, analyze, validate)",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := serveAI.newAssistant()
		if err != nil {
			return err
		}
		addr := serveAddr
		if addr == "" {
			addr = cfg.ServerAddr
		}
		srv := server.New(server.Deps{
			Assistant:    a,
			Store:        chat.NewStore(time.Duration(cfg.SessionTTLMin) * time.Minute),
			Summary:      serveData.summaryOptions(),
			RawCells:     serveRawCells,
			UploadLimit:  cfg.UploadLimitMB << 20,
			AllowOrigins: serveOrigins,
			Logger:       log,
		})

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		errc := make(chan error, 1)
		go func() { errc <- srv.Listen(addr) }()
		okColor.Fprintf(cmd.OutOrStdout(), "✓ Listening on %s (model %s)\n", addr, a.Model)

		select {
		case err := <-errc:
			return err
		case <-ctx.Done():
		}
		log.Info("cmd", "shutting down", nil)
		if err := srv.Shutdown(); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	f := serveCmd.Flags()
	f.StringVar(&serveAddr, "addr", "", "listen address (default from config server_addr)")
	f.StringVar(&serveOrigins, "cors-origins", "*", "allowed CORS origins")
	f.BoolVar(&serveRawCells, "raw-cells", false, "keep every uploaded cell as a string")
	f.BoolVar(&serveData.FullEmbed, "full-embed", false, "embed every row instead of a bounded summary")
	f.StringVar(&serveAI.Model, "model", "", "model name (default from config)")
	f.StringVar(&serveAI.Provider, "provider", "", "provider: openrouter|ollama")
	f.StringVar(&serveAI.OllamaHost, "ollama-host", "", "Ollama host URL")
	f.IntVar(&serveAI.MaxTokens, "max-tokens", 0, "completion token limit")
}
