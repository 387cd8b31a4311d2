package cmd

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/raymond-w-ko/dullahan-sub005/internal/config"
	"github.com/raymond-w-ko/dullahan-sub005/internal/logger"
	"github.com/raymond-w-ko/dullahan-sub005/internal/server"
)

var (
	listenAddr string
	devLog     bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the Dullahan daemon",
	Long:  "serve starts dullahand: it spawns the first pane, opens the WebSocket and admin RPC listeners, and runs until it receives a quit command or a termination signal.",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&listenAddr, "listen", "", "WebSocket listen address (default from runtime config)")
	serveCmd.Flags().BoolVar(&devLog, "dev", false, "Use human-readable console logging instead of JSON")
}

func runServe(c *cobra.Command, args []string) error {
	logger.Configure(logger.LevelInfo, devLog)
	log := logger.Logger

	rc := config.Runtime
	if listenAddr != "" {
		rc.ListenAddr = listenAddr
	}

	if err := os.WriteFile(rc.PIDFile, []byte(strconv.Itoa(os.Getpid())), 0o644); err != nil {
		log.Warn().Err(err).Str("path", rc.PIDFile).Msg("failed to write PID file")
	}
	defer os.Remove(rc.PIDFile)

	srv, err := server.New(log, rc)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	go func() {
		if err := srv.ServeAdmin(); err != nil {
			log.Debug().Err(err).Msg("admin socket stopped")
		}
	}()

	go func() {
		<-ctx.Done()
		log.Info().Msg("shutting down")
		_ = srv.Shutdown()
	}()

	return srv.Start(ctx)
}
