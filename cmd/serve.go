package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/khanhnv2901/seca-headers/internal/api"
	"github.com/khanhnv2901/seca-headers/internal/checker"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run seca-headers as a REST API service",
	RunE: func(cmd *cobra.Command, args []string) error {
		appCtx := getAppContext(cmd)
		addr, _ := cmd.Flags().GetString("addr")
		authToken, _ := cmd.Flags().GetString("auth-token")
		shutdownTimeout, _ := cmd.Flags().GetDuration("shutdown-timeout")
		rateLimit, _ := cmd.Flags().GetInt("rate-limit")
		rateBurst, _ := cmd.Flags().GetInt("rate-burst")
		fingerprint, _ := cmd.Flags().GetBool("fingerprint")
		timeout := requestTimeout(cmd)

		if authToken == "" {
			authToken = os.Getenv("SECA_API_TOKEN")
		}
		if !verbose {
			gin.SetMode(gin.ReleaseMode)
		}

		logger := appCtx.Logger.Desugar()
		defer func() {
			_ = logger.Sync()
		}()

		server := api.NewServer(api.Config{
			Logger:      logger,
			AuthToken:   authToken,
			RateLimit:   rateLimit,
			RateBurst:   rateBurst,
			ScanTimeout: timeout,
			HeaderChecker: &checker.HeaderChecker{
				Timeout:     timeout,
				UserAgent:   userAgent(),
				Fingerprint: fingerprint,
			},
			FramingChecker: &checker.ClickjackChecker{
				Timeout:   timeout,
				UserAgent: userAgent(),
			},
		})
		defer server.Close()

		httpServer := &http.Server{
			Addr:         addr,
			Handler:      server,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: timeout + 15*time.Second,
			IdleTimeout:  120 * time.Second,
		}

		serverErrors := make(chan error, 1)

		go func() {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s API server listening on %s\n", colorInfo("→"), addr)
			fmt.Fprintf(cmd.ErrOrStderr(), "%s Press Ctrl+C to gracefully shutdown\n", colorInfo("→"))
			serverErrors <- httpServer.ListenAndServe()
		}()

		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(shutdown)

		select {
		case err := <-serverErrors:
			if !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server error: %w", err)
			}
		case sig := <-shutdown:
			logger.Sugar().Infow("shutting down", "signal", sig.String(), "timeout", shutdownTimeout)

			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()

			if err := httpServer.Shutdown(ctx); err != nil {
				// Force close if graceful shutdown fails
				if closeErr := httpServer.Close(); closeErr != nil {
					return fmt.Errorf("failed to gracefully shutdown server: %w (close error: %v)", err, closeErr)
				}
				return fmt.Errorf("failed to gracefully shutdown server: %w", err)
			}

			fmt.Fprintf(cmd.ErrOrStderr(), "%s Server shutdown complete\n", colorInfo("✓"))
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().String("addr", defaultServeAddr, "Address for the API server")
	serveCmd.Flags().String("auth-token", "", "Optional shared secret for API requests (or SECA_API_TOKEN)")
	serveCmd.Flags().Duration("shutdown-timeout", 30*time.Second, "Graceful shutdown timeout")
	serveCmd.Flags().Int("rate-limit", defaultServeRateLimit, "Rate limit per IP (requests/second, 0 = disabled)")
	serveCmd.Flags().Int("rate-burst", defaultServeRateBurst, "Rate limit burst size")
	serveCmd.Flags().Bool("fingerprint", false, "Include technology fingerprints in /headers/scan")
	rootCmd.AddCommand(serveCmd)
}
