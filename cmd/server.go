package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	"lookupdesk/api"
	"lookupdesk/api/router/handlers"
	"lookupdesk/config"
	"lookupdesk/core"
	"lookupdesk/logger"

	"github.com/spf13/cobra"
)

var standaloneServerPort string

var serverCmd = &cobra.Command{
	Use:         "server",
	Short:       "Starts the lookup API server",
	Annotations: map[string]string{needsDBAnnotation: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		portToUse := standaloneServerPort
		if !cmd.Flags().Changed("port") {
			portToUse = config.AppConfig.Server.Port
		}
		if portToUse == "" {
			logger.Error("Server Command: Server port is empty after checking flag and config, defaulting to 8000")
			portToUse = "8000"
		}

		logger.Info("--- Server Command: Run ---")
		if err := core.EnsureBootstrapAdmin(config.AppConfig.Auth.BootstrapAdmin, config.AppConfig.Auth.BootstrapPassword); err != nil {
			return err
		}

		lookup := core.NewLookupService(config.AppConfig.Query.SuggestionLimit)
		if err := lookup.Load(); err != nil {
			return err
		}

		limiter := handlers.NewRateLimiter(config.AppConfig.Query.RateLimitPerMinute, time.Minute)
		go limiter.Start()
		defer limiter.Stop()

		h := &handlers.Handler{
			Lookup:  lookup,
			Auth:    core.NewAuthenticator(config.AppConfig.Auth.JWTSecret, time.Duration(config.AppConfig.Auth.TokenTTLMinutes)*time.Minute),
			Limiter: limiter,
			Metrics: handlers.NewMetrics(),
		}

		server := &http.Server{
			Addr:              ":" + portToUse,
			Handler:           api.NewRouter(h),
			ReadHeaderTimeout: 10 * time.Second,
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		go func() {
			<-ctx.Done()
			logger.Info("Server Command: Shutdown signal received...")
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				logger.Error("Server Command: Graceful shutdown failed: %v", err)
			} else {
				logger.Info("Server Command: Gracefully stopped.")
			}
		}()

		logger.Info("Server Command: Listening on :%s", portToUse)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server Command: ListenAndServe error: %v", err)
			return err
		}
		logger.Info("Server Command: Finished.")
		return nil
	},
}

func init() {
	serverCmd.Flags().StringVarP(&standaloneServerPort, "port", "p", "8000", "Port for the server to listen on (overrides config)")
	rootCmd.AddCommand(serverCmd)
}
