package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/denysvitali/ipos-browser-go/pkg/config"
	"github.com/denysvitali/ipos-browser-go/pkg/gateway"
	"github.com/denysvitali/ipos-browser-go/pkg/session"
	"github.com/denysvitali/ipos-browser-go/pkg/storage"
	"github.com/denysvitali/ipos-browser-go/pkg/telemetry"
)

// gatewayCmd represents the gateway command
var gatewayCmd = &cobra.Command{
	Use:   "gateway",
	Short: "Serve the session over a local HTTP API",
	Long: `Start a local HTTP gateway that forwards requests to the IPOS web
console RPC service using a persistent login session.`,
	RunE: runGateway,
}

func init() {
	// Replace . with _ in env var names (e.g., gateway.port becomes GATEWAY_PORT)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	rootCmd.AddCommand(gatewayCmd)

	// Gateway-specific flags
	gatewayCmd.Flags().IntP("port", "p", 8090, "Port to listen on")
	gatewayCmd.Flags().String("session-api-key", "", "API key required in X-Session-API-Key")
	gatewayCmd.Flags().String("token-store", "", "Token store backend (memory, file, sqlite)")
	gatewayCmd.Flags().String("token-path", "", "Token store path")
	gatewayCmd.Flags().Bool("enable-telemetry", false, "Enable OpenTelemetry tracing")
	gatewayCmd.Flags().String("otel-endpoint", "", "OpenTelemetry endpoint (if empty, uses auto-export)")

	// Bind flags to viper
	_ = viper.BindPFlag("gateway.port", gatewayCmd.Flags().Lookup("port"))
	_ = viper.BindPFlag("gateway.session_api_key", gatewayCmd.Flags().Lookup("session-api-key"))
	_ = viper.BindPFlag("storage.backend", gatewayCmd.Flags().Lookup("token-store"))
	_ = viper.BindPFlag("storage.path", gatewayCmd.Flags().Lookup("token-path"))
	_ = viper.BindPFlag("telemetry.enabled", gatewayCmd.Flags().Lookup("enable-telemetry"))
	_ = viper.BindPFlag("telemetry.endpoint", gatewayCmd.Flags().Lookup("otel-endpoint"))
}

func runGateway(cmd *cobra.Command, args []string) error {
	logger := GetLogger()
	logger.Info("Starting IPOS browser gateway")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Initialize telemetry if enabled
	if cfg.Telemetry.Enabled {
		logger.Info("Initializing OpenTelemetry")
		cleanup, err := telemetry.Initialize(cfg.Telemetry, logger)
		if err != nil {
			logger.Warnf("Failed to initialize telemetry: %v", err)
		} else {
			defer cleanup()
		}
	}

	store, err := storage.Open(cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to open token store: %w", err)
	}
	defer func() {
		if err := storage.Close(store); err != nil {
			logger.Warnf("Failed to close token store: %v", err)
		}
	}()

	// Sessions share the store, so a rebuilt session keeps the update flag
	gw, err := gateway.New(cfg, logger, func(r session.Reloader) (*session.Session, error) {
		return newSession(cfg, store, r)
	})
	if err != nil {
		return fmt.Errorf("failed to create gateway: %w", err)
	}

	// Start gateway in a goroutine
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- gw.Start()
	}()

	// Wait for interrupt signal
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("gateway error: %w", err)
	case sig := <-interrupt:
		logger.Infof("Received signal %v, shutting down...", sig)

		// Graceful shutdown with timeout
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := gw.Shutdown(ctx); err != nil {
			logger.Errorf("Gateway shutdown error: %v", err)
			return err
		}

		logger.Info("Gateway stopped gracefully")
		return nil
	}
}
