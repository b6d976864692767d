package serve

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	api "github.com/aquatel/hydronet-go/internal/api/v2"
	"github.com/aquatel/hydronet-go/internal/authz"
	"github.com/aquatel/hydronet-go/internal/conf"
	"github.com/aquatel/hydronet-go/internal/engine"
	"github.com/aquatel/hydronet-go/internal/logging"
	"github.com/aquatel/hydronet-go/internal/observability"
)

// Command creates the serve command, which runs the operator API server.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the operator API server",
		Long:  "Serve the pendency review, topology maintenance and batch execution API.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(settings)
		},
	}

	cmd.Flags().StringVar(&settings.WebServer.Port, "port", viper.GetString("webserver.port"), "Port for the operator API server")
	cmd.Flags().BoolVar(&settings.Telemetry.Enabled, "telemetry", viper.GetBool("telemetry.enabled"), "Enable Prometheus telemetry endpoint")
	cmd.Flags().StringVar(&settings.Telemetry.Listen, "listen", viper.GetString("telemetry.listen"), "Listen address and port of telemetry endpoint")
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		fmt.Printf("error binding flags: %v\n", err)
		os.Exit(1)
	}

	return cmd
}

func runServer(settings *conf.Settings) error {
	log := logging.ForService("server")

	eng, err := engine.Bootstrap(settings, authz.AllowAll{})
	if err != nil {
		return err
	}
	defer eng.Close()

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.RequestID())
	api.New(e, eng.DS, settings, eng.Orchestrator, eng.Deriver, eng.Auth)

	var wg sync.WaitGroup
	quit := make(chan struct{})

	if settings.Telemetry.Enabled {
		endpoint, err := observability.NewEndpoint(settings, eng.Metrics)
		if err != nil {
			return err
		}
		endpoint.Start(&wg, quit)
	}

	errChan := make(chan error, 1)
	go func() {
		addr := ":" + settings.WebServer.Port
		log.Info("operator API listening", "addr", addr)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		close(quit)
		wg.Wait()
		return err
	case sig := <-sigChan:
		log.Info("shutting down", "signal", sig.String())
	}

	close(quit)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		log.Error("server shutdown error", "error", err)
	}
	wg.Wait()
	return nil
}
