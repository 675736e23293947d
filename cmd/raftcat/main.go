// Command raftcat serves shipcat's read-only HTTP API: a region's cached
// ShipcatManifest/ShipcatConfig CRDs, refreshed in the background.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/shipcat/shipcat/internal/kube"
	"github.com/shipcat/shipcat/internal/logging"
	"github.com/shipcat/shipcat/internal/server"
)

func main() {
	log := logging.New()
	defer log.Sync() //nolint:errcheck

	if err := run(log); err != nil {
		log.Fatal("raftcat exited", zap.Error(err))
	}
}

func run(log *zap.Logger) error {
	region := os.Getenv("REGION_NAME")
	if region == "" {
		return fmt.Errorf("REGION_NAME must be set")
	}
	namespace := os.Getenv("NAMESPACE")
	if namespace == "" {
		namespace = region
	}

	kubeClient, err := kube.NewClient(os.Getenv("KUBECONFIG"))
	if err != nil {
		return err
	}

	state := server.NewState(kubeClient, region, namespace, log.Named("state"))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := state.Bootstrap(ctx); err != nil {
		return err
	}
	go state.RefreshLoop(ctx)

	addr := os.Getenv("RAFTCAT_LISTEN")
	if addr == "" {
		addr = ":8080"
	}
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           server.NewRouter(state),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("raftcat listening", zap.String("addr", addr), zap.String("region", region))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
