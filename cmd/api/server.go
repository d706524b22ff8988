package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"banklink/internal/shared/config"
	"banklink/internal/shared/middleware"
)

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Handler         http.Handler
	Addr            string
	TLSEnabled      bool
	CertPath        string
	KeyPath         string
	RedirectHTTP    bool
	AllowedHosts    []string
	MetricsServer   *http.Server
	ShutdownTimeout time.Duration
}

// RunServers serves the API, the optional HTTPS redirect and the optional
// metrics endpoint until ctx is cancelled or one of them fails, then shuts
// every server down within ShutdownTimeout.
func RunServers(ctx context.Context, scfg ServerConfig) error {
	srv := &http.Server{
		Addr:         scfg.Addr,
		Handler:      scfg.Handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	servers := []*http.Server{srv}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if scfg.TLSEnabled {
			log.Printf("HTTPS server starting on %s", scfg.Addr)
			return ignoreClosed(srv.ListenAndServeTLS(scfg.CertPath, scfg.KeyPath))
		}
		log.Printf("HTTP server starting on %s", scfg.Addr)
		return ignoreClosed(srv.ListenAndServe())
	})

	if scfg.TLSEnabled && scfg.RedirectHTTP {
		redirectSrv := createRedirectServer(scfg.AllowedHosts)
		servers = append(servers, redirectSrv)
		g.Go(func() error {
			log.Println("HTTP redirect server starting on :80")
			return ignoreClosed(redirectSrv.ListenAndServe())
		})
	}

	if scfg.MetricsServer != nil {
		metricsSrv := scfg.MetricsServer
		servers = append(servers, metricsSrv)
		g.Go(func() error {
			log.Printf("Metrics server starting on %s", metricsSrv.Addr)
			return ignoreClosed(metricsSrv.ListenAndServe())
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		return GracefulShutdown(servers, scfg.ShutdownTimeout)
	})

	return g.Wait()
}

// GracefulShutdown stops every server, the main one last.
func GracefulShutdown(servers []*http.Server, timeout time.Duration) error {
	log.Println("Server shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var errs []error
	for i := len(servers) - 1; i >= 0; i-- {
		if err := servers[i].Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to shut down %s: %w", servers[i].Addr, err))
		}
	}

	log.Println("Server stopped")
	return errors.Join(errs...)
}

func ignoreClosed(err error) error {
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// createRedirectServer creates an HTTP server that redirects all requests to HTTPS.
func createRedirectServer(allowedHosts []string) *http.Server {
	return &http.Server{
		Addr:         ":80",
		Handler:      middleware.RequireHTTPS(allowedHosts)(http.NotFoundHandler()),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// NewServerConfigFromConfig creates ServerConfig from application config.
func NewServerConfigFromConfig(handler http.Handler, cfg *config.Config) ServerConfig {
	return ServerConfig{
		Handler:         handler,
		Addr:            cfg.Server.Host + ":" + cfg.Server.Port,
		TLSEnabled:      cfg.TLS.Enabled,
		CertPath:        cfg.TLS.CertPath,
		KeyPath:         cfg.TLS.KeyPath,
		RedirectHTTP:    cfg.TLS.RedirectHTTP,
		AllowedHosts:    cfg.Server.AllowedHosts,
		ShutdownTimeout: 30 * time.Second,
	}
}
