package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve rendered audit artifacts over HTTP",
	Long:  "Serves the output directory (map, report, PNG) plus a health check and the violations GeoJSON under /api.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		dir := cfg.Render.OutputDir
		if _, err := os.Stat(dir); err != nil {
			return eris.Wrapf(err, "serve: output dir %s (run audit first)", dir)
		}

		mux := http.NewServeMux()

		mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
		})

		mux.HandleFunc("GET /api/violations", func(w http.ResponseWriter, r *http.Request) {
			data, err := os.ReadFile(filepath.Join(dir, "violations.geojson"))
			if err != nil {
				http.Error(w, `{"error":"no violations file; run audit first"}`, http.StatusNotFound)
				return
			}
			w.Header().Set("Content-Type", "application/geo+json")
			w.Write(data) //nolint:errcheck
		})

		mux.Handle("GET /", http.FileServer(http.Dir(dir)))

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: mux,
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(ctx) //nolint:errcheck
		}()

		zap.L().Info("serving audit artifacts", zap.Int("port", port), zap.String("dir", dir))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "serve: listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "listen port (defaults to server.port config)")
	rootCmd.AddCommand(serveCmd)
}
