package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/1kuna/JPS-Prospect-Aggregate-sub003/internal/enhance"
	"github.com/1kuna/JPS-Prospect-Aggregate-sub003/internal/model"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the enhancement HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx, "serve")
		if err != nil {
			return err
		}
		defer env.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: newRouter(env),
		}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			zap.L().Info("starting server", zap.Int("port", port))
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return eris.Wrap(err, "server listen")
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			zap.L().Info("shutting down server")
			env.Iterative.Stop()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})

		return g.Wait()
	},
}

func newRouter(env *pipelineEnv) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/enhance/start", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Kind         string `json:"kind"`
			SkipExisting bool   `json:"skip_existing"`
			UserID       string `json:"user_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Kind == "" {
			req.Kind = "all"
		}
		kind, err := model.ParseKind(req.Kind)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		prog, err := env.Iterative.Start(r.Context(), enhance.StartOptions{
			Kind:         kind,
			SkipExisting: req.SkipExisting,
			UserID:       req.UserID,
		})
		if err != nil {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		writeJSON(w, http.StatusAccepted, prog)
	})

	r.Post("/enhance/stop", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, env.Iterative.Stop())
	})

	r.Get("/enhance/progress", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, env.Iterative.GetProgress())
	})

	r.Get("/prospects/{id}/audit", func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		var kind model.EnhancementKind
		if raw := r.URL.Query().Get("kind"); raw != "" {
			k, err := model.ParseKind(raw)
			if err != nil {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			kind = k
		}

		entries, err := env.Store.ListAuditEntries(r.Context(), id, kind, 100)
		if err != nil {
			zap.L().Error("list audit entries failed", zap.String("prospect_id", id), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to list audit entries")
			return
		}
		if entries == nil {
			entries = []model.AuditEntry{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
