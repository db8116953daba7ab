package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/nhigh-tools/deadline-cli/internal/pipeline"
	"github.com/nhigh-tools/deadline-cli/internal/sheet"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the event read/search API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx)
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
			Handler: newRouter(env.Pipeline),
		}

		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			zap.L().Info("starting server", zap.Int("port", port))
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return eris.Wrap(err, "server listen")
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})

		return g.Wait()
	},
}

func newRouter(p *pipeline.Pipeline) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/api/events", func(w http.ResponseWriter, r *http.Request) {
		name := r.URL.Query().Get("sheet")
		if name == "" {
			name = r.URL.Query().Get("category")
		}
		if name == "" {
			name = cfg.Pipeline.EventSheet
		}
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

		out, err := p.ListRows(r.Context(), name, limit)
		if err != nil {
			zap.L().Error("list events failed", zap.String("sheet", name), zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "read failed"})
			return
		}
		writeJSON(w, http.StatusOK, out)
	})

	r.Get("/api/events/search", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		limit, _ := strconv.Atoi(q.Get("limit"))
		params := pipeline.SearchParams{
			Start:    q.Get("start"),
			End:      q.Get("end"),
			Keyword:  q.Get("keyword"),
			Category: q.Get("category"),
			Limit:    limit,
		}

		out, err := p.SearchEvents(r.Context(), params)
		if err != nil {
			zap.L().Error("search events failed", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "search failed"})
			return
		}
		writeJSON(w, http.StatusOK, out)
	})

	r.Post("/api/events", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Sheet string     `json:"sheet"`
			Row   []string   `json:"row"`
			Rows  [][]string `json:"rows"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
		if req.Sheet == "" {
			req.Sheet = cfg.Pipeline.EventSheet
		}
		if len(req.Row) > 0 {
			req.Rows = append(req.Rows, req.Row)
		}
		if len(req.Rows) == 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "rows is required"})
			return
		}
		for i, row := range req.Rows {
			req.Rows[i] = padRow(row)
		}

		n, err := p.AppendRows(r.Context(), req.Sheet, req.Rows)
		if err != nil {
			zap.L().Error("append events failed", zap.String("sheet", req.Sheet), zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "append failed"})
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"sheet": req.Sheet, "inserted": n})
	})

	return r
}

// padRow normalizes a posted row to the fixed sheet width.
func padRow(row []string) []string {
	if len(row) == sheet.Width {
		return row
	}
	out := make([]string, sheet.Width)
	copy(out, row)
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
