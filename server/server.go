// Copyright 2025 The SmogMap Authors
// SPDX-License-Identifier: Apache-2.0

// Package server exposes the current reading and the data source
// preference over a local JSON API.
package server

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/smogmap/smogmap/airquality"
	"github.com/smogmap/smogmap/settings"
)

// DefaultAddr is where Run listens when no address is given.
const DefaultAddr = "localhost:8080"

type Server struct {
	refresher *airquality.Refresher
	store     settings.Store
	logger    *slog.Logger
}

func NewServer(refresher *airquality.Refresher, store settings.Store) *Server {
	return &Server{
		refresher: refresher,
		store:     store,
		logger:    slog.Default().With("component", "server"),
	}
}

// Router builds the gin engine with every route registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	r.GET("/healthz", s.healthz)
	r.GET("/api/sources", s.listSources)
	r.GET("/api/settings/source", s.getSource)
	r.PUT("/api/settings/source", s.putSource)
	r.POST("/api/refresh", s.refresh)
	r.GET("/api/reading", s.getReading)
	r.GET("/api/classify", s.classify)

	return r
}

// Run serves until ctx is canceled.
func (s *Server) Run(ctx context.Context, addr string) error {
	if addr == "" {
		addr = DefaultAddr
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.refresher.Cancel()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()

		ctx.Next()

		s.logger.Debug("request",
			"method", ctx.Request.Method,
			"path", ctx.Request.URL.Path,
			"status", ctx.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

func (s *Server) healthz(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// SourceInfo describes a data source.
type SourceInfo struct {
	Source      airquality.DataSource `json:"source"`
	Label       string                `json:"label"`
	Description string                `json:"description"`
	Selected    bool                  `json:"selected"`
}

func (s *Server) listSources(ctx *gin.Context) {
	selected, err := s.store.SelectedDataSource(ctx.Request.Context())
	if err != nil {
		s.logger.Error("reading preference", "error", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read preference"})

		return
	}

	sources := make([]SourceInfo, 0, len(airquality.DataSources()))
	_ = airquality.EachDataSource(func(ds airquality.DataSource) error {
		sources = append(sources, SourceInfo{
			Source:      ds,
			Label:       ds.Label(),
			Description: ds.Description(),
			Selected:    ds == selected,
		})

		return nil
	})

	ctx.JSON(http.StatusOK, sources)
}

type sourceRequest struct {
	Source string `json:"source" binding:"required"`
}

func (s *Server) getSource(ctx *gin.Context) {
	selected, err := s.store.SelectedDataSource(ctx.Request.Context())
	if err != nil {
		s.logger.Error("reading preference", "error", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read preference"})

		return
	}

	ctx.JSON(http.StatusOK, gin.H{"source": selected, "label": selected.Label()})
}

func (s *Server) putSource(ctx *gin.Context) {
	var req sourceRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})

		return
	}

	source, err := airquality.FindDataSource(req.Source)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	if err := s.store.SetSelectedDataSource(ctx.Request.Context(), source); err != nil {
		s.logger.Error("writing preference", "error", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save preference"})

		return
	}

	ctx.JSON(http.StatusOK, gin.H{"source": source, "label": source.Label()})
}

func (s *Server) refresh(ctx *gin.Context) {
	var (
		source airquality.DataSource
		err    error
	)

	if q := ctx.Query("source"); q != "" {
		source, err = airquality.FindDataSource(q)
		if err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

			return
		}
	} else {
		source, err = s.store.SelectedDataSource(ctx.Request.Context())
		if err != nil {
			s.logger.Error("reading preference", "error", err)
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read preference"})

			return
		}
	}

	gen := s.refresher.RefreshAsync(ctx.Request.Context(), source)

	ctx.JSON(http.StatusAccepted, gin.H{"generation": gen, "source": source})
}

func (s *Server) getReading(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, s.refresher.State())
}

type classification struct {
	Parameter string              `json:"parameter"`
	Value     float64             `json:"value"`
	Category  airquality.Category `json:"category"`
	Label     string              `json:"label"`
	Color     airquality.Color    `json:"color"`
}

func (s *Server) classify(ctx *gin.Context) {
	params := []struct{ query, parameter string }{
		{"pm25", airquality.ParameterPM25},
		{"pm10", airquality.ParameterPM10},
	}

	ret := make([]classification, 0, len(params))

	for _, p := range params {
		raw, ok := ctx.GetQuery(p.query)
		if !ok {
			continue
		}

		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsInf(v, 0) {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": p.query + " must be a number"})

			return
		}

		category, err := airquality.Classify(p.parameter, v)
		if err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

			return
		}

		ret = append(ret, classification{
			Parameter: p.parameter,
			Value:     v,
			Category:  category,
			Label:     category.String(),
			Color:     category.Color(),
		})
	}

	if len(ret) == 0 {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "pm25 or pm10 query parameter is required"})

		return
	}

	ctx.JSON(http.StatusOK, ret)
}
