// Package server exposes the engine's read and admin surface over HTTP.
// It is a thin wrapper: every handler delegates straight to the core.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Bo-sung/mineconomy/internal/catalog"
	"github.com/Bo-sung/mineconomy/internal/economy"
	"github.com/Bo-sung/mineconomy/internal/presence"
	"github.com/Bo-sung/mineconomy/internal/store"
)

// Server hosts the read/admin HTTP endpoints.
type Server struct {
	store     store.Store
	book      *economy.Book
	engine    *economy.Engine
	scheduler *economy.Scheduler
	snapshots *economy.SnapshotBuilder
	recorder  *economy.TradeRecorder
	tracker   *presence.Tracker
	admin     catalog.Admin
	logger    *zap.Logger

	http *http.Server
}

func New(
	addr string,
	st store.Store,
	book *economy.Book,
	engine *economy.Engine,
	scheduler *economy.Scheduler,
	snapshots *economy.SnapshotBuilder,
	recorder *economy.TradeRecorder,
	tracker *presence.Tracker,
	admin catalog.Admin,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		store:     st,
		book:      book,
		engine:    engine,
		scheduler: scheduler,
		snapshots: snapshots,
		recorder:  recorder,
		tracker:   tracker,
		admin:     admin,
		logger:    logger,
	}
	s.http = &http.Server{
		Addr:         addr,
		Handler:      s.router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return s
}

func (s *Server) router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", s.handleHealth)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/api/v1")
	{
		v1.GET("/items/:id/price", s.handlePrice)
		v1.GET("/items/:id/pressure", s.handlePressure)
		v1.GET("/snapshot", s.handleSnapshot)
		v1.POST("/trades", s.handleTrade)

		// The game server drives these on player connect/disconnect and
		// on its periodic keepalive tick.
		v1.POST("/players/:id/login", s.handleLogin)
		v1.POST("/players/:id/logout", s.handleLogout)
		v1.POST("/players/:id/heartbeat", s.handleHeartbeat)

		admin := v1.Group("/admin")
		admin.POST("/recompute", s.handleRecomputeAll)
		admin.POST("/recompute/:id", s.handleRecomputeOne)
		admin.PUT("/items/:id", s.handleItemUpsert)
		admin.PUT("/items/:id/active", s.handleItemActive)
		admin.PUT("/items/:id/price", s.handleItemBasePrice)
	}
	return r
}

// Start serves HTTP until Shutdown. Blocks.
func (s *Server) Start() error {
	s.logger.Info("http server listening", zap.String("addr", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) handleHealth(c *gin.Context) {
	if err := s.store.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"scheduler": s.scheduler.State().String(),
	})
}

type quoteResponse struct {
	economy.PriceRecord
	BuyQuote  decimal.Decimal `json:"buy_quote"`
	SellQuote decimal.Decimal `json:"sell_quote"`
}

func (s *Server) handlePrice(c *gin.Context) {
	rec, err := s.book.Price(c.Request.Context(), c.Param("id"))
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "no published price"})
		return
	}
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, quoteResponse{
		PriceRecord: rec,
		BuyQuote:    economy.QuotePrice(rec.Price, rec.BasePrice, economy.Buy),
		SellQuote:   economy.QuotePrice(rec.Price, rec.BasePrice, economy.Sell),
	})
}

func (s *Server) handlePressure(c *gin.Context) {
	itemID := c.Param("id")
	rec, err := s.book.Pressure(c.Request.Context(), itemID)
	if errors.Is(err, store.ErrNotFound) {
		// No fresh record; compute on demand without publishing.
		rec, err = s.engine.MarketPressure(c.Request.Context(), itemID)
	}
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (s *Server) handleSnapshot(c *gin.Context) {
	snap, err := s.snapshots.Build(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

type tradeRequest struct {
	ItemID   string `json:"item_id" binding:"required"`
	PlayerID string `json:"player_id" binding:"required"`
	Side     string `json:"side" binding:"required,oneof=buy sell"`
	Quantity int64  `json:"quantity" binding:"required,gt=0"`
}

func (s *Server) handleTrade(c *gin.Context) {
	var req tradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.recorder.RecordTrade(c.Request.Context(), req.ItemID, req.PlayerID, economy.Side(req.Side), req.Quantity); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "recorded"})
}

func (s *Server) handleRecomputeAll(c *gin.Context) {
	if err := s.scheduler.RunCycle(c.Request.Context()); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "recomputed"})
}

func (s *Server) handleRecomputeOne(c *gin.Context) {
	err := s.scheduler.ForceRecompute(c.Request.Context(), c.Param("id"))
	if errors.Is(err, catalog.ErrItemNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown item"})
		return
	}
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "recomputed"})
}

func (s *Server) handleLogin(c *gin.Context) {
	if err := s.tracker.Login(c.Request.Context(), c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "online"})
}

func (s *Server) handleLogout(c *gin.Context) {
	if err := s.tracker.Logout(c.Request.Context(), c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "offline"})
}

func (s *Server) handleHeartbeat(c *gin.Context) {
	if err := s.tracker.Heartbeat(c.Request.Context(), c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "online"})
}

type itemUpsertRequest struct {
	BasePrice decimal.Decimal `json:"base_price" binding:"required"`
	Active    *bool           `json:"active" binding:"required"`
}

func (s *Server) handleItemUpsert(c *gin.Context) {
	var req itemUpsertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.BasePrice.Sign() <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "base_price must be positive"})
		return
	}
	item := catalog.Item{ID: c.Param("id"), BasePrice: req.BasePrice, Active: *req.Active}
	if err := s.admin.Upsert(c.Request.Context(), item); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "stored"})
}

func (s *Server) handleItemActive(c *gin.Context) {
	var req struct {
		Active *bool `json:"active" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	err := s.admin.SetActive(c.Request.Context(), c.Param("id"), *req.Active)
	if errors.Is(err, catalog.ErrItemNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown item"})
		return
	}
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "stored"})
}

func (s *Server) handleItemBasePrice(c *gin.Context) {
	var req struct {
		BasePrice decimal.Decimal `json:"base_price" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.BasePrice.Sign() <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "base_price must be positive"})
		return
	}
	err := s.admin.SetBasePrice(c.Request.Context(), c.Param("id"), req.BasePrice)
	if errors.Is(err, catalog.ErrItemNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown item"})
		return
	}
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "stored"})
}

func (s *Server) fail(c *gin.Context, err error) {
	s.logger.Error("request failed",
		zap.String("path", c.FullPath()),
		zap.Error(err),
	)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}
