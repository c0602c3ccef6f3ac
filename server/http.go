// Package server exposes the relay over HTTP: the websocket endpoint
// for participants and a small REST surface for operators and tools.
package server

import (
	"context"
	goerrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"chat-relay/auth"
	"chat-relay/errors"
	"chat-relay/internal"
	"chat-relay/repositories"
	"chat-relay/runtime"
	"chat-relay/runtime/workers"
	"chat-relay/services"
)

type Server struct {
	log         *slog.Logger
	cfg         *internal.Config
	dispatcher  *runtime.Dispatcher
	channels    *runtime.ChannelStore
	messages    repositories.MessageRepository
	search      *repositories.SearchRepository
	authService *services.AuthService
	tokens      *auth.TokenManager
	health      *workers.HealthWorker

	httpServer *http.Server
}

func New(
	log *slog.Logger,
	cfg *internal.Config,
	dispatcher *runtime.Dispatcher,
	channels *runtime.ChannelStore,
	messages repositories.MessageRepository,
	search *repositories.SearchRepository,
	authService *services.AuthService,
	tokens *auth.TokenManager,
	health *workers.HealthWorker,
) *Server {
	return &Server{
		log:         log,
		cfg:         cfg,
		dispatcher:  dispatcher,
		channels:    channels,
		messages:    messages,
		search:      search,
		authService: authService,
		tokens:      tokens,
		health:      health,
	}
}

func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/ws", s.handleWebSocket)

	api := router.Group("/api")
	{
		api.GET("/health", s.handleHealth)
		api.GET("/channels", s.handleListChannels)
		api.GET("/channels/:name/history", s.handleChannelHistory)
		api.GET("/channels/:name/messages", s.handleChannelArchive)
		api.GET("/channels/:name/search", s.handleChannelSearch)

		api.POST("/auth/register", s.handleRegister)
		api.POST("/auth/login", s.handleLogin)

		admin := api.Group("")
		admin.Use(s.requireAdmin())
		admin.POST("/channels", s.handleCreateChannel)
	}

	return router
}

// Run serves until the context is canceled, then shuts down gracefully.
// Implemented as a supervised worker so the relay restarts its HTTP
// front the same way it restarts any other component.
func (s *Server) Run(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler: s.Router(),
	}

	errChan := make(chan error, 1)
	go func() {
		s.log.Info("HTTP server listening", "addr", s.httpServer.Addr)
		errChan <- s.httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	case err := <-errChan:
		if goerrors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// requireAdmin guards operator-only REST routes with a Bearer token.
func (s *Server) requireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		elevated, err := s.tokens.VerifyElevation(token)
		if err != nil || !elevated {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": errors.ErrUnauthorized.Error()})
			return
		}
		c.Next()
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, s.health.Snapshot())
}

func (s *Server) handleListChannels(c *gin.Context) {
	names := s.channels.Names()
	channels := make([]gin.H, 0, len(names))
	for _, name := range names {
		channels = append(channels, gin.H{
			"name":     name,
			"messages": len(s.channels.History(name)),
		})
	}
	c.JSON(http.StatusOK, gin.H{"channels": channels})
}

type createChannelRequest struct {
	Name string `json:"name" binding:"required,max=64"`
}

func (s *Server) handleCreateChannel(c *gin.Context) {
	var req createChannelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := s.channels.Create(req.Name); err != nil {
		switch {
		case goerrors.Is(err, errors.ErrChannelExists):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{"name": req.Name})
}

func (s *Server) handleChannelHistory(c *gin.Context) {
	name := c.Param("name")
	if !s.channels.Exists(name) {
		c.JSON(http.StatusNotFound, gin.H{"error": errors.ErrChannelNotFound.Error()})
		return
	}
	events := s.channels.History(name)
	if raw, ok := c.GetQuery("limit"); ok {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		if limit < len(events) {
			events = events[len(events)-limit:]
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"channel": name,
		"events":  events,
	})
}

func (s *Server) handleChannelArchive(c *gin.Context) {
	name := c.Param("name")
	if !s.channels.Exists(name) {
		c.JSON(http.StatusNotFound, gin.H{"error": errors.ErrChannelNotFound.Error()})
		return
	}

	var cursor *string
	if raw, ok := c.GetQuery("cursor"); ok && raw != "" {
		cursor = &raw
	}

	messages, next, err := s.messages.GetMessages(name, cursor)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	response := gin.H{
		"channel":  name,
		"messages": messages,
	}
	if next != nil && *next != "" && len(messages) > 0 {
		response["cursor"] = *next
	}
	c.JSON(http.StatusOK, response)
}

func (s *Server) handleChannelSearch(c *gin.Context) {
	name := c.Param("name")
	if !s.channels.Exists(name) {
		c.JSON(http.StatusNotFound, gin.H{"error": errors.ErrChannelNotFound.Error()})
		return
	}

	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing query parameter q"})
		return
	}

	limit := s.cfg.ArchivePageSize
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		if parsed < limit {
			limit = parsed
		}
	}

	hits, total, err := s.search.Search(c.Request.Context(), query, name, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if hits == nil {
		hits = []repositories.Hit{}
	}

	c.JSON(http.StatusOK, gin.H{
		"channel": name,
		"total":   total,
		"hits":    hits,
	})
}

type credentialsRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (s *Server) handleRegister(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	token, err := s.authService.Register(req.Email, req.Password)
	if err != nil {
		switch {
		case goerrors.Is(err, errors.ErrUserAlreadyExists):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		case goerrors.Is(err, errors.ErrInvalidPassword):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{"token": token})
}

func (s *Server) handleLogin(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	token, err := s.authService.Login(req.Email, req.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": errors.ErrInvalidCredentials.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token})
}
