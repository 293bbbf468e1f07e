package api

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/khanhnv2901/seca-headers/internal/api/middleware"
	"github.com/khanhnv2901/seca-headers/internal/checker"
	"github.com/khanhnv2901/seca-headers/internal/headers"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const defaultScanTimeout = 15 * time.Second

// ClassifyRequest is the body of POST /api/v1/headers/classify.
type ClassifyRequest struct {
	Headers []headers.Entry `json:"headers"`
}

// ClassifyResponse embeds the classifier result and adds misspelling hints.
type ClassifyResponse struct {
	*headers.Result
	Misspellings []headers.Misspelling `json:"misspellings"`
}

type Config struct {
	Logger      *zap.Logger
	AuthToken   string
	RateLimit   int           // Requests per second per IP (0 = disabled)
	RateBurst   int           // Burst size for rate limiter
	ScanTimeout time.Duration // Deadline for /headers/scan and /clickjack

	// HeaderChecker and FramingChecker default to live HTTP checkers.
	HeaderChecker  checker.Checker
	FramingChecker checker.Checker
}

type Server struct {
	cfg      Config
	engine   *gin.Engine
	limiters *rateLimiterMap
}

func NewServer(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.ScanTimeout <= 0 {
		cfg.ScanTimeout = defaultScanTimeout
	}
	if cfg.HeaderChecker == nil {
		cfg.HeaderChecker = &checker.HeaderChecker{Timeout: cfg.ScanTimeout}
	}
	if cfg.FramingChecker == nil {
		cfg.FramingChecker = &checker.ClickjackChecker{Timeout: cfg.ScanTimeout}
	}

	srv := &Server{
		cfg:      cfg,
		engine:   gin.New(),
		limiters: newRateLimiterMap(),
	}
	srv.routes()
	return srv
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.engine.ServeHTTP(w, r)
}

// Close stops background limiter cleanup.
func (s *Server) Close() {
	s.limiters.stop()
}

func (s *Server) routes() {
	s.engine.Use(gin.Recovery(), middleware.RequestID(), s.withLogging(), s.withRateLimit())

	v1 := s.engine.Group("/api/v1")
	v1.GET("/health", s.handleHealth)

	authed := v1.Group("", s.withAuth())
	authed.POST("/headers/classify", s.handleClassify)
	authed.GET("/headers/scan", s.handleScan)
	authed.GET("/clickjack", s.handleClickjack)

	s.engine.NoRoute(func(c *gin.Context) {
		s.writeError(c, http.StatusNotFound, errors.New("not found"))
	})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleClassify(c *gin.Context) {
	var req ClassifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, http.StatusBadRequest, errors.New("invalid request payload: "+err.Error()))
		return
	}
	c.JSON(http.StatusOK, ClassifyResponse{
		Result:       headers.Classify(req.Headers),
		Misspellings: headers.DetectMisspellings(req.Headers),
	})
}

func (s *Server) handleScan(c *gin.Context) {
	s.runCheck(c, s.cfg.HeaderChecker)
}

func (s *Server) handleClickjack(c *gin.Context) {
	s.runCheck(c, s.cfg.FramingChecker)
}

func (s *Server) runCheck(c *gin.Context, chk checker.Checker) {
	target := strings.TrimSpace(c.Query("url"))
	if target == "" {
		s.writeError(c, http.StatusBadRequest, errors.New("url query parameter is required"))
		return
	}
	if checker.NormalizeHTTPTarget(target) == "" {
		s.writeError(c, http.StatusBadRequest, errors.New("url must be an http or https URL"))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), s.cfg.ScanTimeout)
	defer cancel()

	result := chk.Check(ctx, target)
	if result.Status == checker.StatusError {
		s.requestLogger(c).Warn("check_failed",
			zap.String("checker", chk.Name()),
			zap.String("target", target),
			zap.String("error", result.Error),
		)
		c.JSON(http.StatusBadGateway, result)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) requestLogger(c *gin.Context) *zap.Logger {
	return s.cfg.Logger.With(zap.String("request_id", middleware.GetRequestID(c.Request.Context())))
}

func (s *Server) writeError(c *gin.Context, status int, err error) {
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		s.requestLogger(c).Error("request_failed", zap.Error(err))
		msg = "internal server error"
	}
	c.AbortWithStatusJSON(status, gin.H{
		"error":      msg,
		"request_id": middleware.GetRequestID(c.Request.Context()),
	})
}

func (s *Server) withAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.cfg.AuthToken == "" {
			c.Next()
			return
		}
		token := c.GetHeader("X-API-Token")
		if bearer, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer "); ok {
			token = strings.TrimSpace(bearer)
		}
		// Use constant-time comparison to prevent timing attacks
		if subtle.ConstantTimeCompare([]byte(token), []byte(s.cfg.AuthToken)) != 1 {
			s.writeError(c, http.StatusUnauthorized, errors.New("unauthorized"))
			return
		}
		c.Next()
	}
}

func (s *Server) withRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.cfg.RateLimit <= 0 {
			c.Next()
			return
		}

		clientIP := c.ClientIP()
		limiter := s.limiters.getLimiter(clientIP, s.cfg.RateLimit, s.cfg.RateBurst)
		if !limiter.Allow() {
			s.requestLogger(c).Warn("rate_limit_exceeded", zap.String("client_ip", clientIP))
			s.writeError(c, http.StatusTooManyRequests, errors.New("rate limit exceeded"))
			return
		}
		c.Next()
	}
}

func (s *Server) withLogging() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		s.requestLogger(c).Info("http_request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Int("bytes", c.Writer.Size()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

// rateLimiterMap manages per-IP rate limiters with automatic cleanup
type rateLimiterMap struct {
	mu       sync.Mutex
	limiters map[string]*ipLimiter
	done     chan struct{}
	stopOnce sync.Once
}

type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newRateLimiterMap() *rateLimiterMap {
	m := &rateLimiterMap{
		limiters: make(map[string]*ipLimiter),
		done:     make(chan struct{}),
	}
	go m.cleanupLoop()
	return m
}

func (m *rateLimiterMap) getLimiter(ip string, rps, burst int) *rate.Limiter {
	m.mu.Lock()
	defer m.mu.Unlock()

	if burst < 1 {
		burst = 1
	}
	limiter, exists := m.limiters[ip]
	if !exists {
		limiter = &ipLimiter{
			limiter:  rate.NewLimiter(rate.Limit(rps), burst),
			lastSeen: time.Now(),
		}
		m.limiters[ip] = limiter
	} else {
		limiter.lastSeen = time.Now()
	}

	return limiter.limiter
}

// cleanupLoop removes limiters that haven't been used in 5 minutes
func (m *rateLimiterMap) cleanupLoop() {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			m.mu.Lock()
			for ip, limiter := range m.limiters {
				if time.Since(limiter.lastSeen) > 5*time.Minute {
					delete(m.limiters, ip)
				}
			}
			m.mu.Unlock()
		}
	}
}

func (m *rateLimiterMap) stop() {
	m.stopOnce.Do(func() { close(m.done) })
}
