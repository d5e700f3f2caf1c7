package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/magerisk/internal/coverage"
	"github.com/magerisk/internal/criticality"
	"github.com/magerisk/internal/dashboard"
	"github.com/magerisk/internal/events"
	"github.com/magerisk/internal/health"
	"github.com/magerisk/internal/recalc"
	"github.com/magerisk/internal/risk"
	"github.com/magerisk/pkg/models"
)

// Store is the persistence surface the gateway serves from
type Store interface {
	CreateAsset(ctx context.Context, asset models.Asset) error
	GetAsset(ctx context.Context, id string) (models.Asset, error)
	UpdateAsset(ctx context.Context, asset models.Asset) error
	DeleteAsset(ctx context.Context, id string) error
	ListAssets(ctx context.Context) ([]models.Asset, error)

	CreateThreat(ctx context.Context, threat models.Threat) error
	GetThreat(ctx context.Context, id string) (models.Threat, error)
	ListThreats(ctx context.Context) ([]models.Threat, error)

	CreateVulnerability(ctx context.Context, vuln models.Vulnerability) error
	GetVulnerability(ctx context.Context, id string) (models.Vulnerability, error)
	ListVulnerabilities(ctx context.Context) ([]models.Vulnerability, error)

	CreateSafeguard(ctx context.Context, sg models.Safeguard) error
	GetSafeguard(ctx context.Context, id string) (models.Safeguard, error)
	UpdateSafeguard(ctx context.Context, sg models.Safeguard) error
	ListSafeguards(ctx context.Context) ([]models.Safeguard, error)

	CreateRiskRecord(ctx context.Context, record models.RiskRecord) error
	GetRiskRecord(ctx context.Context, id string) (models.RiskRecord, error)
	ListRiskRecords(ctx context.Context) ([]models.RiskRecord, error)
	SaveRiskDerived(ctx context.Context, record models.RiskRecord) error
	FindDanglingReferences(ctx context.Context) []models.DanglingReferenceError
}

// GatewayConfig represents gateway configuration
type GatewayConfig struct {
	Host           string        `json:"host"`
	Port           int           `json:"port"`
	ReadTimeout    time.Duration `json:"read_timeout"`
	WriteTimeout   time.Duration `json:"write_timeout"`
	IdleTimeout    time.Duration `json:"idle_timeout"`
	EnableCORS     bool          `json:"enable_cors"`
	AllowedOrigins []string      `json:"allowed_origins"`
}

// DefaultGatewayConfig returns default gateway configuration
func DefaultGatewayConfig() GatewayConfig {
	return GatewayConfig{
		Host:           "0.0.0.0",
		Port:           8080,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   30 * time.Second,
		IdleTimeout:    60 * time.Second,
		EnableCORS:     true,
		AllowedOrigins: []string{"*"},
	}
}

// Gateway is the HTTP surface of the risk platform
type Gateway struct {
	server      *http.Server
	router      *mux.Router
	store       Store
	engine      *risk.Engine
	coordinator *recalc.Coordinator
	aggregator  *dashboard.Aggregator
	analyzer    *coverage.Analyzer
	calculator  *criticality.Calculator
	publisher   events.Publisher
	checker     *health.Checker
	logger      *zap.Logger
	config      GatewayConfig
	metrics     *gatewayMetrics
}

// Deps bundles the gateway collaborators
type Deps struct {
	Store       Store
	Engine      *risk.Engine
	Coordinator *recalc.Coordinator
	Aggregator  *dashboard.Aggregator
	Analyzer    *coverage.Analyzer
	Calculator  *criticality.Calculator
	Publisher   events.Publisher
	Health      *health.Checker
	Logger      *zap.Logger
}

// NewGateway creates the API gateway
func NewGateway(config GatewayConfig, deps Deps) *Gateway {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	publisher := deps.Publisher
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	checker := deps.Health
	if checker == nil {
		checker = health.NewChecker()
	}

	g := &Gateway{
		router:      mux.NewRouter(),
		store:       deps.Store,
		engine:      deps.Engine,
		coordinator: deps.Coordinator,
		aggregator:  deps.Aggregator,
		analyzer:    deps.Analyzer,
		calculator:  deps.Calculator,
		publisher:   publisher,
		checker:     checker,
		logger:      logger,
		config:      config,
		metrics: &gatewayMetrics{
			requestsByPath:   make(map[string]int64),
			requestsByStatus: make(map[int]int64),
		},
	}

	g.setupRoutes()
	g.setupMiddleware()

	g.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", config.Host, config.Port),
		Handler:      g.router,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}
	return g
}

// Router exposes the configured router, mainly for tests
func (g *Gateway) Router() http.Handler {
	return g.router
}

// setupRoutes configures all API routes
func (g *Gateway) setupRoutes() {
	api := g.router.PathPrefix("/api/v1").Subrouter()

	assets := api.PathPrefix("/assets").Subrouter()
	assets.HandleFunc("", g.handleListAssets).Methods("GET")
	assets.HandleFunc("", g.handleCreateAsset).Methods("POST")
	assets.HandleFunc("/bulk-import", g.handleBulkImport).Methods("POST")
	assets.HandleFunc("/{id}", g.handleGetAsset).Methods("GET")
	assets.HandleFunc("/{id}", g.handleUpdateAsset).Methods("PUT")
	assets.HandleFunc("/{id}", g.handleDeleteAsset).Methods("DELETE")

	threats := api.PathPrefix("/threats").Subrouter()
	threats.HandleFunc("", g.handleListThreats).Methods("GET")
	threats.HandleFunc("", g.handleCreateThreat).Methods("POST")

	vulns := api.PathPrefix("/vulnerabilities").Subrouter()
	vulns.HandleFunc("", g.handleListVulnerabilities).Methods("GET")
	vulns.HandleFunc("", g.handleCreateVulnerability).Methods("POST")

	safeguards := api.PathPrefix("/safeguards").Subrouter()
	safeguards.HandleFunc("", g.handleListSafeguards).Methods("GET")
	safeguards.HandleFunc("", g.handleCreateSafeguard).Methods("POST")
	safeguards.HandleFunc("/coverage", g.handleCoverage).Methods("GET")
	safeguards.HandleFunc("/{id}", g.handleUpdateSafeguard).Methods("PUT")

	risks := api.PathPrefix("/risks").Subrouter()
	risks.HandleFunc("", g.handleListRisks).Methods("GET")
	risks.HandleFunc("", g.handleCreateRisk).Methods("POST")
	risks.HandleFunc("/calculate", g.handleCalculateRisk).Methods("POST")
	risks.HandleFunc("/recalculate-all", g.handleRecalculateAll).Methods("POST")
	risks.HandleFunc("/dangling", g.handleDanglingReferences).Methods("GET")

	dash := api.PathPrefix("/dashboard").Subrouter()
	dash.HandleFunc("/kpis", g.handleKPIs).Methods("GET")
	dash.HandleFunc("/matrix", g.handleRiskMatrix).Methods("GET")
	dash.HandleFunc("/trends", g.handleTrends).Methods("GET")

	api.HandleFunc("/health", g.handleHealth).Methods("GET")
}

// setupMiddleware configures HTTP middleware
func (g *Gateway) setupMiddleware() {
	if g.config.EnableCORS {
		c := cors.New(cors.Options{
			AllowedOrigins:   g.config.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"*"},
			AllowCredentials: true,
		})
		g.router.Use(c.Handler)
	}
	g.router.Use(g.metricsMiddleware)
}

// Start starts the HTTP server
func (g *Gateway) Start() error {
	g.logger.Info("starting api gateway", zap.String("addr", g.server.Addr))
	return g.server.ListenAndServe()
}

// Stop shuts the server down gracefully
func (g *Gateway) Stop(ctx context.Context) error {
	g.logger.Info("stopping api gateway")
	return g.server.Shutdown(ctx)
}

// Response envelope

type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
	Meta    *APIMeta    `json:"meta,omitempty"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

type APIMeta struct {
	Total int `json:"total,omitempty"`
}

func (g *Gateway) writeJSONResponse(w http.ResponseWriter, status int, response APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		g.logger.Warn("encoding response failed", zap.Error(err))
	}
}

func (g *Gateway) writeErrorResponse(w http.ResponseWriter, status int, code, message, details string) {
	g.writeJSONResponse(w, status, APIResponse{
		Success: false,
		Error:   &APIError{Code: code, Message: message, Details: details},
	})
}

func (g *Gateway) writeSuccessResponse(w http.ResponseWriter, data interface{}, meta *APIMeta) {
	g.writeJSONResponse(w, http.StatusOK, APIResponse{Success: true, Data: data, Meta: meta})
}

// writeDomainError maps the error taxonomy onto HTTP statuses
func (g *Gateway) writeDomainError(w http.ResponseWriter, err error, message string) {
	switch {
	case errors.Is(err, models.ErrNotFound):
		g.writeErrorResponse(w, http.StatusNotFound, "NOT_FOUND", message, err.Error())
	case errors.Is(err, models.ErrConflict):
		g.writeErrorResponse(w, http.StatusConflict, "CONFLICT", message, err.Error())
	case errors.Is(err, models.ErrInvalidRange):
		g.writeErrorResponse(w, http.StatusBadRequest, "INVALID_RANGE", message, err.Error())
	case errors.Is(err, models.ErrDanglingReference):
		g.writeErrorResponse(w, http.StatusConflict, "DANGLING_REFERENCE", message, err.Error())
	default:
		g.writeErrorResponse(w, http.StatusInternalServerError, "INTERNAL_ERROR", message, err.Error())
	}
}

func parseRequestBody(r *http.Request, target interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(target)
}

// Metrics middleware

type gatewayMetrics struct {
	mu               sync.Mutex
	requestsTotal    int64
	requestsByPath   map[string]int64
	requestsByStatus map[int]int64
	lastRequest      time.Time
}

func (g *Gateway) metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		g.metrics.mu.Lock()
		g.metrics.requestsTotal++
		g.metrics.requestsByPath[r.URL.Path]++
		g.metrics.requestsByStatus[wrapped.statusCode]++
		g.metrics.lastRequest = time.Now()
		g.metrics.mu.Unlock()
	})
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
