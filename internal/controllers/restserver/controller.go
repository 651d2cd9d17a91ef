package restserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/chrissnell/structbreak/internal/analysis"
	"github.com/chrissnell/structbreak/internal/datastore"
	"github.com/chrissnell/structbreak/internal/log"
	"github.com/chrissnell/structbreak/pkg/config"
)

// Controller represents the REST server controller
type Controller struct {
	ctx      context.Context
	wg       *sync.WaitGroup
	config   *config.ConfigData
	Server   http.Server
	frontend *frontend
	store    *datastore.Store
	analyzer *analysis.Analyzer
	limiter  *Limiter
	logger   *zap.SugaredLogger
	handlers *Handlers
	router   *mux.Router
	handler  http.Handler
}

// NewController creates a new REST server controller
func NewController(ctx context.Context, wg *sync.WaitGroup, cfg *config.ConfigData, analyzer *analysis.Analyzer, store *datastore.Store, logger *zap.SugaredLogger) (*Controller, error) {
	if analyzer == nil {
		return nil, errors.New("REST server requires an analyzer")
	}
	if store == nil {
		return nil, errors.New("REST server requires a dataset store")
	}

	ctrl := &Controller{
		ctx:      ctx,
		wg:       wg,
		config:   cfg,
		store:    store,
		analyzer: analyzer,
		logger:   logger,
	}

	fe, err := loadFrontend(logger)
	if err != nil {
		return nil, err
	}
	ctrl.frontend = fe

	if cfg.Server.RateLimit > 0 {
		ctrl.limiter = NewLimiter(cfg.Server.RateLimit, cfg.Server.RateBurst)
	}

	ctrl.handlers = NewHandlers(ctrl)
	ctrl.router = ctrl.setupRouter()
	ctrl.handler = ctrl.wrap(ctrl.router)

	ctrl.Server.Addr = fmt.Sprintf("%v:%v", cfg.Server.ListenAddr, cfg.Server.Port)
	ctrl.Server.Handler = ctrl.handler
	ctrl.Server.ReadTimeout = cfg.Server.ReadTimeout
	ctrl.Server.WriteTimeout = cfg.Server.WriteTimeout

	return ctrl, nil
}

// Handler returns the fully wrapped HTTP handler
func (c *Controller) Handler() http.Handler {
	return c.handler
}

// StartController starts the REST server
func (c *Controller) StartController() error {
	c.logger.Infof("Starting REST server on %s...", c.Server.Addr)
	c.wg.Add(1)

	go func() {
		defer c.wg.Done()

		var err error
		if c.config.Server.Cert != "" && c.config.Server.Key != "" {
			err = c.Server.ListenAndServeTLS(c.config.Server.Cert, c.config.Server.Key)
		} else {
			err = c.Server.ListenAndServe()
		}
		if !errors.Is(err, http.ErrServerClosed) {
			c.logger.Errorf("REST server error: %v", err)
		}
	}()

	go func() {
		<-c.ctx.Done()
		c.logger.Info("Shutting down the REST server...")
		c.Server.Shutdown(context.Background())
	}()

	return nil
}

// setupRouter configures the HTTP router with all endpoints
func (c *Controller) setupRouter() *mux.Router {
	router := mux.NewRouter()
	router.Use(log.HTTPMiddleware(c.logger))

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/healthz", c.handlers.Health).Methods(http.MethodGet)
	api.HandleFunc("/defaults", c.handlers.Defaults).Methods(http.MethodGet)
	api.HandleFunc("/datasets/{id}", c.handlers.GetDataset).Methods(http.MethodGet)
	api.HandleFunc("/datasets/{id}", c.handlers.DeleteDataset).Methods(http.MethodDelete)

	// Endpoints that parse files or run analyses are rate limited per client
	limited := api.NewRoute().Subrouter()
	if c.limiter != nil {
		limited.Use(c.limiter.Middleware)
	}
	limited.HandleFunc("/datasets", c.handlers.UploadDataset).Methods(http.MethodPost)
	limited.HandleFunc("/datasets/{id}/analyze", c.handlers.AnalyzeDataset).Methods(http.MethodPost)
	limited.HandleFunc("/analyze", c.handlers.AnalyzeUpload).Methods(http.MethodPost)

	if c.config.Telemetry.Metrics {
		router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	}

	router.HandleFunc("/", c.handlers.ServeIndex).Methods(http.MethodGet)
	router.PathPrefix("/").Handler(http.FileServer(http.FS(c.frontend.files)))

	return router
}

// wrap adds panic recovery, compression and optional CORS around h
func (c *Controller) wrap(h http.Handler) http.Handler {
	h = handlers.CompressHandler(h)
	if c.config.Server.EnableCORS {
		h = handlers.CORS(
			handlers.AllowedOrigins([]string{"*"}),
			handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions}),
			handlers.AllowedHeaders([]string{"Content-Type", "Accept"}),
		)(h)
	}
	return handlers.RecoveryHandler(
		handlers.RecoveryLogger(recoveryLogger{c.logger}),
		handlers.PrintRecoveryStack(c.config.Debug),
	)(h)
}

// recoveryLogger adapts zap to the gorilla recovery handler
type recoveryLogger struct {
	logger *zap.SugaredLogger
}

func (r recoveryLogger) Println(v ...interface{}) {
	r.logger.Error(v...)
}
