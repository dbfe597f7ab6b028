package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/MykolaKantsir/web/internal/config"
	"github.com/MykolaKantsir/web/internal/handler"
	"github.com/MykolaKantsir/web/internal/repository"
	"github.com/MykolaKantsir/web/internal/service"
)

const apiPrefix = "/measuring/api"

type Server struct {
	httpServer *http.Server
	cfg        *config.Config
	log        *zap.Logger
}

func New(cfg *config.Config, log *zap.Logger) (*Server, error) {
	repo, err := newRepository(cfg, log)
	if err != nil {
		return nil, err
	}
	images, err := newImageStore(cfg, log)
	if err != nil {
		return nil, err
	}

	svc, err := service.NewMeasuringService(repo, images, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create measuring service: %w", err)
	}

	server := &Server{
		httpServer: &http.Server{
			Addr:           cfg.Server.Host + ":" + cfg.Server.Port,
			Handler:        NewRouter(handler.NewHandler(svc, log)),
			ReadTimeout:    cfg.Server.ReadTimeout,
			WriteTimeout:   cfg.Server.WriteTimeout,
			MaxHeaderBytes: 1 << 20, // 1 MB
		},
		cfg: cfg,
		log: log,
	}

	log.Info("Server created successfully",
		zap.String("host", cfg.Server.Host),
		zap.String("port", cfg.Server.Port),
		zap.String("storage", cfg.Storage.Backend),
		zap.Bool("s3", cfg.S3.Enabled))

	return server, nil
}

// NewRouter registers the measuring API on a fresh gin engine.
func NewRouter(h *handler.Handler) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", h.HealthCheck)

	api := router.Group(apiPrefix)
	{
		api.POST("/create_drawing/", h.CreateDrawing)
		api.GET("/drawing/:drawing_id/", h.GetDrawing)
		api.GET("/drawing/:drawing_id/dimension/:dimension_id/preview", h.DimensionPreview)
		api.GET("/find_drawing/", h.FindDrawing)
		api.POST("/create_or_update_dimension/", h.SaveDimension)
		api.GET("/empty_protocol_form/", h.EmptyProtocolForm)
		api.GET("/check_unfinished_protocols/", h.CheckUnfinishedProtocols)
		api.GET("/get_protocol_data/", h.GetProtocolData)
		api.POST("/save_measurement/", h.SaveMeasurement)
		api.POST("/finish_protocol/", h.FinishProtocol)
		api.GET("/download_protocol/", h.DownloadProtocol)
	}

	return router
}

func newRepository(cfg *config.Config, log *zap.Logger) (repository.MeasuringRepository, error) {
	switch cfg.Storage.Backend {
	case "postgres":
		repo, err := repository.NewPostgresRepository(cfg.Storage.DSN, log)
		if err != nil {
			return nil, fmt.Errorf("failed to create postgres repository: %w", err)
		}
		return repo, nil
	case "memory", "":
		return repository.NewMemoryRepository(log), nil
	}
	return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
}

func newImageStore(cfg *config.Config, log *zap.Logger) (repository.ImageStore, error) {
	if !cfg.S3.Enabled {
		return repository.NewMemoryImageStore(), nil
	}
	store, err := repository.NewS3ImageStore(&cfg.S3, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 repository: %w", err)
	}
	return store, nil
}

func (s *Server) Run() error {
	s.log.Info("Server is running",
		zap.String("host", s.cfg.Server.Host),
		zap.String("port", s.cfg.Server.Port),
		zap.String("address", s.httpServer.Addr))

	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("Shutting down server")
	return s.httpServer.Shutdown(ctx)
}
