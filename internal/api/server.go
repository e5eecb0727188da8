package api

import (
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerfiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/uiso2025/uiso-admin-api/docs"
	v1 "github.com/uiso2025/uiso-admin-api/internal/api/handler/v1"
	"github.com/uiso2025/uiso-admin-api/internal/api/middleware"
	"github.com/uiso2025/uiso-admin-api/internal/config"
	"github.com/uiso2025/uiso-admin-api/internal/metrics"
	"github.com/uiso2025/uiso-admin-api/internal/notify"
	"github.com/uiso2025/uiso-admin-api/internal/pkg/retry"
	"github.com/uiso2025/uiso-admin-api/internal/repository"
	"github.com/uiso2025/uiso-admin-api/internal/repository/dao"
	"github.com/uiso2025/uiso-admin-api/internal/service"
)

type Server struct {
	Config   *config.AppConfig
	Router   *gin.Engine
	Hub      *notify.Hub
	Registry *prometheus.Registry
	Metrics  *metrics.Metrics
}

func NewServer(conf *config.AppConfig, db *gorm.DB) *Server {
	gin.SetMode(conf.Gin.Mode)
	engine := gin.New()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	s := &Server{
		Config:   conf,
		Router:   engine,
		Hub:      notify.NewHub(conf.API.AllowedCORSDomains, zap.L()),
		Registry: registry,
		Metrics:  metrics.New(registry),
	}

	s.MountMiddlewares()

	registrationHandler := s.initRegistrationHandler(db)
	eventHandler := v1.NewEventHandler(s.Hub)
	s.MountHandlers(registrationHandler, eventHandler)

	return s
}

func (s *Server) initRegistrationHandler(db *gorm.DB) *v1.RegistrationHandler {
	rc := s.Config.Registration
	loc := rc.Location()

	registrationDAO := dao.NewRegistrationDAO(db)
	repo := repository.NewRegistrationRepository(registrationDAO)
	notifier := notify.Multi{notify.NewLogNotifier(zap.L()), s.Hub}
	svc := service.NewRegistrationService(repo, notifier, s.Metrics, zap.L(), service.Options{
		Retry: retry.Policy{
			MaxAttempts:     rc.MaxWriteAttempts,
			InitialInterval: rc.RetryInterval,
			MaxInterval:     rc.MaxRetryInterval,
			AttemptTimeout:  rc.RequestTimeout,
		},
		WriteTimeout: rc.RequestTimeout,
		Location:     loc,
	})
	handler := v1.NewRegistrationHandler(svc, loc)

	return handler
}

func (s *Server) MountMiddlewares() {
	// Logger and Recovery are needed unless we use gin.Default().
	s.Router.Use(gin.Logger())
	s.Router.Use(gin.Recovery())
	s.Router.Use(requestid.New())
	s.Router.Use(middleware.ConfigCORS(s.Config.API.AllowedCORSDomains))
	s.Router.Use(middleware.Instrument(s.Metrics))
}

func (s *Server) MountHandlers(registrationHandler *v1.RegistrationHandler, eventHandler *v1.EventHandler) {
	const basePath = "/api/v1"

	authenticator := middleware.NewAuthenticator(s.Config.API.JWTSigningKey)

	admin := s.Router.Group(basePath+"/admin", authenticator.VerifyJWT(), middleware.RequireAdmin())
	{
		admin.GET("/registrations", registrationHandler.HandleListRegistrations)
		admin.POST("/registrations/bulk", registrationHandler.HandleBulkStatus)
		admin.POST("/registrations/export", registrationHandler.HandleExport)
		admin.GET("/registrations/:registrationID", registrationHandler.HandleGetRegistration)
		admin.PATCH("/registrations/:registrationID/status", registrationHandler.HandleUpdateStatus)
		admin.PATCH("/registrations/:registrationID/verification", registrationHandler.HandleUpdateVerification)
		admin.PATCH("/registrations/:registrationID/members/:memberID/verification", registrationHandler.HandleUpdateMemberVerification)
		// Notifications
		admin.GET("/events", eventHandler.HandleEvents)
	}

	s.Router.GET("/", v1.HandleHealthcheck)
	s.Router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.Registry, promhttp.HandlerOpts{})))

	// Setup Swagger UI.
	docs.SwaggerInfo.Host = s.Config.API.BaseURL
	docs.SwaggerInfo.BasePath = basePath
	docs.SwaggerInfo.Title = "UISO 2025 admin API"
	docs.SwaggerInfo.Description = "Registration review for the UISO 2025 admin dashboard."
	docs.SwaggerInfo.Version = "1.0"
	s.Router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerfiles.Handler))
}
