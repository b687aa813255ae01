package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/cloudsanalytics/appointment-api/api/swagger"
	"github.com/cloudsanalytics/appointment-api/internal/handler"
	"github.com/cloudsanalytics/appointment-api/internal/middleware"
	"github.com/cloudsanalytics/appointment-api/internal/models"
	"github.com/cloudsanalytics/appointment-api/internal/repository"
	"github.com/cloudsanalytics/appointment-api/internal/service"
	"github.com/cloudsanalytics/appointment-api/pkg/cache"
	"github.com/cloudsanalytics/appointment-api/pkg/config"
	"github.com/cloudsanalytics/appointment-api/pkg/database"
	"github.com/cloudsanalytics/appointment-api/pkg/logger"
	corsmiddleware "github.com/cloudsanalytics/appointment-api/pkg/middleware/cors"
	reqidmiddleware "github.com/cloudsanalytics/appointment-api/pkg/middleware/requestid"
	"github.com/cloudsanalytics/appointment-api/pkg/notify"
)

// @title CloudsAnalytics Appointment API
// @version 1.0.0
// @description Appointment scheduling service with fixed 30-minute slots
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to redis", "error", err)
	}
	defer redisClient.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slotRepo := repository.NewSlotRepository(db)
	userRepo := repository.NewUserRepository(db)
	apptRepo := repository.NewAppointmentRepository(db)
	notifRepo := repository.NewNotificationRepository(db)
	tokenRepo := repository.NewRevokedTokenRepository(redisClient)

	metricsSvc := service.NewMetricsService()

	var notifiers []notify.Notifier
	if cfg.Notifications.Enabled {
		if cfg.Notifications.SlackWebhookURL != "" {
			notifiers = append(notifiers, notify.NewSlackNotifier(cfg.Notifications.SlackWebhookURL))
		}
		notifiers = append(notifiers, notify.NewLogNotifier(logr))
	}
	notificationSvc := service.NewNotificationService(notifRepo, notifiers, cfg.Notifications.SupportEmail, cfg.Notifications.Workers, logr)
	notificationSvc.Start(ctx)
	defer notificationSvc.Stop()

	authSvc := service.NewAuthService(userRepo, tokenRepo, nil, logr, service.AuthConfig{
		Secret:             cfg.JWT.Secret,
		Expiry:             cfg.JWT.Expiration,
		Issuer:             cfg.JWT.Issuer,
		SuperadminEmail:    cfg.Superadmin.Email,
		SuperadminPassword: cfg.Superadmin.Password,
	})
	slotSvc := service.NewSlotService(slotRepo, nil, logr)
	bookingSvc := service.NewBookingService(slotRepo, userRepo, apptRepo, notificationSvc, metricsSvc, nil, nil, logr)
	apptSvc := service.NewAppointmentService(apptRepo, slotRepo, notificationSvc, nil, logr)
	adminSvc := service.NewAdminService(userRepo, slotRepo, nil, logr)
	reaperSvc := service.NewReaperService(apptRepo, slotRepo, metricsSvc, logr, cfg.Reaper.Interval)
	reaperSvc.Start(ctx)

	authHandler := handler.NewAuthHandler(authSvc)
	bookingHandler := handler.NewBookingHandler(slotSvc, bookingSvc)
	slotHandler := handler.NewSlotHandler(slotSvc)
	apptHandler := handler.NewAppointmentHandler(apptSvc)
	superadminHandler := handler.NewSuperadminHandler(adminSvc, apptSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	{
		auth := api.Group("/auth")
		{
			auth.POST("/login", authHandler.Login)
			auth.POST("/logout", middleware.JWT(authSvc), authHandler.Logout)
		}

		api.GET("/slots", bookingHandler.ListSlots)
		api.GET("/bookings", bookingHandler.ListByContact)
		api.POST("/bookings", bookingHandler.Create)

		admin := api.Group("/admin", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleAdmin))
		{
			admin.GET("/slots", slotHandler.List)
			admin.POST("/slots", slotHandler.Create)
			admin.PUT("/slots/:id", slotHandler.Update)
			admin.DELETE("/slots/:id", slotHandler.Delete)

			admin.GET("/appointments", apptHandler.List)
			admin.PATCH("/appointments/:id/approve", apptHandler.Approve)
			admin.PATCH("/appointments/:id/notes", apptHandler.SetNotes)
			admin.DELETE("/appointments/:id", apptHandler.Delete)
		}

		superadmin := api.Group("/superadmin", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleSuperadmin))
		{
			superadmin.GET("/admins", superadminHandler.ListAdmins)
			superadmin.POST("/admins", superadminHandler.CreateAdmin)
			superadmin.PUT("/admins/:id", superadminHandler.UpdateAdmin)
			superadmin.DELETE("/admins/:id", superadminHandler.DeleteAdmin)
			superadmin.GET("/admins/:id/slots", superadminHandler.ListAdminSlots)

			superadmin.GET("/appointments", superadminHandler.ListAppointments)
			superadmin.PUT("/appointments/:id/reassign", superadminHandler.ReassignAppointment)
			superadmin.PUT("/appointments/:id/status", superadminHandler.UpdateAppointmentStatus)
			superadmin.DELETE("/appointments/:id", superadminHandler.DeleteAppointment)
		}
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
