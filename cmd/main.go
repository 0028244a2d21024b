package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"clixen"
	"clixen/internal/api/gateway"
	"clixen/internal/api/handler/endpoints"
	"clixen/internal/api/models"
	"clixen/internal/api/service"
	"clixen/internal/realtime"
	"clixen/pkg"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/graceful"
	"github.com/gin-gonic/gin"
)

func main() {
	clixen.InitConfig(".env")
	gin.SetMode(gin.ReleaseMode)

	if clixen.GetConfig().Mode == "dev" {
		if err := clixen.DB.AutoMigrate(
			&models.User{},
			&models.Workflow{},
			&models.Deployment{},
			&models.ChatSession{},
			&models.ChatMessage{},
		); err != nil {
			clixen.Logger.Fatal().Err(err).Msg("Failed to migrate database")
		}
		clixen.Logger.Info().Msg("Database migrated successfully")
		gin.SetMode(gin.DebugMode)
	}

	pkg.InitializeEmailProviders()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	router, err := graceful.Default(graceful.WithAddr(clixen.GetConfig().ApiPort))
	pkg.AssertNoError(err)
	defer stop()
	defer router.Close()

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	engineClient := gateway.NewEngineClient(
		clixen.GetConfig().EngineConfig.URL,
		clixen.GetConfig().EngineConfig.APIKey,
		clixen.Logger,
	)

	var events service.ProgressPublisher
	publisher, err := realtime.NewPublisher(clixen.GetConfig().NatsURL)
	if err != nil {
		clixen.Logger.Warn().Err(err).Msg("NATS unavailable, realtime events disabled")
	} else {
		defer publisher.Close()
		events = publisher
	}

	workflowService := service.NewWorkflowService(engineClient, events)

	initAPI(router, workflowService)

	clixen.Logger.Debug().Msgf("Starting CORE API on port %s", clixen.GetConfig().ApiPort)
	if err = router.RunWithContext(ctx); err != nil && !errors.Is(err, context.Canceled) {
		clixen.Logger.Fatal().Msg(err.Error())
		panic(err)
	}
}

func initAPI(router *graceful.Graceful, workflowService *service.WorkflowService) {
	endpoints.AuthHandler(router)
	endpoints.WorkflowHandler(router, workflowService)
	endpoints.ChatHandler(router, workflowService)
}
