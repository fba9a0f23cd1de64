package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dimitrije/teamsync-api/internal/config"
	"github.com/dimitrije/teamsync-api/internal/database"
	"github.com/dimitrije/teamsync-api/internal/handlers"
	"github.com/dimitrije/teamsync-api/internal/hub"
	"github.com/dimitrije/teamsync-api/internal/logger"
	authmw "github.com/dimitrije/teamsync-api/internal/middleware"
	"github.com/dimitrije/teamsync-api/internal/services"
	"github.com/m1z23r/drift/pkg/drift"
	"github.com/m1z23r/drift/pkg/middleware"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logr := logger.New(cfg.Env, cfg.LogLevel, "api")
	defer func() { _ = logr.Sync() }()

	ctx := context.Background()

	db, err := database.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logr.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		logr.Fatal("failed to run migrations", zap.Error(err))
	}

	jwtService := services.NewJWTService(cfg.JWTSecret, cfg.JWTIssuer)
	userService := services.NewUserService(db)
	members := services.NewMembershipStore(db, logr.Named("membership"))
	guard := services.NewOwnershipGuard(db, logr.Named("ownership"))
	connections := services.NewConnectionService(db, logr.Named("connections"))
	invites := services.NewInviteService(db, services.InviteConfig{
		DefaultTTLDays: cfg.InviteDefaultTTLDays,
		MaxTTLDays:     cfg.InviteMaxTTLDays,
	}, logr.Named("invites"))
	authz := services.NewAuthorizer(members, logr.Named("authz"))

	eventHub := hub.NewHub()
	go eventHub.Run()

	publisher := hub.NewPublisher(eventHub, hub.PublisherConfig{
		Timeout:    cfg.NotifyTimeout,
		MaxRetries: uint64(cfg.NotifyMaxRetries),
	}, logr.Named("publisher"))

	coordinator := services.NewCoordinator(members, guard, connections, invites, authz, publisher,
		services.CoordinatorConfig{StoreTimeout: cfg.StoreTimeout, MaxRetries: 3},
		logr.Named("coordinator"))

	teamHandler := handlers.NewTeamHandler(coordinator, logr)
	departmentHandler := handlers.NewDepartmentHandler(coordinator, logr)
	projectHandler := handlers.NewProjectHandler(coordinator, logr)
	inviteHandler := handlers.NewInviteHandler(coordinator, logr)
	connectionHandler := handlers.NewConnectionHandler(coordinator, logr)
	sseHandler := handlers.NewSSEHandler(eventHub, coordinator, logr)

	app := drift.New()

	if cfg.IsProduction() {
		app.SetMode(drift.ReleaseMode)
	} else {
		app.SetMode(drift.DebugMode)
	}

	app.Use(middleware.Recovery())
	app.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization"},
		MaxAge:       86400,
	}))
	app.Use(middleware.BodyParser())

	api := app.Group("/api/v1")

	api.Get("/health", func(c *drift.Context) {
		_ = c.JSON(200, map[string]string{"status": "ok"})
	})
	api.Get("/invites/:code", inviteHandler.Resolve)

	protected := api.Group("")
	protected.Use(authmw.Auth(jwtService, userService, logr))

	protected.Get("/teams", teamHandler.List)
	protected.Post("/teams", teamHandler.Create)
	protected.Get("/teams/:id", teamHandler.Get)
	protected.Patch("/teams/:id", teamHandler.Update)
	protected.Delete("/teams/:id", teamHandler.Delete)
	protected.Post("/teams/:id/transfer", teamHandler.TransferOwnership)
	protected.Post("/teams/:id/leave", teamHandler.Leave)
	protected.Get("/teams/:id/members", teamHandler.ListMembers)
	protected.Post("/teams/:id/members", teamHandler.AddMember)
	protected.Patch("/teams/:id/members/:userId", teamHandler.ChangeRole)
	protected.Patch("/teams/:id/members/:userId/tags", teamHandler.SetTags)
	protected.Delete("/teams/:id/members/:userId", teamHandler.RemoveMember)

	protected.Get("/teams/:id/invites", inviteHandler.List)
	protected.Post("/teams/:id/invites", inviteHandler.Create)
	protected.Delete("/teams/:id/invites/:inviteId", inviteHandler.Revoke)
	protected.Post("/invites/:code/accept", inviteHandler.Accept)

	protected.Get("/teams/:id/departments", departmentHandler.List)
	protected.Post("/teams/:id/departments", departmentHandler.Create)
	protected.Get("/departments/:id", departmentHandler.Get)
	protected.Patch("/departments/:id", departmentHandler.Update)
	protected.Delete("/departments/:id", departmentHandler.Delete)
	protected.Get("/departments/:id/members", departmentHandler.ListMembers)
	protected.Post("/departments/:id/members", departmentHandler.AddMember)
	protected.Patch("/departments/:id/members/:userId", departmentHandler.ChangeRole)
	protected.Delete("/departments/:id/members/:userId", departmentHandler.RemoveMember)

	protected.Post("/projects", projectHandler.Create)
	protected.Get("/projects/:id", projectHandler.Get)
	protected.Delete("/projects/:id", projectHandler.Delete)
	protected.Post("/projects/:id/transfer", projectHandler.TransferOwnership)
	protected.Get("/projects/:id/members", projectHandler.ListMembers)
	protected.Post("/projects/:id/members", projectHandler.AddMember)
	protected.Patch("/projects/:id/members/:userId", projectHandler.ChangeRole)
	protected.Delete("/projects/:id/members/:userId", projectHandler.RemoveMember)

	protected.Get("/connections", connectionHandler.List)
	protected.Delete("/connections/:id", connectionHandler.Remove)
	protected.Get("/connections/status/:userId", connectionHandler.Status)
	protected.Get("/connections/requests", connectionHandler.ListPending)
	protected.Post("/connections/requests", connectionHandler.SendRequest)
	protected.Post("/connections/requests/:id/accept", connectionHandler.AcceptRequest)
	protected.Post("/connections/requests/:id/reject", connectionHandler.RejectRequest)
	protected.Post("/connections/requests/:id/cancel", connectionHandler.CancelRequest)

	protected.Get("/events", sseHandler.Connect)
	protected.Post("/events/:clientId/subscribe", sseHandler.Subscribe)
	protected.Post("/events/:clientId/unsubscribe", sseHandler.Unsubscribe)

	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		for range ticker.C {
			jobCtx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			if _, err := guard.ReconcileAll(jobCtx); err != nil {
				logr.Warn("ownership sweep failed", zap.Error(err))
			}
			if _, err := connections.PurgeTerminalRequests(jobCtx, time.Now().Add(-cfg.RequestRetention)); err != nil {
				logr.Warn("request purge failed", zap.Error(err))
			}
			cancel()
		}
	}()

	go func() {
		addr := fmt.Sprintf(":%s", cfg.Port)
		logr.Info("server starting", zap.String("addr", addr))
		if err := app.Run(addr); err != nil {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logr.Info("shutting down server")
	publisher.Close()
}
