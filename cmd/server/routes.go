package main

import (
	"github.com/gin-gonic/gin"
	"github.com/onboardhub/backend/internal/handlers"
	"github.com/onboardhub/backend/internal/middleware"
	"github.com/onboardhub/backend/pkg/logger"
)

// registerRoutes sets up all HTTP routes on the given Gin engine.
func registerRoutes(r *gin.Engine, svc *appServices) {
	// Middleware
	r.Use(logger.GinLogger(), logger.GinRecovery())
	r.RedirectTrailingSlash = false
	r.RedirectFixedPath = false
	r.Use(middleware.CORS(), middleware.Prometheus())

	// Rate limiter for code redemption and invitation acceptance
	joinLimiter := middleware.NewRateLimiter(svc.cfg.Invite.JoinRPS, svc.cfg.Invite.JoinBurst)
	inFlight := middleware.NewInFlight()

	healthHandler := handlers.NewHealthHandler(svc.db, svc.taskQueue, svc.events)
	r.GET("/health", healthHandler.CheckHealth)
	r.GET("/metrics", handlers.Metrics(svc.db))

	// Serverless-compatible invite code endpoint, authenticates internally
	inviteCodeHandler := handlers.NewInviteCodeHandler(svc.inviteCodes)
	r.Any("/functions/v1/invite-code", joinLimiter.Middleware(), inviteCodeHandler.Function)

	api := r.Group("/api")
	{
		// Auth routes (public)
		authHandler := handlers.NewAuthHandler(svc.db, &svc.cfg.JWT)
		auth := api.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
		}

		// SSE Events (public route with internal token validation)
		sseHandler := handlers.NewSSEHandler(svc.db, svc.events)
		api.GET("/events/courses", sseHandler.StreamCourseEvents)

		// Protected routes
		protected := api.Group("")
		protected.Use(middleware.AuthRequired(), middleware.AuditLog(), inFlight.Middleware())
		{
			protected.GET("/auth/me", authHandler.GetCurrentUser)
			protected.PUT("/auth/me", authHandler.UpdateCurrentUser)

			// Projects
			projectHandler := handlers.NewProjectHandler(svc.projects, svc.courses)
			protected.GET("/projects", projectHandler.List)
			protected.POST("/projects", projectHandler.Create)
			protected.POST("/projects/preview-course", projectHandler.PreviewCourse)
			protected.GET("/projects/:id", projectHandler.GetByID)
			protected.PUT("/projects/:id", projectHandler.Update)
			protected.DELETE("/projects/:id", projectHandler.Delete)

			// Members and invitations
			memberHandler := handlers.NewMemberHandler(svc.members)
			protected.GET("/projects/:id/members", memberHandler.List)
			protected.DELETE("/projects/:id/membership", memberHandler.Leave)
			protected.POST("/projects/:id/invitations", memberHandler.Invite)
			protected.PUT("/members/:memberId", memberHandler.ChangeRole)
			protected.DELETE("/members/:memberId", memberHandler.Remove)
			protected.POST("/invitations/accept", joinLimiter.Middleware(), memberHandler.Accept)
			protected.DELETE("/invitations/:invitationId", memberHandler.CancelInvitation)

			// Invite codes
			protected.GET("/projects/:id/invite-codes", inviteCodeHandler.List)
			protected.POST("/projects/:id/invite-codes", inviteCodeHandler.Generate)
			protected.POST("/invite-codes/join", joinLimiter.Middleware(), inviteCodeHandler.Join)
			protected.DELETE("/invite-codes/:codeId", inviteCodeHandler.Revoke)

			// Course
			courseHandler := handlers.NewCourseHandler(svc.courses)
			protected.GET("/projects/:id/course", courseHandler.Get)
			protected.DELETE("/projects/:id/course", courseHandler.Delete)
			protected.POST("/projects/:id/course/regenerate", courseHandler.Regenerate)
			protected.POST("/projects/:id/course/generate", courseHandler.Generate)

			// Documentation
			documentationHandler := handlers.NewDocumentationHandler(svc.db)
			protected.GET("/projects/:id/documentation", documentationHandler.Get)
			protected.PUT("/projects/:id/documentation", documentationHandler.Upsert)

			// Audit logs
			systemLogHandler := handlers.NewSystemLogHandler(svc.db)
			protected.GET("/projects/:id/logs", systemLogHandler.List)
		}
	}
}
