package httptransport

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/loginjs/loginjs/internal/token"
	"github.com/loginjs/loginjs/internal/transport/http/handler"
	"github.com/loginjs/loginjs/internal/transport/http/middleware"

	sloggin "github.com/samber/slog-gin"
)

func NewRouter(logger *slog.Logger, authHandler *handler.AuthHandler, tokens *token.Service) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Security())
	r.Use(sloggin.New(logger))
	r.Use(middleware.Metrics())

	r.POST("/register", authHandler.Register)
	r.POST("/login", authHandler.Login)
	r.GET("/verify-email", authHandler.VerifyEmail)
	r.POST("/forgot-password", authHandler.ForgotPassword)
	r.POST("/reset-password", authHandler.ResetPassword)

	// Session-protected routes
	r.GET("/account", middleware.Auth(tokens), authHandler.Account)

	return r
}
