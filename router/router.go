package router

import (
	"net/http"

	_ "go-auth-api/docs"
	"go-auth-api/handler"

	httpSwagger "github.com/swaggo/http-swagger/v2"
)

func NewRouter(authHandler *handler.AuthHandler, accessGuard, refreshGuard *handler.TokenGuard) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", handler.HealthCheck)
	mux.Handle("GET /swagger/", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	mux.Handle("POST /auth/local/signup", handler.ErrorHandlingMiddleware(authHandler.Signup))
	mux.Handle("POST /auth/local/signin", handler.ErrorHandlingMiddleware(authHandler.Signin))

	mux.Handle("GET /auth/logout", accessGuard.Middleware(handler.ErrorHandlingMiddleware(authHandler.Logout)))
	mux.Handle("GET /auth/refresh", refreshGuard.Middleware(handler.ErrorHandlingMiddleware(authHandler.Refresh)))

	return mux
}
