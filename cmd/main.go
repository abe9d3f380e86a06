// cmd/main.go
package main

import (
	"go-auth-api/app"
)

// @title           Go-Auth API
// @version         1.0
// @description     Email and password authentication with rotating JWT refresh tokens.

// @host      localhost:8080
// @BasePath  /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	app.Run()
}
