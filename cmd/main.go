// Package main is the entry point for the sortline-service application.
//
// @title           Sortline Service API
// @version         1.0.0
// @description     API for sorting scanned items into customer boxes on a warehouse sortation line.
//
//	This service reconciles barcode scans against box requirements, manages worker
//	sessions and allocation patterns, queues items for unassigned customers, and
//	verifies box contents through check-count sessions.
//
// @termsOfService  http://swagger.io/terms/
//
// @contact.name   API Support
// @contact.email  support@example.com
// @contact.url    https://github.com/guttosm/sortline-service
//
// @license.name  MIT
// @license.url   https://opensource.org/licenses/MIT
//
// @host      localhost:8080
// @BasePath  /
//
// @securityDefinitions.apikey  ApiKeyAuth
// @in                          header
// @name                        X-API-Key
// @description                 API key for authentication. Required if authentication is enabled.
//
// @tag.name        Jobs
// @tag.description Sort job loading and progress
//
// @tag.name        Sessions
// @tag.description Worker session and scan operations
//
// @tag.name        Checks
// @tag.description Box check-count verification
//
// @tag.name        Health
// @tag.description Health check endpoints
package main

import (
	_ "github.com/guttosm/sortline-service/docs" // swagger docs

	"github.com/guttosm/sortline-service/config"
	"github.com/guttosm/sortline-service/internal/app"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg := config.Load()

	router := app.InitializeApp(cfg)
	server := app.NewServer(router, cfg.Server.Port)

	if err := server.Run(); err != nil {
		log.Fatal().Err(err).Msg("Server error")
	}
}
