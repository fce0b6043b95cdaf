// Package app provides application initialization and dependency injection.
package app

import (
	"github.com/gin-gonic/gin"
	"github.com/guttosm/sortline-service/config"
	"github.com/guttosm/sortline-service/internal/http"
	"github.com/guttosm/sortline-service/internal/repository"
)

// InitializeApp creates and wires all application dependencies.
// This is the main orchestration function that initializes all components.
func InitializeApp(cfg config.Config) *gin.Engine {
	// Initialize logger first (needed by other components)
	InitializeLogger()

	// Initialize database components; a nil result means MongoDB is
	// disabled or unreachable and the in-memory store takes over.
	dbComponents := InitializeDatabase(cfg.Database)

	var store *repository.Store
	if dbComponents != nil {
		store = dbComponents.Store
	} else {
		store, _ = repository.NewMemoryStoreSet()
	}

	// Initialize the scan engine and sibling services
	serviceComponents := InitializeServices(cfg, store)

	// Initialize router components (handlers and configuration)
	routerComponents := InitializeRouter(serviceComponents, dbComponents, cfg)

	return http.NewRouter(routerComponents.Handler, routerComponents.HealthHandler, routerComponents.Config)
}
