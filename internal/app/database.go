// Package app provides database initialization and setup.
package app

import (
	"context"

	"github.com/guttosm/sortline-service/config"
	"github.com/guttosm/sortline-service/internal/circuitbreaker"
	"github.com/guttosm/sortline-service/internal/repository"
	"github.com/guttosm/sortline-service/internal/service"
	"github.com/rs/zerolog/log"
)

// DatabaseComponents holds database-related components.
type DatabaseComponents struct {
	DB                         *repository.MongoDB
	Store                      *repository.Store
	LoggingService             service.LoggingService
	RequirementsCircuitBreaker *circuitbreaker.CircuitBreaker
	LogsCircuitBreaker         *circuitbreaker.CircuitBreaker
}

// InitializeDatabase initializes the MongoDB connection and builds the
// MongoDB-backed repository set. Returns nil if the database is
// disabled or the connection fails; the caller falls back to the
// in-memory store.
func InitializeDatabase(cfg config.DatabaseConfig) *DatabaseComponents {
	if !cfg.Enabled {
		return nil
	}

	db, err := repository.NewMongoDB(cfg.URI, cfg.DatabaseName)
	if err != nil {
		log.Error().Err(err).Msg("Failed to connect to MongoDB - continuing with in-memory store")
		return nil
	}

	log.Info().Msg("Connected to MongoDB")

	// Set TTL for logs
	ttlDays := int(cfg.LogsTTL.Hours() / 24)
	if err := db.SetLogsTTL(context.Background(), ttlDays); err != nil {
		log.Warn().Err(err).Msg("Failed to set logs TTL index (may already exist)")
	}

	// Initialize circuit breakers
	requirementsCB := circuitbreaker.New(circuitbreaker.Config{
		FailureThreshold: cfg.CircuitBreakerFailureThreshold,
		SuccessThreshold: cfg.CircuitBreakerSuccessThreshold,
		Timeout:          cfg.CircuitBreakerTimeout,
		Name:             "mongodb-requirements",
	})

	logsCB := circuitbreaker.New(circuitbreaker.Config{
		FailureThreshold: cfg.CircuitBreakerFailureThreshold,
		SuccessThreshold: cfg.CircuitBreakerSuccessThreshold,
		Timeout:          cfg.CircuitBreakerTimeout,
		Name:             "mongodb-logs",
	})

	// Initialize repositories. The requirement repository sits on every
	// scan's hot path and runs behind the circuit breaker.
	requirementsRepo := repository.NewRequirementRepositoryWithCircuitBreaker(
		repository.NewRequirementRepository(db), requirementsCB)

	store := &repository.Store{
		Jobs:         repository.NewJobRepository(db),
		Requirements: requirementsRepo,
		Sessions:     repository.NewSessionRepository(db),
		Assignments:  repository.NewAssignmentRepository(db),
		Events:       repository.NewEventRepository(db),
		PutAside:     repository.NewPutAsideRepository(db),
		Checks:       repository.NewCheckRepository(db),
	}

	logsRepo := repository.NewLogsRepository(db)
	logsRepoWithCB := repository.NewLogsRepositoryWithCircuitBreaker(logsRepo, logsCB)
	loggingService := service.NewLoggingService(logsRepoWithCB)

	return &DatabaseComponents{
		DB:                         db,
		Store:                      store,
		LoggingService:             loggingService,
		RequirementsCircuitBreaker: requirementsCB,
		LogsCircuitBreaker:         logsCB,
	}
}
