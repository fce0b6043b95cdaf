// Package app provides service initialization.
package app

import (
	"github.com/guttosm/sortline-service/config"
	"github.com/guttosm/sortline-service/internal/broadcast"
	"github.com/guttosm/sortline-service/internal/repository"
	"github.com/guttosm/sortline-service/internal/service"
)

// ServiceComponents holds service-related components.
type ServiceComponents struct {
	Hub      *broadcast.Hub
	Scans    *service.ScanService
	PutAside *service.PutAsideService
	Checks   *service.CheckCountService
	Jobs     *service.JobService
}

// InitializeServices builds the scan engine and its sibling services
// on top of the given repository set.
func InitializeServices(cfg config.Config, store *repository.Store) *ServiceComponents {
	buffer := cfg.Broadcast.SubscriberBuffer
	if buffer <= 0 {
		buffer = 64
	}
	hub := broadcast.NewHub(buffer)

	var jobOpts []service.JobOption
	if cfg.Engine.ProgressCacheSize > 0 {
		jobOpts = append(jobOpts, service.WithProgressCache(cfg.Engine.ProgressCacheSize, cfg.Engine.ProgressCacheTTL))
	}
	jobs := service.NewJobService(store, jobOpts...)

	// Every mutating service publishes through the wrapper, which drops
	// the job's cached progress snapshot before fanning out.
	publisher := jobs.WrapPublisher(hub)

	var scanOpts []service.ScanOption
	if cfg.Engine.MaxWorkersPerJob > 0 {
		scanOpts = append(scanOpts, service.WithMaxWorkers(cfg.Engine.MaxWorkersPerJob))
	}
	if len(cfg.Engine.WorkerColors) > 0 {
		scanOpts = append(scanOpts, service.WithWorkerColors(cfg.Engine.WorkerColors))
	}
	scans := service.NewScanService(store, publisher, scanOpts...)

	return &ServiceComponents{
		Hub:      hub,
		Scans:    scans,
		PutAside: service.NewPutAsideService(store, publisher, scans),
		Checks:   service.NewCheckCountService(store, publisher, scans),
		Jobs:     jobs,
	}
}
