// Package di provides dependency injection wiring and initialization.
package di

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/modelgate/internal/config"
)

// Wire initializes all dependencies and returns a fully configured container
// plus the scheduled job instances.
//
// Order of operations:
//  1. Open and migrate databases
//  2. Create repositories, clients, and services
//  3. Register cross-module event subscribers
//  4. Create job instances
func Wire(cfg *config.Config, log zerolog.Logger) (*Container, *JobInstances, error) {
	container, err := InitializeDatabases(cfg, log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize databases: %w", err)
	}

	if err := InitializeServices(container, cfg, log); err != nil {
		container.Close()
		return nil, nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	RegisterSubscribers(container, log)

	jobs := InitializeJobs(container, cfg, log)

	return container, jobs, nil
}
