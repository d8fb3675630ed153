// SPDX-FileCopyrightText: 2025 The quarry Authors
// SPDX-License-Identifier: Apache-2.0

package source

import (
	"context"
	"sync"

	"github.com/glowdash/quarry/model"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// ConfigResolver resolves a source ID to its configuration. The registry
// below is the in-process implementation; a persistence-backed one can be
// swapped in without touching the service.
type ConfigResolver interface {
	Resolve(ctx context.Context, sourceID string) (model.SourceConfig, error)
}

// Registry is a process-wide store of source configurations.
type Registry struct {
	lock     sync.RWMutex
	configs  map[string]model.SourceConfig
	validate *validator.Validate
}

func NewRegistry() *Registry {
	return &Registry{
		configs:  make(map[string]model.SourceConfig),
		validate: validator.New(),
	}
}

// Create validates and stores a new source configuration, assigning an ID
// when the caller supplied none.
func (r *Registry) Create(cfg model.SourceConfig) (model.SourceConfig, error) {
	if cfg.ID == "" {
		cfg.ID = uuid.NewString()
	}
	if err := r.validate.Struct(cfg); err != nil {
		return model.SourceConfig{}, BadRequestErr{Message: err.Error()}
	}

	r.lock.Lock()
	defer r.lock.Unlock()
	r.configs[cfg.ID] = cfg
	return cfg, nil
}

// Set validates and stores a configuration under an explicit ID,
// overwriting any previous version.
func (r *Registry) Set(id string, cfg model.SourceConfig) (model.SourceConfig, error) {
	cfg.ID = id
	if err := r.validate.Struct(cfg); err != nil {
		return model.SourceConfig{}, BadRequestErr{Message: err.Error()}
	}

	r.lock.Lock()
	defer r.lock.Unlock()
	r.configs[id] = cfg
	return cfg, nil
}

func (r *Registry) Get(id string) (model.SourceConfig, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	cfg, ok := r.configs[id]
	if !ok {
		return model.SourceConfig{}, NotFoundErr{What: "source", ID: id}
	}
	return cfg, nil
}

func (r *Registry) Delete(id string) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	if _, ok := r.configs[id]; !ok {
		return NotFoundErr{What: "source", ID: id}
	}
	delete(r.configs, id)
	return nil
}

// Resolve satisfies ConfigResolver.
func (r *Registry) Resolve(_ context.Context, sourceID string) (model.SourceConfig, error) {
	return r.Get(sourceID)
}
