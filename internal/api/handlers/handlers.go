package handlers

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/frostdev-ops/eventstats-backend-go/internal/config"
	"github.com/frostdev-ops/eventstats-backend-go/internal/core/charts"
	"github.com/frostdev-ops/eventstats-backend-go/internal/core/dashboard"
	"github.com/frostdev-ops/eventstats-backend-go/internal/core/media"
	"github.com/frostdev-ops/eventstats-backend-go/internal/core/metrics"
	"github.com/frostdev-ops/eventstats-backend-go/internal/websocket"
)

// StatPublisher applies a statistic change and notifies live viewers
type StatPublisher interface {
	HandleStatUpdate(ctx context.Context, projectID, statKey string, value interface{}) (*dashboard.StatUpdateResult, error)
}

// Dependencies are the services the handlers serve from
type Dependencies struct {
	Config    *config.Config
	Manager   *dashboard.Manager
	Registry  *charts.Registry
	Hub       *websocket.Hub
	Health    *metrics.HealthChecker
	Inspector *media.Inspector
	Logger    *logrus.Logger
}

// Handlers holds all HTTP handlers and their dependencies
type Handlers struct {
	cfg       *config.Config
	manager   *dashboard.Manager
	registry  *charts.Registry
	charts    *charts.Validator
	layouts   *validator.Validate
	publisher StatPublisher
	hub       *websocket.Hub
	health    *metrics.HealthChecker
	inspector *media.Inspector
	log       *logrus.Logger
}

// NewHandlers creates a new handlers instance
func NewHandlers(deps Dependencies) *Handlers {
	registry := deps.Registry
	if registry == nil {
		registry = charts.NewDefaultRegistry(deps.Logger)
	}
	inspector := deps.Inspector
	if inspector == nil {
		inspector = media.NewInspector(media.DefaultMaxBytes, deps.Logger)
	}
	health := deps.Health
	if health == nil {
		health = metrics.NewHealthChecker(0)
	}

	h := &Handlers{
		cfg:       deps.Config,
		manager:   deps.Manager,
		registry:  registry,
		charts:    charts.NewValidator(registry),
		layouts:   validator.New(),
		hub:       deps.Hub,
		health:    health,
		inspector: inspector,
		log:       deps.Logger,
	}

	// Without a hub, updates are applied but nobody is notified
	if deps.Hub != nil {
		h.publisher = deps.Hub
	} else {
		h.publisher = managerPublisher{deps.Manager}
	}
	return h
}

type managerPublisher struct {
	manager *dashboard.Manager
}

func (p managerPublisher) HandleStatUpdate(ctx context.Context, projectID, statKey string, value interface{}) (*dashboard.StatUpdateResult, error) {
	return p.manager.ApplyStatUpdate(ctx, projectID, statKey, value)
}
