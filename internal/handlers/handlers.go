package handlers

import (
	"time"

	"ghosthub/internal/categories"
	"ghosthub/internal/events"
	"ghosthub/internal/ghoststream"
	"ghosthub/internal/history"
	"ghosthub/internal/memory"
	"ghosthub/internal/playbackcache"
	"ghosthub/internal/startup"
	"ghosthub/internal/transcode"
)

type Handlers struct {
	client     *ghoststream.Client
	orch       *transcode.Orchestrator
	resolver   *transcode.Resolver
	cache      *playbackcache.Cache
	history    *history.Store
	categories *categories.Store
	hub        *events.Hub
	memMon     *memory.Monitor
	config     *startup.Config
	startedAt  time.Time
}

func New(client *ghoststream.Client, orch *transcode.Orchestrator, resolver *transcode.Resolver,
	cache *playbackcache.Cache, hist *history.Store, cats *categories.Store,
	hub *events.Hub, memMon *memory.Monitor, config *startup.Config) *Handlers {
	return &Handlers{
		client:     client,
		orch:       orch,
		resolver:   resolver,
		cache:      cache,
		history:    hist,
		categories: cats,
		hub:        hub,
		memMon:     memMon,
		config:     config,
		startedAt:  time.Now(),
	}
}
