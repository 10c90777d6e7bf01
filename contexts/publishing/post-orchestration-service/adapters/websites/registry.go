package websites

import (
	"log/slog"
	"sort"
	"strings"
	"sync"

	"crosspost/contexts/publishing/post-orchestration-service/ports"
)

// Registry maps a destination name to its implementation. Names are case-insensitive.
type Registry struct {
	mu     sync.RWMutex
	sites  map[string]ports.Website
	logger *slog.Logger
}

func NewRegistry(logger *slog.Logger, sites ...ports.Website) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{
		sites:  make(map[string]ports.Website, len(sites)),
		logger: logger,
	}
	for _, site := range sites {
		r.Register(site)
	}
	return r
}

func (r *Registry) Register(site ports.Website) {
	if site == nil {
		return
	}
	name := normalizeName(site.Name())
	_, fileCapable := site.(ports.FileCapable)
	_, messageCapable := site.(ports.MessageCapable)

	r.mu.Lock()
	r.sites[name] = site
	r.mu.Unlock()

	r.logger.Info("website registered",
		"event", "website_registered",
		"module", "publishing/post-orchestration-service",
		"layer", "adapter",
		"website", name,
		"file_capable", fileCapable,
		"message_capable", messageCapable,
	)
}

func (r *Registry) Lookup(website string) (ports.Website, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	site, ok := r.sites[normalizeName(website)]
	return site, ok
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.sites))
	for name := range r.sites {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

var _ ports.WebsiteRegistry = (*Registry)(nil)
