// Package guestcfg mirrors the server's guest-facing defaults: the default
// preference bundle applied to new guest sessions and the per-service
// prefill configuration. The mirror is read-mostly; mutations go through
// the API and the authoritative values come back over the push channel.
package guestcfg

import (
	"context"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/lancache-tools/lancachectl/internal/domain/session"
	"github.com/lancache-tools/lancachectl/internal/infrastructure/pubsub"
	"github.com/lancache-tools/lancachectl/internal/infrastructure/push"
	apperrors "github.com/lancache-tools/lancachectl/internal/shared/errors"
	"github.com/lancache-tools/lancachectl/internal/shared/logger"
)

// API is the slice of the manager API the store consumes.
type API interface {
	GetGuestDefaults(ctx context.Context) (*session.GuestDefaults, error)
	PatchGuestDefaults(ctx context.Context, patch map[string]any) error
	PutAllowedTimeFormats(ctx context.Context, formats []string) error
	GetPrefillConfig(ctx context.Context, service session.Service) (*session.PrefillConfig, error)
	SetPrefillConfig(ctx context.Context, cfg session.PrefillConfig) error
}

// Store holds the mirrored guest configuration.
type Store struct {
	api      API
	log      logger.Interface
	validate *validator.Validate

	mu       sync.RWMutex
	loaded   bool
	defaults session.GuestDefaults
	prefill  map[session.Service]session.PrefillConfig
}

// NewStore creates an empty store.
func NewStore(api API, log logger.Interface) *Store {
	return &Store{
		api:      api,
		log:      log.Named("guestcfg"),
		validate: validator.New(),
		prefill:  make(map[session.Service]session.PrefillConfig),
	}
}

// Init fetches the guest defaults and every per-service prefill
// configuration. A missing prefill configuration for one service is not
// fatal; that service simply stays unconfigured until a push arrives.
func (s *Store) Init(ctx context.Context) error {
	defaults, err := s.api.GetGuestDefaults(ctx)
	if err != nil {
		return err
	}

	prefill := make(map[session.Service]session.PrefillConfig, len(session.Services))
	for _, svc := range session.Services {
		cfg, err := s.api.GetPrefillConfig(ctx, svc)
		if err != nil {
			if apperrors.IsNotFoundError(err) {
				continue
			}
			return err
		}
		prefill[svc] = *cfg
	}

	s.mu.Lock()
	s.defaults = cloneDefaults(*defaults)
	s.prefill = prefill
	s.loaded = true
	s.mu.Unlock()
	return nil
}

// Loaded reports whether Init has completed.
func (s *Store) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// Defaults returns a copy of the mirrored guest default bundle.
func (s *Store) Defaults() session.GuestDefaults {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneDefaults(s.defaults)
}

// PrefillConfig returns the mirrored configuration for one service.
func (s *Store) PrefillConfig(service session.Service) (session.PrefillConfig, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cfg, ok := s.prefill[service]
	return cfg, ok
}

// UpdateDefaults sends a partial update of the guest defaults and applies it
// to the mirror on success. The push event that follows carries the full
// authoritative bundle and overwrites whatever this applied.
func (s *Store) UpdateDefaults(ctx context.Context, patch map[string]any) error {
	if err := s.api.PatchGuestDefaults(ctx, patch); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for key, value := range patch {
		switch key {
		case "theme":
			if v, ok := value.(string); ok {
				theme := v
				s.defaults.Theme = &theme
			}
		case "refreshRate":
			if v, ok := value.(string); ok {
				s.defaults.RefreshRate = v
			}
		case "refreshRateLocked":
			if v, ok := value.(bool); ok {
				s.defaults.RefreshRateLocked = v
			}
		}
	}
	return nil
}

// SetAllowedTimeFormats replaces the default time format set. An empty set
// is rejected locally; the server enforces the same rule.
func (s *Store) SetAllowedTimeFormats(ctx context.Context, formats []string) error {
	if len(formats) == 0 {
		return apperrors.NewValidationError("at least one time format is required")
	}
	if err := s.api.PutAllowedTimeFormats(ctx, formats); err != nil {
		return err
	}

	s.mu.Lock()
	s.defaults.AllowedTimeFormats = append([]string(nil), formats...)
	s.mu.Unlock()
	return nil
}

// SetPrefillConfig validates and writes a per-service prefill configuration,
// mirroring it on success.
func (s *Store) SetPrefillConfig(ctx context.Context, cfg session.PrefillConfig) error {
	if err := s.validate.Struct(cfg); err != nil {
		return apperrors.NewValidationError("invalid prefill configuration", err.Error())
	}
	if err := s.api.SetPrefillConfig(ctx, cfg); err != nil {
		return err
	}

	s.mu.Lock()
	s.prefill[cfg.Service] = cfg
	s.mu.Unlock()
	return nil
}

// Bind subscribes the store to the push events that carry authoritative
// configuration and returns a teardown function.
func (s *Store) Bind(bus *pubsub.Bus) func() {
	unsubs := []func(){
		bus.Subscribe(push.EventDefaultGuestPreferencesChanged, func(p any) {
			if defaults, ok := p.(session.GuestDefaults); ok {
				s.mu.Lock()
				s.defaults = cloneDefaults(defaults)
				s.mu.Unlock()
			}
		}),
		bus.Subscribe(push.EventAllowedTimeFormatsChanged, func(p any) {
			if ev, ok := p.(push.AllowedTimeFormatsChanged); ok {
				s.mu.Lock()
				s.defaults.AllowedTimeFormats = append([]string(nil), ev.AllowedTimeFormats...)
				s.mu.Unlock()
			}
		}),
		bus.Subscribe(push.EventGuestPrefillConfigChanged, func(p any) {
			s.applyPrefillConfig(p, session.ServiceSteam)
		}),
		bus.Subscribe(push.EventEpicGuestPrefillConfigChanged, func(p any) {
			s.applyPrefillConfig(p, session.ServiceEpic)
		}),
		bus.Subscribe(push.EventGuestRefreshRateUpdated, func(p any) {
			if ev, ok := p.(push.GuestRefreshRateUpdated); ok {
				s.mu.Lock()
				s.defaults.RefreshRate = ev.RefreshRate
				s.defaults.RefreshRateLocked = ev.Locked
				s.mu.Unlock()
			}
		}),
	}

	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}

// applyPrefillConfig stores a pushed configuration. Older servers omit the
// service field on the payload; the event name disambiguates.
func (s *Store) applyPrefillConfig(p any, fallback session.Service) {
	cfg, ok := p.(session.PrefillConfig)
	if !ok {
		return
	}
	if cfg.Service == "" {
		cfg.Service = fallback
	}

	s.mu.Lock()
	s.prefill[cfg.Service] = cfg
	s.mu.Unlock()
}

func cloneDefaults(d session.GuestDefaults) session.GuestDefaults {
	out := d
	if d.Theme != nil {
		theme := *d.Theme
		out.Theme = &theme
	}
	if d.AllowedTimeFormats != nil {
		out.AllowedTimeFormats = append([]string(nil), d.AllowedTimeFormats...)
	}
	return out
}
