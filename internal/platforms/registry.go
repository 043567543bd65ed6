package platforms

import (
	"github.com/socialsync/socialsync/internal/config"
	"github.com/socialsync/socialsync/internal/errors"
	"github.com/socialsync/socialsync/internal/models"
)

// Registry maps platforms to adapters. It is built once at startup and
// read-only afterwards.
type Registry struct {
	adapters map[models.Platform]Adapter
}

// NewRegistry builds the production adapters for every platform. Adapters
// are registered even without client credentials so stored accounts can
// still be read; connect fails upstream in that case.
func NewRegistry(cfg config.PlatformsConfig, client *Client) *Registry {
	fb := NewFacebook(cfg.Facebook, client)
	return NewRegistryFrom(
		NewTwitter(cfg.Twitter, client),
		NewLinkedIn(cfg.LinkedIn, client),
		fb,
		NewInstagram(cfg.Instagram, client, fb),
	)
}

// NewRegistryFrom registers the given adapters; a later adapter replaces an
// earlier one for the same platform.
func NewRegistryFrom(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[models.Platform]Adapter, len(adapters))}
	for _, a := range adapters {
		if a != nil {
			r.adapters[a.Platform()] = a
		}
	}
	return r
}

// Get returns the adapter for p.
func (r *Registry) Get(p models.Platform) (Adapter, bool) {
	a, ok := r.adapters[p]
	return a, ok
}

// ByName parses name and returns its adapter, or ErrUnsupportedPlatform.
func (r *Registry) ByName(name string) (Adapter, error) {
	p, ok := models.ParsePlatform(name)
	if !ok {
		return nil, &errors.ErrUnsupportedPlatform{Platform: name}
	}
	a, ok := r.adapters[p]
	if !ok {
		return nil, &errors.ErrUnsupportedPlatform{Platform: name}
	}
	return a, nil
}

// Platforms lists the registered platforms in display order.
func (r *Registry) Platforms() []models.Platform {
	out := make([]models.Platform, 0, len(r.adapters))
	for _, p := range models.Platforms {
		if _, ok := r.adapters[p]; ok {
			out = append(out, p)
		}
	}
	return out
}
