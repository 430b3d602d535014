package services

import (
	"context"
	"slices"
	"strings"
	"sync"

	"alfredoptarigan/cv-screener/internal/logger"
)

const CapabilityGenerateContent = "generateContent"

// ModelSelector decides which model answers a scoring request.
type ModelSelector interface {
	Select(ctx context.Context) (string, error)
}

// StaticSelector always returns the configured model.
type StaticSelector struct {
	Model string
}

func (s StaticSelector) Select(context.Context) (string, error) {
	return s.Model, nil
}

// CatalogSelector picks the first catalog model matching the earliest
// preference. The choice is cached for the life of the selector.
type CatalogSelector struct {
	Catalog     ModelCatalog
	Capability  string
	Preferences []string
	Fallback    string
	Log         *logger.Logger

	mu     sync.Mutex
	chosen string
}

func (s *CatalogSelector) Select(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.chosen != "" {
		return s.chosen, nil
	}

	log := s.Log
	if log == nil {
		log = logger.Nop()
	}

	available, err := s.Catalog.ListModels(ctx)
	if err != nil {
		log.Warn("model catalog unavailable, using fallback", "fallback", s.Fallback, "error", err)
		return s.Fallback, nil
	}

	capability := s.Capability
	if capability == "" {
		capability = CapabilityGenerateContent
	}
	var names []string
	for _, m := range available {
		if len(m.Actions) == 0 || slices.Contains(m.Actions, capability) {
			names = append(names, m.Name)
		}
	}

	s.chosen = pickModel(names, s.Preferences, s.Fallback)
	log.Info("scoring model selected", "model", s.chosen, "candidates", len(names))
	return s.chosen, nil
}

func pickModel(names, preferences []string, fallback string) string {
	for _, pref := range preferences {
		pref = strings.ToLower(pref)
		for _, name := range names {
			if strings.Contains(strings.ToLower(name), pref) {
				return name
			}
		}
	}
	if len(names) > 0 && fallback == "" {
		return names[0]
	}
	return fallback
}
