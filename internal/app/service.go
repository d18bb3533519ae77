package app

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/shrimpsizemoose/gradebook/internal/metrics"
	"github.com/shrimpsizemoose/gradebook/internal/models"
	"github.com/shrimpsizemoose/gradebook/internal/notify"
	"github.com/shrimpsizemoose/gradebook/internal/scoring"
	"github.com/shrimpsizemoose/gradebook/internal/store"
)

var validate = validator.New()

type Service struct {
	Config   *Config
	Store    store.Store
	Notifier notify.Publisher
	Grader   *scoring.Grader
}

func NewService(configPath string) (*Service, error) {
	config, err := LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	store, err := NewStore(config)
	if err != nil {
		return nil, fmt.Errorf("failed to init store: %w", err)
	}

	var notifier notify.Publisher = notify.LogPublisher{}
	if config.Notify.RedisURL != "" {
		notifier, err = notify.NewRedisPublisher(context.Background(), config.Notify.RedisURL, config.Notify.Queue)
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("failed to init notifier: %w", err)
		}
	}

	return NewServiceWith(config, store, notifier), nil
}

// NewServiceWith assembles a service from ready dependencies.
func NewServiceWith(config *Config, store store.Store, notifier notify.Publisher) *Service {
	return &Service{
		Config:   config,
		Store:    store,
		Notifier: notifier,
		Grader:   scoring.NewGrader(config.FinalizePolicy()),
	}
}

func (s *Service) ValidateHeaders(headers map[string][]string) bool {
	for _, required := range s.Config.API.RequiredHeaders {
		value := headers[http.CanonicalHeaderKey(required.Name)]
		if len(value) == 0 || !strings.EqualFold(value[0], required.Value) {
			return false
		}
	}
	return true
}

// notify publishes n after a committed command. Failures are logged and
// counted only.
func (s *Service) notify(ctx context.Context, n models.Notification) {
	if len(n.RecipientIDs) == 0 {
		return
	}
	if err := s.Notifier.Publish(ctx, n); err != nil {
		metrics.NotificationFailures.WithLabelValues(string(n.Type)).Inc()
		logger.Error.Printf("Failed to publish notification %q: %v", n.Title, err)
	}
}

// recipients drops the sender and duplicates from ids.
func recipients(sender string, ids []string) []string {
	seen := map[string]struct{}{sender: {}}
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok || id == "" {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func (s *Service) Close() error {
	var errs []error

	if err := s.Store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("store: %w", err))
	}
	if err := s.Notifier.Close(); err != nil {
		errs = append(errs, fmt.Errorf("notifier: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors while closing: %v", errs)
	}
	return nil
}
