package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"toolroute/internal/catalog"
	"toolroute/internal/domain"
)

// Publisher receives the full capability set after every registry change.
// engine.Engine satisfies it.
type Publisher interface {
	RegisterCapabilities(descs []domain.CapabilityDescriptor) error
}

// PublisherFunc adapts a plain function, such as catalog.Catalog.Register,
// to Publisher.
type PublisherFunc func(descs []domain.CapabilityDescriptor) error

// RegisterCapabilities calls f(descs).
func (f PublisherFunc) RegisterCapabilities(descs []domain.CapabilityDescriptor) error {
	return f(descs)
}

// Registry validates descriptors, persists them, and republishes the whole
// set so the routing catalog always mirrors the database.
type Registry struct {
	store     *Store
	publisher Publisher
	logger    *slog.Logger
}

// New creates a Registry over store. publisher may be nil.
func New(store *Store, publisher Publisher, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{store: store, publisher: publisher, logger: logger}
}

// Add validates and stores d, then republishes.
func (r *Registry) Add(ctx context.Context, d domain.CapabilityDescriptor) error {
	norm, err := catalog.Normalize(d)
	if err != nil {
		return err
	}
	if err := r.store.Put(ctx, norm); err != nil {
		return err
	}
	r.logger.Info("capability stored", "server_id", norm.ServerID, "category", norm.Category)
	return r.Sync(ctx)
}

// Import stores every valid descriptor in descs and republishes once.
// Invalid descriptors are skipped and reported in the joined error.
func (r *Registry) Import(ctx context.Context, descs []domain.CapabilityDescriptor) (int, error) {
	var errs []error
	stored := 0
	for _, d := range descs {
		norm, err := catalog.Normalize(d)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := r.store.Put(ctx, norm); err != nil {
			return stored, err
		}
		stored++
	}
	if err := r.Sync(ctx); err != nil {
		errs = append(errs, err)
	}
	r.logger.Info("capabilities imported", "stored", stored, "rejected", len(descs)-stored)
	return stored, errors.Join(errs...)
}

// Remove deletes the capability stored under serverID and republishes.
func (r *Registry) Remove(ctx context.Context, serverID string) error {
	if err := r.store.Delete(ctx, serverID); err != nil {
		return err
	}
	r.logger.Info("capability removed", "server_id", serverID)
	return r.Sync(ctx)
}

// List returns the stored descriptors.
func (r *Registry) List(ctx context.Context) ([]domain.CapabilityDescriptor, error) {
	return r.store.List(ctx)
}

// Sync publishes the stored set to the publisher.
func (r *Registry) Sync(ctx context.Context) error {
	if r.publisher == nil {
		return nil
	}
	descs, err := r.store.List(ctx)
	if err != nil {
		return fmt.Errorf("list capabilities: %w", err)
	}
	return r.publisher.RegisterCapabilities(descs)
}
