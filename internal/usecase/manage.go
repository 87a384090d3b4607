package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/gobwas/glob"

	"github.com/i2y/orchestrate/internal/domain"
)

// RemoveUseCase deletes a backend record by name.
type RemoveUseCase struct {
	stores Stores
	logger *slog.Logger
}

func NewRemoveUseCase(stores Stores, logger *slog.Logger) *RemoveUseCase {
	return &RemoveUseCase{stores: stores, logger: logger.With("usecase", "Remove")}
}

// Remove deletes the record called name from the store of kind. It reports
// false without error when no record has that name.
func (uc *RemoveUseCase) Remove(ctx context.Context, kind StoreKind, name string) (bool, error) {
	log := uc.logger.With(slog.String("kind", string(kind)), slog.String("name", name))

	store, err := uc.stores.Store(kind)
	if err != nil {
		return false, err
	}
	drafts, err := store.GetDraftsByNames(ctx, []string{name})
	if err != nil {
		return false, fmt.Errorf("failed to look up %s '%s': %w", entityName(kind), name, err)
	}

	switch len(drafts) {
	case 0:
		log.Warn("Nothing to remove")
		return false, nil
	case 1:
		if err := store.Delete(ctx, drafts[0].ID); err != nil {
			log.Error("Failed to remove", slog.Any("error", err))
			return false, fmt.Errorf("failed to remove %s '%s': %w", entityName(kind), name, err)
		}
		log.Info("Removed", slog.String("id", drafts[0].ID))
		return true, nil
	}
	return false, &domain.ReferenceError{Reason: domain.ReasonAmbiguous, Entity: entityName(kind), Name: name}
}

// ListUseCase lists backend records.
type ListUseCase struct {
	stores Stores
	logger *slog.Logger
}

func NewListUseCase(stores Stores, logger *slog.Logger) *ListUseCase {
	return &ListUseCase{stores: stores, logger: logger.With("usecase", "List")}
}

// List returns the records of the given kinds sorted by name. A non-empty
// filter is a glob the names must match.
func (uc *ListUseCase) List(ctx context.Context, filter string, kinds ...StoreKind) ([]Draft, error) {
	var match glob.Glob
	if filter != "" {
		g, err := glob.Compile(filter)
		if err != nil {
			return nil, &domain.ParameterError{Message: fmt.Sprintf("invalid filter %q: %v", filter, err)}
		}
		match = g
	}

	var out []Draft
	for _, kind := range kinds {
		store, err := uc.stores.Store(kind)
		if err != nil {
			return nil, err
		}
		drafts, err := store.List(ctx)
		if err != nil {
			uc.logger.Error("Failed to list", slog.String("kind", string(kind)), slog.Any("error", err))
			return nil, fmt.Errorf("failed to list %ss: %w", entityName(kind), err)
		}
		for _, d := range drafts {
			if match != nil && !match.Match(d.Name) {
				continue
			}
			d.Kind = kind
			out = append(out, d)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
