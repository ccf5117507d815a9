package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"cumulus/internal/domain"
	"cumulus/internal/domain/models"
	"cumulus/internal/domain/repositories"
	"cumulus/internal/domain/services"
)

// homeTitle is the display title of a user's root container.
const homeTitle = "Home"

type homeResolver struct {
	entities repositories.EntityRepository
	logger   *slog.Logger
}

// NewHomeResolver creates a new home resolver
func NewHomeResolver(entities repositories.EntityRepository, logger *slog.Logger) services.HomeResolver {
	return &homeResolver{entities: entities, logger: logger}
}

// GetOrCreate returns the user's root container, creating it lazily on
// first use. Roots have no parent and never inherit permissions.
func (s *homeResolver) GetOrCreate(ctx context.Context, userID string) (*models.Entity, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", domain.ErrValidation)
	}

	root, err := s.entities.GetRoot(ctx, userID)
	if err == nil {
		return root, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	now := time.Now()
	root = &models.Entity{
		ID:            uuid.NewString(),
		Title:         homeTitle,
		IsGroup:       true,
		Owner:         userID,
		IsActive:      true,
		AllowComments: true,
		AllowDownload: true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.entities.Create(ctx, root); err != nil {
		// A concurrent request may have created the root first; the
		// partial unique index makes that a conflict we can recover from.
		if errors.Is(err, domain.ErrNameConflict) {
			return s.entities.GetRoot(ctx, userID)
		}
		return nil, err
	}

	s.logger.Info("home container created", "user", userID, "id", root.ID)

	return root, nil
}
