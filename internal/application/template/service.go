// Package template manages the facilitator's saved session setups.
package template

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	domain "github.com/photolangage/photolangage/internal/domain/template"
)

// Service layers system-template merging and archive handling over the
// repository.
type Service struct {
	repo   domain.Repository
	logger zerolog.Logger
	now    func() time.Time
}

func NewService(repo domain.Repository, logger zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger.With().Str("service", "template").Logger(),
		now:    time.Now,
	}
}

// List returns custom templates first, then the built-in system ones.
func (s *Service) List(ctx context.Context) ([]domain.Template, error) {
	custom, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list custom templates: %w", err)
	}
	return append(custom, domain.SystemTemplates()...), nil
}

// Save stores a template as a custom one. Saving a system template clones it
// under a fresh id so the built-ins stay untouched.
func (s *Service) Save(ctx context.Context, tpl domain.Template) (*domain.Template, error) {
	if tpl.ID == "" || tpl.IsSystem {
		tpl.ID = uuid.NewString()
	}
	tpl.IsSystem = false
	if err := s.repo.Save(ctx, &tpl); err != nil {
		return nil, err
	}
	s.logger.Info().Str("template_id", tpl.ID).Str("title", tpl.Title).Msg("template saved")
	return &tpl, nil
}

// Delete removes a custom template. System templates cannot be deleted.
func (s *Service) Delete(ctx context.Context, id string) error {
	for _, sys := range domain.SystemTemplates() {
		if sys.ID == id {
			return domain.ErrNotFound
		}
	}
	return s.repo.Delete(ctx, id)
}

// ToggleArchive flips a custom template between archived and active.
func (s *Service) ToggleArchive(ctx context.Context, id string) (*domain.Template, error) {
	tpl, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if tpl.Archived {
		tpl.Unarchive()
	} else {
		tpl.Archive(s.now(), tpl.ArchiveNotes)
	}
	if err := s.repo.Save(ctx, tpl); err != nil {
		return nil, err
	}
	return tpl, nil
}
