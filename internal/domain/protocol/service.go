package protocol

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/DarkMage108/medical-service-backend/internal/platform/apperr"
	"github.com/DarkMage108/medical-service-backend/internal/platform/db"
)

type Service struct {
	repo Repository
	tx   db.Transactor
}

func NewService(repo Repository, tx db.Transactor) *Service {
	return &Service{repo: repo, tx: tx}
}

func (s *Service) Create(ctx context.Context, p *Protocol) error {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return apperr.Validation("name is required")
	}
	cat, err := ParseCategory(string(p.Category))
	if err != nil {
		return err
	}
	p.Category = cat
	if err := validateFrequency(p.FrequencyDays); err != nil {
		return err
	}
	if err := validateMilestones(p.Milestones); err != nil {
		return err
	}
	p.MedicationType = emptyToNil(p.MedicationType)
	p.Goal = emptyToNil(p.Goal)
	p.Message = emptyToNil(p.Message)
	if p.Milestones == nil {
		p.Milestones = []Milestone{}
	}

	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		taken, err := s.repo.ExistsByName(ctx, p.Name, uuid.Nil)
		if err != nil {
			return err
		}
		if taken {
			return apperr.Conflict("a protocol named %q already exists", p.Name)
		}
		return s.repo.Create(ctx, p)
	})
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Protocol, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, category string) ([]*Protocol, error) {
	var cat Category
	if category != "" {
		c, err := ParseCategory(category)
		if err != nil {
			return nil, err
		}
		cat = c
	}
	return s.repo.List(ctx, cat)
}

// Update applies patch. Treatments already scheduled from this protocol keep
// their dose dates; a new frequency only affects later rechains.
func (s *Service) Update(ctx context.Context, id uuid.UUID, patch Patch) (*Protocol, error) {
	var out *Protocol
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		p, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return err
		}

		if patch.Name != nil {
			name := strings.TrimSpace(*patch.Name)
			if name == "" {
				return apperr.Validation("name must not be empty")
			}
			taken, err := s.repo.ExistsByName(ctx, name, id)
			if err != nil {
				return err
			}
			if taken {
				return apperr.Conflict("a protocol named %q already exists", name)
			}
			p.Name = name
		}
		if patch.Category != nil {
			cat, err := ParseCategory(*patch.Category)
			if err != nil {
				return err
			}
			p.Category = cat
		}
		if patch.FrequencyDays != nil {
			if err := validateFrequency(*patch.FrequencyDays); err != nil {
				return err
			}
			p.FrequencyDays = *patch.FrequencyDays
		}
		if patch.MedicationType != nil {
			p.MedicationType = emptyToNil(patch.MedicationType)
		}
		if patch.Goal != nil {
			p.Goal = emptyToNil(patch.Goal)
		}
		if patch.Message != nil {
			p.Message = emptyToNil(patch.Message)
		}

		if patch.Milestones != nil {
			if err := validateMilestones(*patch.Milestones); err != nil {
				return err
			}
		}

		if err := s.repo.Update(ctx, p); err != nil {
			return err
		}
		if patch.Milestones != nil {
			ms := *patch.Milestones
			if ms == nil {
				ms = []Milestone{}
			}
			if err := s.repo.ReplaceMilestones(ctx, id, ms); err != nil {
				return err
			}
			p.Milestones = ms
		}
		out = p
		return nil
	})
	return out, err
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}
