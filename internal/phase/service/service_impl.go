package service

import (
	"context"
	"strings"

	"github.com/brikx/coach/internal/phase/domain"
	"github.com/brikx/coach/pkg/db/option"
	"github.com/brikx/coach/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB  *gorm.DB
	Log *zap.Logger
}

type Service struct {
	log       *zap.Logger
	phaserepo repository.Repository[domain.Phase]
}

func New(p Params) domain.Service {
	return &Service{
		log:       p.Log.Named("phase.service"),
		phaserepo: repository.ProvideStore[domain.Phase](p.DB),
	}
}

func (s *Service) List(ctx context.Context) ([]domain.Phase, error) {
	items, err := s.phaserepo.Find(ctx, &domain.Phase{}, option.OrderBy("sort_order asc, code asc"))
	if err != nil {
		return nil, err
	}

	phases := make([]domain.Phase, 0, len(items))
	for _, item := range items {
		phases = append(phases, *item)
	}
	return phases, nil
}

func (s *Service) Exists(ctx context.Context, code string) (bool, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return false, nil
	}
	count, err := s.phaserepo.Count(ctx, &domain.Phase{Code: code})
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
