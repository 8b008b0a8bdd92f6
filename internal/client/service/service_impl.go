package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tradeledger/internal/client/domain"
	"github.com/smallbiznis/tradeledger/internal/clock"
	obsmetrics "github.com/smallbiznis/tradeledger/internal/observability/metrics"
	"github.com/smallbiznis/tradeledger/internal/pricing"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Repo       domain.Repository
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	repo       domain.Repository
	obsMetrics *obsmetrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("client.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		repo:       p.Repo,
		obsMetrics: p.ObsMetrics,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateClientRequest) (domain.Client, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" || len(name) > 100 {
		return domain.Client{}, domain.ErrInvalidName
	}
	if req.MarkupPercentage.IsNegative() || !pricing.WithinScale(req.MarkupPercentage) {
		return domain.Client{}, domain.ErrInvalidMarkup
	}

	now := s.clock.Now()
	client := domain.Client{
		ID:               s.genID.Generate(),
		Name:             name,
		MarkupPercentage: req.MarkupPercentage,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.repo.Insert(ctx, s.db, &client); err != nil {
		s.log.Error("failed to insert client", zap.Error(err))
		return domain.Client{}, err
	}

	s.obsMetrics.RecordClientCreated(ctx)
	s.log.Info("client created",
		zap.String("client_id", client.ID.String()),
		zap.String("markup_percentage", client.MarkupPercentage.String()),
	)
	return client, nil
}

func (s *Service) List(ctx context.Context) ([]domain.Client, error) {
	items, err := s.repo.List(ctx, s.db)
	if err != nil {
		return nil, err
	}

	clients := make([]domain.Client, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		clients = append(clients, *item)
	}
	return clients, nil
}

func (s *Service) GetByID(ctx context.Context, req domain.GetClientRequest) (domain.Client, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(req.ID))
	if err != nil || id == 0 {
		return domain.Client{}, domain.ErrInvalidID
	}

	item, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Client{}, err
	}
	if item == nil {
		return domain.Client{}, domain.ErrNotFound
	}
	return *item, nil
}
