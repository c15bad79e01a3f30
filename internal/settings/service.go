package settings

import (
	"context"
	"fmt"

	"github.com/angelmondragon/asarum-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/asarum-backend/pkg/errors"
	"github.com/angelmondragon/asarum-backend/pkg/logger"
)

const keyCurrentSeason = "current_season"

type store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Put(ctx context.Context, key, value string) error
}

// Service exposes storefront-wide settings.
type Service interface {
	CurrentSeason(ctx context.Context) (enums.Season, error)
	SetCurrentSeason(ctx context.Context, season enums.Season) (enums.Season, error)
}

type service struct {
	store store
	logg  *logger.Logger
}

func NewService(s store, logg *logger.Logger) (Service, error) {
	if s == nil {
		return nil, fmt.Errorf("settings store required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{store: s, logg: logg}, nil
}

// CurrentSeason falls back to the default season when unset or unreadable as a season.
func (s *service) CurrentSeason(ctx context.Context) (enums.Season, error) {
	raw, ok, err := s.store.Get(ctx, keyCurrentSeason)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load current season")
	}
	if !ok {
		return enums.DefaultSeason, nil
	}
	season, err := enums.ParseSeason(raw)
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "stored_season", raw), "stored season is invalid, using default")
		return enums.DefaultSeason, nil
	}
	return season, nil
}

func (s *service) SetCurrentSeason(ctx context.Context, season enums.Season) (enums.Season, error) {
	if !season.IsValid() {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "unknown season").WithDetails(map[string]any{
			"season":  season,
			"allowed": enums.Seasons(),
		})
	}
	if err := s.store.Put(ctx, keyCurrentSeason, season.String()); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store current season")
	}
	s.logg.Info(s.logg.WithField(ctx, "season", season), "current season updated")
	return season, nil
}
