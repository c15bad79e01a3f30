package settings

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/angelmondragon/asarum-backend/pkg/db/dbtest"
	"github.com/angelmondragon/asarum-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/asarum-backend/pkg/errors"
	"github.com/angelmondragon/asarum-backend/pkg/logger"
)

type brokenStore struct{}

func (brokenStore) Get(context.Context, string) (string, bool, error) {
	return "", false, errors.New("db down")
}

func (brokenStore) Put(context.Context, string, string) error {
	return errors.New("db down")
}

func newService(t *testing.T) (Service, *Repository) {
	t.Helper()
	repo := NewRepository(dbtest.Open(t).DB())
	svc, err := NewService(repo, logger.New(logger.Options{Output: io.Discard}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return svc, repo
}

func TestCurrentSeasonDefaultsWhenUnset(t *testing.T) {
	svc, _ := newService(t)
	got, err := svc.CurrentSeason(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != enums.DefaultSeason {
		t.Fatalf("expected %s, got %s", enums.DefaultSeason, got)
	}
}

func TestSetCurrentSeasonPersistsAndOverwrites(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	if _, err := svc.SetCurrentSeason(ctx, enums.SeasonValentines); err != nil {
		t.Fatalf("set valentines: %v", err)
	}
	if _, err := svc.SetCurrentSeason(ctx, enums.SeasonMothersDay); err != nil {
		t.Fatalf("set mothers day: %v", err)
	}
	got, err := svc.CurrentSeason(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != enums.SeasonMothersDay {
		t.Fatalf("expected %s, got %s", enums.SeasonMothersDay, got)
	}
}

func TestSetCurrentSeasonRejectsUnknown(t *testing.T) {
	svc, _ := newService(t)
	_, err := svc.SetCurrentSeason(context.Background(), enums.Season("Navidad"))
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCurrentSeasonIgnoresCorruptValue(t *testing.T) {
	svc, repo := newService(t)
	ctx := context.Background()
	if err := repo.Put(ctx, keyCurrentSeason, "Navidad"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	got, err := svc.CurrentSeason(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != enums.DefaultSeason {
		t.Fatalf("expected default season, got %s", got)
	}
}

func TestStoreFailuresAreDependencyErrors(t *testing.T) {
	svc, err := NewService(brokenStore{}, logger.New(logger.Options{Output: io.Discard}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.CurrentSeason(context.Background()); !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
	if _, err := svc.SetCurrentSeason(context.Background(), enums.SeasonRegular); !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
}
