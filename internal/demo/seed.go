// Package demo seeds the known clients and, for demonstration deployments,
// a synthetic snapshot history.
package demo

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"portfolio_tracker/internal/database"
	"portfolio_tracker/internal/logger"
	"portfolio_tracker/internal/models"
	"portfolio_tracker/internal/repository"
	"portfolio_tracker/internal/services"
)

// KnownClients are the broker accounts managed by the desk, with their profiles.
var KnownClients = []models.Client{
	{ID: "34455", Name: "LOPEZ ROJAS FELIPE", Profile: services.ProfileAggressive},
	{ID: "34462", Name: "LOPEZ ROJAS PEDRO", Profile: services.ProfileModerate},
	{ID: "34469", Name: "LOPEZ ROJAS JUAN IGNACIO", Profile: services.ProfileAggressive},
	{ID: "243999", Name: "Lopez Rojas Felipe", Profile: services.ProfileAggressive},
	{ID: "242928", Name: "Lopez Rojas Manuela", Profile: services.ProfileConservative},
	{ID: "34489", Name: "ROJAS CLARIA MARIANA", Profile: services.ProfileModerate},
	{ID: "34491", Name: "LOPEZ JUAN ANTONIO", Profile: services.ProfileAggressive},
	{ID: "247585", Name: "SOL DE MAYO SA", Profile: services.ProfileModerate},
	{ID: "247262", Name: "SANTO DOMINGO SRL", Profile: services.ProfileModerate},
}

// Seeder seeds the database with clients and demo history.
type Seeder struct {
	clients   *repository.ClientRepository
	snapshots *repository.SnapshotRepository
	log       zerolog.Logger
}

// NewSeeder creates a new seeder.
func NewSeeder(db *database.DB, log zerolog.Logger) *Seeder {
	return &Seeder{
		clients:   repository.NewClientRepository(db),
		snapshots: repository.NewSnapshotRepository(db),
		log:       logger.Component(log, "seed"),
	}
}

// SeedIfEmpty inserts the known clients when no client exists yet.
func (s *Seeder) SeedIfEmpty(ctx context.Context) error {
	count, err := s.clients.Count()
	if err != nil {
		return err
	}
	if count > 0 {
		s.log.Debug().Int("clients", count).Msg("Database already has clients, skipping seed")
		return nil
	}

	for i := range KnownClients {
		c := KnownClients[i]
		if err := s.clients.Upsert(ctx, &c); err != nil {
			return err
		}
	}
	s.log.Info().Int("clients", len(KnownClients)).Msg("Seeded known clients")
	return nil
}

// SeedHistory writes months of monthly snapshots per known client, ending
// on the first of end's month. Each portfolio follows its profile's
// weights and a deterministic growth path. Nothing is written when any
// snapshot already exists.
func (s *Seeder) SeedHistory(ctx context.Context, months int, end time.Time) error {
	existing, err := s.snapshots.LatestPerClient()
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		s.log.Debug().Msg("Snapshots already stored, skipping demo history")
		return nil
	}
	if months < 1 {
		months = 1
	}

	last := time.Date(end.Year(), end.Month(), 1, 0, 0, 0, 0, time.UTC)
	for i, c := range KnownClients {
		weights := services.BuiltinProfiles[c.Profile]
		for m, total := range growthPath(float64(i+1)*5_000_000, months) {
			date := last.AddDate(0, m-months+1, 0)
			if _, err := s.snapshots.SaveSnapshot(ctx, c.ID, c.Name, date, split(total, weights, m), total); err != nil {
				return err
			}
		}
	}
	s.log.Info().Int("clients", len(KnownClients)).Int("months", months).Msg("Seeded demo history")
	return nil
}

// growthPath returns one total per month: 1.5% monthly growth with a
// deterministic quarterly swing.
func growthPath(start float64, months int) []float64 {
	out := make([]float64, months)
	current := start
	for i := range out {
		out[i] = repository.RoundPct(current)
		current *= 1.015
		if (i+1)%3 == 0 {
			current *= 1.0 + float64((i%5)-2)*0.02
		}
	}
	return out
}

// split divides total by weights, tilting the largest category a little
// each month so allocations drift from the target.
func split(total float64, weights map[models.Category]float64, month int) map[models.Category]float64 {
	cats := make([]models.Category, 0, len(weights))
	for c := range weights {
		cats = append(cats, c)
	}
	sort.Slice(cats, func(i, j int) bool {
		if weights[cats[i]] != weights[cats[j]] {
			return weights[cats[i]] > weights[cats[j]]
		}
		return cats[i] < cats[j]
	})

	tilt := float64(month%4) * 1.5
	out := make(map[models.Category]float64, len(cats))
	var assigned float64
	for i, c := range cats {
		pct := weights[c]
		switch {
		case i == 0:
			pct += tilt
		case i == len(cats)-1:
			pct -= tilt
		}
		value := total * pct / 100
		out[c] = value
		assigned += value
	}
	// Rounding residue lands on the largest category.
	if len(cats) > 0 {
		out[cats[0]] += total - assigned
	}
	return out
}
