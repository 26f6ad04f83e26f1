package inmemdb

import (
	"context"
	"time"

	"github.com/AliArsalanSiddiqui/v0-student-save-website-build/core/stats"
)

type statsRepository struct {
	db *DB
}

var _ stats.Repository = (*statsRepository)(nil) // interface compliance check

func NewStatsRepository(db *DB) stats.Repository {
	return &statsRepository{db: db}
}

func (repo *statsRepository) CountVendors(_ context.Context) (stats.VendorCounts, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	counts := stats.VendorCounts{Total: len(repo.db.vendors)}
	for _, v := range repo.db.vendors {
		if v.IsActive {
			counts.Active++
		}
	}
	return counts, nil
}

func (repo *statsRepository) CountStudents(_ context.Context) (stats.StudentCounts, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var counts stats.StudentCounts
	for _, p := range repo.db.profiles {
		if !p.IsStudent() {
			continue
		}
		if p.IsVerified {
			counts.Verified++
		} else {
			counts.Pending++
		}
	}
	return counts, nil
}

func (repo *statsRepository) CountActiveOffers(_ context.Context, at time.Time) (int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return repo.db.countActiveOffers("", at), nil
}

func (repo *statsRepository) CountActiveVendorsByCategory(_ context.Context) (map[string]int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	counts := make(map[string]int)
	for _, v := range repo.db.vendors {
		if v.IsActive {
			counts[v.Category]++
		}
	}
	return counts, nil
}
