package sqlxrepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/AliArsalanSiddiqui/v0-student-save-website-build/core/profile"
	"github.com/AliArsalanSiddiqui/v0-student-save-website-build/core/stats"
)

type statsRepository struct {
	db *sqlx.DB
}

var _ stats.Repository = (*statsRepository)(nil) // interface compliance check

func NewStatsRepository(db *sqlx.DB) stats.Repository {
	return &statsRepository{db: db}
}

func (repo *statsRepository) CountVendors(ctx context.Context) (stats.VendorCounts, error) {
	var row struct {
		Active int `db:"active"`
		Total  int `db:"total"`
	}
	b := psql.Select("COUNT(*) FILTER (WHERE is_active) AS active", "COUNT(*) AS total").From("vendors")
	if err := get(ctx, repo.db, &row, b); err != nil {
		return stats.VendorCounts{}, errors.Wrap(err, "counting vendors")
	}
	return stats.VendorCounts{Active: row.Active, Total: row.Total}, nil
}

func (repo *statsRepository) CountStudents(ctx context.Context) (stats.StudentCounts, error) {
	var row struct {
		Verified int `db:"verified"`
		Pending  int `db:"pending"`
	}
	b := psql.Select("COUNT(*) FILTER (WHERE is_verified) AS verified", "COUNT(*) FILTER (WHERE NOT is_verified) AS pending").
		From("profiles").
		Where(sq.Eq{"user_type": profile.TypeStudent})
	if err := get(ctx, repo.db, &row, b); err != nil {
		return stats.StudentCounts{}, errors.Wrap(err, "counting students")
	}
	return stats.StudentCounts{Verified: row.Verified, Pending: row.Pending}, nil
}

func (repo *statsRepository) CountActiveOffers(ctx context.Context, at time.Time) (int, error) {
	n, err := count(ctx, repo.db, psql.Select("COUNT(*)").From("discount_offers").
		Where(sq.Eq{"is_active": true}).
		Where(sq.GtOrEq{"valid_until": at.UTC()}))
	if err != nil {
		return 0, errors.Wrap(err, "counting active offers")
	}
	return n, nil
}

func (repo *statsRepository) CountActiveVendorsByCategory(ctx context.Context) (map[string]int, error) {
	var rows []struct {
		Category string `db:"category"`
		Count    int    `db:"count"`
	}
	b := psql.Select("category", "COUNT(*) AS count").From("vendors").
		Where(sq.Eq{"is_active": true}).
		GroupBy("category")
	if err := selectAll(ctx, repo.db, &rows, b); err != nil {
		return nil, errors.Wrap(err, "counting vendors by category")
	}
	counts := make(map[string]int, len(rows))
	for _, r := range rows {
		counts[r.Category] = r.Count
	}
	return counts, nil
}
