package sqlxrepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/AliArsalanSiddiqui/v0-student-save-website-build/core"
	"github.com/AliArsalanSiddiqui/v0-student-save-website-build/core/vendor"
)

var vendorColumns = []string{
	"vendors.id", "vendors.name", "vendors.description", "vendors.category", "vendors.location",
	"vendors.latitude", "vendors.longitude", "vendors.opening_time", "vendors.closing_time",
	"vendors.phone_number", "vendors.email", "vendors.website", "vendors.logo_url", "vendors.banner_url",
	"vendors.is_active", "vendors.created_at", "vendors.updated_at",
}

type vendorRow struct {
	ID          string       `db:"id"`
	Name        string       `db:"name"`
	Description null.String  `db:"description"`
	Category    string       `db:"category"`
	Location    string       `db:"location"`
	Latitude    null.Float64 `db:"latitude"`
	Longitude   null.Float64 `db:"longitude"`
	OpeningTime null.String  `db:"opening_time"`
	ClosingTime null.String  `db:"closing_time"`
	PhoneNumber null.String  `db:"phone_number"`
	Email       null.String  `db:"email"`
	Website     null.String  `db:"website"`
	LogoURL     null.String  `db:"logo_url"`
	BannerURL   null.String  `db:"banner_url"`
	IsActive    bool         `db:"is_active"`
	CreatedAt   time.Time    `db:"created_at"`
	UpdatedAt   time.Time    `db:"updated_at"`
}

type listingRow struct {
	vendorRow
	ActiveOffers int `db:"active_offers"`
}

func newVendorRow(v vendor.Vendor) vendorRow {
	return vendorRow{
		ID:          v.ID,
		Name:        v.Name,
		Description: v.Description,
		Category:    v.Category,
		Location:    v.Location,
		Latitude:    v.Latitude,
		Longitude:   v.Longitude,
		OpeningTime: v.OpeningTime,
		ClosingTime: v.ClosingTime,
		PhoneNumber: v.PhoneNumber,
		Email:       v.Email,
		Website:     v.Website,
		LogoURL:     v.LogoURL,
		BannerURL:   v.BannerURL,
		IsActive:    v.IsActive,
		CreatedAt:   v.CreatedAt.UTC(),
		UpdatedAt:   v.UpdatedAt.UTC(),
	}
}

func (r vendorRow) setMap() map[string]interface{} {
	return map[string]interface{}{
		"name":         r.Name,
		"description":  r.Description,
		"category":     r.Category,
		"location":     r.Location,
		"latitude":     r.Latitude,
		"longitude":    r.Longitude,
		"opening_time": r.OpeningTime,
		"closing_time": r.ClosingTime,
		"phone_number": r.PhoneNumber,
		"email":        r.Email,
		"website":      r.Website,
		"logo_url":     r.LogoURL,
		"banner_url":   r.BannerURL,
		"is_active":    r.IsActive,
		"created_at":   r.CreatedAt,
		"updated_at":   r.UpdatedAt,
	}
}

func (r vendorRow) vendor() vendor.Vendor {
	return vendor.Vendor{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Category:    r.Category,
		Location:    r.Location,
		Latitude:    r.Latitude,
		Longitude:   r.Longitude,
		OpeningTime: r.OpeningTime,
		ClosingTime: r.ClosingTime,
		PhoneNumber: r.PhoneNumber,
		Email:       r.Email,
		Website:     r.Website,
		LogoURL:     r.LogoURL,
		BannerURL:   r.BannerURL,
		IsActive:    r.IsActive,
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
	}
}

func listings(rows []listingRow) []vendor.Listing {
	ls := make([]vendor.Listing, 0, len(rows))
	for _, r := range rows {
		ls = append(ls, vendor.Listing{Vendor: r.vendor(), ActiveOffers: r.ActiveOffers})
	}
	return ls
}

type vendorRepository struct {
	db *sqlx.DB
}

var _ vendor.Repository = (*vendorRepository)(nil) // interface compliance check

func NewVendorRepository(db *sqlx.DB) vendor.Repository {
	return &vendorRepository{db: db}
}

// selectListings selects vendors along with their count of active offers that have not ended.
func (repo *vendorRepository) selectListings() sq.SelectBuilder {
	return psql.Select(vendorColumns...).
		Column(sq.Expr(
			"(SELECT COUNT(*) FROM discount_offers WHERE discount_offers.vendor_id = vendors.id"+
				" AND discount_offers.is_active AND discount_offers.valid_until >= ?) AS active_offers",
			core.Now(),
		)).
		From("vendors")
}

func (repo *vendorRepository) CreateVendor(ctx context.Context, v vendor.Vendor) (vendor.Vendor, error) {
	v.ID = uuid.New().String()
	r := newVendorRow(v)
	vals := r.setMap()
	vals["id"] = r.ID
	if _, err := exec(ctx, repo.db, psql.Insert("vendors").SetMap(vals)); err != nil {
		return vendor.Vendor{}, errors.Wrap(err, "inserting vendor")
	}
	return r.vendor(), nil
}

func (repo *vendorRepository) GetVendor(ctx context.Context, id string) (vendor.Vendor, error) {
	if _, err := uuid.Parse(id); err != nil {
		return vendor.Vendor{}, vendor.ErrNotFound
	}
	var r vendorRow
	if err := get(ctx, repo.db, &r, psql.Select(vendorColumns...).From("vendors").Where(sq.Eq{"id": id})); err != nil {
		return vendor.Vendor{}, trapNoRowsErr(err, vendor.ErrNotFound, "finding vendor")
	}
	return r.vendor(), nil
}

func (repo *vendorRepository) QueryVendors(ctx context.Context, filter *vendor.QueryFilter, ordering []core.DBOrdering) ([]vendor.Listing, error) {
	b := repo.selectListings()
	if filter != nil {
		if !filter.IncludeInactive {
			b = b.Where(sq.Eq{"vendors.is_active": true})
		}
		if filter.Category != "" {
			b = b.Where(sq.Eq{"vendors.category": filter.Category})
		}
		if filter.Search != "" {
			b = b.Where(sq.ILike{"vendors.name": "%" + filter.Search + "%"})
		}
	}
	b = b.OrderBy(core.OrderByClauses(ordering, vendor.OrderingFields, core.DBOrdering{Field: "name", Ascending: true})...)

	var rows []listingRow
	if err := selectAll(ctx, repo.db, &rows, b); err != nil {
		return nil, errors.Wrap(err, "querying vendors")
	}
	return listings(rows), nil
}

func (repo *vendorRepository) UpdateVendor(ctx context.Context, v vendor.Vendor) (vendor.Vendor, error) {
	r := newVendorRow(v)
	n, err := exec(ctx, repo.db, psql.Update("vendors").SetMap(r.setMap()).Where(sq.Eq{"id": r.ID}))
	if err != nil {
		return vendor.Vendor{}, errors.Wrap(err, "updating vendor")
	}
	if n == 0 {
		return vendor.Vendor{}, vendor.ErrNotFound
	}
	return r.vendor(), nil
}

// DeleteVendor relies on the foreign keys to delete offers, QR codes, redemptions and favorites.
func (repo *vendorRepository) DeleteVendor(ctx context.Context, id string) error {
	n, err := exec(ctx, repo.db, psql.Delete("vendors").Where(sq.Eq{"id": id}))
	if err != nil {
		return errors.Wrap(err, "deleting vendor")
	}
	if n == 0 {
		return vendor.ErrNotFound
	}
	return nil
}

func (repo *vendorRepository) AddFavorite(ctx context.Context, userID, vendorID string, at time.Time) error {
	b := psql.Insert("favorite_vendors").
		Columns("user_id", "vendor_id", "created_at").
		Values(userID, vendorID, at.UTC()).
		Suffix("ON CONFLICT (user_id, vendor_id) DO NOTHING")
	if _, err := exec(ctx, repo.db, b); err != nil {
		return errors.Wrap(err, "inserting favorite")
	}
	return nil
}

func (repo *vendorRepository) RemoveFavorite(ctx context.Context, userID, vendorID string) error {
	b := psql.Delete("favorite_vendors").Where(sq.Eq{"user_id": userID, "vendor_id": vendorID})
	if _, err := exec(ctx, repo.db, b); err != nil {
		return errors.Wrap(err, "deleting favorite")
	}
	return nil
}

func (repo *vendorRepository) QueryFavorites(ctx context.Context, userID string) ([]vendor.Listing, error) {
	b := repo.selectListings().
		Join("favorite_vendors ON favorite_vendors.vendor_id = vendors.id").
		Where(sq.Eq{"favorite_vendors.user_id": userID, "vendors.is_active": true}).
		OrderBy("favorite_vendors.created_at DESC")

	var rows []listingRow
	if err := selectAll(ctx, repo.db, &rows, b); err != nil {
		return nil, errors.Wrap(err, "querying favorites")
	}
	return listings(rows), nil
}

func (repo *vendorRepository) IsFavorite(ctx context.Context, userID, vendorID string) (bool, error) {
	n, err := count(ctx, repo.db, psql.Select("COUNT(*)").From("favorite_vendors").
		Where(sq.Eq{"user_id": userID, "vendor_id": vendorID}))
	if err != nil {
		return false, errors.Wrap(err, "checking favorite")
	}
	return n > 0, nil
}
