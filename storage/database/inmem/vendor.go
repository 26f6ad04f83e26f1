package inmemdb

import (
	"context"
	"strings"
	"time"

	"github.com/AliArsalanSiddiqui/v0-student-save-website-build/core"
	"github.com/AliArsalanSiddiqui/v0-student-save-website-build/core/vendor"
)

var vendorComparators = comparators[vendor.Listing]{
	"name":       func(a, b vendor.Listing) int { return strings.Compare(a.Name, b.Name) },
	"category":   func(a, b vendor.Listing) int { return strings.Compare(a.Category, b.Category) },
	"created_at": func(a, b vendor.Listing) int { return a.CreatedAt.Compare(b.CreatedAt) },
}

type vendorRepository struct {
	db *DB
}

var _ vendor.Repository = (*vendorRepository)(nil) // interface compliance check

func NewVendorRepository(db *DB) vendor.Repository {
	return &vendorRepository{db: db}
}

func (repo *vendorRepository) listing(v vendor.Vendor, at time.Time) vendor.Listing {
	return vendor.Listing{Vendor: v, ActiveOffers: repo.db.countActiveOffers(v.ID, at)}
}

func (repo *vendorRepository) CreateVendor(_ context.Context, v vendor.Vendor) (vendor.Vendor, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	v.ID = newID()
	repo.db.vendors[v.ID] = v
	return v, nil
}

func (repo *vendorRepository) GetVendor(_ context.Context, id string) (vendor.Vendor, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if v, ok := repo.db.vendors[id]; ok {
		return v, nil
	}
	return vendor.Vendor{}, vendor.ErrNotFound
}

func (repo *vendorRepository) QueryVendors(_ context.Context, filter *vendor.QueryFilter, ordering []core.DBOrdering) ([]vendor.Listing, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	now := core.Now()
	listings := make([]vendor.Listing, 0, len(repo.db.vendors))
	for _, v := range repo.db.vendors {
		if filter != nil {
			if !filter.IncludeInactive && !v.IsActive {
				continue
			}
			if filter.Category != "" && v.Category != filter.Category {
				continue
			}
			if filter.Search != "" && !containsFold(filter.Search, v.Name) {
				continue
			}
		}
		listings = append(listings, repo.listing(v, now))
	}

	sortItems(listings, ordering, vendorComparators, func(a, b vendor.Listing) bool {
		return a.Name < b.Name
	})
	return listings, nil
}

func (repo *vendorRepository) UpdateVendor(_ context.Context, v vendor.Vendor) (vendor.Vendor, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.vendors[v.ID]; !ok {
		return vendor.Vendor{}, vendor.ErrNotFound
	}
	repo.db.vendors[v.ID] = v
	return v, nil
}

// DeleteVendor also deletes the offers, QR codes, redemptions and favorites of the vendor.
func (repo *vendorRepository) DeleteVendor(_ context.Context, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.vendors[id]; !ok {
		return vendor.ErrNotFound
	}
	for _, o := range repo.db.offers {
		if o.VendorID == id {
			repo.db.deleteOffer(o.ID)
		}
	}
	for key := range repo.db.favorites {
		if key.vendorID == id {
			delete(repo.db.favorites, key)
		}
	}
	delete(repo.db.vendors, id)
	return nil
}

func (repo *vendorRepository) AddFavorite(_ context.Context, userID, vendorID string, at time.Time) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.vendors[vendorID]; !ok {
		return vendor.ErrNotFound
	}
	key := favoriteKey{userID: userID, vendorID: vendorID}
	if _, ok := repo.db.favorites[key]; !ok {
		repo.db.favorites[key] = at
	}
	return nil
}

func (repo *vendorRepository) RemoveFavorite(_ context.Context, userID, vendorID string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	delete(repo.db.favorites, favoriteKey{userID: userID, vendorID: vendorID})
	return nil
}

func (repo *vendorRepository) QueryFavorites(_ context.Context, userID string) ([]vendor.Listing, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	type favorite struct {
		listing vendor.Listing
		at      time.Time
	}
	now := core.Now()
	favs := make([]favorite, 0)
	for key, at := range repo.db.favorites {
		if key.userID != userID {
			continue
		}
		if v, ok := repo.db.vendors[key.vendorID]; ok && v.IsActive {
			favs = append(favs, favorite{listing: repo.listing(v, now), at: at})
		}
	}
	sortItems(favs, nil, nil, func(a, b favorite) bool { return a.at.After(b.at) })

	listings := make([]vendor.Listing, 0, len(favs))
	for _, f := range favs {
		listings = append(listings, f.listing)
	}
	return listings, nil
}

func (repo *vendorRepository) IsFavorite(_ context.Context, userID, vendorID string) (bool, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	_, ok := repo.db.favorites[favoriteKey{userID: userID, vendorID: vendorID}]
	return ok, nil
}
