package inmemdb

import (
	"context"
	"time"

	"github.com/AliArsalanSiddiqui/v0-student-save-website-build/core/offer"
	"github.com/AliArsalanSiddiqui/v0-student-save-website-build/core/vendor"
)

type offerRepository struct {
	db *DB
}

var _ offer.Repository = (*offerRepository)(nil) // interface compliance check

func NewOfferRepository(db *DB) offer.Repository {
	return &offerRepository{db: db}
}

// countActiveOffers counts the active offers of a vendor that have not ended. The caller holds the lock.
func (db *DB) countActiveOffers(vendorID string, at time.Time) int {
	var n int
	for _, o := range db.offers {
		if (vendorID == "" || o.VendorID == vendorID) && o.IsActive && !o.ValidUntil.Before(at) {
			n++
		}
	}
	return n
}

// deleteOffer deletes an offer along with its QR codes and redemptions. The caller holds the lock.
func (db *DB) deleteOffer(id string) {
	for qrID, qr := range db.qrCodes {
		if qr.OfferID == id {
			delete(db.qrCodes, qrID)
		}
	}
	for rID, r := range db.redemptions {
		if r.OfferID == id {
			delete(db.redemptions, rID)
		}
	}
	delete(db.offers, id)
}

func (repo *offerRepository) CreateOffer(_ context.Context, o offer.Offer, qr offer.QRCode) (offer.Offer, offer.QRCode, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.vendors[o.VendorID]; !ok {
		return offer.Offer{}, offer.QRCode{}, vendor.ErrNotFound
	}
	o.ID = newID()
	repo.db.offers[o.ID] = o

	qr.ID = newID()
	qr.OfferID = o.ID
	qr.VendorID = o.VendorID
	repo.db.qrCodes[qr.ID] = qr
	return o, qr, nil
}

func (repo *offerRepository) GetOffer(_ context.Context, id string) (offer.Offer, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if o, ok := repo.db.offers[id]; ok {
		return o, nil
	}
	return offer.Offer{}, offer.ErrNotFound
}

func (repo *offerRepository) QueryOffers(_ context.Context, filter offer.QueryFilter) ([]offer.Offer, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	offers := make([]offer.Offer, 0)
	for _, o := range repo.db.offers {
		if filter.VendorID != "" && o.VendorID != filter.VendorID {
			continue
		}
		if filter.RedeemableAt.Valid && (!o.IsActive || o.ValidUntil.Before(filter.RedeemableAt.Time)) {
			continue
		}
		offers = append(offers, o)
	}

	if filter.RedeemableAt.Valid {
		sortItems(offers, nil, nil, func(a, b offer.Offer) bool { return a.ValidUntil.After(b.ValidUntil) })
	} else {
		sortItems(offers, nil, nil, func(a, b offer.Offer) bool { return a.CreatedAt.After(b.CreatedAt) })
	}
	return offers, nil
}

func (repo *offerRepository) UpdateOffer(_ context.Context, o offer.Offer) (offer.Offer, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.offers[o.ID]
	if !ok {
		return offer.Offer{}, offer.ErrNotFound
	}
	o.CurrentUses = orig.CurrentUses // only redemptions count uses
	repo.db.offers[o.ID] = o
	return o, nil
}

func (repo *offerRepository) DeleteOffer(_ context.Context, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.offers[id]; !ok {
		return offer.ErrNotFound
	}
	repo.db.deleteOffer(id)
	return nil
}

func (repo *offerRepository) CreateQRCode(_ context.Context, qr offer.QRCode) (offer.QRCode, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.offers[qr.OfferID]; !ok {
		return offer.QRCode{}, offer.ErrNotFound
	}
	qr.ID = newID()
	repo.db.qrCodes[qr.ID] = qr
	return qr, nil
}

func (repo *offerRepository) GetQRCode(_ context.Context, id string) (offer.QRCode, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if qr, ok := repo.db.qrCodes[id]; ok {
		return qr, nil
	}
	return offer.QRCode{}, offer.ErrQRCodeNotFound
}

func (repo *offerRepository) UpdateQRCode(_ context.Context, qr offer.QRCode) (offer.QRCode, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.qrCodes[qr.ID]; !ok {
		return offer.QRCode{}, offer.ErrQRCodeNotFound
	}
	repo.db.qrCodes[qr.ID] = qr
	return qr, nil
}

func (repo *offerRepository) QueryQRCodes(_ context.Context, vendorID string) ([]offer.QRCode, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	qrs := make([]offer.QRCode, 0)
	for _, qr := range repo.db.qrCodes {
		if qr.VendorID == vendorID {
			qrs = append(qrs, qr)
		}
	}
	sortItems(qrs, nil, nil, func(a, b offer.QRCode) bool { return a.CreatedAt.After(b.CreatedAt) })
	return qrs, nil
}
