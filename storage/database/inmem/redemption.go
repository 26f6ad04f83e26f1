package inmemdb

import (
	"context"

	"github.com/volatiletech/null/v8"

	"github.com/AliArsalanSiddiqui/v0-student-save-website-build/core"
	"github.com/AliArsalanSiddiqui/v0-student-save-website-build/core/redemption"
)

type redemptionRepository struct {
	db *DB
}

var _ redemption.Repository = (*redemptionRepository)(nil) // interface compliance check

func NewRedemptionRepository(db *DB) redemption.Repository {
	return &redemptionRepository{db: db}
}

// receipt joins a redemption with its offer, vendor and student. The caller holds the lock.
func (repo *redemptionRepository) receipt(r redemption.Redemption) redemption.Receipt {
	o := repo.db.offers[r.OfferID]
	return redemption.Receipt{
		Redemption:   r,
		OfferTitle:   o.Title,
		DiscountType: o.DiscountType,
		VendorName:   repo.db.vendors[r.VendorID].Name,
		StudentName:  repo.db.profiles[r.UserID].FullName,
	}
}

// Redeem holds the write lock for the whole redemption.
func (repo *redemptionRepository) Redeem(_ context.Context, userID string, req redemption.RedeemRequest) (redemption.Receipt, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	var (
		qrID  string
		found bool
	)
	for id, qr := range repo.db.qrCodes {
		if qr.Data == req.Code && qr.IsActive {
			qrID, found = id, true
			break
		}
	}
	if !found {
		return redemption.Receipt{}, redemption.ErrInvalidCode
	}
	qr := repo.db.qrCodes[qrID]
	o, ok := repo.db.offers[qr.OfferID]
	if !ok {
		return redemption.Receipt{}, redemption.ErrInvalidCode
	}

	if req.IdempotencyKey != "" {
		for _, r := range repo.db.redemptions {
			if r.UserID == userID && r.IdempotencyKey.String == req.IdempotencyKey {
				rcpt := repo.receipt(r)
				rcpt.Replayed = true
				return rcpt, nil
			}
		}
	}

	now := core.Now()
	if err := o.Redeemable(now); err != nil {
		return redemption.Receipt{}, err
	}

	r := redemption.Redemption{
		ID:             newID(),
		UserID:         userID,
		OfferID:        o.ID,
		QRCodeID:       qr.ID,
		VendorID:       o.VendorID,
		DiscountAmount: o.DiscountAmount(),
		IdempotencyKey: null.NewString(req.IdempotencyKey, req.IdempotencyKey != ""),
		RedeemedAt:     now,
	}
	repo.db.redemptions[r.ID] = r
	o.CurrentUses++
	repo.db.offers[o.ID] = o
	return repo.receipt(r), nil
}

func (repo *redemptionRepository) QueryReceipts(_ context.Context, filter redemption.QueryFilter) ([]redemption.Receipt, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	rs := make([]redemption.Redemption, 0)
	for _, r := range repo.db.redemptions {
		if filter.UserID == "" || r.UserID == filter.UserID {
			rs = append(rs, r)
		}
	}
	sortItems(rs, nil, nil, func(a, b redemption.Redemption) bool { return a.RedeemedAt.After(b.RedeemedAt) })
	if filter.Limit > 0 && len(rs) > filter.Limit {
		rs = rs[:filter.Limit]
	}

	receipts := make([]redemption.Receipt, 0, len(rs))
	for _, r := range rs {
		receipts = append(receipts, repo.receipt(r))
	}
	return receipts, nil
}

func (repo *redemptionRepository) CountRedemptions(_ context.Context, userID string) (int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if userID == "" {
		return len(repo.db.redemptions), nil
	}
	var n int
	for _, r := range repo.db.redemptions {
		if r.UserID == userID {
			n++
		}
	}
	return n, nil
}
