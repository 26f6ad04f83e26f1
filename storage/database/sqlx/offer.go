package sqlxrepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"

	"github.com/AliArsalanSiddiqui/v0-student-save-website-build/core/offer"
)

var (
	offerColumns = []string{
		"id", "vendor_id", "title", "description", "discount_type", "discount_value",
		"valid_from", "valid_until", "max_uses", "current_uses", "is_active", "created_at", "updated_at",
	}
	qrCodeColumns = []string{"id", "vendor_id", "discount_offer_id", "qr_code_data", "is_active", "created_at"}
)

type offerRow struct {
	ID            string          `db:"id"`
	VendorID      string          `db:"vendor_id"`
	Title         string          `db:"title"`
	Description   null.String     `db:"description"`
	DiscountType  string          `db:"discount_type"`
	DiscountValue decimal.Decimal `db:"discount_value"`
	ValidFrom     time.Time       `db:"valid_from"`
	ValidUntil    time.Time       `db:"valid_until"`
	MaxUses       int             `db:"max_uses"`
	CurrentUses   int             `db:"current_uses"`
	IsActive      bool            `db:"is_active"`
	CreatedAt     time.Time       `db:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at"`
}

func newOfferRow(o offer.Offer) offerRow {
	return offerRow{
		ID:            o.ID,
		VendorID:      o.VendorID,
		Title:         o.Title,
		Description:   o.Description,
		DiscountType:  o.DiscountType,
		DiscountValue: o.DiscountValue,
		ValidFrom:     o.ValidFrom.UTC(),
		ValidUntil:    o.ValidUntil.UTC(),
		MaxUses:       o.MaxUses,
		CurrentUses:   o.CurrentUses,
		IsActive:      o.IsActive,
		CreatedAt:     o.CreatedAt.UTC(),
		UpdatedAt:     o.UpdatedAt.UTC(),
	}
}

// setMap leaves current_uses out: only redemptions count uses.
func (r offerRow) setMap() map[string]interface{} {
	return map[string]interface{}{
		"vendor_id":      r.VendorID,
		"title":          r.Title,
		"description":    r.Description,
		"discount_type":  r.DiscountType,
		"discount_value": r.DiscountValue,
		"valid_from":     r.ValidFrom,
		"valid_until":    r.ValidUntil,
		"max_uses":       r.MaxUses,
		"is_active":      r.IsActive,
		"created_at":     r.CreatedAt,
		"updated_at":     r.UpdatedAt,
	}
}

func (r offerRow) offer() offer.Offer {
	return offer.Offer{
		ID:            r.ID,
		VendorID:      r.VendorID,
		Title:         r.Title,
		Description:   r.Description,
		DiscountType:  r.DiscountType,
		DiscountValue: r.DiscountValue,
		ValidFrom:     r.ValidFrom.UTC(),
		ValidUntil:    r.ValidUntil.UTC(),
		MaxUses:       r.MaxUses,
		CurrentUses:   r.CurrentUses,
		IsActive:      r.IsActive,
		CreatedAt:     r.CreatedAt.UTC(),
		UpdatedAt:     r.UpdatedAt.UTC(),
	}
}

type qrCodeRow struct {
	ID        string    `db:"id"`
	VendorID  string    `db:"vendor_id"`
	OfferID   string    `db:"discount_offer_id"`
	Data      string    `db:"qr_code_data"`
	IsActive  bool      `db:"is_active"`
	CreatedAt time.Time `db:"created_at"`
}

func (r qrCodeRow) qrCode() offer.QRCode {
	return offer.QRCode{
		ID:        r.ID,
		VendorID:  r.VendorID,
		OfferID:   r.OfferID,
		Data:      r.Data,
		IsActive:  r.IsActive,
		CreatedAt: r.CreatedAt.UTC(),
	}
}

type offerRepository struct {
	db *sqlx.DB
}

var _ offer.Repository = (*offerRepository)(nil) // interface compliance check

func NewOfferRepository(db *sqlx.DB) offer.Repository {
	return &offerRepository{db: db}
}

func insertQRCode(ctx context.Context, e sqlx.ExecerContext, qr offer.QRCode) (offer.QRCode, error) {
	qr.ID = uuid.New().String()
	qr.CreatedAt = qr.CreatedAt.UTC()
	b := psql.Insert("qr_codes").
		Columns(qrCodeColumns...).
		Values(qr.ID, qr.VendorID, qr.OfferID, qr.Data, qr.IsActive, qr.CreatedAt)
	if _, err := exec(ctx, e, b); err != nil {
		return offer.QRCode{}, errors.Wrap(err, "inserting QR code")
	}
	return qr, nil
}

func (repo *offerRepository) CreateOffer(ctx context.Context, o offer.Offer, qr offer.QRCode) (offer.Offer, offer.QRCode, error) {
	o.ID = uuid.New().String()
	r := newOfferRow(o)

	err := withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		vals := r.setMap()
		vals["id"] = r.ID
		vals["current_uses"] = r.CurrentUses
		if _, err := exec(ctx, tx, psql.Insert("discount_offers").SetMap(vals)); err != nil {
			return errors.Wrap(err, "inserting offer")
		}

		qr.OfferID = r.ID
		qr.VendorID = r.VendorID
		var err error
		qr, err = insertQRCode(ctx, tx, qr)
		return err
	})
	if err != nil {
		return offer.Offer{}, offer.QRCode{}, err
	}
	return r.offer(), qr, nil
}

func (repo *offerRepository) GetOffer(ctx context.Context, id string) (offer.Offer, error) {
	if _, err := uuid.Parse(id); err != nil {
		return offer.Offer{}, offer.ErrNotFound
	}
	var r offerRow
	if err := get(ctx, repo.db, &r, psql.Select(offerColumns...).From("discount_offers").Where(sq.Eq{"id": id})); err != nil {
		return offer.Offer{}, trapNoRowsErr(err, offer.ErrNotFound, "finding offer")
	}
	return r.offer(), nil
}

func (repo *offerRepository) QueryOffers(ctx context.Context, filter offer.QueryFilter) ([]offer.Offer, error) {
	b := psql.Select(offerColumns...).From("discount_offers")
	if filter.VendorID != "" {
		b = b.Where(sq.Eq{"vendor_id": filter.VendorID})
	}
	if filter.RedeemableAt.Valid {
		b = b.Where(sq.Eq{"is_active": true}).
			Where(sq.GtOrEq{"valid_until": filter.RedeemableAt.Time.UTC()}).
			OrderBy("valid_until DESC")
	} else {
		b = b.OrderBy("created_at DESC")
	}

	var rows []offerRow
	if err := selectAll(ctx, repo.db, &rows, b); err != nil {
		return nil, errors.Wrap(err, "querying offers")
	}
	offers := make([]offer.Offer, 0, len(rows))
	for _, r := range rows {
		offers = append(offers, r.offer())
	}
	return offers, nil
}

func (repo *offerRepository) UpdateOffer(ctx context.Context, o offer.Offer) (offer.Offer, error) {
	r := newOfferRow(o)
	b := psql.Update("discount_offers").
		SetMap(r.setMap()).
		Where(sq.Eq{"id": r.ID}).
		Suffix("RETURNING current_uses")

	query, args, err := b.ToSql()
	if err != nil {
		return offer.Offer{}, errors.Wrap(err, "building query")
	}
	if err = repo.db.QueryRowxContext(ctx, query, args...).Scan(&r.CurrentUses); err != nil {
		return offer.Offer{}, trapNoRowsErr(err, offer.ErrNotFound, "updating offer")
	}
	return r.offer(), nil
}

// DeleteOffer relies on the foreign keys to delete QR codes and redemptions.
func (repo *offerRepository) DeleteOffer(ctx context.Context, id string) error {
	n, err := exec(ctx, repo.db, psql.Delete("discount_offers").Where(sq.Eq{"id": id}))
	if err != nil {
		return errors.Wrap(err, "deleting offer")
	}
	if n == 0 {
		return offer.ErrNotFound
	}
	return nil
}

func (repo *offerRepository) CreateQRCode(ctx context.Context, qr offer.QRCode) (offer.QRCode, error) {
	return insertQRCode(ctx, repo.db, qr)
}

func (repo *offerRepository) GetQRCode(ctx context.Context, id string) (offer.QRCode, error) {
	if _, err := uuid.Parse(id); err != nil {
		return offer.QRCode{}, offer.ErrQRCodeNotFound
	}
	var r qrCodeRow
	if err := get(ctx, repo.db, &r, psql.Select(qrCodeColumns...).From("qr_codes").Where(sq.Eq{"id": id})); err != nil {
		return offer.QRCode{}, trapNoRowsErr(err, offer.ErrQRCodeNotFound, "finding QR code")
	}
	return r.qrCode(), nil
}

func (repo *offerRepository) UpdateQRCode(ctx context.Context, qr offer.QRCode) (offer.QRCode, error) {
	n, err := exec(ctx, repo.db, psql.Update("qr_codes").Set("is_active", qr.IsActive).Where(sq.Eq{"id": qr.ID}))
	if err != nil {
		return offer.QRCode{}, errors.Wrap(err, "updating QR code")
	}
	if n == 0 {
		return offer.QRCode{}, offer.ErrQRCodeNotFound
	}
	return qr, nil
}

func (repo *offerRepository) QueryQRCodes(ctx context.Context, vendorID string) ([]offer.QRCode, error) {
	b := psql.Select(qrCodeColumns...).From("qr_codes").Where(sq.Eq{"vendor_id": vendorID}).OrderBy("created_at DESC")

	var rows []qrCodeRow
	if err := selectAll(ctx, repo.db, &rows, b); err != nil {
		return nil, errors.Wrap(err, "querying QR codes")
	}
	qrs := make([]offer.QRCode, 0, len(rows))
	for _, r := range rows {
		qrs = append(qrs, r.qrCode())
	}
	return qrs, nil
}
