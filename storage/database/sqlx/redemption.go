package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"

	"github.com/AliArsalanSiddiqui/v0-student-save-website-build/core"
	"github.com/AliArsalanSiddiqui/v0-student-save-website-build/core/redemption"
)

var redemptionColumns = []string{
	"id", "user_id", "discount_offer_id", "qr_code_id", "vendor_id", "discount_amount", "idempotency_key", "redeemed_at",
}

type receiptRow struct {
	ID             string          `db:"id"`
	UserID         string          `db:"user_id"`
	OfferID        string          `db:"discount_offer_id"`
	QRCodeID       string          `db:"qr_code_id"`
	VendorID       string          `db:"vendor_id"`
	DiscountAmount decimal.Decimal `db:"discount_amount"`
	IdempotencyKey null.String     `db:"idempotency_key"`
	RedeemedAt     time.Time       `db:"redeemed_at"`
	OfferTitle     string          `db:"offer_title"`
	DiscountType   string          `db:"discount_type"`
	VendorName     string          `db:"vendor_name"`
	StudentName    string          `db:"student_name"`
}

func (r receiptRow) receipt() redemption.Receipt {
	return redemption.Receipt{
		Redemption: redemption.Redemption{
			ID:             r.ID,
			UserID:         r.UserID,
			OfferID:        r.OfferID,
			QRCodeID:       r.QRCodeID,
			VendorID:       r.VendorID,
			DiscountAmount: r.DiscountAmount,
			IdempotencyKey: r.IdempotencyKey,
			RedeemedAt:     r.RedeemedAt.UTC(),
		},
		OfferTitle:   r.OfferTitle,
		DiscountType: r.DiscountType,
		VendorName:   r.VendorName,
		StudentName:  r.StudentName,
	}
}

type redemptionRepository struct {
	db *sqlx.DB
}

var _ redemption.Repository = (*redemptionRepository)(nil) // interface compliance check

func NewRedemptionRepository(db *sqlx.DB) redemption.Repository {
	return &redemptionRepository{db: db}
}

func (repo *redemptionRepository) selectReceipts() sq.SelectBuilder {
	cols := make([]string, 0, len(redemptionColumns)+4)
	for _, c := range redemptionColumns {
		cols = append(cols, "discount_redemptions."+c)
	}
	cols = append(cols,
		"discount_offers.title AS offer_title",
		"discount_offers.discount_type",
		"vendors.name AS vendor_name",
		"profiles.full_name AS student_name",
	)
	return psql.Select(cols...).
		From("discount_redemptions").
		Join("discount_offers ON discount_offers.id = discount_redemptions.discount_offer_id").
		Join("vendors ON vendors.id = discount_redemptions.vendor_id").
		Join("profiles ON profiles.id = discount_redemptions.user_id")
}

func (repo *redemptionRepository) getReceipt(ctx context.Context, q sqlx.QueryerContext, where sq.Eq) (redemption.Receipt, error) {
	var r receiptRow
	if err := get(ctx, q, &r, repo.selectReceipts().Where(where)); err != nil {
		return redemption.Receipt{}, err
	}
	return r.receipt(), nil
}

// Redeem locks the offer row, so concurrent redemptions of the same offer run one after the other.
func (repo *redemptionRepository) Redeem(ctx context.Context, userID string, req redemption.RedeemRequest) (redemption.Receipt, error) {
	var (
		rcpt     redemption.Receipt
		replayed bool
		id       = uuid.New().String()
	)

	err := withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		var qr qrCodeRow
		err := get(ctx, tx, &qr, psql.Select(qrCodeColumns...).From("qr_codes").
			Where(sq.Eq{"qr_code_data": req.Code, "is_active": true}))
		if err != nil {
			return trapNoRowsErr(err, redemption.ErrInvalidCode, "finding QR code")
		}

		var o offerRow
		err = get(ctx, tx, &o, psql.Select(offerColumns...).From("discount_offers").
			Where(sq.Eq{"id": qr.OfferID}).
			Suffix("FOR UPDATE"))
		if err != nil {
			return trapNoRowsErr(err, redemption.ErrInvalidCode, "locking offer")
		}

		if req.IdempotencyKey != "" {
			rcpt, err = repo.getReceipt(ctx, tx, sq.Eq{
				"discount_redemptions.user_id":         userID,
				"discount_redemptions.idempotency_key": req.IdempotencyKey,
			})
			switch {
			case err == nil:
				replayed = true
				return nil
			case errors.Cause(err) != sql.ErrNoRows:
				return errors.Wrap(err, "finding redemption by idempotency key")
			}
		}

		now := core.Now()
		offr := o.offer()
		if err = offr.Redeemable(now); err != nil {
			return err
		}

		insert := psql.Insert("discount_redemptions").Columns(redemptionColumns...).Values(
			id, userID, offr.ID, qr.ID, offr.VendorID, offr.DiscountAmount(),
			null.NewString(req.IdempotencyKey, req.IdempotencyKey != ""), now,
		)
		if _, err = exec(ctx, tx, insert); err != nil {
			return errors.Wrap(err, "inserting redemption")
		}

		incr := psql.Update("discount_offers").Set("current_uses", sq.Expr("current_uses + 1")).Where(sq.Eq{"id": offr.ID})
		if _, err = exec(ctx, tx, incr); err != nil {
			return errors.Wrap(err, "counting offer use")
		}
		return nil
	})

	if err != nil {
		// the same key was used at the same time on another offer
		if isUniqueViolation(err) && req.IdempotencyKey != "" {
			rcpt, err = repo.getReceipt(ctx, repo.db, sq.Eq{
				"discount_redemptions.user_id":         userID,
				"discount_redemptions.idempotency_key": req.IdempotencyKey,
			})
			if err != nil {
				return redemption.Receipt{}, errors.Wrap(err, "finding redemption by idempotency key")
			}
			rcpt.Replayed = true
			return rcpt, nil
		}
		return redemption.Receipt{}, err
	}
	if replayed {
		rcpt.Replayed = true
		return rcpt, nil
	}

	rcpt, err = repo.getReceipt(ctx, repo.db, sq.Eq{"discount_redemptions.id": id})
	if err != nil {
		return redemption.Receipt{}, errors.Wrap(err, "finding redemption")
	}
	return rcpt, nil
}

func (repo *redemptionRepository) QueryReceipts(ctx context.Context, filter redemption.QueryFilter) ([]redemption.Receipt, error) {
	b := repo.selectReceipts().OrderBy("discount_redemptions.redeemed_at DESC")
	if filter.UserID != "" {
		if _, err := uuid.Parse(filter.UserID); err != nil {
			return []redemption.Receipt{}, nil
		}
		b = b.Where(sq.Eq{"discount_redemptions.user_id": filter.UserID})
	}
	if filter.Limit > 0 {
		b = b.Limit(uint64(filter.Limit))
	}

	var rows []receiptRow
	if err := selectAll(ctx, repo.db, &rows, b); err != nil {
		return nil, errors.Wrap(err, "querying redemptions")
	}
	receipts := make([]redemption.Receipt, 0, len(rows))
	for _, r := range rows {
		receipts = append(receipts, r.receipt())
	}
	return receipts, nil
}

func (repo *redemptionRepository) CountRedemptions(ctx context.Context, userID string) (int, error) {
	b := psql.Select("COUNT(*)").From("discount_redemptions")
	if userID != "" {
		b = b.Where(sq.Eq{"user_id": userID})
	}
	n, err := count(ctx, repo.db, b)
	if err != nil {
		return 0, errors.Wrap(err, "counting redemptions")
	}
	return n, nil
}
