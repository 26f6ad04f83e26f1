package inmemdb_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AliArsalanSiddiqui/v0-student-save-website-build/core/offer"
	"github.com/AliArsalanSiddiqui/v0-student-save-website-build/core/redemption"
	"github.com/AliArsalanSiddiqui/v0-student-save-website-build/core/vendor"
	inmemdb "github.com/AliArsalanSiddiqui/v0-student-save-website-build/storage/database/inmem"
	testutil "github.com/AliArsalanSiddiqui/v0-student-save-website-build/tests"
)

type repos struct {
	db         *inmemdb.DB
	vendorID   string
	studentIDs []string
}

func setup(t *testing.T, students int) repos {
	db := inmemdb.Open()
	profileRepo := inmemdb.NewProfileRepository(db)
	r := repos{db: db}
	r.vendorID = testutil.CreateVendor(t, inmemdb.NewVendorRepository(db), "Chai Wala", vendor.CategoryCafe, true).ID
	for i := 0; i < students; i++ {
		p := testutil.CreateStudent(t, profileRepo, "Student", "s"+string(rune('a'+i))+"@test.pk", "", true)
		r.studentIDs = append(r.studentIDs, p.ID)
	}
	return r
}

func TestRedeem_concurrentUsesNeverExceedMax(t *testing.T) {
	r := setup(t, 20)
	offerRepo := inmemdb.NewOfferRepository(r.db)
	repo := inmemdb.NewRedemptionRepository(r.db)

	now := time.Now()
	o, qr := testutil.CreateOffer(t, offerRepo, r.vendorID, 5, now.Add(-time.Hour), now.Add(time.Hour))

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		exhausted int
	)
	for _, id := range r.studentIDs {
		wg.Add(1)
		go func(userID string) {
			defer wg.Done()
			_, err := repo.Redeem(context.Background(), userID, redemption.RedeemRequest{Code: qr.Data})

			mu.Lock()
			defer mu.Unlock()
			switch err {
			case nil:
				succeeded++
			case offer.ErrMaxUsesReached:
				exhausted++
			default:
				t.Errorf("Redeem() unexpected error = %v", err)
			}
		}(id)
	}
	wg.Wait()

	assert.Equal(t, 5, succeeded)
	assert.Equal(t, 15, exhausted)

	got, err := offerRepo.GetOffer(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.CurrentUses)

	n, err := repo.CountRedemptions(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, 5, n)
}

func TestRedeem_idempotencyKey(t *testing.T) {
	r := setup(t, 2)
	offerRepo := inmemdb.NewOfferRepository(r.db)
	repo := inmemdb.NewRedemptionRepository(r.db)
	ctx := context.Background()

	now := time.Now()
	o, qr := testutil.CreateOffer(t, offerRepo, r.vendorID, 10, now.Add(-time.Hour), now.Add(time.Hour))
	req := redemption.RedeemRequest{Code: qr.Data, IdempotencyKey: "scan-1"}

	first, err := repo.Redeem(ctx, r.studentIDs[0], req)
	require.NoError(t, err)
	assert.False(t, first.Replayed)
	assert.Equal(t, "Chai Wala", first.VendorName)
	assert.Equal(t, "Student", first.StudentName)

	again, err := repo.Redeem(ctx, r.studentIDs[0], req)
	require.NoError(t, err)
	assert.True(t, again.Replayed)
	assert.Equal(t, first.ID, again.ID)

	// keys are scoped to the student
	other, err := repo.Redeem(ctx, r.studentIDs[1], req)
	require.NoError(t, err)
	assert.False(t, other.Replayed)
	assert.NotEqual(t, first.ID, other.ID)

	got, err := offerRepo.GetOffer(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.CurrentUses)
}

func TestRedeem_errors(t *testing.T) {
	r := setup(t, 1)
	offerRepo := inmemdb.NewOfferRepository(r.db)
	repo := inmemdb.NewRedemptionRepository(r.db)
	ctx := context.Background()
	now := time.Now()

	_, expired := testutil.CreateOffer(t, offerRepo, r.vendorID, 10, now.Add(-2*time.Hour), now.Add(-time.Hour))
	_, inactiveQR := testutil.CreateOffer(t, offerRepo, r.vendorID, 10, now.Add(-time.Hour), now.Add(time.Hour))
	inactiveQR.IsActive = false
	_, err := offerRepo.UpdateQRCode(ctx, inactiveQR)
	require.NoError(t, err)

	tests := []struct {
		name    string
		code    string
		wantErr error
	}{
		{name: "unknown code", code: "SSQR-NOPE", wantErr: redemption.ErrInvalidCode},
		{name: "inactive code", code: inactiveQR.Data, wantErr: redemption.ErrInvalidCode},
		{name: "expired offer", code: expired.Data, wantErr: offer.ErrOfferExpired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := repo.Redeem(ctx, r.studentIDs[0], redemption.RedeemRequest{Code: tt.code})
			assert.Equal(t, tt.wantErr, err)
		})
	}
}
