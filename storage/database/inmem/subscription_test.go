package inmemdb_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AliArsalanSiddiqui/v0-student-save-website-build/core"
	"github.com/AliArsalanSiddiqui/v0-student-save-website-build/core/subscription"
	inmemdb "github.com/AliArsalanSiddiqui/v0-student-save-website-build/storage/database/inmem"
	testutil "github.com/AliArsalanSiddiqui/v0-student-save-website-build/tests"
)

func newSubscription(userID, planID string, days int) subscription.Subscription {
	now := core.Now()
	return subscription.Subscription{
		UserID:        userID,
		PlanID:        planID,
		StartDate:     now,
		EndDate:       now.Add(time.Duration(days) * 24 * time.Hour),
		IsActive:      true,
		PaymentStatus: subscription.PaymentCompleted,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func TestReplaceActiveSubscription_concurrent(t *testing.T) {
	tests := []struct {
		name    string
		planID  string
		wantErr error
	}{
		{name: "one free trial", planID: subscription.PlanFree, wantErr: subscription.ErrAlreadySubscribed},
		{name: "one paid plan", planID: subscription.PlanMonthly, wantErr: subscription.ErrAlreadySubscribed},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			r := setup(t, 1)
			repo := inmemdb.NewSubscriptionRepository(r.db)
			testutil.SeedPlans(t, repo)
			userID := r.studentIDs[0]

			var (
				wg        sync.WaitGroup
				mu        sync.Mutex
				succeeded int
				rejected  int
			)
			for i := 0; i < 10; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, err := repo.ReplaceActiveSubscription(context.Background(), newSubscription(userID, tt.planID, 7))

					mu.Lock()
					defer mu.Unlock()
					switch err {
					case nil:
						succeeded++
					case tt.wantErr:
						rejected++
					default:
						t.Errorf("ReplaceActiveSubscription() unexpected error = %v", err)
					}
				}()
			}
			wg.Wait()

			assert.Equal(t, 1, succeeded)
			assert.Equal(t, 9, rejected)

			n, err := repo.CountActiveSubscriptions(context.Background(), core.Now())
			require.NoError(t, err)
			assert.Equal(t, 1, n)
		})
	}
}

func TestReplaceActiveSubscription_switchPlan(t *testing.T) {
	r := setup(t, 1)
	repo := inmemdb.NewSubscriptionRepository(r.db)
	testutil.SeedPlans(t, repo)
	ctx := context.Background()
	userID := r.studentIDs[0]

	_, err := repo.ReplaceActiveSubscription(ctx, newSubscription(userID, subscription.PlanFree, 7))
	require.NoError(t, err)
	yearly, err := repo.ReplaceActiveSubscription(ctx, newSubscription(userID, subscription.PlanYearly, 365))
	require.NoError(t, err)

	current, err := repo.GetActiveSubscription(ctx, userID, core.Now())
	require.NoError(t, err)
	assert.Equal(t, yearly.ID, current.ID)

	_, err = repo.ReplaceActiveSubscription(ctx, newSubscription(userID, subscription.PlanFree, 7))
	assert.Equal(t, subscription.ErrTrialUsed, err)
}
