package sqlxrepos_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AliArsalanSiddiqui/v0-student-save-website-build/core"
	"github.com/AliArsalanSiddiqui/v0-student-save-website-build/core/subscription"
	sqlxrepos "github.com/AliArsalanSiddiqui/v0-student-save-website-build/storage/database/sqlx"
	testutil "github.com/AliArsalanSiddiqui/v0-student-save-website-build/tests"
)

func TestReplaceActiveSubscription(t *testing.T) {
	db := testutil.PrepareDB(t)
	ctx := context.Background()

	repo := sqlxrepos.NewSubscriptionRepository(db)
	testutil.SeedPlans(t, repo)
	profileRepo := sqlxrepos.NewProfileRepository(db)

	newSub := func(userID, planID string) subscription.Subscription {
		now := core.Now()
		return subscription.Subscription{
			UserID:        userID,
			PlanID:        planID,
			StartDate:     now,
			EndDate:       now.Add(7 * 24 * time.Hour),
			IsActive:      true,
			PaymentStatus: subscription.PaymentCompleted,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
	}

	t.Run("concurrent subscribes create one subscription", func(t *testing.T) {
		student := testutil.CreateStudent(t, profileRepo, "Ali", "ali@test.pk", "", true)

		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			succeeded int
		)
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := repo.ReplaceActiveSubscription(ctx, newSub(student.ID, subscription.PlanFree))

				mu.Lock()
				defer mu.Unlock()
				switch err {
				case nil:
					succeeded++
				case subscription.ErrAlreadySubscribed, subscription.ErrTrialUsed:
				default:
					t.Errorf("ReplaceActiveSubscription() unexpected error = %v", err)
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, 1, succeeded)

		revenue, err := repo.Revenue(ctx)
		require.NoError(t, err)
		assert.True(t, revenue.IsZero())
	})

	t.Run("free trial only once", func(t *testing.T) {
		student := testutil.CreateStudent(t, profileRepo, "Sara", "sara@test.pk", "", true)

		_, err := repo.ReplaceActiveSubscription(ctx, newSub(student.ID, subscription.PlanFree))
		require.NoError(t, err)
		_, err = repo.ReplaceActiveSubscription(ctx, newSub(student.ID, subscription.PlanMonthly))
		require.NoError(t, err)
		_, err = repo.ReplaceActiveSubscription(ctx, newSub(student.ID, subscription.PlanMonthly))
		assert.Equal(t, subscription.ErrAlreadySubscribed, err)
		_, err = repo.ReplaceActiveSubscription(ctx, newSub(student.ID, subscription.PlanFree))
		assert.Equal(t, subscription.ErrTrialUsed, err)
	})
}
