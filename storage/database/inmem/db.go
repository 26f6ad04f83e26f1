// Package inmemdb keeps every table in memory. It backs the tests and local runs without Postgres.
package inmemdb

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/AliArsalanSiddiqui/v0-student-save-website-build/core"
	"github.com/AliArsalanSiddiqui/v0-student-save-website-build/core/activity"
	"github.com/AliArsalanSiddiqui/v0-student-save-website-build/core/announcement"
	"github.com/AliArsalanSiddiqui/v0-student-save-website-build/core/offer"
	"github.com/AliArsalanSiddiqui/v0-student-save-website-build/core/profile"
	"github.com/AliArsalanSiddiqui/v0-student-save-website-build/core/redemption"
	"github.com/AliArsalanSiddiqui/v0-student-save-website-build/core/subscription"
	"github.com/AliArsalanSiddiqui/v0-student-save-website-build/core/vendor"
)

type favoriteKey struct {
	userID   string
	vendorID string
}

// DB holds all the tables behind a single lock, so that operations spanning tables are atomic.
type DB struct {
	mutex sync.RWMutex

	profiles      map[string]profile.Profile
	vendors       map[string]vendor.Vendor
	favorites     map[favoriteKey]time.Time
	offers        map[string]offer.Offer
	qrCodes       map[string]offer.QRCode
	plans         map[string]subscription.Plan
	subscriptions map[string]subscription.Subscription
	redemptions   map[string]redemption.Redemption
	announcements map[string]announcement.Announcement
	logs          []activity.Log
}

func Open() *DB {
	return &DB{
		profiles:      make(map[string]profile.Profile),
		vendors:       make(map[string]vendor.Vendor),
		favorites:     make(map[favoriteKey]time.Time),
		offers:        make(map[string]offer.Offer),
		qrCodes:       make(map[string]offer.QRCode),
		plans:         make(map[string]subscription.Plan),
		subscriptions: make(map[string]subscription.Subscription),
		redemptions:   make(map[string]redemption.Redemption),
		announcements: make(map[string]announcement.Announcement),
	}
}

func newID() string {
	return uuid.New().String()
}

// comparators compare two items on a field, like strings.Compare.
type comparators[T any] map[string]func(a, b T) int

// sortItems sorts items on the known fields of ordering, then on fallback.
func sortItems[T any](items []T, ordering []core.DBOrdering, cmps comparators[T], fallback func(a, b T) bool) {
	sort.SliceStable(items, func(i, j int) bool {
		for _, ord := range ordering {
			cmp, ok := cmps[ord.Field]
			if !ok {
				continue
			}
			if c := cmp(items[i], items[j]); c != 0 {
				if ord.Ascending {
					return c < 0
				}
				return c > 0
			}
		}
		return fallback(items[i], items[j])
	})
}
