package inmemdb

import (
	"context"
	"strings"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/AliArsalanSiddiqui/v0-student-save-website-build/core"
	"github.com/AliArsalanSiddiqui/v0-student-save-website-build/core/profile"
)

var profileComparators = comparators[profile.Profile]{
	"name":       func(a, b profile.Profile) int { return strings.Compare(a.FullName, b.FullName) },
	"email":      func(a, b profile.Profile) int { return strings.Compare(a.Email, b.Email) },
	"university": func(a, b profile.Profile) int { return strings.Compare(a.University, b.University) },
	"created_at": func(a, b profile.Profile) int { return a.CreatedAt.Compare(b.CreatedAt) },
	"last_login": func(a, b profile.Profile) int { return a.LastLogin.Time.Compare(b.LastLogin.Time) },
}

type profileRepository struct {
	db *DB
}

var _ profile.Repository = (*profileRepository)(nil) // interface compliance check

func NewProfileRepository(db *DB) profile.Repository {
	return &profileRepository{db: db}
}

func (repo *profileRepository) checkEmail(email string, excludedIDs ...string) error {
	for _, p := range repo.db.profiles {
		if p.Email != email {
			continue
		}
		excluded := false
		for _, id := range excludedIDs {
			if p.ID == id {
				excluded = true
				break
			}
		}
		if !excluded {
			return profile.ErrEmailExists
		}
	}
	return nil
}

func (repo *profileRepository) CheckEmailUniqueness(_ context.Context, email string, excludedIDs ...string) error {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return repo.checkEmail(email, excludedIDs...)
}

func (repo *profileRepository) CreateProfile(_ context.Context, p profile.Profile) (profile.Profile, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if err := repo.checkEmail(p.Email); err != nil {
		return profile.Profile{}, err
	}
	p.ID = newID()
	repo.db.profiles[p.ID] = p
	return p, nil
}

func (repo *profileRepository) GetProfile(_ context.Context, filter profile.GetFilter) (profile.Profile, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if filter.ID != "" {
		if p, ok := repo.db.profiles[filter.ID]; ok {
			return p, nil
		}
		return profile.Profile{}, profile.ErrNotFound
	}
	if filter.Email != "" {
		for _, p := range repo.db.profiles {
			if p.Email == filter.Email {
				return p, nil
			}
		}
	}
	return profile.Profile{}, profile.ErrNotFound
}

func (repo *profileRepository) QueryProfiles(_ context.Context, filter *profile.QueryFilter, ordering []core.DBOrdering) ([]profile.Profile, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	profiles := make([]profile.Profile, 0, len(repo.db.profiles))
	for _, p := range repo.db.profiles {
		if filter != nil {
			if filter.Search != "" && !containsFold(filter.Search, p.FullName, p.Email, p.StudentID.String) {
				continue
			}
			if filter.UserType != "" && p.UserType != filter.UserType {
				continue
			}
			if filter.IsVerified != nil && p.IsVerified != *filter.IsVerified {
				continue
			}
		}
		profiles = append(profiles, p)
	}

	sortItems(profiles, ordering, profileComparators, func(a, b profile.Profile) bool {
		return a.CreatedAt.After(b.CreatedAt)
	})
	return profiles, nil
}

func (repo *profileRepository) UpdateProfile(_ context.Context, p profile.Profile) (profile.Profile, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.profiles[p.ID]; !ok {
		return profile.Profile{}, profile.ErrNotFound
	}
	if err := repo.checkEmail(p.Email, p.ID); err != nil {
		return profile.Profile{}, err
	}
	repo.db.profiles[p.ID] = p
	return p, nil
}

func (repo *profileRepository) UpdateDetails(_ context.Context, p profile.Profile) (profile.Profile, error) {
	return repo.update(p.ID, func(stored *profile.Profile) {
		stored.FullName = p.FullName
		stored.University = p.University
		stored.StudentID = p.StudentID
		stored.PhoneNumber = p.PhoneNumber
		stored.DateOfBirth = p.DateOfBirth
		stored.Gender = p.Gender
		stored.UpdatedAt = p.UpdatedAt
	})
}

func (repo *profileRepository) SetLastLogin(_ context.Context, id string, at time.Time) error {
	_, err := repo.update(id, func(stored *profile.Profile) {
		stored.LastLogin = null.TimeFrom(at)
	})
	return err
}

func (repo *profileRepository) SetPassword(_ context.Context, id string, hash []byte, at time.Time) error {
	_, err := repo.update(id, func(stored *profile.Profile) {
		stored.PasswordHash = hash
		stored.UpdatedAt = at
	})
	return err
}

func (repo *profileRepository) SetVerified(_ context.Context, id string, verified bool, at time.Time) (profile.Profile, error) {
	return repo.update(id, func(stored *profile.Profile) {
		stored.IsVerified = verified
		stored.UpdatedAt = at
	})
}

func (repo *profileRepository) MarkEmailVerified(_ context.Context, id string, at time.Time) (profile.Profile, error) {
	return repo.update(id, func(stored *profile.Profile) {
		stored.EmailVerified = true
		stored.IsVerified = true
		stored.UpdatedAt = at
	})
}

func (repo *profileRepository) update(id string, change func(stored *profile.Profile)) (profile.Profile, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	p, ok := repo.db.profiles[id]
	if !ok {
		return profile.Profile{}, profile.ErrNotFound
	}
	change(&p)
	repo.db.profiles[id] = p
	return p, nil
}

// containsFold reports whether any of the values contains the search term, ignoring case.
func containsFold(search string, values ...string) bool {
	search = strings.ToLower(search)
	for _, v := range values {
		if strings.Contains(strings.ToLower(v), search) {
			return true
		}
	}
	return false
}
