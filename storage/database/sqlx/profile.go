package sqlxrepos

import (
	"context"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/AliArsalanSiddiqui/v0-student-save-website-build/core"
	"github.com/AliArsalanSiddiqui/v0-student-save-website-build/core/profile"
)

var profileColumns = []string{
	"id", "email", "full_name", "university", "student_id", "phone_number", "date_of_birth", "gender",
	"user_type", "is_verified", "email_verified", "is_active", "password_hash", "created_at", "updated_at", "last_login",
}

type profileRow struct {
	ID            string      `db:"id"`
	Email         string      `db:"email"`
	FullName      string      `db:"full_name"`
	University    string      `db:"university"`
	StudentID     null.String `db:"student_id"`
	PhoneNumber   null.String `db:"phone_number"`
	DateOfBirth   null.Time   `db:"date_of_birth"`
	Gender        null.String `db:"gender"`
	UserType      string      `db:"user_type"`
	IsVerified    bool        `db:"is_verified"`
	EmailVerified bool        `db:"email_verified"`
	IsActive      bool        `db:"is_active"`
	PasswordHash  []byte      `db:"password_hash"`
	CreatedAt     time.Time   `db:"created_at"`
	UpdatedAt     time.Time   `db:"updated_at"`
	LastLogin     null.Time   `db:"last_login"`
}

func newProfileRow(p profile.Profile) profileRow {
	return profileRow{
		ID:            p.ID,
		Email:         p.Email,
		FullName:      p.FullName,
		University:    p.University,
		StudentID:     p.StudentID,
		PhoneNumber:   p.PhoneNumber,
		DateOfBirth:   p.DateOfBirth,
		Gender:        p.Gender,
		UserType:      p.UserType,
		IsVerified:    p.IsVerified,
		EmailVerified: p.EmailVerified,
		IsActive:      p.IsActive,
		PasswordHash:  p.PasswordHash,
		CreatedAt:     p.CreatedAt.UTC(),
		UpdatedAt:     p.UpdatedAt.UTC(),
		LastLogin:     p.LastLogin,
	}
}

func (r profileRow) setMap() map[string]interface{} {
	return map[string]interface{}{
		"email":          r.Email,
		"full_name":      r.FullName,
		"university":     r.University,
		"student_id":     r.StudentID,
		"phone_number":   r.PhoneNumber,
		"date_of_birth":  r.DateOfBirth,
		"gender":         r.Gender,
		"user_type":      r.UserType,
		"is_verified":    r.IsVerified,
		"email_verified": r.EmailVerified,
		"is_active":      r.IsActive,
		"password_hash":  r.PasswordHash,
		"created_at":     r.CreatedAt,
		"updated_at":     r.UpdatedAt,
		"last_login":     r.LastLogin,
	}
}

func (r profileRow) profile() profile.Profile {
	return profile.Profile{
		ID:            r.ID,
		Email:         r.Email,
		FullName:      r.FullName,
		University:    r.University,
		StudentID:     r.StudentID,
		PhoneNumber:   r.PhoneNumber,
		DateOfBirth:   r.DateOfBirth,
		Gender:        r.Gender,
		UserType:      r.UserType,
		IsVerified:    r.IsVerified,
		EmailVerified: r.EmailVerified,
		IsActive:      r.IsActive,
		PasswordHash:  r.PasswordHash,
		CreatedAt:     r.CreatedAt.UTC(),
		UpdatedAt:     r.UpdatedAt.UTC(),
		LastLogin:     r.LastLogin,
	}
}

type profileRepository struct {
	db *sqlx.DB
}

var _ profile.Repository = (*profileRepository)(nil) // interface compliance check

func NewProfileRepository(db *sqlx.DB) profile.Repository {
	return &profileRepository{db: db}
}

func (repo *profileRepository) CheckEmailUniqueness(ctx context.Context, email string, excludedIDs ...string) error {
	b := psql.Select("COUNT(*)").From("profiles").Where(sq.Eq{"email": email})
	if len(excludedIDs) > 0 {
		b = b.Where(sq.NotEq{"id": excludedIDs})
	}
	n, err := count(ctx, repo.db, b)
	if err != nil {
		return errors.Wrap(err, "checking email uniqueness")
	}
	if n > 0 {
		return profile.ErrEmailExists
	}
	return nil
}

func (repo *profileRepository) CreateProfile(ctx context.Context, p profile.Profile) (profile.Profile, error) {
	p.ID = uuid.New().String()
	r := newProfileRow(p)
	vals := r.setMap()
	vals["id"] = r.ID
	_, err := exec(ctx, repo.db, psql.Insert("profiles").SetMap(vals))
	if err != nil {
		if isUniqueViolation(err) {
			return profile.Profile{}, profile.ErrEmailExists
		}
		return profile.Profile{}, errors.Wrap(err, "inserting profile")
	}
	return r.profile(), nil
}

func (repo *profileRepository) GetProfile(ctx context.Context, filter profile.GetFilter) (profile.Profile, error) {
	b := psql.Select(profileColumns...).From("profiles")
	switch {
	case filter.ID != "":
		if _, err := uuid.Parse(filter.ID); err != nil {
			return profile.Profile{}, profile.ErrNotFound
		}
		b = b.Where(sq.Eq{"id": filter.ID})
	case filter.Email != "":
		b = b.Where(sq.Eq{"email": filter.Email})
	default:
		return profile.Profile{}, profile.ErrNotFound
	}

	var r profileRow
	if err := get(ctx, repo.db, &r, b); err != nil {
		return profile.Profile{}, trapNoRowsErr(err, profile.ErrNotFound, "finding profile")
	}
	return r.profile(), nil
}

func (repo *profileRepository) QueryProfiles(ctx context.Context, filter *profile.QueryFilter, ordering []core.DBOrdering) ([]profile.Profile, error) {
	b := psql.Select(profileColumns...).From("profiles")

	if filter != nil {
		// profiles with name, email or student ID matching the search keyword
		if filter.Search != "" {
			val := "%" + filter.Search + "%"
			b = b.Where(sq.Or{
				sq.ILike{"full_name": val},
				sq.ILike{"email": val},
				sq.ILike{"student_id": val},
			})
		}
		if filter.UserType != "" {
			b = b.Where(sq.Eq{"user_type": filter.UserType})
		}
		if filter.IsVerified != nil {
			b = b.Where(sq.Eq{"is_verified": *filter.IsVerified})
		}
	}
	b = b.OrderBy(core.OrderByClauses(ordering, profile.OrderingFields, core.DBOrdering{Field: "created_at"})...)

	var rows []profileRow
	if err := selectAll(ctx, repo.db, &rows, b); err != nil {
		return nil, errors.Wrap(err, "querying profiles")
	}
	profiles := make([]profile.Profile, 0, len(rows))
	for _, r := range rows {
		profiles = append(profiles, r.profile())
	}
	return profiles, nil
}

func (repo *profileRepository) UpdateProfile(ctx context.Context, p profile.Profile) (profile.Profile, error) {
	r := newProfileRow(p)
	n, err := exec(ctx, repo.db, psql.Update("profiles").SetMap(r.setMap()).Where(sq.Eq{"id": r.ID}))
	if err != nil {
		if isUniqueViolation(err) {
			return profile.Profile{}, profile.ErrEmailExists
		}
		return profile.Profile{}, errors.Wrap(err, "updating profile")
	}
	if n == 0 {
		return profile.Profile{}, profile.ErrNotFound
	}
	return r.profile(), nil
}

func (repo *profileRepository) UpdateDetails(ctx context.Context, p profile.Profile) (profile.Profile, error) {
	r := newProfileRow(p)
	return repo.update(ctx, r.ID, map[string]interface{}{
		"full_name":     r.FullName,
		"university":    r.University,
		"student_id":    r.StudentID,
		"phone_number":  r.PhoneNumber,
		"date_of_birth": r.DateOfBirth,
		"gender":        r.Gender,
		"updated_at":    r.UpdatedAt,
	})
}

func (repo *profileRepository) SetLastLogin(ctx context.Context, id string, at time.Time) error {
	_, err := repo.update(ctx, id, map[string]interface{}{"last_login": at.UTC()})
	return err
}

func (repo *profileRepository) SetPassword(ctx context.Context, id string, hash []byte, at time.Time) error {
	_, err := repo.update(ctx, id, map[string]interface{}{"password_hash": hash, "updated_at": at.UTC()})
	return err
}

func (repo *profileRepository) SetVerified(ctx context.Context, id string, verified bool, at time.Time) (profile.Profile, error) {
	return repo.update(ctx, id, map[string]interface{}{"is_verified": verified, "updated_at": at.UTC()})
}

func (repo *profileRepository) MarkEmailVerified(ctx context.Context, id string, at time.Time) (profile.Profile, error) {
	return repo.update(ctx, id, map[string]interface{}{"email_verified": true, "is_verified": true, "updated_at": at.UTC()})
}

// update writes only the given columns and returns the updated profile.
func (repo *profileRepository) update(ctx context.Context, id string, vals map[string]interface{}) (profile.Profile, error) {
	if _, err := uuid.Parse(id); err != nil {
		return profile.Profile{}, profile.ErrNotFound
	}
	b := psql.Update("profiles").
		SetMap(vals).
		Where(sq.Eq{"id": id}).
		Suffix("RETURNING " + strings.Join(profileColumns, ", "))

	var r profileRow
	if err := get(ctx, repo.db, &r, b); err != nil {
		return profile.Profile{}, trapNoRowsErr(err, profile.ErrNotFound, "updating profile")
	}
	return r.profile(), nil
}
