package profile

import (
	"context"
	"net/mail"
	"time"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/AliArsalanSiddiqui/v0-student-save-website-build/core"
	"github.com/AliArsalanSiddiqui/v0-student-save-website-build/core/activity"
)

var (
	// errors
	ErrNotFound             = errors.New("profile not found")
	ErrEmailExists          = errors.New("a user with this email already exists")
	ErrAlreadyVerified      = errors.New("email already verified")
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrAccountDeactivated   = errors.New("account deactivated")
)

type (
	Repository interface {
		CheckEmailUniqueness(ctx context.Context, email string, excludedIDs ...string) error
		CreateProfile(ctx context.Context, p Profile) (Profile, error)
		GetProfile(ctx context.Context, filter GetFilter) (Profile, error)
		QueryProfiles(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Profile, error)
		// UpdateProfile writes every column of p.
		UpdateProfile(ctx context.Context, p Profile) (Profile, error)
		// UpdateDetails writes the columns a user may change on their own profile.
		UpdateDetails(ctx context.Context, p Profile) (Profile, error)
		SetLastLogin(ctx context.Context, id string, at time.Time) error
		SetPassword(ctx context.Context, id string, hash []byte, at time.Time) error
		SetVerified(ctx context.Context, id string, verified bool, at time.Time) (Profile, error)
		// MarkEmailVerified sets both email_verified and is_verified.
		MarkEmailVerified(ctx context.Context, id string, at time.Time) (Profile, error)
	}

	Service interface {
		CheckEmailUniqueness(ctx context.Context, email string, exclProfiles ...Profile) error
		SignUp(ctx context.Context, ns NewStudent) (Profile, error)
		VerifyEmail(ctx context.Context, data VerifyEmail) (Profile, error)
		ResendVerification(ctx context.Context, email string) error
		Authenticate(ctx context.Context, email, pwd string) (Profile, error)
		RequestPasswordReset(ctx context.Context, email string) error
		ResetPassword(ctx context.Context, data ResetPassword) error
		GetByID(ctx context.Context, id string) (Profile, error)
		GetByEmail(ctx context.Context, email string) (Profile, error)
		UpdateOwn(ctx context.Context, id string, data UpdateProfile) (Profile, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Profile, error)
		SetVerified(ctx context.Context, actorID, studentID string, verified bool) (Profile, error)
		SaveAdmin(ctx context.Context, email, name, pwd string) (Profile, error)
		SetPassword(ctx context.Context, email, pwd string) error
	}

	service struct {
		repo        Repository
		mailSvc     core.EmailService
		activitySvc activity.Service
		resetTokens tokenGenerator
		emailTokens tokenGenerator
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, mailSvc core.EmailService, activitySvc activity.Service, conf *core.Config) Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(mailSvc, "mailSvc"),
		vala.IsNotNil(activitySvc, "activitySvc"),
		vala.IsNotNil(conf, "conf"),
	).CheckAndPanic()

	return &service{
		repo:        repo,
		mailSvc:     mailSvc,
		activitySvc: activitySvc,
		resetTokens: newPasswordResetTokenGenerator(conf.SecretKey, conf.PasswordResetTimeoutDelta),
		emailTokens: newEmailVerificationTokenGenerator(conf.SecretKey, conf.EmailVerificationTimeoutDelta),
	}
}

func (svc *service) CheckEmailUniqueness(ctx context.Context, email string, exclProfiles ...Profile) error {
	ids := make([]string, 0, len(exclProfiles))
	for _, p := range exclProfiles {
		ids = append(ids, p.ID)
	}
	if err := svc.repo.CheckEmailUniqueness(ctx, email, ids...); err != nil {
		if errors.Cause(err) == ErrEmailExists {
			return emailExistsError()
		}
		return errors.Wrap(err, "checking email uniqueness")
	}
	return nil
}

func emailExistsError() error {
	return core.NewValidationError(ErrEmailExists, core.FieldError{Field: "email", Error: ErrEmailExists.Error()})
}

func (svc *service) SignUp(ctx context.Context, ns NewStudent) (Profile, error) {
	now := core.Now()
	p := Profile{
		Email:      ns.Email,
		FullName:   ns.FullName,
		University: ns.University,
		StudentID:  null.NewString(ns.StudentID, ns.StudentID != ""),
		UserType:   TypeStudent,
		IsActive:   true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := p.SetPassword(ns.Password); err != nil {
		return Profile{}, errors.Wrap(err, "setting password")
	}

	p, err := svc.repo.CreateProfile(ctx, p)
	if err != nil {
		// a concurrent sign up took the email after validation
		if errors.Cause(err) == ErrEmailExists {
			return Profile{}, emailExistsError()
		}
		return Profile{}, errors.Wrap(err, "creating profile")
	}

	svc.sendVerificationMail(p)
	svc.activitySvc.Record(ctx, activity.NewLog(p.ID, activity.ActionStudentSignedUp, activity.EntityProfile, p.ID, activity.Details{
		"email":      p.Email,
		"university": p.University,
	}))
	return p, nil
}

func (svc *service) VerifyEmail(ctx context.Context, data VerifyEmail) (Profile, error) {
	p, err := svc.getByUID(ctx, data.UID)
	if err != nil {
		return Profile{}, err
	}
	if p.EmailVerified {
		return Profile{}, ErrAlreadyVerified
	}
	if err = svc.emailTokens.verifyToken(p, data.Token); err != nil {
		return Profile{}, err
	}

	if p, err = svc.repo.MarkEmailVerified(ctx, p.ID, core.Now()); err != nil {
		return Profile{}, errors.Wrap(err, "updating profile")
	}

	svc.activitySvc.Record(ctx, activity.NewLog(p.ID, activity.ActionEmailVerified, activity.EntityProfile, p.ID, activity.Details{
		"email":       p.Email,
		"verified_at": p.UpdatedAt,
	}))
	return p, nil
}

func (svc *service) ResendVerification(ctx context.Context, email string) error {
	p, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if p.EmailVerified {
		return ErrAlreadyVerified
	}
	svc.sendVerificationMail(p)
	return nil
}

func (svc *service) Authenticate(ctx context.Context, email, pwd string) (Profile, error) {
	p, err := svc.GetByEmail(ctx, email)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return Profile{}, ErrAuthenticationFailed
		}
		return Profile{}, errors.Wrap(err, "finding profile by email")
	}
	if err = p.CheckPassword(pwd); err != nil {
		return Profile{}, ErrAuthenticationFailed
	}
	if !p.IsActive {
		return Profile{}, ErrAccountDeactivated
	}

	now := core.Now()
	if err = svc.repo.SetLastLogin(ctx, p.ID, now); err != nil {
		return Profile{}, errors.Wrap(err, "setting last login")
	}
	p.LastLogin = null.TimeFrom(now)
	return p, nil
}

func (svc *service) RequestPasswordReset(ctx context.Context, email string) error {
	p, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if !p.IsActive {
		return ErrAccountDeactivated
	}
	svc.sendTokenMail(p, "Password Reset", "password_reset", svc.resetTokens.makeToken(p))
	return nil
}

func (svc *service) ResetPassword(ctx context.Context, data ResetPassword) error {
	p, err := svc.getByUID(ctx, data.UID)
	if err != nil {
		return err
	}
	if err = svc.resetTokens.verifyToken(p, data.Token); err != nil {
		return err
	}
	if err = p.SetPassword(data.Password); err != nil {
		return errors.Wrap(err, "setting password")
	}
	if err = svc.repo.SetPassword(ctx, p.ID, p.PasswordHash, core.Now()); err != nil {
		return errors.Wrap(err, "updating password")
	}
	return nil
}

func (svc *service) GetByID(ctx context.Context, id string) (Profile, error) {
	return svc.repo.GetProfile(ctx, GetFilter{ID: id})
}

func (svc *service) GetByEmail(ctx context.Context, email string) (Profile, error) {
	return svc.repo.GetProfile(ctx, GetFilter{Email: core.CleanString(email, true /* lower */)})
}

func (svc *service) UpdateOwn(ctx context.Context, id string, data UpdateProfile) (Profile, error) {
	p, err := svc.GetByID(ctx, id)
	if err != nil {
		return Profile{}, err
	}
	data.apply(&p)
	p.UpdatedAt = core.Now()
	return svc.repo.UpdateDetails(ctx, p)
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Profile, error) {
	return svc.repo.QueryProfiles(ctx, filter, ordering)
}

func (svc *service) SetVerified(ctx context.Context, actorID, studentID string, verified bool) (Profile, error) {
	p, err := svc.GetByID(ctx, studentID)
	if err != nil {
		return Profile{}, err
	}
	if !p.IsStudent() {
		return Profile{}, ErrNotFound
	}

	if p, err = svc.repo.SetVerified(ctx, p.ID, verified, core.Now()); err != nil {
		return Profile{}, errors.Wrap(err, "updating profile")
	}

	action := activity.ActionStudentVerified
	if !verified {
		action = activity.ActionStudentUnverified
	}
	svc.activitySvc.Record(ctx, activity.NewLog(actorID, action, activity.EntityProfile, p.ID, activity.Details{"email": p.Email}))
	return p, nil
}

// SaveAdmin updates or creates an active, verified admin.
func (svc *service) SaveAdmin(ctx context.Context, email, name, pwd string) (Profile, error) {
	email = core.CleanString(email, true /* lower */)
	now := core.Now()

	p, err := svc.GetByEmail(ctx, email)
	isNew := errors.Cause(err) == ErrNotFound
	if err != nil && !isNew {
		return Profile{}, err
	}
	if isNew {
		p = Profile{Email: email, CreatedAt: now}
	}
	if name = core.CleanString(name); name != "" {
		p.FullName = name
	}
	p.UserType = TypeAdmin
	p.IsActive = true
	p.IsVerified = true
	p.EmailVerified = true
	p.UpdatedAt = now
	if err = p.SetPassword(pwd); err != nil {
		return Profile{}, errors.Wrap(err, "setting password")
	}

	if isNew {
		return svc.repo.CreateProfile(ctx, p)
	}
	return svc.repo.UpdateProfile(ctx, p)
}

func (svc *service) SetPassword(ctx context.Context, email, pwd string) error {
	p, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if err = p.SetPassword(pwd); err != nil {
		return errors.Wrap(err, "setting password")
	}
	return svc.repo.SetPassword(ctx, p.ID, p.PasswordHash, core.Now())
}

func (svc *service) getByUID(ctx context.Context, uid string) (Profile, error) {
	id, err := decodeUID(uid)
	if err != nil {
		return Profile{}, err
	}
	p, err := svc.GetByID(ctx, id)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return Profile{}, ErrInvalidToken
		}
		return Profile{}, err
	}
	return p, nil
}

func (svc *service) sendVerificationMail(p Profile) {
	svc.sendTokenMail(p, "Verify your email", "verify_email", svc.emailTokens.makeToken(p))
}

func (svc *service) sendTokenMail(p Profile, subject, tmpl, token string) {
	name := p.FullName
	if name == "" {
		name = p.Email
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: p.FullName, Address: p.Email}},
		Subject:      subject,
		TemplateName: tmpl,
		TemplateData: map[string]string{
			"Name":  name,
			"UID":   EncodeUID(p),
			"Token": token,
		},
	})
}
