package profile

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"
	"golang.org/x/crypto/bcrypt"

	"github.com/AliArsalanSiddiqui/v0-student-save-website-build/core"
)

// User types
const (
	TypeStudent = "student"
	TypeVendor  = "vendor"
	TypeAdmin   = "admin"
)

var (
	UserTypes = []string{TypeStudent, TypeVendor, TypeAdmin}

	Universities = []string{
		"Bahria University Karachi",
		"IBA (Institute of Business Administration)",
		"FAST NUCES",
		"NED University",
		"University of Karachi",
		"Aga Khan University",
		"PAF Aeromodelling Club",
		"COMSATS University",
		"Habib University",
	}

	Genders = []string{"male", "female", "other"}
)

type Profile struct {
	ID            string      `json:"id"`
	Email         string      `json:"email"`
	FullName      string      `json:"full_name"`
	University    string      `json:"university"`
	StudentID     null.String `json:"student_id"`
	PhoneNumber   null.String `json:"phone_number"`
	DateOfBirth   null.Time   `json:"date_of_birth"`
	Gender        null.String `json:"gender"`
	UserType      string      `json:"user_type"`
	IsVerified    bool        `json:"is_verified"`
	EmailVerified bool        `json:"email_verified"`
	IsActive      bool        `json:"is_active"`
	PasswordHash  []byte      `json:"-"`
	CreatedAt     time.Time   `json:"created_at"` // UTC
	UpdatedAt     time.Time   `json:"updated_at"` // UTC
	LastLogin     null.Time   `json:"last_login"` // UTC
}

func (p *Profile) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	p.PasswordHash = hash
	return nil
}

func (p *Profile) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(p.PasswordHash, []byte(pwd))
}

func (p *Profile) IsAdmin() bool   { return p.UserType == TypeAdmin }
func (p *Profile) IsStudent() bool { return p.UserType == TypeStudent }
func (p *Profile) IsVendor() bool  { return p.UserType == TypeVendor }

// NewStudent contains information needed to sign up a new student.
type NewStudent struct {
	Email           string `json:"email" validate:"required,email,max=254"`
	FullName        string `json:"full_name" validate:"required,max=150"`
	University      string `json:"university" validate:"required,university"`
	StudentID       string `json:"student_id" validate:"omitempty,max=50"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

func (ns *NewStudent) Validate(ctx context.Context, validate *validator.Validate, svc Service) error {
	ns.Email = core.CleanString(ns.Email, true /* lower */)
	ns.FullName = core.CleanString(ns.FullName)
	ns.University = core.CleanString(ns.University)
	ns.StudentID = core.CleanString(ns.StudentID)

	if err := validate.Struct(ns); err != nil {
		return err
	}
	return svc.CheckEmailUniqueness(ctx, ns.Email)
}

// UpdateProfile defines what a user may change on their own profile.
// Empty fields keep their current value.
type UpdateProfile struct {
	FullName    string `json:"full_name" validate:"omitempty,max=150"`
	University  string `json:"university" validate:"omitempty,university"`
	StudentID   string `json:"student_id" validate:"omitempty,max=50"`
	PhoneNumber string `json:"phone_number" validate:"omitempty,max=30"`
	DateOfBirth string `json:"date_of_birth" validate:"omitempty,datetime=2006-01-02"`
	Gender      string `json:"gender" validate:"omitempty,oneof=male female other"`
}

func (up *UpdateProfile) Validate(validate *validator.Validate) error {
	up.FullName = core.CleanString(up.FullName)
	up.University = core.CleanString(up.University)
	up.StudentID = core.CleanString(up.StudentID)
	up.PhoneNumber = core.CleanString(up.PhoneNumber)
	up.DateOfBirth = core.CleanString(up.DateOfBirth)
	up.Gender = core.CleanString(up.Gender, true /* lower */)
	return validate.Struct(up)
}

// apply copies the provided fields onto p.
func (up UpdateProfile) apply(p *Profile) {
	if up.FullName != "" {
		p.FullName = up.FullName
	}
	if up.University != "" {
		p.University = up.University
	}
	if up.StudentID != "" {
		p.StudentID = null.StringFrom(up.StudentID)
	}
	if up.PhoneNumber != "" {
		p.PhoneNumber = null.StringFrom(up.PhoneNumber)
	}
	if up.DateOfBirth != "" {
		if dob, err := time.Parse("2006-01-02", up.DateOfBirth); err == nil {
			p.DateOfBirth = null.TimeFrom(dob)
		}
	}
	if up.Gender != "" {
		p.Gender = null.StringFrom(up.Gender)
	}
}

type ResetPassword struct {
	Token           string `json:"token" validate:"required"`
	UID             string `json:"uid" validate:"required"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

func (rp ResetPassword) Validate(validate *validator.Validate) error { return validate.Struct(rp) }

type VerifyEmail struct {
	Token string `json:"token" validate:"required"`
	UID   string `json:"uid" validate:"required"`
}

func (ve VerifyEmail) Validate(validate *validator.Validate) error { return validate.Struct(ve) }

type GetFilter struct {
	ID    string
	Email string
}

type QueryFilter struct {
	Search     string `query:"search"`
	UserType   string
	IsVerified *bool  `query:"verified"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.UserType == "" && qf.IsVerified == nil
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}

// OrderingFields maps the orderable fields of a profile list to their columns.
var OrderingFields = map[string]string{
	"name":       "full_name",
	"email":      "email",
	"university": "university",
	"created_at": "created_at",
	"last_login": "last_login",
}
