package users

import (
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

// RoleType is the authorization role carried in the access token's role claim.
type RoleType string

const (
	RoleUser  RoleType = "User"
	RoleAdmin RoleType = "Admin"
)

// AllRoles are the roles seeded at startup.
var AllRoles = []RoleType{RoleUser, RoleAdmin}

type User struct {
	ID           string     `json:"id,omitempty"`
	Email        string     `json:"email,omitempty"`
	PasswordHash string     `json:"-"` // never serialize
	Roles        []RoleType `json:"roles,omitempty"`
	DateJoined   time.Time  `json:"date_joined,omitempty"`

	// Refresh slot. Only token/refresh.Manager writes these.
	RefreshToken       string    `json:"-"`
	RefreshTokenExpiry time.Time `json:"-"`
}

// RefreshFields is the single refresh-token slot of an identity. An empty Token means no token;
// a revoked slot has the zero time as its expiry.
type RefreshFields struct {
	Token  string
	Expiry time.Time
}

// HasToken reports whether a token is stored, regardless of its expiry.
func (f RefreshFields) HasToken() bool {
	return f.Token != ""
}

func (u *User) RefreshFields() RefreshFields {
	return RefreshFields{Token: u.RefreshToken, Expiry: u.RefreshTokenExpiry}
}

// PrimaryRole returns the first role assigned to the user; ok is false when there is none.
func (u *User) PrimaryRole() (role RoleType, ok bool) {
	if len(u.Roles) == 0 {
		return "", false
	}
	return u.Roles[0], true
}

func (u *User) HasRole(role RoleType) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// NormalizeEmail is the lookup form of an email address. Emails are matched case-insensitively.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidatePasswordStrength checks if password meets security requirements:
// - At least 8 characters long
// - Contains uppercase and lowercase letters
// - Contains at least one number
func ValidatePasswordStrength(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters long")
	}

	var (
		hasUpper  bool
		hasLower  bool
		hasNumber bool
	)

	for _, char := range password {
		if unicode.IsUpper(char) {
			hasUpper = true
		} else if unicode.IsLower(char) {
			hasLower = true
		} else if unicode.IsDigit(char) {
			hasNumber = true
		}
	}

	if !hasUpper {
		return fmt.Errorf("password must contain at least one uppercase letter")
	}
	if !hasLower {
		return fmt.Errorf("password must contain at least one lowercase letter")
	}
	if !hasNumber {
		return fmt.Errorf("password must contain at least one number")
	}

	return nil
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

var unknownUserHash = sync.OnceValue(func() string {
	hash, err := HashPassword("no such user")
	if err != nil {
		panic(fmt.Sprintf("bcrypt: %v", err))
	}
	return hash
})

// CheckUnknownUserPassword runs the same bcrypt compare as CheckPassword against a hash no password
// matches. Login calls it for unknown emails so both failures take as long.
func CheckUnknownUserPassword(password string) bool {
	CheckPasswordHash(password, unknownUserHash())
	return false
}

// CheckPassword verifies password against the user's stored hash
func (u *User) CheckPassword(password string) bool {
	return CheckPasswordHash(password, u.PasswordHash)
}
