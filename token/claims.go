package token

import (
	"fmt"
	"time"
)

// AccessToken is a signed compact JWT and the instant it stops being accepted.
type AccessToken struct {
	Token     string
	ExpiresAt time.Time
}

// Claims are the verified contents of an access token. Name carries the identity's email and is the
// subject used by the refresh and revoke paths.
type Claims struct {
	Name      string
	Email     string
	Role      string
	Issuer    string
	Audience  []string
	IssuedAt  time.Time
	ExpiresAt time.Time
	ID        string
}

// VerifyErrorKind classifies why a token was rejected.
type VerifyErrorKind int

const (
	Malformed VerifyErrorKind = iota
	BadSignature
	Expired
	IssuerMismatch
	AudienceMismatch
)

func (k VerifyErrorKind) String() string {
	switch k {
	case Malformed:
		return "malformed"
	case BadSignature:
		return "bad signature"
	case Expired:
		return "expired"
	case IssuerMismatch:
		return "issuer mismatch"
	case AudienceMismatch:
		return "audience mismatch"
	default:
		return fmt.Sprintf("VerifyErrorKind(%d)", int(k))
	}
}

type VerifyError struct {
	Kind VerifyErrorKind
	Err  error
}

func (e *VerifyError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("token %s: %v", e.Kind, e.Err)
	}
	return "token " + e.Kind.String()
}

func (e *VerifyError) Unwrap() error {
	return e.Err
}
