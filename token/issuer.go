package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const DefaultAccessTokenExpiry = 20 * time.Minute

// Issuer signs and verifies short-lived access tokens. It holds no per-token state.
type Issuer struct {
	signer            Signer
	issuer            string
	audience          string
	accessTokenExpiry time.Duration
	nowFunc           func() time.Time
}

type IssuerOption func(*Issuer)

func WithAccessTokenExpiry(expiry time.Duration) IssuerOption {
	return func(i *Issuer) {
		i.accessTokenExpiry = expiry
	}
}

func WithNowFunc(now func() time.Time) IssuerOption {
	return func(i *Issuer) {
		i.nowFunc = now
	}
}

func NewIssuer(signer Signer, issuer, audience string, options ...IssuerOption) *Issuer {
	i := &Issuer{
		signer:   signer,
		issuer:   issuer,
		audience: audience,
	}

	for _, opt := range options {
		opt(i)
	}

	if i.accessTokenExpiry <= 0 {
		i.accessTokenExpiry = DefaultAccessTokenExpiry
	}
	if i.nowFunc == nil {
		i.nowFunc = time.Now
	}
	return i
}

// AccessTokenExpiry is the lifetime given to every issued token.
func (i *Issuer) AccessTokenExpiry() time.Duration {
	return i.accessTokenExpiry
}

// Issue creates an access token for email carrying role. JWT timestamps have second precision,
// so the issuance instant is truncated to keep ExpiresAt identical to the exp claim.
func (i *Issuer) Issue(email, role string) (AccessToken, error) {
	issuedAt := i.nowFunc().Truncate(time.Second)
	expiresAt := issuedAt.Add(i.accessTokenExpiry)

	claims := jwt.MapClaims{
		"name":  email,
		"email": email,
		"role":  role,
		"iss":   i.issuer,
		"aud":   i.audience,
		"iat":   issuedAt.Unix(),
		"exp":   expiresAt.Unix(),
		"jti":   uuid.New().String(),
	}

	signed, err := i.signer.Sign(claims)
	if err != nil {
		return AccessToken{}, fmt.Errorf("[Issuer.Issue] %w", err)
	}
	return AccessToken{Token: signed, ExpiresAt: expiresAt}, nil
}

// Verify checks signature, issuer and audience. Expiry is only enforced when requireUnexpired is set;
// the refresh path passes false so an expired access token can still name its subject.
// Every failure is a *VerifyError.
func (i *Issuer) Verify(rawToken string, requireUnexpired bool) (*Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{i.signer.GetSigningMethod().Alg()}),
		jwt.WithoutClaimsValidation(),
	)

	parsed, err := parser.Parse(rawToken, i.signer.GetVerificationKey)
	if err != nil {
		return nil, classifyParseError(err)
	}

	mapClaims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, &VerifyError{Kind: Malformed, Err: errors.New("unexpected claims type")}
	}

	claims, err := toClaims(mapClaims)
	if err != nil {
		return nil, &VerifyError{Kind: Malformed, Err: err}
	}

	if claims.Issuer != i.issuer {
		return nil, &VerifyError{Kind: IssuerMismatch}
	}
	if !containsString(claims.Audience, i.audience) {
		return nil, &VerifyError{Kind: AudienceMismatch}
	}
	if requireUnexpired && !i.nowFunc().Before(claims.ExpiresAt) {
		return nil, &VerifyError{Kind: Expired}
	}
	return claims, nil
}

func classifyParseError(err error) *VerifyError {
	switch {
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return &VerifyError{Kind: BadSignature, Err: err}
	default:
		return &VerifyError{Kind: Malformed, Err: err}
	}
}

func toClaims(mc jwt.MapClaims) (*Claims, error) {
	exp, err := mc.GetExpirationTime()
	if err != nil {
		return nil, err
	}
	if exp == nil {
		return nil, errors.New("missing exp claim")
	}
	iat, err := mc.GetIssuedAt()
	if err != nil {
		return nil, err
	}
	iss, err := mc.GetIssuer()
	if err != nil {
		return nil, err
	}
	aud, err := mc.GetAudience()
	if err != nil {
		return nil, err
	}

	name, _ := mc["name"].(string)
	if name == "" {
		return nil, errors.New("missing name claim")
	}
	email, _ := mc["email"].(string)
	role, _ := mc["role"].(string)
	jti, _ := mc["jti"].(string)

	claims := &Claims{
		Name:      name,
		Email:     email,
		Role:      role,
		Issuer:    iss,
		Audience:  aud,
		ExpiresAt: exp.Time,
		ID:        jti,
	}
	if iat != nil {
		claims.IssuedAt = iat.Time
	}
	return claims, nil
}

func containsString(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}
