package config

import "time"

type TokenConfig interface {
	GetJWTSecret() string
	GetIssuer() string
	GetAudience() string
	GetAccessTokenExpiry() time.Duration
	GetRefreshTokenExpiry() time.Duration
	GetRefreshTokenLength() int
}

type Tokens struct {
	Secret          string        `yaml:"jwt_secret" env:"JWT_SECRET" env-required:"true"`
	Issuer          string        `yaml:"issuer" env:"JWT_ISSUER" env-default:"bookstore-api"`
	Audience        string        `yaml:"audience" env:"JWT_AUDIENCE" env-default:"bookstore-clients"`
	AccessTokenTTL  time.Duration `yaml:"access_token_ttl" env:"ACCESS_TOKEN_TTL" env-default:"20m"`
	RefreshTokenTTL time.Duration `yaml:"refresh_token_ttl" env:"REFRESH_TOKEN_TTL" env-default:"720h"`
}

var _ TokenConfig = Tokens{}

func (t Tokens) GetJWTSecret() string {
	return t.Secret
}

func (t Tokens) GetIssuer() string {
	return t.Issuer
}

func (t Tokens) GetAudience() string {
	return t.Audience
}

func (t Tokens) GetAccessTokenExpiry() time.Duration {
	return t.AccessTokenTTL
}

func (t Tokens) GetRefreshTokenExpiry() time.Duration {
	return t.RefreshTokenTTL
}

func (Tokens) GetRefreshTokenLength() int {
	return 64 // 64 bytes = 512 bits
}
