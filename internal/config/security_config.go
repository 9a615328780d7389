package config

type SecurityConfig interface {
	GetEnableRateLimiting() bool
	GetLoginRatePerSecond() float64
	GetLoginBurst() int
}

type Security struct {
	RateLimiting       bool    `yaml:"rate_limiting" env:"RATE_LIMIT_ENABLED" env-default:"true"`
	LoginRatePerSecond float64 `yaml:"login_rate_per_second" env:"LOGIN_RATE_PER_SECOND" env-default:"1"`
	LoginBurst         int     `yaml:"login_burst" env:"LOGIN_BURST" env-default:"5"`
}

var _ SecurityConfig = Security{}

func (s Security) GetEnableRateLimiting() bool {
	return s.RateLimiting
}

func (s Security) GetLoginRatePerSecond() float64 {
	return s.LoginRatePerSecond
}

func (s Security) GetLoginBurst() int {
	return s.LoginBurst
}
