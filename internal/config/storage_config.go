package config

type StorageConfig interface {
	GetDatabaseURL() string
	GetMigrateOnStart() bool
}

type BootstrapConfig interface {
	GetAdminEmail() string
	GetAdminPassword() string
}

type Storage struct {
	DatabaseURL    string `yaml:"database_url" env:"DATABASE_URL"`
	MigrateOnStart bool   `yaml:"migrate" env:"DATABASE_MIGRATE" env-default:"true"`
}

var _ StorageConfig = Storage{}

// GetDatabaseURL returns the PostgreSQL DSN. Empty means the in-memory stores are used.
func (s Storage) GetDatabaseURL() string {
	return s.DatabaseURL
}

func (s Storage) GetMigrateOnStart() bool {
	return s.MigrateOnStart
}

type Bootstrap struct {
	AdminEmail    string `yaml:"admin_email" env:"ADMIN_EMAIL" env-default:"admin@admin.com"`
	AdminPassword string `yaml:"admin_password" env:"ADMIN_PASSWORD"`
}

var _ BootstrapConfig = Bootstrap{}

func (b Bootstrap) GetAdminEmail() string {
	return b.AdminEmail
}

// GetAdminPassword returns the configured admin password. When empty the bootstrap generates one.
func (b Bootstrap) GetAdminPassword() string {
	return b.AdminPassword
}
