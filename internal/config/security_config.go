package config

type SecurityConfig interface {
	GetSessionSecret() string
	GetNonceSecret() string
	GetCookieDomain() string
	GetAdminPassword() string
	GetPruneOnStartup() bool
}

type Security struct {
	SessionSecret  string `env:"SESSION_SECRET"`
	NonceSecret    string `env:"NONCE_SECRET"`
	CookieDomain   string `env:"COOKIE_DOMAIN"`
	AdminPassword  string `env:"ADMIN_PASSWORD"`
	PruneOnStartup bool   `env:"PRUNE_ON_STARTUP" envDefault:"false"`
}

var _ SecurityConfig = Security{}

// GetSessionSecret is the signing key for the host application's login cookie.
// An empty value makes the server generate an ephemeral key at startup.
func (s Security) GetSessionSecret() string {
	return s.SessionSecret
}

func (s Security) GetNonceSecret() string {
	return s.NonceSecret
}

func (s Security) GetCookieDomain() string {
	return s.CookieDomain
}

func (s Security) GetAdminPassword() string {
	return s.AdminPassword
}

func (s Security) GetPruneOnStartup() bool {
	return s.PruneOnStartup
}
