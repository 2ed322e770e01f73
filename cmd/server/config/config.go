package config

import (
	"fmt"
	"time"
)

// BaseConfig is the explicit configuration object for the server: auth
// material, persistence, server address, and the gate's route exemptions.
// Values load from app.json with env overrides via the go-config container.
type BaseConfig struct {
	Auth        Auth        `json:"auth" koanf:"auth"`
	Persistence Persistence `json:"persistence" koanf:"persistence"`
	Server      Server      `json:"server" koanf:"server"`
	Gate        Gate        `json:"gate" koanf:"gate"`
}

func (a *BaseConfig) Validate() error {
	if a.Auth.SigningKey == "" {
		return fmt.Errorf("config: auth.signing_key is required")
	}
	return nil
}

func (a *BaseConfig) GetAuth() *Auth {
	return &a.Auth
}

func (a *BaseConfig) GetPersistence() *Persistence {
	return &a.Persistence
}

func (a *BaseConfig) GetServer() *Server {
	return &a.Server
}

func (a *BaseConfig) GetGate() *Gate {
	return &a.Gate
}

// Auth satisfies the auth package's Config interface.
type Auth struct {
	SigningKey      string   `json:"signing_key" koanf:"signing_key"`
	SigningMethod   string   `json:"signing_method" koanf:"signing_method"`
	ContextKey      string   `json:"context_key" koanf:"context_key"`
	TokenTTL        int      `json:"token_ttl" koanf:"token_ttl"`
	ConfirmationTTL int      `json:"confirmation_ttl" koanf:"confirmation_ttl"`
	TokenLookup     string   `json:"token_lookup" koanf:"token_lookup"`
	AuthScheme      string   `json:"auth_scheme" koanf:"auth_scheme"`
	Issuer          string   `json:"issuer" koanf:"issuer"`
	Audience        []string `json:"audience" koanf:"audience"`
	AdminEmail      string   `json:"admin_email" koanf:"admin_email"`
}

func (a *Auth) GetSigningKey() string {
	return a.SigningKey
}

func (a *Auth) GetSigningMethod() string {
	if a.SigningMethod == "" {
		return "HS256"
	}
	return a.SigningMethod
}

func (a *Auth) GetContextKey() string {
	if a.ContextKey == "" {
		return "caller"
	}
	return a.ContextKey
}

func (a *Auth) GetTokenTTL() int {
	return a.TokenTTL
}

func (a *Auth) GetConfirmationTTL() int {
	return a.ConfirmationTTL
}

func (a *Auth) GetTokenLookup() string {
	if a.TokenLookup == "" {
		return "header:Authorization"
	}
	return a.TokenLookup
}

func (a *Auth) GetAuthScheme() string {
	if a.AuthScheme == "" {
		return "Bearer"
	}
	return a.AuthScheme
}

func (a *Auth) GetIssuer() string {
	return a.Issuer
}

func (a *Auth) GetAudience() []string {
	return a.Audience
}

func (a *Auth) GetAdminEmail() string {
	return a.AdminEmail
}

// Persistence drives the database connection and migrations.
type Persistence struct {
	DSN                   string `json:"dsn" koanf:"dsn"`
	Driver                string `json:"driver" koanf:"driver"`
	Debug                 bool   `json:"debug" koanf:"debug"`
	PingTimeoutExpression string `json:"ping_timeout" koanf:"ping_timeout"`
}

func (p *Persistence) GetDSN() string {
	if p.DSN == "" {
		return "file::memory:?cache=shared"
	}
	return p.DSN
}

func (p *Persistence) GetDriver() string {
	if p.Driver == "" {
		return "sqlite"
	}
	return p.Driver
}

func (p *Persistence) GetDebug() bool {
	return p.Debug
}

func (p *Persistence) GetPingTimeout() time.Duration {
	if p.PingTimeoutExpression == "" {
		return 5 * time.Second
	}
	dur, err := time.ParseDuration(p.PingTimeoutExpression)
	if err != nil {
		panic(
			fmt.Sprintf("unable to parse time: expr %s", p.PingTimeoutExpression),
		)
	}
	return dur
}

// Server holds the HTTP listen address.
type Server struct {
	Address string `json:"address" koanf:"address"`
}

func (s *Server) GetAddress() string {
	if s.Address == "" {
		return ":8572"
	}
	return s.Address
}

// Gate holds the route exemption table handed to the authentication gate.
type Gate struct {
	ExemptRoutes   []string `json:"exempt_routes" koanf:"exempt_routes"`
	ExemptPrefixes []string `json:"exempt_prefixes" koanf:"exempt_prefixes"`
}

// GetExemptRoutes returns "METHOD /path" entries; defaults cover the
// account lifecycle routes that must work before authentication.
func (g *Gate) GetExemptRoutes() []string {
	if len(g.ExemptRoutes) > 0 {
		return g.ExemptRoutes
	}
	return []string{
		"POST /api/v1/users/register",
		"GET /api/v1/tokens/change_password_token",
	}
}

// GetExemptPrefixes returns always-exempt path prefixes; token redemption
// routes carry the credential in the path, static assets never need one.
func (g *Gate) GetExemptPrefixes() []string {
	if len(g.ExemptPrefixes) > 0 {
		return g.ExemptPrefixes
	}
	return []string{
		"/api/v1/tokens/confirm/",
		"/api/v1/tokens/change_password/",
		"/api/v1/users/change_login/",
		"/public/",
	}
}
