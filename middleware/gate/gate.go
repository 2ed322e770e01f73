package gate

import (
	"context"
	"errors"

	"github.com/goliatone/go-router"

	"github.com/alfredpaedu/paedu"
)

// ErrCredentialMissingOrMalformed is returned when no usable credential is
// present on the request.
var ErrCredentialMissingOrMalformed = errors.New("missing or malformed credential")

// Config drives the authentication gate. Every non exempt route requires a
// resolved caller before the handler runs; anything unresolved collapses
// into a single Unauthorized response.
type Config struct {
	// Filter skips the gate for matching requests, consulted before Policy.
	Filter func(router.Context) bool

	// Policy is the explicit route exemption table.
	Policy Policy

	SuccessHandler router.HandlerFunc
	ErrorHandler   router.ErrorHandler

	// Verifier resolves identifiers and checks passwords.
	Verifier paedu.CredentialVerifier

	// Codec redeems auth purpose tokens.
	Codec paedu.TokenCodec

	// ContextKey is the router locals key the caller session is stored under.
	ContextKey string

	// TokenLookup is a comma separated list of credential sources, e.g.
	// "header:Authorization,query:auth_token".
	TokenLookup string

	// AuthScheme is the bearer scheme name on the Authorization header.
	AuthScheme string

	// ContextEnricher propagates the session into the standard context.
	ContextEnricher func(ctx context.Context, session paedu.Session) context.Context

	Logger paedu.Logger
}

// Policy is the route exemption table: exact "METHOD /path" entries, bare
// path entries, and always-exempt prefixes for static assets.
type Policy struct {
	Exempt         map[string]bool
	ExemptPrefixes []string
}

// IsExempt reports whether the route bypasses authentication.
func (p Policy) IsExempt(method, path string) bool {
	if p.Exempt != nil {
		if p.Exempt[method+" "+path] {
			return true
		}
		if p.Exempt[path] {
			return true
		}
	}

	for _, prefix := range p.ExemptPrefixes {
		if prefix != "" && len(path) >= len(prefix) && path[:len(prefix)] == prefix {
			return true
		}
	}

	return false
}

// New builds the gate middleware. Resolution order follows the credential
// shape: HTTP Basic identifiers are matched against the account store first,
// with an unresolved Basic user field retried as a raw token; everything
// else goes through the bearer token path.
func New(config ...Config) router.MiddlewareFunc {
	return func(hf router.HandlerFunc) router.HandlerFunc {
		cfg := GetDefaultConfig(config...)
		return func(ctx router.Context) error {
			if cfg.Filter != nil && cfg.Filter(ctx) {
				return ctx.Next()
			}

			if cfg.Policy.IsExempt(ctx.Method(), ctx.Path()) {
				return ctx.Next()
			}

			session, err := resolveCaller(ctx, cfg)
			if err != nil {
				return cfg.ErrorHandler(ctx, err)
			}

			ctx.Locals(cfg.ContextKey, session)

			if cfg.ContextEnricher != nil {
				stdCtx := cfg.ContextEnricher(ctx.Context(), session)
				ctx.SetContext(stdCtx)
			}

			return cfg.SuccessHandler(ctx)
		}
	}
}

func resolveCaller(ctx router.Context, cfg Config) (paedu.Session, error) {
	if user, password, ok := BasicCredentials(ctx); ok {
		// empty user field is the anonymous caller
		if user == "" {
			return nil, ErrCredentialMissingOrMalformed
		}

		if _, err := cfg.Verifier.FindIdentityByIdentifier(ctx.Context(), user); err == nil {
			return passwordSession(ctx.Context(), cfg, user, password)
		} else if !paedu.IsIdentityNotFoundError(err) {
			return nil, err
		}

		// the Basic user field did not resolve to an account, treat it
		// as an auth token
		return tokenSession(cfg, user)
	}

	raw, err := ExtractRawCredential(ctx, cfg.getExtractors())
	if err != nil || raw == "" {
		return nil, ErrCredentialMissingOrMalformed
	}

	return tokenSession(cfg, raw)
}

func passwordSession(ctx context.Context, cfg Config, identifier, password string) (paedu.Session, error) {
	identity, err := cfg.Verifier.VerifyCredentials(ctx, identifier, password)
	if err != nil {
		return nil, err
	}

	return &paedu.SessionObject{
		UserID:      identity.ID(),
		Permissions: identity.Permissions(),
		TokenBased:  false,
	}, nil
}

func tokenSession(cfg Config, raw string) (paedu.Session, error) {
	claims, err := cfg.Codec.Redeem(raw, paedu.PurposeAuth)
	if err != nil {
		return nil, err
	}

	issuedAt := claims.IssuedAt()
	expiresAt := claims.Expires()

	return &paedu.SessionObject{
		UserID:         claims.UserID(),
		Audience:       claims.RegisteredClaims.Audience,
		Issuer:         claims.RegisteredClaims.Issuer,
		IssuedAt:       &issuedAt,
		ExpirationDate: &expiresAt,
		Permissions:    claims.Permissions(),
		TokenBased:     true,
	}, nil
}

// GetDefaultConfig fills in the gate defaults.
func GetDefaultConfig(config ...Config) (cfg Config) {
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.SuccessHandler == nil {
		cfg.SuccessHandler = func(ctx router.Context) error {
			return ctx.Next()
		}
	}

	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = func(c router.Context, err error) error {
			return c.JSON(router.StatusUnauthorized, map[string]any{
				"error": "Unauthorized",
			})
		}
	}

	if cfg.Verifier == nil {
		panic("GATE: middleware configuration: Verifier is required.")
	}

	if cfg.Codec == nil {
		panic("GATE: middleware configuration: Codec is required.")
	}

	if cfg.ContextKey == "" {
		cfg.ContextKey = "caller"
	}

	if cfg.TokenLookup == "" {
		cfg.TokenLookup = "header:" + router.HeaderAuthorization
	}

	if cfg.AuthScheme == "" {
		cfg.AuthScheme = "Bearer"
	}

	if cfg.ContextEnricher == nil {
		cfg.ContextEnricher = func(ctx context.Context, session paedu.Session) context.Context {
			return paedu.WithSessionContext(ctx, session)
		}
	}

	return cfg
}

func (cfg *Config) getExtractors() []CredentialExtractor {
	return GetExtractors(cfg.TokenLookup, cfg.AuthScheme)
}
