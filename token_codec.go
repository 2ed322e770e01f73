package paedu

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
)

// Default token lifetimes, in seconds.
const (
	DefaultTokenTTL        = 3600
	DefaultConfirmationTTL = 7200
)

// IssueOption customizes a single minted token.
type IssueOption func(*issueOptions)

type issueOptions struct {
	ttl      time.Duration
	issuedAt time.Time
	perms    Permission
	newLogin string
	issuer   string
	audience []string
}

// WithTTL overrides the purpose default expiration.
func WithTTL(ttl time.Duration) IssueOption {
	return func(o *issueOptions) {
		o.ttl = ttl
	}
}

// WithIssuedAt overrides the issuance time. Zero uses time.Now().
func WithIssuedAt(at time.Time) IssueOption {
	return func(o *issueOptions) {
		o.issuedAt = at
	}
}

// WithPermissions embeds the account bitmask in the token.
func WithPermissions(perms Permission) IssueOption {
	return func(o *issueOptions) {
		o.perms = perms
	}
}

// WithNewLogin carries the replacement identifier on login-change tokens.
func WithNewLogin(identifier string) IssueOption {
	return func(o *issueOptions) {
		o.newLogin = identifier
	}
}

// WithIssuer overrides the default issuer if provided.
func WithIssuer(issuer string) IssueOption {
	return func(o *issueOptions) {
		o.issuer = issuer
	}
}

// WithAudience overrides the default audience if provided.
func WithAudience(audience []string) IssueOption {
	return func(o *issueOptions) {
		o.audience = audience
	}
}

// Codec mints and redeems HS256 signed capability tokens. Every token is
// tagged with a purpose; Redeem refuses tokens minted for a different flow
// before any other claim is trusted.
type Codec struct {
	signingKey      []byte
	tokenTTL        int
	confirmationTTL int
	issuer          string
	audience        jwt.ClaimStrings
	logger          Logger
	now             func() time.Time
}

var _ TokenCodec = (*Codec)(nil)

// CodecOption customizes the codec at construction.
type CodecOption func(*Codec)

// WithCodecLogger sets the codec logger.
func WithCodecLogger(logger Logger) CodecOption {
	return func(c *Codec) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithCodecClock overrides the time source, used by expiry tests.
func WithCodecClock(now func() time.Time) CodecOption {
	return func(c *Codec) {
		if now != nil {
			c.now = now
		}
	}
}

// NewTokenCodec creates a Codec. TTLs are in seconds, zero values take the
// defaults.
func NewTokenCodec(signingKey []byte, tokenTTL, confirmationTTL int, issuer string, audience jwt.ClaimStrings, opts ...CodecOption) *Codec {
	if tokenTTL <= 0 {
		tokenTTL = DefaultTokenTTL
	}
	if confirmationTTL <= 0 {
		confirmationTTL = DefaultConfirmationTTL
	}

	codec := &Codec{
		signingKey:      signingKey,
		tokenTTL:        tokenTTL,
		confirmationTTL: confirmationTTL,
		issuer:          issuer,
		audience:        audience,
		logger:          defLogger{},
		now:             time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(codec)
		}
	}

	return codec
}

// NewTokenCodecFromConfig creates a Codec from the auth Config surface.
func NewTokenCodecFromConfig(cfg Config, opts ...CodecOption) *Codec {
	return NewTokenCodec(
		[]byte(cfg.GetSigningKey()),
		cfg.GetTokenTTL(),
		cfg.GetConfirmationTTL(),
		cfg.GetIssuer(),
		cfg.GetAudience(),
		opts...,
	)
}

// Issue mints a token for the given purpose and subject.
func (c *Codec) Issue(purpose TokenPurpose, subject string, opts ...IssueOption) (string, time.Time, error) {
	if purpose == "" {
		return "", time.Time{}, goerrors.New("token purpose is required", goerrors.CategoryBadInput)
	}
	if subject == "" {
		return "", time.Time{}, goerrors.New("token subject is required", goerrors.CategoryBadInput)
	}

	options := issueOptions{
		ttl:      c.purposeTTL(purpose),
		issuer:   c.issuer,
		audience: c.audience,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}

	if options.ttl < 0 {
		return "", time.Time{}, goerrors.New("token TTL must be non-negative", goerrors.CategoryBadInput)
	}

	issuedAt := options.issuedAt
	if issuedAt.IsZero() {
		issuedAt = c.now()
	}
	expiresAt := issuedAt.Add(options.ttl)

	var aud jwt.ClaimStrings
	if len(options.audience) > 0 {
		aud = make(jwt.ClaimStrings, len(options.audience))
		copy(aud, options.audience)
	}

	claims := &CapabilityClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    options.issuer,
			Subject:   subject,
			Audience:  aud,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Purpose:  purpose,
		UID:      subject,
		Perms:    options.perms,
		NewLogin: options.newLogin,
	}

	ensureTokenID(&claims.RegisteredClaims)

	token, err := c.SignClaims(claims)
	if err != nil {
		return "", time.Time{}, err
	}

	return token, expiresAt, nil
}

// SignClaims signs arbitrary capability claims using the configured key.
func (c *Codec) SignClaims(claims *CapabilityClaims) (string, error) {
	if claims == nil {
		return "", goerrors.New("claims must not be nil", goerrors.CategoryInternal)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signedString, err := token.SignedString(c.signingKey)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to sign JWT")
	}

	return signedString, nil
}

// Redeem parses and validates a token, enforcing the expected purpose.
// A token that expires at exactly the current instant is treated as expired.
func (c *Codec) Redeem(raw string, purpose TokenPurpose) (*CapabilityClaims, error) {
	parserOptions := make([]jwt.ParserOption, 0, 2)
	if c.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(c.issuer))
	}
	if len(c.audience) > 0 {
		parserOptions = append(parserOptions, jwt.WithAudience(c.audience...))
	}

	token, err := jwt.ParseWithClaims(raw, &CapabilityClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			c.logger.Error("Codec redeem encountered unexpected signing method", "alg", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return c.signingKey, nil
	}, parserOptions...)

	if err != nil {
		if goerrors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, goerrors.Wrap(err, ErrTokenMalformed.Category, ErrTokenMalformed.Message).
			WithTextCode(ErrTokenMalformed.TextCode)
	}

	claims, ok := token.Claims.(*CapabilityClaims)
	if !ok || !token.Valid {
		c.logger.Error("Codec redeem could not decode or validate claims")
		return nil, ErrUnableToDecodeSession
	}

	if claims.ExpiresAt == nil || !c.now().Before(claims.ExpiresAt.Time) {
		return nil, ErrTokenExpired
	}

	if claims.Purpose == "" {
		return nil, ErrTokenMalformed
	}
	if claims.Purpose != purpose {
		c.logger.Warn("Codec redeem rejected cross purpose token", "expected", string(purpose), "got", string(claims.Purpose))
		return nil, ErrTokenPurposeMismatch
	}

	return claims, nil
}

// TTL returns the lifetime used for the given purpose.
func (c *Codec) TTL(purpose TokenPurpose) time.Duration {
	return c.purposeTTL(purpose)
}

func (c *Codec) purposeTTL(purpose TokenPurpose) time.Duration {
	if purpose == PurposeConfirm {
		return time.Duration(c.confirmationTTL) * time.Second
	}
	return time.Duration(c.tokenTTL) * time.Second
}
