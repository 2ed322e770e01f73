package paedu_test

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alfredpaedu/paedu"
)

func newTestCodec(opts ...paedu.CodecOption) *paedu.Codec {
	return paedu.NewTokenCodec(
		[]byte("test-signing-key"),
		3600,
		7200,
		"paedu-test",
		jwt.ClaimStrings{"paedu"},
		opts...,
	)
}

func TestCodecIssueAndRedeem(t *testing.T) {
	codec := newTestCodec()
	subject := uuid.NewString()

	token, expiresAt, err := codec.Issue(paedu.PurposeAuth, subject,
		paedu.WithPermissions(paedu.PermStudent|paedu.PermParent))
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	claims, err := codec.Redeem(token, paedu.PurposeAuth)
	require.NoError(t, err)

	assert.Equal(t, subject, claims.UserID())
	assert.Equal(t, paedu.PurposeAuth, claims.Purpose)
	assert.Equal(t, "paedu-test", claims.RegisteredClaims.Issuer)
	assert.True(t, claims.Can(paedu.PermStudent))
	assert.True(t, claims.Can(paedu.PermParent))
	assert.False(t, claims.Can(paedu.PermTeacher))

	parsed, err := claims.UserUUID()
	require.NoError(t, err)
	assert.Equal(t, subject, parsed.String())
}

func TestCodecIssueRequiresPurposeAndSubject(t *testing.T) {
	codec := newTestCodec()

	_, _, err := codec.Issue("", "subject")
	assert.Error(t, err)

	_, _, err = codec.Issue(paedu.PurposeAuth, "")
	assert.Error(t, err)
}

func TestCodecRedeemRejectsCrossPurposeTokens(t *testing.T) {
	codec := newTestCodec()
	subject := uuid.NewString()

	purposes := []paedu.TokenPurpose{
		paedu.PurposeAuth,
		paedu.PurposeConfirm,
		paedu.PurposeReset,
		paedu.PurposeLoginChange,
	}

	for _, minted := range purposes {
		token, _, err := codec.Issue(minted, subject)
		require.NoError(t, err)

		for _, redeemed := range purposes {
			claims, err := codec.Redeem(token, redeemed)
			if minted == redeemed {
				assert.NoError(t, err)
				assert.NotNil(t, claims)
				continue
			}

			assert.ErrorIs(t, err, paedu.ErrTokenPurposeMismatch,
				"minted %q redeemed as %q", minted, redeemed)
		}
	}
}

func TestCodecRedeemRejectsTamperedToken(t *testing.T) {
	codec := newTestCodec()

	token, _, err := codec.Issue(paedu.PurposeAuth, uuid.NewString())
	require.NoError(t, err)

	// flip a character in the signature segment
	tampered := token[:len(token)-2] + "xx"
	_, err = codec.Redeem(tampered, paedu.PurposeAuth)
	assert.Error(t, err)
	assert.True(t, paedu.IsMalformedError(err))

	_, err = codec.Redeem("definitely.not.a.token", paedu.PurposeAuth)
	assert.True(t, paedu.IsMalformedError(err))
}

func TestCodecRedeemRejectsForeignKey(t *testing.T) {
	codec := newTestCodec()
	other := paedu.NewTokenCodec([]byte("different-key"), 3600, 7200, "paedu-test", jwt.ClaimStrings{"paedu"})

	token, _, err := other.Issue(paedu.PurposeAuth, uuid.NewString())
	require.NoError(t, err)

	_, err = codec.Redeem(token, paedu.PurposeAuth)
	assert.True(t, paedu.IsMalformedError(err))
}

func TestCodecRedeemExpiryBoundary(t *testing.T) {
	issuedAt := time.Now()

	// the codec clock sits exactly on the expiry instant: the token is
	// expired, not almost-expired
	codec := newTestCodec(paedu.WithCodecClock(func() time.Time {
		return issuedAt.Add(time.Hour)
	}))

	token, _, err := codec.Issue(paedu.PurposeAuth, uuid.NewString(),
		paedu.WithIssuedAt(issuedAt))
	require.NoError(t, err)

	_, err = codec.Redeem(token, paedu.PurposeAuth)
	assert.ErrorIs(t, err, paedu.ErrTokenExpired)
	assert.True(t, paedu.IsTokenExpiredError(err))
}

func TestCodecRedeemExpiredToken(t *testing.T) {
	codec := newTestCodec()

	token, _, err := codec.Issue(paedu.PurposeAuth, uuid.NewString(),
		paedu.WithIssuedAt(time.Now().Add(-2*time.Hour)))
	require.NoError(t, err)

	_, err = codec.Redeem(token, paedu.PurposeAuth)
	assert.ErrorIs(t, err, paedu.ErrTokenExpired)
}

func TestCodecRedeemRejectsMissingPurpose(t *testing.T) {
	codec := newTestCodec()

	claims := &paedu.CapabilityClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "paedu-test",
			Subject:   uuid.NewString(),
			Audience:  jwt.ClaimStrings{"paedu"},
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}

	token, err := codec.SignClaims(claims)
	require.NoError(t, err)

	_, err = codec.Redeem(token, paedu.PurposeAuth)
	assert.ErrorIs(t, err, paedu.ErrTokenMalformed)
}

func TestCodecLoginChangeCarriesNewLogin(t *testing.T) {
	codec := newTestCodec()

	token, _, err := codec.Issue(paedu.PurposeLoginChange, uuid.NewString(),
		paedu.WithNewLogin("new.login@example.com"))
	require.NoError(t, err)

	claims, err := codec.Redeem(token, paedu.PurposeLoginChange)
	require.NoError(t, err)
	assert.Equal(t, "new.login@example.com", claims.NewLogin)
}

func TestCodecTTLPerPurpose(t *testing.T) {
	codec := newTestCodec()

	assert.Equal(t, time.Hour, codec.TTL(paedu.PurposeAuth))
	assert.Equal(t, time.Hour, codec.TTL(paedu.PurposeReset))
	assert.Equal(t, time.Hour, codec.TTL(paedu.PurposeLoginChange))
	assert.Equal(t, 2*time.Hour, codec.TTL(paedu.PurposeConfirm))
}

func TestCodecDefaultsFromConfig(t *testing.T) {
	codec := paedu.NewTokenCodecFromConfig(testConfig{signingKey: "k"})

	assert.Equal(t, time.Duration(paedu.DefaultTokenTTL)*time.Second, codec.TTL(paedu.PurposeAuth))
	assert.Equal(t, time.Duration(paedu.DefaultConfirmationTTL)*time.Second, codec.TTL(paedu.PurposeConfirm))
}

func TestCodecTokensCarryUniqueIDs(t *testing.T) {
	codec := newTestCodec()
	subject := uuid.NewString()

	a, _, err := codec.Issue(paedu.PurposeAuth, subject)
	require.NoError(t, err)
	b, _, err := codec.Issue(paedu.PurposeAuth, subject)
	require.NoError(t, err)

	ca, err := codec.Redeem(a, paedu.PurposeAuth)
	require.NoError(t, err)
	cb, err := codec.Redeem(b, paedu.PurposeAuth)
	require.NoError(t, err)

	assert.NotEmpty(t, ca.RegisteredClaims.ID)
	assert.NotEqual(t, ca.RegisteredClaims.ID, cb.RegisteredClaims.ID)

	// both are three dot separated segments
	assert.Len(t, strings.Split(a, "."), 3)
}
