package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecoveryTokenRoundTrip(t *testing.T) {
	token, err := GenerateRecoveryToken("bk-1", time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	bookingID, err := ValidateRecoveryToken(token)
	require.NoError(t, err)
	assert.Equal(t, "bk-1", bookingID)
}

func TestRecoveryTokenExpired(t *testing.T) {
	token, err := GenerateRecoveryToken("bk-1", -time.Minute)
	require.NoError(t, err)

	_, err = ValidateRecoveryToken(token)
	assert.ErrorIs(t, err, ErrRecoveryTokenInvalid)
}

func TestRecoveryTokenGarbageRejected(t *testing.T) {
	for _, token := range []string{"", "not-a-jwt", "a.b.c"} {
		_, err := ValidateRecoveryToken(token)
		assert.ErrorIs(t, err, ErrRecoveryTokenInvalid, "token %q", token)
	}
}

func TestHashTokenIsStable(t *testing.T) {
	assert.Equal(t, HashToken("abc"), HashToken("abc"))
	assert.NotEqual(t, HashToken("abc"), HashToken("abd"))
	assert.Len(t, HashToken("abc"), 64)
}
