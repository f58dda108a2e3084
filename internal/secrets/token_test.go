package secrets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func TestProviderTokenRoundTrip(t *testing.T) {
	keyring.MockInit()

	_, err := GetProviderToken()
	assert.ErrorIs(t, err, ErrTokenNotFound)

	require.NoError(t, SetProviderToken("  abc123 "))
	tok, err := GetProviderToken()
	require.NoError(t, err)
	assert.Equal(t, "abc123", tok)

	require.NoError(t, DeleteProviderToken())
	require.NoError(t, DeleteProviderToken())
	_, err = GetProviderToken()
	assert.ErrorIs(t, err, ErrTokenNotFound)
}

func TestSetProviderTokenRejectsBlank(t *testing.T) {
	keyring.MockInit()
	assert.ErrorIs(t, SetProviderToken("   "), ErrEmptyToken)
}
