package auth

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashToken(t *testing.T) {
	hash, err := HashToken("correct-horse-battery", bcrypt.MinCost)
	require.NoError(t, err)
	assert.True(t, IsTokenHash(hash))
	assert.True(t, CheckToken("correct-horse-battery", hash))
	assert.False(t, CheckToken("wrong-horse-battery", hash))

	_, err = HashToken("short", bcrypt.MinCost)
	assert.ErrorIs(t, err, ErrTokenTooShort)
	_, err = HashToken(strings.Repeat("x", 73), bcrypt.MinCost)
	assert.ErrorIs(t, err, ErrTokenTooLong)
}

func TestCheckToken_Plain(t *testing.T) {
	assert.True(t, CheckToken("s3cret", "s3cret"))
	assert.False(t, CheckToken("s3cre", "s3cret"))
	assert.False(t, CheckToken("", ""))
	assert.False(t, IsTokenHash("s3cret"))
}

func TestGenerateToken(t *testing.T) {
	token, hash, err := GenerateToken(bcrypt.MinCost)
	require.NoError(t, err)
	assert.Len(t, token, 64)
	assert.True(t, CheckToken(token, hash))
}

func TestMiddleware_HashedToken(t *testing.T) {
	hash, err := HashToken("correct-horse-battery", bcrypt.MinCost)
	require.NoError(t, err)
	router := newTestRouter(hash)

	w := get(router, "/api/imports/x", "Bearer correct-horse-battery")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "bearer", w.Body.String())

	w = get(router, "/api/imports/x", "Bearer "+hash)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
