package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("s3cret-pass", bcrypt.MinCost)
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret-pass", hash)

	assert.True(t, VerifyPassword(hash, "s3cret-pass"))
	assert.False(t, VerifyPassword(hash, "wrong-pass"))
	assert.False(t, VerifyPassword("not-a-bcrypt-hash", "s3cret-pass"))
}

func TestGenerateVerificationCode(t *testing.T) {
	code, err := GenerateVerificationCode()
	require.NoError(t, err)
	assert.Len(t, code, VerificationCodeLength)
	for _, c := range code {
		ok := (c >= '0' && c <= '9') || (c >= 'A' && c <= 'F')
		assert.True(t, ok, "unexpected char %q in code %s", c, code)
	}

	other, err := GenerateVerificationCode()
	require.NoError(t, err)
	assert.NotEqual(t, code, other)
}

func TestGenerateCode_OddLength(t *testing.T) {
	code, err := GenerateCode(7)
	require.NoError(t, err)
	assert.Len(t, code, 7)
}
