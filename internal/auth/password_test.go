package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword(t *testing.T) {
	a, err := HashPassword("pw123456", 4)
	require.NoError(t, err)
	b, err := HashPassword("pw123456", 4)
	require.NoError(t, err)

	assert.NotEqual(t, "pw123456", a)
	assert.NotEqual(t, a, b, "fresh salt per call")
	assert.True(t, ComparePassword("pw123456", a))
	assert.True(t, ComparePassword("pw123456", b))
	assert.False(t, ComparePassword("wrong", a))
}

func TestHashPasswordRejectsEmpty(t *testing.T) {
	_, err := HashPassword("", 4)
	assert.ErrorIs(t, err, ErrEmptyPassword)
	assert.False(t, ComparePassword("", "$2a$04$abc"))
	assert.False(t, ComparePassword("pw", ""))
	assert.False(t, ComparePassword("pw", "not-a-hash"))
}

func TestHasherDefaultCost(t *testing.T) {
	hash, err := Hasher{}.Hash("pw")
	require.NoError(t, err)
	assert.Contains(t, hash, "$10$")
}
