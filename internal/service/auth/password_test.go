package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHasher(t *testing.T) {
	t.Parallel()
	hasher := NewBcryptHasher(bcrypt.MinCost)

	passwords := []string{"Abc12345", "correct horse battery staple 9", "ünïcødé-pässwörd-1"}
	for _, p := range passwords {
		hash, err := hasher.Hash(p)
		require.NoError(t, err)
		assert.NotEqual(t, p, hash)
		assert.NoError(t, hasher.Compare(hash, p))
		assert.Error(t, hasher.Compare(hash, p+"x"))
	}
}

func TestBcryptHasher_Salted(t *testing.T) {
	t.Parallel()
	hasher := NewBcryptHasher(bcrypt.MinCost)

	first, err := hasher.Hash("Abc12345")
	require.NoError(t, err)
	second, err := hasher.Hash("Abc12345")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestBcryptHasher_Empty(t *testing.T) {
	t.Parallel()
	_, err := NewBcryptHasher(bcrypt.MinCost).Hash("")
	assert.Error(t, err)
}

func TestNewBcryptHasher_CostFallback(t *testing.T) {
	t.Parallel()
	assert.Equal(t, bcrypt.DefaultCost, NewBcryptHasher(0).cost)
	assert.Equal(t, bcrypt.DefaultCost, NewBcryptHasher(bcrypt.MaxCost+1).cost)
	assert.Equal(t, 12, NewBcryptHasher(12).cost)
}
