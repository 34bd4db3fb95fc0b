package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/phrazzld/flashlet-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestRun(t *testing.T) {
	t.Parallel()

	t.Run("arguments", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, run([]string{"-cost", "4", "Secret123", "Another1"}, strings.NewReader(""), &out))

		hashes := strings.Fields(out.String())
		require.Len(t, hashes, 2)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hashes[0]), []byte("Secret123")))
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hashes[1]), []byte("Another1")))
		cost, err := bcrypt.Cost([]byte(hashes[0]))
		require.NoError(t, err)
		assert.Equal(t, 4, cost)
	})

	t.Run("stdin", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, run([]string{"-cost", "4"}, strings.NewReader("Secret123\r\n\n"), &out))
		assert.Len(t, strings.Fields(out.String()), 1)
	})

	t.Run("weak_password", func(t *testing.T) {
		err := run([]string{"-cost", "4", "password"}, strings.NewReader(""), &bytes.Buffer{})
		assert.ErrorIs(t, err, domain.ErrPasswordTooWeak)
	})

	t.Run("bad_cost", func(t *testing.T) {
		assert.Error(t, run([]string{"-cost", "99", "Secret123"}, strings.NewReader(""), &bytes.Buffer{}))
	})

	t.Run("nothing_to_hash", func(t *testing.T) {
		assert.EqualError(t, run(nil, strings.NewReader(""), &bytes.Buffer{}), "no passwords given")
	})
}
