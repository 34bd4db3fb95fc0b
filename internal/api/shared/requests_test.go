package shared

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,password"`
}

func TestDecodeJSON(t *testing.T) {
	t.Parallel()

	decode := func(body string) (sampleRequest, error) {
		var v sampleRequest
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		err := DecodeJSON(httptest.NewRecorder(), req, &v)
		return v, err
	}

	v, err := decode(`{"email":"ada@example.com","password":"Secret123","extra":1}`)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", v.Email)

	_, err = decode("")
	assert.ErrorIs(t, err, ErrEmptyBody)

	_, err = decode(`{"email":`)
	assert.Error(t, err)

	_, err = decode(`{"email":"` + strings.Repeat("a", MaxBodyBytes) + `"}`)
	assert.Error(t, err, "oversized bodies are rejected")
}

func TestValidateRequest(t *testing.T) {
	t.Parallel()

	assert.NoError(t, ValidateRequest(&sampleRequest{Email: "ada@example.com", Password: "Secret123"}))

	for _, password := range []string{"short1", "lettersonly", "12345678", strings.Repeat("a1", 40)} {
		err := ValidateRequest(&sampleRequest{Email: "ada@example.com", Password: password})
		assert.Error(t, err, password)
	}

	assert.Error(t, ValidateRequest(&sampleRequest{Email: "nope", Password: "Secret123"}))
}
