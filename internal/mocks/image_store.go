package mocks

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"
)

// MockImageStore is a testify mock for service.ImageStore. The body is
// drained before the expectation is matched so it can be asserted on as a
// string.
type MockImageStore struct {
	mock.Mock
}

// Upload implements service.ImageStore.
func (m *MockImageStore) Upload(
	ctx context.Context,
	key string,
	body io.Reader,
	size int64,
	contentType string,
) (string, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	args := m.Called(ctx, key, string(data), size, contentType)
	return args.String(0), args.Error(1)
}
