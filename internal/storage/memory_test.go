package storage

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.PutObject(ctx, "users/u1/a.jpg", strings.NewReader("jpeg"), 4, PutOptions{ContentType: "image/jpeg"}))

	rc, info, err := s.GetObject(ctx, "users/u1/a.jpg")
	require.NoError(t, err)
	defer rc.Close()
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "jpeg", string(body))
	assert.EqualValues(t, 4, info.Size)
	assert.Equal(t, "image/jpeg", info.ContentType)

	require.NoError(t, s.RemoveObject(ctx, "users/u1/a.jpg"))
	_, _, err = s.GetObject(ctx, "users/u1/a.jpg")
	assert.ErrorIs(t, err, ErrObjectNotFound)
	assert.Empty(t, s.Keys())
}
