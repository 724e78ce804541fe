package objectclient

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseObjectURL(t *testing.T) {
	tests := []struct {
		in, bucket, key string
	}{
		{"https://papers.s3.us-east-2.amazonaws.com/u1/ws/p1/a.pdf", "papers", "u1/ws/p1/a.pdf"},
		{"mem://papers/u1/ws/p1/a.pdf", "papers", "u1/ws/p1/a.pdf"},
	}
	for _, tt := range tests {
		bucket, key := ParseObjectURL(tt.in)
		assert.Equal(t, tt.bucket, bucket, tt.in)
		assert.Equal(t, tt.key, key, tt.in)
	}
}

func TestMemoryClientRoundTrip(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryClient()

	url, err := m.UploadFile(ctx, "b", "k/file.pdf", strings.NewReader("%PDF-1.4"), "application/pdf")
	require.NoError(t, err)

	bucket, key := ParseObjectURL(url)
	got, err := m.GetFile(ctx, bucket, key)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(got))

	require.NoError(t, m.DeleteFile(ctx, bucket, key))
	_, err = m.GetFile(ctx, bucket, key)
	assert.Error(t, err)
}
