package objectclient

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/markdave123-py/researchhub/internal/core"
)

// MemoryClient keeps objects in process; used with OBJECT_BACKEND=memory and in tests.
type MemoryClient struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

var _ core.ObjectClient = (*MemoryClient)(nil)

func NewMemoryClient() *MemoryClient {
	return &MemoryClient{objects: make(map[string][]byte)}
}

func (m *MemoryClient) UploadFile(_ context.Context, bucket, key string, data io.Reader, _ string) (string, error) {
	b, err := io.ReadAll(data)
	if err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}
	m.mu.Lock()
	m.objects[bucket+"/"+key] = b
	m.mu.Unlock()
	return ObjectURL(bucket, key), nil
}

func (m *MemoryClient) DeleteFile(_ context.Context, bucket, key string) error {
	m.mu.Lock()
	delete(m.objects, bucket+"/"+key)
	m.mu.Unlock()
	return nil
}

func (m *MemoryClient) GetFile(_ context.Context, bucket, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.objects[bucket+"/"+key]
	if !ok {
		return nil, fmt.Errorf("object %s/%s not found", bucket, key)
	}
	return b, nil
}

// ObjectURL is the reference stored for in-memory objects.
func ObjectURL(bucket, key string) string {
	return "mem://" + bucket + "/" + key
}

// ParseObjectURL extracts the bucket and key from a stored file reference:
// either a virtual-hosted S3 URL (https://bucket.s3.region.amazonaws.com/key)
// or an in-memory reference (mem://bucket/key).
func ParseObjectURL(u string) (bucket, key string) {
	if rest, ok := strings.CutPrefix(u, "mem://"); ok {
		bucket, key, _ = strings.Cut(rest, "/")
		return bucket, key
	}
	hostPath := strings.SplitN(strings.TrimPrefix(u, "https://"), "/", 2)
	host := hostPath[0]
	if len(hostPath) == 2 {
		key = hostPath[1]
	}
	parts := strings.Split(host, ".")
	if len(parts) > 0 {
		bucket = parts[0]
	}
	return bucket, key
}
