package llm

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"

	"github.com/markdave123-py/researchhub/internal/core"
)

// MockLLM answers deterministically without calling a model. Used with
// USE_MOCK_LLM=true and in tests.
type MockLLM struct{}

var _ core.LLMProvider = MockLLM{}

func NewMockLLM() MockLLM { return MockLLM{} }

func (MockLLM) Generate(_ context.Context, _ string, userPrompt string) (string, error) {
	question := userPrompt
	if i := strings.LastIndex(userPrompt, "Question:"); i >= 0 {
		question = strings.TrimSpace(userPrompt[i+len("Question:"):])
	}
	return fmt.Sprintf("Based on the papers in this workspace: %s", question), nil
}

// MockEmbedder hashes words into a small fixed-size vector.
type MockEmbedder struct {
	Dim int
}

var _ core.EmbeddingProvider = MockEmbedder{}

func (e MockEmbedder) EmbedTexts(_ context.Context, texts []string) ([][]float32, error) {
	dim := e.Dim
	if dim <= 0 {
		dim = 8
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		vec := make([]float32, dim)
		for _, w := range strings.Fields(strings.ToLower(t)) {
			h := fnv.New32a()
			_, _ = h.Write([]byte(w))
			vec[h.Sum32()%uint32(dim)]++
		}
		out[i] = vec
	}
	return out, nil
}
