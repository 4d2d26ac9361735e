// Package embedding generates skill-text embeddings through an
// OpenAI-compatible API.
package embedding

import (
	"context"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"knkt-backend/application/ports"
	"knkt-backend/domain/profile"
	pkgerrors "knkt-backend/pkg/errors"
)

// OpenAIProvider implements ports.EmbeddingProvider using the OpenAI
// embeddings API.
type OpenAIProvider struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

func NewOpenAIProvider(apiKey, model string, logger *zap.Logger) ports.EmbeddingProvider {
	return &OpenAIProvider{
		client: openai.NewClient(apiKey),
		model:  model,
		logger: logger,
	}
}

// Embed returns a numeric vector for text, or an empty vector when
// the API yields nothing. Callers fall back to lexical matching on an
// empty result.
func (p *OpenAIProvider) Embed(ctx context.Context, text string) (profile.Vector, error) {
	if text == "" {
		return profile.Vector{}, nil
	}

	resp, err := p.client.CreateEmbeddings(ctx, openai.EmbeddingRequestStrings{
		Input: []string{text},
		Model: openai.EmbeddingModel(p.model),
	})
	if err != nil {
		return profile.Vector{}, pkgerrors.NewExternalError("embeddings", err)
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		p.logger.Warn("Embedding API returned no data")
		return profile.Vector{}, nil
	}

	raw := resp.Data[0].Embedding
	values := make([]float64, len(raw))
	for i, v := range raw {
		values[i] = float64(v)
	}
	return profile.NumericVector(values), nil
}
