// Package gemini words forecast replies with Google's Gemini models.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"

	"github.com/couchcryptid/weather-chat-service/internal/domain"
)

// Apology is returned whenever the model cannot produce a reply.
const Apology = "Lo siento, no pude generar una respuesta en este momento."

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-2.0-flash"

// contentGenerator is the subset of *genai.Models the phraser uses.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Phraser implements domain.PhraseProvider.
type Phraser struct {
	models contentGenerator
	model  string
	logger *slog.Logger
}

// New creates a Phraser backed by the Gemini API.
func New(ctx context.Context, apiKey, model string, logger *slog.Logger) (*Phraser, error) {
	if apiKey == "" {
		return nil, errors.New("gemini: API key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return newPhraser(client.Models, model, logger), nil
}

func newPhraser(models contentGenerator, model string, logger *slog.Logger) *Phraser {
	if model == "" {
		model = DefaultModel
	}
	return &Phraser{models: models, model: model, logger: logger}
}

// Generate asks the model to reword the forecast. It never fails: errors
// are logged and replaced by Apology.
func (p *Phraser) Generate(ctx context.Context, pc domain.PromptContext) string {
	text, err := p.generate(ctx, pc)
	if err != nil {
		p.logger.Warn("phrase generation failed", "model", p.model, "city", pc.City, "error", err)
		return Apology
	}
	return text
}

func (p *Phraser) generate(ctx context.Context, pc domain.PromptContext) (string, error) {
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemInstruction(pc.TimeOfDay), genai.RoleUser),
	}
	content := genai.NewContentFromText(pc.Prompt, genai.RoleUser)

	resp, err := p.models.GenerateContent(ctx, p.model, []*genai.Content{content}, config)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errors.New("no response candidates")
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil && part.Text != "" {
			b.WriteString(part.Text)
		}
	}
	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", errors.New("empty response")
	}
	return text, nil
}

func systemInstruction(timeOfDay string) string {
	s := "Eres un asistente del clima para usuarios en Colombia. Responde siempre en español, en máximo tres líneas."
	if timeOfDay != "" {
		s += " Ahora es de " + timeOfDay + "; saluda de acuerdo con la hora."
	}
	return s
}
