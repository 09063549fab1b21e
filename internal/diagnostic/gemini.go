package diagnostic

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiExpertClient implements ExpertClient against Google's Gemini API.
type GeminiExpertClient struct {
	client  *genai.Client
	modelID string
}

// NewGeminiExpertClient creates a Gemini-backed expert client.
func NewGeminiExpertClient(ctx context.Context, apiKey, modelID string) (*GeminiExpertClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("diagnostic: gemini api key is required")
	}
	if strings.TrimSpace(modelID) == "" {
		modelID = "gemini-1.5-flash-8b"
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("diagnostic: failed to create gemini client: %w", err)
	}

	return &GeminiExpertClient{
		client:  client,
		modelID: modelID,
	}, nil
}

// Generate sends one diagnostic turn to Gemini and returns the reply text
// with any citation sources.
func (c *GeminiExpertClient) Generate(ctx context.Context, req ExpertRequest) (ExpertReply, error) {
	model := c.client.GenerativeModel(c.modelID)
	model.SetTemperature(0.1)

	if strings.TrimSpace(req.System) != "" {
		model.SystemInstruction = genai.NewUserContent(genai.Text(req.System))
	}

	cs := model.StartChat()
	for _, turn := range req.History {
		text := strings.TrimSpace(turn.Text)
		if text == "" {
			continue
		}
		cs.History = append(cs.History, &genai.Content{
			Role:  genaiRole(turn.Role),
			Parts: []genai.Part{genai.Text(text)},
		})
	}

	parts := []genai.Part{genai.Text(req.Prompt)}
	if req.ImageBase64 != "" {
		data, err := base64.StdEncoding.DecodeString(req.ImageBase64)
		if err != nil {
			return ExpertReply{}, fmt.Errorf("diagnostic: decode image attachment: %w", err)
		}
		parts = append(parts, genai.ImageData("jpeg", data))
	}

	resp, err := cs.SendMessage(ctx, parts...)
	if err != nil {
		return ExpertReply{}, fmt.Errorf("diagnostic: gemini generation failed: %w", err)
	}

	if len(resp.Candidates) == 0 {
		return ExpertReply{}, errors.New("diagnostic: gemini returned no candidates")
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return ExpertReply{}, errors.New("diagnostic: gemini returned empty content")
	}

	var text strings.Builder
	for _, part := range candidate.Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text.WriteString(string(t))
		}
	}

	reply := ExpertReply{Text: strings.TrimSpace(text.String())}
	if candidate.CitationMetadata != nil {
		for _, src := range candidate.CitationMetadata.CitationSources {
			if src == nil || src.URI == nil {
				continue
			}
			reply.Sources = append(reply.Sources, Source{URI: *src.URI})
		}
	}
	return reply, nil
}

// Close releases resources held by the Gemini client.
func (c *GeminiExpertClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

func genaiRole(role string) string {
	if role == RoleExpert {
		return "model"
	}
	return "user"
}
