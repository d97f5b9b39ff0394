package services

import (
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/rmloveland/synergy/pkg/types"
)

const geminiURLTemplate = "https://generativelanguage.googleapis.com/v1beta/models/%s:generateContent?key=%s"

// geminiClient implements providerClient for Google's Gemini generateContent
// API.
type geminiClient struct{}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	MaxOutputTokens int `json:"maxOutputTokens"`
}

type geminiRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig"`
}

func (c *geminiClient) apiKeyEnvVar() string { return "GEMINI_API_KEY" }

func (c *geminiClient) buildRequest(record types.ModelRecord, systemPrompt string, turns []types.Turn, apiKey string) (string, map[string]string, string, error) {
	contents := make([]geminiContent, 0, len(turns)+1)
	contents = append(contents, geminiContent{Role: "user", Parts: []geminiPart{{Text: systemPrompt}}})

	for _, t := range turns {
		role := "user"
		if t.Role == types.RoleAssistant {
			role = "model"
		}
		contents = append(contents, geminiContent{Role: role, Parts: []geminiPart{{Text: t.Text}}})
	}

	body, err := marshalBody(geminiRequest{
		Contents:         contents,
		GenerationConfig: geminiGenerationConfig{MaxOutputTokens: record.MaxOutputToken},
	})
	if err != nil {
		return "", nil, "", err
	}

	reqURL := fmt.Sprintf(geminiURLTemplate, record.WireModelID, url.QueryEscape(apiKey))
	headers := map[string]string{"Content-Type": "application/json"}
	return reqURL, headers, body, nil
}

func (c *geminiClient) extractReply(respBody string) (string, error) {
	var doc interface{}
	if err := json.Unmarshal([]byte(respBody), &doc); err != nil {
		return "", &types.JSONParseError{RawPrefix: types.BodyPrefix(respBody, 400)}
	}

	text, ok := jsonPathString(doc, "candidates", 0, "content", "parts", 0, "text")
	if !ok {
		return "", &types.SchemaError{Provider: types.ProviderGemini}
	}
	return text, nil
}
