package services

import (
	"encoding/json"

	"github.com/rmloveland/synergy/pkg/types"
)

const anthropicURL = "https://api.anthropic.com/v1/messages"
const anthropicVersion = "2023-06-01"

// anthropicClient implements providerClient for Anthropic's messages API.
type anthropicClient struct{}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	System    string             `json:"system"`
	Messages  []anthropicMessage `json:"messages"`
}

func (c *anthropicClient) apiKeyEnvVar() string { return "ANTHROPIC_API_KEY" }

func (c *anthropicClient) buildRequest(record types.ModelRecord, systemPrompt string, turns []types.Turn, apiKey string) (string, map[string]string, string, error) {
	messages := make([]anthropicMessage, 0, len(turns))
	for _, t := range turns {
		if t.Role == types.RoleSystem {
			continue
		}
		messages = append(messages, anthropicMessage{Role: string(t.Role), Content: t.Text})
	}

	body, err := marshalBody(anthropicRequest{
		Model:     record.WireModelID,
		MaxTokens: record.MaxOutputToken,
		System:    systemPrompt,
		Messages:  messages,
	})
	if err != nil {
		return "", nil, "", err
	}

	headers := map[string]string{
		"x-api-key":         apiKey,
		"anthropic-version": anthropicVersion,
		"Content-Type":      "application/json",
	}
	return anthropicURL, headers, body, nil
}

func (c *anthropicClient) extractReply(respBody string) (string, error) {
	var doc interface{}
	if err := json.Unmarshal([]byte(respBody), &doc); err != nil {
		return "", &types.JSONParseError{RawPrefix: types.BodyPrefix(respBody, 400)}
	}

	text, ok := jsonPathString(doc, "content", 0, "text")
	if !ok {
		return "", &types.SchemaError{Provider: types.ProviderAnthropic}
	}
	return text, nil
}
