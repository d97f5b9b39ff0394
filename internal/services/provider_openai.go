package services

import (
	"encoding/json"

	"github.com/rmloveland/synergy/pkg/types"
)

const openAIURL = "https://api.openai.com/v1/chat/completions"

// openAIClient implements providerClient for OpenAI's chat completions API.
type openAIClient struct{}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIRequest struct {
	Model    string          `json:"model"`
	Messages []openAIMessage `json:"messages"`
	Stream   bool            `json:"stream"`
}

func (c *openAIClient) apiKeyEnvVar() string { return "OPENAI_API_KEY" }

func (c *openAIClient) buildRequest(record types.ModelRecord, systemPrompt string, turns []types.Turn, apiKey string) (string, map[string]string, string, error) {
	messages := make([]openAIMessage, 0, len(turns)+1)
	messages = append(messages, openAIMessage{Role: "system", Content: systemPrompt})
	for _, t := range turns {
		messages = append(messages, openAIMessage{Role: string(t.Role), Content: t.Text})
	}

	body, err := marshalBody(openAIRequest{Model: record.WireModelID, Messages: messages, Stream: false})
	if err != nil {
		return "", nil, "", err
	}

	headers := map[string]string{
		"Authorization": "Bearer " + apiKey,
		"Content-Type":  "application/json",
	}
	return openAIURL, headers, body, nil
}

func (c *openAIClient) extractReply(respBody string) (string, error) {
	var doc interface{}
	if err := json.Unmarshal([]byte(respBody), &doc); err != nil {
		return "", &types.JSONParseError{RawPrefix: types.BodyPrefix(respBody, 400)}
	}

	text, ok := jsonPathString(doc, "choices", 0, "message", "content")
	if !ok {
		return "", &types.SchemaError{Provider: types.ProviderOpenAI}
	}
	return text, nil
}
