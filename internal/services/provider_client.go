package services

import (
	"encoding/json"
	"fmt"

	"github.com/rmloveland/synergy/pkg/types"
)

// providerClient builds the wire request for one chat-completion API and
// extracts the assistant's reply text from its response body.
type providerClient interface {
	apiKeyEnvVar() string
	buildRequest(record types.ModelRecord, systemPrompt string, turns []types.Turn, apiKey string) (url string, headers map[string]string, body string, err error)
	extractReply(respBody string) (string, error)
}

// providerClients maps each supported provider tag to its client — a closed
// tagged union with three arms, one per supported wire protocol.
var providerClients = map[types.Provider]providerClient{
	types.ProviderOpenAI:    &openAIClient{},
	types.ProviderAnthropic: &anthropicClient{},
	types.ProviderGemini:    &geminiClient{},
}

// marshalBody is a small shared helper so each client's buildRequest stays a
// one-liner around its own body struct.
func marshalBody(v interface{}) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request body: %w", err)
	}
	return string(b), nil
}

// jsonPathString walks a decoded JSON document through a sequence of map
// keys and slice indices, returning the string leaf. It returns ok=false
// when any hop is absent or of the wrong shape, letting callers turn that
// into a *types.SchemaError without deeply nested type assertions at each
// call site.
func jsonPathString(doc interface{}, path ...interface{}) (string, bool) {
	cur := doc
	for _, step := range path {
		switch key := step.(type) {
		case string:
			m, ok := cur.(map[string]interface{})
			if !ok {
				return "", false
			}
			cur, ok = m[key]
			if !ok {
				return "", false
			}
		case int:
			s, ok := cur.([]interface{})
			if !ok || key < 0 || key >= len(s) {
				return "", false
			}
			cur = s[key]
		}
	}
	s, ok := cur.(string)
	return s, ok
}
