package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rmloveland/synergy/pkg/types"
)

var testRecord = types.ModelRecord{
	Shortname:      "test-model",
	WireModelID:    "wire-id",
	MaxOutputToken: 1024,
}

var testTurns = []types.Turn{
	{Role: types.RoleUser, Text: "hello"},
	{Role: types.RoleAssistant, Text: "hi there"},
}

func TestOpenAIClient_BuildRequest(t *testing.T) {
	c := &openAIClient{}
	url, headers, body, err := c.buildRequest(testRecord, "system prompt", testTurns, "sk-test")
	require.NoError(t, err)

	assert.Equal(t, openAIURL, url)
	assert.Equal(t, "Bearer sk-test", headers["Authorization"])
	assert.Contains(t, body, `"role":"system"`)
	assert.Contains(t, body, `"content":"system prompt"`)
	assert.Contains(t, body, `"stream":false`)
}

func TestOpenAIClient_ExtractReply(t *testing.T) {
	c := &openAIClient{}
	reply, err := c.extractReply(`{"choices":[{"message":{"content":"hi"}}]}`)
	require.NoError(t, err)
	assert.Equal(t, "hi", reply)
}

func TestOpenAIClient_ExtractReply_SchemaMismatch(t *testing.T) {
	c := &openAIClient{}
	_, err := c.extractReply(`{"unexpected":true}`)
	require.Error(t, err)
	var schemaErr *types.SchemaError
	assert.ErrorAs(t, err, &schemaErr)
}

func TestOpenAIClient_ExtractReply_InvalidJSON(t *testing.T) {
	c := &openAIClient{}
	_, err := c.extractReply(`not json`)
	require.Error(t, err)
	var parseErr *types.JSONParseError
	assert.ErrorAs(t, err, &parseErr)
}

func TestAnthropicClient_BuildRequest_ExcludesSystemFromMessages(t *testing.T) {
	c := &anthropicClient{}
	turns := append([]types.Turn{{Role: types.RoleSystem, Text: "ignored"}}, testTurns...)
	url, headers, body, err := c.buildRequest(testRecord, "system prompt", turns, "key-123")
	require.NoError(t, err)

	assert.Equal(t, anthropicURL, url)
	assert.Equal(t, "key-123", headers["x-api-key"])
	assert.Equal(t, anthropicVersion, headers["anthropic-version"])
	assert.Contains(t, body, `"system":"system prompt"`)
	assert.NotContains(t, body, "ignored")
}

func TestAnthropicClient_ExtractReply(t *testing.T) {
	c := &anthropicClient{}
	reply, err := c.extractReply(`{"content":[{"text":"hi"}]}`)
	require.NoError(t, err)
	assert.Equal(t, "hi", reply)
}

func TestGeminiClient_BuildRequest_MapsAssistantToModelRole(t *testing.T) {
	c := &geminiClient{}
	url, _, body, err := c.buildRequest(testRecord, "system prompt", testTurns, "api-key")
	require.NoError(t, err)

	assert.True(t, strings.Contains(url, "wire-id"))
	assert.True(t, strings.Contains(url, "key=api-key"))
	assert.Contains(t, body, `"role":"model"`)
	assert.Contains(t, body, `"maxOutputTokens":1024`)
}

func TestGeminiClient_ExtractReply(t *testing.T) {
	c := &geminiClient{}
	reply, err := c.extractReply(`{"candidates":[{"content":{"parts":[{"text":"hi"}]}}]}`)
	require.NoError(t, err)
	assert.Equal(t, "hi", reply)
}

func TestJSONPathString_MissingHopReturnsNotOK(t *testing.T) {
	var doc interface{} = map[string]interface{}{"a": []interface{}{}}
	_, ok := jsonPathString(doc, "a", 0, "b")
	assert.False(t, ok)
}
