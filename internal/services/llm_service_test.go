package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	neurocontext "github.com/rmloveland/synergy/internal/context"
)

func newTestLLMService(t *testing.T, root string) (*LLMService, *ModelRegistryService, *ConfigService) {
	t.Helper()
	ctx := neurocontext.New("")
	models := NewModelRegistryService()
	require.NoError(t, models.Initialize())
	stack := NewStackService(ctx)
	convo := NewConversationService(ctx)
	cfg := NewConfigService(root)
	require.NoError(t, cfg.Initialize())
	transport := NewHTTPTransportService(cfg)
	require.NoError(t, transport.Initialize())
	return NewLLMService(models, stack, convo, cfg, transport), models, cfg
}

func TestLLMService_Ask_MissingAPIKey(t *testing.T) {
	llm, models, _ := newTestLLMService(t, t.TempDir())
	require.NoError(t, models.SetActive("gpt-5"))
	t.Setenv("OPENAI_API_KEY", "")

	_, err := llm.Ask(true, "hello")
	require.Error(t, err)
	assert.Equal(t, "Missing API key for provider 'openai'", err.Error())
}

func TestLLMService_Ask_MissingAPIKey_DoesNotLeaveDanglingUserTurn(t *testing.T) {
	llm, models, _ := newTestLLMService(t, t.TempDir())
	require.NoError(t, models.SetActive("gpt-5"))
	t.Setenv("OPENAI_API_KEY", "")

	_, err := llm.Ask(true, "first attempt")
	require.Error(t, err)
	assert.Empty(t, llm.convo.Turns())

	t.Setenv("OPENAI_API_KEY", "sk-now-set")
	t.Setenv("SYNERGY_OFFLINE", "1")
	t.Setenv("SYNERGY_OFFLINE_RESPONSE", "second attempt reply")

	reply, err := llm.Ask(true, "second attempt")
	require.NoError(t, err)
	assert.Equal(t, "second attempt reply", reply)

	turns := llm.convo.Turns()
	require.Len(t, turns, 2)
	assert.Equal(t, "second attempt", turns[0].Text)
	assert.Equal(t, "second attempt reply", turns[1].Text)
}

func TestLLMService_Ask_TransportFailureDoesNotLeaveDanglingUserTurn(t *testing.T) {
	root := t.TempDir()
	llm, models, _ := newTestLLMService(t, root)
	require.NoError(t, models.SetActive("gemini-flash"))
	t.Setenv("GEMINI_API_KEY", "test-key")
	t.Setenv("SYNERGY_MAX_RETRIES", "0")

	// A stub path that does not exist forces attempt() to fail reading it,
	// exercising the same rollback path as a real curl subprocess error.
	t.Setenv("SYNERGY_CURL_STUB", t.TempDir()+"/does-not-exist.json")

	_, err := llm.Ask(true, "will fail before any reply arrives")
	require.Error(t, err)
	assert.Empty(t, llm.convo.Turns())
}

func TestLLMService_Ask_OfflineModeReturnsCannedReply(t *testing.T) {
	root := t.TempDir()
	llm, models, _ := newTestLLMService(t, root)
	require.NoError(t, models.SetActive("gemini-flash"))
	t.Setenv("GEMINI_API_KEY", "test-key")
	t.Setenv("SYNERGY_OFFLINE", "1")
	t.Setenv("SYNERGY_OFFLINE_RESPONSE", "a canned answer")

	reply, err := llm.Ask(true, "hello")
	require.NoError(t, err)
	assert.Equal(t, "a canned answer", reply)
}

func TestLLMService_Ask_EmptyStackComposesPromptVerbatim(t *testing.T) {
	root := t.TempDir()
	llm, models, _ := newTestLLMService(t, root)
	require.NoError(t, models.SetActive("gemini-flash"))
	t.Setenv("GEMINI_API_KEY", "test-key")
	t.Setenv("SYNERGY_OFFLINE", "1")
	t.Setenv("SYNERGY_OFFLINE_RESPONSE", "ok")

	reply, err := llm.Ask(true, "plain question, no attachments")
	require.NoError(t, err)
	assert.Equal(t, "ok", reply)
}
