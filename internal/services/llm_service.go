package services

import (
	"strings"

	"github.com/rmloveland/synergy/internal/logger"
	"github.com/rmloveland/synergy/pkg/types"
)

// LLMService implements the provider dispatcher:
// it composes the effective outgoing message from the context stack and
// conversation log, builds a provider-specific request, drives it through
// the HTTP transport, and extracts the assistant's reply.
type LLMService struct {
	initialized bool

	models *ModelRegistryService
	stack  *StackService
	convo  *ConversationService
	cfg    *ConfigService
	http   *HTTPTransportService
}

// NewLLMService creates a new LLMService wired to its collaborator services.
func NewLLMService(models *ModelRegistryService, stack *StackService, convo *ConversationService, cfg *ConfigService, http *HTTPTransportService) *LLMService {
	return &LLMService{models: models, stack: stack, convo: convo, cfg: cfg, http: http}
}

// Name returns the service name for registration.
func (l *LLMService) Name() string { return "llm" }

// Initialize marks the service ready; it holds no state of its own.
func (l *LLMService) Initialize() error {
	l.initialized = true
	return nil
}

// Ask sends promptText to the active model and returns its reply. A blank or
// whitespace-only promptText is rejected by the caller before Ask is reached,
// which prints "WARNING: Ignoring empty assistant query".
func (l *LLMService) Ask(base64ToAssistant bool, promptText string) (string, error) {
	effective := l.composeEffectiveMessage(base64ToAssistant, promptText)

	priorLen := len(l.convo.Turns())
	l.convo.Append(types.RoleUser, effective)

	record := l.models.GetActive()
	client, ok := providerClients[record.Provider]
	if !ok {
		l.convo.TruncateTo(priorLen)
		return "", &types.SchemaError{Provider: record.Provider}
	}

	apiKey := l.cfg.Get(client.apiKeyEnvVar())
	if apiKey == "" {
		l.convo.TruncateTo(priorLen)
		return "", &types.MissingAPIKeyError{Provider: record.Provider}
	}

	url, headers, body, err := client.buildRequest(record, l.cfg.SystemPrompt(), l.convo.Turns(), apiKey)
	if err != nil {
		l.convo.TruncateTo(priorLen)
		return "", err
	}

	logger.Debug("dispatching provider request", "provider", record.Provider, "model", record.WireModelID)

	result, err := l.http.Post(url, headers, body)
	if err != nil {
		l.convo.TruncateTo(priorLen)
		if te, ok := err.(*types.TransportError); ok {
			return "", te
		}
		return "", err
	}

	if result.Status >= 400 {
		l.convo.TruncateTo(priorLen)
		return "", &types.HTTPError{Status: result.Status, BodyPrefix: types.BodyPrefix(result.Body, 400)}
	}

	var reply string
	if result.Final {
		reply = result.Body
	} else {
		reply, err = client.extractReply(result.Body)
		if err != nil {
			l.convo.TruncateTo(priorLen)
			return "", err
		}
	}

	l.convo.Append(types.RoleAssistant, reply)
	return reply, nil
}

// composeEffectiveMessage concatenates the rendered attachment payload with
// the user's prompt text.
func (l *LLMService) composeEffectiveMessage(base64ToAssistant bool, promptText string) string {
	payload := l.stack.RenderPayload(base64ToAssistant)
	if payload == "" {
		return promptText
	}

	var b strings.Builder
	b.WriteString(payload)
	b.WriteString("---\n")
	b.WriteString(promptText)
	return b.String()
}
