// Package context holds Synergy's session state: the context stack, the
// conversation log, the active model pointer, session identity, and runtime
// flags. It is the single aggregate mutated by the command processor.
package context

import (
	"sync"

	"github.com/google/uuid"

	"github.com/rmloveland/synergy/pkg/types"
)

// SynergyContext is the concrete session state container. All mutation goes
// through its subcontexts (stack, conversation) or its own flag/model
// accessors; nothing outside this package holds a lock.
type SynergyContext struct {
	mu sync.RWMutex

	stackCtx StackSubcontext
	convoCtx ConversationSubcontext

	activeModel string
	sessionID   string

	base64ToAssistant bool
}

// New creates a fresh SynergyContext with a newly generated session UUID and
// the base64-to-assistant flag ON by default.
func New(defaultModel string) *SynergyContext {
	c := &SynergyContext{
		stackCtx:          NewStackSubcontext(),
		convoCtx:          NewConversationSubcontext(),
		activeModel:       defaultModel,
		sessionID:         uuid.NewString(),
		base64ToAssistant: true,
	}
	return c
}

// Stack returns the context stack subcontext.
func (c *SynergyContext) Stack() StackSubcontext { return c.stackCtx }

// Conversation returns the conversation log subcontext.
func (c *SynergyContext) Conversation() ConversationSubcontext { return c.convoCtx }

// ActiveModel returns the currently selected model shortname.
func (c *SynergyContext) ActiveModel() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.activeModel
}

// SetActiveModel updates the currently selected model shortname.
func (c *SynergyContext) SetActiveModel(shortname string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.activeModel = shortname
}

// SessionID returns the current session UUID.
func (c *SynergyContext) SessionID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sessionID
}

// SetSessionID overwrites the session UUID, used when adopting a loaded dump's identity.
func (c *SynergyContext) SetSessionID(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessionID = id
}

// RotateSessionID generates and adopts a fresh session UUID, used by ,reset.
func (c *SynergyContext) RotateSessionID() {
	c.SetSessionID(uuid.NewString())
}

// Base64ToAssistant reports whether attachment bodies are base64-encoded in
// outbound prompts.
func (c *SynergyContext) Base64ToAssistant() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.base64ToAssistant
}

// SetBase64ToAssistant toggles the base64-to-assistant flag.
func (c *SynergyContext) SetBase64ToAssistant(v bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.base64ToAssistant = v
}

// Reset clears the stack, conversation, and rotates session identity, per
// the ,reset meta-command.
func (c *SynergyContext) Reset() {
	c.stackCtx.Reset()
	c.convoCtx.Reset()
	c.RotateSessionID()
}

// Restore atomically replaces stack, conversation, model, and session ID —
// used by ,load.
func (c *SynergyContext) Restore(stack []types.Attachment, convo []types.Turn, model string, sessionID string) {
	c.stackCtx.ReplaceAll(stack)
	c.convoCtx.ReplaceAll(convo)
	c.SetActiveModel(model)
	c.SetSessionID(sessionID)
}
