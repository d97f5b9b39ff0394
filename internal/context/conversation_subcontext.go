package context

import (
	"sync"

	"github.com/rmloveland/synergy/pkg/types"
)

// ConversationSubcontext defines the append-only conversation log
// operations. The system prompt is held separately by the config service,
// passed to the provider dispatcher per request, and is never appended here.
type ConversationSubcontext interface {
	Append(role types.Role, text string)
	Reset()
	Turns() []types.Turn
	ReplaceAll(turns []types.Turn)
	TruncateTo(n int)
}

type conversationSubcontext struct {
	mu    sync.RWMutex
	turns []types.Turn
}

// NewConversationSubcontext creates an empty conversation log.
func NewConversationSubcontext() ConversationSubcontext {
	return &conversationSubcontext{turns: make([]types.Turn, 0)}
}

// Append adds a turn to the end of the log.
func (c *conversationSubcontext) Append(role types.Role, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.turns = append(c.turns, types.Turn{Role: role, Text: text})
}

// Reset clears the log, used by ,reset.
func (c *conversationSubcontext) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.turns = make([]types.Turn, 0)
}

// Turns returns a copy of the turn sequence in append order.
func (c *conversationSubcontext) Turns() []types.Turn {
	c.mu.RLock()
	defer c.mu.RUnlock()
	result := make([]types.Turn, len(c.turns))
	copy(result, c.turns)
	return result
}

// ReplaceAll overwrites the log wholesale, used by ,load.
func (c *conversationSubcontext) ReplaceAll(turns []types.Turn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.turns = make([]types.Turn, len(turns))
	copy(c.turns, turns)
}

// TruncateTo keeps the first n turns and drops the rest (index n onward),
// used to roll back a user turn appended in anticipation of a reply that
// never arrived. A negative or out-of-range n is a no-op.
func (c *conversationSubcontext) TruncateTo(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n < 0 || n >= len(c.turns) {
		return
	}
	c.turns = c.turns[:n]
}
