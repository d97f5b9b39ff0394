package services

import (
	neurocontext "github.com/rmloveland/synergy/internal/context"
	"github.com/rmloveland/synergy/pkg/types"
)

// ConversationService wraps the conversation log subcontext.
type ConversationService struct {
	initialized bool
	ctx         *neurocontext.SynergyContext
}

// NewConversationService creates a ConversationService bound to the given session context.
func NewConversationService(ctx *neurocontext.SynergyContext) *ConversationService {
	return &ConversationService{ctx: ctx}
}

// Name returns the service name for registration.
func (c *ConversationService) Name() string { return "conversation" }

// Initialize marks the service ready.
func (c *ConversationService) Initialize() error {
	c.initialized = true
	return nil
}

// Append adds a turn to the conversation log.
func (c *ConversationService) Append(role types.Role, text string) {
	c.ctx.Conversation().Append(role, text)
}

// Reset clears the conversation log, used by ,reset.
func (c *ConversationService) Reset() {
	c.ctx.Conversation().Reset()
}

// Turns returns the conversation log in append order.
func (c *ConversationService) Turns() []types.Turn {
	return c.ctx.Conversation().Turns()
}

// TruncateTo keeps the first n turns and drops the rest (index n onward),
// used to roll back a user turn appended in anticipation of a reply that
// never arrived.
func (c *ConversationService) TruncateTo(n int) {
	c.ctx.Conversation().TruncateTo(n)
}

// RenderLast renders the last n turns compactly (role + first line), used
// by the ,history meta-command.
func (c *ConversationService) RenderLast(n int) []string {
	turns := c.ctx.Conversation().Turns()
	if n <= 0 || n > len(turns) {
		n = len(turns)
	}
	start := len(turns) - n

	lines := make([]string, 0, n)
	for _, t := range turns[start:] {
		firstLine := t.Text
		for i, r := range t.Text {
			if r == '\n' {
				firstLine = t.Text[:i]
				break
			}
		}
		lines = append(lines, string(t.Role)+": "+firstLine)
	}
	return lines
}
