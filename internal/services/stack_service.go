package services

import (
	"encoding/base64"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"

	neurocontext "github.com/rmloveland/synergy/internal/context"
	"github.com/rmloveland/synergy/pkg/types"
)

var (
	topMarkerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	previewStyle   = lipgloss.NewStyle().Faint(true)
)

// StackService wraps the context stack subcontext with the rendering logic
// for the stack: display for the terminal, and payload for the outgoing
// prompt.
type StackService struct {
	initialized bool
	ctx         *neurocontext.SynergyContext
}

// NewStackService creates a new StackService bound to the given session context.
func NewStackService(ctx *neurocontext.SynergyContext) *StackService {
	return &StackService{ctx: ctx}
}

// Name returns the service name for registration.
func (s *StackService) Name() string { return "stack" }

// Initialize marks the service ready; it holds no state of its own beyond the context reference.
func (s *StackService) Initialize() error {
	s.initialized = true
	return nil
}

// PushFile appends a file attachment to the stack.
func (s *StackService) PushFile(path string) error {
	return s.ctx.Stack().PushFile(path)
}

// Drop removes the top item, reporting an informational message when the
// stack is empty or a confirmation naming what was removed.
func (s *StackService) Drop() string {
	item, ok, msg := s.ctx.Stack().Drop()
	if !ok {
		return msg
	}
	return fmt.Sprintf("Dropped: %s", describeItem(item))
}

// DropAt removes the item at bottom-origin index i, returning a confirmation
// naming what was removed.
func (s *StackService) DropAt(i int) (string, error) {
	item, err := s.ctx.Stack().DropAt(i)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Dropped [%d]: %s", i, describeItem(item)), nil
}

// Swap exchanges the top two items.
func (s *StackService) Swap() string {
	return s.ctx.Stack().Swap()
}

// Rot moves the bottom item to the top.
func (s *StackService) Rot() string {
	return s.ctx.Stack().Rot()
}

// Reset clears the stack.
func (s *StackService) Reset() {
	s.ctx.Stack().Reset()
}

// RenderDisplay produces one line per item, bottom-first, with the top
// starred and a collapsed content preview.
func (s *StackService) RenderDisplay() string {
	items := s.ctx.Stack().Items()
	if len(items) == 0 {
		return "Stack is empty."
	}

	var b strings.Builder
	top := len(items) - 1
	for i, item := range items {
		marker := " "
		if i == top {
			marker = topMarkerStyle.Render("*")
		}
		fmt.Fprintf(&b, "[%d]%s %s\n", i, marker, describeItem(item))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func describeItem(item types.Attachment) string {
	switch item.Kind {
	case types.AttachmentFile:
		body, err := os.ReadFile(item.Path)
		if err != nil {
			return fmt.Sprintf("file %s (WARNING: unreadable: %v)", item.Path, err)
		}
		return fmt.Sprintf("file %s, contents: %s", item.Path, previewStyle.Render(collapse(string(body))))
	case types.AttachmentCapture:
		return fmt.Sprintf("capture `%s` (status %d), output: %s", item.Command, item.ExitCode, previewStyle.Render(collapse(item.Stdout)))
	default:
		return "unknown attachment"
	}
}

func collapse(s string) string {
	joined := strings.Join(strings.Fields(strings.ReplaceAll(s, "\n", " ")), " ")
	const max = 120
	if len(joined) > max {
		return joined[:max]
	}
	return joined
}

// RenderPayload renders the attachment block inlined into the outgoing
// prompt: each file item is a labelled block giving the
// path and either verbatim or base64-encoded bytes; each capture item gives
// its command line and captured output.
func (s *StackService) RenderPayload(base64Encode bool) string {
	items := s.ctx.Stack().Items()
	if len(items) == 0 {
		return ""
	}

	var b strings.Builder
	for _, item := range items {
		switch item.Kind {
		case types.AttachmentFile:
			body, err := os.ReadFile(item.Path)
			if err != nil {
				fmt.Fprintf(&b, "--- FILE: %s ---\n[WARNING: could not read file: %v]\n", item.Path, err)
				continue
			}
			content := string(body)
			if base64Encode {
				content = base64.StdEncoding.EncodeToString(body)
			}
			fmt.Fprintf(&b, "--- FILE: %s ---\n%s\n", item.Path, content)
		case types.AttachmentCapture:
			out := item.Stdout
			if base64Encode {
				out = base64.StdEncoding.EncodeToString([]byte(item.Stdout))
			}
			fmt.Fprintf(&b, "--- CAPTURE: %s ---\n%s\n", item.Command, out)
		}
	}
	return b.String()
}
