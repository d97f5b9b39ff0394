package context

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/rmloveland/synergy/pkg/types"
)

// StackSubcontext defines the context-stack operations. Index 0 is the
// bottom (oldest) item; index N-1 is the top (newest).
type StackSubcontext interface {
	PushFile(path string) error
	PushCapture(cmd, stdout string, status int)
	Drop() (types.Attachment, bool, string)
	DropAt(i int) (types.Attachment, error)
	Swap() string
	Rot() string
	Reset()
	Size() int
	Items() []types.Attachment
	ReplaceAll(items []types.Attachment)
}

type stackSubcontext struct {
	mu    sync.RWMutex
	items []types.Attachment
}

// NewStackSubcontext creates an empty context stack.
func NewStackSubcontext() StackSubcontext {
	return &stackSubcontext{items: make([]types.Attachment, 0)}
}

// PushFile resolves path to an absolute form and appends a File attachment.
// It does not read the file; readability is checked at render time.
func (s *stackSubcontext) PushFile(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve path %q: %w", path, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, types.Attachment{Kind: types.AttachmentFile, Path: abs})
	return nil
}

// PushCapture appends a Capture attachment recording a command, its stdout, and exit status.
func (s *stackSubcontext) PushCapture(cmd, stdout string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, types.Attachment{
		Kind:     types.AttachmentCapture,
		Command:  cmd,
		Stdout:   stdout,
		ExitCode: status,
	})
}

// Drop removes the top item. The second return value is false, with an
// informational message, when the stack is empty.
func (s *stackSubcontext) Drop() (types.Attachment, bool, string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.items) == 0 {
		return types.Attachment{}, false, "Stack is empty, nothing to drop"
	}

	last := len(s.items) - 1
	item := s.items[last]
	s.items = s.items[:last]
	return item, true, ""
}

// DropAt removes the item at bottom-origin index i.
func (s *stackSubcontext) DropAt(i int) (types.Attachment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i < 0 || i >= len(s.items) {
		return types.Attachment{}, &types.IndexOutOfRangeError{Index: i, Size: len(s.items)}
	}

	item := s.items[i]
	s.items = append(s.items[:i], s.items[i+1:]...)
	return item, nil
}

// Swap exchanges the top two items. It is a no-op, returning a message, on
// stacks smaller than two.
func (s *stackSubcontext) Swap() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.items) < 2 {
		return "Stack has fewer than two items, nothing to swap"
	}

	last := len(s.items) - 1
	s.items[last], s.items[last-1] = s.items[last-1], s.items[last]
	return ""
}

// Rot moves the bottom item (index 0) to the top. It is a no-op, returning a
// message, on empty stacks.
func (s *stackSubcontext) Rot() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.items) == 0 {
		return "Stack is empty, nothing to rotate"
	}
	if len(s.items) == 1 {
		return ""
	}

	bottom := s.items[0]
	s.items = append(s.items[1:], bottom)
	return ""
}

// Reset clears the stack.
func (s *stackSubcontext) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = make([]types.Attachment, 0)
}

// Size returns the number of items on the stack.
func (s *stackSubcontext) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Items returns a bottom-to-top copy of the stack contents.
func (s *stackSubcontext) Items() []types.Attachment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]types.Attachment, len(s.items))
	copy(result, s.items)
	return result
}

// ReplaceAll overwrites the stack contents wholesale, used by ,load.
func (s *stackSubcontext) ReplaceAll(items []types.Attachment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = make([]types.Attachment, len(items))
	copy(s.items, items)
}
