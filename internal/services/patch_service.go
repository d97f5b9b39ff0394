package services

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	originalMarker = "<<<<<<< ORIGINAL"
	dividerMarker  = "======="
	updatedMarker  = ">>>>>>> UPDATED"
)

// patchBlock is one parsed search/replace pair from a diff blob.
type patchBlock struct {
	search      string
	replacement string
}

// PatchService implements the apply_patch engine: a literal (non-regex)
// conflict-marker search/replace applied to a single file under
// the current working directory.
type PatchService struct {
	initialized bool
}

// NewPatchService creates a new PatchService.
func NewPatchService() *PatchService {
	return &PatchService{}
}

// Name returns the service name for registration.
func (p *PatchService) Name() string { return "patch" }

// Initialize marks the service ready; it holds no state.
func (p *PatchService) Initialize() error {
	p.initialized = true
	return nil
}

// Apply applies diffBlob to targetPath, returning the exact status line(s),
// or an error for a rejected/malformed request.
func (p *PatchService) Apply(targetPath, diffBlob string) (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to resolve working directory: %w", err)
	}

	absTarget, err := filepath.Abs(targetPath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve target path %q: %w", targetPath, err)
	}

	if absTarget == cwd {
		return "", fmt.Errorf("Cannot apply edits to the current working directory itself")
	}
	rel, err := filepath.Rel(cwd, absTarget)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("File must be within current working directory")
	}

	diffBlob = strings.ReplaceAll(diffBlob, "<NL>", "\n")

	blocks := parsePatchBlocks(diffBlob)
	if len(blocks) == 0 {
		return "", fmt.Errorf("No valid edit blocks found in diff text")
	}

	var b strings.Builder

	var content string
	if data, err := os.ReadFile(absTarget); err != nil {
		if !os.IsNotExist(err) {
			return "", fmt.Errorf("failed to read target file %q: %w", absTarget, err)
		}
		fmt.Fprintf(&b, "File '%s' does not exist, will create new file\n", targetPath)
		content = ""
	} else {
		content = string(data)
	}

	for _, block := range blocks {
		if strings.TrimSpace(block.search) == "" {
			// Empty ORIGINAL is treated as an append-once.
			content += block.replacement
			continue
		}

		idx := strings.Index(content, block.search)
		if idx == -1 {
			fmt.Fprintf(&b, "WARNING: Search text not found: '%s'\n", firstN(block.search, 80))
			continue
		}

		content = content[:idx] + block.replacement + content[idx+len(block.search):]
	}

	if err := os.WriteFile(absTarget, []byte(content), 0644); err != nil {
		return "", fmt.Errorf("failed to write target file %q: %w", absTarget, err)
	}

	fmt.Fprintf(&b, "Applied edits to file '%s'", targetPath)
	return b.String(), nil
}

// parsePatchBlocks scans diffBlob for one or more ORIGINAL/UPDATED conflict
// blocks in document order. Malformed or truncated blocks are skipped.
func parsePatchBlocks(diffBlob string) []patchBlock {
	var blocks []patchBlock

	remaining := diffBlob
	for {
		start := strings.Index(remaining, originalMarker)
		if start == -1 {
			break
		}
		remaining = remaining[start+len(originalMarker):]
		remaining = strings.TrimPrefix(remaining, "\n")

		divIdx := strings.Index(remaining, dividerMarker)
		if divIdx == -1 {
			break
		}
		search := remaining[:divIdx]
		search = strings.TrimSuffix(search, "\n")
		remaining = remaining[divIdx+len(dividerMarker):]
		remaining = strings.TrimPrefix(remaining, "\n")

		endIdx := strings.Index(remaining, updatedMarker)
		if endIdx == -1 {
			break
		}
		replacement := remaining[:endIdx]
		replacement = strings.TrimSuffix(replacement, "\n")
		remaining = remaining[endIdx+len(updatedMarker):]

		blocks = append(blocks, patchBlock{search: search, replacement: replacement})
	}

	return blocks
}

func firstN(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
