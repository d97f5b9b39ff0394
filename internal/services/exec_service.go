package services

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	shellquote "github.com/kballard/go-shellquote"

	neurocontext "github.com/rmloveland/synergy/internal/context"
)

// execAllowList is the static, read-only-tool allow-list; rejecting
// anything outside it is a security requirement.
var execAllowList = []string{
	"grep", "egrep", "fgrep", "ls", "wc", "cat", "head", "tail",
	"find", "file", "diff", "stat", "sort", "uniq", "tr", "awk", "sed",
}

var execAllowSet = func() map[string]bool {
	m := make(map[string]bool, len(execAllowList))
	for _, name := range execAllowList {
		m[name] = true
	}
	return m
}()

// shellMetacharacters is the reference set of characters no argv token may
// contain.
const shellMetacharacters = ";&|`$><()\n"

// ExecService implements the exec sandbox: run an allow-listed read-only
// shell command, capture its output to a temp file, and push a
// Capture attachment onto the context stack.
type ExecService struct {
	initialized bool
	ctx         *neurocontext.SynergyContext
}

// NewExecService creates a new ExecService bound to the given session context.
func NewExecService(ctx *neurocontext.SynergyContext) *ExecService {
	return &ExecService{ctx: ctx}
}

// Name returns the service name for registration.
func (e *ExecService) Name() string { return "exec" }

// Initialize marks the service ready; it holds no state beyond the context reference.
func (e *ExecService) Initialize() error {
	e.initialized = true
	return nil
}

// ExecResult is the outcome of a validated ,exec invocation.
type ExecResult struct {
	OutputPath string
	Command    string
	Output     string
	ExitStatus int
}

// Run validates and executes argLine as a single command: rejecting empty
// input, shell metacharacters, and commands outside the allow-list before
// invoking it and capturing its output.
func (e *ExecService) Run(argLine string) (ExecResult, error) {
	argLine = strings.TrimSpace(argLine)
	if argLine == "" {
		return ExecResult{}, fmt.Errorf("No command provided to ,exec")
	}

	if strings.ContainsAny(argLine, shellMetacharacters) {
		return ExecResult{}, fmt.Errorf("Shell metacharacters not allowed")
	}

	argv, err := shellquote.Split(argLine)
	if err != nil {
		return ExecResult{}, fmt.Errorf("failed to parse ,exec arguments: %w", err)
	}
	if len(argv) == 0 {
		return ExecResult{}, fmt.Errorf("No command provided to ,exec")
	}

	if !execAllowSet[argv[0]] {
		return ExecResult{}, fmt.Errorf("Command '%s' not allowed in ,exec mode. Allowed commands: %s",
			argv[0], strings.Join(execAllowList, ", "))
	}

	cmd := exec.Command(argv[0], argv[1:]...)
	output, runErr := cmd.CombinedOutput()

	exitStatus := 0
	if runErr != nil {
		if exitErr, ok := runErr.(*exec.ExitError); ok {
			exitStatus = exitErr.ExitCode()
		} else {
			return ExecResult{}, fmt.Errorf("failed to run command %q: %w", argv[0], runErr)
		}
	}

	outPath := filepath.Join(os.TempDir(), fmt.Sprintf("synergy_exec_pid_%d_timestamp_%d.txt", os.Getpid(), time.Now().UnixNano()))
	if err := os.WriteFile(outPath, output, 0644); err != nil {
		return ExecResult{}, fmt.Errorf("failed to write capture file: %w", err)
	}

	e.ctx.Stack().PushCapture(argLine, string(output), exitStatus)

	return ExecResult{OutputPath: outPath, Command: argLine, Output: string(output), ExitStatus: exitStatus}, nil
}
