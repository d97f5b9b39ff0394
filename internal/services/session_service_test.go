package services

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	neurocontext "github.com/rmloveland/synergy/internal/context"
	"github.com/rmloveland/synergy/pkg/types"
)

func newTestSessionService(t *testing.T, root string) (*SessionService, *neurocontext.SynergyContext) {
	t.Helper()
	ctx := neurocontext.New("gemini-flash")
	models := NewModelRegistryService()
	require.NoError(t, models.Initialize())
	cfg := NewConfigService(root)
	require.NoError(t, cfg.Initialize())
	return NewSessionService(ctx, models, cfg), ctx
}

func TestSessionService_DumpThenLoad_RoundTrips(t *testing.T) {
	root := t.TempDir()
	svc, ctx := newTestSessionService(t, root)

	require.NoError(t, ctx.Stack().PushFile(filepath.Join(root, "a.txt")))
	ctx.Conversation().Append(types.RoleUser, "hello")
	ctx.Conversation().Append(types.RoleAssistant, "hi")
	ctx.SetActiveModel("claude-sonnet")
	originalSessionID := ctx.SessionID()

	dumpPath := filepath.Join(root, "dump.xml")
	msg, err := svc.Dump(dumpPath)
	require.NoError(t, err)
	assert.Contains(t, msg, "Dumped conversation to")

	// Load into a fresh context to prove the round trip, not just in-place mutation.
	freshCtx := neurocontext.New("")
	freshModels := NewModelRegistryService()
	require.NoError(t, freshModels.Initialize())
	freshCfg := NewConfigService(root)
	require.NoError(t, freshCfg.Initialize())
	loadSvc := NewSessionService(freshCtx, freshModels, freshCfg)

	loadMsg, err := loadSvc.Load(dumpPath)
	require.NoError(t, err)
	assert.Contains(t, loadMsg, "Loading session ID")

	assert.Equal(t, originalSessionID, freshCtx.SessionID())
	assert.Equal(t, "claude-sonnet", freshCtx.ActiveModel())
	assert.Equal(t, "claude-sonnet", freshModels.ActiveShortname())
	assert.Equal(t, 1, freshCtx.Stack().Size())
	require.Len(t, freshCtx.Conversation().Turns(), 2)
	assert.Equal(t, "hello", freshCtx.Conversation().Turns()[0].Text)
}

func TestSessionService_Load_UnknownModelWarnsAndKeepsCurrentActive(t *testing.T) {
	root := t.TempDir()
	svc, ctx := newTestSessionService(t, root)

	dumpPath := filepath.Join(root, "dump.xml")
	dumpDoc := `<?xml version="1.0" encoding="UTF-8"?>
<dump session="deadbeef">
  <model>not-a-real-model</model>
  <stack>
  </stack>
  <convo>
  </convo>
  <prompt encoding="base64"></prompt>
</dump>`
	require.NoError(t, os.WriteFile(dumpPath, []byte(dumpDoc), 0644))

	msg, err := svc.Load(dumpPath)
	require.NoError(t, err)
	assert.Contains(t, msg, "WARNING: Unknown model 'not-a-real-model'")

	assert.Equal(t, "gemini-flash", ctx.ActiveModel())
}

func TestSessionService_Dump_DefaultFilenameUnderDumpsDir(t *testing.T) {
	root := t.TempDir()
	svc, _ := newTestSessionService(t, root)

	msg, err := svc.Dump("")
	require.NoError(t, err)
	assert.Contains(t, msg, "WARNING: No filename provided, using")
	assert.Contains(t, msg, filepath.Join(root, "etc", "dumps"))
}

func TestSessionService_Load_V1FormatGeneratesFreshSessionID(t *testing.T) {
	root := t.TempDir()
	svc, ctx := newTestSessionService(t, root)
	oldID := ctx.SessionID()

	v1Path := filepath.Join(root, "legacy.xml")
	v1Doc := `<dump>
  <stack>
    <file path="/tmp/a.txt"/>
  </stack>
  <convo>
    <elem role="user">hello</elem>
  </convo>
  <prompt>you are helpful</prompt>
</dump>`
	require.NoError(t, os.WriteFile(v1Path, []byte(v1Doc), 0644))

	msg, err := svc.Load(v1Path)
	require.NoError(t, err)
	assert.Contains(t, msg, "WARNING: No session ID found in")

	assert.NotEqual(t, oldID, ctx.SessionID())
	assert.Equal(t, 1, ctx.Stack().Size())
	require.Len(t, ctx.Conversation().Turns(), 1)
	assert.Equal(t, "hello", ctx.Conversation().Turns()[0].Text)
}
