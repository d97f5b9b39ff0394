// Package shell provides the interactive REPL surface for Synergy: parsing
// a line as a meta-command or a model query and driving the underlying
// services.
package shell

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/abiosoft/ishell/v2"

	neurocontext "github.com/rmloveland/synergy/internal/context"
	"github.com/rmloveland/synergy/internal/logger"
	"github.com/rmloveland/synergy/internal/services"
)

const helpText = `This is Synergy. You are interacting with the command processor.

Meta-commands (comma-prefixed):
  ,help                        show this text
  ,exit                        end the session
  ,pwd                         print the working directory
  ,cd <dir>                    change the working directory
  ,push <file>                 push a file onto the context stack
  ,s                           display the context stack
  ,drop [i]                    drop the top item, or the item at index i
  ,swap                        exchange the top two stack items
  ,rot                         move the bottom item to the top
  ,reset                       clear stack and conversation, rotate session id
  ,history [n]                 show the last n conversation turns
  ,model [name]                show or set the active model
  ,encoded                     toggle base64 encoding of attachment bodies
  ,dump [file]                 write the session to an XML file
  ,load <file>                 replace the session from an XML file
  ,apply_patch <file> <diff>   apply a conflict-marker diff to file
  ,exec <argv...>              run an allow-listed read-only command
  ,comment <text>              no-op, for annotating driving scripts

Any other non-empty line is sent to the active model.`

// Processor wires the command processor to its collaborator services. It
// is the single dispatch point the REPL loop calls for every input line,
// registered as ishell's NotFound hook so both meta-commands and plain
// queries pass through one place.
type Processor struct {
	ctx *neurocontext.SynergyContext

	cfg     *services.ConfigService
	models  *services.ModelRegistryService
	stack   *services.StackService
	convo   *services.ConversationService
	llm     *services.LLMService
	session *services.SessionService
	patch   *services.PatchService
	exec    *services.ExecService
}

// NewProcessor constructs every service, registers them with the global
// registry, initializes them in order, and returns a ready Processor bound
// to root as SYNERGY_ROOT.
func NewProcessor(root string) (*Processor, error) {
	registry := services.NewRegistry()
	services.SetGlobalRegistry(registry)

	ctx := neurocontext.New("")
	neurocontext.SetGlobalContext(ctx)

	cfg := services.NewConfigService(root)
	models := services.NewModelRegistryService()
	stack := services.NewStackService(ctx)
	convo := services.NewConversationService(ctx)
	transport := services.NewHTTPTransportService(cfg)
	llm := services.NewLLMService(models, stack, convo, cfg, transport)
	session := services.NewSessionService(ctx, models, cfg)
	patch := services.NewPatchService()
	execSvc := services.NewExecService(ctx)

	for _, svc := range []services.Service{cfg, models, stack, convo, transport, llm, session, patch, execSvc} {
		if err := registry.RegisterService(svc); err != nil {
			return nil, err
		}
	}
	if err := registry.InitializeAll(); err != nil {
		return nil, err
	}

	ctx.SetActiveModel(models.ActiveShortname())

	return &Processor{
		ctx: ctx, cfg: cfg, models: models, stack: stack, convo: convo,
		llm: llm, session: session, patch: patch, exec: execSvc,
	}, nil
}

// ProcessInput is the ishell NotFound hook: every line the user types,
// meta-command or query alike, arrives here.
func (p *Processor) ProcessInput(c *ishell.Context) {
	if len(c.RawArgs) == 0 {
		return
	}
	line := strings.TrimSpace(strings.Join(c.RawArgs, " "))

	output, exit := p.Dispatch(line)
	if output != "" {
		c.Println(output)
	}
	if exit {
		c.Stop()
	}
}

// Session returns the SessionService, used by main at startup/autodump time.
func (p *Processor) Session() *services.SessionService { return p.session }

// Dispatch classifies line as a meta-command or a model query and returns
// the text to print and whether the session should end.
func (p *Processor) Dispatch(line string) (string, bool) {
	if strings.HasPrefix(line, ",") {
		return p.dispatchMeta(line[1:])
	}

	return p.dispatchQuery(line), false
}

func (p *Processor) dispatchMeta(cmdLine string) (string, bool) {
	name, rest := splitFirst(cmdLine)

	switch name {
	case "help":
		return helpText, false

	case "exit":
		return "", true

	case "pwd":
		cwd, err := os.Getwd()
		if err != nil {
			return errorLine(err), false
		}
		return cwd, false

	case "cd":
		if rest == "" {
			return "ERROR: ,cd requires a directory argument", false
		}
		if err := os.Chdir(rest); err != nil {
			return errorLine(err), false
		}
		return "", false

	case "push":
		if rest == "" {
			return "ERROR: ,push requires a file path", false
		}
		if err := p.stack.PushFile(rest); err != nil {
			return errorLine(err), false
		}
		return fmt.Sprintf("Pushed '%s' onto the context stack.", rest), false

	case "s":
		return p.stack.RenderDisplay(), false

	case "drop":
		if rest == "" {
			return p.stack.Drop(), false
		}
		i, err := strconv.Atoi(rest)
		if err != nil {
			return "ERROR: ,drop expects an integer index", false
		}
		out, err := p.stack.DropAt(i)
		if err != nil {
			return errorLine(err), false
		}
		return out, false

	case "swap":
		return p.stack.Swap(), false

	case "rot":
		return p.stack.Rot(), false

	case "reset":
		p.ctx.Reset()
		return "Session reset.", false

	case "history":
		n := 10
		if rest != "" {
			if parsed, err := strconv.Atoi(rest); err == nil {
				n = parsed
			}
		}
		lines := p.convo.RenderLast(n)
		return strings.Join(lines, "\n"), false

	case "model":
		if rest == "" {
			return p.renderModelList(), false
		}
		if err := p.models.SetActive(rest); err != nil {
			return errorLine(err), false
		}
		p.ctx.SetActiveModel(rest)
		return fmt.Sprintf("Active model set to '%s'.", rest), false

	case "encoded":
		p.ctx.SetBase64ToAssistant(!p.ctx.Base64ToAssistant())
		state := "OFF"
		if p.ctx.Base64ToAssistant() {
			state = "ON"
		}
		return fmt.Sprintf("base64-to-assistant is now %s", state), false

	case "dump":
		out, err := p.session.Dump(rest)
		if err != nil {
			return errorLine(err), false
		}
		return out, false

	case "load":
		if rest == "" {
			return "ERROR: ,load requires a file path", false
		}
		out, err := p.session.Load(rest)
		if err != nil {
			return errorLine(err), false
		}
		return out, false

	case "apply_patch":
		file, diff := splitFirst(rest)
		if file == "" || diff == "" {
			return "ERROR: ,apply_patch requires a file path and a diff blob", false
		}
		out, err := p.patch.Apply(file, diff)
		if err != nil {
			return errorLine(err), false
		}
		return out, false

	case "exec":
		res, err := p.exec.Run(rest)
		if err != nil {
			return errorLine(err), false
		}
		return formatExecResult(res), false

	case "comment":
		return "", false

	default:
		return fmt.Sprintf("ERROR: Unknown command ',%s'", name), false
	}
}

func (p *Processor) dispatchQuery(text string) string {
	if strings.TrimSpace(text) == "" {
		return "WARNING: Ignoring empty assistant query"
	}

	reply, err := p.llm.Ask(p.ctx.Base64ToAssistant(), text)
	if err != nil {
		logger.Debug("provider request failed", "error", err)
		return errorLine(err)
	}
	return reply
}

func (p *Processor) renderModelList() string {
	var b strings.Builder
	active := p.models.ActiveShortname()
	for _, record := range p.models.List() {
		marker := " "
		if record.Shortname == active {
			marker = "*"
		}
		fmt.Fprintf(&b, "%s %s (%s)\n", marker, record.Shortname, record.Provider)
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func formatExecResult(res services.ExecResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Captured output written to '%s'.\n", res.OutputPath)
	if res.ExitStatus != 0 {
		fmt.Fprintf(&b, "WARNING: Command exited with status %d\n", res.ExitStatus)
	}
	fmt.Fprintf(&b, "COMMAND:\n%s\nOUTPUT:\n%s", res.Command, res.Output)
	return b.String()
}

func errorLine(err error) string {
	return "ERROR: " + err.Error()
}

// splitFirst splits s into its first whitespace-delimited token and the
// (untouched) remainder, used to peel a command name or file argument off
// the front of a meta-command line without disturbing embedded whitespace
// in the rest (diff blobs, exec argv, prompt text).
func splitFirst(s string) (string, string) {
	s = strings.TrimSpace(s)
	idx := strings.IndexAny(s, " \t")
	if idx == -1 {
		return s, ""
	}
	return s[:idx], strings.TrimSpace(s[idx+1:])
}
