package services

import (
	"bytes"
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/term"

	neurocontext "github.com/rmloveland/synergy/internal/context"
	"github.com/rmloveland/synergy/pkg/types"
)

// SessionService implements dump/load session serialization.
// It hand-walks XML tokens rather than using struct-tag marshaling because
// the wire format interleaves heterogeneous <file>/<capture> stack elements
// in document order, which encoding/xml's struct marshaling cannot preserve.
type SessionService struct {
	initialized bool

	ctx    *neurocontext.SynergyContext
	models *ModelRegistryService
	cfg    *ConfigService
}

// NewSessionService creates a new SessionService bound to its collaborators.
func NewSessionService(ctx *neurocontext.SynergyContext, models *ModelRegistryService, cfg *ConfigService) *SessionService {
	return &SessionService{ctx: ctx, models: models, cfg: cfg}
}

// Name returns the service name for registration.
func (s *SessionService) Name() string { return "session" }

// Initialize marks the service ready; it holds no state beyond its collaborators.
func (s *SessionService) Initialize() error {
	s.initialized = true
	return nil
}

// Dump writes the current session (stack, conversation, model, session id,
// system prompt) to explicitPath, or to a generated default path when
// explicitPath is empty.
func (s *SessionService) Dump(explicitPath string) (string, error) {
	var b strings.Builder

	path := explicitPath
	if path == "" {
		path = s.defaultDumpPath()
		fmt.Fprintf(&b, "WARNING: No filename provided, using '%s'\n", path)
	} else {
		abs, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to resolve dump path %q: %w", path, err)
		}
		path = abs
	}

	doc := s.renderV2()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("failed to create dump directory: %w", err)
	}
	if err := os.WriteFile(path, doc, 0644); err != nil {
		return "", fmt.Errorf("failed to write dump file: %w", err)
	}

	fmt.Fprintf(&b, "Dumped conversation to '%s'.", path)
	return b.String(), nil
}

// defaultDumpPath generates dump-<UUID>-<EPOCH-SECONDS>.xml under
// <root>/etc/dumps/
func (s *SessionService) defaultDumpPath() string {
	name := fmt.Sprintf("dump-%s-%d.xml", uuid.NewString(), time.Now().Unix())
	abs, err := filepath.Abs(filepath.Join(s.cfg.Root(), "etc", "dumps", name))
	if err != nil {
		return filepath.Join(s.cfg.Root(), "etc", "dumps", name)
	}
	return abs
}

// AutodumpIfNeeded writes a second dump on clean exit when stdin is a tty or
// SYNERGY_FORCE_AUTODUMP is set.
func (s *SessionService) AutodumpIfNeeded() (string, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) && !s.cfg.GetBool("SYNERGY_FORCE_AUTODUMP") {
		return "", nil
	}
	return s.Dump("")
}

// renderV2 hand-builds the current v2 XML document. Every body/text value is
// base64-encoded with no line wrapping.
func (s *SessionService) renderV2() []byte {
	var buf bytes.Buffer
	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")

	fmt.Fprintf(&buf, `<dump session="%s">`+"\n", escapeXML(s.ctx.SessionID()))
	fmt.Fprintf(&buf, "  <model>%s</model>\n", escapeXML(s.ctx.ActiveModel()))

	buf.WriteString("  <stack>\n")
	for _, item := range s.ctx.Stack().Items() {
		switch item.Kind {
		case types.AttachmentFile:
			if body, err := os.ReadFile(item.Path); err == nil {
				fmt.Fprintf(&buf, `    <file path="%s" encoding="base64">%s</file>`+"\n",
					escapeXML(item.Path), base64.StdEncoding.EncodeToString(body))
			} else {
				fmt.Fprintf(&buf, `    <file path="%s"/>`+"\n", escapeXML(item.Path))
			}
		case types.AttachmentCapture:
			fmt.Fprintf(&buf, `    <capture cmd="%s" encoding="base64">%s</capture>`+"\n",
				escapeXML(item.Command), base64.StdEncoding.EncodeToString([]byte(item.Stdout)))
		}
	}
	buf.WriteString("  </stack>\n")

	buf.WriteString("  <convo>\n")
	for _, turn := range s.ctx.Conversation().Turns() {
		fmt.Fprintf(&buf, `    <elem role="%s" encoding="base64">%s</elem>`+"\n",
			escapeXML(string(turn.Role)), base64.StdEncoding.EncodeToString([]byte(turn.Text)))
	}
	buf.WriteString("  </convo>\n")

	fmt.Fprintf(&buf, `  <prompt encoding="base64">%s</prompt>`+"\n", base64.StdEncoding.EncodeToString([]byte(s.cfg.SystemPrompt())))
	buf.WriteString("</dump>\n")

	return buf.Bytes()
}

func escapeXML(s string) string {
	var buf bytes.Buffer
	_ = xml.EscapeText(&buf, []byte(s))
	return buf.String()
}

// dumpXML mirrors the shape of both format versions closely enough for a
// single token-driven parse: v1 elements simply lack the encoding/session
// attributes that v2 always sets.
type dumpXML struct {
	SessionID string
	Model     string
	Files     []fileXML
	Captures  []captureXML
	Turns     []types.Turn
	Prompt    string
}

type fileXML struct {
	Path string
	Body string // decoded, empty if absent
}

type captureXML struct {
	Command string
	Output  string
}

// Load parses path (either format version), replaces the current session
// state atomically, and returns the user-facing status message appropriate
// for whichever format was detected.
func (s *SessionService) Load(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read dump file %q: %w", path, err)
	}

	doc, isV2, err := parseDump(data)
	if err != nil {
		return "", fmt.Errorf("failed to parse dump file %q: %w", path, err)
	}

	var b strings.Builder
	sessionID := doc.SessionID
	if isV2 {
		b.WriteString("Loading session ID…ok")
	} else {
		fmt.Fprintf(&b, "WARNING: No session ID found in '%s'", path)
		sessionID = uuid.NewString()
	}

	stack := make([]types.Attachment, 0, len(doc.Files)+len(doc.Captures))
	for _, f := range doc.Files {
		stack = append(stack, types.Attachment{Kind: types.AttachmentFile, Path: f.Path})
	}
	for _, c := range doc.Captures {
		stack = append(stack, types.Attachment{Kind: types.AttachmentCapture, Command: c.Command, Stdout: c.Output})
	}

	model := doc.Model
	if model == "" {
		model = s.ctx.ActiveModel()
	} else if err := s.models.SetActive(model); err != nil {
		fmt.Fprintf(&b, "\nWARNING: Unknown model '%s' in '%s', keeping '%s' active", model, path, s.models.ActiveShortname())
		model = s.models.ActiveShortname()
	}

	s.ctx.Restore(stack, doc.Turns, model, sessionID)

	if doc.Prompt != "" {
		s.cfg.Set("SYNERGY_SYSTEM_PROMPT", doc.Prompt)
	}

	return b.String(), nil
}

// parseDump walks the XML token stream once, building a dumpXML regardless
// of version, and reports whether a session= attribute was present (the
// v1/v2 discriminator).
func parseDump(data []byte) (dumpXML, bool, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))

	var doc dumpXML
	var isV2 bool
	var section string // "stack" | "convo" | ""

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return doc, false, err
		}

		switch el := tok.(type) {
		case xml.StartElement:
			switch el.Name.Local {
			case "dump":
				for _, attr := range el.Attr {
					if attr.Name.Local == "session" {
						doc.SessionID = attr.Value
						isV2 = true
					}
				}
			case "stack":
				section = "stack"
			case "convo":
				section = "convo"
			case "model":
				var text string
				if err := dec.DecodeElement(&text, &el); err != nil {
					return doc, false, err
				}
				doc.Model = strings.TrimSpace(text)
			case "file":
				var path, encoding, body string
				for _, attr := range el.Attr {
					switch attr.Name.Local {
					case "path":
						path = attr.Value
					case "encoding":
						encoding = attr.Value
					}
				}
				if err := dec.DecodeElement(&body, &el); err != nil {
					return doc, false, err
				}
				doc.Files = append(doc.Files, fileXML{Path: path, Body: decodeMaybeBase64(body, encoding)})
			case "capture":
				var cmd, encoding, body string
				for _, attr := range el.Attr {
					switch attr.Name.Local {
					case "cmd":
						cmd = attr.Value
					case "encoding":
						encoding = attr.Value
					}
				}
				if err := dec.DecodeElement(&body, &el); err != nil {
					return doc, false, err
				}
				doc.Captures = append(doc.Captures, captureXML{Command: cmd, Output: decodeMaybeBase64(body, encoding)})
			case "elem":
				if section != "convo" {
					continue
				}
				var role, encoding, text string
				for _, attr := range el.Attr {
					switch attr.Name.Local {
					case "role":
						role = attr.Value
					case "encoding":
						encoding = attr.Value
					}
				}
				if err := dec.DecodeElement(&text, &el); err != nil {
					return doc, false, err
				}
				doc.Turns = append(doc.Turns, types.Turn{Role: types.Role(role), Text: decodeMaybeBase64(text, encoding)})
			case "prompt":
				var encoding, text string
				for _, attr := range el.Attr {
					if attr.Name.Local == "encoding" {
						encoding = attr.Value
					}
				}
				if err := dec.DecodeElement(&text, &el); err != nil {
					return doc, false, err
				}
				doc.Prompt = decodeMaybeBase64(text, encoding)
			}
		}
	}

	return doc, isV2, nil
}

func decodeMaybeBase64(text, encoding string) string {
	if encoding != "base64" {
		return text
	}
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(text))
	if err != nil {
		return text
	}
	return string(decoded)
}
