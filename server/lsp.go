package server

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	glspserver "github.com/tliron/glsp/server"

	"github.com/chazu/lantern/compiler"
	"github.com/chazu/lantern/host"
	"github.com/chazu/lantern/vm"

	_ "github.com/tliron/commonlog/simple"
)

const lspName = "lantern-lsp"

var log = commonlog.GetLogger("lantern.server")

// LspServer publishes compile diagnostics and answers completion, hover and
// definition requests for Lantern documents. Script runs never happen here;
// the session is only used to compile and to list natives.
type LspServer struct {
	worker *Worker

	mu   sync.Mutex
	docs map[string]string // URI → full document content

	handler protocol.Handler
	server  *glspserver.Server
	version string
}

// NewLSP creates a new LSP server wrapping the given session.
func NewLSP(s *host.Session) *LspServer {
	srv := &LspServer{
		worker:  NewWorker(s),
		docs:    make(map[string]string),
		version: "0.1.0",
	}

	srv.handler = protocol.Handler{
		Initialize:  srv.initialize,
		Initialized: srv.initialized,
		Shutdown:    srv.shutdown,
		SetTrace:    srv.setTrace,

		TextDocumentDidOpen:   srv.textDocumentDidOpen,
		TextDocumentDidChange: srv.textDocumentDidChange,
		TextDocumentDidClose:  srv.textDocumentDidClose,

		TextDocumentCompletion: srv.textDocumentCompletion,
		TextDocumentHover:      srv.textDocumentHover,
		TextDocumentDefinition: srv.textDocumentDefinition,
	}

	srv.server = glspserver.NewServer(&srv.handler, lspName, false)

	return srv
}

// Run starts the LSP server on stdio. Blocks until the client disconnects.
func (s *LspServer) Run() error {
	return s.server.RunStdio()
}

// --- LSP lifecycle handlers ---

func (s *LspServer) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	log.Info("Lantern LSP initializing", "session", s.worker.Session().ID())

	capabilities := s.handler.CreateServerCapabilities()

	syncKind := protocol.TextDocumentSyncKindFull
	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: boolPtr(true),
		Change:    &syncKind,
	}

	capabilities.CompletionProvider = &protocol.CompletionOptions{}
	capabilities.HoverProvider = true
	capabilities.DefinitionProvider = true

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    lspName,
			Version: &s.version,
		},
	}, nil
}

func (s *LspServer) initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	return nil
}

func (s *LspServer) shutdown(ctx *glsp.Context) error {
	s.worker.Stop()
	return nil
}

func (s *LspServer) setTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	return nil
}

// --- Document synchronization ---

func (s *LspServer) textDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	uri := params.TextDocument.URI
	text := params.TextDocument.Text

	s.mu.Lock()
	s.docs[string(uri)] = text
	s.mu.Unlock()

	s.publishDiagnostics(ctx, uri, text)
	return nil
}

func (s *LspServer) textDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	uri := params.TextDocument.URI

	// With Full sync, the last change event contains the full text
	if len(params.ContentChanges) > 0 {
		last := params.ContentChanges[len(params.ContentChanges)-1]
		if whole, ok := last.(protocol.TextDocumentContentChangeEventWhole); ok {
			s.mu.Lock()
			s.docs[string(uri)] = whole.Text
			s.mu.Unlock()

			s.publishDiagnostics(ctx, uri, whole.Text)
		}
	}
	return nil
}

func (s *LspServer) textDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	uri := params.TextDocument.URI

	s.mu.Lock()
	delete(s.docs, string(uri))
	s.mu.Unlock()

	// Clear diagnostics for the closed document
	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: []protocol.Diagnostic{},
	})
	return nil
}

func (s *LspServer) document(uri protocol.DocumentUri) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	text, ok := s.docs[string(uri)]
	return text, ok
}

// --- Language features ---

func (s *LspServer) textDocumentCompletion(ctx *glsp.Context, params *protocol.CompletionParams) (any, error) {
	text, ok := s.document(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}

	prefix := extractPrefix(text, params.Position)
	if prefix == "" {
		return nil, nil
	}

	return complete(s.worker.Natives(), declarations(text), prefix), nil
}

func (s *LspServer) textDocumentHover(ctx *glsp.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	text, ok := s.document(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}

	word := extractWord(text, params.Position)
	if word == "" {
		return nil, nil
	}

	return hover(s.worker.Natives(), declarations(text), word), nil
}

func (s *LspServer) textDocumentDefinition(ctx *glsp.Context, params *protocol.DefinitionParams) (any, error) {
	uri := params.TextDocument.URI
	text, ok := s.document(uri)
	if !ok {
		return nil, nil
	}

	word := extractWord(text, params.Position)
	if word == "" {
		return nil, nil
	}

	var locations []protocol.Location
	for _, decl := range declarations(text) {
		if decl.Name == word {
			locations = append(locations, protocol.Location{URI: uri, Range: tokenRange(decl.Tok)})
		}
	}
	if len(locations) == 0 {
		return nil, nil
	}
	return locations, nil
}

// --- Document analysis ---

// declarations returns every variable declared in text, in source order.
// The document is parsed even when it has errors, so declarations before
// and after a faulty statement are still found.
func declarations(text string) []*compiler.VarDecl {
	prog, _ := compiler.Parse(text)
	var decls []*compiler.VarDecl
	compiler.WalkStatements(prog.Statements, func(stmt compiler.Stmt) {
		if decl, ok := stmt.(*compiler.VarDecl); ok {
			decls = append(decls, decl)
		}
	})
	return decls
}

func complete(natives []vm.NativeFunction, decls []*compiler.VarDecl, prefix string) []protocol.CompletionItem {
	var items []protocol.CompletionItem
	seen := make(map[string]bool)
	add := func(label string, kind protocol.CompletionItemKind, detail string) {
		if seen[label] || !strings.HasPrefix(label, prefix) {
			return
		}
		seen[label] = true
		labelCopy := label
		items = append(items, protocol.CompletionItem{
			Label:      label,
			Kind:       &kind,
			Detail:     &detail,
			InsertText: &labelCopy,
		})
	}

	for _, n := range natives {
		add(n.Name, protocol.CompletionItemKindFunction, nativeSignature(n))
	}
	for _, d := range decls {
		add(d.Name, protocol.CompletionItemKindVariable, fmt.Sprintf("var (line %d)", d.Tok.Pos.Line))
	}
	keywords := compiler.Keywords()
	sort.Strings(keywords)
	for _, kw := range keywords {
		add(kw, protocol.CompletionItemKindKeyword, "keyword")
	}

	// Limit results
	const maxItems = 100
	if len(items) > maxItems {
		items = items[:maxItems]
	}
	return items
}

func hover(natives []vm.NativeFunction, decls []*compiler.VarDecl, word string) *protocol.Hover {
	var b strings.Builder

	for _, n := range natives {
		if n.Name == word {
			fmt.Fprintf(&b, "**%s**\n\nnative function, %s", n.Name, nativeSignature(n))
			return markdown(b.String())
		}
	}
	for _, d := range decls {
		if d.Name == word {
			fmt.Fprintf(&b, "**%s**\n\nvariable declared on line %d", d.Name, d.Tok.Pos.Line)
			return markdown(b.String())
		}
	}
	if compiler.LookupIdent(word) != compiler.TokenIdentifier {
		fmt.Fprintf(&b, "**%s**\n\nkeyword", word)
		return markdown(b.String())
	}
	return nil
}

func nativeSignature(n vm.NativeFunction) string {
	if n.Arity == 1 {
		return "1 argument"
	}
	return fmt.Sprintf("%d arguments", n.Arity)
}

func markdown(text string) *protocol.Hover {
	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.MarkupKindMarkdown,
			Value: text,
		},
	}
}

// --- Diagnostics ---

func (s *LspServer) publishDiagnostics(ctx *glsp.Context, uri protocol.DocumentUri, text string) {
	outcome, err := s.worker.Check(text)
	if err != nil {
		log.Errorf("check %s: %v", uri, err)
		return
	}

	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diagnostics(outcome),
	})
}

// diagnostics converts compile errors to LSP diagnostics. Lines become
// 0-based; columns stay byte offsets.
func diagnostics(outcome *host.Outcome) []protocol.Diagnostic {
	diags := []protocol.Diagnostic{}
	severity := protocol.DiagnosticSeverityError
	source := lspName
	for _, e := range outcome.CompileErrors() {
		line := protocol.UInteger(0)
		if e.Line > 0 {
			line = protocol.UInteger(e.Line - 1)
		}
		diags = append(diags, protocol.Diagnostic{
			Range: protocol.Range{
				Start: protocol.Position{Line: line, Character: protocol.UInteger(e.Start)},
				End:   protocol.Position{Line: line, Character: protocol.UInteger(e.Start + e.Len)},
			},
			Severity: &severity,
			Source:   &source,
			Message:  e.Message,
		})
	}
	return diags
}

func tokenRange(tok compiler.Token) protocol.Range {
	line := protocol.UInteger(tok.Pos.Line - 1)
	start := protocol.UInteger(tok.Pos.Column)
	return protocol.Range{
		Start: protocol.Position{Line: line, Character: start},
		End:   protocol.Position{Line: line, Character: start + protocol.UInteger(tok.Len())},
	}
}

// --- Text extraction helpers ---

func isIdentChar(ch rune) bool {
	return unicode.IsLetter(ch) || unicode.IsDigit(ch) || ch == '_'
}

// extractPrefix returns the word fragment before the cursor for completion.
func extractPrefix(text string, pos protocol.Position) string {
	lines := strings.Split(text, "\n")
	if int(pos.Line) >= len(lines) {
		return ""
	}
	line := lines[pos.Line]
	col := int(pos.Character)
	if col > len(line) {
		col = len(line)
	}

	// Walk backwards from cursor to find the start of the identifier
	start := col
	for start > 0 && isIdentChar(rune(line[start-1])) {
		start--
	}
	return line[start:col]
}

// extractWord returns the full identifier under the cursor.
func extractWord(text string, pos protocol.Position) string {
	lines := strings.Split(text, "\n")
	if int(pos.Line) >= len(lines) {
		return ""
	}
	line := lines[pos.Line]
	col := int(pos.Character)
	if col > len(line) {
		col = len(line)
	}

	start := col
	for start > 0 && isIdentChar(rune(line[start-1])) {
		start--
	}
	end := col
	for end < len(line) && isIdentChar(rune(line[end])) {
		end++
	}
	return line[start:end]
}

func boolPtr(b bool) *bool {
	return &b
}
