// Package render converts assistant markdown into sanitized HTML.
//
// The pipeline is markdown -> HTML with highlighted code blocks ->
// sanitizer. Raw HTML embedded in the markdown never reaches the output:
// the markdown converter drops it and the sanitizer strips anything that
// slips through. Conversion runs under a deadline; when it is exceeded
// the renderer falls back to escaped plaintext so a hostile or
// pathological document cannot stall message display.
package render

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"strings"
	"sync/atomic"
	"time"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	chromastyles "github.com/alecthomas/chroma/v2/styles"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/util"

	domainerrors "github.com/ambermind/chat-controller/internal/domain/errors"
)

// DefaultDeadline bounds a single markdown conversion.
const DefaultDeadline = 250 * time.Millisecond

// PlaintextLanguage is the highlight language used when a fence names a
// language no lexer is registered for.
const PlaintextLanguage = "plaintext"

// Service renders assistant markdown to sanitized HTML.
type Service interface {
	// Render converts markdown to safe HTML. When the deadline is
	// exceeded or conversion fails, it returns escaped plaintext
	// alongside a RENDER_TIMEOUT error so callers can still display
	// something.
	Render(ctx context.Context, markdown string) (string, error)
}

type service struct {
	md       goldmark.Markdown
	policy   *bluemonday.Policy
	deadline time.Duration
	logger   zerolog.Logger
}

// Config holds renderer settings.
type Config struct {
	// Deadline bounds one conversion. Zero means DefaultDeadline.
	Deadline time.Duration
}

// NewService creates a markdown rendering service.
func NewService(cfg *Config) Service {
	deadline := DefaultDeadline
	if cfg != nil && cfg.Deadline > 0 {
		deadline = cfg.Deadline
	}

	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(
			renderer.WithNodeRenderers(
				util.Prioritized(newCodeBlockRenderer(), 100),
			),
		),
	)

	return &service{
		md:       md,
		policy:   buildPolicy(),
		deadline: deadline,
		logger:   log.With().Str("component", "render-service").Logger(),
	}
}

// buildPolicy extends the user-generated-content policy with the
// attributes the code block markup needs. Everything else stays at the
// policy's defaults, so scripts, event handlers and javascript: URLs are
// stripped.
func buildPolicy() *bluemonday.Policy {
	policy := bluemonday.UGCPolicy()
	policy.AllowAttrs("class").OnElements("pre", "code", "span", "div")
	policy.AllowAttrs("id").OnElements("code")
	policy.AllowElements("button")
	policy.AllowAttrs("class", "type", "data-copy-target").OnElements("button")
	return policy
}

func (s *service) Render(ctx context.Context, markdown string) (string, error) {
	if err := ctx.Err(); err != nil {
		return fallbackHTML(markdown), domainerrors.NewRenderTimeoutError(err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.deadline)
	defer cancel()

	type result struct {
		html string
		err  error
	}
	done := make(chan result, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: fmt.Errorf("markdown conversion panicked: %v", r)}
			}
		}()
		var buf bytes.Buffer
		if err := s.md.Convert([]byte(markdown), &buf); err != nil {
			done <- result{err: fmt.Errorf("failed to convert markdown: %w", err)}
			return
		}
		done <- result{html: s.policy.Sanitize(buf.String())}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			s.logger.Warn().Err(res.err).Msg("markdown conversion failed, falling back to plaintext")
			return fallbackHTML(markdown), domainerrors.NewRenderTimeoutError(res.err)
		}
		return res.html, nil
	case <-ctx.Done():
		s.logger.Warn().
			Dur("deadline", s.deadline).
			Msg("markdown conversion deadline exceeded, falling back to plaintext")
		return fallbackHTML(markdown), domainerrors.NewRenderTimeoutError(ctx.Err())
	}
}

// fallbackHTML is the degraded rendering: the raw markdown, escaped, in a
// single paragraph.
func fallbackHTML(markdown string) string {
	return "<p>" + html.EscapeString(markdown) + "</p>"
}

// codeBlockRenderer replaces goldmark's fenced code block output with a
// highlighted block wrapped in a copy affordance. Each block gets a
// unique element id the copy button targets.
type codeBlockRenderer struct {
	seq atomic.Int64
}

func newCodeBlockRenderer() *codeBlockRenderer {
	return &codeBlockRenderer{}
}

func (r *codeBlockRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(ast.KindFencedCodeBlock, r.renderFencedCodeBlock)
}

func (r *codeBlockRenderer) renderFencedCodeBlock(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}

	block := node.(*ast.FencedCodeBlock)

	var code bytes.Buffer
	lines := block.Lines()
	for i := 0; i < lines.Len(); i++ {
		line := lines.At(i)
		code.Write(line.Value(source))
	}

	language := sanitizeLanguage(string(block.Language(source)))
	lexer := lexers.Get(language)
	if lexer == nil {
		// unregistered language tag: highlight as plain text rather
		// than guessing
		language = PlaintextLanguage
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	id := fmt.Sprintf("cb-%d", r.seq.Add(1))

	w.WriteString(`<div class="code-block">`)
	fmt.Fprintf(w, `<button class="copy-btn" type="button" data-copy-target=%q>Copy</button>`, id)
	fmt.Fprintf(w, `<pre class="chroma"><code id=%q class="language-%s">`, id, language)

	if err := highlight(w, lexer, code.String()); err != nil {
		w.WriteString(html.EscapeString(code.String()))
	}

	w.WriteString("</code></pre></div>\n")
	return ast.WalkSkipChildren, nil
}

// highlight writes the chroma-highlighted code. Classes instead of
// inline styles so the sanitizer's attribute allow-list stays small.
func highlight(w util.BufWriter, lexer chroma.Lexer, code string) error {
	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return fmt.Errorf("failed to tokenise code block: %w", err)
	}

	formatter := chromahtml.New(
		chromahtml.PreventSurroundingPre(true),
		chromahtml.WithClasses(true),
	)
	style := chromastyles.Get("github")
	if style == nil {
		style = chromastyles.Fallback
	}
	if err := formatter.Format(w, style, iterator); err != nil {
		return fmt.Errorf("failed to format code block: %w", err)
	}
	return nil
}

// sanitizeLanguage keeps only characters that are safe inside a class
// attribute.
func sanitizeLanguage(language string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '+' || r == '-' || r == '_' || r == '#':
			return r
		}
		return -1
	}, language)
}
