// Package output renders CLI output in one of several modes: styled text
// for terminals, plain markdown for pipes and scripts, and JSON for
// machines. Auto mode picks text or markdown from TTY detection.
package output

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/muesli/termenv"
)

// Mode selects the rendering style.
type Mode string

const (
	ModeAuto     Mode = "auto"
	ModeText     Mode = "text"
	ModeMarkdown Mode = "markdown"
	ModeJSON     Mode = "json"
)

type rendererKey struct{}

// RendererKey returns the context key used for storing the renderer.
// This lets the commands package retrieve the renderer from context without
// creating an import cycle with the cli package.
func RendererKey() interface{} {
	return rendererKey{}
}

// GetRenderer retrieves the renderer from the command context, or nil when
// none has been stored.
func GetRenderer(ctx context.Context) *Renderer {
	if r, ok := ctx.Value(rendererKey{}).(*Renderer); ok {
		return r
	}
	return nil
}

// Renderer writes command output in the selected mode.
type Renderer struct {
	out    io.Writer
	errOut io.Writer
	mode   Mode
	isTTY  bool
	styles *Styles
}

// NewRenderer creates a renderer, detecting TTY state from the output writer.
func NewRenderer(out, errOut io.Writer, mode Mode) *Renderer {
	isTTY := false
	if f, ok := out.(*os.File); ok {
		isTTY = isTerminal(f) && termenv.EnvColorProfile() != termenv.Ascii
	}
	return NewRendererWithTTY(out, errOut, isTTY, mode)
}

// NewRendererWithTTY creates a renderer with an explicit TTY state. Tests
// use this to pin down the effective mode.
func NewRendererWithTTY(out, errOut io.Writer, isTTY bool, mode Mode) *Renderer {
	if mode == "" {
		mode = ModeAuto
	}
	r := &Renderer{
		out:    out,
		errOut: errOut,
		mode:   mode,
		isTTY:  isTTY,
	}
	r.styles = newStyles(r.EffectiveMode() == ModeText && isTTY)
	return r
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}

// EffectiveMode resolves auto mode: text on a terminal, markdown otherwise.
func (r *Renderer) EffectiveMode() Mode {
	if r.mode != ModeAuto {
		return r.mode
	}
	if r.isTTY {
		return ModeText
	}
	return ModeMarkdown
}

// IsTTY reports whether output goes to a terminal.
func (r *Renderer) IsTTY() bool { return r.isTTY }

// Writer returns the underlying output writer.
func (r *Renderer) Writer() io.Writer { return r.out }

// Styles returns the style set for the current mode.
func (r *Renderer) Styles() *Styles { return r.styles }

// Println writes a line to the output writer.
func (r *Renderer) Println(args ...any) {
	_, _ = fmt.Fprintln(r.out, args...)
}

// Printf writes formatted output to the output writer.
func (r *Renderer) Printf(format string, args ...any) {
	_, _ = fmt.Fprintf(r.out, format, args...)
}

// Success prints a success message with the mode's success marker.
func (r *Renderer) Success(msg string) {
	switch r.EffectiveMode() {
	case ModeMarkdown:
		r.Println("**OK**", msg)
	default:
		r.Println(r.styles.StatusSuccess.String(), msg)
	}
}

// Warning prints a warning message to stderr.
func (r *Renderer) Warning(msg string) {
	switch r.EffectiveMode() {
	case ModeMarkdown:
		_, _ = fmt.Fprintln(r.errOut, "**Warning:**", msg)
	default:
		_, _ = fmt.Fprintln(r.errOut, r.styles.Warning.Render("Warning:"), msg)
	}
}

// Error prints an error message to stderr.
func (r *Renderer) Error(msg string) {
	switch r.EffectiveMode() {
	case ModeMarkdown:
		_, _ = fmt.Fprintln(r.errOut, "**Error:**", msg)
	default:
		_, _ = fmt.Fprintln(r.errOut, r.styles.Error.Render("Error:"), msg)
	}
}

// Header prints a section header at the given level (1 or 2).
func (r *Renderer) Header(level int, text string) {
	switch r.EffectiveMode() {
	case ModeMarkdown:
		prefix := "#"
		if level > 1 {
			prefix = "##"
		}
		r.Println(prefix, text)
	default:
		style := r.styles.Header1
		if level > 1 {
			style = r.styles.Header2
		}
		r.Println(style.Render(text))
	}
	r.Println("")
}

// StatusLine prints a name with a status marker and optional detail.
// Status is one of "success", "failed", or "warning".
func (r *Renderer) StatusLine(name, status, detail string) {
	var marker string
	switch r.EffectiveMode() {
	case ModeMarkdown:
		marker = "[" + status + "]"
	default:
		switch status {
		case "success":
			marker = r.styles.StatusSuccess.String()
		case "warning":
			marker = r.styles.Warning.Render("!")
		default:
			marker = r.styles.StatusFailed.String()
		}
	}
	line := fmt.Sprintf("%s %s", marker, name)
	if detail != "" {
		switch r.EffectiveMode() {
		case ModeMarkdown:
			line += " - " + detail
		default:
			line += " " + r.styles.Muted.Render(detail)
		}
	}
	r.Println(line)
}

// Muted renders text in the muted style, or unstyled outside text mode.
func (r *Renderer) Muted(s string) string {
	if r.EffectiveMode() == ModeText {
		return r.styles.Muted.Render(s)
	}
	return s
}

// JSON writes v as indented JSON.
func (r *Renderer) JSON(v any) error {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// FormatHeader formats a markdown-style header at the given level.
func FormatHeader(level int, text string) string {
	prefix := "#"
	if level > 1 {
		prefix = "##"
	}
	return prefix + " " + text
}

// FormatKeyValue formats a key/value line for summaries.
func FormatKeyValue(key, value string) string {
	return fmt.Sprintf("- **%s**: %s", key, value)
}
