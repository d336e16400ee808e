package output

import (
	"github.com/jedib0t/go-pretty/v6/table"
)

// NewTable returns a table writer configured for the renderer's mode and
// attached to its output writer.
func (r *Renderer) NewTable() table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	switch r.EffectiveMode() {
	case ModeMarkdown:
		t.SetStyle(table.StyleDefault)
	default:
		t.SetStyle(table.StyleLight)
	}
	return t
}

// RenderTable renders the table in the mode's format: markdown pipes for
// markdown mode, box drawing for text.
func (r *Renderer) RenderTable(t table.Writer) {
	if r.EffectiveMode() == ModeMarkdown {
		t.RenderMarkdown()
		return
	}
	t.Render()
}
