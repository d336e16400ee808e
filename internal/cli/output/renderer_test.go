package output

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/jedib0t/go-pretty/v6/table"
)

func TestEffectiveMode(t *testing.T) {
	tests := []struct {
		name  string
		mode  Mode
		isTTY bool
		want  Mode
	}{
		{"auto on tty", ModeAuto, true, ModeText},
		{"auto piped", ModeAuto, false, ModeMarkdown},
		{"explicit text piped", ModeText, false, ModeText},
		{"explicit json on tty", ModeJSON, true, ModeJSON},
		{"explicit markdown on tty", ModeMarkdown, true, ModeMarkdown},
		{"empty defaults to auto", "", false, ModeMarkdown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRendererWithTTY(&bytes.Buffer{}, &bytes.Buffer{}, tt.isTTY, tt.mode)
			if got := r.EffectiveMode(); got != tt.want {
				t.Errorf("EffectiveMode() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSuccessMarkdown(t *testing.T) {
	var out, errOut bytes.Buffer
	r := NewRendererWithTTY(&out, &errOut, false, ModeMarkdown)

	r.Success("docking complete")
	if !strings.Contains(out.String(), "**OK** docking complete") {
		t.Errorf("unexpected markdown success output: %q", out.String())
	}
}

func TestWarningAndErrorGoToStderr(t *testing.T) {
	var out, errOut bytes.Buffer
	r := NewRendererWithTTY(&out, &errOut, false, ModeText)

	r.Warning("ligand rejected")
	r.Error("vina not found")

	if out.Len() != 0 {
		t.Errorf("stdout should be empty, got %q", out.String())
	}
	if !strings.Contains(errOut.String(), "Warning: ligand rejected") {
		t.Errorf("missing warning: %q", errOut.String())
	}
	if !strings.Contains(errOut.String(), "Error: vina not found") {
		t.Errorf("missing error: %q", errOut.String())
	}
}

func TestHeader(t *testing.T) {
	var out bytes.Buffer
	r := NewRendererWithTTY(&out, &bytes.Buffer{}, false, ModeMarkdown)

	r.Header(1, "Docking Report")
	r.Header(2, "Results")

	got := out.String()
	if !strings.Contains(got, "# Docking Report") || !strings.Contains(got, "## Results") {
		t.Errorf("unexpected header output:\n%s", got)
	}
}

func TestStatusLine(t *testing.T) {
	var out bytes.Buffer
	r := NewRendererWithTTY(&out, &bytes.Buffer{}, false, ModeMarkdown)

	r.StatusLine("obabel", "success", "/usr/bin/obabel")
	r.StatusLine("vina", "failed", "not on PATH")

	got := out.String()
	if !strings.Contains(got, "[success] obabel - /usr/bin/obabel") {
		t.Errorf("unexpected success line:\n%s", got)
	}
	if !strings.Contains(got, "[failed] vina - not on PATH") {
		t.Errorf("unexpected failure line:\n%s", got)
	}
}

func TestJSON(t *testing.T) {
	var out bytes.Buffer
	r := NewRendererWithTTY(&out, &bytes.Buffer{}, false, ModeJSON)

	if err := r.JSON(map[string]any{"score": -7.2, "ligand": "aspirin"}); err != nil {
		t.Fatalf("JSON failed: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(out.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, out.String())
	}
	if decoded["ligand"] != "aspirin" {
		t.Errorf("unexpected decoded value: %v", decoded)
	}
}

func TestTextModeWithoutTTYHasNoANSI(t *testing.T) {
	var out bytes.Buffer
	r := NewRendererWithTTY(&out, &bytes.Buffer{}, false, ModeText)

	r.Header(1, "Report")
	r.Success("done")

	if strings.Contains(out.String(), "\x1b[") {
		t.Errorf("non-TTY output should not contain ANSI codes: %q", out.String())
	}
}

func TestRenderTable(t *testing.T) {
	var out bytes.Buffer
	r := NewRendererWithTTY(&out, &bytes.Buffer{}, false, ModeMarkdown)

	tw := r.NewTable()
	tw.AppendHeader(table.Row{"Ligand", "Affinity"})
	tw.AppendRow(table.Row{"aspirin", "-7.2"})
	r.RenderTable(tw)

	got := out.String()
	if !strings.Contains(got, "|") || !strings.Contains(got, "aspirin") {
		t.Errorf("markdown table expected:\n%s", got)
	}
}

func TestGetRendererFromContext(t *testing.T) {
	r := NewRendererWithTTY(&bytes.Buffer{}, &bytes.Buffer{}, false, ModeMarkdown)
	ctx := context.WithValue(context.Background(), RendererKey(), r)

	if got := GetRenderer(ctx); got != r {
		t.Errorf("GetRenderer returned %v, want the stored renderer", got)
	}
	if got := GetRenderer(context.Background()); got != nil {
		t.Errorf("GetRenderer on an empty context should be nil, got %v", got)
	}
}

func TestFormatHelpers(t *testing.T) {
	if got := FormatHeader(1, "Summary"); got != "# Summary" {
		t.Errorf("FormatHeader(1) = %q", got)
	}
	if got := FormatHeader(2, "Details"); got != "## Details" {
		t.Errorf("FormatHeader(2) = %q", got)
	}
	if got := FormatKeyValue("Ligands", "12"); got != "- **Ligands**: 12" {
		t.Errorf("FormatKeyValue = %q", got)
	}
}
