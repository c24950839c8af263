package report

import (
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/hakoenv/hako/internal/config"
)

// PrintEnvList renders the declared and default environments as a table.
// The default envlist is listed first, then declared sections not already
// covered by it.
func PrintEnvList(w io.Writer, f *config.File) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Env", "Default", "Platform", "Commands", "Description"})

	seen := make(map[string]bool)
	appendEnv := func(name string, isDefault bool) {
		if seen[name] {
			return
		}
		seen[name] = true
		spec := f.Spec(name)
		def := ""
		if isDefault {
			def = "*"
		}
		t.AppendRow(table.Row{
			name,
			def,
			strings.Join(spec.Platforms, ","),
			len(spec.Commands),
			spec.Description,
		})
	}

	for _, name := range f.EnvList {
		appendEnv(name, true)
	}
	for _, name := range f.EnvOrder {
		appendEnv(name, false)
	}

	t.Render()
}
