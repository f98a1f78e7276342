// Package infoview renders a loaded object graph as an interactive
// bubbletea table: one row per segment across every object in the
// dependency closure, with arrow-key navigation and a symbol count per
// row. It is a read-only inspection surface; no loader state is mutated
// once Model is built.
package infoview

import (
	"fmt"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/zboralski/xelf/internal/object"
)

var (
	borderStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240"))
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	selStyle    = lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("86")).
			Bold(true)
)

// Model is the bubbletea model backing `xelf info`.
type Model struct {
	table table.Model
	rows  int
}

func flags(s *object.Segment) string {
	r, w, x := '-', '-', '-'
	if s.Read {
		r = 'r'
	}
	if s.Write {
		w = 'w'
	}
	if s.Exec {
		x = 'x'
	}
	return fmt.Sprintf("%c%c%c", r, w, x)
}

// New builds a Model listing every segment of every object in objs, in
// load order.
func New(objs []*object.Object) Model {
	cols := []table.Column{
		{Title: "object", Width: 28},
		{Title: "start", Width: 14},
		{Title: "end", Width: 14},
		{Title: "flags", Width: 5},
		{Title: "symbols", Width: 7},
	}

	var rows []table.Row
	for _, o := range objs {
		for _, s := range o.Segments {
			rows = append(rows, table.Row{
				o.Path,
				fmt.Sprintf("0x%x", uint64(s.Start)),
				fmt.Sprintf("0x%x", uint64(s.End)),
				flags(s),
				fmt.Sprintf("%d", len(o.Syms)),
			})
		}
	}

	t := table.New(
		table.WithColumns(cols),
		table.WithRows(rows),
		table.WithFocused(true),
		table.WithHeight(len(rows)+1),
	)

	style := table.DefaultStyles()
	style.Header = headerStyle
	style.Selected = selStyle
	t.SetStyles(style)

	return Model{table: t, rows: len(rows)}
}

func (m Model) Init() tea.Cmd { return nil }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}
	}
	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	return borderStyle.Render(m.table.View()) + "\n  q: quit\n"
}
