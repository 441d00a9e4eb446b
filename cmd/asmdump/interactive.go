package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/cilium/metadata"
)

// maxGridRows bounds how many rows the grid materialises at once.
const maxGridRows = 5000

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))

	baseStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("240"))
)

type browserState int

const (
	stateTables browserState = iota
	stateRows
	stateGoto
)

type browserModel struct {
	err      error
	asm      *metadata.Assembly
	filename string
	status   string
	ids      []metadata.TableID
	tables   table.Model
	grid     table.Model
	input    textinput.Model
	current  metadata.TableID
	offset   uint32
	height   int
	state    browserState
}

func runInteractive(asm *metadata.Assembly, filename string) error {
	p := tea.NewProgram(newBrowserModel(asm, filename), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

func newBrowserModel(asm *metadata.Assembly, filename string) *browserModel {
	m := &browserModel{
		asm:      asm,
		filename: filename,
		height:   20,
		state:    stateTables,
	}

	var rows []table.Row
	for _, tl := range asm.Layout().Tables {
		if !tl.Present {
			continue
		}
		m.ids = append(m.ids, tl.ID)
		rows = append(rows, table.Row{
			fmt.Sprintf("%#02x", uint8(tl.ID)),
			tl.ID.String(),
			strconv.FormatUint(uint64(tl.Rows), 10),
			strconv.FormatUint(uint64(tl.RowSize), 10),
		})
	}
	m.tables = table.New(
		table.WithColumns([]table.Column{
			{Title: "ID", Width: 5},
			{Title: "Table", Width: 24},
			{Title: "Rows", Width: 8},
			{Title: "Size", Width: 5},
		}),
		table.WithRows(rows),
		table.WithFocused(true),
		table.WithHeight(m.height),
	)
	m.tables.SetStyles(tableStyles())

	m.input = textinput.New()
	m.input.Placeholder = "row number"
	m.input.CharLimit = 10
	m.input.Width = 12
	return m
}

func tableStyles() table.Styles {
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("#FAFAFA")).
		Background(lipgloss.Color("#7D56F4")).
		Bold(false)
	return s
}

func (m *browserModel) Init() tea.Cmd {
	return nil
}

func (m *browserModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.height = max(msg.Height-8, 5)
		m.tables.SetHeight(m.height)
		if m.state != stateTables {
			m.grid.SetHeight(m.height)
		}
		return m, nil

	case tea.KeyMsg:
		if m.state == stateGoto {
			return m.updateGoto(msg)
		}
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "esc":
			if m.state == stateRows {
				m.state = stateTables
				m.status = ""
				m.err = nil
			}
			return m, nil
		case "enter":
			if m.state == stateTables && len(m.ids) > 0 {
				m.openTable(m.ids[m.tables.Cursor()])
			}
			return m, nil
		case "g":
			if m.state == stateRows {
				m.state = stateGoto
				m.input.SetValue("")
				m.err = nil
				return m, m.input.Focus()
			}
		}
	}

	var cmd tea.Cmd
	switch m.state {
	case stateTables:
		m.tables, cmd = m.tables.Update(msg)
	case stateRows:
		m.grid, cmd = m.grid.Update(msg)
	case stateGoto:
		m.input, cmd = m.input.Update(msg)
	}
	return m, cmd
}

func (m *browserModel) updateGoto(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.input.Blur()
		m.state = stateRows
		return m, nil
	case "enter":
		m.input.Blur()
		m.state = stateRows
		n, err := strconv.ParseUint(strings.TrimSpace(m.input.Value()), 10, 32)
		if err != nil {
			m.err = fmt.Errorf("not a row number: %q", m.input.Value())
			return m, nil
		}
		m.gotoRow(uint32(n))
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *browserModel) openTable(id metadata.TableID) {
	m.current = id
	m.offset = 0
	m.err = nil
	m.loadWindow()
	m.state = stateRows
}

// gotoRow moves the cursor to 0-based row n, reloading the window if n lies
// outside it.
func (m *browserModel) gotoRow(n uint32) {
	rows := m.asm.RowCount(m.current)
	if n >= rows {
		m.err = fmt.Errorf("row %d out of range, %s has %d rows", n, m.current, rows)
		return
	}
	if n < m.offset || n >= m.offset+maxGridRows {
		m.offset = n - n%maxGridRows
		m.loadWindow()
	}
	m.grid.SetCursor(int(n - m.offset))
}

func (m *browserModel) loadWindow() {
	cols, _ := metadata.Schema(m.current)
	total := m.asm.RowCount(m.current)
	end := min(total, m.offset+maxGridRows)

	columns := make([]table.Column, 0, len(cols)+1)
	columns = append(columns, table.Column{Title: "#", Width: 7})
	for _, c := range cols {
		columns = append(columns, table.Column{Title: c.Name, Width: max(len(c.Name), 12)})
	}

	rows := make([]table.Row, 0, end-m.offset)
	for i := m.offset; i < end; i++ {
		cells, err := formatRow(m.asm, m.current, cols, i)
		if err != nil {
			m.err = err
			break
		}
		rows = append(rows, append(table.Row{strconv.FormatUint(uint64(i), 10)}, cells...))
	}

	m.grid = table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithFocused(true),
		table.WithHeight(m.height),
	)
	m.grid.SetStyles(tableStyles())

	m.status = fmt.Sprintf("%s: rows %d-%d of %d", m.current, m.offset, end, total)
	if total == 0 {
		m.status = fmt.Sprintf("%s: empty", m.current)
	}
}

func (m *browserModel) View() string {
	var b strings.Builder

	name, _ := m.asm.Name()
	b.WriteString(titleStyle.Render(fmt.Sprintf("asmdump: %s (%s)", name, m.filename)))
	b.WriteString("\n\n")

	switch m.state {
	case stateTables:
		b.WriteString(baseStyle.Render(m.tables.View()))
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓: navigate • enter: open table • q: quit"))
	case stateRows, stateGoto:
		b.WriteString(baseStyle.Render(m.grid.View()))
		b.WriteString("\n")
		b.WriteString(m.status)
		b.WriteString("\n")
		if m.state == stateGoto {
			b.WriteString("Go to row: ")
			b.WriteString(m.input.View())
			b.WriteString("\n")
			b.WriteString(helpStyle.Render("enter: jump • esc: cancel"))
		} else {
			b.WriteString(helpStyle.Render("↑/↓: navigate • g: go to row • esc: back • q: quit"))
		}
	}

	if m.err != nil {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render("Error: " + m.err.Error()))
	}
	return b.String()
}
