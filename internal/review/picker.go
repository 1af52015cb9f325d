package review

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	pickerTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("39")).
				Padding(1, 0, 1, 2)

	pickerItemStyle = lipgloss.NewStyle().
			Padding(0, 0, 0, 4)

	pickerSelectedStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("39")).
				Bold(true).
				Padding(0, 0, 0, 2)

	pickerHintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Padding(1, 0, 0, 2)
)

const allSources = "All sources"

type pickerModel struct {
	options []string // allSources first, then each source with its match count
	sources []string
	cursor  int
	chosen  int // -1 = no choice yet, -2 = quit
}

func newPickerModel(sources []string, counts map[string]int) pickerModel {
	options := []string{allSources}
	for _, s := range sources {
		options = append(options, fmt.Sprintf("%s (%d)", s, counts[s]))
	}
	return pickerModel{options: options, sources: sources, chosen: -1}
}

func (m pickerModel) Init() tea.Cmd {
	return nil
}

func (m pickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.chosen = -2
			return m, tea.Quit
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.options)-1 {
				m.cursor++
			}
		case "enter":
			m.chosen = m.cursor
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m pickerModel) View() string {
	s := pickerTitleStyle.Render("Review matches: select a source")
	s += "\n"

	for i, label := range m.options {
		if i == m.cursor {
			s += pickerSelectedStyle.Render("> "+label) + "\n"
		} else {
			s += pickerItemStyle.Render(label) + "\n"
		}
	}

	s += pickerHintStyle.Render("↑/↓/j/k navigate  enter select  q quit")
	return s
}

// selection maps the chosen option to a source filter. A nil slice means all
// sources. ok is false when the user quit.
func (m pickerModel) selection() (sources []string, ok bool) {
	switch {
	case m.chosen < 0:
		return nil, false
	case m.chosen == 0:
		return nil, true
	default:
		return []string{m.sources[m.chosen-1]}, true
	}
}

// RunSourcePicker shows an interactive source selector. counts labels each
// source with its number of scored postings. It returns a nil slice for
// "all sources" and ok=false if the user quit.
func RunSourcePicker(sources []string, counts map[string]int) (selected []string, ok bool, err error) {
	p := tea.NewProgram(newPickerModel(sources, counts))
	result, err := p.Run()
	if err != nil {
		return nil, false, err
	}
	selected, ok = result.(pickerModel).selection()
	return selected, ok, nil
}
