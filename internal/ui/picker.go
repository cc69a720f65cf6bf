package ui

import (
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

// ErrNothingToPick is returned by Pick for an empty list.
var ErrNothingToPick = errors.New("no items to pick from")

// PickerItem is one entry in the picker.
type PickerItem struct {
	Label   string // wallet name
	Detail  string // address, shown dimmed
	Value   string
	Current bool // marked and preselected
}

type pickerModel struct {
	title    string
	items    []PickerItem
	cursor   int
	selected *PickerItem
	quitting bool
}

func newPicker(title string, items []PickerItem) pickerModel {
	m := pickerModel{title: title, items: items}
	for i, it := range items {
		if it.Current {
			m.cursor = i
		}
	}
	return m
}

func (m pickerModel) Init() tea.Cmd { return nil }

func (m pickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "q", "ctrl+c", "esc":
		m.quitting = true
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.items)-1 {
			m.cursor++
		}
	case "enter", " ":
		item := m.items[m.cursor]
		m.selected = &item
		return m, tea.Quit
	}
	return m, nil
}

func (m pickerModel) View() string {
	if m.quitting || m.selected != nil {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(StyleTitle.Render(m.title) + "\n")
	for i, item := range m.items {
		mark := "  "
		if item.Current {
			mark = StyleSuccess.Render("★ ")
		}
		line := pad(item.Label, 16)
		if item.Detail != "" {
			line += " " + item.Detail
		}
		if i == m.cursor {
			sb.WriteString("▸ " + mark + StyleSelected.Render(line) + "\n")
		} else {
			sb.WriteString("  " + mark + StyleValue.Render(line) + "\n")
		}
	}
	sb.WriteString("\n" + Meta("↑/↓ navigate · Enter select · q cancel") + "\n")
	return sb.String()
}

// Pick runs the picker and returns the chosen item's Value, or "" when the
// user cancels.
func Pick(title string, items []PickerItem) (string, error) {
	if len(items) == 0 {
		return "", ErrNothingToPick
	}
	final, err := tea.NewProgram(newPicker(title, items)).Run()
	if err != nil {
		return "", fmt.Errorf("picker: %w", err)
	}
	fm := final.(pickerModel)
	if fm.selected == nil {
		return "", nil
	}
	return fm.selected.Value, nil
}
