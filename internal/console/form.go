package console

import (
	"strings"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

func newInput(placeholder string, width int) textinput.Model {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.Width = width
	ti.Prompt = ""
	ti.Cursor.SetMode(cursor.CursorStatic)
	return ti
}

// simpleForm is a vertical list of labelled text inputs with per-field
// messages.
type simpleForm struct {
	title  string
	labels []string
	fields []string
	inputs []textinput.Model
	focus  int
	errors map[string]string
	err    string
	busy   bool
}

func newSimpleForm(title string, fields, labels, placeholders []string) *simpleForm {
	f := &simpleForm{title: title, labels: labels, fields: fields, errors: map[string]string{}}
	for _, p := range placeholders {
		f.inputs = append(f.inputs, newInput(p, 32))
	}
	f.inputs[0].Focus()
	return f
}

func (f *simpleForm) value(i int) string {
	return strings.TrimSpace(f.inputs[i].Value())
}

func (f *simpleForm) move(delta int) {
	f.inputs[f.focus].Blur()
	f.focus = (f.focus + delta + len(f.inputs)) % len(f.inputs)
	f.inputs[f.focus].Focus()
}

// update handles navigation and typing. It reports true when the user asked
// to submit.
func (f *simpleForm) update(msg tea.KeyMsg) (bool, tea.Cmd) {
	if f.busy {
		return false, nil
	}
	switch {
	case key.Matches(msg, keys.Submit):
		return true, nil
	case msg.Type == tea.KeyEnter:
		if f.focus == len(f.inputs)-1 {
			return true, nil
		}
		f.move(1)
		return false, nil
	case msg.Type == tea.KeyTab, msg.Type == tea.KeyDown:
		f.move(1)
		return false, nil
	case msg.Type == tea.KeyShiftTab, msg.Type == tea.KeyUp:
		f.move(-1)
		return false, nil
	}
	var cmd tea.Cmd
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	return false, cmd
}

func (f *simpleForm) view() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(f.title) + "\n\n")
	for i, input := range f.inputs {
		label := f.labels[i]
		if i == f.focus {
			label = selectedStyle.Render(label)
		}
		b.WriteString("  " + label + "\n")
		b.WriteString("  " + input.View() + "\n")
		if msg, ok := f.errors[f.fields[i]]; ok {
			b.WriteString("  " + errorStyle.Render(msg) + "\n")
		}
		b.WriteString("\n")
	}
	if f.err != "" {
		b.WriteString(errorStyle.Render("  "+f.err) + "\n\n")
	}
	if f.busy {
		b.WriteString(subtitleStyle.Render("  Saving…") + "\n")
	}
	b.WriteString(helpStyle.Render("  tab: next field  enter/ctrl+s: save  esc: cancel"))
	return boxStyle.Render(b.String())
}
