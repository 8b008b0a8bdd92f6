package console

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up       key.Binding
	Down     key.Binding
	Select   key.Binding
	Back     key.Binding
	New      key.Binding
	Refresh  key.Binding
	Next     key.Binding
	Prev     key.Binding
	Left     key.Binding
	Right    key.Binding
	Submit   key.Binding
	AddItem  key.Binding
	DropItem key.Binding
	Quit     key.Binding
	Screens  key.Binding
}

var keys = keyMap{
	Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	Select:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open")),
	Back:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
	New:      key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new")),
	Refresh:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
	Next:     key.NewBinding(key.WithKeys("tab", "down"), key.WithHelp("tab", "next field")),
	Prev:     key.NewBinding(key.WithKeys("shift+tab", "up"), key.WithHelp("shift+tab", "previous field")),
	Left:     key.NewBinding(key.WithKeys("left"), key.WithHelp("←", "previous option")),
	Right:    key.NewBinding(key.WithKeys("right"), key.WithHelp("→", "next option")),
	Submit:   key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "save")),
	AddItem:  key.NewBinding(key.WithKeys("ctrl+a"), key.WithHelp("ctrl+a", "add item")),
	DropItem: key.NewBinding(key.WithKeys("ctrl+d"), key.WithHelp("ctrl+d", "remove item")),
	Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	Screens:  key.NewBinding(key.WithKeys("1", "2", "3", "4", "5", "6"), key.WithHelp("1-6", "screens")),
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Screens, k.Up, k.Down, k.Select, k.New, k.Refresh, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Screens, k.Up, k.Down, k.Select, k.Back},
		{k.New, k.Refresh, k.Quit},
		{k.Next, k.Prev, k.Left, k.Right, k.Submit, k.AddItem, k.DropItem},
	}
}

type formKeyMap struct{}

func (formKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{keys.Next, keys.Prev, keys.Left, keys.Right, keys.Submit, keys.Back}
}

func (formKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{formKeyMap{}.ShortHelp(), {keys.AddItem, keys.DropItem}}
}
