package console

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/smallbiznis/tradeledger/internal/pricing"
	"github.com/smallbiznis/tradeledger/internal/query"
	"github.com/smallbiznis/tradeledger/internal/remote"
	"go.uber.org/zap"
)

type clientsScreen struct {
	env     *env
	result  query.Result[[]remote.Client]
	loading bool
	cursor  int
	form    *simpleForm
	status  string
}

func newClientsScreen(e *env) *clientsScreen {
	return &clientsScreen{env: e}
}

func (s *clientsScreen) init() tea.Cmd {
	s.loading = true
	return s.env.queries.loadClients(s.env.ctx)
}

func (s *clientsScreen) capturing() bool { return s.form != nil }

func (s *clientsScreen) update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case clientsLoadedMsg:
		s.loading = false
		s.result = msg.result
		if s.cursor >= len(s.result.Data) {
			s.cursor = 0
		}
		return nil

	case clientCreatedMsg:
		if s.form == nil {
			return nil
		}
		s.form.busy = false
		if msg.err != nil {
			s.form.err = "Client was not created: " + msg.err.Error()
			return nil
		}
		s.env.log.Info("client created", zap.String("client_id", msg.client.ID))
		s.form = nil
		s.status = fmt.Sprintf("Client %q created", msg.client.Name)
		return s.init()

	case tea.KeyMsg:
		if s.form != nil {
			return s.updateForm(msg)
		}
		return s.updateList(msg)
	}
	return nil
}

func (s *clientsScreen) updateList(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, keys.Up):
		if s.cursor > 0 {
			s.cursor--
		}
	case key.Matches(msg, keys.Down):
		if s.cursor < len(s.result.Data)-1 {
			s.cursor++
		}
	case key.Matches(msg, keys.New):
		s.status = ""
		s.form = newSimpleForm("New client",
			[]string{"name", "markup_percentage"},
			[]string{"Name", "Markup %"},
			[]string{"Client name", "0"},
		)
	case key.Matches(msg, keys.Refresh):
		return s.init()
	}
	return nil
}

func (s *clientsScreen) updateForm(msg tea.KeyMsg) tea.Cmd {
	if key.Matches(msg, keys.Back) && !s.form.busy {
		s.form = nil
		return nil
	}
	submit, cmd := s.form.update(msg)
	if !submit {
		return cmd
	}

	f := s.form
	f.errors = map[string]string{}
	f.err = ""
	name := f.value(0)
	if name == "" {
		f.errors["name"] = "Name is required"
	}
	markup, ok := parseMarkup(f.value(1))
	switch {
	case !ok:
		f.errors["markup_percentage"] = "Markup must be a number"
	case markup.IsNegative():
		f.errors["markup_percentage"] = "Markup must be zero or greater"
	case !pricing.WithinScale(markup):
		f.errors["markup_percentage"] = fmt.Sprintf("Use at most %d decimal places", pricing.InputScale)
	}
	if len(f.errors) > 0 {
		return nil
	}

	f.busy = true
	svc, ctx := s.env.service, s.env.ctx
	return func() tea.Msg {
		client, err := svc.CreateClient(ctx, name, markup)
		return clientCreatedMsg{client: client, err: err}
	}
}

func (s *clientsScreen) view() string {
	if s.form != nil {
		return s.form.view()
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Clients") + "\n\n")
	if s.status != "" {
		b.WriteString(successStyle.Render("  "+s.status) + "\n\n")
	}

	switch {
	case s.loading && len(s.result.Data) == 0:
		b.WriteString(subtitleStyle.Render("  Loading…"))
		return b.String()
	case s.result.Status == query.StatusFailed:
		b.WriteString(errorStyle.Render("  "+loadError("clients", s.result.Err)) + "\n")
		b.WriteString("\n" + helpStyle.Render("  r: retry"))
		return b.String()
	case len(s.result.Data) == 0:
		b.WriteString(subtitleStyle.Render("  No clients yet. Press 'n' to add one."))
		return b.String()
	}

	widths := []int{32, 10}
	b.WriteString(subtitleStyle.Render(row(widths, "Name", "Markup")) + "\n")
	for i, client := range s.result.Data {
		line := row(widths, client.Name, pricing.FormatPercent(client.MarkupPercentage))
		if i == s.cursor {
			line = selectedStyle.Render(line)
		}
		b.WriteString(line + "\n")
	}
	b.WriteString("\n" + helpStyle.Render("  j/k: move  n: new client  r: refresh"))
	return b.String()
}
