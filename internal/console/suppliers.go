package console

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/smallbiznis/tradeledger/internal/query"
	"github.com/smallbiznis/tradeledger/internal/remote"
	"go.uber.org/zap"
)

type suppliersScreen struct {
	env     *env
	result  query.Result[[]remote.Supplier]
	loading bool
	cursor  int
	form    *simpleForm
	status  string
}

func newSuppliersScreen(e *env) *suppliersScreen {
	return &suppliersScreen{env: e}
}

func (s *suppliersScreen) init() tea.Cmd {
	s.loading = true
	return s.env.queries.loadSuppliers(s.env.ctx)
}

func (s *suppliersScreen) capturing() bool { return s.form != nil }

func (s *suppliersScreen) update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case suppliersLoadedMsg:
		s.loading = false
		s.result = msg.result
		if s.cursor >= len(s.result.Data) {
			s.cursor = 0
		}
		return nil

	case supplierCreatedMsg:
		if s.form == nil {
			return nil
		}
		s.form.busy = false
		if msg.err != nil {
			s.form.err = "Supplier was not created: " + msg.err.Error()
			return nil
		}
		s.env.log.Info("supplier created", zap.String("supplier_id", msg.supplier.ID))
		s.form = nil
		s.status = fmt.Sprintf("Supplier %q created", msg.supplier.Name)
		return s.init()

	case tea.KeyMsg:
		if s.form != nil {
			return s.updateForm(msg)
		}
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
			s.form = newSimpleForm("New supplier", []string{"name"}, []string{"Name"}, []string{"Supplier name"})
		case key.Matches(msg, keys.Refresh):
			return s.init()
		}
	}
	return nil
}

func (s *suppliersScreen) updateForm(msg tea.KeyMsg) tea.Cmd {
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
		return nil
	}

	f.busy = true
	svc, ctx := s.env.service, s.env.ctx
	return func() tea.Msg {
		supplier, err := svc.CreateSupplier(ctx, name)
		return supplierCreatedMsg{supplier: supplier, err: err}
	}
}

func (s *suppliersScreen) view() string {
	if s.form != nil {
		return s.form.view()
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Suppliers") + "\n\n")
	if s.status != "" {
		b.WriteString(successStyle.Render("  "+s.status) + "\n\n")
	}

	switch {
	case s.loading && len(s.result.Data) == 0:
		b.WriteString(subtitleStyle.Render("  Loading…"))
		return b.String()
	case s.result.Status == query.StatusFailed:
		b.WriteString(errorStyle.Render("  "+loadError("suppliers", s.result.Err)) + "\n")
		b.WriteString("\n" + helpStyle.Render("  r: retry"))
		return b.String()
	case len(s.result.Data) == 0:
		b.WriteString(subtitleStyle.Render("  No suppliers yet. Press 'n' to add one."))
		return b.String()
	}

	widths := []int{40}
	b.WriteString(subtitleStyle.Render(row(widths, "Name")) + "\n")
	for i, supplier := range s.result.Data {
		line := row(widths, supplier.Name)
		if i == s.cursor {
			line = selectedStyle.Render(line)
		}
		b.WriteString(line + "\n")
	}
	b.WriteString("\n" + helpStyle.Render("  j/k: move  n: new supplier  r: refresh"))
	return b.String()
}
