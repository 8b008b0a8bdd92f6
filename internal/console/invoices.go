package console

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/smallbiznis/tradeledger/internal/pricing"
	"github.com/smallbiznis/tradeledger/internal/query"
	"github.com/smallbiznis/tradeledger/internal/remote"
)

type invoicesScreen struct {
	env      *env
	result   query.Result[[]remote.Invoice]
	loading  bool
	cursor   int
	selected *remote.Invoice
}

func newInvoicesScreen(e *env) *invoicesScreen {
	return &invoicesScreen{env: e}
}

func (s *invoicesScreen) init() tea.Cmd {
	s.loading = true
	s.selected = nil
	return s.env.queries.loadInvoices(s.env.ctx)
}

func (s *invoicesScreen) capturing() bool { return false }

func (s *invoicesScreen) update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case invoicesLoadedMsg:
		s.loading = false
		s.result = msg.result
		if s.cursor >= len(s.result.Data) {
			s.cursor = 0
		}
	case tea.KeyMsg:
		if s.selected != nil {
			if key.Matches(msg, keys.Back) {
				s.selected = nil
			}
			return nil
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
		case key.Matches(msg, keys.Select):
			if s.cursor < len(s.result.Data) {
				inv := s.result.Data[s.cursor]
				s.selected = &inv
			}
		case key.Matches(msg, keys.New):
			return navigate(screenCreateInvoice, "")
		case key.Matches(msg, keys.Refresh):
			return s.init()
		}
	}
	return nil
}

func (s *invoicesScreen) view() string {
	if s.selected != nil {
		return s.viewDetail(*s.selected)
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Invoices") + "\n\n")

	switch {
	case s.loading && len(s.result.Data) == 0:
		b.WriteString(subtitleStyle.Render("  Loading…"))
		return b.String()
	case s.result.Status == query.StatusFailed:
		b.WriteString(errorStyle.Render("  "+loadError("invoices", s.result.Err)) + "\n")
		b.WriteString("\n" + helpStyle.Render("  r: retry  n: new invoice"))
		return b.String()
	case len(s.result.Data) == 0:
		b.WriteString(subtitleStyle.Render("  No invoices yet. Press 'n' to create one."))
		return b.String()
	}

	money := s.env.money
	widths := []int{12, 10, 18, 18, 14, 8, 16}
	b.WriteString(subtitleStyle.Render(row(widths,
		"Number", "Date", "Client", "Supplier", "Total", "Markup", "Total w/ markup",
	)) + "\n")
	for i, inv := range s.result.Data {
		line := row(widths,
			inv.InvoiceNumber,
			inv.Date.Format("2006-01-02"),
			inv.Client.Name,
			inv.Supplier.Name,
			pricing.FormatMoney(inv.TotalAmount, money),
			pricing.FormatPercent(inv.MarkupPercentage),
			pricing.FormatMoney(inv.TotalWithMarkup, money),
		)
		if i == s.cursor {
			line = selectedStyle.Render(line)
		}
		b.WriteString(line + "\n")
	}
	b.WriteString("\n" + helpStyle.Render("  j/k: move  enter: details  n: new invoice  r: refresh"))
	return b.String()
}

func (s *invoicesScreen) viewDetail(inv remote.Invoice) string {
	money := s.env.money
	var b strings.Builder
	b.WriteString(titleStyle.Render("Invoice "+inv.InvoiceNumber) + "\n\n")
	b.WriteString("  Date:      " + inv.Date.Format("2006-01-02") + "\n")
	b.WriteString("  Client:    " + inv.Client.Name + "\n")
	b.WriteString("  Supplier:  " + inv.Supplier.Name + "\n")
	if inv.Description != "" {
		b.WriteString("  Note:      " + inv.Description + "\n")
	}
	b.WriteString("\n")

	widths := []int{24, 10, 6, 14, 14}
	b.WriteString(subtitleStyle.Render(row(widths, "Material", "Quantity", "Unit", "Unit price", "Total")) + "\n")
	for _, item := range inv.Items {
		b.WriteString(row(widths,
			item.MaterialName,
			item.Quantity.String(),
			item.Unit,
			pricing.FormatMoney(item.UnitPrice, money),
			pricing.FormatMoney(item.TotalPrice, money),
		) + "\n")
	}

	b.WriteString("\n")
	b.WriteString("  Subtotal:          " + pricing.FormatMoney(inv.TotalAmount, money) + "\n")
	b.WriteString("  Markup (" + pricing.FormatPercent(inv.MarkupPercentage) + "):" +
		strings.Repeat(" ", max(1, 10-len(pricing.FormatPercent(inv.MarkupPercentage)))) +
		pricing.FormatMoney(inv.MarkupAmount, money) + "\n")
	b.WriteString(totalStyle.Render("  Total with markup: "+pricing.FormatMoney(inv.TotalWithMarkup, money)) + "\n")
	b.WriteString("\n" + helpStyle.Render("  esc: back to list"))
	return b.String()
}
