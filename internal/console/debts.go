package console

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/tradeledger/internal/pricing"
	"github.com/smallbiznis/tradeledger/internal/query"
	"github.com/smallbiznis/tradeledger/internal/remote"
)

var debtTabs = []remote.DebtType{remote.DebtTypeClient, remote.DebtTypeSupplier}

type debtsScreen struct {
	env     *env
	result  query.Result[[]remote.Debt]
	loading bool
	tab     int
	cursor  int
}

func newDebtsScreen(e *env) *debtsScreen {
	return &debtsScreen{env: e}
}

func (s *debtsScreen) init() tea.Cmd {
	s.loading = true
	return s.env.queries.loadDebts(s.env.ctx)
}

func (s *debtsScreen) capturing() bool { return false }

// visible returns the debts of the active tab in server order.
func (s *debtsScreen) visible() []remote.Debt {
	want := debtTabs[s.tab]
	out := make([]remote.Debt, 0, len(s.result.Data))
	for _, d := range s.result.Data {
		if d.DebtType == want {
			out = append(out, d)
		}
	}
	return out
}

func (s *debtsScreen) update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case debtsLoadedMsg:
		s.loading = false
		s.result = msg.result
		s.cursor = 0
	case tea.KeyMsg:
		switch {
		case msg.Type == tea.KeyTab, key.Matches(msg, keys.Right), key.Matches(msg, keys.Left), msg.Type == tea.KeyShiftTab:
			s.tab = (s.tab + 1) % len(debtTabs)
			s.cursor = 0
		case key.Matches(msg, keys.Up):
			if s.cursor > 0 {
				s.cursor--
			}
		case key.Matches(msg, keys.Down):
			if s.cursor < len(s.visible())-1 {
				s.cursor++
			}
		case key.Matches(msg, keys.Refresh):
			return s.init()
		}
	}
	return nil
}

func (s *debtsScreen) view() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Debts") + "\n\n")
	b.WriteString(tabs([]string{"Client debts", "Supplier debts"}, s.tab) + "\n\n")

	switch {
	case s.loading && len(s.result.Data) == 0:
		b.WriteString(subtitleStyle.Render("  Loading…"))
		return b.String()
	case s.result.Status == query.StatusFailed:
		b.WriteString(errorStyle.Render("  "+loadError("debts", s.result.Err)) + "\n")
		b.WriteString("\n" + helpStyle.Render("  r: retry"))
		return b.String()
	}

	debts := s.visible()
	if len(debts) == 0 {
		b.WriteString(subtitleStyle.Render("  Nothing owed here."))
		return b.String()
	}

	counterparty := "Client"
	if debtTabs[s.tab] == remote.DebtTypeSupplier {
		counterparty = "Supplier"
	}
	widths := []int{16, 8, 10, 24, 12}
	b.WriteString(subtitleStyle.Render(row(widths, "Amount", "Status", "Due", counterparty, "Invoice")) + "\n")
	total := decimal.Zero
	for i, d := range debts {
		status := errorStyle.Render("Unpaid")
		if d.IsPaid {
			status = successStyle.Render("Paid")
		} else {
			total = total.Add(d.Amount)
		}
		due := "-"
		if d.DueDate != nil {
			due = d.DueDate.Format("2006-01-02")
		}
		line := row(widths,
			pricing.FormatMoney(d.Amount, s.env.money),
			status,
			due,
			d.Counterparty(),
			d.Invoice.InvoiceNumber,
		)
		if i == s.cursor {
			line = selectedStyle.Render(line)
		}
		b.WriteString(line + "\n")
	}
	b.WriteString("\n" + totalStyle.Render("  Outstanding: "+pricing.FormatMoney(total, s.env.money)) + "\n")
	b.WriteString("\n" + helpStyle.Render("  tab: switch list  j/k: move  r: refresh"))
	return b.String()
}
