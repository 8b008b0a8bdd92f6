package console

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/tradeledger/internal/pricing"
	"github.com/smallbiznis/tradeledger/internal/query"
	"github.com/smallbiznis/tradeledger/internal/remote"
)

type dashboardScreen struct {
	env       *env
	clients   query.Result[[]remote.Client]
	suppliers query.Result[[]remote.Supplier]
	invoices  query.Result[[]remote.Invoice]
	debts     query.Result[[]remote.Debt]
}

func newDashboardScreen(e *env) *dashboardScreen {
	return &dashboardScreen{env: e}
}

func (s *dashboardScreen) init() tea.Cmd {
	q, ctx := s.env.queries, s.env.ctx
	return tea.Batch(q.loadClients(ctx), q.loadSuppliers(ctx), q.loadInvoices(ctx), q.loadDebts(ctx))
}

func (s *dashboardScreen) capturing() bool { return false }

func (s *dashboardScreen) update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case clientsLoadedMsg:
		s.clients = msg.result
	case suppliersLoadedMsg:
		s.suppliers = msg.result
	case invoicesLoadedMsg:
		s.invoices = msg.result
	case debtsLoadedMsg:
		s.debts = msg.result
	}
	return nil
}

func countCard(label string, status query.Status, n int) string {
	value := "…"
	switch status {
	case query.StatusReady:
		value = fmt.Sprintf("%d", n)
	case query.StatusFailed:
		value = errorStyle.Render("unavailable")
	}
	return boxStyle.Width(18).Render(subtitleStyle.Render(label) + "\n" + totalStyle.Render(value))
}

func (s *dashboardScreen) outstanding(t remote.DebtType) decimal.Decimal {
	total := decimal.Zero
	for _, d := range s.debts.Data {
		if d.DebtType == t && !d.IsPaid {
			total = total.Add(d.Amount)
		}
	}
	return total
}

func (s *dashboardScreen) view() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Dashboard") + "\n\n")

	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		countCard("Clients", s.clients.Status, len(s.clients.Data)),
		countCard("Suppliers", s.suppliers.Status, len(s.suppliers.Data)),
		countCard("Invoices", s.invoices.Status, len(s.invoices.Data)),
	) + "\n\n")

	switch s.debts.Status {
	case query.StatusReady:
		money := s.env.money
		b.WriteString("  Receivable from clients: " + totalStyle.Render(pricing.FormatMoney(s.outstanding(remote.DebtTypeClient), money)) + "\n")
		b.WriteString("  Payable to suppliers:    " + totalStyle.Render(pricing.FormatMoney(s.outstanding(remote.DebtTypeSupplier), money)) + "\n")
	case query.StatusFailed:
		b.WriteString(errorStyle.Render("  "+loadError("debts", s.debts.Err)) + "\n")
	default:
		b.WriteString(subtitleStyle.Render("  Loading debts…") + "\n")
	}

	if s.invoices.Ready() && len(s.invoices.Data) > 0 {
		b.WriteString("\n" + subtitleStyle.Render("  Latest invoices") + "\n")
		latest := s.invoices.Data
		if len(latest) > 5 {
			latest = latest[len(latest)-5:]
		}
		widths := []int{12, 10, 20, 16}
		for i := len(latest) - 1; i >= 0; i-- {
			inv := latest[i]
			b.WriteString(row(widths,
				inv.InvoiceNumber,
				inv.Date.Format("2006-01-02"),
				inv.Client.Name,
				pricing.FormatMoney(inv.TotalWithMarkup, s.env.money),
			) + "\n")
		}
	}
	return b.String()
}
