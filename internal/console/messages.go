package console

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/tradeledger/internal/query"
	"github.com/smallbiznis/tradeledger/internal/remote"
)

type screenID int

const (
	screenDashboard screenID = iota
	screenClients
	screenSuppliers
	screenInvoices
	screenCreateInvoice
	screenDebts
)

var screenTitles = []string{"Dashboard", "Clients", "Suppliers", "Invoices", "Create Invoice", "Debts"}

func (s screenID) String() string { return screenTitles[s] }

type navigateMsg struct {
	to     screenID
	status string
}

func navigate(to screenID, status string) tea.Cmd {
	return func() tea.Msg { return navigateMsg{to: to, status: status} }
}

type clientsLoadedMsg struct{ result query.Result[[]remote.Client] }
type suppliersLoadedMsg struct{ result query.Result[[]remote.Supplier] }
type invoicesLoadedMsg struct{ result query.Result[[]remote.Invoice] }
type debtsLoadedMsg struct{ result query.Result[[]remote.Debt] }

// queryStateMsg forwards a query transition to the status bar.
type queryStateMsg struct {
	name   string
	status query.Status
	err    error
}

type clientCreatedMsg struct {
	client remote.Client
	err    error
}

type supplierCreatedMsg struct {
	supplier remote.Supplier
	err      error
}

type invoiceSubmittedMsg struct {
	result remote.CreateInvoiceResult
	err    error
}

// queries are shared by every screen so the dashboard and the list screens
// see the same latest results.
type queries struct {
	clients   *query.Query[[]remote.Client]
	suppliers *query.Query[[]remote.Supplier]
	invoices  *query.Query[[]remote.Invoice]
	debts     *query.Query[[]remote.Debt]
}

func (q *queries) loadClients(ctx context.Context) tea.Cmd {
	return func() tea.Msg { return clientsLoadedMsg{result: q.clients.Fetch(ctx)} }
}

func (q *queries) loadSuppliers(ctx context.Context) tea.Cmd {
	return func() tea.Msg { return suppliersLoadedMsg{result: q.suppliers.Fetch(ctx)} }
}

func (q *queries) loadInvoices(ctx context.Context) tea.Cmd {
	return func() tea.Msg { return invoicesLoadedMsg{result: q.invoices.Fetch(ctx)} }
}

func (q *queries) loadDebts(ctx context.Context) tea.Cmd {
	return func() tea.Msg { return debtsLoadedMsg{result: q.debts.Fetch(ctx)} }
}

// loadError turns a failed read into the line a screen shows instead of its
// table.
func loadError(what string, err error) string {
	if errors.Is(err, remote.ErrMalformedResponse) {
		return "Could not load " + what + ": the server sent incomplete data"
	}
	return "Could not load " + what + ": " + err.Error()
}

func parseMarkup(value string) (decimal.Decimal, bool) {
	if value == "" {
		return decimal.Zero, true
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}
