package console

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/tradeledger/internal/clock"
	"github.com/smallbiznis/tradeledger/internal/pricing"
	"github.com/smallbiznis/tradeledger/internal/query"
	"github.com/smallbiznis/tradeledger/internal/remote"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type fakeService struct {
	mu sync.Mutex

	clients   []remote.Client
	suppliers []remote.Supplier
	invoices  []remote.Invoice
	debts     []remote.Debt
	fetchErr  map[string]error

	createdClient  *remote.Client
	invoiceInputs  []remote.CreateInvoiceInput
	createInvoiceF func(remote.CreateInvoiceInput) (remote.CreateInvoiceResult, error)
}

func (f *fakeService) err(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetchErr[name]
}

func (f *fakeService) FetchClients(context.Context) ([]remote.Client, error) {
	return f.clients, f.err("clients")
}

func (f *fakeService) FetchSuppliers(context.Context) ([]remote.Supplier, error) {
	return f.suppliers, f.err("suppliers")
}

func (f *fakeService) FetchInvoices(context.Context) ([]remote.Invoice, error) {
	return f.invoices, f.err("invoices")
}

func (f *fakeService) FetchDebts(context.Context) ([]remote.Debt, error) {
	return f.debts, f.err("debts")
}

func (f *fakeService) CreateClient(_ context.Context, name string, markup decimal.Decimal) (remote.Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := remote.Client{ID: fmt.Sprintf("c-%d", len(f.clients)+1), Name: name, MarkupPercentage: markup}
	f.createdClient = &c
	f.clients = append(f.clients, c)
	return c, nil
}

func (f *fakeService) CreateSupplier(_ context.Context, name string) (remote.Supplier, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := remote.Supplier{ID: fmt.Sprintf("s-%d", len(f.suppliers)+1), Name: name}
	f.suppliers = append(f.suppliers, s)
	return s, nil
}

func (f *fakeService) CreateInvoice(_ context.Context, in remote.CreateInvoiceInput) (remote.CreateInvoiceResult, error) {
	f.mu.Lock()
	f.invoiceInputs = append(f.invoiceInputs, in)
	fn := f.createInvoiceF
	f.mu.Unlock()
	if fn != nil {
		return fn(in)
	}
	return remote.CreateInvoiceResult{}, nil
}

func newFakeService() *fakeService {
	return &fakeService{
		clients: []remote.Client{
			{ID: "c-15", Name: "Acme", MarkupPercentage: decimal.NewFromInt(15)},
		},
		suppliers: []remote.Supplier{{ID: "s-1", Name: "Steelworks"}},
		fetchErr:  map[string]error{},
	}
}

func newTestModel(t *testing.T, svc *fakeService) *Model {
	t.Helper()
	return New(context.Background(), Deps{
		Service: svc,
		Money:   pricing.MoneyFormat{Locale: "en"},
		Clock:   clock.NewFakeClock(time.Date(2024, 5, 2, 15, 30, 0, 0, time.UTC)),
	})
}

// drive feeds msg to the model and keeps running the returned commands until
// none are left.
func drive(t *testing.T, m *Model, msg tea.Msg) {
	t.Helper()
	queue := []tea.Msg{msg}
	for steps := 0; len(queue) > 0; steps++ {
		require.Less(t, steps, 200, "command loop did not settle")
		next := queue[0]
		queue = queue[1:]
		if _, ok := next.(tea.QuitMsg); ok {
			continue
		}
		_, cmd := m.Update(next)
		queue = append(queue, runCmd(cmd)...)
	}
}

func runCmd(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, runCmd(c)...)
		}
		return out
	}
	if msg == nil {
		return nil
	}
	return []tea.Msg{msg}
}

func press(t *testing.T, m *Model, keys ...string) {
	t.Helper()
	for _, k := range keys {
		drive(t, m, keyMsg(k))
	}
}

func keyMsg(k string) tea.KeyMsg {
	switch k {
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	case "backspace":
		return tea.KeyMsg{Type: tea.KeyBackspace}
	case "ctrl+s":
		return tea.KeyMsg{Type: tea.KeyCtrlS}
	case "ctrl+a":
		return tea.KeyMsg{Type: tea.KeyCtrlA}
	case "ctrl+d":
		return tea.KeyMsg{Type: tea.KeyCtrlD}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
}

func TestNavigationByNumberKeys(t *testing.T) {
	m := newTestModel(t, newFakeService())
	for _, msg := range runCmd(m.Init()) {
		drive(t, m, msg)
	}
	assert.Equal(t, "Dashboard", m.Active())

	press(t, m, "2")
	assert.Equal(t, "Clients", m.Active())
	assert.Contains(t, m.View(), "Acme")
	assert.Contains(t, m.View(), "15%")

	press(t, m, "3")
	assert.Equal(t, "Suppliers", m.Active())
	assert.Contains(t, m.View(), "Steelworks")

	press(t, m, "4", "n")
	assert.Equal(t, "Create Invoice", m.Active())
}

func TestCreateClientFlow(t *testing.T) {
	svc := newFakeService()
	m := newTestModel(t, svc)
	press(t, m, "2", "n")
	require.True(t, m.screens[screenClients].capturing())

	// Global shortcuts are off while typing.
	press(t, m, "Bolt 3", "tab", "12.5", "enter")

	require.NotNil(t, svc.createdClient)
	assert.Equal(t, "Bolt 3", svc.createdClient.Name)
	assert.True(t, decimal.RequireFromString("12.5").Equal(svc.createdClient.MarkupPercentage))
	assert.Equal(t, "Clients", m.Active())
	assert.Contains(t, m.View(), `Client "Bolt 3" created`)
	assert.Contains(t, m.View(), "12.5%")
}

func TestCreateClientRejectsNegativeMarkup(t *testing.T) {
	svc := newFakeService()
	m := newTestModel(t, svc)
	press(t, m, "2", "n", "Bolt", "tab", "-1", "enter")

	assert.Nil(t, svc.createdClient)
	assert.Contains(t, m.View(), "Markup must be zero or greater")
}

func TestCreateInvoiceFlow(t *testing.T) {
	svc := newFakeService()
	svc.createInvoiceF = func(in remote.CreateInvoiceInput) (remote.CreateInvoiceResult, error) {
		return remote.CreateInvoiceResult{Invoice: remote.Invoice{
			ID:              "101",
			InvoiceNumber:   in.InvoiceNumber,
			TotalWithMarkup: decimal.RequireFromString("287.5"),
		}}, nil
	}
	m := newTestModel(t, svc)

	press(t, m, "5")
	require.Equal(t, "Create Invoice", m.Active())
	screen := m.screens[screenCreateInvoice].(*createInvoiceScreen)
	require.NotNil(t, screen.ctrl)

	press(t, m,
		"INV-1", "tab", // number
		"tab",          // date keeps today
		"right", "tab", // client
		"right", "tab", // supplier
		"tab",          // description
		"Rebar", "tab",
		"backspace", "10", "tab",
		"25",
	)

	view := m.View()
	assert.Contains(t, view, "250.00")
	assert.Contains(t, view, "37.50")
	assert.Contains(t, view, "287.50")

	press(t, m, "ctrl+s")

	require.Len(t, svc.invoiceInputs, 1)
	in := svc.invoiceInputs[0]
	assert.Equal(t, "INV-1", in.InvoiceNumber)
	assert.Equal(t, "c-15", in.ClientID)
	assert.Equal(t, "s-1", in.SupplierID)
	assert.Equal(t, time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC), in.Date)
	require.Len(t, in.Items, 1)
	assert.Equal(t, "Rebar", in.Items[0].MaterialName)
	assert.Equal(t, "pcs", in.Items[0].Unit)
	assert.True(t, decimal.NewFromInt(10).Equal(in.Items[0].Quantity))

	assert.Equal(t, "Invoices", m.Active())
	assert.Contains(t, m.View(), "Invoice INV-1 created, total with markup 287.50")
}

func TestCreateInvoicePickerLogsRejectedSelection(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	m := New(context.Background(), Deps{
		Service: newFakeService(),
		Log:     zap.New(core),
		Money:   pricing.MoneyFormat{Locale: "en"},
		Clock:   clock.NewFakeClock(time.Date(2024, 5, 2, 15, 30, 0, 0, time.UTC)),
	})

	press(t, m, "5")
	screen := m.screens[screenCreateInvoice].(*createInvoiceScreen)
	require.NotNil(t, screen.ctrl)

	// A client missing from the draft's reference list cannot be picked.
	screen.clients.Data = append(screen.clients.Data, remote.Client{ID: "c-gone", Name: "Gone"})
	press(t, m, "tab", "tab", "right", "right")

	assert.Equal(t, "c-15", screen.ctrl.Snapshot().Draft.ClientID)
	entries := logs.FilterMessage("select client failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "c-gone", entries[0].ContextMap()["client_id"])
}

func TestCreateInvoiceShowsViolationsWithoutCalling(t *testing.T) {
	svc := newFakeService()
	m := newTestModel(t, svc)
	press(t, m, "5", "ctrl+s")

	assert.Empty(t, svc.invoiceInputs)
	view := m.View()
	assert.Contains(t, view, "Invoice number is required")
	assert.Contains(t, view, "Select a client")
	assert.Contains(t, view, "Material name is required")
	assert.Equal(t, "Create Invoice", m.Active())
}

func TestCreateInvoiceFlagsUnparsableQuantity(t *testing.T) {
	svc := newFakeService()
	m := newTestModel(t, svc)
	press(t, m, "5", "tab", "tab", "tab", "tab", "tab", "tab", "x")

	assert.Contains(t, m.View(), "Not a number")
	press(t, m, "ctrl+s")
	assert.Empty(t, svc.invoiceInputs)
	assert.Contains(t, m.View(), "Fix the highlighted fields first")
}

func TestCreateInvoiceFailureKeepsDraft(t *testing.T) {
	svc := newFakeService()
	svc.createInvoiceF = func(remote.CreateInvoiceInput) (remote.CreateInvoiceResult, error) {
		return remote.CreateInvoiceResult{}, &remote.APIError{Status: 409, Message: "invoice number already exists"}
	}
	m := newTestModel(t, svc)
	press(t, m, "5", "INV-1", "tab", "tab", "right", "tab", "right", "tab", "tab", "Rebar", "tab", "tab", "5", "ctrl+s")

	require.Len(t, svc.invoiceInputs, 1)
	assert.Equal(t, "Create Invoice", m.Active())
	assert.Contains(t, m.View(), "Invoice was not created: invoice number already exists")

	screen := m.screens[screenCreateInvoice].(*createInvoiceScreen)
	assert.Equal(t, "INV-1", screen.ctrl.Snapshot().Draft.InvoiceNumber)
}

func TestCreateInvoiceAddAndRemoveItems(t *testing.T) {
	m := newTestModel(t, newFakeService())
	press(t, m, "5", "ctrl+a")

	screen := m.screens[screenCreateInvoice].(*createInvoiceScreen)
	require.Len(t, screen.items, 2)
	assert.Len(t, screen.ctrl.Snapshot().Draft.Items, 2)

	press(t, m, "ctrl+d")
	assert.Len(t, screen.items, 1)
	assert.Len(t, screen.ctrl.Snapshot().Draft.Items, 1)

	// The last row stays.
	press(t, m, "ctrl+d")
	assert.Len(t, screen.items, 1)
}

func TestMalformedInvoicesShowError(t *testing.T) {
	svc := newFakeService()
	svc.fetchErr["invoices"] = fmt.Errorf("%w: invoice 3 has no client", remote.ErrMalformedResponse)
	m := newTestModel(t, svc)
	press(t, m, "4")

	assert.Contains(t, m.View(), "Could not load invoices: the server sent incomplete data")
}

func TestDebtsTabs(t *testing.T) {
	svc := newFakeService()
	acme, steel := svc.clients[0], svc.suppliers[0]
	ref := &remote.InvoiceRef{ID: "101", InvoiceNumber: "INV-1"}
	svc.debts = []remote.Debt{
		{ID: "1", Amount: decimal.RequireFromString("287.5"), DebtType: remote.DebtTypeClient, Client: &acme, Invoice: ref},
		{ID: "2", Amount: decimal.RequireFromString("250"), DebtType: remote.DebtTypeSupplier, Supplier: &steel, Invoice: ref},
	}
	m := newTestModel(t, svc)
	press(t, m, "6")

	view := m.View()
	assert.Contains(t, view, "Acme")
	assert.NotContains(t, view, "Steelworks")
	assert.Contains(t, view, "Outstanding: 287.50")

	press(t, m, "tab")
	view = m.View()
	assert.Contains(t, view, "Steelworks")
	assert.Contains(t, view, "Outstanding: 250.00")
}

func TestWatchForwardsQueryTransitions(t *testing.T) {
	svc := newFakeService()
	svc.fetchErr["clients"] = fmt.Errorf("connection refused")
	m := newTestModel(t, svc)

	var (
		mu   sync.Mutex
		seen []queryStateMsg
	)
	stop := m.Watch(func(msg tea.Msg) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, msg.(queryStateMsg))
	})

	press(t, m, "2")

	mu.Lock()
	got := append([]queryStateMsg(nil), seen...)
	mu.Unlock()
	require.Len(t, got, 2)
	assert.Equal(t, query.StatusLoading, got[0].status)
	assert.Equal(t, query.StatusFailed, got[1].status)

	for _, msg := range got {
		drive(t, m, msg)
	}
	assert.Contains(t, m.View(), "clients unavailable")

	stop()
	press(t, m, "r")
	mu.Lock()
	assert.Len(t, seen, 2)
	mu.Unlock()
}
