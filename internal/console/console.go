// Package console is the terminal front end. It talks to the HTTP API
// through remote.Service and keeps server reads in shared queries.
package console

import (
	"context"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/smallbiznis/tradeledger/internal/clock"
	"github.com/smallbiznis/tradeledger/internal/pricing"
	"github.com/smallbiznis/tradeledger/internal/query"
	"github.com/smallbiznis/tradeledger/internal/remote"
	"go.uber.org/zap"
)

// Deps are the collaborators the console needs.
type Deps struct {
	Service remote.Service
	Log     *zap.Logger
	Money   pricing.MoneyFormat
	Units   []string
	Clock   clock.Clock
}

// env is shared by every screen.
type env struct {
	ctx     context.Context
	service remote.Service
	queries *queries
	log     *zap.Logger
	money   pricing.MoneyFormat
	units   []string
	clock   clock.Clock
}

type screen interface {
	init() tea.Cmd
	update(msg tea.Msg) tea.Cmd
	view() string
	// capturing reports whether keys belong to a text field, so the global
	// shortcuts stay out of the way.
	capturing() bool
}

// Model is the root bubbletea model.
type Model struct {
	env     *env
	active  screenID
	screens map[screenID]screen
	status  string
	loading map[string]query.Status
	failed  map[string]error
	help    help.Model
	width   int
}

func New(ctx context.Context, deps Deps) *Model {
	log := deps.Log
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("console")
	clk := deps.Clock
	if clk == nil {
		clk = clock.New()
	}
	money := deps.Money
	if money == (pricing.MoneyFormat{}) {
		money = pricing.DefaultMoneyFormat()
	}

	svc := deps.Service
	e := &env{
		ctx:     ctx,
		service: svc,
		log:     log,
		money:   money,
		units:   deps.Units,
		clock:   clk,
		queries: &queries{
			clients:   query.New("clients", svc.FetchClients, log, query.WithClock(clk)),
			suppliers: query.New("suppliers", svc.FetchSuppliers, log, query.WithClock(clk)),
			invoices:  query.New("invoices", svc.FetchInvoices, log, query.WithClock(clk)),
			debts:     query.New("debts", svc.FetchDebts, log, query.WithClock(clk)),
		},
	}

	m := &Model{
		env:     e,
		active:  screenDashboard,
		loading: map[string]query.Status{},
		failed:  map[string]error{},
		help:    help.New(),
		screens: map[screenID]screen{
			screenDashboard:     newDashboardScreen(e),
			screenClients:       newClientsScreen(e),
			screenSuppliers:     newSuppliersScreen(e),
			screenInvoices:      newInvoicesScreen(e),
			screenCreateInvoice: newCreateInvoiceScreen(e),
			screenDebts:         newDebtsScreen(e),
		},
	}
	return m
}

// Watch forwards every query transition to send, usually tea.Program.Send.
// The returned func stops forwarding.
func (m *Model) Watch(send func(tea.Msg)) func() {
	q := m.env.queries
	forward := func(name string) func(query.Status, error) {
		return func(status query.Status, err error) {
			send(queryStateMsg{name: name, status: status, err: err})
		}
	}
	clients, suppliers, invoices, debts := forward("clients"), forward("suppliers"), forward("invoices"), forward("debts")

	stops := []func(){
		q.clients.Subscribe(func(r query.Result[[]remote.Client]) { clients(r.Status, r.Err) }),
		q.suppliers.Subscribe(func(r query.Result[[]remote.Supplier]) { suppliers(r.Status, r.Err) }),
		q.invoices.Subscribe(func(r query.Result[[]remote.Invoice]) { invoices(r.Status, r.Err) }),
		q.debts.Subscribe(func(r query.Result[[]remote.Debt]) { debts(r.Status, r.Err) }),
	}
	return func() {
		for _, stop := range stops {
			stop()
		}
	}
}

func (m *Model) Init() tea.Cmd {
	return m.screens[m.active].init()
}

// Active reports the screen on display.
func (m *Model) Active() string {
	return m.active.String()
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		return m, nil

	case navigateMsg:
		m.status = msg.status
		return m, m.switchTo(msg.to)

	case queryStateMsg:
		switch msg.status {
		case query.StatusLoading:
			m.loading[msg.name] = msg.status
		case query.StatusFailed:
			delete(m.loading, msg.name)
			m.failed[msg.name] = msg.err
		default:
			delete(m.loading, msg.name)
			delete(m.failed, msg.name)
		}
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if !m.screens[m.active].capturing() {
			switch s := msg.String(); s {
			case "q":
				return m, tea.Quit
			case "?":
				m.help.ShowAll = !m.help.ShowAll
				return m, nil
			case "1", "2", "3", "4", "5", "6":
				m.status = ""
				return m, m.switchTo(screenID(s[0] - '1'))
			}
		}
	}

	return m, m.screens[m.active].update(msg)
}

// switchTo shows a screen and refreshes its data. Create Invoice always
// starts from a fresh draft.
func (m *Model) switchTo(id screenID) tea.Cmd {
	if id == screenCreateInvoice {
		m.screens[id] = newCreateInvoiceScreen(m.env)
	}
	m.active = id
	return m.screens[id].init()
}

func (m *Model) View() string {
	var b strings.Builder
	b.WriteString(tabs(screenTitles, int(m.active)) + "\n\n")
	b.WriteString(m.screens[m.active].view())
	b.WriteString("\n\n")

	if m.status != "" {
		b.WriteString(successStyle.Render(m.status) + "\n")
	}
	if line := m.queryLine(); line != "" {
		b.WriteString(subtitleStyle.Render(line) + "\n")
	}

	if m.screens[m.active].capturing() {
		b.WriteString(m.help.View(formKeyMap{}))
	} else {
		b.WriteString(m.help.View(keys))
	}
	return b.String()
}

func (m *Model) queryLine() string {
	var parts []string
	for name := range m.loading {
		parts = append(parts, "loading "+name)
	}
	for name := range m.failed {
		parts = append(parts, name+" unavailable")
	}
	sort.Strings(parts)
	return strings.Join(parts, " · ")
}
