package console

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/smallbiznis/tradeledger/internal/draft"
	"github.com/smallbiznis/tradeledger/internal/pricing"
	"github.com/smallbiznis/tradeledger/internal/query"
	"github.com/smallbiznis/tradeledger/internal/remote"
	"go.uber.org/zap"
)

// Focus slots before the line item rows.
const (
	slotNumber = iota
	slotDate
	slotClient
	slotSupplier
	slotDescription
	headerSlots
)

// Focus slots inside one line item row.
const (
	itemMaterial = iota
	itemQuantity
	itemPrice
	itemUnit
	itemSlots
)

type itemInputs struct {
	material textinput.Model
	quantity textinput.Model
	price    textinput.Model
}

func newItemInputs() itemInputs {
	in := itemInputs{
		material: newInput("Material", 20),
		quantity: newInput("1", 8),
		price:    newInput("0.00", 10),
	}
	in.quantity.SetValue("1")
	return in
}

type createInvoiceScreen struct {
	env *env

	clients   query.Result[[]remote.Client]
	suppliers query.Result[[]remote.Supplier]
	ctrl      *draft.Controller

	number      textinput.Model
	date        textinput.Model
	description textinput.Model
	items       []itemInputs

	clientIdx   int
	supplierIdx int
	focus       int

	// inputErrs holds text that could not be applied to the draft.
	inputErrs map[string]string
	notice    string
	pending   bool
}

func newCreateInvoiceScreen(e *env) *createInvoiceScreen {
	return &createInvoiceScreen{
		env:         e,
		number:      newInput("INV-0001", 20),
		date:        newInput(draft.DateLayout, 12),
		description: newInput("Optional", 40),
		clientIdx:   -1,
		supplierIdx: -1,
		inputErrs:   map[string]string{},
	}
}

func (s *createInvoiceScreen) init() tea.Cmd {
	q, ctx := s.env.queries, s.env.ctx
	return tea.Batch(q.loadClients(ctx), q.loadSuppliers(ctx))
}

func (s *createInvoiceScreen) capturing() bool { return s.ctrl != nil }

func (s *createInvoiceScreen) update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case clientsLoadedMsg:
		if s.ctrl == nil {
			s.clients = msg.result
			s.start()
		}
	case suppliersLoadedMsg:
		if s.ctrl == nil {
			s.suppliers = msg.result
			s.start()
		}
	case invoiceSubmittedMsg:
		return s.finishSubmit(msg)
	case tea.KeyMsg:
		if s.ctrl == nil {
			if key.Matches(msg, keys.Back) {
				return navigate(screenInvoices, "")
			}
			return nil
		}
		return s.updateForm(msg)
	}
	return nil
}

// start builds the draft once both reference lists are in.
func (s *createInvoiceScreen) start() {
	if !s.clients.Ready() || !s.suppliers.Ready() {
		return
	}
	s.ctrl = draft.New(s.env.service, draft.Reference{
		Clients:   s.clients.Data,
		Suppliers: s.suppliers.Data,
	},
		draft.WithLogger(s.env.log),
		draft.WithUnits(s.env.units),
		draft.WithClock(s.env.clock),
	)
	snap := s.ctrl.Snapshot()
	s.date.SetValue(snap.Draft.Date.Format(draft.DateLayout))
	s.items = []itemInputs{newItemInputs()}
	s.setFocus(slotNumber)
}

func (s *createInvoiceScreen) slotCount() int {
	return headerSlots + itemSlots*len(s.items)
}

func (s *createInvoiceScreen) input(slot int) *textinput.Model {
	switch slot {
	case slotNumber:
		return &s.number
	case slotDate:
		return &s.date
	case slotDescription:
		return &s.description
	case slotClient, slotSupplier:
		return nil
	}
	row, col := (slot-headerSlots)/itemSlots, (slot-headerSlots)%itemSlots
	switch col {
	case itemMaterial:
		return &s.items[row].material
	case itemQuantity:
		return &s.items[row].quantity
	case itemPrice:
		return &s.items[row].price
	}
	return nil
}

func (s *createInvoiceScreen) setFocus(slot int) {
	if in := s.input(s.focus); in != nil {
		in.Blur()
	}
	n := s.slotCount()
	s.focus = (slot%n + n) % n
	if in := s.input(s.focus); in != nil {
		in.Focus()
	}
}

// focusedRow returns the line item row holding focus, or -1 in the header.
func (s *createInvoiceScreen) focusedRow() int {
	if s.focus < headerSlots {
		return -1
	}
	return (s.focus - headerSlots) / itemSlots
}

func (s *createInvoiceScreen) updateForm(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, keys.Back):
		if s.pending {
			return nil
		}
		return navigate(screenInvoices, "")
	case key.Matches(msg, keys.Submit):
		return s.submit()
	case s.pending:
		return nil
	case key.Matches(msg, keys.AddItem):
		if err := s.ctrl.AddLineItem(); err != nil {
			return nil
		}
		s.items = append(s.items, newItemInputs())
		s.setFocus(headerSlots + itemSlots*(len(s.items)-1))
		return nil
	case key.Matches(msg, keys.DropItem):
		s.removeFocusedItem()
		return nil
	case msg.Type == tea.KeyTab, msg.Type == tea.KeyEnter, msg.Type == tea.KeyDown:
		s.setFocus(s.focus + 1)
		return nil
	case msg.Type == tea.KeyShiftTab, msg.Type == tea.KeyUp:
		s.setFocus(s.focus - 1)
		return nil
	}

	if s.isPicker() {
		switch {
		case key.Matches(msg, keys.Left):
			s.cycle(-1)
		case key.Matches(msg, keys.Right), msg.String() == " ":
			s.cycle(1)
		}
		return nil
	}

	in := s.input(s.focus)
	if in == nil {
		return nil
	}
	var cmd tea.Cmd
	*in, cmd = in.Update(msg)
	s.apply(s.focus, in.Value())
	return cmd
}

func (s *createInvoiceScreen) isPicker() bool {
	if s.focus == slotClient || s.focus == slotSupplier {
		return true
	}
	return s.focus >= headerSlots && (s.focus-headerSlots)%itemSlots == itemUnit
}

// cycle moves a picker through its options. Client and supplier pickers
// include "none" at index -1.
func (s *createInvoiceScreen) cycle(delta int) {
	wrap := func(idx, n int) int {
		// Options run from -1 (none) to n-1.
		idx += delta
		if idx < -1 {
			idx = n - 1
		}
		if idx >= n {
			idx = -1
		}
		return idx
	}

	switch s.focus {
	case slotClient:
		s.clientIdx = wrap(s.clientIdx, len(s.clients.Data))
		id := ""
		if s.clientIdx >= 0 {
			id = s.clients.Data[s.clientIdx].ID
		}
		if err := s.ctrl.SelectClient(id); err != nil {
			s.env.log.Debug("select client failed", zap.String("client_id", id), zap.Error(err))
		}
	case slotSupplier:
		s.supplierIdx = wrap(s.supplierIdx, len(s.suppliers.Data))
		id := ""
		if s.supplierIdx >= 0 {
			id = s.suppliers.Data[s.supplierIdx].ID
		}
		if err := s.ctrl.SelectSupplier(id); err != nil {
			s.env.log.Debug("select supplier failed", zap.String("supplier_id", id), zap.Error(err))
		}
	default:
		row := s.focusedRow()
		units := s.ctrl.Units()
		current := s.ctrl.Snapshot().Draft.Items[row].Unit
		idx := 0
		for i, u := range units {
			if u == current {
				idx = i
			}
		}
		idx = (idx + delta + len(units)) % len(units)
		if err := s.ctrl.UpdateLineItem(row, draft.FieldUnit, units[idx]); err != nil {
			s.env.log.Debug("select unit failed", zap.Int("row", row), zap.String("unit", units[idx]), zap.Error(err))
		}
	}
}

// apply pushes edited text into the draft. Text that does not parse stays in
// the input and is flagged next to it.
func (s *createInvoiceScreen) apply(slot int, value string) {
	var (
		field string
		err   error
	)
	switch slot {
	case slotNumber:
		field, err = "invoice_number", s.ctrl.SetInvoiceNumber(value)
	case slotDate:
		field, err = "date", s.ctrl.SetDate(value)
	case slotDescription:
		field, err = "description", s.ctrl.SetDescription(value)
	default:
		row, col := (slot-headerSlots)/itemSlots, (slot-headerSlots)%itemSlots
		f := map[int]draft.Field{
			itemMaterial: draft.FieldMaterialName,
			itemQuantity: draft.FieldQuantity,
			itemPrice:    draft.FieldUnitPrice,
		}[col]
		field, err = draft.ItemField(row, f), s.ctrl.UpdateLineItem(row, f, value)
	}

	switch {
	case err == nil:
		delete(s.inputErrs, field)
	case errors.Is(err, draft.ErrInvalidDate):
		s.inputErrs[field] = "Use YYYY-MM-DD"
	case errors.Is(err, draft.ErrInvalidNumber):
		s.inputErrs[field] = "Not a number"
	}
}

func (s *createInvoiceScreen) removeFocusedItem() {
	row := s.focusedRow()
	if row < 0 || !s.ctrl.CanRemove() {
		return
	}
	if err := s.ctrl.RemoveLineItem(row); err != nil {
		return
	}
	if in := s.input(s.focus); in != nil {
		in.Blur()
	}
	s.items = slices.Delete(s.items, row, row+1)

	// Item errors are keyed by position; rebuild them for the rows that moved.
	shifted := map[string]string{}
	for field, msg := range s.inputErrs {
		var idx int
		var name string
		if n, _ := fmt.Sscanf(field, "items[%d].%s", &idx, &name); n == 2 {
			switch {
			case idx == row:
				continue
			case idx > row:
				field = draft.ItemField(idx-1, draft.Field(name))
			}
		}
		shifted[field] = msg
	}
	s.inputErrs = shifted
	s.focus = min(s.focus, s.slotCount()-1)
	if in := s.input(s.focus); in != nil {
		in.Focus()
	}
}

func (s *createInvoiceScreen) submit() tea.Cmd {
	if s.pending || !s.ctrl.Snapshot().CanSubmit() {
		return nil
	}
	if len(s.inputErrs) > 0 {
		s.notice = "Fix the highlighted fields first"
		return nil
	}
	s.notice = ""

	// An invalid draft never reaches the network, so validation runs here on
	// the UI loop and the violations show up at once.
	if !s.ctrl.Validate().Empty() {
		_, _ = s.ctrl.Submit(s.env.ctx)
		return nil
	}

	s.pending = true
	ctrl, ctx := s.ctrl, s.env.ctx
	return func() tea.Msg {
		result, err := ctrl.Submit(ctx)
		return invoiceSubmittedMsg{result: result, err: err}
	}
}

func (s *createInvoiceScreen) finishSubmit(msg invoiceSubmittedMsg) tea.Cmd {
	s.pending = false
	switch {
	case msg.err == nil:
	case errors.Is(msg.err, draft.ErrSubmitInProgress), errors.Is(msg.err, draft.ErrAlreadySubmitted):
		return nil
	default:
		// The controller keeps the message; the draft stays for a retry.
		return nil
	}

	inv := msg.result.Invoice
	s.env.log.Info("invoice created",
		zap.String("invoice_id", inv.ID),
		zap.String("invoice_number", inv.InvoiceNumber),
	)
	status := fmt.Sprintf("Invoice %s created, total with markup %s",
		inv.InvoiceNumber, pricing.FormatMoney(inv.TotalWithMarkup, s.env.money))
	return navigate(screenInvoices, status)
}

func (s *createInvoiceScreen) view() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Create Invoice") + "\n\n")

	if s.ctrl == nil {
		switch {
		case s.clients.Status == query.StatusFailed:
			b.WriteString(errorStyle.Render("  "+loadError("clients", s.clients.Err)) + "\n")
		case s.suppliers.Status == query.StatusFailed:
			b.WriteString(errorStyle.Render("  "+loadError("suppliers", s.suppliers.Err)) + "\n")
		default:
			b.WriteString(subtitleStyle.Render("  Loading clients and suppliers…") + "\n")
		}
		b.WriteString("\n" + helpStyle.Render("  esc: back"))
		return b.String()
	}

	snap := s.ctrl.Snapshot()
	money := s.env.money

	if snap.Error != "" {
		b.WriteString(errorStyle.Render("  "+snap.Error) + "\n\n")
	}
	if s.notice != "" {
		b.WriteString(errorStyle.Render("  "+s.notice) + "\n\n")
	}

	s.writeField(&b, slotNumber, "Invoice number", s.number.View(), "invoice_number", snap.Violations)
	s.writeField(&b, slotDate, "Date", s.date.View(), "date", snap.Violations)
	s.writeField(&b, slotClient, "Client", s.clientLabel(), "client_id", snap.Violations)
	s.writeField(&b, slotSupplier, "Supplier", s.supplierLabel(), "supplier_id", snap.Violations)
	s.writeField(&b, slotDescription, "Description", s.description.View(), "description", snap.Violations)

	b.WriteString("\n" + subtitleStyle.Render(row([]int{3, 20, 8, 10, 6, 14}, "#", "Material", "Qty", "Price", "Unit", "Line total")) + "\n")
	for i, in := range s.items {
		item := snap.Draft.Items[i]
		unit := item.Unit
		if s.focus == headerSlots+itemSlots*i+itemUnit {
			unit = selectedStyle.Render("‹" + unit + "›")
		}
		b.WriteString(row([]int{3, 20, 8, 10, 6, 14},
			fmt.Sprintf("%d", i+1),
			in.material.View(),
			in.quantity.View(),
			in.price.View(),
			unit,
			pricing.FormatMoney(item.Total(), money),
		) + "\n")
		for _, f := range []draft.Field{draft.FieldMaterialName, draft.FieldQuantity, draft.FieldUnitPrice, draft.FieldUnit} {
			name := draft.ItemField(i, f)
			if msg, ok := s.inputErrs[name]; ok {
				b.WriteString(errorStyle.Render("     "+msg) + "\n")
			} else if msg, ok := snap.Violations[name]; ok {
				b.WriteString(errorStyle.Render("     "+msg) + "\n")
			}
		}
	}

	b.WriteString("\n")
	quote := snap.Quote
	b.WriteString("  Subtotal:          " + pricing.FormatMoney(quote.Subtotal, money) + "\n")
	if quote.HasMarkup {
		b.WriteString("  Markup " + pricing.FormatPercent(quote.MarkupPercentage) + ":" +
			strings.Repeat(" ", max(1, 11-len(pricing.FormatPercent(quote.MarkupPercentage)))) +
			pricing.FormatMoney(quote.MarkupAmount, money) + "\n")
		b.WriteString(totalStyle.Render("  Total with markup: "+pricing.FormatMoney(quote.GrandTotal, money)) + "\n")
	} else {
		b.WriteString(totalStyle.Render("  Total:             "+pricing.FormatMoney(quote.GrandTotal, money)) + "\n")
	}

	b.WriteString("\n")
	if s.pending || snap.State == draft.StateSubmitting {
		b.WriteString(subtitleStyle.Render("  Saving invoice…") + "\n")
	} else {
		hint := "  ctrl+s: create invoice  ctrl+a: add item  esc: cancel"
		if snap.CanRemove {
			hint += "  ctrl+d: remove item"
		}
		b.WriteString(helpStyle.Render(hint) + "\n")
	}
	return b.String()
}

func (s *createInvoiceScreen) writeField(b *strings.Builder, slot int, label, value, field string, violations draft.Violations) {
	label = fmt.Sprintf("%-16s", label)
	if s.focus == slot {
		label = selectedStyle.Render(label)
	}
	b.WriteString("  " + label + value + "\n")
	if msg, ok := s.inputErrs[field]; ok {
		b.WriteString(errorStyle.Render("                    "+msg) + "\n")
	} else if msg, ok := violations[field]; ok {
		b.WriteString(errorStyle.Render("                    "+msg) + "\n")
	}
}

func (s *createInvoiceScreen) clientLabel() string {
	label := "none"
	if s.clientIdx >= 0 {
		c := s.clients.Data[s.clientIdx]
		label = fmt.Sprintf("%s (markup %s)", c.Name, pricing.FormatPercent(c.MarkupPercentage))
	}
	return s.pickerLabel(slotClient, label)
}

func (s *createInvoiceScreen) supplierLabel() string {
	label := "none"
	if s.supplierIdx >= 0 {
		label = s.suppliers.Data[s.supplierIdx].Name
	}
	return s.pickerLabel(slotSupplier, label)
}

func (s *createInvoiceScreen) pickerLabel(slot int, label string) string {
	if s.focus == slot {
		return selectedStyle.Render("‹ " + label + " ›")
	}
	return label
}
