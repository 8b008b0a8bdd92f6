package draft

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/tradeledger/internal/clock"
	"github.com/smallbiznis/tradeledger/internal/config"
	"github.com/smallbiznis/tradeledger/internal/pricing"
	"github.com/smallbiznis/tradeledger/internal/remote"
	"go.uber.org/zap"
)

// InvoiceCreator is the part of the data service a draft submits to.
type InvoiceCreator interface {
	CreateInvoice(ctx context.Context, input remote.CreateInvoiceInput) (remote.CreateInvoiceResult, error)
}

// Reference is the client and supplier snapshot taken when the form opened.
// It is not refreshed while the draft lives.
type Reference struct {
	Clients   []remote.Client
	Suppliers []remote.Supplier
}

// Snapshot is a read-only copy of the controller state.
type Snapshot struct {
	State      State
	Draft      Draft
	Quote      pricing.Quote
	Client     *remote.Client
	Violations Violations
	Error      string
	Result     *remote.CreateInvoiceResult
	CanRemove  bool
}

// CanSubmit reports whether the submit action should be enabled.
func (s Snapshot) CanSubmit() bool {
	return s.State == StateEditing || s.State == StateFailed
}

type Option func(*Controller)

func WithLogger(log *zap.Logger) Option {
	return func(c *Controller) {
		if log != nil {
			c.log = log
		}
	}
}

// WithUnits restricts line item units. The first unit is the default for new
// rows.
func WithUnits(units []string) Option {
	return func(c *Controller) {
		if len(units) > 0 {
			c.units = append([]string(nil), units...)
		}
	}
}

// WithClock sets the clock used to prefill the invoice date.
func WithClock(clk clock.Clock) Option {
	return func(c *Controller) {
		if clk != nil {
			c.clock = clk
		}
	}
}

// Controller owns one invoice draft. It is safe for use from the UI loop and
// the goroutine running the submit call.
type Controller struct {
	creator   InvoiceCreator
	clients   map[string]remote.Client
	suppliers map[string]remote.Supplier
	units     []string
	clock     clock.Clock
	log       *zap.Logger

	mu          sync.Mutex
	state       State
	draft       Draft
	violations  Violations
	failure     string
	result      *remote.CreateInvoiceResult
	subscribers map[int]func(Snapshot)
	nextSubID   int
}

func New(creator InvoiceCreator, ref Reference, opts ...Option) *Controller {
	c := &Controller{
		creator:     creator,
		clients:     make(map[string]remote.Client, len(ref.Clients)),
		suppliers:   make(map[string]remote.Supplier, len(ref.Suppliers)),
		units:       config.DefaultBillingConfig().Units,
		clock:       clock.New(),
		log:         zap.NewNop(),
		subscribers: make(map[int]func(Snapshot)),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.Named("draft")

	for _, client := range ref.Clients {
		c.clients[client.ID] = client
	}
	for _, supplier := range ref.Suppliers {
		c.suppliers[supplier.ID] = supplier
	}

	now := c.clock.Now()
	c.draft = Draft{
		Date:  time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC),
		Items: []LineItem{c.newLineItem()},
	}
	return c
}

func (c *Controller) Units() []string {
	return append([]string(nil), c.units...)
}

func (c *Controller) newLineItem() LineItem {
	return LineItem{
		Quantity:  decimal.NewFromInt(1),
		UnitPrice: decimal.Zero,
		Unit:      c.units[0],
	}
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Quote recomputes totals for the current draft.
func (c *Controller) Quote() pricing.Quote {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.quoteLocked()
}

func (c *Controller) CanRemove() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.draft.Items) > 1
}

// Validate reports what would block a submit without changing state.
func (c *Controller) Validate() Violations {
	c.mu.Lock()
	defer c.mu.Unlock()
	return validate(c.draft, c.units)
}

// Subscribe registers fn for every later state change.
func (c *Controller) Subscribe(fn func(Snapshot)) func() {
	c.mu.Lock()
	id := c.nextSubID
	c.nextSubID++
	c.subscribers[id] = fn
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subscribers, id)
			c.mu.Unlock()
		})
	}
}

func (c *Controller) AddLineItem() error {
	return c.edit(func(d *Draft) error {
		d.Items = append(d.Items, c.newLineItem())
		return nil
	})
}

// RemoveLineItem drops the row at index. Removing the last remaining row is
// a no-op.
func (c *Controller) RemoveLineItem(index int) error {
	return c.edit(func(d *Draft) error {
		if index < 0 || index >= len(d.Items) {
			return ErrIndexOutOfRange
		}
		if len(d.Items) == 1 {
			return nil
		}
		d.Items = append(d.Items[:index:index], d.Items[index+1:]...)
		return nil
	})
}

// UpdateLineItem replaces one field of one row from its text form. A value
// that does not parse leaves the draft unchanged.
func (c *Controller) UpdateLineItem(index int, field Field, value string) error {
	return c.edit(func(d *Draft) error {
		if index < 0 || index >= len(d.Items) {
			return ErrIndexOutOfRange
		}
		item := d.Items[index]
		switch field {
		case FieldMaterialName:
			item.MaterialName = value
		case FieldQuantity, FieldUnitPrice:
			number, err := parseNumber(value)
			if err != nil {
				return err
			}
			if field == FieldQuantity {
				item.Quantity = number
			} else {
				item.UnitPrice = number
			}
		case FieldUnit:
			unit := strings.TrimSpace(value)
			if !slices.Contains(c.units, unit) {
				return ErrInvalidUnit
			}
			item.Unit = unit
		default:
			return ErrUnknownField
		}
		d.Items[index] = item
		return nil
	})
}

// SelectClient picks the buyer; its markup drives the quote. An empty id
// clears the selection.
func (c *Controller) SelectClient(id string) error {
	return c.edit(func(d *Draft) error {
		if id != "" {
			if _, ok := c.clients[id]; !ok {
				return ErrUnknownClient
			}
		}
		d.ClientID = id
		return nil
	})
}

func (c *Controller) SelectSupplier(id string) error {
	return c.edit(func(d *Draft) error {
		if id != "" {
			if _, ok := c.suppliers[id]; !ok {
				return ErrUnknownSupplier
			}
		}
		d.SupplierID = id
		return nil
	})
}

func (c *Controller) SetInvoiceNumber(number string) error {
	return c.edit(func(d *Draft) error {
		d.InvoiceNumber = number
		return nil
	})
}

func (c *Controller) SetDate(date string) error {
	return c.edit(func(d *Draft) error {
		parsed, err := ParseDate(strings.TrimSpace(date))
		if err != nil {
			return err
		}
		d.Date = parsed
		return nil
	})
}

func (c *Controller) SetDescription(description string) error {
	return c.edit(func(d *Draft) error {
		d.Description = description
		return nil
	})
}

// Submit validates the draft and sends it. Validation failures return a
// *ValidationError without any network call. A remote failure moves the
// draft to Failed with its content intact; nothing is retried.
func (c *Controller) Submit(ctx context.Context) (remote.CreateInvoiceResult, error) {
	c.mu.Lock()
	switch c.state {
	case StateSubmitting:
		c.mu.Unlock()
		return remote.CreateInvoiceResult{}, ErrSubmitInProgress
	case StateSucceeded:
		c.mu.Unlock()
		return remote.CreateInvoiceResult{}, ErrAlreadySubmitted
	}

	violations := validate(c.draft, c.units)
	if !violations.Empty() {
		c.violations = violations
		c.state = StateEditing
		c.failure = ""
		snap := c.snapshotLocked()
		subs := c.subscribersLocked()
		c.mu.Unlock()
		notify(subs, snap)
		return remote.CreateInvoiceResult{}, &ValidationError{Violations: violations}
	}

	input := c.inputLocked()
	c.violations = nil
	c.failure = ""
	c.state = StateSubmitting
	snap := c.snapshotLocked()
	subs := c.subscribersLocked()
	c.mu.Unlock()
	notify(subs, snap)

	result, err := c.creator.CreateInvoice(ctx, input)

	c.mu.Lock()
	if err != nil {
		c.state = StateFailed
		c.failure = failureMessage(err)
		c.log.Warn("invoice submission failed",
			zap.String("invoice_number", input.InvoiceNumber),
			zap.Error(err),
		)
	} else {
		c.state = StateSucceeded
		c.result = &result
		c.log.Info("invoice submitted",
			zap.String("invoice_number", result.Invoice.InvoiceNumber),
			zap.String("invoice_id", result.Invoice.ID),
		)
	}
	snap = c.snapshotLocked()
	subs = c.subscribersLocked()
	c.mu.Unlock()
	notify(subs, snap)

	if err != nil {
		return remote.CreateInvoiceResult{}, err
	}
	return result, nil
}

func (c *Controller) edit(apply func(*Draft) error) error {
	c.mu.Lock()
	switch c.state {
	case StateSubmitting, StateSucceeded:
		c.mu.Unlock()
		return ErrNotEditable
	}

	next := c.draft.clone()
	if err := apply(&next); err != nil {
		c.mu.Unlock()
		return err
	}
	c.draft = next
	if c.state == StateFailed {
		c.state = StateEditing
		c.failure = ""
	}
	if !c.violations.Empty() {
		c.violations = validate(c.draft, c.units)
	}
	snap := c.snapshotLocked()
	subs := c.subscribersLocked()
	c.mu.Unlock()

	notify(subs, snap)
	return nil
}

func (c *Controller) quoteLocked() pricing.Quote {
	var pct *decimal.Decimal
	if client, ok := c.clients[c.draft.ClientID]; ok {
		markup := client.MarkupPercentage
		pct = &markup
	}
	return pricing.Compute(c.draft.lines(), pct)
}

func (c *Controller) snapshotLocked() Snapshot {
	snap := Snapshot{
		State:     c.state,
		Draft:     c.draft.clone(),
		Quote:     c.quoteLocked(),
		Error:     c.failure,
		Result:    c.result,
		CanRemove: len(c.draft.Items) > 1,
	}
	if client, ok := c.clients[c.draft.ClientID]; ok {
		snap.Client = &client
	}
	if len(c.violations) > 0 {
		snap.Violations = make(Violations, len(c.violations))
		for k, v := range c.violations {
			snap.Violations[k] = v
		}
	}
	return snap
}

func (c *Controller) subscribersLocked() []func(Snapshot) {
	subs := make([]func(Snapshot), 0, len(c.subscribers))
	for _, fn := range c.subscribers {
		subs = append(subs, fn)
	}
	return subs
}

func (c *Controller) inputLocked() remote.CreateInvoiceInput {
	d := c.draft
	input := remote.CreateInvoiceInput{
		InvoiceNumber: strings.TrimSpace(d.InvoiceNumber),
		Date:          d.Date,
		ClientID:      d.ClientID,
		SupplierID:    d.SupplierID,
		Description:   strings.TrimSpace(d.Description),
		Items:         make([]remote.CreateInvoiceItemInput, 0, len(d.Items)),
	}
	for _, item := range d.Items {
		input.Items = append(input.Items, remote.CreateInvoiceItemInput{
			MaterialName: strings.TrimSpace(item.MaterialName),
			Quantity:     item.Quantity,
			UnitPrice:    item.UnitPrice,
			Unit:         item.Unit,
		})
	}
	return input
}

func notify(subs []func(Snapshot), snap Snapshot) {
	for _, fn := range subs {
		fn(snap)
	}
}

func parseNumber(value string) (decimal.Decimal, error) {
	value = strings.TrimSpace(strings.ReplaceAll(value, ",", "."))
	if value == "" {
		return decimal.Zero, nil
	}
	number, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Decimal{}, ErrInvalidNumber
	}
	return number, nil
}

func failureMessage(err error) string {
	var apiErr *remote.APIError
	switch {
	case errors.As(err, &apiErr):
		return "Invoice was not created: " + apiErr.Error()
	case errors.Is(err, remote.ErrMalformedResponse):
		return "Invoice status is unknown: the server sent an unexpected response"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return "Invoice was not created: the request timed out"
	default:
		return "Invoice was not created: " + err.Error()
	}
}
