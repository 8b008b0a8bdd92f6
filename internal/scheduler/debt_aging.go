package scheduler

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	debtdomain "github.com/smallbiznis/tradeledger/internal/debt/domain"
	"go.uber.org/zap"
)

// OverdueSummary is the unpaid position past its due date for one debt type.
type OverdueSummary struct {
	DebtType      debtdomain.DebtType
	Count         int64
	Amount        decimal.Decimal
	OldestDueDate time.Time
}

// DebtAgingJob summarises unpaid debts whose due date is before today and
// reports them per debt type. Both types are always reported so gauges drop
// back to zero once debts are settled.
func (s *Scheduler) DebtAgingJob(ctx context.Context) ([]OverdueSummary, error) {
	now := s.clock.Now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	var debts []debtdomain.Debt
	err := s.db.WithContext(ctx).
		Select("id", "debt_type", "amount", "due_date").
		Where("is_paid = ? AND due_date IS NOT NULL AND due_date < ?", false, today).
		Find(&debts).Error
	if err != nil {
		return nil, err
	}

	summaries := []OverdueSummary{
		{DebtType: debtdomain.DebtTypeClient, Amount: decimal.Zero},
		{DebtType: debtdomain.DebtTypeSupplier, Amount: decimal.Zero},
	}
	for _, debt := range debts {
		if debt.DueDate == nil {
			continue
		}
		for i := range summaries {
			if summaries[i].DebtType != debt.DebtType {
				continue
			}
			summaries[i].Count++
			summaries[i].Amount = summaries[i].Amount.Add(debt.Amount)
			due := debt.DueDate.UTC()
			if summaries[i].OldestDueDate.IsZero() || due.Before(summaries[i].OldestDueDate) {
				summaries[i].OldestDueDate = due
			}
		}
	}

	for _, summary := range summaries {
		amount, _ := summary.Amount.Float64()
		s.metrics.RecordOverdueDebts(ctx, string(summary.DebtType), summary.Count, amount)
		if summary.Count == 0 {
			continue
		}
		s.log.Info("overdue debts",
			zap.String("debt_type", string(summary.DebtType)),
			zap.Int64("count", summary.Count),
			zap.String("amount", summary.Amount.StringFixed(2)),
			zap.Time("oldest_due_date", summary.OldestDueDate),
		)
	}
	return summaries, nil
}
