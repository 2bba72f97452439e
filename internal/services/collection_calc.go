package services

import (
	"sort"
	"time"

	"github.com/Zaad1704/HNV1-sub001/internal/models"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const historyMonths = 12

// periodInputs is everything a snapshot is derived from.
type periodInputs struct {
	Key        models.PeriodKey
	Now        time.Time
	GraceDays  int
	Tenants    []models.Tenant
	Properties []models.Property
	// Payments holds settled payments of the trailing history window ending at Key.
	Payments []models.Payment
}

func round2(f float64) float64 {
	return decimal.NewFromFloat(f).Round(2).InexactFloat64()
}

// percentOf returns part/whole*100 rounded to 2 dp, 0 when whole is 0.
func percentOf(part, whole decimal.Decimal) float64 {
	if whole.IsZero() {
		return 0
	}
	return part.Div(whole).Mul(decimal.NewFromInt(100)).Round(2).InexactFloat64()
}

func dec(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

// dueDateOf is the tenant's due date within k.
func dueDateOf(t *models.Tenant, k models.PeriodKey) time.Time {
	return time.Date(k.Year, time.Month(k.Month), t.DueDay(), 0, 0, 0, 0, time.UTC)
}

// daysBetween returns whole days from a to b, never negative.
func daysBetween(a, b time.Time) int {
	d := int(b.Sub(a) / (24 * time.Hour))
	if d < 0 {
		return 0
	}
	return d
}

// buildRows derives one row per tenant, ordered like in.Tenants.
func buildRows(in periodInputs) []models.TenantCollectionRow {
	propertyNames := make(map[primitive.ObjectID]string, len(in.Properties))
	for _, p := range in.Properties {
		propertyNames[p.ID] = p.Name
	}

	byTenant := make(map[primitive.ObjectID][]models.Payment)
	for _, p := range in.Payments {
		if p.Settled() {
			byTenant[p.TenantID] = append(byTenant[p.TenantID], p)
		}
	}

	rows := make([]models.TenantCollectionRow, 0, len(in.Tenants))
	for i := range in.Tenants {
		t := &in.Tenants[i]
		rows = append(rows, buildRow(t, propertyNames[t.PropertyID], byTenant[t.ID], in))
	}
	return rows
}

func buildRow(t *models.Tenant, propertyName string, payments []models.Payment, in periodInputs) models.TenantCollectionRow {
	due := dueDateOf(t, in.Key)
	row := models.TenantCollectionRow{
		TenantID:   t.ID,
		Name:       t.Name,
		PropertyID: t.PropertyID,
		Property:   propertyName,
		Unit:       t.Unit,
		RentDue:    round2(t.RentAmount),
		DueDate:    due,
		Contact:    models.TenantContact{Email: t.Email, Phone: t.Phone},
		Notes:      t.Notes,
	}

	paid := decimal.Zero
	var paidAt *time.Time
	for i := range payments {
		p := &payments[i]
		if p.EffectivePeriod() != in.Key {
			continue
		}
		paid = paid.Add(dec(p.Amount))
		if paidAt == nil || p.PaymentDate.After(*paidAt) {
			d := p.PaymentDate.UTC()
			paidAt = &d
			row.PaymentMethod = p.PaymentMethod
		}
	}

	switch {
	case paidAt != nil:
		row.Status = models.CollectionStatusPaid
		row.AmountPaid = paid.Round(2).InexactFloat64()
		row.PaidAt = paidAt
		row.DaysLate = daysBetween(due, *paidAt)
	case due.Before(in.Now):
		row.Status = models.CollectionStatusOverdue
		row.DaysLate = daysBetween(due, in.Now)
		if row.DaysLate > in.GraceDays {
			row.LateFees = round2(t.LateFee)
		}
	default:
		row.Status = models.CollectionStatusPending
	}

	row.TotalOwed = dec(row.RentDue).Add(dec(row.LateFees)).Round(2).InexactFloat64()
	row.PaymentHistory = paymentHistory(t, payments, in)
	return row
}

// paymentHistory summarizes the trailing window ending at in.Key. A month
// counts as missed once its due date has passed without a settled payment,
// and never before the lease (or tenant record) started.
func paymentHistory(t *models.Tenant, payments []models.Payment, in periodInputs) models.PaymentHistory {
	var h models.PaymentHistory
	paidMonths := make(map[models.PeriodKey]bool)
	totalLate := 0
	for i := range payments {
		p := &payments[i]
		k := p.EffectivePeriod()
		paidMonths[k] = true
		totalLate += daysBetween(dueDateOf(t, k), p.PaymentDate.UTC())
		if h.LastPayment == nil || p.PaymentDate.After(*h.LastPayment) {
			d := p.PaymentDate.UTC()
			h.LastPayment = &d
		}
	}
	if len(payments) > 0 {
		h.AverageDaysLate = round2(float64(totalLate) / float64(len(payments)))
	}

	var since models.PeriodKey
	switch {
	case t.LeaseStartDate != nil:
		since = models.PeriodKeyOf(*t.LeaseStartDate)
	case !t.CreatedAt.IsZero():
		since = models.PeriodKeyOf(t.CreatedAt)
	}
	for k := in.Key.AddMonths(-(historyMonths - 1)); !in.Key.Before(k); k = k.AddMonths(1) {
		if k.Before(since) || paidMonths[k] || !dueDateOf(t, k).Before(in.Now) {
			continue
		}
		h.MissedPayments++
	}
	return h
}

// summarize computes the period totals from rows. Collected rent is capped at
// rentDue per row so overpayments never push the rate above 100.
func summarize(rows []models.TenantCollectionRow, properties []models.Property) models.CollectionSummary {
	units := 0
	for _, p := range properties {
		units += p.NumberOfUnits
	}
	if units == 0 {
		units = len(rows)
	}

	expected, collected := decimal.Zero, decimal.Zero
	var onTime, late, pending struct {
		count  int
		amount decimal.Decimal
	}
	for _, r := range rows {
		rent := dec(r.RentDue)
		expected = expected.Add(rent)
		if r.Status != models.CollectionStatusPaid {
			pending.count++
			pending.amount = pending.amount.Add(dec(r.TotalOwed))
			continue
		}
		got := decimal.Min(dec(r.AmountPaid), rent)
		collected = collected.Add(got)
		if r.DaysLate > 0 {
			late.count++
			late.amount = late.amount.Add(got)
		} else {
			onTime.count++
			onTime.amount = onTime.amount.Add(got)
		}
	}

	expected, collected = expected.Round(2), collected.Round(2)
	return models.CollectionSummary{
		TotalUnits:      units,
		OccupiedUnits:   len(rows),
		ExpectedRent:    expected.InexactFloat64(),
		CollectedRent:   collected.InexactFloat64(),
		OutstandingRent: expected.Sub(collected).InexactFloat64(),
		CollectionRate:  percentOf(collected, expected),
		Breakdown: models.CollectionBreakdown{
			OnTime:  models.AmountCount{Count: onTime.count, Amount: onTime.amount.Round(2).InexactFloat64()},
			Late:    models.AmountCount{Count: late.count, Amount: late.amount.Round(2).InexactFloat64()},
			Pending: models.AmountCount{Count: pending.count, Amount: pending.amount.Round(2).InexactFloat64()},
		},
	}
}

// sortRows orders rows by property then tenant name for stable snapshots.
func sortRows(rows []models.TenantCollectionRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Property != rows[j].Property {
			return rows[i].Property < rows[j].Property
		}
		return rows[i].Name < rows[j].Name
	})
}
