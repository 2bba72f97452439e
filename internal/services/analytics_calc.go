package services

import (
	"sort"

	"github.com/Zaad1704/HNV1-sub001/internal/models"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// aggregateOptions carries the tunables of the analytics aggregation.
type aggregateOptions struct {
	Policy              models.RatePolicy
	ProblemMinAvgLate   float64
	ProblemTenantsLimit int
}

// periodTotals sums the summaries of periods.
type periodTotals struct {
	expected, collected, outstanding decimal.Decimal
	rate                             float64
}

func totalsOf(periods []models.RentCollectionPeriod, policy models.RatePolicy) periodTotals {
	var t periodTotals
	rates := decimal.Zero
	for _, p := range periods {
		t.expected = t.expected.Add(dec(p.Summary.ExpectedRent))
		t.collected = t.collected.Add(dec(p.Summary.CollectedRent))
		t.outstanding = t.outstanding.Add(dec(p.Summary.OutstandingRent))
		rates = rates.Add(dec(p.Summary.CollectionRate))
	}
	if len(periods) == 0 {
		return t
	}
	if policy == models.RatePolicyWeighted {
		t.rate = percentOf(t.collected, t.expected)
	} else {
		t.rate = rates.Div(decimal.NewFromInt(int64(len(periods)))).Round(2).InexactFloat64()
	}
	return t
}

// aggregate derives analytics from the periods of the selected window and the
// window immediately before it. It returns nil when current is empty.
func aggregate(current, previous []models.RentCollectionPeriod, opts aggregateOptions) *models.CollectionAnalytics {
	if len(current) == 0 {
		return nil
	}
	cur := totalsOf(current, opts.Policy)
	prev := totalsOf(previous, opts.Policy)

	var rows []models.TenantCollectionRow
	for _, p := range current {
		rows = append(rows, p.Tenants...)
	}

	return &models.CollectionAnalytics{
		PeriodCount: len(current),
		RatePolicy:  opts.Policy,
		Performance: models.CollectionPerformance{
			CollectionRate:       cur.rate,
			AverageDaysToCollect: averageDaysToCollect(rows),
			TotalExpected:        cur.expected.Round(2).InexactFloat64(),
			TotalCollected:       cur.collected.Round(2).InexactFloat64(),
			TotalOutstanding:     cur.outstanding.Round(2).InexactFloat64(),
			Trends: models.CollectionTrends{
				CollectionRateChange:   round2(cur.rate - prev.rate),
				PreviousCollectionRate: prev.rate,
				CollectedChange:        cur.collected.Sub(prev.collected).Round(2).InexactFloat64(),
				OutstandingChange:      cur.outstanding.Sub(prev.outstanding).Round(2).InexactFloat64(),
			},
		},
		Breakdown: models.AnalyticsBreakdown{
			ByProperty:      byProperty(rows),
			ByPaymentMethod: byPaymentMethod(rows),
			ByTiming:        byTiming(rows),
		},
		ProblemTenants: problemTenants(rows, opts.ProblemMinAvgLate, opts.ProblemTenantsLimit),
	}
}

func averageDaysToCollect(rows []models.TenantCollectionRow) float64 {
	total, n := 0, 0
	for _, r := range rows {
		if r.Status == models.CollectionStatusPaid {
			total += r.DaysLate
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return round2(float64(total) / float64(n))
}

type propertyKey struct {
	id   primitive.ObjectID
	name string // only set for rows without a property id
}

// byProperty groups rows by property id. totalDue sums totalOwed and
// collected sums totalOwed of paid rows.
func byProperty(rows []models.TenantCollectionRow) []models.PropertyCollection {
	type acc struct {
		name           string
		due, collected decimal.Decimal
		rows           int
	}
	groups := make(map[propertyKey]*acc)
	var order []propertyKey
	for _, r := range rows {
		k := propertyKey{id: r.PropertyID}
		if r.PropertyID.IsZero() {
			k.name = r.Property
		}
		a, ok := groups[k]
		if !ok {
			a = &acc{name: r.Property}
			groups[k] = a
			order = append(order, k)
		}
		owed := dec(r.TotalOwed)
		a.due = a.due.Add(owed)
		if r.Status == models.CollectionStatusPaid {
			a.collected = a.collected.Add(owed)
		}
		a.rows++
	}

	out := make([]models.PropertyCollection, 0, len(order))
	for _, k := range order {
		a := groups[k]
		out = append(out, models.PropertyCollection{
			PropertyID:     k.id,
			PropertyName:   a.name,
			TotalDue:       a.due.Round(2).InexactFloat64(),
			Collected:      a.collected.Round(2).InexactFloat64(),
			CollectionRate: percentOf(a.collected, a.due),
			TenantRows:     a.rows,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].PropertyName != out[j].PropertyName {
			return out[i].PropertyName < out[j].PropertyName
		}
		return out[i].PropertyID.Hex() < out[j].PropertyID.Hex()
	})
	return out
}

// methodBucket maps a stored payment method to its reporting channel.
func methodBucket(m models.PaymentMethod) string {
	switch m {
	case models.PaymentMethodOnline, models.PaymentMethodCard, models.PaymentMethodBankTransfer:
		return "online"
	case models.PaymentMethodCheck:
		return "check"
	case models.PaymentMethodCash:
		return "cash"
	default:
		return "other"
	}
}

// byPaymentMethod splits collected rent of paid rows by the method of their
// latest payment.
func byPaymentMethod(rows []models.TenantCollectionRow) models.PaymentMethodBreakdown {
	sums := map[string]decimal.Decimal{}
	total := decimal.Zero
	for _, r := range rows {
		if r.Status != models.CollectionStatusPaid {
			continue
		}
		got := decimal.Min(dec(r.AmountPaid), dec(r.RentDue))
		b := methodBucket(r.PaymentMethod)
		sums[b] = sums[b].Add(got)
		total = total.Add(got)
	}
	share := func(b string) models.AmountShare {
		return models.AmountShare{
			Amount:     sums[b].Round(2).InexactFloat64(),
			Percentage: percentOf(sums[b], total),
		}
	}
	return models.PaymentMethodBreakdown{
		Online: share("online"),
		Check:  share("check"),
		Cash:   share("cash"),
		Other:  share("other"),
	}
}

// byTiming counts paid rows by punctuality. Percentages are over every row in
// range, so unpaid rows dilute them.
func byTiming(rows []models.TenantCollectionRow) models.TimingBreakdown {
	var early, onTime, late int
	for _, r := range rows {
		if r.Status != models.CollectionStatusPaid {
			continue
		}
		if r.DaysLate > 0 {
			late++
			continue
		}
		onTime++
		if r.PaidAt != nil && r.PaidAt.Before(r.DueDate) {
			early++
		}
	}
	total := decimal.NewFromInt(int64(len(rows)))
	share := func(n int) models.CountShare {
		return models.CountShare{Count: n, Percentage: percentOf(decimal.NewFromInt(int64(n)), total)}
	}
	return models.TimingBreakdown{Early: share(early), OnTime: share(onTime), Late: share(late)}
}

// riskFromAverage grades a problem tenant by average lateness.
func riskFromAverage(avg float64) models.RiskScore {
	switch {
	case avg > 15:
		return models.RiskHigh
	case avg > 10:
		return models.RiskMedium
	default:
		return models.RiskLow
	}
}

func problemTenants(rows []models.TenantCollectionRow, minAvgLate float64, limit int) []models.ProblemTenant {
	type acc struct {
		row         models.TenantCollectionRow
		owed        decimal.Decimal
		appearances int
		daysLate    int
		missed      int
	}
	groups := make(map[primitive.ObjectID]*acc)
	var order []primitive.ObjectID
	for _, r := range rows {
		a, ok := groups[r.TenantID]
		if !ok {
			a = &acc{row: r}
			groups[r.TenantID] = a
			order = append(order, r.TenantID)
		}
		a.owed = a.owed.Add(dec(r.TotalOwed))
		a.appearances++
		a.daysLate += r.DaysLate
		if r.Status == models.CollectionStatusOverdue {
			a.missed++
		}
	}

	out := []models.ProblemTenant{}
	for _, id := range order {
		a := groups[id]
		avg := float64(a.daysLate) / float64(a.appearances)
		if avg <= minAvgLate {
			continue
		}
		out = append(out, models.ProblemTenant{
			TenantID:        id,
			Name:            a.row.Name,
			Property:        a.row.Property,
			Unit:            a.row.Unit,
			TotalOwed:       a.owed.Round(2).InexactFloat64(),
			Appearances:     a.appearances,
			AverageDaysLate: round2(avg),
			MissedPayments:  a.missed,
			RiskScore:       riskFromAverage(avg),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].TotalOwed > out[j].TotalOwed })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// propertyPerformance joins live properties with the rows of one period.
func propertyPerformance(properties []models.Property, period *models.RentCollectionPeriod) []models.PropertyPerformance {
	rowsByProperty := make(map[primitive.ObjectID][]models.TenantCollectionRow)
	for _, r := range period.Tenants {
		rowsByProperty[r.PropertyID] = append(rowsByProperty[r.PropertyID], r)
	}

	out := make([]models.PropertyPerformance, 0, len(properties))
	for _, p := range properties {
		rows := rowsByProperty[p.ID]
		expected, collected := decimal.Zero, decimal.Zero
		daysLate := 0
		for _, r := range rows {
			rent := dec(r.RentDue)
			expected = expected.Add(rent)
			if r.Status == models.CollectionStatusPaid {
				collected = collected.Add(decimal.Min(dec(r.AmountPaid), rent))
			}
			daysLate += r.DaysLate
		}
		avgLate := 0.0
		if len(rows) > 0 {
			avgLate = round2(float64(daysLate) / float64(len(rows)))
		}
		expected, collected = expected.Round(2), collected.Round(2)
		out = append(out, models.PropertyPerformance{
			PropertyID:      p.ID,
			Name:            p.Name,
			Address:         p.Address,
			TotalUnits:      p.NumberOfUnits,
			OccupiedUnits:   len(rows),
			ExpectedRent:    expected.InexactFloat64(),
			CollectedRent:   collected.InexactFloat64(),
			OutstandingRent: expected.Sub(collected).InexactFloat64(),
			CollectionRate:  percentOf(collected, expected),
			AverageDaysLate: avgLate,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CollectionRate != out[j].CollectionRate {
			return out[i].CollectionRate > out[j].CollectionRate
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// riskFromPunctuality grades a tenant by late payment rate and lateness.
func riskFromPunctuality(lateRate, avgLate float64) models.RiskScore {
	switch {
	case lateRate > 50 || avgLate > 15:
		return models.RiskHigh
	case lateRate > 25 || avgLate > 7:
		return models.RiskMedium
	default:
		return models.RiskLow
	}
}

// tenantRisk accumulates punctuality per tenant across periods. Every
// appearance counts as a payment and is late when daysLate > 0.
func tenantRisk(periods []models.RentCollectionPeriod) []models.TenantRisk {
	groups := make(map[primitive.ObjectID]*models.TenantRisk)
	owed := make(map[primitive.ObjectID]decimal.Decimal)
	var order []primitive.ObjectID
	for _, p := range periods {
		for _, r := range p.Tenants {
			t, ok := groups[r.TenantID]
			if !ok {
				t = &models.TenantRisk{TenantID: r.TenantID, Name: r.Name, Property: r.Property, Unit: r.Unit}
				groups[r.TenantID] = t
				order = append(order, r.TenantID)
			}
			t.TotalPayments++
			if r.DaysLate > 0 {
				t.LatePayments++
				t.TotalDaysLate += r.DaysLate
			}
			owed[r.TenantID] = owed[r.TenantID].Add(dec(r.TotalOwed))
			if r.PaidAt != nil && (t.LastPaymentDate == nil || r.PaidAt.After(*t.LastPaymentDate)) {
				d := *r.PaidAt
				t.LastPaymentDate = &d
			}
		}
	}

	out := make([]models.TenantRisk, 0, len(order))
	for _, id := range order {
		t := groups[id]
		t.TotalOwed = owed[id].Round(2).InexactFloat64()
		t.LatePaymentRate = percentOf(decimal.NewFromInt(int64(t.LatePayments)), decimal.NewFromInt(int64(t.TotalPayments)))
		if t.LatePayments > 0 {
			t.AverageDaysLate = round2(float64(t.TotalDaysLate) / float64(t.LatePayments))
		}
		t.RiskScore = riskFromPunctuality(t.LatePaymentRate, t.AverageDaysLate)
		out = append(out, *t)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].LatePaymentRate > out[j].LatePaymentRate })
	return out
}
