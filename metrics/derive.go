/*
derive.go - Pure reducers from upstream rows to derived numbers

PURPOSE:
  Folds row sets pulled by the source reader into the derived fields of a
  weekly record. Everything here is pure: rows in, numbers out, no I/O.
  All currency math uses decimal.Decimal; float accumulation over thousands
  of payment rows drifts.

DERIVATIONS:
  Revenue              sum of net amounts across POS + both ticketing channels
  AttractionCost       abs sum of attraction-class ledger amounts
  AttractionCostPercent attraction cost / revenue * 100 (0 when revenue is 0)
  LaborCost            abs sum of payroll-class ledger amounts
  Headcount            POS samples + admission units + attended check-ins
  AverageTicket        revenue / headcount (0 when headcount is 0)

KNOWN OVERCOUNT:
  Headcount is additive across channels. A customer who opens a POS tab and
  also bought a ticket is counted twice. Deduplication would need a shared
  customer identity across channels, which the upstream datasets do not
  carry; the additive behavior matches how historical records were computed.

SEE ALSO:
  - classify.go: category matching rules
  - engine/recalc.go: pulls the rows and applies these reducers
*/
package metrics

import (
	"github.com/shopspring/decimal"

	"github.com/zykor/performance-engine/upstream"
)

var hundred = decimal.NewFromInt(100)

// Revenue sums the net amount of every channel. A channel with no rows
// contributes zero; that is a quiet week, not an error.
func Revenue(payments []upstream.Payment, primary, secondary []upstream.TicketOrder) decimal.Decimal {
	total := decimal.Zero
	for _, p := range payments {
		total = total.Add(p.NetAmount)
	}
	for _, o := range primary {
		total = total.Add(o.NetAmount)
	}
	for _, o := range secondary {
		total = total.Add(o.NetAmount)
	}
	return total
}

// AttractionCost sums the absolute value of attraction-class ledger entries.
// Ledger amounts are signed (outflows are negative); the cost is the
// magnitude.
func AttractionCost(entries []upstream.LedgerEntry, c Classifier) decimal.Decimal {
	total := decimal.Zero
	for _, e := range entries {
		if c.IsAttraction(e.Category) {
			total = total.Add(e.Amount.Abs())
		}
	}
	return total
}

// AttractionCostPercent expresses attraction cost as a percentage of
// revenue, zero when there is no revenue to divide by.
func AttractionCostPercent(cost, revenue decimal.Decimal) decimal.Decimal {
	if revenue.IsZero() {
		return decimal.Zero
	}
	return cost.Div(revenue).Mul(hundred)
}

// LaborCost sums the absolute value of payroll-class ledger entries.
func LaborCost(entries []upstream.LedgerEntry, c Classifier) decimal.Decimal {
	total := decimal.Zero
	for _, e := range entries {
		if c.IsPayroll(e.Category) {
			total = total.Add(e.Amount.Abs())
		}
	}
	return total
}

// Headcount adds the three demand channels: POS headcount samples,
// admission units sold on the primary ticketing platform, and attended
// check-ins on the secondary platform. See the overcount note above.
func Headcount(samples []upstream.HeadcountSample, primaryOrders []upstream.TicketOrder, checkIns []upstream.CheckIn, c Classifier) int {
	total := 0
	for _, s := range samples {
		total += s.Headcount
	}
	for _, o := range primaryOrders {
		if c.IsAdmissionProduct(o.ProductName) {
			total += o.Quantity
		}
	}
	for _, ci := range checkIns {
		if ci.Attended {
			total++
		}
	}
	return total
}

// AverageTicket is revenue per customer, zero when no customers were served.
func AverageTicket(revenue decimal.Decimal, headcount int) decimal.Decimal {
	if headcount == 0 {
		return decimal.Zero
	}
	return revenue.Div(decimal.NewFromInt(int64(headcount)))
}
