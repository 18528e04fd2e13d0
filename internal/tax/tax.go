// Package tax computes Indian GST line amounts for an invoice base
// amount. The calculator never rounds; callers round once when the
// values are persisted or displayed.
package tax

// Breakdown is the tax split for a base amount.
type Breakdown struct {
	CGST  float64
	SGST  float64
	IGST  float64
	Total float64
}

// Calculate applies the three GST rates (percentages) to amount and
// returns the line amounts plus the tax-inclusive total.
func Calculate(amount, cgstPct, sgstPct, igstPct float64) Breakdown {
	b := Breakdown{
		CGST: amount * cgstPct / 100,
		SGST: amount * sgstPct / 100,
		IGST: amount * igstPct / 100,
	}
	b.Total = amount + b.CGST + b.SGST + b.IGST
	return b
}
