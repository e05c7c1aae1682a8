package crm

import (
	"math/big"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var germanPrinter = message.NewPrinter(language.German)

// Quote is the price of a maintenance contract. A three-year contract costs
// two annual prices spread over three years, so the unit price is kept as an
// exact fraction.
type Quote struct {
	Tier      Tier
	Duration  Duration
	Frequency Frequency
	unit      *big.Rat
}

// NewQuote prices tier for the given term.
func NewQuote(tier Tier, duration Duration, frequency Frequency) Quote {
	annual := big.NewRat(tier.AnnualPrice(), 1)
	unit := new(big.Rat).Set(annual)
	if duration == ThreeYears {
		unit.Mul(annual, big.NewRat(2, 3))
	}
	return Quote{Tier: tier, Duration: duration, Frequency: frequency, unit: unit}
}

// Unit is the exact yearly unit price.
func (q Quote) Unit() *big.Rat {
	return new(big.Rat).Set(q.unit)
}

// UnitFloat is the float64 nearest to the exact unit price, as sent on the
// wire.
func (q Quote) UnitFloat() float64 {
	f, _ := q.unit.Float64()
	return f
}

// UnitCents is the unit price rounded half up to cents.
func (q Quote) UnitCents() int64 {
	cents := new(big.Rat).Mul(q.unit, big.NewRat(100, 1))
	// floor(cents + 1/2) for a non-negative rational.
	num := new(big.Int).Mul(cents.Num(), big.NewInt(2))
	num.Add(num, cents.Denom())
	den := new(big.Int).Mul(cents.Denom(), big.NewInt(2))
	return new(big.Int).Quo(num, den).Int64()
}

// TermTotal is the exact amount due over the whole term.
func (q Quote) TermTotal() *big.Rat {
	return new(big.Rat).Mul(q.unit, big.NewRat(q.Duration.Years(), 1))
}

// DisplayUnit formats the rounded unit price the German way, e.g. "232,67 €".
func (q Quote) DisplayUnit() string {
	return formatEUR(q.UnitCents())
}

// DisplayTermTotal formats the term total, e.g. "698,00 €".
func (q Quote) DisplayTermTotal() string {
	total := new(big.Rat).Mul(q.TermTotal(), big.NewRat(100, 1))
	cents := new(big.Int).Quo(total.Num(), total.Denom())
	return formatEUR(cents.Int64())
}

func formatEUR(cents int64) string {
	return germanPrinter.Sprintf("%.2f €", float64(cents)/100)
}

// Note is the order note for the subscription.
func (q Quote) Note() string {
	return "WARMANO Wartungsvertrag - " + q.Tier.Name() +
		"\nLaufzeit: " + q.Duration.Label() +
		"\nZahlweise: " + q.Frequency.Label() +
		"\nPreis pro Jahr: " + q.DisplayUnit() +
		"\nGesamt: " + q.DisplayTermTotal()
}
