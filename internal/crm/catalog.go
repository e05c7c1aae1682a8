package crm

import "fmt"

// Tier is a maintenance package tier.
type Tier string

const (
	TierBasic    Tier = "basic"
	TierStandard Tier = "standard"
	TierPremium  Tier = "premium"
)

// ParseTier accepts the tier names plus the web form's legacy "basis".
func ParseTier(s string) (Tier, error) {
	switch s {
	case "basic", "basis":
		return TierBasic, nil
	case "standard":
		return TierStandard, nil
	case "premium":
		return TierPremium, nil
	}
	return "", fmt.Errorf("unknown package tier %q", s)
}

// AnnualPrice is the list price per year in whole euros.
func (t Tier) AnnualPrice() int64 {
	switch t {
	case TierBasic:
		return 249
	case TierStandard:
		return 349
	case TierPremium:
		return 499
	}
	return 0
}

// Name is the German display name.
func (t Tier) Name() string {
	switch t {
	case TierBasic:
		return "Basis"
	case TierStandard:
		return "Standard"
	case TierPremium:
		return "Premium"
	}
	return string(t)
}

// Label is the name with its yearly price, as shown on opportunities.
func (t Tier) Label() string {
	return fmt.Sprintf("%s (%d€/Jahr)", t.Name(), t.AnnualPrice())
}

// ProductName is the Odoo product that bills this tier.
func (t Tier) ProductName() string {
	return "WARMANO " + t.Name() + " Wartungspaket"
}

// Duration is the contract term.
type Duration string

const (
	OneYear    Duration = "1year"
	ThreeYears Duration = "3years"
)

// ParseDuration defaults to OneYear for an empty string.
func ParseDuration(s string) (Duration, error) {
	switch s {
	case "", "1year":
		return OneYear, nil
	case "3years":
		return ThreeYears, nil
	}
	return "", fmt.Errorf("unknown contract duration %q", s)
}

func (d Duration) Years() int64 {
	if d == ThreeYears {
		return 3
	}
	return 1
}

func (d Duration) Label() string {
	if d == ThreeYears {
		return "3 Jahre (1. Jahr gratis)"
	}
	return "1 Jahr"
}

// Frequency is how often the customer pays.
type Frequency string

const (
	Yearly  Frequency = "yearly"
	Monthly Frequency = "monthly"
)

// ParseFrequency defaults to Yearly for an empty string.
func ParseFrequency(s string) (Frequency, error) {
	switch s {
	case "", "yearly":
		return Yearly, nil
	case "monthly":
		return Monthly, nil
	}
	return "", fmt.Errorf("unknown payment frequency %q", s)
}

func (f Frequency) Label() string {
	if f == Monthly {
		return "Monatlich"
	}
	return "Jährlich"
}
