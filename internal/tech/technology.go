// Package tech implements the techno-economic benefit-cost engine: per
// cooking technology it discounts investment, running and fuel costs over the
// project horizon and monetizes health, time and carbon benefits, producing
// a net cost per analysis point.
package tech

import (
	"github.com/rotisserie/eris"
)

// Well-known technology names with special fuel-supply or collection
// behavior.
const (
	NameLPG                   = "lpg"
	NameElectricity           = "electricity"
	NameBiogas                = "biogas"
	NameTraditionalBiomass    = "traditional_biomass"
	NameImprovedBiomass       = "improved_biomass"
	NameImprovedBiomassBought = "improved_biomass_purchased"
	NameTraditionalBought     = "purchased_traditional_biomass"
)

// Technology holds the techno-economic parameters of one cooking option.
// Fields are populated one by one from typed configuration records via Set
// and are immutable during analysis.
type Technology struct {
	Name            string
	CarbonIntensity float64 // kg CO2 per MJ of fuel
	EnergyContent   float64 // MJ per fuel unit
	TechLife        int     // years
	InvCost         float64 // USD
	InfraCost       float64 // USD, additional infrastructure
	FuelCost        float64 // USD per fuel unit
	TimeOfCooking   float64 // hours per day
	OMCost          float64 // fraction of investment cost per year
	Efficiency      float64 // ratio, used as a divisor
	PM25            float64 // 24-h kitchen PM2.5 concentration, ug/m3
	StartYear       int
	EndYear         int
}

// Set assigns one configuration parameter by name. Unknown parameters and
// wrong value types are rejected here, at the boundary where configuration
// rows are parsed.
func (t *Technology) Set(param string, value any) error {
	switch param {
	case "name":
		return setString(param, value, &t.Name)
	case "carbon_intensity":
		return setFloat(param, value, &t.CarbonIntensity)
	case "energy_content":
		return setFloat(param, value, &t.EnergyContent)
	case "tech_life":
		return setInt(param, value, &t.TechLife)
	case "inv_cost":
		return setFloat(param, value, &t.InvCost)
	case "infra_cost":
		return setFloat(param, value, &t.InfraCost)
	case "fuel_cost":
		return setFloat(param, value, &t.FuelCost)
	case "time_of_cooking":
		return setFloat(param, value, &t.TimeOfCooking)
	case "om_cost":
		return setFloat(param, value, &t.OMCost)
	case "efficiency":
		return setFloat(param, value, &t.Efficiency)
	case "pm25":
		return setFloat(param, value, &t.PM25)
	case "start_year":
		return setInt(param, value, &t.StartYear)
	case "end_year":
		return setInt(param, value, &t.EndYear)
	}
	return eris.Errorf("tech: unknown technology parameter %q", param)
}

// Validate checks the fields that later serve as divisors. A zero efficiency
// or technology life is a configuration error, caught before any analysis
// runs rather than surfacing as NaN.
func (t *Technology) Validate() error {
	if t.Efficiency <= 0 {
		return eris.Errorf("tech: %s: efficiency must be positive, got %g", t.Name, t.Efficiency)
	}
	if t.TechLife <= 0 {
		return eris.Errorf("tech: %s: tech_life must be positive, got %d", t.Name, t.TechLife)
	}
	if t.EndYear < t.StartYear {
		return eris.Errorf("tech: %s: end_year %d precedes start_year %d", t.Name, t.EndYear, t.StartYear)
	}
	return nil
}

// usesPurchasedFuel reports whether the technology buys its fuel rather than
// collecting it.
func (t *Technology) usesPurchasedFuel() bool {
	switch t.Name {
	case NameElectricity, NameImprovedBiomassBought, NameTraditionalBought, NameLPG:
		return true
	}
	return false
}

// collectsFuel reports whether fuel collection time applies.
func (t *Technology) collectsFuel() bool {
	switch t.Name {
	case NameTraditionalBiomass, NameImprovedBiomass:
		return true
	}
	return false
}

func setFloat(param string, value any, dst *float64) error {
	switch v := value.(type) {
	case float64:
		*dst = v
	case int:
		*dst = float64(v)
	default:
		return eris.Errorf("tech: parameter %q wants a numeric value, got %T", param, value)
	}
	return nil
}

func setInt(param string, value any, dst *int) error {
	v, ok := value.(int)
	if !ok {
		return eris.Errorf("tech: parameter %q wants an int value, got %T", param, value)
	}
	*dst = v
	return nil
}

func setString(param string, value any, dst *string) error {
	v, ok := value.(string)
	if !ok {
		return eris.Errorf("tech: parameter %q wants a string value, got %T", param, value)
	}
	*dst = v
	return nil
}
