package tech

import (
	"math"

	"github.com/rotisserie/eris"
)

// mealEnergy is the useful energy needed to cook one meal, in MJ.
const mealEnergy = 3.64

// DiscountFactors returns the per-year discount factors (1+r)^year for the
// technology's project horizon, plus the horizon length itself. The horizon
// is end_year - start_year, with a floor of one year. Every discounted
// series of a technology uses this same horizon.
func DiscountFactors(rate float64, t *Technology) ([]float64, int) {
	projLife := t.EndYear - t.StartYear
	if projLife < 1 {
		projLife = 1
	}
	factors := make([]float64, projLife)
	for year := 0; year < projLife; year++ {
		factors[year] = math.Pow(1+rate, float64(year))
	}
	return factors, projLife
}

// DiscountedMeals returns the discounted meal-energy demand series: the
// useful energy per year needed for mealsPerYear meals at the technology's
// efficiency, with no demand accruing in the acquisition year.
func DiscountedMeals(mealsPerYear, rate float64, t *Technology) ([]float64, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	factors, projLife := DiscountFactors(rate, t)

	energy := mealsPerYear * mealEnergy / t.Efficiency
	series := make([]float64, projLife)
	for i := range series {
		series[i] = energy / factors[i]
	}
	if projLife > 1 {
		series[0] = 0
	}
	return series, nil
}

// DiscountedInvestments returns the discounted investment series: one
// payment in year zero and one replacement at index tech_life when the
// horizon outlives the asset.
func DiscountedInvestments(rate float64, t *Technology) ([]float64, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	factors, projLife := DiscountFactors(rate, t)

	series := make([]float64, projLife)
	series[0] = t.InvCost
	if projLife > t.TechLife {
		series[t.TechLife] = t.InvCost / factors[t.TechLife]
	}
	return series, nil
}

// DiscountedOM returns the discounted operation-and-maintenance series:
// om_cost as a fraction of the investment per year, zeroed in the
// acquisition year and in the replacement year.
func DiscountedOM(rate float64, t *Technology) ([]float64, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	factors, projLife := DiscountFactors(rate, t)

	om := t.OMCost * t.InvCost
	series := make([]float64, projLife)
	for i := range series {
		series[i] = om / factors[i]
	}
	if projLife > 1 {
		series[0] = 0
		if projLife > t.TechLife {
			series[t.TechLife] = 0
		}
	}
	return series, nil
}

// DiscountedSalvage returns the discounted salvage series: a single credit
// in the final year proportional to the asset's remaining useful life.
func DiscountedSalvage(rate float64, t *Technology) ([]float64, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	factors, projLife := DiscountFactors(rate, t)

	usedLife := projLife
	if projLife > t.TechLife {
		usedLife = projLife - t.TechLife
	}
	series := make([]float64, projLife)
	series[projLife-1] = t.InvCost * (1 - float64(usedLife)/float64(t.TechLife)) / factors[projLife-1]
	return series, nil
}

// DiscountedFuelCost returns the discounted fuel cost series. Purchased
// fuels scale with the discounted meal demand and the efficiency;
// LPG additionally carries the transport cost factor derived from the road
// friction travel-time surface. Collected fuels cost nothing.
func DiscountedFuelCost(rate float64, t *Technology, transportFactor, mealsPerYear float64) ([]float64, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	factors, projLife := DiscountFactors(rate, t)

	series := make([]float64, projLife)
	if !t.usesPurchasedFuel() {
		return series, nil
	}

	meals, err := DiscountedMeals(mealsPerYear, rate, t)
	if err != nil {
		return nil, err
	}
	transport := 1.0
	if t.Name == NameLPG {
		transport = transportFactor
	}
	for i := range series {
		series[i] = t.FuelCost * meals[i] * transport / t.Efficiency / factors[i]
	}
	return series, nil
}

// Cost is the levelized discounted cost of cooking with the technology:
// (investment + O&M + fuel - salvage) per unit of discounted meal energy.
func Cost(rate float64, t *Technology, mealsPerYear, transportFactor float64) (float64, error) {
	inv, err := DiscountedInvestments(rate, t)
	if err != nil {
		return 0, err
	}
	om, err := DiscountedOM(rate, t)
	if err != nil {
		return 0, err
	}
	fuel, err := DiscountedFuelCost(rate, t, transportFactor, mealsPerYear)
	if err != nil {
		return 0, err
	}
	salvage, err := DiscountedSalvage(rate, t)
	if err != nil {
		return 0, err
	}
	meals, err := DiscountedMeals(mealsPerYear, rate, t)
	if err != nil {
		return 0, err
	}

	demand := sum(meals)
	if demand == 0 {
		return 0, eris.Errorf("tech: %s: discounted meal demand is zero", t.Name)
	}
	return (sum(inv) + sum(om) + sum(fuel) - sum(salvage)) / demand, nil
}

func sum(vs []float64) float64 {
	var s float64
	for _, v := range vs {
		s += v
	}
	return s
}
