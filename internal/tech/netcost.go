package tech

// socialCostOfCarbon is the USD value per metric ton of CO2 used to monetize
// avoided emissions.
const socialCostOfCarbon = 5.0

// baselineCollectionTime is the fixed component of biomass collection time
// in hours per trip.
const baselineCollectionTime = 2.2

// biogasCollectionTime is the fixed feedstock collection time for biogas in
// hours.
const biogasCollectionTime = 2.0

// Inputs bundles the per-point and per-scenario values the net-cost
// computation needs alongside the technology itself.
type Inputs struct {
	DiscountRateTech float64
	MealsPerYear     float64

	// TransportFactor scales LPG fuel cost with road travel time, via
	// TransportCostFactor.
	TransportFactor float64

	// CollectionTravelTime is the one-way walking travel time in hours to
	// the nearest fuel source, sampled from the walking-friction distance
	// surface. Only biomass technologies use it.
	CollectionTravelTime float64

	ValueOfTime float64 // USD per hour
	Health      HealthParams
	Urban       bool
}

// TransportCostFactor converts a road travel time in hours into the fuel
// price multiplier applied to LPG: unit cost at the depot plus a per-hour
// haulage surcharge.
func TransportCostFactor(travelTimeHours, surchargePerHour float64) float64 {
	return 1 + surchargePerHour*travelTimeHours
}

// TimeSaved values the cooking plus fuel-collection time of the technology.
// Biogas carries a fixed feedstock collection time; biomass stoves walk to
// the nearest fuel source and back.
func TimeSaved(t *Technology, valueOfTime, collectionTravelTime float64) float64 {
	var collection float64
	switch {
	case t.Name == NameBiogas:
		collection = biogasCollectionTime
	case t.collectsFuel():
		collection = 2*collectionTravelTime + baselineCollectionTime
	}
	return (collection + t.TimeOfCooking) * valueOfTime
}

// CarbonBenefit monetizes the avoided carbon emissions per unit of useful
// cooking energy at the social cost of carbon.
func CarbonBenefit(t *Technology) (float64, error) {
	if err := t.Validate(); err != nil {
		return 0, err
	}
	if t.EnergyContent == 0 {
		return 0, nil
	}
	return socialCostOfCarbon * (mealEnergy / t.Efficiency) / t.EnergyContent *
		(t.CarbonIntensity * t.EnergyContent / t.Efficiency), nil
}

// Benefit is the monetized benefit of the technology: morbidity plus
// mortality avoided, time saved and carbon avoided.
func Benefit(t *Technology, in Inputs) (float64, error) {
	if err := t.Validate(); err != nil {
		return 0, err
	}
	morbR, morbU := Morbidity(t, in.Health)
	mortR, mortU := Mortality(t, in.Health)

	health := morbR + mortR
	if in.Urban {
		health = morbU + mortU
	}

	carbon, err := CarbonBenefit(t)
	if err != nil {
		return 0, err
	}
	return health + TimeSaved(t, in.ValueOfTime, in.CollectionTravelTime) + carbon, nil
}

// NetCost is the final ranking figure for the technology at one analysis
// point: levelized discounted cost minus monetized benefit.
func NetCost(t *Technology, in Inputs) (float64, error) {
	cost, err := Cost(in.DiscountRateTech, t, in.MealsPerYear, in.TransportFactor)
	if err != nil {
		return 0, err
	}
	benefit, err := Benefit(t, in)
	if err != nil {
		return 0, err
	}
	return cost - benefit, nil
}
