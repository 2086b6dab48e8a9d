package scenario

import (
	"github.com/rotisserie/eris"

	"github.com/sells-group/stoveplan/internal/calibrate"
	"github.com/sells-group/stoveplan/internal/tech"
)

// HealthParams assembles the health benefit inputs from the global
// parameter set. Disease parameters follow the alri/copd/ihd/lc suffix
// convention of the input files.
func HealthParams(s Specs) (tech.HealthParams, error) {
	p := tech.HealthParams{
		DiscountRateSocial: s.FloatOr("discount_rate_social", 0.03),
		VSL:                s.FloatOr("vsl", 0),
	}
	var err error
	if p.HHSizeRural, err = s.Float("hh_size_rural"); err != nil {
		return p, err
	}
	if p.HHSizeUrban, err = s.Float("hh_size_urban"); err != nil {
		return p, err
	}
	if p.SFU, err = s.Float("sfu"); err != nil {
		return p, err
	}
	p.COI = diseaseValues(s, "coi_")
	p.Incidence = diseaseValues(s, "incidence_")
	p.MortalityRate = diseaseValues(s, "mortality_")
	return p, nil
}

func diseaseValues(s Specs, prefix string) tech.DiseaseValues {
	return tech.DiseaseValues{
		ALRI: s.FloatOr(prefix+"alri", 0),
		COPD: s.FloatOr(prefix+"copd", 0),
		IHD:  s.FloatOr(prefix+"ihd", 0),
		LC:   s.FloatOr(prefix+"lc", 0),
	}
}

// EngineInputs assembles the scenario-level techno-economic inputs. The
// per-point fields (urban flag, transport factor, collection time) are
// filled later by the engine.
func EngineInputs(s Specs) (tech.Inputs, error) {
	health, err := HealthParams(s)
	if err != nil {
		return tech.Inputs{}, err
	}
	in := tech.Inputs{
		TransportFactor: 1,
		ValueOfTime:     s.FloatOr("value_of_time", 0),
		Health:          health,
	}
	if in.DiscountRateTech, err = s.Float("discount_rate"); err != nil {
		return in, err
	}
	if in.MealsPerYear, err = s.Float("meals_per_year"); err != nil {
		return in, err
	}
	return in, nil
}

// CalibrationSpec assembles the population calibration targets. The cell
// area comes from the adopted base grid, not the parameter file.
func CalibrationSpec(s Specs, cellAreaKM2 float64) (calibrate.Spec, error) {
	if cellAreaKM2 <= 0 {
		return calibrate.Spec{}, eris.New("scenario: cell area must be positive")
	}
	spec := calibrate.Spec{CellAreaKM2: cellAreaKM2}
	var err error
	if spec.PopulationStartYear, err = s.Float("population_start_year"); err != nil {
		return spec, err
	}
	if spec.UrbanShareTarget, err = s.Float("urban_share"); err != nil {
		return spec, err
	}
	return spec, nil
}
