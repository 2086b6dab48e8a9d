package tech

import (
	"math"
)

// The four disease endpoints tracked by the health model: acute lower
// respiratory infection, chronic obstructive pulmonary disease, ischemic
// heart disease and lung cancer. Dose-response parameters and cohort weights
// are the literature values used by the global burden-of-disease household
// air pollution studies.

// RelativeRisks holds the relative risk per disease endpoint at a given
// PM2.5 exposure.
type RelativeRisks struct {
	ALRI float64
	COPD float64
	IHD  float64
	LC   float64
}

// rrCurve is a saturating exponential dose-response curve with a threshold
// concentration below which the relative risk is exactly 1.
type rrCurve struct {
	threshold float64
	coeff     float64
	rate      float64
	power     float64
}

var (
	curveALRI = rrCurve{threshold: 7.298, coeff: 2.383, rate: 0.004, power: 1.193}
	curveCOPD = rrCurve{threshold: 7.337, coeff: 22.485, rate: 0.001, power: 0.694}
	curveIHD  = rrCurve{threshold: 7.505, coeff: 2.538, rate: 0.081, power: 0.466}
	curveLC   = rrCurve{threshold: 7.345, coeff: 152.496, rate: 0.000167, power: 0.76}
)

func (c rrCurve) at(pm25 float64) float64 {
	if pm25 < c.threshold {
		return 1
	}
	return 1 + c.coeff*(1-math.Exp(-c.rate*math.Pow(pm25-c.threshold, c.power)))
}

// RelativeRisks evaluates the four dose-response curves at the technology's
// PM2.5 concentration. A technology with no registered PM2.5 value (zero)
// sits below every threshold and maps to RR 1 for all endpoints.
func (t *Technology) RelativeRisks() RelativeRisks {
	return RelativeRisks{
		ALRI: curveALRI.at(t.PM25),
		COPD: curveCOPD.at(t.PM25),
		IHD:  curveIHD.at(t.PM25),
		LC:   curveLC.at(t.PM25),
	}
}

// PAF returns the population-attributable fraction for a relative risk given
// the solid-fuel-user fraction sfu.
func PAF(rr, sfu float64) float64 {
	return sfu * (rr - 1) / (sfu*(rr-1) + 1)
}

// DiseaseValues carries one number per disease endpoint, used for incidence
// and mortality rates and for costs of illness.
type DiseaseValues struct {
	ALRI float64
	COPD float64
	IHD  float64
	LC   float64
}

// HealthParams holds the socio-economic inputs of the health benefit model.
type HealthParams struct {
	DiscountRateSocial float64
	HHSizeRural        float64
	HHSizeUrban        float64
	SFU                float64 // solid fuel user fraction
	COI                DiseaseValues
	Incidence          DiseaseValues
	MortalityRate      DiseaseValues
	VSL                float64
}

// Cohort weights distributing cases across the 5 age/severity cohorts.
var (
	cohortALRI = [5]float64{0.7, 0.1, 0.07, 0.07, 0.06}
	cohortCOPD = [5]float64{0.3, 0.2, 0.17, 0.17, 0.16}
	cohortLC   = [5]float64{0.2, 0.1, 0.24, 0.23, 0.23}
	cohortIHD  = [5]float64{0.2, 0.1, 0.24, 0.23, 0.23}
)

// Morbidity monetizes the avoided illness cases for the technology over the
// analysis horizon. It returns the rural and urban values per household.
func Morbidity(t *Technology, p HealthParams) (rural, urban float64) {
	return healthBenefit(t, p, p.COI, p.Incidence)
}

// Mortality monetizes the avoided deaths for the technology over the
// analysis horizon, valued at the value of statistical life. It returns the
// rural and urban values per household.
func Mortality(t *Technology, p HealthParams) (rural, urban float64) {
	vsl := DiseaseValues{ALRI: p.VSL, COPD: p.VSL, IHD: p.VSL, LC: p.VSL}
	return healthBenefit(t, p, vsl, p.MortalityRate)
}

// healthBenefit is the shared cases-to-money pipeline: relative risk →
// attributable fraction → expected cases per household → cohort split →
// discount → monetize.
func healthBenefit(t *Technology, p HealthParams, money, rate DiseaseValues) (rural, urban float64) {
	rr := t.RelativeRisks()

	pafALRI := PAF(rr.ALRI, p.SFU)
	pafCOPD := PAF(rr.COPD, p.SFU)
	pafIHD := PAF(rr.IHD, p.SFU)
	pafLC := PAF(rr.LC, p.SFU)

	casesU := DiseaseValues{
		ALRI: p.HHSizeUrban * pafALRI * rate.ALRI,
		COPD: p.HHSizeUrban * pafCOPD * rate.COPD,
		IHD:  p.HHSizeUrban * pafIHD * rate.IHD,
		LC:   p.HHSizeUrban * pafLC * rate.LC,
	}
	casesR := DiseaseValues{
		ALRI: p.HHSizeRural * pafALRI * rate.ALRI,
		COPD: p.HHSizeRural * pafCOPD * rate.COPD,
		IHD:  p.HHSizeRural * pafIHD * rate.IHD,
		LC:   p.HHSizeRural * pafLC * rate.LC,
	}

	discount := math.Pow(1+p.DiscountRateSocial, float64(t.EndYear-t.StartYear))

	for i := 0; i < 5; i++ {
		cohort := func(cases DiseaseValues) float64 {
			return (cohortALRI[i]*money.ALRI*cases.ALRI +
				cohortCOPD[i]*money.COPD*cases.COPD +
				cohortLC[i]*money.LC*cases.LC +
				cohortIHD[i]*money.IHD*cases.IHD) / discount
		}
		urban += cohort(casesU)
		rural += cohort(casesR)
	}
	return rural, urban
}
