package tech

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRelativeRisksBelowThreshold(t *testing.T) {
	// The lowest threshold across the four curves is 7.298; anything below
	// it maps to RR 1 on every endpoint.
	tech := Technology{PM25: 5}
	rr := tech.RelativeRisks()
	assert.Equal(t, 1.0, rr.ALRI)
	assert.Equal(t, 1.0, rr.COPD)
	assert.Equal(t, 1.0, rr.IHD)
	assert.Equal(t, 1.0, rr.LC)
}

func TestRelativeRisksIncreaseWithExposure(t *testing.T) {
	low := Technology{PM25: 50}
	high := Technology{PM25: 300}
	rrLow := low.RelativeRisks()
	rrHigh := high.RelativeRisks()
	assert.Greater(t, rrHigh.ALRI, rrLow.ALRI)
	assert.Greater(t, rrHigh.COPD, rrLow.COPD)
	assert.Greater(t, rrHigh.IHD, rrLow.IHD)
	assert.Greater(t, rrHigh.LC, rrLow.LC)
}

func TestRelativeRisksAsymptote(t *testing.T) {
	// Each curve saturates at 1 + coeff as exposure grows without bound.
	tech := Technology{PM25: 1e9}
	rr := tech.RelativeRisks()
	assert.InDelta(t, 1+2.383, rr.ALRI, 1e-6)
	assert.InDelta(t, 1+2.538, rr.IHD, 1e-3)
	assert.LessOrEqual(t, rr.COPD, 1+22.485)
	assert.LessOrEqual(t, rr.LC, 1+152.496)
}

func TestPAF(t *testing.T) {
	assert.Equal(t, 0.0, PAF(1, 0.8))
	assert.Equal(t, 0.0, PAF(2, 0))

	// sfu=1, rr=2: 1*(2-1)/(1*(2-1)+1) = 0.5
	assert.InDelta(t, 0.5, PAF(2, 1), 1e-12)

	// Monotone in both arguments.
	assert.Greater(t, PAF(3, 0.8), PAF(2, 0.8))
	assert.Greater(t, PAF(2, 0.9), PAF(2, 0.5))
	assert.Less(t, PAF(10, 1), 1.0)
}

func testHealthParams() HealthParams {
	return HealthParams{
		DiscountRateSocial: 0.03,
		HHSizeRural:        5,
		HHSizeUrban:        4,
		SFU:                0.85,
		COI:                DiseaseValues{ALRI: 20, COPD: 120, IHD: 180, LC: 220},
		Incidence:          DiseaseValues{ALRI: 0.05, COPD: 0.005, IHD: 0.004, LC: 0.001},
		MortalityRate:      DiseaseValues{ALRI: 0.002, COPD: 0.001, IHD: 0.002, LC: 0.0008},
		VSL:                10000,
	}
}

func TestHealthBenefitsZeroForCleanTechnology(t *testing.T) {
	tech := Technology{Name: "electricity", PM25: 0, StartYear: 2020, EndYear: 2030}
	p := testHealthParams()

	morbR, morbU := Morbidity(&tech, p)
	mortR, mortU := Mortality(&tech, p)
	assert.Zero(t, morbR)
	assert.Zero(t, morbU)
	assert.Zero(t, mortR)
	assert.Zero(t, mortU)
}

func TestHealthBenefitsPositiveForSmokyTechnology(t *testing.T) {
	tech := Technology{Name: "traditional_biomass", PM25: 500, StartYear: 2020, EndYear: 2030}
	p := testHealthParams()

	morbR, morbU := Morbidity(&tech, p)
	mortR, mortU := Mortality(&tech, p)
	assert.Positive(t, morbR)
	assert.Positive(t, morbU)
	assert.Positive(t, mortR)
	assert.Positive(t, mortU)

	// Larger rural households accumulate more cases.
	assert.Greater(t, morbR, morbU)
	assert.Greater(t, mortR, mortU)
}

func TestHealthBenefitDiscounting(t *testing.T) {
	p := testHealthParams()
	short := Technology{Name: "traditional_biomass", PM25: 500, StartYear: 2020, EndYear: 2021}
	long := Technology{Name: "traditional_biomass", PM25: 500, StartYear: 2020, EndYear: 2040}

	shortR, _ := Morbidity(&short, p)
	longR, _ := Morbidity(&long, p)

	// Same annual cases, deeper discounting over the longer horizon.
	ratio := math.Pow(1+p.DiscountRateSocial, 19)
	assert.InDelta(t, shortR/ratio, longR, shortR*1e-9)
}
