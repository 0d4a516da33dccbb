// Package bp holds the blood pressure rules shared by the record store and
// the follow-up workflow.
package bp

// Category is the stored classification of a systolic/diastolic pair.
type Category string

const (
	CategoryNormal   Category = "normal"
	CategoryElevated Category = "elevated"
	CategoryStage1   Category = "stage1"
	CategoryStage2   Category = "stage2"
	CategoryCrisis   Category = "crisis"
	CategoryLow      Category = "low"
)

// Categories lists every category in severity display order.
var Categories = []Category{
	CategoryNormal,
	CategoryElevated,
	CategoryStage1,
	CategoryStage2,
	CategoryCrisis,
	CategoryLow,
}

var labels = map[Category]string{
	CategoryNormal:   "Normal",
	CategoryElevated: "Elevated",
	CategoryStage1:   "Stage 1 Hypertension",
	CategoryStage2:   "Stage 2 Hypertension",
	CategoryCrisis:   "Hypertensive Crisis",
	CategoryLow:      "Low Blood Pressure",
}

// Label returns the human readable name of the category.
func (c Category) Label() string {
	if l, ok := labels[c]; ok {
		return l
	}
	return "Unknown"
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	_, ok := labels[c]
	return ok
}

// Categorize classifies a reading. The checks are ordered and the first
// match wins; low is tested before crisis so that e.g. 185/55 is low.
func Categorize(systolic, diastolic int) (Category, bool) {
	switch {
	case systolic < 90 || diastolic < 60:
		return CategoryLow, true
	case systolic >= 180 || diastolic >= 120:
		return CategoryCrisis, true
	case systolic >= 140 || diastolic >= 90:
		return CategoryStage2, true
	case systolic >= 130 || diastolic >= 80:
		return CategoryStage1, true
	case systolic >= 120 && diastolic < 80:
		return CategoryElevated, true
	default:
		return CategoryNormal, false
	}
}

// Risk levels in increasing order of urgency.
const (
	RiskLow    = "low"
	RiskMedium = "medium"
	RiskHigh   = "high"
	RiskUrgent = "urgent"
)

var riskOrder = map[string]int{RiskLow: 0, RiskMedium: 1, RiskHigh: 2, RiskUrgent: 3}

// RiskLevel maps a category to the outreach urgency it implies. Low blood
// pressure and unknown categories are medium.
func (c Category) RiskLevel() string {
	switch c {
	case CategoryNormal, CategoryElevated:
		return RiskLow
	case CategoryStage1:
		return RiskMedium
	case CategoryStage2:
		return RiskHigh
	case CategoryCrisis:
		return RiskUrgent
	default:
		return RiskMedium
	}
}
