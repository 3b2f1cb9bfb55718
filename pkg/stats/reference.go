package stats

import (
	"fmt"

	"aocascore/pkg/scoring"
)

// ageBand is one age group of the population reference table, with the
// 25th/50th/75th/90th percentile scores for that group.
type ageBand struct {
	minAge, maxAge     int
	p25, p50, p75, p90 float64
}

// Population reference percentiles by sex and age group, from the MESA
// study literature. Used only to contextualize a score; never part of the
// score itself.
var (
	femaleReference = []ageBand{
		{40, 44, 0, 0, 5, 38},
		{45, 54, 0, 0, 26, 95},
		{55, 64, 0, 4, 78, 250},
		{65, 74, 0, 25, 185, 515},
		{75, 84, 0, 60, 330, 800},
	}
	maleReference = []ageBand{
		{40, 44, 0, 0, 11, 84},
		{45, 54, 0, 3, 54, 203},
		{55, 64, 0, 23, 161, 540},
		{65, 74, 0, 81, 384, 950},
		{75, 84, 0, 155, 610, 1400},
	}
)

// ReferenceBand reports where a total score falls within the population
// reference distribution for the patient's sex and age. Ages outside 40-85
// have no reference data.
func ReferenceBand(totalScore float64, sex scoring.Sex, age int) (string, error) {
	if age < 40 || age > 85 {
		return "", fmt.Errorf("no reference percentiles for age %d (supported range 40-85)", age)
	}

	var table []ageBand
	switch sex {
	case scoring.SexFemale:
		table = femaleReference
	case scoring.SexMale:
		table = maleReference
	default:
		return "", scoring.ErrMissingPatientSex
	}

	band := table[len(table)-1]
	for _, b := range table {
		if age >= b.minAge && age <= b.maxAge {
			band = b
			break
		}
	}

	switch {
	case totalScore <= band.p25:
		return "<25th percentile", nil
	case totalScore <= band.p50:
		return "25th-50th percentile", nil
	case totalScore <= band.p75:
		return "50th-75th percentile", nil
	case totalScore <= band.p90:
		return "75th-90th percentile", nil
	}
	return ">90th percentile", nil
}
