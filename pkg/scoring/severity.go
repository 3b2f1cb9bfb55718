package scoring

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrMissingPatientSex is returned when severity classification is requested
// without the patient's sex. Sex is a hard precondition for the grade; there
// is no silent default.
var ErrMissingPatientSex = errors.New("patient sex is required for severity classification")

// Sex is the patient sex used for the sex-specific severity cutoffs.
type Sex int

const (
	SexUnknown Sex = iota
	SexMale
	SexFemale
)

// String returns the sex label used in reports.
func (s Sex) String() string {
	switch s {
	case SexMale:
		return "male"
	case SexFemale:
		return "female"
	}
	return "unknown"
}

// ParseSex parses the single-letter codes used by DICOM and the CLI.
func ParseSex(s string) (Sex, error) {
	switch s {
	case "M", "m", "male", "Male":
		return SexMale, nil
	case "F", "f", "female", "Female":
		return SexFemale, nil
	case "":
		return SexUnknown, nil
	}
	return SexUnknown, fmt.Errorf("unrecognized sex %q", s)
}

// Severity is the sex-specific calcification grade.
type Severity int

const (
	SeverityNone Severity = iota
	SeverityMild
	SeverityModerate
	SeveritySevere
)

// String returns the grade label used in reports.
func (s Severity) String() string {
	switch s {
	case SeverityMild:
		return "Mild"
	case SeverityModerate:
		return "Moderate"
	case SeveritySevere:
		return "Severe"
	}
	return "None"
}

// Severity cutoffs for non-contrast CT, sex-specific. Severe corresponds to
// the threshold for severe aortic stenosis; all bounds are inclusive on the
// lower edge.
const (
	femaleSevereAU   = 1377.0
	femaleModerateAU = 400.0
	maleSevereAU     = 2062.0
	maleModerateAU   = 1000.0
	mildAU           = 100.0
)

// Classify maps a total Agatston score and patient sex to a severity grade.
// Sex is mandatory; SexUnknown fails with ErrMissingPatientSex and the
// caller's score fields remain usable.
func Classify(totalScore float64, sex Sex) (Severity, error) {
	var severeAU, moderateAU float64
	switch sex {
	case SexFemale:
		severeAU, moderateAU = femaleSevereAU, femaleModerateAU
	case SexMale:
		severeAU, moderateAU = maleSevereAU, maleModerateAU
	default:
		return SeverityNone, ErrMissingPatientSex
	}

	switch {
	case totalScore >= severeAU:
		return SeveritySevere, nil
	case totalScore >= moderateAU:
		return SeverityModerate, nil
	case totalScore >= mildAU:
		return SeverityMild, nil
	}
	return SeverityNone, nil
}

// ClassificationText returns the clinical label for a grade.
func ClassificationText(s Severity) string {
	switch s {
	case SeveritySevere:
		return "Severe Aortic Stenosis (AS)"
	case SeverityModerate:
		return "Moderate Aortic Stenosis"
	case SeverityMild:
		return "Mild Aortic Valve Calcification"
	}
	return "Minimal/Normal"
}

// Interpretation produces the report summary sentence for a scored run.
func Interpretation(totalScore float64, severity Severity) string {
	base := fmt.Sprintf("The aortic valve calcium score of %.1f AU ", totalScore)
	switch severity {
	case SeveritySevere:
		return base + "indicates severe aortic valve calcification, which is highly suggestive of severe aortic stenosis. " +
			"Clinical correlation with echocardiography is recommended. " +
			"Patient may be candidate for aortic valve intervention (TAVR/SAVR)."
	case SeverityModerate:
		return base + "indicates moderate aortic valve calcification. This suggests at least moderate aortic stenosis. " +
			"Follow-up with echocardiography is recommended for hemodynamic assessment."
	case SeverityMild:
		return base + "indicates mild aortic valve calcification. This may represent early aortic valve disease. " +
			"Regular monitoring and risk factor management are recommended."
	}
	return base + "indicates minimal or no significant aortic valve calcification. This is within normal limits."
}
