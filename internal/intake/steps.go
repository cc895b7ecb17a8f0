// internal/intake/steps.go
package intake

import (
	"strings"

	"github.com/Norbert250/ORION-2-sub000/internal/models"
)

// The five fixed steps of the intake form.
const (
	StepContact    = 1 // contact & occupation
	StepPersonal   = 2 // personal & medical
	StepAssets     = 3 // assets & financial docs
	StepGuarantors = 4 // guarantors
	StepReview     = 5 // review & submit
)

// guard checks the step's required fields before an advance. A non-empty
// return value is the blocking user-facing message.
type guard func(d *models.ApplicationDraft) string

var stepGuards = map[int]guard{
	StepContact:    guardContact,
	StepPersonal:   guardPersonal,
	StepAssets:     func(*models.ApplicationDraft) string { return "" },
	StepGuarantors: guardGuarantors,
}

func guardContact(d *models.ApplicationDraft) string {
	var missing []string
	if strings.TrimSpace(d.PhoneNumber) == "" {
		missing = append(missing, "phone number")
	}
	if strings.TrimSpace(d.EmploymentSector) == "" {
		missing = append(missing, "employment sector")
	}
	if strings.TrimSpace(d.WorkType) == "" {
		missing = append(missing, "work type")
	}
	if len(missing) > 0 {
		return "Please fill in: " + strings.Join(missing, ", ")
	}
	return ""
}

// Gender and date of birth must come out of the ID document analysis, not be
// typed in; the guard therefore requires the extraction to have happened.
func guardPersonal(d *models.ApplicationDraft) string {
	if d.Analyses.ID == nil || d.Analyses.ID.Gender == "" || d.Analyses.ID.DateOfBirth == "" {
		return "Please upload a readable ID document so we can verify your details"
	}
	return ""
}

func guardGuarantors(d *models.ApplicationDraft) string {
	if strings.TrimSpace(d.Guarantor1Phone) == "" || strings.TrimSpace(d.Guarantor2Phone) == "" {
		return "Both guarantor phone numbers are required"
	}
	return ""
}
