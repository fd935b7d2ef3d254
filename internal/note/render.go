package note

import (
	"fmt"
	"strings"
)

// Render formats the note as a human-readable plain-text document, the layout
// clinicians see when reviewing a finished consultation. Call
// [ClinicalNote.Normalize] first; Render falls back to [NotStated] for any
// field that is still empty.
func (n *ClinicalNote) Render() string {
	var b strings.Builder

	fmt.Fprintf(&b, "Patient: %s\n", orNotStated(n.PatientInfo.Name))
	fmt.Fprintf(&b, "Date of Birth: %s\n", orNotStated(n.PatientInfo.DateOfBirth))
	fmt.Fprintf(&b, "Age: %s\n", orNotStated(n.PatientInfo.Age))
	fmt.Fprintf(&b, "Sex: %s\n", orNotStated(n.PatientInfo.Sex))
	fmt.Fprintf(&b, "Medical Record #: %s\n", orNotStated(n.PatientInfo.MedicalRecordNumber))
	fmt.Fprintf(&b, "Date of Clinic Visit: %s\n", orNotStated(n.PatientInfo.DateOfClinicVisit))
	fmt.Fprintf(&b, "Primary Care Provider: %s\n", orNotStated(n.PatientInfo.PrimaryCareProvider))
	fmt.Fprintf(&b, "Personal Note: %s\n", orNotStated(n.PatientInfo.PersonalNote))

	b.WriteString("\nHistory of Present Illness (HPI)\n")
	b.WriteString(orNotStated(n.HistoryOfPresentIllness))
	b.WriteString("\n")

	fmt.Fprintf(&b, "\nAllergies: %s\n", joined(n.Allergies))
	fmt.Fprintf(&b, "Medications: %s\n", joined(n.Medications))

	b.WriteString("\nPrevious History\n")
	fmt.Fprintf(&b, "Past Medical History: %s\n", joined(n.PreviousHistory.PastMedicalHistory))
	fmt.Fprintf(&b, "Past Surgical History: %s\n", joined(n.PreviousHistory.PastSurgicalHistory))
	fmt.Fprintf(&b, "Family History: %s\n", joined(n.PreviousHistory.FamilyHistory))
	fmt.Fprintf(&b, "Social History: %s\n", orNotStated(n.PreviousHistory.SocialHistory))

	b.WriteString("\nReview of Systems\n")
	fmt.Fprintf(&b, "Positive Findings: %s\n", joined(n.ReviewOfSystems.PositiveFindings))
	fmt.Fprintf(&b, "Negative Findings: %s\n", joined(n.ReviewOfSystems.NegativeFindings))

	b.WriteString("\nPhysical Exam\n")
	fmt.Fprintf(&b, "General Appearance: %s\n", orNotStated(n.PhysicalExam.GeneralAppearance))
	b.WriteString("Vital Signs:\n")
	fmt.Fprintf(&b, "    Temperature: %s\n", orNotStated(n.PhysicalExam.VitalSigns.Temperature))
	fmt.Fprintf(&b, "    Blood Pressure: %s\n", orNotStated(n.PhysicalExam.VitalSigns.BloodPressure))
	fmt.Fprintf(&b, "    Heart Rate: %s\n", orNotStated(n.PhysicalExam.VitalSigns.HeartRate))
	fmt.Fprintf(&b, "    Respiratory Rate: %s\n", orNotStated(n.PhysicalExam.VitalSigns.RespiratoryRate))
	fmt.Fprintf(&b, "    Oxygen Saturation: %s\n", orNotStated(n.PhysicalExam.VitalSigns.OxygenSaturation))
	fmt.Fprintf(&b, "Examination Findings: %s\n", orNotStated(n.PhysicalExam.ExaminationFindings))

	b.WriteString("\nAssessment\n")
	b.WriteString(orNotStated(n.Assessment))
	b.WriteString("\n")
	fmt.Fprintf(&b, "ICD-10 Codes: %s\n", joined(n.ICD10Codes))

	b.WriteString("\nPlan\n")
	if len(n.Plan) == 0 {
		b.WriteString(NotStated)
		b.WriteString("\n")
	} else {
		for _, p := range n.Plan {
			fmt.Fprintf(&b, "- %s\n", p)
		}
	}

	b.WriteString("\nMedical Decision Making (MDM)\n")
	b.WriteString(orNotStated(n.MedicalDecisionMaking))
	b.WriteString("\n")

	return b.String()
}

// orNotStated substitutes the placeholder for empty strings.
func orNotStated(s string) string {
	if s == "" {
		return NotStated
	}
	return s
}

// joined renders a list as comma-separated values, or the placeholder when
// empty.
func joined(items []string) string {
	if len(items) == 0 {
		return NotStated
	}
	return strings.Join(items, ", ")
}
