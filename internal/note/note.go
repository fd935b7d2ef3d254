// Package note defines the structured clinical note extracted from a
// consultation transcript.
//
// The note is a fixed-shape document: every field is optional at the type
// level, but the extraction contract requires every field to be populated —
// "Not stated" for absent strings, an empty list for absent sequences. That
// contract is enforced by prompt instruction on the LLM side, which makes it
// a soft invariant; [ClinicalNote.Normalize] coerces whatever the model
// actually returned into the guaranteed-complete form before anything
// downstream sees it.
//
// Field names are part of the persisted artifact format and must not change.
package note

// NotStated is the placeholder value for string fields the transcript did not
// cover.
const NotStated = "Not stated"

// PatientInfo holds the demographic header of the note.
type PatientInfo struct {
	Name                string `json:"name"`
	DateOfBirth         string `json:"date_of_birth"`
	Age                 string `json:"age"`
	Sex                 string `json:"sex"`
	MedicalRecordNumber string `json:"medical_record_number"`
	DateOfClinicVisit   string `json:"date_of_clinic_visit"`
	PrimaryCareProvider string `json:"primary_care_provider"`
	PersonalNote        string `json:"personal_note"`
}

// PreviousHistory groups the patient's historical background sections.
type PreviousHistory struct {
	PastMedicalHistory  []string `json:"past_medical_history"`
	PastSurgicalHistory []string `json:"past_surgical_history"`
	FamilyHistory       []string `json:"family_history"`
	SocialHistory       string   `json:"social_history"`
}

// ReviewOfSystems lists findings elicited during the systems review.
type ReviewOfSystems struct {
	PositiveFindings []string `json:"positive_findings"`
	NegativeFindings []string `json:"negative_findings"`
}

// VitalSigns holds vitals as free-form strings — units are whatever the
// transcript stated, never normalized.
type VitalSigns struct {
	Temperature      string `json:"temperature"`
	BloodPressure    string `json:"blood_pressure"`
	HeartRate        string `json:"heart_rate"`
	RespiratoryRate  string `json:"respiratory_rate"`
	OxygenSaturation string `json:"oxygen_saturation"`
}

// PhysicalExam describes the examination section of the note.
type PhysicalExam struct {
	GeneralAppearance   string     `json:"general_appearance"`
	VitalSigns          VitalSigns `json:"vital_signs"`
	ExaminationFindings string     `json:"examination_findings"`
}

// ClinicalNote is the extraction target: the complete structured note for one
// consultation. ICD-10 codes are passed through as stated by the model —
// their correctness is not validated here.
type ClinicalNote struct {
	PatientInfo             PatientInfo     `json:"patient_info"`
	HistoryOfPresentIllness string          `json:"history_of_present_illness"`
	Allergies               []string        `json:"allergies"`
	Medications             []string        `json:"medications"`
	PreviousHistory         PreviousHistory `json:"previous_history"`
	ReviewOfSystems         ReviewOfSystems `json:"review_of_systems"`
	PhysicalExam            PhysicalExam    `json:"physical_exam"`
	Assessment              string          `json:"assessment"`
	ICD10Codes              []string        `json:"icd10_codes"`
	Plan                    []string        `json:"plan"`
	MedicalDecisionMaking   string          `json:"medical_decision_making"`
}

// Normalize fills every absent field in place: empty strings become
// [NotStated] and nil sequences become empty non-nil slices (so they
// serialize as [] rather than null). After Normalize, serializing the note
// never produces a missing or null field.
func (n *ClinicalNote) Normalize() {
	strs := []*string{
		&n.PatientInfo.Name,
		&n.PatientInfo.DateOfBirth,
		&n.PatientInfo.Age,
		&n.PatientInfo.Sex,
		&n.PatientInfo.MedicalRecordNumber,
		&n.PatientInfo.DateOfClinicVisit,
		&n.PatientInfo.PrimaryCareProvider,
		&n.PatientInfo.PersonalNote,
		&n.HistoryOfPresentIllness,
		&n.PreviousHistory.SocialHistory,
		&n.PhysicalExam.GeneralAppearance,
		&n.PhysicalExam.VitalSigns.Temperature,
		&n.PhysicalExam.VitalSigns.BloodPressure,
		&n.PhysicalExam.VitalSigns.HeartRate,
		&n.PhysicalExam.VitalSigns.RespiratoryRate,
		&n.PhysicalExam.VitalSigns.OxygenSaturation,
		&n.PhysicalExam.ExaminationFindings,
		&n.Assessment,
		&n.MedicalDecisionMaking,
	}
	for _, s := range strs {
		if *s == "" {
			*s = NotStated
		}
	}

	lists := []*[]string{
		&n.Allergies,
		&n.Medications,
		&n.PreviousHistory.PastMedicalHistory,
		&n.PreviousHistory.PastSurgicalHistory,
		&n.PreviousHistory.FamilyHistory,
		&n.ReviewOfSystems.PositiveFindings,
		&n.ReviewOfSystems.NegativeFindings,
		&n.ICD10Codes,
		&n.Plan,
	}
	for _, l := range lists {
		if *l == nil {
			*l = []string{}
		}
	}
}
