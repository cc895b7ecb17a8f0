// internal/models/application.go
package models

import "encoding/json"

// Application is the persisted application row. Status is an open string set;
// only admin actions mutate it after submission.
type Application struct {
	ID             string  `json:"id" db:"id"`
	UserID         string  `json:"userId" db:"user_id"`
	LoanID         string  `json:"loanId" db:"loan_id"`
	PhoneNumber    string  `json:"phoneNumber" db:"phone_number"`
	FullName       string  `json:"fullName,omitempty" db:"full_name"`
	MedicalScore   float64 `json:"medicalScore" db:"medical_score"`
	AssetScore     float64 `json:"assetScore" db:"asset_score"`
	BehaviorScore  float64 `json:"behaviorScore" db:"behavior_score"`
	CompositeScore int     `json:"compositeScore" db:"composite_score"`
	Status         string  `json:"status" db:"status"`
	CreatedAt      string  `json:"createdAt" db:"created_at"`
	UpdatedAt      string  `json:"updatedAt" db:"updated_at"`
}

// Application status values. The set is open ended; these are the ones the
// dashboard writes.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusApproved   = "approved"
	StatusRejected   = "rejected"
)

// AnalysisCategory names one analysis table. One row per category is inserted
// at submission time, only when that analysis is present.
type AnalysisCategory string

const (
	CategoryGPS        AnalysisCategory = "gps_analysis"
	CategoryAsset      AnalysisCategory = "asset_analysis"
	CategoryMedical    AnalysisCategory = "medical_analysis"
	CategoryBank       AnalysisCategory = "bank_analysis"
	CategoryMpesa      AnalysisCategory = "mpesa_analysis"
	CategoryCallLogs   AnalysisCategory = "call_logs_analysis"
	CategoryCreditEval AnalysisCategory = "credit_evaluation"
	CategoryID         AnalysisCategory = "id_analysis"
)

// AnalysisRecord is one analysis row: the raw upstream payload is persisted
// verbatim alongside the application id.
type AnalysisRecord struct {
	ApplicationID string           `json:"applicationId" db:"application_id"`
	Category      AnalysisCategory `json:"category"`
	Payload       json.RawMessage  `json:"payload" db:"payload"`
	CreatedAt     string           `json:"createdAt" db:"created_at"`
}

// ApplicationDetail is an application plus all of its analysis rows, as the
// admin dashboard reads it.
type ApplicationDetail struct {
	Application Application      `json:"application"`
	Analyses    []AnalysisRecord `json:"analyses"`
}
