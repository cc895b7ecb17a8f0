// internal/models/analysis.go
package models

import "encoding/json"

// Normalized analysis results. Each upstream API reports the same logical
// value under different keys; the analysis package probes the alternatives in
// a fixed order and fills these typed optional fields. The verbatim payload
// is always kept for persistence.

type IDAnalysis struct {
	FullName    string          `json:"fullName,omitempty"`
	Gender      string          `json:"gender,omitempty"`
	DateOfBirth string          `json:"dateOfBirth,omitempty"`
	IDNumber    string          `json:"idNumber,omitempty"`
	Raw         json.RawMessage `json:"raw,omitempty"`
}

type MedicalAnalysis struct {
	TotalScore *float64        `json:"totalScore,omitempty"`
	Raw        json.RawMessage `json:"raw,omitempty"`
}

type AssetAnalysis struct {
	CreditScore *float64        `json:"creditScore,omitempty"`
	Raw         json.RawMessage `json:"raw,omitempty"`
}

type BankAnalysis struct {
	CreditScore *float64        `json:"creditScore,omitempty"`
	Raw         json.RawMessage `json:"raw,omitempty"`
}

type MpesaAnalysis struct {
	BehaviorScore *float64        `json:"behaviorScore,omitempty"`
	Raw           json.RawMessage `json:"raw,omitempty"`
}

type CallLogsAnalysis struct {
	Score *float64        `json:"score,omitempty"`
	Raw   json.RawMessage `json:"raw,omitempty"`
}

type CreditEvaluation struct {
	CreditScore *float64        `json:"creditScore,omitempty"`
	Raw         json.RawMessage `json:"raw,omitempty"`
}

type PrescriptionAnalysis struct {
	Raw json.RawMessage `json:"raw,omitempty"`
}

type DrugAnalysis struct {
	Raw json.RawMessage `json:"raw,omitempty"`
}

// DraftAnalyses is the growing bag of analysis results on a draft. A field is
// set only after its upload's network call resolved successfully; everything
// downstream must tolerate nil.
type DraftAnalyses struct {
	ID           *IDAnalysis           `json:"id,omitempty"`
	Medical      *MedicalAnalysis      `json:"medical,omitempty"`
	Prescription *PrescriptionAnalysis `json:"prescription,omitempty"`
	Drugs        *DrugAnalysis         `json:"drugs,omitempty"`
	Asset        *AssetAnalysis        `json:"asset,omitempty"`
	Bank         *BankAnalysis         `json:"bank,omitempty"`
	Mpesa        *MpesaAnalysis        `json:"mpesa,omitempty"`
	CallLogs     *CallLogsAnalysis     `json:"callLogs,omitempty"`
	CreditEval   *CreditEvaluation     `json:"creditEval,omitempty"`
	Guarantor1ID *IDAnalysis           `json:"guarantor1Id,omitempty"`
	Guarantor2ID *IDAnalysis           `json:"guarantor2Id,omitempty"`
}
