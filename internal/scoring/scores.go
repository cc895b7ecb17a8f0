// internal/scoring/scores.go

// Package scoring aggregates externally computed sub-scores into the three
// category scores and the composite credit score. Every function is pure and
// recomputed from whichever raw values are currently present; absent inputs
// are nil and count as zero where the rules say so.
package scoring

import (
	"math"

	"github.com/Norbert250/ORION-2-sub000/internal/models"
)

// Flat bonuses observed from the upstream scoring behavior.
const (
	prescriptionBonus = 3
	guarantorBonus    = 3
)

// Inputs is the bag of optional sub-scores pulled from the draft analyses.
type Inputs struct {
	MedicalBase         *float64
	PrescriptionPresent bool
	AssetCreditScore    *float64
	BankCreditScore     *float64
	MpesaBehaviorScore  *float64
	CallLogsScore       *float64
	Guarantor1Present   bool
	Guarantor2Present   bool
}

// InputsFromAnalyses derives scoring inputs from a draft's analysis results.
func InputsFromAnalyses(a models.DraftAnalyses) Inputs {
	in := Inputs{
		PrescriptionPresent: a.Prescription != nil,
		Guarantor1Present:   a.Guarantor1ID != nil,
		Guarantor2Present:   a.Guarantor2ID != nil,
	}
	if a.Medical != nil {
		in.MedicalBase = a.Medical.TotalScore
	}
	if a.Asset != nil {
		in.AssetCreditScore = a.Asset.CreditScore
	}
	if a.Bank != nil {
		in.BankCreditScore = a.Bank.CreditScore
	}
	if a.Mpesa != nil {
		in.MpesaBehaviorScore = a.Mpesa.BehaviorScore
	}
	if a.CallLogs != nil {
		in.CallLogsScore = a.CallLogs.Score
	}
	return in
}

// MedicalScore is the base medical total score plus a flat bonus when a
// prescription analysis is present. The bonus applies even without a base.
func MedicalScore(base *float64, prescriptionPresent bool) float64 {
	score := 0.0
	if base != nil {
		score = *base
	}
	if prescriptionPresent {
		score += prescriptionBonus
	}
	return score
}

// AssetScore averages the bank-statement credit score and the asset/image
// credit score when both are present; one alone is used directly; neither is
// zero.
func AssetScore(bank, asset *float64) float64 {
	switch {
	case bank != nil && asset != nil:
		return (*bank + *asset) / 2
	case bank != nil:
		return *bank
	case asset != nil:
		return *asset
	default:
		return 0
	}
}

// AssetScoreImageOnly is the early-step variant used before the bank
// statement has been analyzed: the image-based credit score alone.
// Kept as a distinct call site; the staged behavior is intentional.
func AssetScoreImageOnly(asset *float64) float64 {
	if asset == nil {
		return 0
	}
	return *asset
}

// BehaviorScore blends the M-Pesa behavior sub-score with the call-log score
// and adds a flat bonus per guarantor whose ID analysis is present. An absent
// call-log score zeroes the category regardless of other inputs; the M-Pesa
// score alone never counts.
func BehaviorScore(mpesa, callLogs *float64, guarantor1, guarantor2 bool) float64 {
	if callLogs == nil {
		return 0
	}

	score := *callLogs
	if mpesa != nil {
		score = (*mpesa + *callLogs) / 2
	}
	if guarantor1 {
		score += guarantorBonus
	}
	if guarantor2 {
		score += guarantorBonus
	}
	return score
}

// CompositeScore is the rounded mean of the three category scores. Missing
// categories contribute zero to the sum; the divisor is always 3.
func CompositeScore(medical, asset, behavior float64) int {
	return int(math.Round((medical + asset + behavior) / 3))
}

// Breakdown is the full recomputation for one set of inputs.
type Breakdown struct {
	Medical   float64 `json:"medicalScore"`
	Asset     float64 `json:"assetScore"`
	Behavior  float64 `json:"behaviorScore"`
	Composite int     `json:"compositeScore"`
}

// Compute recomputes all category scores and the composite from the inputs.
func Compute(in Inputs) Breakdown {
	medical := MedicalScore(in.MedicalBase, in.PrescriptionPresent)
	asset := AssetScore(in.BankCreditScore, in.AssetCreditScore)
	behavior := BehaviorScore(in.MpesaBehaviorScore, in.CallLogsScore, in.Guarantor1Present, in.Guarantor2Present)

	return Breakdown{
		Medical:   medical,
		Asset:     asset,
		Behavior:  behavior,
		Composite: CompositeScore(medical, asset, behavior),
	}
}
