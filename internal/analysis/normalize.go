// internal/analysis/normalize.go
package analysis

import (
	"encoding/json"
	"strings"

	"github.com/Norbert250/ORION-2-sub000/internal/models"
)

// The upstream APIs report the same logical value under different keys,
// with inconsistent casing and nesting per API. Each normalizer probes the
// alternative paths in a fixed fallback order and takes the first present
// value. Path segments are dot separated; a segment may contain spaces
// ("fields.Full Name").

func probe(doc map[string]interface{}, path string) (interface{}, bool) {
	segments := strings.Split(path, ".")
	var cur interface{} = doc
	for _, seg := range segments {
		m, ok := cur.(map[string]interface{})
		if !ok {
			return nil, false
		}
		cur, ok = m[seg]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

func probeFloat(doc map[string]interface{}, paths ...string) *float64 {
	for _, path := range paths {
		if v, ok := probe(doc, path); ok {
			// json.Unmarshal decodes every number as float64.
			if n, ok := v.(float64); ok {
				f := n
				return &f
			}
		}
	}
	return nil
}

func probeString(doc map[string]interface{}, paths ...string) string {
	for _, path := range paths {
		if v, ok := probe(doc, path); ok {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}

func decode(raw json.RawMessage) map[string]interface{} {
	var doc map[string]interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return map[string]interface{}{}
	}
	return doc
}

// NormalizeID extracts the OCR fields from an ID document analysis.
func NormalizeID(raw json.RawMessage) *models.IDAnalysis {
	doc := decode(raw)
	return &models.IDAnalysis{
		FullName:    probeString(doc, "Full Name", "fields.Full Name", "full_name"),
		Gender:      probeString(doc, "Gender", "fields.Gender", "gender"),
		DateOfBirth: probeString(doc, "Date of Birth", "fields.Date of Birth", "date_of_birth"),
		IDNumber:    probeString(doc, "ID Number", "fields.ID Number", "id_number"),
		Raw:         raw,
	}
}

// NormalizeMedical extracts the medical total score; the API has shipped two
// response shapes.
func NormalizeMedical(raw json.RawMessage) *models.MedicalAnalysis {
	doc := decode(raw)
	return &models.MedicalAnalysis{
		TotalScore: probeFloat(doc, "total_score", "data.total_score"),
		Raw:        raw,
	}
}

// NormalizeAsset extracts the image-based credit score.
func NormalizeAsset(raw json.RawMessage) *models.AssetAnalysis {
	doc := decode(raw)
	return &models.AssetAnalysis{
		CreditScore: probeFloat(doc, "credit_score", "creditScore"),
		Raw:         raw,
	}
}

// NormalizeBank extracts the bank-statement credit score.
func NormalizeBank(raw json.RawMessage) *models.BankAnalysis {
	doc := decode(raw)
	return &models.BankAnalysis{
		CreditScore: probeFloat(doc, "credit_score", "analysis.credit_score"),
		Raw:         raw,
	}
}

// NormalizeMpesa extracts the M-Pesa behavior sub-score.
func NormalizeMpesa(raw json.RawMessage) *models.MpesaAnalysis {
	doc := decode(raw)
	return &models.MpesaAnalysis{
		BehaviorScore: probeFloat(doc, "behavioral_score", "scores.behavioral_score"),
		Raw:           raw,
	}
}

// NormalizeCallLogs extracts the call-log score.
func NormalizeCallLogs(raw json.RawMessage) *models.CallLogsAnalysis {
	doc := decode(raw)
	return &models.CallLogsAnalysis{
		Score: probeFloat(doc, "call_logs_score", "score"),
		Raw:   raw,
	}
}

// NormalizeCreditEval extracts the credit-evaluation score.
func NormalizeCreditEval(raw json.RawMessage) *models.CreditEvaluation {
	doc := decode(raw)
	return &models.CreditEvaluation{
		CreditScore: probeFloat(doc, "credit_score", "creditScore"),
		Raw:         raw,
	}
}
