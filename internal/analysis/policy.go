// internal/analysis/policy.go
package analysis

// DocType identifies one external analyzer call site.
type DocType string

const (
	DocIDDocument       DocType = "id-document"
	DocGuarantorID      DocType = "guarantor-id"
	DocAssetPhotos      DocType = "asset-photos"
	DocBankStatement    DocType = "bank-statement"
	DocMpesaStatement   DocType = "mpesa-statement"
	DocCallLogs         DocType = "call-logs"
	DocDrugImages       DocType = "drug-images"
	DocPrescription     DocType = "prescription"
	DocMedicalInfo      DocType = "medical-info"
	DocCreditEvaluation DocType = "credit-evaluation"
)

// Policy is the failure policy for one analyzer call site.
type Policy int

const (
	// PolicyFatal propagates transport and non-2xx failures to the caller.
	PolicyFatal Policy = iota
	// PolicyOptional swallows failures; the caller gets a nil result and the
	// form proceeds without that analysis.
	PolicyOptional
	// PolicyRetryable retries with linear backoff before propagating.
	PolicyRetryable
)

// policies fixes the per-document failure behavior. The asymmetry is
// deliberate: documents whose absence blocks a step guard fail loudly,
// bonus-only documents fail silently, statement parsers get retries because
// their upstreams flake.
var policies = map[DocType]Policy{
	DocIDDocument:       PolicyFatal,
	DocCallLogs:         PolicyFatal,
	DocBankStatement:    PolicyRetryable,
	DocMpesaStatement:   PolicyRetryable,
	DocMedicalInfo:      PolicyRetryable,
	DocCreditEvaluation: PolicyRetryable,
	DocGuarantorID:      PolicyOptional,
	DocAssetPhotos:      PolicyOptional,
	DocDrugImages:       PolicyOptional,
	DocPrescription:     PolicyOptional,
}

// PolicyFor returns the failure policy for a document type.
func PolicyFor(doc DocType) Policy {
	if p, ok := policies[doc]; ok {
		return p
	}
	return PolicyFatal
}
