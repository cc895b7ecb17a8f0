// internal/analysis/endpoints.go
package analysis

import (
	"context"

	"github.com/Norbert250/ORION-2-sub000/internal/models"
)

// One function per document/data type. Each builds the payload that its
// upstream expects, applies the fixed failure policy, and normalizes the
// response. A nil result with a nil error means an Optional call failed and
// the draft proceeds without that analysis.

// AnalyzeIDDocument runs OCR on the applicant's ID.
func (c *Client) AnalyzeIDDocument(ctx context.Context, file FilePart) (*models.IDAnalysis, error) {
	raw, err := c.callMultipart(ctx, DocIDDocument, c.cfg.IDDocumentURL, []FilePart{file}, nil)
	if err != nil || raw == nil {
		return nil, err
	}
	return NormalizeID(raw), nil
}

// AnalyzeGuarantorID runs OCR on one guarantor's ID.
func (c *Client) AnalyzeGuarantorID(ctx context.Context, file FilePart) (*models.IDAnalysis, error) {
	raw, err := c.callMultipart(ctx, DocGuarantorID, c.cfg.IDDocumentURL, []FilePart{file}, nil)
	if err != nil || raw == nil {
		return nil, err
	}
	return NormalizeID(raw), nil
}

// AnalyzeAssetPhotos submits asset pictures for image-based credit evaluation.
func (c *Client) AnalyzeAssetPhotos(ctx context.Context, files []FilePart) (*models.AssetAnalysis, error) {
	raw, err := c.callMultipart(ctx, DocAssetPhotos, c.cfg.AssetPhotosURL, files, nil)
	if err != nil || raw == nil {
		return nil, err
	}
	return NormalizeAsset(raw), nil
}

// AnalyzeBankStatement submits a bank statement for parsing and scoring.
func (c *Client) AnalyzeBankStatement(ctx context.Context, file FilePart, password string) (*models.BankAnalysis, error) {
	fields := map[string]string{}
	if password != "" {
		fields["password"] = password
	}
	raw, err := c.callMultipart(ctx, DocBankStatement, c.cfg.BankStatementURL, []FilePart{file}, fields)
	if err != nil || raw == nil {
		return nil, err
	}
	return NormalizeBank(raw), nil
}

// AnalyzeMpesaStatement submits an M-Pesa statement for behavior scoring.
func (c *Client) AnalyzeMpesaStatement(ctx context.Context, file FilePart, code string) (*models.MpesaAnalysis, error) {
	fields := map[string]string{}
	if code != "" {
		fields["code"] = code
	}
	raw, err := c.callMultipart(ctx, DocMpesaStatement, c.cfg.MpesaStatementURL, []FilePart{file}, fields)
	if err != nil || raw == nil {
		return nil, err
	}
	return NormalizeMpesa(raw), nil
}

// AnalyzeCallLogs submits a call-log export for behavior scoring.
func (c *Client) AnalyzeCallLogs(ctx context.Context, file FilePart) (*models.CallLogsAnalysis, error) {
	raw, err := c.callMultipart(ctx, DocCallLogs, c.cfg.CallLogsURL, []FilePart{file}, nil)
	if err != nil || raw == nil {
		return nil, err
	}
	return NormalizeCallLogs(raw), nil
}

// AnalyzeDrugImages submits drug photos for medical scoring context.
func (c *Client) AnalyzeDrugImages(ctx context.Context, files []FilePart) (*models.DrugAnalysis, error) {
	raw, err := c.callMultipart(ctx, DocDrugImages, c.cfg.DrugImagesURL, files, nil)
	if err != nil || raw == nil {
		return nil, err
	}
	return &models.DrugAnalysis{Raw: raw}, nil
}

// AnalyzePrescription submits a prescription photo. Presence of the result
// feeds the flat medical bonus; the payload itself is persisted verbatim.
func (c *Client) AnalyzePrescription(ctx context.Context, file FilePart) (*models.PrescriptionAnalysis, error) {
	raw, err := c.callMultipart(ctx, DocPrescription, c.cfg.PrescriptionURL, []FilePart{file}, nil)
	if err != nil || raw == nil {
		return nil, err
	}
	return &models.PrescriptionAnalysis{Raw: raw}, nil
}

// AnalyzeMedicalInfo submits the declared medical info for scoring.
func (c *Client) AnalyzeMedicalInfo(ctx context.Context, payload map[string]interface{}) (*models.MedicalAnalysis, error) {
	raw, err := c.callJSON(ctx, DocMedicalInfo, c.cfg.MedicalInfoURL, payload)
	if err != nil || raw == nil {
		return nil, err
	}
	return NormalizeMedical(raw), nil
}

// AnalyzeCreditEvaluation submits the consolidated draft data for the final
// credit evaluation.
func (c *Client) AnalyzeCreditEvaluation(ctx context.Context, payload map[string]interface{}) (*models.CreditEvaluation, error) {
	raw, err := c.callJSON(ctx, DocCreditEvaluation, c.cfg.CreditEvaluationURL, payload)
	if err != nil || raw == nil {
		return nil, err
	}
	return NormalizeCreditEval(raw), nil
}
