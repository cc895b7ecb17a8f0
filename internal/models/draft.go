// internal/models/draft.go
package models

import "time"

// StoredFile references an uploaded document staged for final submission.
// The bytes live in the draft store under Key until the fan-out uploads them
// to object storage.
type StoredFile struct {
	Name        string `json:"name"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
	Key         string `json:"key"`
	Role        string `json:"role"`
}

// Document roles, used for bucket selection and object path namespacing.
const (
	RoleAssetPhoto     = "asset-photo"
	RoleHomePhoto      = "home-photo"
	RoleBusinessPhoto  = "business-photo"
	RoleBankStatement  = "bank-statement"
	RoleMpesaStatement = "mpesa-statement"
	RoleIDDocument     = "id-document"
	RoleGuarantor1ID   = "guarantor1-id"
	RoleGuarantor2ID   = "guarantor2-id"
	RoleCallLogExport  = "call-log-export"
	RolePrescription   = "prescription"
	RoleDrugImage      = "drug-image"
)

// ApplicationDraft is the in-flight form state for one session. It lives in
// the draft store for the lifetime of the form fill and is deleted after a
// successful submit.
type ApplicationDraft struct {
	SessionID string `json:"sessionId"`
	UserID    string `json:"userId"`
	Step      int    `json:"step"`
	Submitted bool   `json:"submitted"`

	// Step 1: contact & occupation
	PhoneNumber      string `json:"phoneNumber"`
	Email            string `json:"email,omitempty"`
	EmploymentSector string `json:"employmentSector"`
	WorkType         string `json:"workType"`
	MonthlyIncome    string `json:"monthlyIncome,omitempty"`

	// Step 2: personal & medical. Gender and date of birth come from the ID
	// document analysis, not free-form input.
	FullName         string       `json:"fullName,omitempty"`
	Gender           string       `json:"gender,omitempty"`
	DateOfBirth      string       `json:"dateOfBirth,omitempty"`
	IDNumber         string       `json:"idNumber,omitempty"`
	ChronicCondition string       `json:"chronicCondition,omitempty"`
	IDDocument       *StoredFile  `json:"idDocument,omitempty"`
	Prescriptions    []StoredFile `json:"prescriptions,omitempty"`
	DrugImages       []StoredFile `json:"drugImages,omitempty"`

	// Step 3: assets & financial documents
	AssetPictures  []StoredFile `json:"assetPictures,omitempty"`
	HomePhoto      *StoredFile  `json:"homePhoto,omitempty"`
	BusinessPhoto  *StoredFile  `json:"businessPhoto,omitempty"`
	BankStatement  *StoredFile  `json:"bankStatement,omitempty"`
	MpesaStatement *StoredFile  `json:"mpesaStatement,omitempty"`
	CallLogExport  *StoredFile  `json:"callLogExport,omitempty"`

	// Step 4: guarantors
	Guarantor1Phone string      `json:"guarantor1Phone,omitempty"`
	Guarantor2Phone string      `json:"guarantor2Phone,omitempty"`
	Guarantor1ID    *StoredFile `json:"guarantor1Id,omitempty"`
	Guarantor2ID    *StoredFile `json:"guarantor2Id,omitempty"`

	// Captured device location, persisted as gps_analysis when present.
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`

	Analyses DraftAnalyses `json:"analyses"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Files returns every collected file, for the submission fan-out.
func (d *ApplicationDraft) Files() []StoredFile {
	var files []StoredFile
	files = append(files, d.AssetPictures...)
	files = append(files, d.Prescriptions...)
	files = append(files, d.DrugImages...)
	for _, f := range []*StoredFile{
		d.IDDocument, d.HomePhoto, d.BusinessPhoto,
		d.BankStatement, d.MpesaStatement, d.CallLogExport,
		d.Guarantor1ID, d.Guarantor2ID,
	} {
		if f != nil {
			files = append(files, *f)
		}
	}
	return files
}
