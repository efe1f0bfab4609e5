package dto

import (
	"time"

	"hospicore/internal/core/types"
)

// --- Care episodes ---

// AdmitEpisodeRequest opens a care episode for a patient.
type AdmitEpisodeRequest struct {
	PatientName     string `json:"patientName" binding:"required"`
	PatientNumber   string `json:"patientNumber"`
	Diagnosis       string `json:"diagnosis"`
	AttendingDoctor string `json:"attendingDoctor"`
	Comment         string `json:"comment"`
}

// RecordUsageRequest records products consumed during an episode.
type RecordUsageRequest struct {
	Items []DemandLine `json:"items" binding:"required,min=1"`
}

// --- Examinations ---

// ScheduleExaminationRequest schedules a diagnostic act.
type ScheduleExaminationRequest struct {
	PatientName     string    `json:"patientName" binding:"required"`
	ExaminationType string    `json:"examinationType" binding:"required"`
	ScheduledAt     time.Time `json:"scheduledAt" binding:"required"`
	EpisodeID       string    `json:"episodeId"`
	Price           string    `json:"price"`
	Comment         string    `json:"comment"`
}

// CompleteExaminationRequest records the practitioner's findings.
type CompleteExaminationRequest struct {
	Result string `json:"result" binding:"required"`
}

// --- Prescriptions ---

// PrescriptionLineRequest is one ordered product.
type PrescriptionLineRequest struct {
	ProductID string         `json:"productId" binding:"required"`
	Quantity  types.Quantity `json:"quantity" binding:"required"`
	Dosage    string         `json:"dosage"`
}

// CreatePrescriptionRequest creates a pending prescription.
type CreatePrescriptionRequest struct {
	PatientName  string                    `json:"patientName" binding:"required"`
	PrescribedBy string                    `json:"prescribedBy" binding:"required"`
	EpisodeID    string                    `json:"episodeId"`
	Lines        []PrescriptionLineRequest `json:"lines" binding:"required,min=1"`
	Comment      string                    `json:"comment"`
}
