package models

import (
	"strings"
	"time"
)

// Role is the authorization level of an authenticated user
type Role string

const (
	RoleAdmin Role = "ADMIN"
	RoleUser  Role = "USER"
)

// PatientRef links a user account to its patient record
type PatientRef struct {
	ID string `json:"id"`
}

// Identity is the authenticated user as reported by the backend's `me` query.
// It is resolved per request and never persisted by the front end.
type Identity struct {
	ID      string      `json:"id"`
	Email   string      `json:"email"`
	Name    string      `json:"name"`
	Phone   string      `json:"phone"`
	Role    Role        `json:"role"`
	Patient *PatientRef `json:"patient,omitempty"`
}

// IsAdmin reports whether the identity carries the ADMIN role
func (i *Identity) IsAdmin() bool {
	return i != nil && i.Role == RoleAdmin
}

// FirstName returns the first word of the user's name, used in greetings
func (i *Identity) FirstName() string {
	if i == nil {
		return ""
	}
	if fields := strings.Fields(i.Name); len(fields) > 0 {
		return fields[0]
	}
	return i.Email
}

// FieldError is a validation or business error reported by the backend
type FieldError struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// AuthPayload is returned by the login and register mutations
type AuthPayload struct {
	Success bool         `json:"success"`
	Token   string       `json:"token,omitempty"`
	User    *Identity    `json:"user,omitempty"`
	Errors  []FieldError `json:"errors,omitempty"`
}

// FirstError returns the first payload error message or fallback
func (p *AuthPayload) FirstError(fallback string) string {
	if p != nil {
		for _, e := range p.Errors {
			if e.Message != "" {
				return e.Message
			}
		}
	}
	return fallback
}

// AppointmentStatus mirrors the backend enum
type AppointmentStatus string

const (
	StatusPending   AppointmentStatus = "PENDING"
	StatusScheduled AppointmentStatus = "SCHEDULED"
	StatusCancelled AppointmentStatus = "CANCELLED"
)

// Gender mirrors the backend enum
type Gender string

const (
	GenderMale   Gender = "MALE"
	GenderFemale Gender = "FEMALE"
	GenderOther  Gender = "OTHER"
)

// Patient is a patient record. Only ID and UserID are always present; the
// profile fields are filled by queries that select them.
type Patient struct {
	ID     string    `json:"id"`
	UserID string    `json:"userId"`
	User   *Identity `json:"user,omitempty"`

	BirthDate              *time.Time `json:"birthDate,omitempty"`
	Gender                 Gender     `json:"gender,omitempty"`
	Address                string     `json:"address,omitempty"`
	Occupation             string     `json:"occupation,omitempty"`
	EmergencyContactName   string     `json:"emergencyContactName,omitempty"`
	EmergencyContactNumber string     `json:"emergencyContactNumber,omitempty"`
	PrimaryPhysician       string     `json:"primaryPhysician,omitempty"`
	InsuranceProvider      string     `json:"insuranceProvider,omitempty"`
	InsurancePolicyNumber  string     `json:"insurancePolicyNumber,omitempty"`
	Allergies              string     `json:"allergies,omitempty"`
	CurrentMedication      string     `json:"currentMedication,omitempty"`
	FamilyMedicalHistory   string     `json:"familyMedicalHistory,omitempty"`
	PastMedicalHistory     string     `json:"pastMedicalHistory,omitempty"`
	IdentificationType     string     `json:"identificationType,omitempty"`
	IdentificationNumber   string     `json:"identificationNumber,omitempty"`
	PrivacyConsent         bool       `json:"privacyConsent,omitempty"`
	TreatmentConsent       bool       `json:"treatmentConsent,omitempty"`
	DisclosureConsent      bool       `json:"disclosureConsent,omitempty"`
}

// Doctor is a physician a patient can book with
type Doctor struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Image     string `json:"image"`
	Specialty string `json:"specialty,omitempty"`
}

// GuestPayload is returned by createGuestUser: a password-less user and its
// minimal patient record.
type GuestPayload struct {
	Success bool         `json:"success"`
	User    *Identity    `json:"user,omitempty"`
	Patient *Patient     `json:"patient,omitempty"`
	Errors  []FieldError `json:"errors,omitempty"`
}

// PatientResult is returned by registerPatient
type PatientResult struct {
	Success bool         `json:"success"`
	Patient *Patient     `json:"patient,omitempty"`
	Errors  []FieldError `json:"errors,omitempty"`
}

// Appointment is a single appointment request
type Appointment struct {
	ID                 string            `json:"id"`
	PrimaryPhysician   string            `json:"primaryPhysician"`
	Schedule           time.Time         `json:"schedule"`
	Status             AppointmentStatus `json:"status"`
	Reason             string            `json:"reason"`
	Note               string            `json:"note"`
	CancellationReason string            `json:"cancellationReason"`
	CreatedAt          time.Time         `json:"createdAt"`
	UpdatedAt          time.Time         `json:"updatedAt,omitempty"`
	Patient            *Patient          `json:"patient,omitempty"`
}

// PatientName returns the display name of the appointment's patient
func (a Appointment) PatientName() string {
	if a.Patient != nil && a.Patient.User != nil {
		return a.Patient.User.Name
	}
	return ""
}

// AppointmentStats holds per-status appointment counts
type AppointmentStats struct {
	Total     int `json:"total"`
	Scheduled int `json:"scheduled"`
	Pending   int `json:"pending"`
	Cancelled int `json:"cancelled"`
}

// AppointmentList is the payload of the appointments query
type AppointmentList struct {
	Success      bool             `json:"success"`
	Appointments []Appointment    `json:"appointments"`
	Counts       AppointmentStats `json:"counts"`
	Errors       []FieldError     `json:"errors,omitempty"`
}

// AppointmentResult is returned by the create, schedule and cancel mutations
type AppointmentResult struct {
	Success     bool         `json:"success"`
	Appointment *Appointment `json:"appointment,omitempty"`
	Errors      []FieldError `json:"errors,omitempty"`
}
