// Package booking runs the patient journey: a guest account, the full
// patient profile, then an appointment request that starts out PENDING.
package booking

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/carepulse-dev/carepulse/internal/graphql"
	"github.com/carepulse-dev/carepulse/internal/models"
	"github.com/carepulse-dev/carepulse/internal/validation"
)

var (
	// ErrPatientNotFound means the user has no patient record yet
	ErrPatientNotFound = errors.New("patient not found. Please register as a patient first before booking an appointment")
	// ErrAppointmentNotFound means the appointment id is unknown
	ErrAppointmentNotFound = errors.New("appointment not found")
)

const (
	msgGuestFailed       = "Failed to create account"
	msgRegisterFailed    = "Failed to register patient"
	msgAppointmentFailed = "Failed to create appointment"
)

// DefaultDoctors is offered when the backend has no physicians configured
var DefaultDoctors = []models.Doctor{
	{Name: "John Green", Image: "/assets/images/dr-green.png"},
	{Name: "Leila Cameron", Image: "/assets/images/dr-cameron.png"},
	{Name: "David Livingston", Image: "/assets/images/dr-livingston.png"},
	{Name: "Evan Peter", Image: "/assets/images/dr-peter.png"},
	{Name: "Jane Powell", Image: "/assets/images/dr-powell.png"},
	{Name: "Alex Ramirez", Image: "/assets/images/dr-remirez.png"},
	{Name: "Jasmine Lee", Image: "/assets/images/dr-lee.png"},
	{Name: "Alyana Cruz", Image: "/assets/images/dr-cruz.png"},
	{Name: "Hardik Sharma", Image: "/assets/images/dr-sharma.png"},
}

// Failure carries user-facing problems: input that failed validation or
// errors the backend reported in a mutation payload.
type Failure struct {
	Errors []models.FieldError
}

func (f *Failure) Error() string {
	parts := make([]string, 0, len(f.Errors))
	for _, e := range f.Errors {
		if e.Field != "" {
			parts = append(parts, e.Field+": "+e.Message)
		} else {
			parts = append(parts, e.Message)
		}
	}
	return strings.Join(parts, "; ")
}

func fail(field, msg string) *Failure {
	return &Failure{Errors: []models.FieldError{{Field: field, Message: msg, Code: "VALIDATION_ERROR"}}}
}

func payloadFailure(errs []models.FieldError, fallback string) *Failure {
	if len(errs) > 0 {
		return &Failure{Errors: errs}
	}
	return &Failure{Errors: []models.FieldError{{Message: fallback}}}
}

// Client is the GraphQL surface the journey needs
type Client interface {
	CreateGuestUser(ctx context.Context, input graphql.GuestInput) (*models.GuestPayload, error)
	RegisterPatient(ctx context.Context, input graphql.RegisterPatientInput) (*models.PatientResult, error)
	PatientByUserID(ctx context.Context, userID string) (*models.Patient, error)
	Doctors(ctx context.Context) ([]models.Doctor, error)
	CreateAppointment(ctx context.Context, input graphql.CreateAppointmentInput) (*models.AppointmentResult, error)
	Appointment(ctx context.Context, id string) (*models.Appointment, error)
}

// AppointmentRequest is what a patient fills in to book
type AppointmentRequest struct {
	PrimaryPhysician string
	Schedule         time.Time
	Reason           string
	Note             string
}

// Service validates journey input and calls the backend
type Service struct {
	client   Client
	log      zerolog.Logger
	validate *validator.Validate
	now      func() time.Time
}

// New creates a booking service
func New(client Client, logger zerolog.Logger) *Service {
	return &Service{
		client:   client,
		log:      logger,
		validate: validation.New(),
		now:      time.Now,
	}
}

// StartGuest creates a password-less account and its minimal patient record
func (s *Service) StartGuest(ctx context.Context, input graphql.GuestInput) (*models.GuestPayload, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Email = strings.TrimSpace(input.Email)
	input.Phone = strings.ReplaceAll(input.Phone, " ", "")
	if err := s.validate.Struct(input); err != nil {
		return nil, &Failure{Errors: validation.FieldErrors(err)}
	}

	payload, err := s.client.CreateGuestUser(ctx, input)
	if err != nil {
		return nil, err
	}
	if !payload.Success || payload.User == nil || payload.Patient == nil {
		return nil, payloadFailure(payload.Errors, msgGuestFailed)
	}
	s.log.Info().Str("user_id", payload.User.ID).Msg("Guest account created")
	return payload, nil
}

// RegisterPatient completes the patient profile
func (s *Service) RegisterPatient(ctx context.Context, input graphql.RegisterPatientInput) (*models.Patient, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, &Failure{Errors: validation.FieldErrors(err)}
	}
	if !input.BirthDate.Before(s.now()) {
		return nil, fail("birthDate", "Birth date must be in the past")
	}

	res, err := s.client.RegisterPatient(ctx, input)
	if err != nil {
		return nil, err
	}
	if !res.Success || res.Patient == nil {
		return nil, payloadFailure(res.Errors, msgRegisterFailed)
	}
	s.log.Info().Str("user_id", input.UserID).Str("patient_id", res.Patient.ID).Msg("Patient registered")
	return res.Patient, nil
}

// RequestAppointment books for the patient record of userID
func (s *Service) RequestAppointment(ctx context.Context, userID string, req AppointmentRequest) (*models.Appointment, error) {
	patient, err := s.client.PatientByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if patient == nil {
		return nil, ErrPatientNotFound
	}

	input := graphql.CreateAppointmentInput{
		PatientID:        patient.ID,
		PrimaryPhysician: strings.TrimSpace(req.PrimaryPhysician),
		Schedule:         req.Schedule,
		Reason:           strings.TrimSpace(req.Reason),
		Note:             strings.TrimSpace(req.Note),
	}
	if err := s.validate.Struct(input); err != nil {
		return nil, &Failure{Errors: validation.FieldErrors(err)}
	}
	if !input.Schedule.After(s.now()) {
		return nil, fail("schedule", "Appointment schedule must be in the future")
	}

	res, err := s.client.CreateAppointment(ctx, input)
	if err != nil {
		return nil, err
	}
	if !res.Success || res.Appointment == nil {
		return nil, payloadFailure(res.Errors, msgAppointmentFailed)
	}
	s.log.Info().Str("appointment_id", res.Appointment.ID).Str("patient_id", patient.ID).Msg("Appointment requested")
	return res.Appointment, nil
}

// Confirmation loads a booked appointment for the success view
func (s *Service) Confirmation(ctx context.Context, appointmentID string) (*models.Appointment, error) {
	if strings.TrimSpace(appointmentID) == "" {
		return nil, ErrAppointmentNotFound
	}
	appt, err := s.client.Appointment(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if appt == nil {
		return nil, ErrAppointmentNotFound
	}
	return appt, nil
}

// Doctors lists bookable physicians, falling back to DefaultDoctors when the
// backend returns none.
func (s *Service) Doctors(ctx context.Context) ([]models.Doctor, error) {
	doctors, err := s.client.Doctors(ctx)
	if err != nil {
		return nil, err
	}
	if len(doctors) == 0 {
		return DefaultDoctors, nil
	}
	return doctors, nil
}
