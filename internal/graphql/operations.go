package graphql

import (
	"context"
	"time"

	"github.com/carepulse-dev/carepulse/internal/models"
)

const (
	meQuery = `query Me {
  me { id email name phone role patient { id } }
}`

	appointmentsQuery = `query GetAppointments($status: AppointmentStatus) {
  appointments(status: $status) {
    success
    appointments {
      id primaryPhysician schedule status reason note cancellationReason createdAt
      patient { id userId user { id name email phone } }
    }
    counts { total scheduled pending cancelled }
    errors { message }
  }
}`

	appointmentStatsQuery = `query GetAppointmentStats {
  getAppointmentStats { total scheduled pending cancelled }
}`

	loginMutation = `mutation Login($input: LoginInput!) {
  login(input: $input) {
    success token
    user { id email name phone role }
    errors { field message code }
  }
}`

	registerMutation = `mutation Register($input: CreateUserInput!) {
  register(input: $input) {
    success token
    user { id email name phone role }
    errors { field message code }
  }
}`

	logoutMutation = `mutation Logout { logout }`

	scheduleAppointmentMutation = `mutation ScheduleAppointment($id: ID!, $schedule: DateTime!) {
  scheduleAppointment(id: $id, schedule: $schedule) {
    success
    appointment { id schedule status }
    errors { field message code }
  }
}`

	cancelAppointmentMutation = `mutation CancelAppointment($id: ID!, $reason: String!) {
  cancelAppointment(id: $id, reason: $reason) {
    success
    appointment { id status cancellationReason }
    errors { field message code }
  }
}`

	createGuestUserMutation = `mutation CreateGuestUser($input: CreateGuestUserInput!) {
  createGuestUser(input: $input) {
    success
    user { id email name phone role }
    patient { id userId }
    errors { field message code }
  }
}`

	patientFields = `id userId birthDate gender address occupation
      emergencyContactName emergencyContactNumber primaryPhysician
      insuranceProvider insurancePolicyNumber allergies currentMedication
      familyMedicalHistory pastMedicalHistory identificationType identificationNumber
      privacyConsent treatmentConsent disclosureConsent
      user { id name email phone }`

	registerPatientMutation = `mutation RegisterPatient($input: RegisterPatientInput!) {
  registerPatient(input: $input) {
    success
    patient { ` + patientFields + ` }
    errors { field message code }
  }
}`

	patientByUserIDQuery = `query GetPatientByUserId($userId: ID!) {
  patientByUserId(userId: $userId) { ` + patientFields + ` }
}`

	doctorsQuery = `query GetDoctors {
  doctors { id name image specialty }
}`

	createAppointmentMutation = `mutation CreateAppointment($input: CreateAppointmentInput!) {
  createAppointment(input: $input) {
    success
    appointment {
      id primaryPhysician schedule status reason note cancellationReason createdAt
      patient { id userId user { id name email } }
    }
    errors { field message code }
  }
}`

	appointmentQuery = `query GetAppointment($id: ID!) {
  appointment(id: $id) {
    id primaryPhysician schedule status reason note cancellationReason createdAt updatedAt
    patient { id userId user { id name email } }
  }
}`

	// TypenameQuery is the cheapest valid query, used for upstream probes
	TypenameQuery = `query Probe { __typename }`
)

// LoginInput is the backend's LoginInput
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RegisterInput is the backend's CreateUserInput
type RegisterInput struct {
	Name     string `json:"name" validate:"required,min=2,max=50"`
	Email    string `json:"email" validate:"required,email"`
	Phone    string `json:"phone" validate:"required,e164"`
	Password string `json:"password" validate:"required,min=8"`
}

// GuestInput is the backend's CreateGuestUserInput
type GuestInput struct {
	Name  string `json:"name" validate:"required,min=2,max=50"`
	Email string `json:"email" validate:"required,email"`
	Phone string `json:"phone" validate:"required,e164"`
}

// RegisterPatientInput is the backend's RegisterPatientInput. BirthDate is
// sent as an RFC 3339 timestamp.
type RegisterPatientInput struct {
	UserID                 string        `json:"userId" validate:"required"`
	BirthDate              time.Time     `json:"birthDate" validate:"required"`
	Gender                 models.Gender `json:"gender" validate:"required,oneof=MALE FEMALE OTHER"`
	Address                string        `json:"address" validate:"required,min=5,max=500"`
	Occupation             string        `json:"occupation" validate:"required,min=2,max=500"`
	EmergencyContactName   string        `json:"emergencyContactName" validate:"required,min=2,max=50"`
	EmergencyContactNumber string        `json:"emergencyContactNumber" validate:"required,e164"`
	PrimaryPhysician       string        `json:"primaryPhysician" validate:"required,min=2"`
	InsuranceProvider      string        `json:"insuranceProvider" validate:"required,min=2,max=50"`
	InsurancePolicyNumber  string        `json:"insurancePolicyNumber" validate:"required,min=2,max=50"`
	Allergies              string        `json:"allergies,omitempty"`
	CurrentMedication      string        `json:"currentMedication,omitempty"`
	FamilyMedicalHistory   string        `json:"familyMedicalHistory,omitempty"`
	PastMedicalHistory     string        `json:"pastMedicalHistory,omitempty"`
	IdentificationType     string        `json:"identificationType,omitempty"`
	IdentificationNumber   string        `json:"identificationNumber,omitempty"`
	PrivacyConsent         bool          `json:"privacyConsent" validate:"required"`
	TreatmentConsent       bool          `json:"treatmentConsent" validate:"required"`
	DisclosureConsent      bool          `json:"disclosureConsent" validate:"required"`
}

// CreateAppointmentInput is the backend's CreateAppointmentInput
type CreateAppointmentInput struct {
	PatientID        string    `json:"patientId" validate:"required"`
	PrimaryPhysician string    `json:"primaryPhysician" validate:"required,min=2"`
	Schedule         time.Time `json:"schedule" validate:"required"`
	Reason           string    `json:"reason" validate:"required,min=2,max=500"`
	Note             string    `json:"note,omitempty"`
}

// resultErr reports GraphQL errors that the caller must see even under
// ErrorPolicyAll: auth failures, or errors that left the result empty.
func resultErr(resp *Response, empty bool) error {
	if resp == nil || len(resp.Errors) == 0 {
		return nil
	}
	if empty || HasAuthCode(resp.Errors) {
		return &ResponseError{Errors: resp.Errors}
	}
	return nil
}

// Me fetches the current identity. A nil identity without error means anonymous.
func (c *Client) Me(ctx context.Context) (*models.Identity, error) {
	var data struct {
		Me *models.Identity `json:"me"`
	}
	resp, err := c.Query(ctx, &Operation{Name: "Me", Query: meQuery, Policy: NoCache}, &data)
	if err != nil {
		return nil, err
	}
	if err := resultErr(resp, false); err != nil {
		return nil, err
	}
	return data.Me, nil
}

// Appointments lists appointments, optionally filtered by status
func (c *Client) Appointments(ctx context.Context, status models.AppointmentStatus) (*models.AppointmentList, error) {
	vars := map[string]any{}
	if status != "" {
		vars["status"] = status
	}
	var data struct {
		Appointments *models.AppointmentList `json:"appointments"`
	}
	resp, err := c.Query(ctx, &Operation{Name: "GetAppointments", Query: appointmentsQuery, Variables: vars}, &data)
	if err != nil {
		return nil, err
	}
	if err := resultErr(resp, data.Appointments == nil); err != nil {
		return nil, err
	}
	return data.Appointments, nil
}

// AppointmentStats fetches per-status counts
func (c *Client) AppointmentStats(ctx context.Context) (*models.AppointmentStats, error) {
	var data struct {
		Stats *models.AppointmentStats `json:"getAppointmentStats"`
	}
	resp, err := c.Query(ctx, &Operation{Name: "GetAppointmentStats", Query: appointmentStatsQuery}, &data)
	if err != nil {
		return nil, err
	}
	if err := resultErr(resp, data.Stats == nil); err != nil {
		return nil, err
	}
	return data.Stats, nil
}

// Login runs the login mutation. The returned Response exposes upstream cookies.
func (c *Client) Login(ctx context.Context, input LoginInput) (*models.AuthPayload, *Response, error) {
	return c.authMutation(ctx, "Login", loginMutation, "login", input)
}

// Register runs the register mutation
func (c *Client) Register(ctx context.Context, input RegisterInput) (*models.AuthPayload, *Response, error) {
	return c.authMutation(ctx, "Register", registerMutation, "register", input)
}

func (c *Client) authMutation(ctx context.Context, name, doc, field string, input any) (*models.AuthPayload, *Response, error) {
	var data map[string]*models.AuthPayload
	resp, err := c.Mutate(ctx, &Operation{
		Name:      name,
		Query:     doc,
		Variables: map[string]any{"input": input},
	}, &data)
	if err != nil {
		return nil, resp, err
	}
	payload := data[field]
	if err := resultErr(resp, payload == nil); err != nil {
		return nil, resp, err
	}
	return payload, resp, nil
}

// Logout asks the backend to end the session
func (c *Client) Logout(ctx context.Context) (*Response, error) {
	var data struct {
		Logout bool `json:"logout"`
	}
	resp, err := c.Mutate(ctx, &Operation{Name: "Logout", Query: logoutMutation}, &data)
	if err != nil {
		return resp, err
	}
	return resp, resultErr(resp, !resp.HasData())
}

// ScheduleAppointment confirms an appointment for the given time
func (c *Client) ScheduleAppointment(ctx context.Context, id string, schedule time.Time) (*models.AppointmentResult, error) {
	return c.appointmentMutation(ctx, "ScheduleAppointment", scheduleAppointmentMutation, "scheduleAppointment",
		map[string]any{"id": id, "schedule": schedule.UTC().Format(time.RFC3339)})
}

// CancelAppointment cancels an appointment with a reason
func (c *Client) CancelAppointment(ctx context.Context, id, reason string) (*models.AppointmentResult, error) {
	return c.appointmentMutation(ctx, "CancelAppointment", cancelAppointmentMutation, "cancelAppointment",
		map[string]any{"id": id, "reason": reason})
}

func (c *Client) appointmentMutation(ctx context.Context, name, doc, field string, vars map[string]any) (*models.AppointmentResult, error) {
	var data map[string]*models.AppointmentResult
	resp, err := c.Mutate(ctx, &Operation{Name: name, Query: doc, Variables: vars}, &data)
	if err != nil {
		return nil, err
	}
	result := data[field]
	if err := resultErr(resp, result == nil); err != nil {
		return nil, err
	}
	return result, nil
}

// Ping runs the probe query and reports whether the upstream answered
func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.Query(ctx, &Operation{Name: "Probe", Query: TypenameQuery, Policy: NoCache}, nil)
	if err != nil {
		return err
	}
	return resultErr(resp, !resp.HasData())
}

// CreateGuestUser creates a password-less user with a minimal patient record
func (c *Client) CreateGuestUser(ctx context.Context, input GuestInput) (*models.GuestPayload, error) {
	var data struct {
		Payload *models.GuestPayload `json:"createGuestUser"`
	}
	resp, err := c.Mutate(ctx, &Operation{
		Name:      "CreateGuestUser",
		Query:     createGuestUserMutation,
		Variables: map[string]any{"input": input},
	}, &data)
	if err != nil {
		return nil, err
	}
	if err := resultErr(resp, data.Payload == nil); err != nil {
		return nil, err
	}
	return data.Payload, nil
}

// RegisterPatient completes the patient profile of an existing user
func (c *Client) RegisterPatient(ctx context.Context, input RegisterPatientInput) (*models.PatientResult, error) {
	input.BirthDate = input.BirthDate.UTC()
	var data struct {
		Payload *models.PatientResult `json:"registerPatient"`
	}
	resp, err := c.Mutate(ctx, &Operation{
		Name:      "RegisterPatient",
		Query:     registerPatientMutation,
		Variables: map[string]any{"input": input},
	}, &data)
	if err != nil {
		return nil, err
	}
	if err := resultErr(resp, data.Payload == nil); err != nil {
		return nil, err
	}
	return data.Payload, nil
}

// PatientByUserID fetches the patient record of a user. A nil patient
// without error means the user has not registered as a patient.
func (c *Client) PatientByUserID(ctx context.Context, userID string) (*models.Patient, error) {
	var data struct {
		Patient *models.Patient `json:"patientByUserId"`
	}
	resp, err := c.Query(ctx, &Operation{
		Name:      "GetPatientByUserId",
		Query:     patientByUserIDQuery,
		Variables: map[string]any{"userId": userID},
		Policy:    NoCache,
	}, &data)
	if err != nil {
		return nil, err
	}
	if err := resultErr(resp, data.Patient == nil); err != nil {
		return nil, err
	}
	return data.Patient, nil
}

// Doctors lists the physicians available for booking
func (c *Client) Doctors(ctx context.Context) ([]models.Doctor, error) {
	var data struct {
		Doctors []models.Doctor `json:"doctors"`
	}
	resp, err := c.Query(ctx, &Operation{Name: "GetDoctors", Query: doctorsQuery}, &data)
	if err != nil {
		return nil, err
	}
	if err := resultErr(resp, data.Doctors == nil); err != nil {
		return nil, err
	}
	return data.Doctors, nil
}

// CreateAppointment requests a new appointment. It starts out PENDING.
func (c *Client) CreateAppointment(ctx context.Context, input CreateAppointmentInput) (*models.AppointmentResult, error) {
	input.Schedule = input.Schedule.UTC()
	return c.appointmentMutation(ctx, "CreateAppointment", createAppointmentMutation, "createAppointment",
		map[string]any{"input": input})
}

// Appointment fetches one appointment. A nil appointment without error means not found.
func (c *Client) Appointment(ctx context.Context, id string) (*models.Appointment, error) {
	var data struct {
		Appointment *models.Appointment `json:"appointment"`
	}
	resp, err := c.Query(ctx, &Operation{
		Name:      "GetAppointment",
		Query:     appointmentQuery,
		Variables: map[string]any{"id": id},
	}, &data)
	if err != nil {
		return nil, err
	}
	if err := resultErr(resp, data.Appointment == nil); err != nil {
		return nil, err
	}
	return data.Appointment, nil
}
