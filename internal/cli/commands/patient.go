package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/carepulse-dev/carepulse/internal/graphql"
	"github.com/carepulse-dev/carepulse/internal/models"
	"github.com/carepulse-dev/carepulse/internal/session"
)

// NewPatientCmd groups the patient onboarding commands
func NewPatientCmd(opts ...Option) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "patient",
		Short: "Create a guest patient and complete the patient profile",
	}
	cmd.AddCommand(newPatientStartCmd(opts...))
	cmd.AddCommand(newPatientRegisterCmd(opts...))
	return cmd
}

func newPatientStartCmd(opts ...Option) *cobra.Command {
	var in graphql.GuestInput

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Create a guest account for booking without a password",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newEnv(append([]Option{withOutput(cmd.OutOrStdout())}, opts...)...)
			if err != nil {
				return err
			}
			if in.Name, err = env.valueOrPrompt(in.Name, "CAREPULSE_NAME", "Full name", false); err != nil {
				return err
			}
			if in.Email, err = env.valueOrPrompt(in.Email, "CAREPULSE_EMAIL", "Email", false); err != nil {
				return err
			}
			if in.Phone, err = env.valueOrPrompt(in.Phone, "CAREPULSE_PHONE", "Phone", false); err != nil {
				return err
			}

			svc, _, err := env.booking()
			if err != nil {
				return err
			}
			payload, err := svc.StartGuest(cmd.Context(), in)
			if err != nil {
				return fmt.Errorf("failed to create account: %w", err)
			}

			fmt.Fprintln(env.out, "✓ Guest account created")
			fmt.Fprintf(env.out, "  User ID: %s\n", payload.User.ID)
			fmt.Fprintf(env.out, "  Patient ID: %s\n", payload.Patient.ID)
			fmt.Fprintf(env.out, "\nNext: carepulse patient register --user %s\n", payload.User.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&in.Name, "name", "", "Full name (or set CAREPULSE_NAME)")
	cmd.Flags().StringVar(&in.Email, "email", "", "Email address (or set CAREPULSE_EMAIL)")
	cmd.Flags().StringVar(&in.Phone, "phone", "", "Phone number in international format (or set CAREPULSE_PHONE)")

	return cmd
}

func newPatientRegisterCmd(opts ...Option) *cobra.Command {
	var (
		in        graphql.RegisterPatientInput
		birthDate string
		gender    string
		consent   bool
	)

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Complete the patient profile for a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newEnv(append([]Option{withOutput(cmd.OutOrStdout())}, opts...)...)
			if err != nil {
				return err
			}
			svc, sess, err := env.booking()
			if err != nil {
				return err
			}

			if in.UserID, err = resolveUserID(cmd.Context(), sess, in.UserID); err != nil {
				return err
			}
			if birthDate != "" {
				in.BirthDate, err = time.ParseInLocation(time.DateOnly, birthDate, time.Local)
				if err != nil {
					return fmt.Errorf("invalid --birth-date %q, expected YYYY-MM-DD", birthDate)
				}
			}
			in.Gender = models.Gender(strings.ToUpper(strings.TrimSpace(gender)))
			in.PrivacyConsent, in.TreatmentConsent, in.DisclosureConsent = consent, consent, consent

			patient, err := svc.RegisterPatient(cmd.Context(), in)
			if err != nil {
				return fmt.Errorf("registration failed: %w", err)
			}

			fmt.Fprintln(env.out, "✓ Patient profile saved")
			fmt.Fprintf(env.out, "  Patient ID: %s\n", patient.ID)
			fmt.Fprintf(env.out, "\nNext: carepulse appointment request --user %s\n", in.UserID)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&in.UserID, "user", "", "User ID (defaults to the signed-in user)")
	f.StringVar(&birthDate, "birth-date", "", "Date of birth, YYYY-MM-DD")
	f.StringVar(&gender, "gender", "", "male, female or other")
	f.StringVar(&in.Address, "address", "", "Home address")
	f.StringVar(&in.Occupation, "occupation", "", "Occupation")
	f.StringVar(&in.EmergencyContactName, "emergency-name", "", "Emergency contact name")
	f.StringVar(&in.EmergencyContactNumber, "emergency-phone", "", "Emergency contact phone")
	f.StringVar(&in.PrimaryPhysician, "physician", "", "Primary physician (see 'carepulse doctors')")
	f.StringVar(&in.InsuranceProvider, "insurance-provider", "", "Insurance provider")
	f.StringVar(&in.InsurancePolicyNumber, "policy-number", "", "Insurance policy number")
	f.StringVar(&in.Allergies, "allergies", "", "Allergies, if any")
	f.StringVar(&in.CurrentMedication, "medication", "", "Current medication, if any")
	f.StringVar(&in.FamilyMedicalHistory, "family-history", "", "Family medical history")
	f.StringVar(&in.PastMedicalHistory, "past-history", "", "Past medical history")
	f.StringVar(&in.IdentificationType, "id-type", "", "Identification document type")
	f.StringVar(&in.IdentificationNumber, "id-number", "", "Identification document number")
	f.BoolVar(&consent, "consent", false, "Accept the treatment, disclosure and privacy consents")

	return cmd
}

// resolveUserID returns flag, or the signed-in user's ID when flag is empty
func resolveUserID(ctx context.Context, sess *session.Session, flag string) (string, error) {
	if flag = strings.TrimSpace(flag); flag != "" {
		return flag, nil
	}
	me, err := sess.CurrentUser(ctx)
	if err != nil {
		return "", err
	}
	if me == nil {
		return "", fmt.Errorf("--user is required when %w", ErrNotLoggedIn)
	}
	return me.ID, nil
}
