package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/carepulse-dev/carepulse/internal/booking"
	"github.com/carepulse-dev/carepulse/internal/models"
)

// NewAppointmentCmd groups the patient appointment commands
func NewAppointmentCmd(opts ...Option) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "appointment",
		Short: "Request and look up appointments",
	}
	cmd.AddCommand(newAppointmentRequestCmd(opts...))
	cmd.AddCommand(newAppointmentShowCmd(opts...))
	return cmd
}

func newAppointmentRequestCmd(opts ...Option) *cobra.Command {
	var (
		userID string
		at     string
		req    booking.AppointmentRequest
	)

	cmd := &cobra.Command{
		Use:   "request",
		Short: "Request a new appointment",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newEnv(append([]Option{withOutput(cmd.OutOrStdout())}, opts...)...)
			if err != nil {
				return err
			}
			svc, sess, err := env.booking()
			if err != nil {
				return err
			}
			if userID, err = resolveUserID(cmd.Context(), sess, userID); err != nil {
				return err
			}
			if at != "" {
				if req.Schedule, err = parseWhen(at); err != nil {
					return err
				}
			}

			appt, err := svc.RequestAppointment(cmd.Context(), userID, req)
			if err != nil {
				return fmt.Errorf("appointment request failed: %w", err)
			}

			fmt.Fprintln(env.out, "✓ Appointment request submitted!")
			fmt.Fprintln(env.out, "Your appointment request has been received and is pending confirmation.")

			// Reload the way the confirmation page does; fall back to the mutation result
			if full, err := svc.Confirmation(cmd.Context(), appt.ID); err == nil {
				appt = full
			} else {
				env.log.Warn().Err(err).Str("appointment_id", appt.ID).Msg("Failed to load appointment details")
			}
			printAppointment(env, appt)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&userID, "user", "", "User ID (defaults to the signed-in user)")
	f.StringVar(&req.PrimaryPhysician, "doctor", "", "Physician to book with (see 'carepulse doctors')")
	f.StringVar(&at, "at", "", "Requested time, RFC 3339 or 'YYYY-MM-DD HH:MM' local time")
	f.StringVar(&req.Reason, "reason", "", "Reason for the appointment")
	f.StringVar(&req.Note, "note", "", "Additional comments")

	return cmd
}

func newAppointmentShowCmd(opts ...Option) *cobra.Command {
	return &cobra.Command{
		Use:   "show <appointment-id>",
		Short: "Show an appointment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newEnv(append([]Option{withOutput(cmd.OutOrStdout())}, opts...)...)
			if err != nil {
				return err
			}
			svc, _, err := env.booking()
			if err != nil {
				return err
			}
			appt, err := svc.Confirmation(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printAppointment(env, appt)
			return nil
		},
	}
}

var whenLayouts = []string{"2006-01-02 15:04", "2006-01-02T15:04"}

// parseWhen accepts RFC 3339 or a minute-precision local time
func parseWhen(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	for _, layout := range whenLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid --at %q, expected RFC 3339 or YYYY-MM-DD HH:MM", s)
}

func printAppointment(env *cliEnv, appt *models.Appointment) {
	fmt.Fprintf(env.out, "  Appointment: %s\n", appt.ID)
	fmt.Fprintf(env.out, "  Status: %s\n", appt.Status)
	if appt.PrimaryPhysician != "" {
		fmt.Fprintf(env.out, "  Doctor: Dr. %s\n", appt.PrimaryPhysician)
	}
	if !appt.Schedule.IsZero() {
		fmt.Fprintf(env.out, "  When: %s\n", appt.Schedule.Local().Format("Jan 2, 2006 3:04 PM"))
	}
	if name := appt.PatientName(); name != "" {
		fmt.Fprintf(env.out, "  Patient: %s\n", name)
	}
	if appt.Reason != "" {
		fmt.Fprintf(env.out, "  Reason: %s\n", appt.Reason)
	}
	if appt.CancellationReason != "" {
		fmt.Fprintf(env.out, "  Cancellation reason: %s\n", appt.CancellationReason)
	}
}
