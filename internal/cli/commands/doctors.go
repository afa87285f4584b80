package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewDoctorsCmd creates the doctors command
func NewDoctorsCmd(opts ...Option) *cobra.Command {
	return &cobra.Command{
		Use:   "doctors",
		Short: "List physicians available for booking",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newEnv(append([]Option{withOutput(cmd.OutOrStdout())}, opts...)...)
			if err != nil {
				return err
			}
			svc, _, err := env.booking()
			if err != nil {
				return err
			}
			doctors, err := svc.Doctors(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list doctors: %w", err)
			}
			for _, d := range doctors {
				if d.Specialty != "" {
					fmt.Fprintf(env.out, "Dr. %s (%s)\n", d.Name, d.Specialty)
				} else {
					fmt.Fprintf(env.out, "Dr. %s\n", d.Name)
				}
			}
			return nil
		},
	}
}
