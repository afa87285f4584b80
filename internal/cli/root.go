package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/carepulse-dev/carepulse/internal/cli/commands"
)

var version = "dev" // Will be set during build

// NewRootCmd assembles the carepulse command tree
func NewRootCmd(opts ...commands.Option) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "carepulse",
		Short: "CarePulse - healthcare appointments from the terminal",
		Long: `CarePulse CLI - Sign in to a CarePulse server, check your session and
book appointments as a patient.

Credentials are kept in the OS keychain, one entry per server.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "carepulse version %s\n", version)
		},
	})

	rootCmd.AddCommand(commands.NewLoginCmd(opts...))
	rootCmd.AddCommand(commands.NewRegisterCmd(opts...))
	rootCmd.AddCommand(commands.NewLogoutCmd(opts...))
	rootCmd.AddCommand(commands.NewWhoamiCmd(opts...))
	rootCmd.AddCommand(commands.NewDashCmd(opts...))
	rootCmd.AddCommand(commands.NewPatientCmd(opts...))
	rootCmd.AddCommand(commands.NewAppointmentCmd(opts...))
	rootCmd.AddCommand(commands.NewDoctorsCmd(opts...))
	rootCmd.AddCommand(commands.NewConfigCmd(commands.PromptServerSelection))

	return rootCmd
}

// Execute runs the root command
func Execute() error {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}
