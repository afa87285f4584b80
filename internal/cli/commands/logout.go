package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewLogoutCmd creates the logout command
func NewLogoutCmd(opts ...Option) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newEnv(append([]Option{withOutput(cmd.OutOrStdout())}, opts...)...)
			if err != nil {
				return err
			}
			sess, err := env.session()
			if err != nil {
				return err
			}

			// Local state is cleared even when the server cannot be reached
			sess.Logout(cmd.Context())
			fmt.Fprintf(env.out, "✓ Logged out of %s\n", env.serverURL)
			return nil
		},
	}
}
