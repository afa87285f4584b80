package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

// ErrNotLoggedIn is returned by whoami when there is no valid session
var ErrNotLoggedIn = errors.New("not logged in. Please run 'carepulse login' first")

// NewWhoamiCmd creates the whoami command
func NewWhoamiCmd(opts ...Option) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newEnv(append([]Option{withOutput(cmd.OutOrStdout())}, opts...)...)
			if err != nil {
				return err
			}
			sess, err := env.session()
			if err != nil {
				return err
			}

			user, err := sess.CurrentUser(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to reach %s: %w", env.serverURL, err)
			}
			if user == nil {
				return ErrNotLoggedIn
			}

			fmt.Fprintf(env.out, "Signed in to %s\n", env.serverURL)
			printIdentity(env, sess, user)
			return nil
		},
	}
}
