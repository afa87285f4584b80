package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/carepulse-dev/carepulse/internal/graphql"
)

// NewRegisterCmd creates the register command
func NewRegisterCmd(opts ...Option) *cobra.Command {
	var name, email, phone, password string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create a CarePulse account and sign in",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newEnv(append([]Option{withOutput(cmd.OutOrStdout())}, opts...)...)
			if err != nil {
				return err
			}

			if name, err = env.valueOrPrompt(name, "CAREPULSE_NAME", "Name", false); err != nil {
				return err
			}
			if email, err = env.valueOrPrompt(email, "CAREPULSE_EMAIL", "Email", false); err != nil {
				return err
			}
			if phone, err = env.valueOrPrompt(phone, "CAREPULSE_PHONE", "Phone", false); err != nil {
				return err
			}
			if password, err = env.valueOrPrompt(password, "CAREPULSE_PASSWORD", "Password", true); err != nil {
				return err
			}

			sess, err := env.session()
			if err != nil {
				return err
			}

			res := sess.Register(cmd.Context(), graphql.RegisterInput{
				Name:     strings.TrimSpace(name),
				Email:    strings.TrimSpace(email),
				Phone:    strings.TrimSpace(phone),
				Password: password,
			})
			if !res.Success {
				return fmt.Errorf("registration failed: %s", describeFailure(res))
			}

			fmt.Fprintln(env.out, "✓ Account created!")
			printIdentity(env, sess, res.User)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Full name (or set CAREPULSE_NAME)")
	cmd.Flags().StringVar(&email, "email", "", "Email address (or set CAREPULSE_EMAIL)")
	cmd.Flags().StringVar(&phone, "phone", "", "Phone number in E.164 format, e.g. +15551234567 (or set CAREPULSE_PHONE)")
	cmd.Flags().StringVar(&password, "password", "", "Password, at least 8 characters (or set CAREPULSE_PASSWORD, will prompt if not provided)")

	return cmd
}
