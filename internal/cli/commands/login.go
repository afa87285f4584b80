package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/carepulse-dev/carepulse/internal/graphql"
	"github.com/carepulse-dev/carepulse/internal/models"
	"github.com/carepulse-dev/carepulse/internal/session"
)

// NewLoginCmd creates the login command
func NewLoginCmd(opts ...Option) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to a CarePulse server",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newEnv(append([]Option{withOutput(cmd.OutOrStdout())}, opts...)...)
			if err != nil {
				return err
			}
			return runLogin(cmd, env, email, password)
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email address (or set CAREPULSE_EMAIL)")
	cmd.Flags().StringVar(&password, "password", "", "Password (or set CAREPULSE_PASSWORD, will prompt if not provided)")

	return cmd
}

func runLogin(cmd *cobra.Command, env *cliEnv, email, password string) error {
	email, err := env.valueOrPrompt(email, "CAREPULSE_EMAIL", "Email", false)
	if err != nil {
		return err
	}
	password, err = env.valueOrPrompt(password, "CAREPULSE_PASSWORD", "Password", true)
	if err != nil {
		return err
	}

	sess, err := env.session()
	if err != nil {
		return err
	}

	fmt.Fprintf(env.out, "Logging in to %s...\n", env.serverURL)

	res := sess.Login(cmd.Context(), graphql.LoginInput{
		Email:    strings.TrimSpace(email),
		Password: password,
	})
	if !res.Success {
		return fmt.Errorf("login failed: %s", describeFailure(res))
	}

	fmt.Fprintln(env.out, "✓ Login successful!")
	printIdentity(env, sess, res.User)
	return nil
}

// describeFailure joins field errors as "field: message"
func describeFailure(res session.AuthResult) string {
	parts := make([]string, 0, len(res.Errors))
	for _, e := range res.Errors {
		if e.Field != "" {
			parts = append(parts, e.Field+": "+e.Message)
		} else {
			parts = append(parts, e.Message)
		}
	}
	return strings.Join(parts, "; ")
}

func printIdentity(env *cliEnv, sess *session.Session, user *models.Identity) {
	if user == nil {
		return
	}
	fmt.Fprintf(env.out, "  User: %s (%s)\n", user.Name, user.Email)
	if user.IsAdmin() {
		fmt.Fprintln(env.out, "  Role: Admin")
	}
	if exp, ok := sess.TokenExpiry(); ok {
		fmt.Fprintf(env.out, "  Session expires: %s\n", exp.Local().Format(time.RFC1123))
	}
}
