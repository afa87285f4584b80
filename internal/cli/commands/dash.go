package commands

import (
	"fmt"
	"os/exec"
	"runtime"

	"github.com/spf13/cobra"
)

// NewDashCmd creates the dash command
func NewDashCmd(opts ...Option) *cobra.Command {
	var admin bool

	cmd := &cobra.Command{
		Use:   "dash",
		Short: "Open the web dashboard in browser",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newEnv(append([]Option{withOutput(cmd.OutOrStdout())}, opts...)...)
			if err != nil {
				return err
			}
			return runDash(env, admin)
		},
	}

	cmd.Flags().BoolVar(&admin, "admin", false, "Open the admin dashboard")

	return cmd
}

func runDash(env *cliEnv, admin bool) error {
	dashboardURL := env.serverURL
	if admin {
		dashboardURL += "/admin"
	}

	fmt.Fprintf(env.out, "Opening %s...\n", dashboardURL)

	if err := env.openBrowser(dashboardURL); err != nil {
		return fmt.Errorf("failed to open browser: %w\nPlease visit: %s", err, dashboardURL)
	}

	return nil
}

// openBrowser opens the URL in the default browser
func openBrowser(url string) error {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}

	return cmd.Start()
}
