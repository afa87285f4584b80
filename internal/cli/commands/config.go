package commands

import (
	"errors"
	"fmt"
	"os"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/carepulse-dev/carepulse/internal/cli/userconfig"
)

// ServerSelector picks one of the previously used servers
type ServerSelector func(servers []string) (string, error)

// NewConfigCmd creates the config command group
func NewConfigCmd(selectServer ServerSelector) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage local CLI configuration",
	}
	cmd.AddCommand(newSetServerCmd(selectServer), newShowConfigCmd())
	return cmd
}

func newSetServerCmd(selectServer ServerSelector) *cobra.Command {
	var authMode string

	cmd := &cobra.Command{
		Use:   "set-server [url]",
		Short: "Select the CarePulse server to use",
		Long: `Select the CarePulse server to use.

Without an argument, choose interactively from previously used servers.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var serverURL string
			if len(args) == 1 {
				serverURL = args[0]
			} else {
				current, err := userconfig.Load()
				if err != nil {
					return err
				}
				if len(current.KnownServers) == 0 {
					return errors.New("no servers configured yet, pass a URL: carepulse config set-server https://...")
				}
				if serverURL, err = selectServer(current.KnownServers); err != nil {
					return err
				}
			}

			cfg, err := userconfig.SetServer(serverURL, authMode)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "✓ Using %s\n", cfg.ServerURL)
			return nil
		},
	}

	cmd.Flags().StringVar(&authMode, "auth-mode", "", `Credential mode: "cookie" (default) or "bearer"`)

	return cmd
}

func newShowConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := userconfig.Load()
			if err != nil {
				return err
			}
			mode, err := cfg.Mode()
			if err != nil {
				return err
			}
			path, err := userconfig.GetConfigPath()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config file: %s\n", path)
			fmt.Fprintf(out, "Server:      %s\n", cfg.Server())
			fmt.Fprintf(out, "Auth mode:   %s\n", mode)
			return nil
		},
	}
}

// PromptServerSelection shows an interactive prompt for the user to select a server
func PromptServerSelection(servers []string) (string, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return "", errors.New("no server given and stdin is not a terminal")
	}

	prompt := promptui.Select{
		Label: "Select a server",
		Items: servers,
		Templates: &promptui.SelectTemplates{
			Label:    "{{ . }}",
			Active:   "> {{ . | cyan }}",
			Inactive: "  {{ . }}",
			Selected: "{{ . | green }}",
		},
		Size: 10,
	}

	index, _, err := prompt.Run()
	if err != nil {
		return "", fmt.Errorf("server selection cancelled: %w", err)
	}

	return servers[index], nil
}
