package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/sagarc03/boxgate/clientcli"
	"github.com/spf13/cobra"
)

var loginCmd = &cobra.Command{
	Use:   "login [profile]",
	Short: "Save the access token for a gateway",
	Long: `Prompt for the access token, check it against the gateway, and save it
as the default profile.

The profile is named "default" unless a name is given. The endpoint comes
from --endpoint, BOXCTL_ENDPOINT, or the existing profile; otherwise you
are asked for it.

Examples:
  boxctl login
  boxctl login --endpoint https://media.example.com prod`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLogin,
}

func init() {
	rootCmd.AddCommand(loginCmd)
}

func runLogin(cmd *cobra.Command, args []string) error {
	name := "default"
	if len(args) > 0 {
		name = args[0]
	}
	configPath := getConfigPath()

	cfg, err := clientcli.LoadConfigFile(configPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = &clientcli.ConfigFile{}
	}

	var current *clientcli.Config
	if existing, _ := cfg.GetProfile(name); existing != nil {
		current = clientcli.ConfigFromProfile(existing)
	}
	merged := clientcli.MergeConfig(current, clientcli.ConfigFromEnv(), &clientcli.Config{Endpoint: endpoint})

	endpointURL := merged.Endpoint
	if endpointURL == "" {
		endpointPrompt := promptui.Prompt{
			Label:    "Endpoint URL",
			Default:  clientcli.DefaultEndpoint,
			Validate: validateEndpoint,
		}
		endpointURL, err = endpointPrompt.Run()
		if err != nil {
			return handlePromptError(err)
		}
	} else if err := validateEndpoint(endpointURL); err != nil {
		return err
	}

	tokenVal := token
	if tokenVal == "" {
		tokenPrompt := promptui.Prompt{
			Label: "Access Token",
			Mask:  '*',
			Validate: func(input string) error {
				if strings.TrimSpace(input) == "" {
					return clientcli.ErrTokenRequired
				}
				return nil
			},
		}
		tokenVal, err = tokenPrompt.Run()
		if err != nil {
			return handlePromptError(err)
		}
	}

	p := clientcli.Profile{
		Name:     name,
		Endpoint: strings.TrimSuffix(endpointURL, "/"),
		Token:    strings.TrimSpace(tokenVal),
		Default:  true,
	}

	if err := verifyProfile(cmd.Context(), p); err != nil {
		return fmt.Errorf("login to %s: %w", p.Endpoint, err)
	}

	cfg.PutProfile(p)
	if err := cfg.Save(configPath); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	if !quiet {
		fmt.Printf("Logged in to %s as profile '%s'.\n", p.Endpoint, name)
	}
	return nil
}
