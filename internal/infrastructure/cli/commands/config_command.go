package commands

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/doeshing/shellgate/internal/app"
	configapp "github.com/doeshing/shellgate/internal/application/config"
	"github.com/doeshing/shellgate/internal/domain"
	configinfra "github.com/doeshing/shellgate/internal/infrastructure/config"
)

const (
	envKeyEditor  = "EDITOR"
	defaultEditor = "vi"
)

// NewConfigCommand creates the config command with all subcommands
func NewConfigCommand(container *app.Container) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect shellgate configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfiguration(cmd.OutOrStdout(), container.Config)
		},
	}

	configCmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Show the effective configuration",
			RunE: func(cmd *cobra.Command, args []string) error {
				return showConfiguration(cmd.OutOrStdout(), container.Config)
			},
		},
		&cobra.Command{
			Use:   "path",
			Short: "Print the configuration file path",
			RunE: func(cmd *cobra.Command, args []string) error {
				fmt.Fprintln(cmd.OutOrStdout(), container.ConfigLoader.Path())
				return nil
			},
		},
		&cobra.Command{
			Use:   "get <key>",
			Short: "Get a value by dotted key (e.g. safety.level)",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return getConfigurationValue(cmd.OutOrStdout(), container.Config, args[0])
			},
		},
		newConfigValidateCommand(container),
		&cobra.Command{
			Use:   "diff",
			Short: "Show diff versus default configuration",
			RunE: func(cmd *cobra.Command, args []string) error {
				return showConfigurationDiff(cmd.OutOrStdout(), container.Config)
			},
		},
		&cobra.Command{
			Use:   "edit",
			Short: "Edit configuration in $EDITOR",
			RunE: func(cmd *cobra.Command, args []string) error {
				return editConfigurationInEditor(container.ConfigLoader.Path())
			},
		},
	)

	return configCmd
}

// newConfigValidateCommand re-reads the file from disk so edits made since
// startup are checked too.
func newConfigValidateCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [path]",
		Short: "Validate a configuration file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := container.ConfigLoader.Path()
			if len(args) == 1 {
				path = args[0]
			}
			if err := validateConfigFile(path); err != nil {
				return fmt.Errorf("configuration validation failed: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), msgConfigurationValid)
			return nil
		},
	}
}

func validateConfigFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	cfg, err := configinfra.Parse(data)
	if err != nil {
		return err
	}
	return configapp.Validate(cfg)
}

func showConfiguration(out io.Writer, cfg domain.Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal configuration: %w", err)
	}
	fmt.Fprint(out, string(data))
	return nil
}

func getConfigurationValue(out io.Writer, cfg domain.Config, keyPath string) error {
	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	var generic map[string]interface{}
	if err := yaml.Unmarshal(raw, &generic); err != nil {
		return fmt.Errorf("failed to unmarshal to map: %w", err)
	}

	value, found := traverse(generic, strings.Split(keyPath, "."))
	if !found {
		return fmt.Errorf("key %s not found in configuration", keyPath)
	}

	data, err := yaml.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}
	fmt.Fprint(out, string(data))
	return nil
}

func traverse(node interface{}, keys []string) (interface{}, bool) {
	current := node
	for _, key := range keys {
		m, ok := current.(map[string]interface{})
		if !ok {
			return nil, false
		}
		if current, ok = m[key]; !ok {
			return nil, false
		}
	}
	return current, true
}

func showConfigurationDiff(out io.Writer, current domain.Config) error {
	diff := cmp.Diff(configinfra.Default(), current)
	if diff == "" {
		fmt.Fprintln(out, msgNoDifferencesFromDefault)
		return nil
	}
	fmt.Fprintln(out, diff)
	return nil
}

func editConfigurationInEditor(path string) error {
	editor := os.Getenv(envKeyEditor)
	if editor == "" {
		editor = defaultEditor
	}
	cmd := exec.Command(editor, path)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to run editor %s: %w", editor, err)
	}
	return nil
}
