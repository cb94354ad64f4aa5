package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"smithy/internal/client"
)

func (c *cli) configCommand() *cobra.Command {
	var format string
	show := &cobra.Command{
		Use:   "show",
		Short: "Print the effective client config with defaults filled in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := c.config()
			if err != nil {
				return err
			}
			resolved := cfg.Resolved()
			switch strings.ToLower(strings.TrimSpace(format)) {
			case "", "toml":
				data, err := resolved.EncodeTOML()
				if err != nil {
					return err
				}
				_, err = c.wiring.stdout.Write(data)
				return err
			case "json":
				enc := json.NewEncoder(c.wiring.stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(resolved)
			case "yaml", "yml":
				enc := yaml.NewEncoder(c.wiring.stdout)
				enc.SetIndent(2)
				if err := enc.Encode(resolved); err != nil {
					return err
				}
				return enc.Close()
			default:
				return fmt.Errorf("unsupported format %q (use toml, json or yaml)", format)
			}
		},
	}
	show.Flags().StringVarP(&format, "format", "f", "toml", "output format: toml, json or yaml")

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect client and server configuration",
	}
	cmd.AddCommand(
		show,
		&cobra.Command{
			Use:   "path",
			Short: "Print the config file location",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				_, path, err := c.config()
				if err != nil {
					return err
				}
				fmt.Fprintln(c.wiring.stdout, path)
				return nil
			},
		},
		&cobra.Command{
			Use:   "server",
			Short: "Print the server's configuration as JSON",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				ctx := cmd.Context()
				api, err := c.client(ctx)
				if err != nil {
					return err
				}
				serverConfig, err := api.GetConfig(ctx)
				if err != nil {
					return err
				}
				enc := json.NewEncoder(c.wiring.stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(serverConfig)
			},
		},
		c.setConfigCommand(),
	)
	return cmd
}

func (c *cli) setConfigCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Change one server config value",
		Long: "Change one server config value. Dotted keys address nested tables " +
			"and values are read as JSON when they parse, otherwise as strings.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			patch, err := configPatch(args[0], args[1])
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			api, err := c.client(ctx)
			if err != nil {
				return err
			}
			if _, err := api.UpdateConfig(ctx, patch); err != nil {
				if apiErr := client.AsAPIError(err); apiErr != nil && len(apiErr.ValidationErrors) > 0 {
					fmt.Fprintln(c.wiring.stderr, "server rejected the config:")
					for _, msg := range apiErr.ValidationErrors {
						fmt.Fprintf(c.wiring.stderr, "  - %s\n", msg)
					}
				}
				return err
			}
			fmt.Fprintf(c.wiring.stdout, "set %s\n", args[0])
			return nil
		},
	}
}

// configPatch turns "a.b.c" and a raw value into {"a": {"b": {"c": value}}}.
func configPatch(key, raw string) (map[string]any, error) {
	parts := strings.Split(strings.TrimSpace(key), ".")
	for _, part := range parts {
		if strings.TrimSpace(part) == "" {
			return nil, fmt.Errorf("invalid config key %q", key)
		}
	}
	var value any = raw
	var decoded any
	if err := json.Unmarshal([]byte(raw), &decoded); err == nil {
		value = decoded
	}
	for i := len(parts) - 1; i > 0; i-- {
		value = map[string]any{parts[i]: value}
	}
	return map[string]any{parts[0]: value}, nil
}
