// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shrijat-26/HealthCare-Chatbot/internal/config"
)

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change kare settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfig(cmd, a)
		},
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Print the effective configuration as TOML",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return showConfig(cmd, a)
			},
		},
		&cobra.Command{
			Use:   "path",
			Short: "Print the config file location",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				path, err := a.filePath()
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), path)
				return nil
			},
		},
		&cobra.Command{
			Use:               "get KEY",
			Short:             "Print one setting, e.g. gateway.base_url",
			Args:              cobra.ExactArgs(1),
			ValidArgsFunction: completeKeys,
			RunE: func(cmd *cobra.Command, args []string) error {
				v, err := a.cfg.Get(args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), v)
				return nil
			},
		},
		&cobra.Command{
			Use:               "set KEY VALUE",
			Short:             "Change one setting and save it",
			Args:              cobra.ExactArgs(2),
			ValidArgsFunction: completeKeys,
			RunE: func(cmd *cobra.Command, args []string) error {
				return setConfig(cmd, a, args[0], args[1])
			},
		},
		&cobra.Command{
			Use:   "keys",
			Short: "List every setting with its current value",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return listKeys(cmd, a)
			},
		},
		newConfigInitCmd(a),
	)
	return cmd
}

func newConfigInitCmd(a *app) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Write a config file with default settings",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotationConfigOptional: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := a.writePath()
			if err != nil {
				return err
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
				return err
			}
			if err := config.SaveTOML(config.Default(), path); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), SuccessStyle.Render("Wrote"), path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

// completeKeys offers setting names for the first argument of get and set.
func completeKeys(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	var keys []string
	for _, k := range config.GetAllKeys() {
		if strings.HasPrefix(k, toComplete) {
			keys = append(keys, k)
		}
	}
	return keys, cobra.ShellCompDirectiveNoFileComp
}

func listKeys(cmd *cobra.Command, a *app) error {
	out := cmd.OutOrStdout()
	for _, k := range config.GetAllKeys() {
		v, err := a.cfg.Get(k)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s = %v\n", k, v)
	}
	return nil
}

func showConfig(cmd *cobra.Command, a *app) error {
	out, err := a.cfg.TOML()
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), out)
	return nil
}

// setConfig applies one change and saves the result as TOML. Values coming
// from environment overrides are saved too.
func setConfig(cmd *cobra.Command, a *app, key, value string) error {
	if err := a.cfg.Set(key, value); err != nil {
		return err
	}
	if err := a.cfg.Validate(); err != nil {
		return err
	}
	path, err := a.writePath()
	if err != nil {
		return err
	}
	if err := config.SaveTOML(a.cfg, path); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s = %s\n", SuccessStyle.Render("Set"), key, value)
	return nil
}

// filePath is the config file in effect: --config if given,
// otherwise the first existing config file, otherwise the TOML default.
func (a *app) filePath() (string, error) {
	if a.configPath != "" {
		return a.configPath, nil
	}
	return config.ActivePath()
}

// writePath is the TOML file config changes are saved to. A JSON or YAML
// file found by filePath is left alone; the TOML file takes precedence on
// the next load.
func (a *app) writePath() (string, error) {
	if a.configPath != "" {
		if !isTOML(a.configPath) {
			return "", fmt.Errorf("config files are written as TOML; %s is not a .toml file", a.configPath)
		}
		return a.configPath, nil
	}
	return config.ConfigPathTOML()
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}
