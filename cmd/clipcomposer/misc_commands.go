package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"clipcomposer/internal/config"
	"clipcomposer/internal/ui"
	"clipcomposer/internal/version"
)

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print the version",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), "clipcomposer", version.String())
			return nil
		},
	}
}

func newUICommand() *cobra.Command {
	return &cobra.Command{
		Use:         "ui [dir]",
		Short:       "Start the desktop editor",
		Args:        cobra.MaximumNArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := ""
			if len(args) > 0 {
				dir = args[0]
			}
			return ui.Run(dir)
		},
	}
}

func newTokenCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:         "token",
		Short:       "Manage the render service token in the system keyring",
		Annotations: map[string]string{"skipConfigLoad": "true"},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "set [value]",
		Short: "Store the token; reads stdin when no value is given",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var token string
			if len(args) == 1 {
				token = args[0]
			} else {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && !errors.Is(err, io.EOF) {
					return err
				}
				token = line
			}
			if err := config.SetToken(strings.TrimSpace(token)); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Token stored")
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Remove the stored token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.ClearToken(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Token cleared")
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Report whether a token is stored",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := config.Token()
			switch {
			case errors.Is(err, config.ErrNoToken):
				fmt.Fprintln(cmd.OutOrStdout(), "No token stored")
				return nil
			case err != nil:
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Token stored")
			return nil
		},
	})
	return cmd
}
