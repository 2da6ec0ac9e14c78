package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func (c *cli) settingsCmd() *cobra.Command {
	var baseURL string
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Print the persisted settings and regional codes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := c.open()
			if err != nil {
				return err
			}
			defer f.Close()

			if baseURL != "" {
				if err := f.SetBaseURL(baseURL); err != nil {
					return fmt.Errorf("set base url: %w", err)
				}
			}

			info, err := f.Settings()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintf(tw, "settings file\t%s\n", info.SettingsPath)
			fmt.Fprintf(tw, "base url\t%s\n", orNone(info.BaseURL))
			fmt.Fprintf(tw, "first launch\t%t\n", info.IsFirstLaunch)
			fmt.Fprintf(tw, "logged in\t%t\n", f.LoggedIn())
			if err := tw.Flush(); err != nil {
				return err
			}

			if len(info.RegionalCodes) == 0 {
				fmt.Fprintln(out, "regional codes: none")
				return nil
			}
			fmt.Fprintln(out, "regional codes:")
			tw = tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			for _, rc := range info.RegionalCodes {
				fmt.Fprintf(tw, "  %s\t%s\n", rc.Code, rc.Title)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&baseURL, "set-base-url", "", "persist a new backend URL for the next launch")
	return cmd
}

func (c *cli) syncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Resolve the feed id and upload queued data without a full launch",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := c.open()
			if err != nil {
				return err
			}
			defer f.Close()

			info, err := f.Settings()
			if err != nil {
				c.logger.Warn().Err(err).Msg("settings unreadable, using default endpoint")
			} else if info.BaseURL != "" {
				if err := f.UseEndpoint(info.BaseURL); err != nil {
					return err
				}
			}

			if !f.Sync(cmd.Context()) {
				fmt.Fprintln(cmd.OutOrStdout(), "not logged in, nothing to sync")
				return nil
			}
			if err := f.Wait(c.cfg.DrainTimeout); err != nil {
				return fmt.Errorf("wait for uploads: %w", err)
			}
			return printDepth(cmd, f)
		},
	}
}

func (c *cli) enqueueCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "enqueue <category> [json]",
		Short: "Add a JSON record to the local upload queue",
		Long: "Add a JSON record to the local upload queue. Category is one of assets, events,\n" +
			"contacts or reminders. The record is read from stdin when omitted or \"-\".",
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var payload []byte
			if len(args) == 2 && args[1] != "-" {
				payload = []byte(args[1])
			} else {
				b, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read record: %w", err)
				}
				payload = b
			}

			f, err := c.open()
			if err != nil {
				return err
			}
			defer f.Close()

			id, err := f.Enqueue(cmd.Context(), args[0], json.RawMessage(strings.TrimSpace(string(payload))))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "queued %s record %d\n", args[0], id)
			return nil
		},
	}
}

func (c *cli) queueCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "queue",
		Short: "Print the number of queued records per category",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := c.open()
			if err != nil {
				return err
			}
			defer f.Close()
			return printDepth(cmd, f)
		},
	}
}

func (c *cli) loginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Store a refresh token read from stdin",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sc := bufio.NewScanner(cmd.InOrStdin())
			if !sc.Scan() {
				if err := sc.Err(); err != nil {
					return fmt.Errorf("read refresh token: %w", err)
				}
				return errors.New("no refresh token on stdin")
			}
			token := strings.TrimSpace(sc.Text())

			f, err := c.open()
			if err != nil {
				return err
			}
			defer f.Close()

			if err := f.Login(token); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "logged in")
			return nil
		},
	}
}

func (c *cli) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove every stored credential",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := c.open()
			if err != nil {
				return err
			}
			defer f.Close()

			if err := f.Logout(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "logged out")
			return nil
		},
	}
}

type depthReporter interface {
	QueueDepth(ctx context.Context) (map[string]int64, error)
	QueueBytes(ctx context.Context) (int64, error)
}

func printDepth(cmd *cobra.Command, q depthReporter) error {
	depth, err := q.QueueDepth(cmd.Context())
	if err != nil {
		return err
	}
	size, err := q.QueueBytes(cmd.Context())
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	for _, category := range []string{"assets", "events", "contacts", "reminders"} {
		fmt.Fprintf(tw, "%s\t%d\n", category, depth[category])
	}
	fmt.Fprintf(tw, "bytes\t%d\n", size)
	return tw.Flush()
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
