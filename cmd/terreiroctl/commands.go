package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	memmemberrepo "github.com/Overland-East-Bay/terreiro-api/internal/adapters/memory/memberrepo"
	"github.com/Overland-East-Bay/terreiro-api/internal/adapters/storage"
	"github.com/Overland-East-Bay/terreiro-api/internal/app/members"
	"github.com/Overland-East-Bay/terreiro-api/internal/platform/auth/magiclink"
	platformclock "github.com/Overland-East-Bay/terreiro-api/internal/platform/clock"
	"github.com/Overland-East-Bay/terreiro-api/internal/platform/config"
	"github.com/Overland-East-Bay/terreiro-api/internal/ports/out/tablestore"
)

func membersCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "members",
		Short: "Member registry tasks",
	}

	var dryRun bool
	importCmd := &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Import members from a CSV file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			ctx := cmd.Context()
			var res members.ImportResult
			if dryRun {
				// Validate against an empty registry; nothing is saved.
				svc := members.NewService(memmemberrepo.NewRepo(), platformclock.NewSystemClock(), nil)
				if res, err = svc.Import(ctx, f); err != nil {
					return err
				}
			} else {
				s, err := openSession(ctx, newLogger())
				if err != nil {
					return err
				}
				res, err = s.app.Members.Import(ctx, f)
				if closeErr := s.close(ctx); err == nil {
					err = closeErr
				}
				if err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "imported %d members\n", len(res.Imported))
			for _, e := range res.Errors {
				fmt.Fprintf(out, "error   line %d: %s\n", e.Line, e.Message)
			}
			for _, w := range res.Warnings {
				fmt.Fprintf(out, "warning line %d: %s\n", w.Line, w.Message)
			}
			return nil
		},
	}
	importCmd.Flags().BoolVar(&dryRun, "dry-run", false, "validate the file without saving")

	templateCmd := &cobra.Command{
		Use:   "template",
		Short: "Print the CSV import template",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return members.WriteTemplate(cmd.OutOrStdout())
		},
	}

	cmd.AddCommand(importCmd, templateCmd)
	return cmd
}

func exportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "export <table>",
		Short: "Print a stored table as JSON",
		Long:  "Print a stored table as JSON. Tables: " + tableNames() + ".",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			table := tablestore.Table(args[0])
			if !table.Valid() {
				return fmt.Errorf("unknown table %q (expected one of %s)", args[0], tableNames())
			}
			cfg, err := config.Load(globalFlags.configFile)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			st, err := storage.Open(ctx, cfg, newLogger())
			if err != nil {
				return err
			}
			defer st.Close()

			recs, err := st.Tables.LoadAll(ctx, table)
			if err != nil {
				return err
			}
			docs := make([]json.RawMessage, 0, len(recs))
			for _, r := range recs {
				docs = append(docs, r.Data)
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(docs)
		},
	}
}

func tokenCommand() *cobra.Command {
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token <subject>",
		Short: "Issue a session token signed with the configured magic-link secret",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(globalFlags.configFile)
			if err != nil {
				return err
			}
			if ttl <= 0 {
				ttl = cfg.SessionTTL
			}
			auth, err := magiclink.New(magiclink.Config{
				Secret:     []byte(cfg.MagicLinkSecret),
				Issuer:     cfg.TokenIssuer,
				SessionTTL: ttl,
			}, platformclock.NewSystemClock())
			if err != nil {
				return err
			}
			sess, err := auth.IssueSession(strings.ToLower(strings.TrimSpace(args[0])))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), sess.Token)
			fmt.Fprintf(cmd.ErrOrStderr(), "subject %s, expires %s\n", sess.Subject, sess.ExpiresAt.Format(time.RFC3339))
			return nil
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (defaults to the configured session TTL)")
	return cmd
}

func tableNames() string {
	names := make([]string, 0, len(tablestore.Tables))
	for _, t := range tablestore.Tables {
		names = append(names, string(t))
	}
	return strings.Join(names, ", ")
}
