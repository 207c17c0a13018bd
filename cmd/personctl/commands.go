package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/firestoretut/personstore/internal/config"
	"github.com/firestoretut/personstore/internal/person"
	"github.com/firestoretut/personstore/internal/person/service"
	"github.com/firestoretut/personstore/internal/storage"
	"github.com/firestoretut/personstore/internal/tokens"
)

type snapshotWriter interface {
	PutSnapshot(ctx context.Context, snap storage.Snapshot) (string, error)
}

// deps are the side effects of personctl, replaced in tests.
type deps struct {
	loadConfig    func() (*config.Config, error)
	openService   func(ctx context.Context, cfg *config.Config) (*service.Service, func() error, error)
	openSnapshots func(ctx context.Context, cfg *config.Config) (snapshotWriter, error)
	now           func() time.Time
}

type cli struct {
	deps
	out  string // "json" | "text"
	cfg  *config.Config
	svc  *service.Service
	done func() error
}

// newRootCmd builds the command tree. The returned func closes the store
// connection if a command opened one.
func newRootCmd(d deps) (*cobra.Command, func() error) {
	c := &cli{deps: d, out: envOr("PERSONCTL_OUT", "text")}

	root := &cobra.Command{
		Use:           "personctl",
		Short:         "Save, query, update and delete persons in the configured store",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if c.out != "text" && c.out != "json" {
				return fmt.Errorf("--out must be json or text, got %q", c.out)
			}
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			c.cfg = cfg
			return nil
		},
	}
	root.PersistentFlags().StringVar(&c.out, "out", c.out, "Output format: json|text (env PERSONCTL_OUT)")

	root.AddCommand(c.saveCmd(), c.queryCmd(), c.updateCmd(), c.deleteCmd(), c.exportCmd(), c.tokenCmd())
	return root, c.close
}

func (c *cli) close() error {
	if c.done == nil {
		return nil
	}
	done := c.done
	c.svc, c.done = nil, nil
	return done()
}

// connect opens the configured store once per invocation.
func (c *cli) connect(ctx context.Context) (*service.Service, error) {
	if c.svc != nil {
		return c.svc, nil
	}
	svc, done, err := c.openService(ctx, c.cfg)
	if err != nil {
		return nil, err
	}
	c.svc, c.done = svc, done
	return svc, nil
}

type personFlags struct{ first, last, age string }

func (f *personFlags) register(cmd *cobra.Command, prefix, what string) {
	cmd.Flags().StringVar(&f.first, prefix+"first", "", "First name "+what)
	cmd.Flags().StringVar(&f.last, prefix+"last", "", "Last name "+what)
	cmd.Flags().StringVar(&f.age, prefix+"age", "", "Age "+what)
}

func (c *cli) saveCmd() *cobra.Command {
	var pf personFlags
	cmd := &cobra.Command{
		Use:   "save",
		Short: "Save a person as a new document",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := person.ParsePerson(pf.first, pf.last, pf.age)
			if err != nil {
				return err
			}
			svc, err := c.connect(cmd.Context())
			if err != nil {
				return err
			}
			task := svc.SaveAsync(cmd.Context(), p)
			id, err := task.Wait(cmd.Context())
			if err != nil {
				task.Cancel()
				return err
			}
			if c.out == "json" {
				return writeJSON(cmd.OutOrStdout(), map[string]string{"id": id})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "saved %s\n", id)
			return nil
		},
	}
	pf.register(cmd, "", "of the new person")
	return cmd
}

func (c *cli) queryCmd() *cobra.Command {
	var from, to string
	cmd := &cobra.Command{
		Use:   "query",
		Short: "List persons with from < age < to, youngest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			lo, err := person.ParseInt("from", from)
			if err != nil {
				return err
			}
			hi, err := person.ParseInt("to", to)
			if err != nil {
				return err
			}
			svc, err := c.connect(cmd.Context())
			if err != nil {
				return err
			}
			task := svc.QueryByAgeRangeAsync(cmd.Context(), lo, hi)
			list, err := task.Wait(cmd.Context())
			if err != nil {
				task.Cancel()
				return err
			}
			if c.out == "json" {
				return writeJSON(cmd.OutOrStdout(), list)
			}
			w := cmd.OutOrStdout()
			if len(list) == 0 {
				fmt.Fprintln(w, person.NoMatchMessage)
				return nil
			}
			for _, p := range list {
				fmt.Fprintf(w, "%s\t%s\t%d\n", p.FirstName, p.LastName, p.Age)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "Exclusive lower age bound")
	cmd.Flags().StringVar(&to, "to", "", "Exclusive upper age bound")
	return cmd
}

func (c *cli) updateCmd() *cobra.Command {
	var match, set personFlags
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Merge new values into every person matching --first, --last and --age",
		Long:  "Empty --new-* flags leave the stored value unchanged.",
		RunE: func(cmd *cobra.Command, args []string) error {
			criteria, err := person.ParsePerson(match.first, match.last, match.age)
			if err != nil {
				return err
			}
			patch, err := person.ParsePatch(set.first, set.last, set.age)
			if err != nil {
				return err
			}
			svc, err := c.connect(cmd.Context())
			if err != nil {
				return err
			}
			task := svc.UpdateByMatchAsync(cmd.Context(), criteria, patch)
			res, err := task.Wait(cmd.Context())
			if err != nil {
				task.Cancel()
				return err
			}
			return c.renderBatch(cmd.OutOrStdout(), "updated", res)
		},
	}
	match.register(cmd, "", "to match")
	set.register(cmd, "new-", "to write")
	return cmd
}

func (c *cli) deleteCmd() *cobra.Command {
	var match personFlags
	var field string
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete every person matching --first, --last and --age",
		RunE: func(cmd *cobra.Command, args []string) error {
			criteria, err := person.ParsePerson(match.first, match.last, match.age)
			if err != nil {
				return err
			}
			svc, err := c.connect(cmd.Context())
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("field") {
				res, err := svc.DeleteFieldByMatch(cmd.Context(), criteria, field)
				if err != nil {
					return err
				}
				return c.renderBatch(cmd.OutOrStdout(), "cleared", res)
			}
			task := svc.DeleteByMatchAsync(cmd.Context(), criteria)
			res, err := task.Wait(cmd.Context())
			if err != nil {
				task.Cancel()
				return err
			}
			return c.renderBatch(cmd.OutOrStdout(), "deleted", res)
		},
	}
	match.register(cmd, "", "to match")
	cmd.Flags().StringVar(&field, "field", "", "Remove only this field from the matching documents")
	_ = cmd.Flags().MarkDeprecated("field", "delete removes whole documents; --field will be removed")
	return cmd
}

func (c *cli) exportCmd() *cobra.Command {
	var from, to string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Upload the persons with from < age < to as a JSON snapshot to object storage",
		RunE: func(cmd *cobra.Command, args []string) error {
			lo, err := person.ParseInt("from", from)
			if err != nil {
				return err
			}
			hi, err := person.ParseInt("to", to)
			if err != nil {
				return err
			}
			svc, err := c.connect(cmd.Context())
			if err != nil {
				return err
			}
			snaps, err := c.openSnapshots(cmd.Context(), c.cfg)
			if err != nil {
				return err
			}
			snap := storage.Snapshot{TakenAt: c.now(), From: lo, To: hi}
			snap.Persons, err = svc.QueryByAgeRangeAsync(cmd.Context(), lo, hi).Wait(cmd.Context())
			if err != nil {
				return err
			}
			key, err := snaps.PutSnapshot(cmd.Context(), snap)
			if err != nil {
				return err
			}
			if c.out == "json" {
				return writeJSON(cmd.OutOrStdout(), map[string]any{"key": key, "count": len(snap.Persons)})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported %d persons to %s\n", len(snap.Persons), key)
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "-1", "Exclusive lower age bound")
	cmd.Flags().StringVar(&to, "to", "1000", "Exclusive upper age bound")
	return cmd
}

func (c *cli) tokenCmd() *cobra.Command {
	var sub string
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an access token for the HTTP API (AUTH_MODE=jwt)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if sub == "" {
				return fmt.Errorf("--sub is required")
			}
			tok, err := tokens.GenerateAccessToken(c.cfg.Auth.JWTSecret, sub, ttl)
			if err != nil {
				return err
			}
			if c.out == "json" {
				return writeJSON(cmd.OutOrStdout(), map[string]string{"token": tok})
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().StringVar(&sub, "sub", "", "Subject of the token")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "Token lifetime")
	return cmd
}

// renderBatch prints res and returns an error when some writes failed.
func (c *cli) renderBatch(w io.Writer, verb string, res person.BatchResult) error {
	if c.out == "json" {
		failures := make([]map[string]string, 0, len(res.Failures))
		for _, f := range res.Failures {
			failures = append(failures, map[string]string{"id": f.ID, "error": f.Err.Error()})
		}
		body := map[string]any{"matched": res.Matched, "applied": res.Applied, "failures": failures}
		if res.NoMatch() {
			body["message"] = person.NoMatchMessage
		}
		if err := writeJSON(w, body); err != nil {
			return err
		}
	} else {
		if res.NoMatch() {
			fmt.Fprintln(w, person.NoMatchMessage)
			return nil
		}
		fmt.Fprintf(w, "%s %d of %d matched\n", verb, res.Applied, res.Matched)
		for _, f := range res.Failures {
			fmt.Fprintf(w, "failed %s: %v\n", f.ID, f.Err)
		}
	}
	if len(res.Failures) > 0 {
		return fmt.Errorf("%d of %d writes failed", len(res.Failures), res.Matched)
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
