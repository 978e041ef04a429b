package ctl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/ubuntu/nss-sql/internal/backend"
	"github.com/ubuntu/nss-sql/internal/backend/sqlbackend"
	"github.com/ubuntu/nss-sql/internal/config"
	"github.com/ubuntu/nss-sql/internal/consts"
	"github.com/ubuntu/nss-sql/internal/nss"
	"github.com/ubuntu/nss-sql/log"
)

// database describes how to enumerate and look up the entries of one getent database.
type database[R fmt.Stringer] struct {
	name string

	set  func(m *nss.Module, ctx context.Context) nss.Status
	next func(ctx context.Context, m *nss.Module, buf []byte) nss.Result[R]
	end  func(m *nss.Module, ctx context.Context) nss.Status
	get  func(ctx context.Context, m *nss.Module, key string, buf []byte) nss.Result[R]
}

type passwdRecord nss.UserRecord

func (r passwdRecord) String() string { return r.Entry.String() }

type groupRecord nss.GroupRecord

func (r groupRecord) String() string { return r.Entry.String() }

type shadowRecord nss.ShadowRecord

func (r shadowRecord) String() string { return r.Entry.String() }

// asRecord converts the record type of a result.
func asRecord[R, T any](res nss.Result[R], conv func(R) T) nss.Result[T] {
	return nss.Result[T]{Status: res.Status, Errno: res.Errno, Required: res.Required, Record: conv(res.Record)}
}

// parseID returns the numeric ID key holds, if any.
func parseID(key string) (uint32, bool) {
	id, err := strconv.ParseUint(key, 10, 32)
	if err != nil {
		return 0, false
	}
	return uint32(id), true
}

var passwdDB = database[passwdRecord]{
	name: "passwd",
	set:  (*nss.Module).SetPwent,
	end:  (*nss.Module).EndPwent,
	next: func(ctx context.Context, m *nss.Module, buf []byte) nss.Result[passwdRecord] {
		return asRecord(m.GetPwent(ctx, buf), func(r nss.UserRecord) passwdRecord { return passwdRecord(r) })
	},
	get: func(ctx context.Context, m *nss.Module, key string, buf []byte) nss.Result[passwdRecord] {
		var res nss.Result[nss.UserRecord]
		if uid, ok := parseID(key); ok {
			res = m.GetPwuid(ctx, uid, buf)
		} else {
			res = m.GetPwnam(ctx, key, buf)
		}
		return asRecord(res, func(r nss.UserRecord) passwdRecord { return passwdRecord(r) })
	},
}

var groupDB = database[groupRecord]{
	name: "group",
	set:  (*nss.Module).SetGrent,
	end:  (*nss.Module).EndGrent,
	next: func(ctx context.Context, m *nss.Module, buf []byte) nss.Result[groupRecord] {
		return asRecord(m.GetGrent(ctx, buf), func(r nss.GroupRecord) groupRecord { return groupRecord(r) })
	},
	get: func(ctx context.Context, m *nss.Module, key string, buf []byte) nss.Result[groupRecord] {
		var res nss.Result[nss.GroupRecord]
		if gid, ok := parseID(key); ok {
			res = m.GetGrgid(ctx, gid, buf)
		} else {
			res = m.GetGrnam(ctx, key, buf)
		}
		return asRecord(res, func(r nss.GroupRecord) groupRecord { return groupRecord(r) })
	},
}

var shadowDB = database[shadowRecord]{
	name: "shadow",
	set:  (*nss.Module).SetSpent,
	end:  (*nss.Module).EndSpent,
	next: func(ctx context.Context, m *nss.Module, buf []byte) nss.Result[shadowRecord] {
		return asRecord(m.GetSpent(ctx, buf), func(r nss.ShadowRecord) shadowRecord { return shadowRecord(r) })
	},
	get: func(ctx context.Context, m *nss.Module, key string, buf []byte) nss.Result[shadowRecord] {
		return asRecord(m.GetSpnam(ctx, key, buf), func(r nss.ShadowRecord) shadowRecord { return shadowRecord(r) })
	},
}

// dump prints every entry of db.
func dump[R fmt.Stringer](ctx context.Context, a *App, w io.Writer, m *nss.Module, db database[R]) error {
	if status := db.set(m, ctx); status != nss.StatusSuccess {
		return fmt.Errorf("could not start %s enumeration: %v", db.name, status)
	}
	defer db.end(m, ctx)

	var n int
	for {
		res := lookup(a, func(buf []byte) nss.Result[R] { return db.next(ctx, m, buf) })
		if res.Status == nss.StatusNotFound {
			log.Debugf(ctx, "Enumerated %d %s entries", n, db.name)
			return nil
		}
		if err := checkResult(db.name+" enumeration", res); err != nil {
			return err
		}
		fmt.Fprintln(w, res.Record)
		n++
	}
}

// query prints the entries matching keys, in order.
func query[R fmt.Stringer](ctx context.Context, a *App, w io.Writer, m *nss.Module, db database[R], keys []string) error {
	var missing []string
	for _, key := range keys {
		res := lookup(a, func(buf []byte) nss.Result[R] { return db.get(ctx, m, key, buf) })
		if res.Status == nss.StatusNotFound {
			missing = append(missing, key)
			continue
		}
		if err := checkResult(fmt.Sprintf("%s lookup of %q", db.name, key), res); err != nil {
			return err
		}
		fmt.Fprintln(w, res.Record)
	}

	if len(missing) > 0 {
		return NotFoundError{Database: db.name, Keys: missing}
	}
	return nil
}

// databaseCmd returns the command printing the entries of db.
func databaseCmd[R fmt.Stringer](a *App, db database[R], use, short string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return a.withModule(ctx, func(m *nss.Module) error {
				if len(args) == 0 {
					return dump(ctx, a, cmd.OutOrStdout(), m, db)
				}
				return query(ctx, a, cmd.OutOrStdout(), m, db, args)
			})
		},
	}
}

func (a *App) installPasswd() {
	a.rootCmd.AddCommand(databaseCmd(a, passwdDB, "passwd [name|uid]...", "Print user entries, or every user without arguments"))
}

func (a *App) installGroup() {
	a.rootCmd.AddCommand(databaseCmd(a, groupDB, "group [name|gid]...", "Print group entries, or every group without arguments"))
}

func (a *App) installShadow() {
	a.rootCmd.AddCommand(databaseCmd(a, shadowDB, "shadow [name]...", "Print shadow entries, or every shadow entry without arguments"))
}

func (a *App) installInitgroups() {
	cmd := &cobra.Command{
		Use:   "initgroups <user> [primary-gid]",
		Short: "Print the supplementary groups of a user",
		Long:  "Print the GIDs of the groups the user is a member of, skipping the primary group. The primary group defaults to the user's one.",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			user := args[0]
			var primary uint32
			primarySet := len(args) == 2
			if primarySet {
				gid, ok := parseID(args[1])
				if !ok {
					return fmt.Errorf("invalid primary gid %q", args[1])
				}
				primary = gid
			}

			ctx := cmd.Context()
			return a.withModule(ctx, func(m *nss.Module) error {
				pw := lookup(a, func(buf []byte) nss.Result[nss.UserRecord] { return m.GetPwnam(ctx, user, buf) })
				if pw.Status == nss.StatusNotFound {
					return NotFoundError{Database: "passwd", Keys: []string{user}}
				}
				if err := checkResult(fmt.Sprintf("passwd lookup of %q", user), pw); err != nil {
					return err
				}
				if !primarySet {
					primary = pw.Record.Entry.GID
				}

				res := m.InitGroupsDyn(ctx, user, primary, nil, 0)
				// NotFound means no supplementary group, which getent prints as a bare user name.
				if res.Status != nss.StatusSuccess && res.Status != nss.StatusNotFound {
					return fmt.Errorf("initgroups of %q failed: %w", user, nss.StatusError{Status: res.Status, Errno: res.Errno})
				}

				w := cmd.OutOrStdout()
				fmt.Fprintf(w, "%-21s", user)
				for _, gid := range res.Groups {
					fmt.Fprintf(w, " %d", gid)
				}
				fmt.Fprintln(w)
				return nil
			})
		},
	}
	a.rootCmd.AddCommand(cmd)
}

func (a *App) installCheckConfig() {
	cmd := &cobra.Command{
		Use:   "check-config",
		Short: "Validate the configuration and connect to every configured database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := config.Load(ctx, a.config.Config, a.config.RootConfig)
			if err != nil {
				return err
			}

			b, err := sqlbackend.New(cfg)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			var errs []error
			for _, c := range backend.Categories {
				if c == backend.CategoryShadow && !cfg.Shadow.Configured() {
					fmt.Fprintf(w, "%s: not configured\n", c)
					continue
				}
				if err := b.Open(ctx, c); err != nil {
					fmt.Fprintf(w, "%s: %v\n", c, err)
					errs = append(errs, err)
					continue
				}
				if err := b.Close(c); err != nil {
					log.Warningf(ctx, "Could not close %s connection: %v", c, err)
				}
				fmt.Fprintf(w, "%s: ok\n", c)
			}
			return errors.Join(errs...)
		},
	}
	a.rootCmd.AddCommand(cmd)
}

func (a *App) installVersion() {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Returns version of the tool and exits",
		Args:  cobra.NoArgs,
		// Skip the configuration handling of the root command.
		PersistentPreRun: func(cmd *cobra.Command, args []string) { a.rootCmd.SilenceUsage = true },
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", cmdName, consts.Version)
			return nil
		},
	}
	a.rootCmd.AddCommand(cmd)
}
