package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"finances/internal/backend"
	"finances/internal/cache"
	"finances/internal/core"
	"finances/internal/log"
	"finances/internal/services"
	"finances/internal/storage"
)

// app bundles the services a command needs. Events are not published from
// the CLI; the mirror catches up from the API's own events only.
type app struct {
	store    services.Store
	balance  *services.BalanceService
	resolver *services.CategoryResolver
	cleanup  backend.CleanupFunc
}

func openApp(ctx context.Context) (*app, error) {
	backendCfg, err := backend.FromAppConfig(appCfg)
	if err != nil {
		return nil, err
	}
	result, err := backend.NewFactory(logger.WithComponent(log.ComponentBackend).Logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		return nil, err
	}
	return &app{
		store:    result.Store,
		balance:  services.NewBalanceService(result.Store),
		resolver: services.NewCategoryResolver(result.Store, cache.NewLRUCache[core.Category](appCfg.CategoryCacheSize, appCfg.CategoryCacheTTL)),
		cleanup:  result.Cleanup,
	}, nil
}

func (a *app) Close() {
	if err := a.cleanup(); err != nil {
		logger.Warn("Backend cleanup error", log.FieldError, err)
	}
}

// withApp opens the configured store for the duration of fn.
func withApp(fn func(cmd *cobra.Command, args []string, a *app) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()
		return fn(cmd, args, a)
	}
}

func balanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "balance",
		Short: "Print income, outcome and total",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, _ []string, a *app) error {
			b, err := a.balance.GetBalance(cmd.Context())
			if err != nil {
				return err
			}
			printBalance(cmd.OutOrStdout(), b)
			return nil
		}),
	}
}

func listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every transaction followed by the balance",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, _ []string, a *app) error {
			ov, err := a.balance.Overview(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			printTransactions(out, ov.Transactions)
			fmt.Fprintln(out)
			printBalance(out, ov.Balance)
			return nil
		}),
	}
}

func categoriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List categories",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, _ []string, a *app) error {
			cats, err := a.resolver.List(cmd.Context())
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			defer w.Flush()
			fmt.Fprintln(w, "ID\tTITLE")
			for _, c := range cats {
				fmt.Fprintf(w, "%s\t%s\n", c.ID, c.Title)
			}
			return nil
		}),
	}
}

func createCmd() *cobra.Command {
	var title, typ, value, category string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Record a transaction",
		Example: `  financectl create --title Salary --type income --value 1500 --category Job
  financectl create --title Lunch --type outcome --value 12,50 --category Food`,
		Args: cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, _ []string, a *app) error {
			amount, err := core.ParseMoney(value)
			if err != nil {
				return fmt.Errorf("invalid value %q: %w", value, err)
			}
			creator := services.NewCreateTransactionService(a.balance, a.resolver, a.store, nil)
			t, err := creator.Execute(cmd.Context(), services.CreateTransactionRequest{
				Title:    title,
				Type:     typ,
				Value:    amount,
				Category: category,
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), t.ID)
			return nil
		}),
	}

	cmd.Flags().StringVar(&title, "title", "", "transaction title")
	cmd.Flags().StringVar(&typ, "type", "", "income or outcome")
	cmd.Flags().StringVar(&value, "value", "", "non-negative amount, '.' or ',' as decimal separator")
	cmd.Flags().StringVar(&category, "category", "", "category title, created when missing")
	for _, name := range []string{"title", "type", "value", "category"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

func deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a transaction",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			if err := services.NewDeleteTransactionService(a.store, nil).Execute(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil
		}),
	}
}

func importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Import a CSV statement with columns title,type,value,category",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			name, err := stageUpload(args[0], appCfg.UploadDir)
			if err != nil {
				return err
			}
			importer := services.NewImportTransactionsService(appCfg.UploadDir, a.resolver, a.store, nil)
			txs, err := importer.Execute(cmd.Context(), services.ImportRequest{Filename: name})
			if err != nil {
				_ = os.Remove(filepath.Join(appCfg.UploadDir, name))
				return err
			}
			printTransactions(cmd.OutOrStdout(), txs)
			return nil
		}),
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending SQLite migrations and print the schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if appCfg.DataBackend != backend.SQLiteBackend.String() {
				return fmt.Errorf("migrate requires the sqlite backend, got %q", appCfg.DataBackend)
			}
			dsn := storage.DSN(appCfg.SQLiteDBPath)
			if err := storage.RunMigrations(dsn); err != nil {
				return err
			}
			version, dirty, err := storage.MigrationVersion(dsn)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema version %d (dirty=%t)\n", version, dirty)
			return nil
		},
	}
}

// stageUpload copies src into dir under a fresh name, the way the API stores uploads.
func stageUpload(src, dir string) (string, error) {
	in, err := os.Open(src)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create upload directory: %w", err)
	}
	name := uuid.NewString() + ".csv"
	out, err := os.OpenFile(filepath.Join(dir, name), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return "", fmt.Errorf("create staged file: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		_ = os.Remove(out.Name())
		return "", fmt.Errorf("copy %s: %w", src, err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(out.Name())
		return "", err
	}
	return name, nil
}

func printTransactions(w io.Writer, txs []core.Transaction) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	defer tw.Flush()
	fmt.Fprintln(tw, "ID\tTITLE\tTYPE\tVALUE\tCATEGORY\tCREATED")
	for _, t := range txs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			t.ID, t.Title, t.Type, t.Value, t.CategoryTitle(), t.CreatedAt.Format("2006-01-02 15:04"))
	}
}

func printBalance(w io.Writer, b core.Balance) {
	fmt.Fprintf(w, "income:  %s\noutcome: %s\ntotal:   %s\n", b.Income, b.Outcome, b.Total)
}
