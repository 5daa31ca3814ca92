package main

import (
	"fmt"
	"time"

	"github.com/STTM-NSU/invest-ledger/internal/account"
	"github.com/STTM-NSU/invest-ledger/internal/postgres"
	"github.com/STTM-NSU/invest-ledger/internal/server"
	"github.com/bytedance/sonic"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

const _ledgerCfgFilePath = "./configs/ledger.yaml"

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "invest-ledger",
		Short: "Brokerage account ledger with deal reconciliation",
		Long: `invest-ledger pulls operations of T-Invest accounts, folds them into deals,
splits them between co-owners and reports realized and unrealized income.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", _ledgerCfgFilePath, "Path to ledger config")

	withApp := func(run func(cmd *cobra.Command, args []string, a *app) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			a, err := newApp(configPath)
			if err != nil {
				return err
			}
			defer a.close()
			return run(cmd, args, a)
		}
	}

	root.AddCommand(
		newServeCmd(withApp),
		newMigrateCmd(withApp),
		newSyncCmd(withApp),
		newAccountCmd(withApp),
		newCoOwnerCmd(withApp),
		newInstrumentsCmd(withApp),
	)
	return root
}

type appRunner func(run func(cmd *cobra.Command, args []string, a *app) error) func(*cobra.Command, []string) error

func newServeCmd(withApp appRunner) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, _ []string, a *app) error {
			srv := server.NewHTTPServer(cmd.Context(), a.cfg.HTTP.Port, a.handler().Routes(), a.logger)
			return srv.Run(cmd.Context())
		}),
	}
}

func newMigrateCmd(withApp appRunner) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the database schema",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, _ []string, a *app) error {
			if err := postgres.Migrate(cmd.Context(), a.db); err != nil {
				return err
			}
			a.logger.Infof("schema is up to date")
			return nil
		}),
	}
}

func newSyncCmd(withApp appRunner) *cobra.Command {
	return &cobra.Command{
		Use:   "sync <account-id>",
		Short: "Synchronize an account with the broker",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			res, err := a.syncer.Sync(cmd.Context(), id, time.Now())
			if err != nil {
				return err
			}
			return printJSON(cmd, res)
		}),
	}
}

func newAccountCmd(withApp appRunner) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Manage accounts",
	}

	var (
		name      string
		creatorID int64
		token     string
	)
	create := &cobra.Command{
		Use:   "create",
		Short: "Create an account and run its first sync",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, _ []string, a *app) error {
			acc, err := a.accounts.Create(cmd.Context(), account.CreateParams{
				Name:      name,
				CreatorID: creatorID,
				Token:     token,
			})
			if err != nil && acc.ID == 0 {
				return err
			}
			if err != nil {
				a.logger.Warnf("account %d created, first sync failed: %v", acc.ID, err)
			}
			return printJSON(cmd, acc)
		}),
	}
	create.Flags().StringVar(&name, "name", "", "Account name")
	create.Flags().Int64Var(&creatorID, "creator", 0, "Person id of the creator")
	create.Flags().StringVar(&token, "token", "", "Broker API token")
	_ = create.MarkFlagRequired("name")
	_ = create.MarkFlagRequired("token")

	cmd.AddCommand(create)
	return cmd
}

func newCoOwnerCmd(withApp appRunner) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "co-owner",
		Short: "Manage account co-owners",
	}

	var (
		accountID int64
		personID  int64
		share     string
	)
	add := &cobra.Command{
		Use:   "add",
		Short: "Add a co-owner with a default share",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, _ []string, a *app) error {
			s, err := decimal.NewFromString(share)
			if err != nil {
				return fmt.Errorf("%w: bad share %q", err, share)
			}
			c, err := a.accounts.AddCoOwner(cmd.Context(), accountID, personID, s)
			if err != nil {
				return err
			}
			return printJSON(cmd, c)
		}),
	}
	add.Flags().Int64Var(&accountID, "account", 0, "Account id")
	add.Flags().Int64Var(&personID, "person", 0, "Person id")
	add.Flags().StringVar(&share, "share", "0", "Default share, 0 to 100")
	_ = add.MarkFlagRequired("account")
	_ = add.MarkFlagRequired("person")

	cmd.AddCommand(add)
	return cmd
}

func newInstrumentsCmd(withApp appRunner) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "instruments",
		Short: "Manage the instrument catalog",
	}

	var accountID int64
	refresh := &cobra.Command{
		Use:   "refresh",
		Short: "Load share, bond, etf and currency catalogs from the broker",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, _ []string, a *app) error {
			n, err := a.refreshCatalog(cmd.Context(), accountID)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%d instruments refreshed\n", n)
			return err
		}),
	}
	refresh.Flags().Int64Var(&accountID, "account", 0, "Account whose token is used")
	_ = refresh.MarkFlagRequired("account")

	cmd.AddCommand(refresh)
	return cmd
}

func parseID(s string) (int64, error) {
	var id int64
	if _, err := fmt.Sscan(s, &id); err != nil || id <= 0 {
		return 0, fmt.Errorf("bad account id %q", s)
	}
	return id, nil
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := sonic.ConfigStd.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
