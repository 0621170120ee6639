package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/layer-3/zklogin"
	"github.com/layer-3/zklogin/adapters/salt"
	"github.com/layer-3/zklogin/config"
)

const (
	configFlag     = "config"
	logLevelFlag   = "log-level"
	clientIDFlag   = "client-id"
	saltPolicyFlag = "salt-policy"
	storeDirFlag   = "store-dir"
	rpcURLFlag     = "rpc-url"
	proverURLFlag  = "prover-url"
)

// restoreMode selects how much of an earlier run's session open picks up
type restoreMode int

const (
	// fresh ignores the stored session
	fresh restoreMode = iota
	// reload rebuilds the stored session without running any stage
	reload
	// advance rebuilds the stored session and advances it, stalling on failures
	advance
)

type app struct {
	v      *viper.Viper
	cfg    *config.Config
	logger zerolog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{v: config.New()}

	root := &cobra.Command{
		Use:           "zklogin",
		Short:         "Sign in to Sui with an OAuth identity and send zkLogin transactions",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(a.v, a.v.GetString(configFlag))
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.logger = cfg.Log.Logger()
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.String(configFlag, "", "Path to a YAML config file")
	flags.String(logLevelFlag, "info", "Log level")
	flags.String(clientIDFlag, "", "OAuth client id")
	flags.String(saltPolicyFlag, "encrypted", "Salt storage policy: plaintext or encrypted")
	flags.String(storeDirFlag, "", "Directory of the local session store")
	flags.String(rpcURLFlag, "", "Sui full node JSON-RPC URL")
	flags.String(proverURLFlag, "", "Proving service URL")

	bind := map[string]string{
		configFlag:     configFlag,
		logLevelFlag:   "log.level",
		clientIDFlag:   "provider.client_id",
		saltPolicyFlag: "salt.policy",
		storeDirFlag:   "store.dir",
		rpcURLFlag:     "sui.rpc_url",
		proverURLFlag:  "prover.url",
	}
	for flag, key := range bind {
		if err := a.v.BindPFlag(key, flags.Lookup(flag)); err != nil {
			panic(err)
		}
	}

	root.AddCommand(
		a.loginCmd(),
		a.resumeCmd(),
		a.epochCmd(),
		a.advanceCmd(),
		a.statusCmd(),
		a.resetCmd(),
		a.saltCmd(),
		a.transferCmd(),
		a.mintCmd(),
		a.balanceCmd(),
		a.nftsCmd(),
		a.serveCmd(),
	)
	return root
}

// open builds the wallet and picks up the session left by an earlier run as mode says
func (a *app) open(ctx context.Context, mode restoreMode, opts ...zklogin.Option) (*zklogin.Service, error) {
	opts = append(opts, zklogin.WithLogger(a.logger))
	if a.cfg.Salt.Policy == salt.PolicyEncrypted && a.cfg.Salt.Passphrase == "" {
		opts = append(opts, zklogin.WithPassphrase(promptPassphrase()))
	}

	svc, err := zklogin.New(ctx, a.cfg, opts...)
	if err != nil {
		return nil, err
	}
	switch mode {
	case reload:
		err = svc.Reload(ctx)
	case advance:
		err = svc.Restore(ctx)
	}
	if err != nil {
		svc.Close()
		return nil, fmt.Errorf("failed to restore session: %w", err)
	}
	return svc, nil
}

// promptPassphrase reads the salt passphrase from the terminal each time the vault asks
func promptPassphrase() func(context.Context) (string, error) {
	return func(context.Context) (string, error) {
		fd := int(os.Stdin.Fd())
		if !term.IsTerminal(fd) {
			return "", errors.New("salt passphrase required: set ZKLOGIN_SALT_PASSPHRASE or run in a terminal")
		}
		fmt.Fprint(os.Stderr, "Salt passphrase: ")
		raw, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("failed to read passphrase: %w", err)
		}
		return string(raw), nil
	}
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
