// Command bitbnb signs in with a keychain, uploads files to IPFS and lists
// the uploads recorded on the ledger.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"bitbnb/hosting-api/config"
	"bitbnb/hosting-api/gateway"
	"bitbnb/hosting-api/keychain"
	"bitbnb/hosting-api/ledger"
	"bitbnb/hosting-api/session"
	"bitbnb/hosting-api/view"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const usage = `Usage: bitbnb <command> [flags]

Commands:
  login                      sign in with Hive Keychain
  whoami                     show the signed-in account
  upload <file> --project N  upload a file and record it on the ledger
  history [--limit N]        list your recorded uploads
  logout                     sign out
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	if err := config.SetupClient(); err != nil {
		fmt.Fprintln(os.Stderr, "Configuration error:", err)
		os.Exit(1)
	}

	makeLogger(viper.GetString("app.log_level"))
	defer zap.L().Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	v, err := newView(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if err := run(ctx, v, os.Args[1], os.Args[2:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			os.Exit(0)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, v *view.View, cmd string, args []string) error {
	switch cmd {
	case "login":
		return v.Login(ctx)
	case "whoami":
		return v.Whoami(ctx)
	case "logout":
		return v.Logout()
	case "upload":
		fs := pflag.NewFlagSet("upload", pflag.ContinueOnError)
		project := fs.StringP("project", "p", "", "Project name the file belongs to")
		if err := fs.Parse(args); err != nil {
			return err
		}

		if fs.NArg() != 1 {
			fmt.Fprint(os.Stderr, usage)
			return errors.New("upload expects exactly one file")
		}

		return v.Upload(ctx, fs.Arg(0), *project)
	case "history":
		fs := pflag.NewFlagSet("history", pflag.ContinueOnError)
		limit := fs.IntP("limit", "n", viper.GetInt("ledger.history_limit"), "How many of the latest operations to scan")
		if err := fs.Parse(args); err != nil {
			return err
		}

		v.HistoryWindow = *limit
		return v.History(ctx)
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func newView(ctx context.Context) (*view.View, error) {
	var pinner gateway.Pinner

	switch viper.GetString("pinning.provider") {
	case "filebase":
		fb, err := gateway.NewFilebase(ctx, gateway.FilebaseOptions{
			AccessKey:      viper.GetString("filebase.access_key"),
			SecretKey:      viper.GetString("filebase.secret_key"),
			Bucket:         viper.GetString("filebase.bucket"),
			Endpoint:       viper.GetString("filebase.endpoint"),
			ContentGateway: viper.GetString("pinning.gateway_url"),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Filebase client, %w", err)
		}
		pinner = fb
	default:
		p := gateway.NewPinata(
			viper.GetString("pinata.api_key"),
			viper.GetString("pinata.secret_key"),
			viper.GetString("pinning.gateway_url"),
		)
		p.BaseURL = viper.GetString("pinata.url")
		pinner = p
	}

	sessionPath := viper.GetString("session.path")
	if sessionPath == "" {
		sessionPath = session.DefaultPath()
	}

	backend := gateway.NewBackend(viper.GetString("backend.url"))

	v := view.New(
		session.NewManager(sessionPath),
		keychain.NewBridge(viper.GetString("keychain.url")),
		ledger.NewClient(viper.GetString("ledger.rpc_url")),
		gateway.NewClient(pinner, backend),
		backend,
	)
	v.RecordKind = viper.GetString("ledger.record_kind")
	v.HistoryWindow = viper.GetInt("ledger.history_limit")

	return v, nil
}

// makeLogger logs to stderr so it never mixes with command output
func makeLogger(level string) {
	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cfg.OutputPaths = []string{"stderr"}
	cfg.DisableStacktrace = true
	cfg.DisableCaller = true

	if lvl, err := zapcore.ParseLevel(level); err == nil {
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}

	log, _ := cfg.Build()
	zap.ReplaceGlobals(log)
}
