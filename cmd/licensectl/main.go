// Command licensectl is the operator tool for storefront licenses.
//
//	licensectl generate -type single|agency -email ADDRESS
//	licensectl verify   -file license.json      (use - for stdin)
//	licensectl show     -key EVS-XXXX-XXXX-XXXX
//	licensectl export   -out licenses.xlsx
//
// Configuration is read the same way as the server: .env, optional YAML file,
// then the environment. generate and verify need LICENSE_SALT; show and
// export need REDIS_URL.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/evervibe/evs-next-basic-web/internal/config"
	"github.com/evervibe/evs-next-basic-web/internal/infrastructure"
	"github.com/evervibe/evs-next-basic-web/internal/store"
)

const usage = `usage: licensectl <command> [flags]

commands:
  generate  create a license key and its integrity hash
  verify    check the integrity of a license JSON document
  show      print a stored license and its download log
  export    write all stored licenses and downloads to an XLSX workbook
`

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := &cli{
		cfg:       cfg,
		logger:    infrastructure.NewLogger(os.Stderr, cfg.Logging.Level),
		stdin:     os.Stdin,
		stdout:    os.Stdout,
		openStore: openRedisStore,
	}
	if err := c.run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// licenseReader is the read side of the license store
type licenseReader interface {
	licenseGetter
	Keys(ctx context.Context) ([]string, error)
}

type cli struct {
	cfg       *config.Config
	logger    *slog.Logger
	stdin     io.Reader
	stdout    io.Writer
	openStore func(ctx context.Context, cfg *config.Config, logger *slog.Logger) (licenseReader, func(), error)
}

func (c *cli) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprint(c.stdout, usage)
		return errors.New("missing command")
	}

	switch args[0] {
	case "generate":
		return c.generate(args[1:])
	case "verify":
		return c.verify(args[1:])
	case "show":
		return c.show(ctx, args[1:])
	case "export":
		return c.export(ctx, args[1:])
	case "help", "-h", "--help":
		fmt.Fprint(c.stdout, usage)
		return nil
	default:
		fmt.Fprint(c.stdout, usage)
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func openRedisStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (licenseReader, func(), error) {
	if !cfg.RedisConfigured() {
		return nil, nil, errors.New("REDIS_URL is not set")
	}
	client, err := store.Connect(ctx, cfg.Redis.URL)
	if err != nil {
		return nil, nil, err
	}
	return store.NewLicenseStore(client, logger), func() { _ = client.Close() }, nil
}
