package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/evervibe/evs-next-basic-web/internal/license"
	"github.com/evervibe/evs-next-basic-web/pkg/contracts/domain"
)

// licenseGetter reads one stored license and its download log
type licenseGetter interface {
	Get(ctx context.Context, key string) (*domain.StoredLicense, error)
	DownloadLogs(ctx context.Context, key string) ([]domain.DownloadLogEntry, error)
}

// storedView is what show prints
type storedView struct {
	Key       string                    `json:"key"`
	License   domain.StoredLicense      `json:"license"`
	Downloads []domain.DownloadLogEntry `json:"downloads"`
}

func (c *cli) codec() (*license.Codec, error) {
	if c.cfg.License.Salt == "" {
		return nil, errors.New("LICENSE_SALT is not set")
	}
	return license.NewCodec(c.cfg.License.Salt), nil
}

func (c *cli) generate(args []string) error {
	fs := flag.NewFlagSet("generate", flag.ContinueOnError)
	fs.SetOutput(c.stdout)
	licenseType := fs.String("type", string(domain.LicenseTypeSingle), "license type: single | agency")
	email := fs.String("email", "", "customer email address")
	if err := fs.Parse(args); err != nil {
		return err
	}

	t := domain.LicenseType(strings.ToLower(*licenseType))
	if !t.Valid() {
		return fmt.Errorf("invalid license type %q", *licenseType)
	}
	addr := strings.TrimSpace(*email)
	if !license.ValidateEmail(addr) {
		return fmt.Errorf("invalid email %q", *email)
	}

	codec, err := c.codec()
	if err != nil {
		return err
	}

	l := codec.Generate(t, addr)
	c.logger.Info("license generated",
		slog.String("license_key", l.Key),
		slog.String("license_type", string(l.Type)))
	return writeJSON(c.stdout, l)
}

func (c *cli) verify(args []string) error {
	fs := flag.NewFlagSet("verify", flag.ContinueOnError)
	fs.SetOutput(c.stdout)
	file := fs.String("file", "-", "license JSON document, - for stdin")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var r io.Reader = c.stdin
	if *file != "-" {
		f, err := os.Open(*file)
		if err != nil {
			return fmt.Errorf("open license: %w", err)
		}
		defer f.Close()
		r = f
	}

	var l domain.License
	if err := json.NewDecoder(r).Decode(&l); err != nil {
		return fmt.Errorf("decode license: %w", err)
	}

	codec, err := c.codec()
	if err != nil {
		return err
	}
	if err := codec.ValidateIntegrity(l); err != nil {
		return fmt.Errorf("license %s: %w", l.Key, err)
	}

	fmt.Fprintf(c.stdout, "license %s is valid\n", l.Key)
	return nil
}

func (c *cli) show(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("show", flag.ContinueOnError)
	fs.SetOutput(c.stdout)
	key := fs.String("key", "", "license key")
	if err := fs.Parse(args); err != nil {
		return err
	}
	k := strings.ToUpper(strings.TrimSpace(*key))
	if !license.ValidateFormat(k) {
		return fmt.Errorf("invalid license key %q", *key)
	}

	st, closeStore, err := c.openStore(ctx, c.cfg, c.logger)
	if err != nil {
		return err
	}
	defer closeStore()

	view, err := loadView(ctx, st, k)
	if err != nil {
		return err
	}
	return writeJSON(c.stdout, view)
}

func loadView(ctx context.Context, st licenseGetter, key string) (storedView, error) {
	record, err := st.Get(ctx, key)
	if err != nil {
		return storedView{}, err
	}
	if record == nil {
		return storedView{}, fmt.Errorf("license %s not found", key)
	}
	logs, err := st.DownloadLogs(ctx, key)
	if err != nil {
		return storedView{}, err
	}
	return storedView{Key: key, License: *record, Downloads: logs}, nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
