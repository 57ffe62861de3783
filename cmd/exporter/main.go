// Command exporter writes an upstream resource to an xlsx or pdf file.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/ubuntu/decorate"
	"github.com/ukydev/fleet-tolls/internal/config"
	"github.com/ukydev/fleet-tolls/internal/environment"
	"github.com/ukydev/fleet-tolls/internal/export"
	"github.com/ukydev/fleet-tolls/internal/resources"
	"github.com/ukydev/fleet-tolls/internal/upstream"
)

type options struct {
	Format  string
	Env     string
	Out     string
	Filters map[string]string
	Verbose bool
}

func newRootCmd() *cobra.Command {
	var opts options
	v := viper.New()

	cmd := &cobra.Command{
		Use:           "exporter <resource>",
		Short:         "Export a Rydora resource to xlsx or pdf",
		Long:          "Fetches every row of a resource from the Rydora API and writes it to a file.\nResources: " + strings.Join(resources.Names(), ", "),
		Args:          cobra.ExactArgs(1),
		ValidArgs:     resources.Names(),
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			if opts.Verbose {
				log.SetLevel(log.DebugLevel)
			}
			if err := config.LoadDotEnv(".env"); err != nil {
				return err
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			token := v.GetString("token")
			if token == "" {
				return errors.New("no token: set RYDORA_TOKEN or pass --token")
			}
			path, rows, err := run(cmd.Context(), cfg, token, args[0], opts, time.Now())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d rows to %s\n", rows, path)
			return nil
		},
	}
	cmd.CompletionOptions.HiddenDefaultCmd = true

	flags := cmd.Flags()
	flags.StringVarP(&opts.Format, "format", "f", "xlsx", "output format: xlsx or pdf")
	flags.StringVarP(&opts.Env, "env", "e", "", "backend environment (development or production); defaults to DEFAULT_ENVIRONMENT")
	flags.StringVarP(&opts.Out, "out", "o", "", "output file; defaults to <resource>-<yyyymmdd>.<format>")
	flags.StringToStringVar(&opts.Filters, "filter", nil, "list filters and ordering, e.g. --filter state=NY,sort=amount")
	flags.String("token", "", "bearer token for the Rydora API")
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "enable debug logging")

	if err := v.BindPFlag("token", flags.Lookup("token")); err != nil {
		panic(fmt.Errorf("bind token flag: %w", err))
	}
	if err := v.BindEnv("token", "RYDORA_TOKEN"); err != nil {
		panic(fmt.Errorf("bind RYDORA_TOKEN: %w", err))
	}
	return cmd
}

// run exports resource and returns the written path and row count.
func run(ctx context.Context, cfg config.Config, token, resource string, opts options, now time.Time) (path string, rows int, err error) {
	defer decorate.OnError(&err, "could not export %s", resource)

	exporter, err := resources.Lookup(resource)
	if err != nil {
		return "", 0, err
	}
	format, err := export.ParseFormat(opts.Format)
	if err != nil {
		return "", 0, err
	}
	env := cfg.DefaultEnvironment
	if opts.Env != "" {
		if env, err = environment.Parse(opts.Env); err != nil {
			return "", 0, err
		}
	}
	resolver, err := environment.NewResolver(cfg.DefaultEnvironment, cfg.Environments())
	if err != nil {
		return "", 0, err
	}

	client := upstream.New(upstream.Options{
		Resolver: resolver,
		Timeout:  cfg.UpstreamTimeout,
		Retry:    cfg.Retry,
		Logger:   log.StandardLogger(),
	})
	values := url.Values{}
	for k, val := range opts.Filters {
		values.Set(k, val)
	}

	path = opts.Out
	if path == "" {
		path = format.FileName(exporter.ResourceName(), now)
	}

	rows, err = writeFile(path, func(w io.Writer) (int, error) {
		call := upstream.Call{Environment: env, Token: token}
		return exporter.ExportTo(ctx, client, call, values, w, format, now)
	})
	if err != nil {
		return "", 0, err
	}

	log.WithFields(log.Fields{
		"resource":    exporter.ResourceName(),
		"environment": env,
		"format":      format,
		"rows":        rows,
	}).Debug("Export written")
	return path, rows, nil
}

// writeFile creates path only once render succeeded.
func writeFile(path string, render func(io.Writer) (int, error)) (rows int, err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".export-*")
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if rows, err = render(tmp); err != nil {
		return 0, err
	}
	if err = tmp.Close(); err != nil {
		return 0, err
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return 0, err
	}
	return rows, nil
}

func main() {
	cmd := newRootCmd()
	if err := cmd.Execute(); err != nil {
		log.Error(err)
		if !cmd.SilenceUsage {
			cmd.Usage()
		}
		os.Exit(1)
	}
}
