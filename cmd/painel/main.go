package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"painel/pkg/api"
	"painel/pkg/config"
	"painel/pkg/dataset"
	"painel/pkg/session"
	"painel/pkg/sheets"
)

// connect returns the table client for a loaded config. Tests replace it.
type connect func(ctx context.Context, cfg *config.Config) (sheets.TableClient, error)

func dial(ctx context.Context, cfg *config.Config) (sheets.TableClient, error) {
	return api.GetClient(ctx, cfg)
}

type cli struct {
	verbose    bool
	configFile string
	connect    connect
	loadConfig func(string) (*config.Config, error)
}

func (c *cli) open(ctx context.Context) (*session.Session, error) {
	cfg, err := c.loadConfig(c.configFile)
	if err != nil {
		return nil, err
	}
	client, err := c.connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return api.NewSessionFactory(cfg, client)(), nil
}

func newRootCmd(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:           "painel",
		Short:         "Read and write the sales dashboard spreadsheet",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if c.verbose {
				log.SetLevel(log.DebugLevel)
			}
			log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
			log.SetOutput(cmd.ErrOrStderr())
		},
	}
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "Verbose logging")
	root.PersistentFlags().StringVar(&c.configFile, "config", config.DefaultFilename, "Path to the TOML config file")

	root.AddCommand(newDatasetsCmd(), newGetCmd(c), newWriteCmd(c))
	return root
}

func newDatasetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "datasets",
		Short: "List the known datasets",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			catalog := dataset.DefaultCatalog("", 0, 0)
			for _, k := range catalog.Keys() {
				d, _ := catalog.Lookup(k)
				var sheetNames []string
				for _, p := range d.Partitions {
					sheetNames = append(sheetNames, p.Location.Sheet)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-28s %s\n", k, strings.Join(sheetNames, ", "))
			}
		},
	}
}

func newGetCmd(c *cli) *cobra.Command {
	var where []string
	cmd := &cobra.Command{
		Use:   "get <dataset>",
		Short: "Print a dataset as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := map[string]string{}
			for _, w := range where {
				col, val, ok := strings.Cut(w, "=")
				if !ok {
					return fmt.Errorf("invalid filter %q, expected column=value", w)
				}
				filter[col] = val
			}
			s, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()
			snap, err := s.Select(cmd.Context(), args[0], filter)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(snap)
		},
	}
	cmd.Flags().StringArrayVarP(&where, "where", "w", nil, "Filter rows by column=value (repeatable)")
	return cmd
}

func newWriteCmd(c *cli) *cobra.Command {
	var mode, file string
	cmd := &cobra.Command{
		Use:   "write <dataset>",
		Short: "Append or overwrite rows from a JSON array of objects",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := session.ParseMode(mode)
			if err != nil {
				return err
			}
			rows, err := readRows(cmd.InOrStdin(), file)
			if err != nil {
				return err
			}
			s, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()
			if err := s.Write(cmd.Context(), session.WriteRequest{Dataset: args[0], Rows: rows, Mode: m}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d rows to %s (%s)\n", len(rows), args[0], m)
			return nil
		},
	}
	cmd.Flags().StringVar(&mode, "mode", string(session.Append), "append or overwrite")
	cmd.Flags().StringVarP(&file, "file", "f", "-", "JSON file with the rows, - for stdin")
	return cmd
}

func readRows(stdin io.Reader, file string) ([]dataset.Row, error) {
	r := stdin
	if file != "-" {
		f, err := os.Open(file)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}
	var rows []dataset.Row
	if err := json.NewDecoder(r).Decode(&rows); err != nil {
		return nil, fmt.Errorf("decoding rows: %w", err)
	}
	return rows, nil
}

func main() {
	c := &cli{connect: dial, loadConfig: config.New}
	if err := newRootCmd(c).ExecuteContext(context.Background()); err != nil {
		log.Fatalf("painel: %v", err)
	}
}
