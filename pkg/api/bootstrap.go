package api

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
	"google.golang.org/api/option"

	"painel/pkg/config"
	"painel/pkg/dataset"
	"painel/pkg/session"
	"painel/pkg/sheets"
)

// GetClient authenticates against the Sheets API with the configured service
// account.
func GetClient(ctx context.Context, cfg *config.Config) (*sheets.Client, error) {
	ts, err := sheets.LoadTokenSource(ctx, cfg.Store.Sheets.CredentialsJSON, cfg.Store.Sheets.CredentialsFile)
	if err != nil {
		return nil, err
	}
	client, err := sheets.NewClient(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("creating sheets client: %w", err)
	}
	log.WithField("spreadsheet", cfg.Store.Sheets.SpreadsheetID).Debug("sheets client ready")
	return client, nil
}

// NewSessionFactory returns a constructor for sessions sharing one client.
func NewSessionFactory(cfg *config.Config, client sheets.TableClient) func() *session.Session {
	catalog := dataset.DefaultCatalog(
		cfg.Store.Sheets.SpreadsheetID,
		cfg.Store.Cache.OperationalTTL.Std(),
		cfg.Store.Cache.ReferenceTTL.Std(),
	)
	return func() *session.Session {
		return session.New(session.Options{
			Catalog:        catalog,
			Client:         client,
			Policy:         cfg.RetryPolicy(),
			PartitionDelay: cfg.Store.Batch.PartitionDelay.Std(),
		})
	}
}

// Bootstrap builds the session registry the HTTP server works on.
func Bootstrap(ctx context.Context, cfg *config.Config) (*session.Registry, error) {
	client, err := GetClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return session.NewRegistry(NewSessionFactory(cfg, client)), nil
}
