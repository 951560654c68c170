package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Proton-105/course-intake-bot/internal/catalog"
	apperrors "github.com/Proton-105/course-intake-bot/internal/errors"
	"github.com/Proton-105/course-intake-bot/internal/form"
	"github.com/Proton-105/course-intake-bot/internal/health"
	"github.com/Proton-105/course-intake-bot/internal/sheets"
	"github.com/Proton-105/course-intake-bot/pkg/config"
)

// spreadsheet is the Sheets collaborator as seen by the rest of the wiring. When the
// client cannot be built, client is nil and err keeps the reason.
type spreadsheet struct {
	client *sheets.Client
	err    error
}

// connectSheets builds the Sheets client when the catalog or the lead sink needs it.
// A failure is reported and the bot keeps running without the spreadsheet.
func connectSheets(
	ctx context.Context,
	cfg *config.Config,
	columns catalog.Columns,
	reporter form.ErrorReporter,
	checker *health.Checker,
	log *slog.Logger,
) spreadsheet {
	if cfg.Catalog.Source != "sheets" && cfg.Leads.Sink != "sheets" {
		return spreadsheet{}
	}

	client, err := sheets.New(ctx, sheets.Config{
		CredentialsFile:   cfg.Sheets.CredentialsFile,
		URL:               cfg.Sheets.URL,
		CatalogSheet:      cfg.Sheets.CatalogSheet,
		CatalogSheetIndex: cfg.Sheets.CatalogSheetIdx,
		LeadsSheet:        cfg.Sheets.LeadsSheet,
		LeadsSheetIndex:   cfg.Sheets.LeadsSheetIdx,
		Timeout:           cfg.Sheets.RequestTimeout(),
		Columns:           columns,
	}, log)
	if err == nil {
		checker.AddCheck("sheets", client)
		return spreadsheet{client: client}
	}

	err = fmt.Errorf("connect spreadsheet: %w", err)
	if cfg.Catalog.Source != "sheets" {
		// A sheets catalog reports the failure itself when it is loaded.
		reporter.Handle(ctx, apperrors.NewExternalAPIError("sheets", err))
	}

	checker.AddOptionalCheck("sheets", health.CheckFunc(func(context.Context) error {
		return err
	}))
	return spreadsheet{err: err}
}

// catalogSource picks the configured catalog reader. Without a spreadsheet client the
// source fails with the connection error and catalog.Load degrades to an empty catalog.
func catalogSource(cfg *config.Config, columns catalog.Columns, sheet spreadsheet) catalog.Source {
	if cfg.Catalog.Source == "csv" {
		return catalog.NewCSVSource(cfg.Catalog.CSVPath, columns)
	}
	if sheet.client == nil {
		return unavailableSource{err: sheet.err}
	}
	return sheet.client
}

type unavailableSource struct {
	err error
}

func (s unavailableSource) Rows(context.Context) ([]catalog.Row, error) {
	return nil, s.err
}
