package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xavierca1/ligue-crm/internal/config"
	"github.com/xavierca1/ligue-crm/internal/infra/database"
	"github.com/xavierca1/ligue-crm/internal/store"
	"github.com/xavierca1/ligue-crm/internal/usecase"
	"github.com/xavierca1/ligue-crm/internal/view"
)

var (
	exportOut    string
	exportFilter usecase.FilterInput
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Exporta os leads filtrados em CSV",
	Long: `Lê a tabela de leads uma vez, aplica os mesmos filtros do painel e grava
o resultado em CSV (Date, Name, Phone, Origin, Subject, Status, Stage).

Exemplos:
  ligue-crm export --preset 7d --out leads.csv
  ligue-crm export --status client --origin meta`,
	RunE: runExport,
}

func init() {
	f := exportCmd.Flags()
	f.StringVarP(&exportOut, "out", "o", "-", "Output file (- for stdout)")
	f.StringVar(&exportFilter.Search, "search", "", "Free-text search over name, phone, subject and origin")
	f.StringVar(&exportFilter.Status, "status", "", "Exact status (case-insensitive)")
	f.StringVar(&exportFilter.Origin, "origin", "", "Exact origin (case-insensitive)")
	f.StringVar(&exportFilter.Preset, "preset", "", "Date preset: all, today, 7d, 30d")
	f.StringVar(&exportFilter.From, "from", "", "Start date (YYYY-MM-DD)")
	f.StringVar(&exportFilter.To, "to", "", "End date (YYYY-MM-DD, inclusive)")
	f.StringVar(&exportFilter.Sort, "sort", "", "Sort key: created_at, name, status, origin")
	f.StringVar(&exportFilter.Desc, "desc", "", "Sort descending (true/false)")
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	filter, errs := usecase.ParseFilterInput(exportFilter)
	if len(errs) > 0 {
		return fmt.Errorf("filtro inválido: %v", errs)
	}

	catalog, err := config.LoadStageCatalog(cfg.StagesFile)
	if err != nil {
		return err
	}

	db, err := database.NewDBConnection(ctx, cfg.DatabaseURL, database.DefaultPoolConfig())
	if err != nil {
		return err
	}
	defer db.Close()

	st := store.New(logger)
	ingest := usecase.NewIngestLeadsUseCase(
		database.NewLeadRepository(db, cfg.LeadsTable, logger),
		st, nil, nil, nil, usecase.PolicyReload, logger,
	)
	defer ingest.Close()
	if err := ingest.Load(ctx); err != nil {
		return err
	}

	var w io.Writer = cmd.OutOrStdout()
	if exportOut != "-" {
		file, err := os.Create(exportOut)
		if err != nil {
			return err
		}
		defer file.Close()
		w = file
	}

	dashboard := usecase.NewDashboardUseCase(st, view.NewPipeline(catalog, cfg.PageSize, cfg.Location()))
	if err := dashboard.ExportCSV(w, filter); err != nil {
		return err
	}

	logger.Info("export concluído",
		zap.Int("records", len(dashboard.FilteredView(filter))),
		zap.String("out", exportOut))
	return nil
}
