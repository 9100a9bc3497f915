package view

import (
	"encoding/csv"
	"io"
	"time"

	"github.com/xavierca1/ligue-crm/internal/entity"
)

const ExportDateLayout = "02/01/2006"

var ExportHeader = []string{"Date", "Name", "Phone", "Origin", "Subject", "Status", "Stage"}

// ExportRows projeta os registros em linhas de planilha na ordem de ExportHeader.
func ExportRows(records []entity.Lead, loc *time.Location) [][]string {
	if loc == nil {
		loc = time.UTC
	}
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		date := entity.Placeholder
		if !r.CreatedAt.IsZero() {
			date = r.CreatedAt.In(loc).Format(ExportDateLayout)
		}
		status := r.RawStatus()
		if status == "" {
			status = entity.Placeholder
		}
		rows = append(rows, []string{
			date,
			r.DisplayName(),
			r.DisplayPhone(),
			r.OriginLabel(),
			r.DisplaySubject(),
			status,
			r.DisplayStage(),
		})
	}
	return rows
}

// WriteCSV grava o cabeçalho e as linhas já projetadas por ExportRows.
func WriteCSV(w io.Writer, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ExportHeader); err != nil {
		return err
	}
	if err := cw.WriteAll(rows); err != nil {
		return err
	}
	return cw.Error()
}
