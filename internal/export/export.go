// Package export writes scored postings to an XLSX workbook.
package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/amishk599/jobsift/internal/model"
)

const sheet = "Matches"

var headers = []string{
	"Source", "Job ID", "Title", "Department", "Location", "Published",
	"Fit Score", "Visa Sponsor", "Reason", "URL",
}

// WriteXLSX writes postings, in the given order, as one row each.
func WriteXLSX(w io.Writer, postings []model.Posting) error {
	f, err := build(postings)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

// WriteFile writes postings to an XLSX file at path.
func WriteFile(path string, postings []model.Posting) error {
	f, err := build(postings)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("saving %s: %w", path, err)
	}
	return nil
}

func build(postings []model.Posting) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := fill(f, postings); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

func fill(f *excelize.File, postings []model.Posting) error {
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("renaming sheet: %w", err)
	}
	if err := setRow(f, 1, toCells(headers)); err != nil {
		return err
	}
	for i, p := range postings {
		if err := setRow(f, i+2, row(p)); err != nil {
			return err
		}
	}

	if err := f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("freezing header: %w", err)
	}
	lastCol, err := excelize.ColumnNumberToName(len(headers))
	if err != nil {
		return err
	}
	if err := f.AutoFilter(sheet, "A1:"+lastCol+"1", nil); err != nil {
		return fmt.Errorf("adding filter: %w", err)
	}
	return nil
}

func row(p model.Posting) []any {
	var score any = ""
	if p.FitScore != nil {
		score = *p.FitScore
	}
	visa := ""
	if p.VisaSponsor != nil {
		visa = "No"
		if *p.VisaSponsor {
			visa = "Yes"
		}
	}
	published := ""
	if !p.PublishedAt.IsZero() {
		published = p.PublishedAt.UTC().Format("2006-01-02 15:04")
	}
	return []any{
		p.Source, p.JobID, p.Title, p.Department, p.Location, published,
		score, visa, p.Reason, p.URL,
	}
}

func setRow(f *excelize.File, n int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, n)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("writing row %d: %w", n, err)
	}
	return nil
}

func toCells(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
