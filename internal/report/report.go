// Package report renders analysis results for people: a terminal summary,
// a CSV export and an XLSX workbook.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sells-group/takeoff-cli/internal/model"
)

var printer = message.NewPrinter(language.English)

// money formats a dollar amount with thousands grouping.
func money(v float64) string {
	return printer.Sprintf("$%.2f", v)
}

// Summary renders a terminal-friendly report.
func Summary(result *model.AnalysisResult) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Blueprint Analysis\n")
	fmt.Fprintf(&b, "==================\n\n")
	fmt.Fprintf(&b, "Total area:   %.0f sq ft over %d floor(s)\n",
		result.Geometry.TotalArea, result.Geometry.Floors)
	for _, f := range []model.FloorName{model.FloorBasement, model.FloorMain, model.FloorUpper, model.FloorGarage} {
		if a := result.Geometry.FloorArea(f); a > 0 {
			fmt.Fprintf(&b, "  %-10s %.2f sq ft\n", string(f)+":", a)
		}
	}
	fmt.Fprintf(&b, "Confidence:   %.0f%%\n\n", result.Metadata.Confidence*100)

	fmt.Fprintf(&b, "%-28s %10s %-8s %12s %14s  %s\n",
		"Material", "Qty", "Unit", "Unit Price", "Line Total", "Source")
	fmt.Fprintf(&b, "%s\n", strings.Repeat("-", 84))
	for _, li := range result.Breakdown.LineItems {
		fmt.Fprintf(&b, "%-28s %10.0f %-8s %12s %14s  %s\n",
			li.Name, li.Quantity, li.Unit, money(li.UnitPrice), money(li.LineTotal), li.PriceSource)
	}
	fmt.Fprintf(&b, "%s\n", strings.Repeat("-", 84))
	fmt.Fprintf(&b, "%-48s %14s\n", "Subtotal", money(result.Breakdown.Subtotal))
	fmt.Fprintf(&b, "%-48s %14s\n",
		fmt.Sprintf("Tax (%.1f%%)", result.Breakdown.TaxRate*100), money(result.Breakdown.Tax))
	fmt.Fprintf(&b, "%-48s %14s\n", "Total", money(result.Breakdown.Total))

	if len(result.Metadata.Notes) > 0 {
		fmt.Fprintf(&b, "\nNotes:\n")
		for _, n := range result.Metadata.Notes {
			fmt.Fprintf(&b, "  - %s\n", n)
		}
	}
	return b.String()
}

var csvHeader = []string{"material_id", "name", "quantity", "unit", "unit_price", "line_total", "price_source"}

// WriteCSV writes the line items with a summary footer.
func WriteCSV(w io.Writer, result *model.AnalysisResult) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(csvHeader); err != nil {
		return eris.Wrap(err, "report: write csv header")
	}
	for _, li := range result.Breakdown.LineItems {
		record := []string{
			li.MaterialID,
			li.Name,
			strconv.FormatFloat(li.Quantity, 'f', -1, 64),
			li.Unit,
			strconv.FormatFloat(li.UnitPrice, 'f', 2, 64),
			strconv.FormatFloat(li.LineTotal, 'f', 2, 64),
			string(li.PriceSource),
		}
		if err := cw.Write(record); err != nil {
			return eris.Wrap(err, "report: write csv row")
		}
	}
	for _, footer := range [][]string{
		{"", "subtotal", "", "", "", strconv.FormatFloat(result.Breakdown.Subtotal, 'f', 2, 64), ""},
		{"", "tax", "", "", "", strconv.FormatFloat(result.Breakdown.Tax, 'f', 2, 64), ""},
		{"", "total", "", "", "", strconv.FormatFloat(result.Breakdown.Total, 'f', 2, 64), ""},
	} {
		if err := cw.Write(footer); err != nil {
			return eris.Wrap(err, "report: write csv footer")
		}
	}

	cw.Flush()
	return eris.Wrap(cw.Error(), "report: flush csv")
}

// WriteXLSX writes a two-sheet workbook: the cost breakdown and the
// geometry the estimate was derived from.
func WriteXLSX(path string, result *model.AnalysisResult) error {
	f := xlsx.NewFile()

	costs, err := f.AddSheet("Cost Breakdown")
	if err != nil {
		return eris.Wrap(err, "report: add cost sheet")
	}

	header := costs.AddRow()
	for _, h := range []string{"Material", "Quantity", "Unit", "Unit Price", "Line Total", "Price Source"} {
		header.AddCell().Value = h
	}
	for _, li := range result.Breakdown.LineItems {
		row := costs.AddRow()
		row.AddCell().Value = li.Name
		row.AddCell().SetFloat(li.Quantity)
		row.AddCell().Value = li.Unit
		row.AddCell().SetFloat(li.UnitPrice)
		row.AddCell().SetFloat(li.LineTotal)
		row.AddCell().Value = string(li.PriceSource)
	}
	costs.AddRow() // spacer
	for _, totals := range []struct {
		label string
		value float64
	}{
		{"Subtotal", result.Breakdown.Subtotal},
		{fmt.Sprintf("Tax (%.1f%%)", result.Breakdown.TaxRate*100), result.Breakdown.Tax},
		{"Total", result.Breakdown.Total},
	} {
		row := costs.AddRow()
		row.AddCell().Value = totals.label
		row.AddCell().SetFloat(totals.value)
	}

	geom, err := f.AddSheet("Geometry")
	if err != nil {
		return eris.Wrap(err, "report: add geometry sheet")
	}
	addPair := func(label string, value any) {
		row := geom.AddRow()
		row.AddCell().Value = label
		switch v := value.(type) {
		case float64:
			row.AddCell().SetFloat(v)
		case int:
			row.AddCell().SetInt(v)
		default:
			row.AddCell().Value = fmt.Sprint(v)
		}
	}
	addPair("Total area (sq ft)", result.Geometry.TotalArea)
	addPair("Floors", result.Geometry.Floors)
	for _, fl := range []model.FloorName{model.FloorBasement, model.FloorMain, model.FloorUpper, model.FloorGarage} {
		if a := result.Geometry.FloorArea(fl); a > 0 {
			addPair(string(fl)+" area (sq ft)", a)
		}
	}
	addPair("Exterior walls", fmt.Sprintf("%s @ %.0f\" O.C.", result.Geometry.ExteriorWall.StudSize, result.Geometry.ExteriorWall.SpacingInches))
	addPair("Interior walls", fmt.Sprintf("%s @ %.0f\" O.C.", result.Geometry.InteriorWall.StudSize, result.Geometry.InteriorWall.SpacingInches))
	addPair("Wall height (ft)", result.Geometry.ExteriorWall.Height)
	addPair("Confidence", result.Metadata.Confidence)
	addPair("Pages analyzed", result.Metadata.PageCount)

	return eris.Wrapf(f.Save(path), "report: save %s", path)
}
