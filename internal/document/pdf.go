package document

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/phpdave11/gofpdf"

	"github.com/noah-isme/backend-invoice/internal/invoice"
)

const dateLayout = "02-01-2006"

var columns = []struct {
	title string
	width float64
	align string
}{
	{"#", 8, "C"},
	{"Item", 62, "L"},
	{"Rate", 24, "R"},
	{"Qty", 14, "R"},
	{"Tax %", 16, "R"},
	{"Disc.", 18, "R"},
	{"Amount", 28, "R"},
}

// Render draws inv on an A4 page and returns the PDF bytes.
func Render(inv Invoice) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Invoice "+inv.Number, false)
	pdf.SetAutoPageBreak(true, 15)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "INVOICE")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 10)
	header := []string{
		"Invoice No : " + inv.Number,
		"Date       : " + inv.InvoiceDate.Format(dateLayout),
	}
	if inv.DueDate != nil {
		header = append(header, "Due Date   : "+inv.DueDate.Format(dateLayout))
	}
	if inv.ServicePeriod != "" {
		header = append(header, "Period     : "+inv.ServicePeriod)
	}
	header = append(header, "Status     : "+strings.ToUpper(inv.Status))
	for _, line := range header {
		pdf.Cell(0, 5, tr(line))
		pdf.Ln(5)
	}
	pdf.Ln(4)

	y := pdf.GetY()
	party(pdf, tr, "Billed By", inv.BilledBy, 10, y)
	party(pdf, tr, "Billed To", inv.BilledTo, 110, y)
	pdf.SetXY(10, y+32)

	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(230, 230, 230)
	for _, c := range columns {
		pdf.CellFormat(c.width, 7, c.title, "1", 0, c.align, true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 9)
	for i, li := range inv.LineItems {
		name := li.Name
		if li.Description != "" {
			name += " - " + li.Description
		}
		cells := []string{
			fmt.Sprintf("%d", i+1),
			truncate(name, 44),
			invoice.FormatAmount(li.Rate, inv.RoundOff),
			li.Quantity.String(),
			li.Tax.String(),
			li.Discount.String(),
			invoice.FormatAmount(li.Amount, inv.RoundOff),
		}
		for j, c := range columns {
			pdf.CellFormat(c.width, 6, tr(cells[j]), "1", 0, c.align, false, 0, "")
		}
		pdf.Ln(-1)
	}
	pdf.Ln(4)

	totals(pdf, inv.Display)

	if inv.Bank.AccountNumber != "" {
		pdf.Ln(4)
		pdf.SetFont("Helvetica", "B", 10)
		pdf.Cell(0, 6, "Bank Details")
		pdf.Ln(6)
		pdf.SetFont("Helvetica", "", 9)
		for _, line := range []string{
			"Account Name : " + inv.Bank.AccountName,
			"Account No   : " + inv.Bank.AccountNumber,
			"Bank         : " + inv.Bank.BankName,
			"IFSC         : " + inv.Bank.IFSC,
		} {
			pdf.Cell(0, 5, tr(line))
			pdf.Ln(5)
		}
	}
	for _, block := range []struct{ title, text string }{{"Notes", inv.Notes}, {"Terms", inv.Terms}} {
		if strings.TrimSpace(block.text) == "" {
			continue
		}
		pdf.Ln(3)
		pdf.SetFont("Helvetica", "B", 10)
		pdf.Cell(0, 6, block.title)
		pdf.Ln(6)
		pdf.SetFont("Helvetica", "I", 9)
		pdf.MultiCell(0, 5, tr(block.text), "", "", false)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render invoice pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func party(pdf *gofpdf.Fpdf, tr func(string) string, title string, p Party, x, y float64) {
	pdf.SetXY(x, y)
	pdf.SetFont("Helvetica", "B", 10)
	pdf.Cell(90, 6, title)
	pdf.SetFont("Helvetica", "", 9)
	lines := []string{p.Name, p.Address}
	if p.GSTIN != "" {
		lines = append(lines, "GSTIN: "+p.GSTIN)
	}
	if p.StateCode != "" {
		lines = append(lines, "State: "+p.StateCode)
	}
	for i, line := range lines {
		pdf.SetXY(x, y+6+float64(i)*5)
		pdf.Cell(90, 5, tr(truncate(line, 60)))
	}
}

func totals(pdf *gofpdf.Fpdf, d invoice.Display) {
	rows := [][2]string{
		{"Total", d.Total},
		{"Discount", d.TotalDiscount},
		{"Sub Total", d.SubTotal},
	}
	if d.GST.SameState {
		rows = append(rows, [2]string{"CGST", d.GST.CGST}, [2]string{"SGST", d.GST.SGST})
	} else {
		rows = append(rows, [2]string{"IGST", d.GST.IGST})
	}
	rows = append(rows,
		[2]string{"MCD Charges", d.MCDCharges},
		[2]string{"Toll Charges", d.TollCharges},
		[2]string{"Additional Charges", d.AdditionalCharges},
		[2]string{"Penalty", d.Penalty},
	)
	pdf.SetFont("Helvetica", "", 9)
	for _, r := range rows {
		pdf.CellFormat(140, 6, r[0], "", 0, "R", false, 0, "")
		pdf.CellFormat(30, 6, r[1], "", 1, "R", false, 0, "")
	}
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(140, 8, "Grand Total", "T", 0, "R", false, 0, "")
	pdf.CellFormat(30, 8, d.GrandTotal, "T", 1, "R", false, 0, "")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
