// Package document renders issued invoices as PDF files.
package document

import (
	"time"

	"github.com/noah-isme/backend-invoice/internal/invoice"
)

// Party is the billed-to or billed-by block of an invoice.
type Party struct {
	Name      string `json:"name" validate:"required,max=200"`
	Address   string `json:"address" validate:"max=500"`
	StateCode string `json:"stateCode" validate:"max=8"`
	GSTIN     string `json:"gstin" validate:"omitempty,len=15,alphanum"`
	Email     string `json:"email" validate:"omitempty,email"`
}

// BankDetails is printed in the payment section.
type BankDetails struct {
	AccountName   string `json:"accountName" validate:"max=200"`
	AccountNumber string `json:"accountNumber" validate:"max=64"`
	BankName      string `json:"bankName" validate:"max=200"`
	IFSC          string `json:"ifsc" validate:"max=32"`
}

// Invoice is everything printed on the document. Amounts come preformatted in Display
// so the PDF matches what the API returns.
type Invoice struct {
	Number        string
	Status        string
	InvoiceDate   time.Time
	DueDate       *time.Time
	ServicePeriod string
	BilledTo      Party
	BilledBy      Party
	Bank          BankDetails
	Notes         string
	Terms         string
	LineItems     []invoice.LineItem
	Display       invoice.Display
	RoundOff      bool
}

// Filename is the download name of the rendered document.
func (inv Invoice) Filename() string {
	return "invoice-" + inv.Number + ".pdf"
}

// ContentType of rendered documents.
const ContentType = "application/pdf"
