package crm

import (
	"context"
	"errors"
	"fmt"
)

// Invoice is a customer invoice as listed on the website.
type Invoice struct {
	ID        int64   `json:"id"`
	Number    string  `json:"number"`
	Date      string  `json:"date"`
	DueDate   string  `json:"dueDate"`
	Amount    float64 `json:"amount"`
	AmountDue float64 `json:"amountDue"`
	Status    string  `json:"status"`
	PDFURL    string  `json:"pdfUrl"`
}

// ListInvoices returns the posted customer invoices of the customer with
// email. An unknown email has no invoices.
func (s *Service) ListInvoices(ctx context.Context, email string) ([]Invoice, error) {
	partnerID, err := s.findCustomerByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		return []Invoice{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up customer: %w", err)
	}

	invoiceIDs, err := s.search(ctx, "account.move", domain(
		[3]any{"partner_id", "=", partnerID},
		[3]any{"move_type", "=", "out_invoice"},
	))
	if err != nil {
		return nil, fmt.Errorf("failed to search invoices: %w", err)
	}
	if len(invoiceIDs) == 0 {
		return []Invoice{}, nil
	}

	rows, err := s.read(ctx, "account.move", invoiceIDs,
		"name", "invoice_date", "invoice_date_due", "amount_total", "amount_residual", "state", "payment_state")
	if err != nil {
		return nil, fmt.Errorf("failed to read invoices: %w", err)
	}

	invoices := make([]Invoice, 0, len(rows))
	for _, row := range rows {
		id, _ := row.Member("id").Int()
		status := text(row.Member("state"))
		if text(row.Member("payment_state")) == "paid" {
			status = "paid"
		}
		invoices = append(invoices, Invoice{
			ID:        id,
			Number:    text(row.Member("name")),
			Date:      text(row.Member("invoice_date")),
			DueDate:   text(row.Member("invoice_date_due")),
			Amount:    number(row.Member("amount_total")),
			AmountDue: number(row.Member("amount_residual")),
			Status:    status,
			PDFURL:    fmt.Sprintf("%s/my/invoices/%d", s.cfg.BaseURL, id),
		})
	}
	return invoices, nil
}
