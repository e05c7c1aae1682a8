package crm

import (
	"context"
	"errors"
	"fmt"
)

// Priority is a helpdesk ticket priority, "0" (low) to "3" (urgent).
type Priority string

const (
	PriorityLow    Priority = "0"
	PriorityMedium Priority = "1"
	PriorityHigh   Priority = "2"
	PriorityUrgent Priority = "3"
)

// ParsePriority defaults to PriorityMedium for an empty string.
func ParsePriority(s string) (Priority, error) {
	switch Priority(s) {
	case "":
		return PriorityMedium, nil
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return Priority(s), nil
	}
	return "", fmt.Errorf("unknown priority %q", s)
}

// TicketInput is a support request from the website.
type TicketInput struct {
	Email       string
	Name        string
	Subject     string
	Description string
	Priority    Priority
}

// Ticket is a helpdesk ticket as shown to the customer.
type Ticket struct {
	ID         int64  `json:"id"`
	Number     string `json:"number"`
	Subject    string `json:"subject"`
	Status     string `json:"status"`
	CreateDate string `json:"createDate"`
}

// CreateSupportTicket files a ticket for the customer with email, creating
// a bare partner when the email is unknown.
func (s *Service) CreateSupportTicket(ctx context.Context, in TicketInput) (Ticket, error) {
	partnerID, err := s.findCustomerByEmail(ctx, in.Email)
	if errors.Is(err, ErrNotFound) {
		partnerID, err = s.create(ctx, "res.partner", map[string]any{
			"name":  in.Name,
			"email": in.Email,
		})
	}
	if err != nil {
		return Ticket{}, fmt.Errorf("failed to resolve ticket customer: %w", err)
	}

	teams, err := s.search(ctx, "helpdesk.team", nil)
	if err != nil {
		return Ticket{}, fmt.Errorf("failed to look up helpdesk team: %w", err)
	}

	priority := in.Priority
	if priority == "" {
		priority = PriorityMedium
	}
	vals := map[string]any{
		"name":          in.Subject,
		"description":   in.Description,
		"partner_id":    partnerID,
		"partner_email": in.Email,
		"priority":      string(priority),
	}
	if len(teams) > 0 {
		vals["team_id"] = teams[0]
	}

	id, err := s.create(ctx, "helpdesk.ticket", vals)
	if err != nil {
		return Ticket{}, fmt.Errorf("failed to create ticket: %w", err)
	}

	ticket := Ticket{ID: id, Number: fmt.Sprintf("#%d", id), Subject: in.Subject, Status: "Neu"}
	rows, err := s.read(ctx, "helpdesk.ticket", []int64{id}, "ticket_ref", "name")
	if err != nil {
		return Ticket{}, fmt.Errorf("failed to read ticket %d: %w", id, err)
	}
	if len(rows) > 0 {
		if ref := text(rows[0].Member("ticket_ref")); ref != "" {
			ticket.Number = ref
		}
	}
	return ticket, nil
}

// ListSupportTickets returns the tickets of the customer with email. An
// unknown email has no tickets.
func (s *Service) ListSupportTickets(ctx context.Context, email string) ([]Ticket, error) {
	partnerID, err := s.findCustomerByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		return []Ticket{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up customer: %w", err)
	}

	ticketIDs, err := s.search(ctx, "helpdesk.ticket", domain([3]any{"partner_id", "=", partnerID}))
	if err != nil {
		return nil, fmt.Errorf("failed to search tickets: %w", err)
	}
	if len(ticketIDs) == 0 {
		return []Ticket{}, nil
	}

	rows, err := s.read(ctx, "helpdesk.ticket", ticketIDs, "ticket_ref", "name", "stage_id", "create_date")
	if err != nil {
		return nil, fmt.Errorf("failed to read tickets: %w", err)
	}

	tickets := make([]Ticket, 0, len(rows))
	for _, row := range rows {
		id, _ := row.Member("id").Int()
		t := Ticket{
			ID:         id,
			Number:     text(row.Member("ticket_ref")),
			Subject:    text(row.Member("name")),
			Status:     "Neu",
			CreateDate: text(row.Member("create_date")),
		}
		if t.Number == "" {
			t.Number = fmt.Sprintf("#%d", id)
		}
		if _, stage, ok := row.Member("stage_id").ManyToOne(); ok && stage != "" {
			t.Status = stage
		}
		tickets = append(tickets, t)
	}
	return tickets, nil
}
