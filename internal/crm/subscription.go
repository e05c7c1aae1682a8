package crm

import (
	"context"
	"fmt"
)

// SubscriptionOrder is a created recurring sale order.
type SubscriptionOrder struct {
	ID    int64
	Name  string
	Quote Quote
}

// CreateSubscriptionOrder ensures the tier's service product exists and
// creates a subscription sale order with one line at the quoted unit price.
func (s *Service) CreateSubscriptionOrder(ctx context.Context, customerID int64, tier Tier, duration Duration, frequency Frequency) (SubscriptionOrder, error) {
	quote := NewQuote(tier, duration, frequency)

	productID, err := s.ensureProduct(ctx, tier)
	if err != nil {
		return SubscriptionOrder{}, err
	}

	orderID, err := s.create(ctx, "sale.order", map[string]any{
		"partner_id":      customerID,
		"is_subscription": true,
		"note":            quote.Note(),
	})
	if err != nil {
		return SubscriptionOrder{}, fmt.Errorf("failed to create sale order: %w", err)
	}

	_, err = s.create(ctx, "sale.order.line", map[string]any{
		"order_id":        orderID,
		"product_id":      productID,
		"name":            tier.ProductName(),
		"product_uom_qty": 1,
		"price_unit":      quote.UnitFloat(),
	})
	if err != nil {
		return SubscriptionOrder{}, fmt.Errorf("failed to add order line to %d: %w", orderID, err)
	}

	order := SubscriptionOrder{ID: orderID, Quote: quote}
	orders, err := s.read(ctx, "sale.order", []int64{orderID}, "name")
	if err != nil {
		return SubscriptionOrder{}, fmt.Errorf("failed to read sale order %d: %w", orderID, err)
	}
	if len(orders) > 0 {
		order.Name = text(orders[0].Member("name"))
	}
	return order, nil
}

func (s *Service) ensureProduct(ctx context.Context, tier Tier) (int64, error) {
	name := tier.ProductName()
	existing, err := s.search(ctx, "product.product", domain([3]any{"name", "=", name}))
	if err != nil {
		return 0, fmt.Errorf("failed to look up product: %w", err)
	}
	if len(existing) > 0 {
		return existing[0], nil
	}
	id, err := s.create(ctx, "product.product", map[string]any{
		"name":              name,
		"type":              "service",
		"list_price":        tier.AnnualPrice(),
		"recurring_invoice": true,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to create product: %w", err)
	}
	return id, nil
}
