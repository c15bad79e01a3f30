package fulfillment

import (
	"context"
	"sort"

	"github.com/angelmondragon/asarum-backend/internal/orders"
	"github.com/angelmondragon/asarum-backend/pkg/db/models"
	"github.com/angelmondragon/asarum-backend/pkg/enums"
	"github.com/shopspring/decimal"
)

const topProductsLimit = 5

// ProductSales is one row of the best sellers chart.
type ProductSales struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Quantity  int             `json:"qty"`
	Total     decimal.Decimal `json:"total"`
}

// SalesSummary aggregates paid orders for the sales tab.
type SalesSummary struct {
	Branch        *enums.Branch     `json:"branch,omitempty"`
	Revenue       decimal.Decimal   `json:"revenue"`
	AverageTicket decimal.Decimal   `json:"averageTicket"`
	PaidCount     int               `json:"paidCount"`
	TopProducts   []ProductSales    `json:"topProducts"`
	PaidOrders    []orders.OrderDTO `json:"paidOrders"`
}

func (s *service) Sales(ctx context.Context, branch *enums.Branch) (*SalesSummary, error) {
	rows, err := s.filtered(ctx, branch)
	if err != nil {
		return nil, err
	}
	summary := Summarize(rows)
	summary.Branch = branch
	return summary, nil
}

// Summarize computes revenue, average ticket and best sellers over the paid orders in rows.
func Summarize(rows []models.Order) *SalesSummary {
	summary := &SalesSummary{
		Revenue:       decimal.Zero,
		AverageTicket: decimal.Zero,
		TopProducts:   []ProductSales{},
		PaidOrders:    []orders.OrderDTO{},
	}
	byProduct := map[string]*ProductSales{}
	for _, row := range rows {
		if row.PaymentStatus != enums.PaymentStatusPaid {
			continue
		}
		summary.PaidCount++
		summary.Revenue = summary.Revenue.Add(row.Total)
		summary.PaidOrders = append(summary.PaidOrders, orders.FromModel(row))
		for _, item := range row.Items {
			entry, ok := byProduct[item.ProductID]
			if !ok {
				entry = &ProductSales{ProductID: item.ProductID, Name: item.ProductName, Total: decimal.Zero}
				byProduct[item.ProductID] = entry
			}
			entry.Quantity += item.Quantity
			entry.Total = entry.Total.Add(item.Subtotal())
		}
	}
	if summary.PaidCount > 0 {
		summary.AverageTicket = summary.Revenue.Div(decimal.NewFromInt(int64(summary.PaidCount))).Round(2)
	}

	for _, entry := range byProduct {
		summary.TopProducts = append(summary.TopProducts, *entry)
	}
	sort.Slice(summary.TopProducts, func(i, j int) bool {
		a, b := summary.TopProducts[i], summary.TopProducts[j]
		if cmp := a.Total.Cmp(b.Total); cmp != 0 {
			return cmp > 0
		}
		return a.ProductID < b.ProductID
	})
	if len(summary.TopProducts) > topProductsLimit {
		summary.TopProducts = summary.TopProducts[:topProductsLimit]
	}
	return summary
}
