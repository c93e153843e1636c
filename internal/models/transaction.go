package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	TransactionStatusCompleted = "completed"
	TransactionStatusOffline   = "offline"
)

// TransactionItem is one line of a sale. A null or absent UnitPrice is
// filled from the catalog cache; an explicit zero is a comped line.
type TransactionItem struct {
	ProductID      string              `json:"product_id"`
	Quantity       int                 `json:"quantity"`
	UnitPrice      decimal.NullDecimal `json:"unit_price"`
	DiscountAmount decimal.Decimal     `json:"discount_amount"`
	LineTotal      decimal.Decimal     `json:"line_total"`
}

// Price wraps d as a known unit price.
func Price(d decimal.Decimal) decimal.NullDecimal {
	return decimal.NewNullDecimal(d)
}

// TransactionRequest is the payload sent to the remote service to record a
// sale. The same shape is used online and when replaying queued sales.
type TransactionRequest struct {
	OutletID         string            `json:"outlet_id"`
	CashierID        string            `json:"cashier_id"`
	CustomerID       *string           `json:"customer_id,omitempty"`
	Items            []TransactionItem `json:"items"`
	PaymentMethod    string            `json:"payment_method"`
	AmountTendered   decimal.Decimal   `json:"amount_tendered"`
	PaymentReference *string           `json:"payment_reference,omitempty"`
	DiscountAmount   decimal.Decimal   `json:"discount_amount"`
	Notes            *string           `json:"notes,omitempty"`
}

// ComputeLineTotals fills LineTotal on every item as
// quantity * unit price - line discount, never below zero. Lines without a
// known price count as zero.
func (r *TransactionRequest) ComputeLineTotals() {
	for i := range r.Items {
		it := &r.Items[i]
		total := it.UnitPrice.Decimal.Mul(decimal.NewFromInt(int64(it.Quantity))).Sub(it.DiscountAmount)
		if total.IsNegative() {
			total = decimal.Zero
		}
		it.LineTotal = total
	}
}

// Subtotal is the sum of line totals minus the order level discount.
func (r TransactionRequest) Subtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, it := range r.Items {
		sum = sum.Add(it.LineTotal)
	}
	sum = sum.Sub(r.DiscountAmount)
	if sum.IsNegative() {
		return decimal.Zero
	}
	return sum
}

// Transaction is a sale confirmed by the remote service.
type Transaction struct {
	ID                string            `json:"id"`
	TransactionNumber string            `json:"transaction_number"`
	OutletID          string            `json:"outlet_id"`
	CashierID         string            `json:"cashier_id"`
	CustomerID        *string           `json:"customer_id,omitempty"`
	Items             []TransactionItem `json:"items"`
	Subtotal          decimal.Decimal   `json:"subtotal"`
	TaxAmount         decimal.Decimal   `json:"tax_amount"`
	DiscountAmount    decimal.Decimal   `json:"discount_amount"`
	Total             decimal.Decimal   `json:"total"`
	PaymentMethod     string            `json:"payment_method"`
	AmountTendered    decimal.Decimal   `json:"amount_tendered"`
	ChangeGiven       decimal.Decimal   `json:"change_given"`
	Status            string            `json:"status"`
	CreatedAt         time.Time         `json:"created_at"`
}

// OfflineTransaction is a sale recorded locally while the remote service was
// unreachable. It carries the original request unchanged.
type OfflineTransaction struct {
	OfflineID string `json:"offline_id"`
	TransactionRequest
	CreatedAt time.Time `json:"created_at"`
	Status    string    `json:"status"`
}
