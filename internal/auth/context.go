package auth

import (
	"context"

	"github.com/rogerio-castellano/pos-terminal/internal/models"
)

type contextKey string

const cashierKey = contextKey("cashier")

func WithCashier(ctx context.Context, c models.Cashier) context.Context {
	return context.WithValue(ctx, cashierKey, c)
}

// CashierFrom returns the authenticated cashier, if any.
func CashierFrom(ctx context.Context) (models.Cashier, bool) {
	c, ok := ctx.Value(cashierKey).(models.Cashier)
	return c, ok
}
