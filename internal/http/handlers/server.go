package handlers

import (
	"context"
	"encoding/json"

	"github.com/rogerio-castellano/pos-terminal/internal/models"
	"github.com/rogerio-castellano/pos-terminal/internal/pos"
	"github.com/rogerio-castellano/pos-terminal/internal/repo"
	"github.com/rogerio-castellano/pos-terminal/internal/syncer"
	"go.uber.org/zap"
)

// POSService is what the handlers need from the terminal facade.
type POSService interface {
	GetProducts(ctx context.Context, outletID string, pf repo.ProductFilter) (pos.ProductList, error)
	LookupProduct(ctx context.Context, outletID, barcode, sku string) (models.Product, error)
	CreateTransaction(ctx context.Context, req models.TransactionRequest) (pos.TransactionResult, error)
	ListOfflineTransactions(ctx context.Context, cashierID string) ([]models.OfflineTransaction, error)
	GetOfflineTransactionCount(ctx context.Context) (int, error)
	ClearOfflineTransactions(ctx context.Context) error
	SyncNow(ctx context.Context) (syncer.Result, error)
	QueueOperation(ctx context.Context, opType string, payload json.RawMessage) (int64, error)
	RequeueFailedOperations(ctx context.Context) (int, error)
	Status(ctx context.Context) (pos.Status, error)
}

type Server struct {
	pos POSService
	log *zap.Logger
}

func NewServer(svc POSService, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{pos: svc, log: log}
}
