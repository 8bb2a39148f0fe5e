package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/steemit/birthday-payments/internal/models"
	"github.com/steemit/birthday-payments/pkg/config"
)

var (
	// ErrNotFound is returned when no payment has the requested identifier
	ErrNotFound = errors.New("payment not found")
	// ErrDuplicateReference is returned when a reference is already taken
	ErrDuplicateReference = errors.New("payment reference already exists")
)

// PaymentFilter selects payments by exact field values; zero values match everything
type PaymentFilter struct {
	Status   models.Status
	Method   models.Method
	Currency models.Currency
}

// PaymentQuery is a filtered page of payments ordered newest first
type PaymentQuery struct {
	Filter PaymentFilter
	Skip   int
	Limit  int
}

// PaymentStore persists payment records
type PaymentStore interface {
	// Create inserts p, which must already carry its identifier and timestamps
	Create(ctx context.Context, p *models.Payment) error
	Get(ctx context.Context, id string) (*models.Payment, error)
	// List returns one page and the total number of matching records
	List(ctx context.Context, q PaymentQuery) ([]models.Payment, int64, error)
	// Update writes the mutable fields of p and returns the stored record
	Update(ctx context.Context, p *models.Payment) (*models.Payment, error)
	Delete(ctx context.Context, id string) error
	Summary(ctx context.Context) (*models.Summary, error)
	Health(ctx context.Context) error
	Close() error
}

// Open connects the store selected by cfg.Driver
func Open(ctx context.Context, cfg *config.DatabaseConfig, logLevel string) (PaymentStore, error) {
	switch cfg.Driver {
	case config.DriverMongo:
		return NewMongoStore(ctx, cfg.MongoURI)
	case config.DriverPostgres, config.DriverSQLite:
		database, err := New(cfg, logLevel)
		if err != nil {
			return nil, err
		}
		if err := database.Migrate(ctx); err != nil {
			database.Close()
			return nil, err
		}
		return NewPaymentRepository(NewRepository(database)), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}
