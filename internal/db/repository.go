package db

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/steemit/birthday-payments/internal/models"
)

// Repository provides database access methods
type Repository struct {
	database *DB
	db       *gorm.DB
}

// NewRepository creates a new repository
func NewRepository(database *DB) *Repository {
	return &Repository{database: database, db: database.DB}
}

// PaymentRepository is the relational PaymentStore
type PaymentRepository struct {
	*Repository
}

var _ PaymentStore = (*PaymentRepository)(nil)

// NewPaymentRepository creates a new payment repository
func NewPaymentRepository(repo *Repository) *PaymentRepository {
	return &PaymentRepository{Repository: repo}
}

// Create inserts a new payment
func (r *PaymentRepository) Create(ctx context.Context, p *models.Payment) error {
	if err := r.db.WithContext(ctx).Create(p).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateReference
		}
		return err
	}
	return nil
}

// Get retrieves a payment by ID
func (r *PaymentRepository) Get(ctx context.Context, id string) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&payment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &payment, nil
}

// List retrieves one page of payments, newest first
func (r *PaymentRepository) List(ctx context.Context, q PaymentQuery) ([]models.Payment, int64, error) {
	query := r.filtered(ctx, q.Filter)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	payments := []models.Payment{}
	if err := r.filtered(ctx, q.Filter).
		Order("created_at DESC").
		Order("id DESC").
		Offset(q.Skip).
		Limit(q.Limit).
		Find(&payments).Error; err != nil {
		return nil, 0, err
	}

	return payments, total, nil
}

func (r *PaymentRepository) filtered(ctx context.Context, f PaymentFilter) *gorm.DB {
	query := r.db.WithContext(ctx).Model(&models.Payment{})
	if f.Status != "" {
		query = query.Where("status = ?", f.Status)
	}
	if f.Method != "" {
		query = query.Where("method = ?", f.Method)
	}
	if f.Currency != "" {
		query = query.Where("currency = ?", f.Currency)
	}
	return query
}

// Update writes the fields that may change after creation
func (r *PaymentRepository) Update(ctx context.Context, p *models.Payment) (*models.Payment, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("id = ?", p.ID).
		Updates(map[string]interface{}{
			"name":       p.Name,
			"email":      p.Email,
			"amount":     p.Amount,
			"currency":   p.Currency,
			"method":     p.Method,
			"message":    p.Message,
			"status":     p.Status,
			"tx_hash":    p.TxHash,
			"updated_at": p.UpdatedAt,
		})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return r.Get(ctx, p.ID)
}

// Delete removes a payment permanently
func (r *PaymentRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Payment{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

type breakdownRow struct {
	GroupKey    string
	Count       int64
	TotalAmount float64
}

// Summary aggregates totals plus per-method and per-currency breakdowns
func (r *PaymentRepository) Summary(ctx context.Context) (*models.Summary, error) {
	summary := models.EmptySummary()

	if err := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Select(`COUNT(*) AS total_payments,
			COALESCE(SUM(amount), 0) AS total_amount,
			COALESCE(AVG(amount), 0) AS average_amount,
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS completed_payments,
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS pending_payments`,
			models.StatusCompleted, models.StatusPending).
		Scan(&summary.Overview).Error; err != nil {
		return nil, err
	}

	var err error
	if summary.ByMethod, err = r.breakdown(ctx, "method"); err != nil {
		return nil, err
	}
	if summary.ByCurrency, err = r.breakdown(ctx, "currency"); err != nil {
		return nil, err
	}

	return summary, nil
}

// breakdown groups by column, which must be a trusted column name
func (r *PaymentRepository) breakdown(ctx context.Context, column string) ([]models.Breakdown, error) {
	var rows []breakdownRow
	if err := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Select(column + " AS group_key, COUNT(*) AS count, COALESCE(SUM(amount), 0) AS total_amount").
		Group(column).
		Order("total_amount DESC").
		Order(column + " ASC").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	result := make([]models.Breakdown, 0, len(rows))
	for _, row := range rows {
		result = append(result, models.Breakdown{
			Key:         row.GroupKey,
			Count:       row.Count,
			TotalAmount: row.TotalAmount,
		})
	}
	return result, nil
}

// Health checks database health
func (r *PaymentRepository) Health(ctx context.Context) error {
	return r.database.Health(ctx)
}

// Close closes the database connection
func (r *PaymentRepository) Close() error {
	return r.database.Close()
}

// isUniqueViolation recognises unique index failures from drivers that
// do not translate them to gorm.ErrDuplicatedKey
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}
