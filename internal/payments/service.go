package payments

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/steemit/birthday-payments/internal/cache"
	"github.com/steemit/birthday-payments/internal/db"
	"github.com/steemit/birthday-payments/internal/models"
	"github.com/steemit/birthday-payments/pkg/config"
	"github.com/steemit/birthday-payments/pkg/logging"
	"github.com/steemit/birthday-payments/pkg/telemetry"
)

const (
	summaryCacheKey      = "payments:summary"
	summaryGenerationKey = "payments:summary:generation"
)

// ListParams selects a page of payments
type ListParams struct {
	Page     int
	Limit    int
	Status   string
	Method   string
	Currency string
}

// ListResult is one page of payments with its pagination metadata
type ListResult struct {
	Payments   []models.Payment
	Pagination models.Pagination
}

// Service implements the payment operations on top of a PaymentStore
type Service struct {
	store     db.PaymentStore
	cache     *cache.Cache
	validator *Validator
	cfg       config.PaymentsConfig
	now       func() time.Time
	logger    *zap.Logger

	created metric.Int64Counter
	updated metric.Int64Counter
	deleted metric.Int64Counter
}

// Option customises a Service
type Option func(*Service)

// WithClock replaces the wall clock used to stamp records
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates a payment service. redisCache may be nil.
func NewService(store db.PaymentStore, redisCache *cache.Cache, cfg config.PaymentsConfig, opts ...Option) *Service {
	s := &Service{
		store:     store,
		cache:     redisCache,
		validator: NewValidator(),
		cfg:       cfg,
		now:       time.Now,
		logger:    logging.WithComponent("payments"),
	}
	for _, opt := range opts {
		opt(s)
	}

	meter := telemetry.Meter()
	s.created, _ = meter.Int64Counter("payments.created", metric.WithDescription("Payment records created"))
	s.updated, _ = meter.Int64Counter("payments.updated", metric.WithDescription("Payment records updated"))
	s.deleted, _ = meter.Int64Counter("payments.deleted", metric.WithDescription("Payment records deleted"))

	return s
}

// ParseID checks that id is a well-formed ObjectID
func ParseID(id string) (string, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return "", ErrInvalidID
	}
	return oid.Hex(), nil
}

// pageBounds applies defaults and the page size cap
func (s *Service) pageBounds(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = s.cfg.DefaultPageSize
	}
	if s.cfg.MaxPageSize > 0 && limit > s.cfg.MaxPageSize {
		limit = s.cfg.MaxPageSize
	}
	return page, limit
}

// pageSkip is the number of records before page. Pages too far out to
// address saturate at math.MaxInt, which every store answers with no rows.
func pageSkip(page, limit int) int {
	if page-1 > math.MaxInt/limit {
		return math.MaxInt
	}
	return (page - 1) * limit
}

// List returns one page of payments, newest first
func (s *Service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "payments.list")
	defer span.End()

	page, limit := s.pageBounds(params.Page, params.Limit)

	payments, total, err := s.store.List(ctx, db.PaymentQuery{
		Filter: db.PaymentFilter{
			Status:   models.Status(params.Status),
			Method:   models.Method(params.Method),
			Currency: models.Currency(params.Currency),
		},
		Skip:  pageSkip(page, limit),
		Limit: limit,
	})
	if err != nil {
		return nil, spanError(span, err)
	}

	return &ListResult{
		Payments:   payments,
		Pagination: models.NewPagination(page, limit, total),
	}, nil
}

// Get returns a single payment
func (s *Service) Get(ctx context.Context, id string) (*models.Payment, error) {
	ctx, span := telemetry.StartSpan(ctx, "payments.get", trace.WithAttributes(attribute.String("payment.id", id)))
	defer span.End()

	id, err := ParseID(id)
	if err != nil {
		return nil, err
	}

	payment, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, spanError(span, err)
	}
	return payment, nil
}

// Create validates and stores a new payment
func (s *Service) Create(ctx context.Context, in CreateInput) (*models.Payment, error) {
	ctx, span := telemetry.StartSpan(ctx, "payments.create")
	defer span.End()

	payment, issues := in.toPayment()
	payment.Normalize()

	if err := s.validator.Validate(payment, issues); err != nil {
		return nil, err
	}

	payment.Stamp(primitive.NewObjectID().Hex(), s.now())

	if err := s.store.Create(ctx, payment); err != nil {
		if errors.Is(err, db.ErrDuplicateReference) {
			s.logger.Info("Duplicate payment reference rejected",
				zap.String("method", string(payment.Method)),
				zap.String("reference", payment.ReferenceValue()))
			return nil, &ValidationError{Errors: []string{msgReferenceExists}}
		}
		return nil, spanError(span, err)
	}

	s.created.Add(ctx, 1, metric.WithAttributes(attribute.String("method", string(payment.Method))))
	s.invalidateSummary(ctx)

	s.logger.Info("Payment created",
		zap.String("payment_id", payment.ID),
		zap.String("method", string(payment.Method)),
		zap.String("currency", string(payment.Currency)),
		zap.Float64("amount", payment.Amount))

	return payment, nil
}

// Update applies a partial payload to an existing payment and re-validates
// the merged record
func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (*models.Payment, error) {
	ctx, span := telemetry.StartSpan(ctx, "payments.update", trace.WithAttributes(attribute.String("payment.id", id)))
	defer span.End()

	id, err := ParseID(id)
	if err != nil {
		return nil, err
	}

	payment, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, spanError(span, err)
	}

	issues := in.apply(payment)
	payment.Normalize()

	if err := s.validator.Validate(payment, issues); err != nil {
		return nil, err
	}

	payment.Touch(s.now())

	updated, err := s.store.Update(ctx, payment)
	if err != nil {
		return nil, spanError(span, err)
	}

	s.updated.Add(ctx, 1, metric.WithAttributes(attribute.String("status", string(updated.Status))))
	s.invalidateSummary(ctx)

	s.logger.Info("Payment updated",
		zap.String("payment_id", updated.ID),
		zap.String("status", string(updated.Status)))

	return updated, nil
}

// Delete removes a payment permanently
func (s *Service) Delete(ctx context.Context, id string) error {
	ctx, span := telemetry.StartSpan(ctx, "payments.delete", trace.WithAttributes(attribute.String("payment.id", id)))
	defer span.End()

	id, err := ParseID(id)
	if err != nil {
		return err
	}

	if err := s.store.Delete(ctx, id); err != nil {
		return spanError(span, err)
	}

	s.deleted.Add(ctx, 1)
	s.invalidateSummary(ctx)

	s.logger.Info("Payment deleted", zap.String("payment_id", id))

	return nil
}

// Summary returns the aggregate statistics, served from cache when fresh
func (s *Service) Summary(ctx context.Context) (*models.Summary, error) {
	ctx, span := telemetry.StartSpan(ctx, "payments.summary")
	defer span.End()

	gen, cacheable := s.summaryGeneration(ctx)
	if cacheable {
		var cached models.Summary
		err := s.cache.GetJSON(ctx, summaryKey(gen), &cached)
		if err == nil {
			span.SetAttributes(attribute.Bool("cache.hit", true))
			return &cached, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.logger.Warn("Failed to read summary cache", zap.Error(err))
		}
	}

	summary, err := s.store.Summary(ctx)
	if err != nil {
		return nil, spanError(span, err)
	}

	if cacheable {
		s.cacheSummary(ctx, gen, summary)
	}

	return summary, nil
}

// summaryKey is the cache key of the summary computed at generation gen
func summaryKey(gen int64) string {
	return fmt.Sprintf("%s:%d", summaryCacheKey, gen)
}

// summaryGeneration reads the generation bumped by every write. It reports
// false when the cache cannot be used.
func (s *Service) summaryGeneration(ctx context.Context) (int64, bool) {
	if !s.cache.Enabled() {
		return 0, false
	}
	gen, err := s.cache.GetInt64(ctx, summaryGenerationKey)
	if errors.Is(err, cache.ErrCacheMiss) {
		return 0, true
	}
	if err != nil {
		s.logger.Warn("Failed to read summary cache generation", zap.Error(err))
		return 0, false
	}
	return gen, true
}

func (s *Service) cacheSummary(ctx context.Context, gen int64, summary *models.Summary) {
	if s.cfg.SummaryCacheTTL <= 0 {
		return
	}
	if err := s.cache.SetJSON(ctx, summaryKey(gen), summary, s.cfg.SummaryCacheTTL); err != nil {
		s.logger.Warn("Failed to write summary cache", zap.Error(err))
	}
}

// Health checks the store and, when configured, the cache
func (s *Service) Health(ctx context.Context) map[string]error {
	checks := map[string]error{"database": s.store.Health(ctx)}
	if s.cache.Enabled() {
		checks["cache"] = s.cache.Health(ctx)
	}
	return checks
}

func (s *Service) invalidateSummary(ctx context.Context) {
	if !s.cache.Enabled() {
		return
	}
	if _, err := s.cache.Incr(ctx, summaryGenerationKey); err != nil {
		s.logger.Warn("Failed to invalidate summary cache", zap.Error(err))
	}
}

func spanError(span trace.Span, err error) error {
	if !errors.Is(err, db.ErrNotFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}
