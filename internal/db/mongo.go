package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.mongodb.org/mongo-driver/x/mongo/driver/connstring"
	"go.uber.org/zap"

	"github.com/steemit/birthday-payments/internal/models"
	"github.com/steemit/birthday-payments/pkg/logging"
)

const (
	defaultMongoDatabase = "birthday-app"
	paymentsCollection   = "payments"
)

// paymentDocument is the stored shape of a payment in MongoDB
type paymentDocument struct {
	ID            primitive.ObjectID `bson:"_id"`
	Name          string             `bson:"name"`
	Email         string             `bson:"email"`
	Amount        float64            `bson:"amount"`
	Currency      string             `bson:"currency"`
	Method        string             `bson:"method"`
	Message       string             `bson:"message,omitempty"`
	Reference     *string            `bson:"reference,omitempty"`
	Status        string             `bson:"status"`
	Exchange      string             `bson:"exchange,omitempty"`
	CryptoSymbol  string             `bson:"cryptoSymbol,omitempty"`
	WalletAddress string             `bson:"walletAddress,omitempty"`
	TxHash        string             `bson:"txHash,omitempty"`
	CreatedAt     time.Time          `bson:"createdAt"`
	UpdatedAt     time.Time          `bson:"updatedAt"`
}

func toDocument(p *models.Payment) (*paymentDocument, error) {
	oid, err := primitive.ObjectIDFromHex(p.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid payment id %q: %w", p.ID, err)
	}
	return &paymentDocument{
		ID:            oid,
		Name:          p.Name,
		Email:         p.Email,
		Amount:        p.Amount,
		Currency:      string(p.Currency),
		Method:        string(p.Method),
		Message:       p.Message,
		Reference:     p.Reference,
		Status:        string(p.Status),
		Exchange:      string(p.Exchange),
		CryptoSymbol:  p.CryptoSymbol,
		WalletAddress: p.WalletAddress,
		TxHash:        p.TxHash,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}, nil
}

func (d *paymentDocument) toModel() *models.Payment {
	return &models.Payment{
		ID:            d.ID.Hex(),
		Name:          d.Name,
		Email:         d.Email,
		Amount:        d.Amount,
		Currency:      models.Currency(d.Currency),
		Method:        models.Method(d.Method),
		Message:       d.Message,
		Reference:     d.Reference,
		Status:        models.Status(d.Status),
		Exchange:      models.Exchange(d.Exchange),
		CryptoSymbol:  d.CryptoSymbol,
		WalletAddress: d.WalletAddress,
		TxHash:        d.TxHash,
		CreatedAt:     d.CreatedAt.UTC(),
		UpdatedAt:     d.UpdatedAt.UTC(),
	}
}

// MongoStore is the document PaymentStore
type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
	logger     *zap.Logger
}

var _ PaymentStore = (*MongoStore)(nil)

// NewMongoStore connects to uri, verifies the connection and ensures the
// payments indexes. The database name comes from the URI path.
func NewMongoStore(ctx context.Context, uri string) (*MongoStore, error) {
	cs, err := connstring.ParseAndValidate(uri)
	if err != nil {
		return nil, fmt.Errorf("failed to parse MongoDB URI: %w", err)
	}
	dbName := cs.Database
	if dbName == "" {
		dbName = defaultMongoDatabase
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	store := &MongoStore{
		client:     client,
		collection: client.Database(dbName).Collection(paymentsCollection),
		logger:     logging.WithComponent("mongo-store"),
	}

	if err := store.EnsureIndexes(connectCtx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	store.logger.Info("MongoDB connection established", zap.String("database", dbName))

	return store, nil
}

// EnsureIndexes creates the lookup indexes used by listing and filtering
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "email", Value: 1}}},
		{
			Keys:    bson.D{{Key: "reference", Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true),
		},
		{Keys: bson.D{{Key: "status", Value: 1}}},
	}
	if _, err := s.collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("failed to create payment indexes: %w", err)
	}
	return nil
}

// Create inserts a new payment
func (s *MongoStore) Create(ctx context.Context, p *models.Payment) error {
	doc, err := toDocument(p)
	if err != nil {
		return err
	}
	if _, err := s.collection.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateReference
		}
		return err
	}
	return nil
}

// Get retrieves a payment by ID
func (s *MongoStore) Get(ctx context.Context, id string) (*models.Payment, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}

	var doc paymentDocument
	if err := s.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return doc.toModel(), nil
}

func mongoFilter(f PaymentFilter) bson.M {
	filter := bson.M{}
	if f.Status != "" {
		filter["status"] = string(f.Status)
	}
	if f.Method != "" {
		filter["method"] = string(f.Method)
	}
	if f.Currency != "" {
		filter["currency"] = string(f.Currency)
	}
	return filter
}

// List retrieves one page of payments, newest first
func (s *MongoStore) List(ctx context.Context, q PaymentQuery) ([]models.Payment, int64, error) {
	filter := mongoFilter(q.Filter)

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(int64(q.Skip)).
		SetLimit(int64(q.Limit))

	cursor, err := s.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	var docs []paymentDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, 0, err
	}

	total, err := s.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	payments := make([]models.Payment, 0, len(docs))
	for i := range docs {
		payments = append(payments, *docs[i].toModel())
	}
	return payments, total, nil
}

// Update writes the fields that may change after creation
func (s *MongoStore) Update(ctx context.Context, p *models.Payment) (*models.Payment, error) {
	oid, err := primitive.ObjectIDFromHex(p.ID)
	if err != nil {
		return nil, ErrNotFound
	}

	set := bson.M{
		"name":      p.Name,
		"email":     p.Email,
		"amount":    p.Amount,
		"currency":  string(p.Currency),
		"method":    string(p.Method),
		"status":    string(p.Status),
		"updatedAt": p.UpdatedAt,
	}
	unset := bson.M{}
	if p.Message != "" {
		set["message"] = p.Message
	} else {
		unset["message"] = ""
	}
	if p.TxHash != "" {
		set["txHash"] = p.TxHash
	} else {
		unset["txHash"] = ""
	}

	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc paymentDocument
	if err := s.collection.FindOneAndUpdate(ctx, bson.M{"_id": oid}, update, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return doc.toModel(), nil
}

// Delete removes a payment permanently
func (s *MongoStore) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}

	result, err := s.collection.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

type overviewDocument struct {
	TotalPayments     int64   `bson:"totalPayments"`
	TotalAmount       float64 `bson:"totalAmount"`
	AverageAmount     float64 `bson:"averageAmount"`
	CompletedPayments int64   `bson:"completedPayments"`
	PendingPayments   int64   `bson:"pendingPayments"`
}

type breakdownDocument struct {
	Key         string  `bson:"_id"`
	Count       int64   `bson:"count"`
	TotalAmount float64 `bson:"totalAmount"`
}

type summaryDocument struct {
	Overview   []overviewDocument  `bson:"overview"`
	ByMethod   []breakdownDocument `bson:"byMethod"`
	ByCurrency []breakdownDocument `bson:"byCurrency"`
}

func countWhereStatus(status models.Status) bson.M {
	return bson.M{"$sum": bson.M{
		"$cond": bson.A{bson.M{"$eq": bson.A{"$status", string(status)}}, 1, 0},
	}}
}

func groupByStage(field string) bson.A {
	return bson.A{
		bson.D{{Key: "$group", Value: bson.M{
			"_id":         "$" + field,
			"count":       bson.M{"$sum": 1},
			"totalAmount": bson.M{"$sum": "$amount"},
		}}},
		bson.D{{Key: "$sort", Value: bson.D{{Key: "totalAmount", Value: -1}, {Key: "_id", Value: 1}}}},
	}
}

// Summary aggregates totals plus per-method and per-currency breakdowns in a
// single $facet pipeline
func (s *MongoStore) Summary(ctx context.Context) (*models.Summary, error) {
	pipeline := mongo.Pipeline{
		bson.D{{Key: "$facet", Value: bson.D{
			{Key: "overview", Value: bson.A{
				bson.D{{Key: "$group", Value: bson.M{
					"_id":               nil,
					"totalPayments":     bson.M{"$sum": 1},
					"totalAmount":       bson.M{"$sum": "$amount"},
					"averageAmount":     bson.M{"$avg": "$amount"},
					"completedPayments": countWhereStatus(models.StatusCompleted),
					"pendingPayments":   countWhereStatus(models.StatusPending),
				}}},
			}},
			{Key: "byMethod", Value: groupByStage("method")},
			{Key: "byCurrency", Value: groupByStage("currency")},
		}}},
	}

	cursor, err := s.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var results []summaryDocument
	if err := cursor.All(ctx, &results); err != nil {
		return nil, err
	}

	summary := models.EmptySummary()
	if len(results) == 0 {
		return summary, nil
	}

	facet := results[0]
	if len(facet.Overview) > 0 {
		o := facet.Overview[0]
		summary.Overview = models.SummaryOverview{
			TotalPayments:     o.TotalPayments,
			TotalAmount:       o.TotalAmount,
			AverageAmount:     o.AverageAmount,
			CompletedPayments: o.CompletedPayments,
			PendingPayments:   o.PendingPayments,
		}
	}
	for _, b := range facet.ByMethod {
		summary.ByMethod = append(summary.ByMethod, models.Breakdown(b))
	}
	for _, b := range facet.ByCurrency {
		summary.ByCurrency = append(summary.ByCurrency, models.Breakdown(b))
	}

	return summary, nil
}

// Health pings the primary
func (s *MongoStore) Health(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

// Close disconnects the client
func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}
