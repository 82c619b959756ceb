package main

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

var _ BookStorage = (*mongoBookStorage)(nil)

// mongoBook is the stored form of a book. The id lives in `_id`.
type mongoBook struct {
	ID          primitive.ObjectID `bson:"_id"`
	Title       string             `bson:"title"`
	Author      string             `bson:"author"`
	Description string             `bson:"description"`
	Price       float64            `bson:"price"`
	Stock       int                `bson:"stock"`
	SoldCount   int                `bson:"sold_count"`
}

func (mb mongoBook) toBook() Book {
	return Book{
		ID:          mb.ID.Hex(),
		Title:       mb.Title,
		Author:      mb.Author,
		Description: mb.Description,
		Price:       mb.Price,
		Stock:       mb.Stock,
		SoldCount:   mb.SoldCount,
	}
}

type mongoBookStorage struct {
	logger     *zap.Logger
	client     *mongo.Client
	collection *mongo.Collection
}

// GetMongoClient connects to the mongo server and checks the connection.
func GetMongoClient(config *Config) (*mongo.Client, error) {
	opts := options.Client().ApplyURI(config.Mongo.URI)
	if config.Mongo.ConnectTimeout > 0 {
		opts.SetConnectTimeout(config.Mongo.ConnectTimeout)
	}
	if config.Mongo.Timeout > 0 {
		opts.SetTimeout(config.Mongo.Timeout)
	}
	if config.Mongo.MaxPoolSize > 0 {
		opts.SetMaxPoolSize(config.Mongo.MaxPoolSize)
	}

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout(config.Mongo.ConnectTimeout))
	defer cancel()
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %v", err)
	}

	// test connection.
	if err = client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("test connection failed: %v", err)
	}
	return client, nil
}

// NewMongoBookStorage provides an instance of mongo-based book storage.
func NewMongoBookStorage(logger *zap.Logger, mongoConfig *MongoConfig, client *mongo.Client) *mongoBookStorage {
	return &mongoBookStorage{
		logger:     logger,
		client:     client,
		collection: client.Database(mongoConfig.Database).Collection(mongoConfig.Collection),
	}
}

// CreateIndexes declares the secondary indexes used by searches and sales reports.
func (ms *mongoBookStorage) CreateIndexes(ctx context.Context) error {
	models := []mongo.IndexModel{
		{Keys: bson.D{{Key: "title", Value: 1}}},
		{Keys: bson.D{{Key: "author", Value: 1}}},
		{Keys: bson.D{{Key: "price", Value: 1}}},
		{Keys: bson.D{{Key: "sold_count", Value: 1}}},
	}
	names, err := ms.collection.Indexes().CreateMany(ctx, models)
	if err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	ms.logger.Info("mongo: indexes ready", zap.Strings("indexes", names))
	return nil
}

// Close disconnects the underlying client.
func (ms *mongoBookStorage) Close(ctx context.Context) error {
	return ms.client.Disconnect(ctx)
}

// Add inserts a new book record.
func (ms *mongoBookStorage) Add(ctx context.Context, book Book) error {
	oid, err := primitive.ObjectIDFromHex(book.ID)
	if err != nil {
		return invalidFieldError{"id", "is not a valid book identifier"}
	}
	doc := mongoBook{
		ID:          oid,
		Title:       book.Title,
		Author:      book.Author,
		Description: book.Description,
		Price:       book.Price,
		Stock:       book.Stock,
		SoldCount:   book.SoldCount,
	}
	_, err = ms.collection.InsertOne(ctx, doc)
	if mongo.IsDuplicateKeyError(err) {
		return ErrBookConflict
	}
	return err
}

// GetOne retrieves a book record based on its ID.
func (ms *mongoBookStorage) GetOne(ctx context.Context, id string) (Book, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return Book{}, ErrBookNotFound
	}
	var doc mongoBook
	err = ms.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Book{}, ErrBookNotFound
	}
	if err != nil {
		return Book{}, err
	}
	return doc.toBook(), nil
}

// GetAll retrieves at most limit books ordered by id.
func (ms *mongoBookStorage) GetAll(ctx context.Context, limit int) ([]Book, error) {
	return ms.find(ctx, bson.M{}, limit)
}

// Search retrieves books matching all provided filters. Text filters are
// case-insensitive substring matches and both price bounds form a single range.
func (ms *mongoBookStorage) Search(ctx context.Context, filters SearchFilters, limit int) ([]Book, error) {
	return ms.find(ctx, buildMongoSearchQuery(filters), limit)
}

func buildMongoSearchQuery(filters SearchFilters) bson.M {
	query := bson.M{}
	if filters.Title != "" {
		query["title"] = primitive.Regex{Pattern: regexp.QuoteMeta(filters.Title), Options: "i"}
	}
	if filters.Author != "" {
		query["author"] = primitive.Regex{Pattern: regexp.QuoteMeta(filters.Author), Options: "i"}
	}
	price := bson.M{}
	if filters.MinPrice != nil {
		price["$gte"] = *filters.MinPrice
	}
	if filters.MaxPrice != nil {
		price["$lte"] = *filters.MaxPrice
	}
	if len(price) > 0 {
		query["price"] = price
	}
	return query
}

func (ms *mongoBookStorage) find(ctx context.Context, filter bson.M, limit int) ([]Book, error) {
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}).SetLimit(int64(limit))
	cursor, err := ms.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var docs []mongoBook
	if err = cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	books := make([]Book, 0, len(docs))
	for _, doc := range docs {
		books = append(books, doc.toBook())
	}
	return books, nil
}

// Update sets only the patch fields on the existing record.
func (ms *mongoBookStorage) Update(ctx context.Context, id string, patch BookPatch) (bool, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return false, ErrBookNotFound
	}
	set := bson.M{}
	if patch.Title != nil {
		set["title"] = *patch.Title
	}
	if patch.Author != nil {
		set["author"] = *patch.Author
	}
	if patch.Description != nil {
		set["description"] = *patch.Description
	}
	if patch.Price != nil {
		set["price"] = *patch.Price
	}
	if patch.Stock != nil {
		set["stock"] = *patch.Stock
	}
	if len(set) == 0 {
		return false, invalidFieldError{"body", "has no field to update"}
	}

	result, err := ms.collection.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": set})
	if err != nil {
		return false, err
	}
	if result.MatchedCount == 0 {
		return false, ErrBookNotFound
	}
	return result.ModifiedCount > 0, nil
}

// Delete removes a book record based on its ID.
func (ms *mongoBookStorage) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrBookNotFound
	}
	result, err := ms.collection.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return ErrBookNotFound
	}
	return nil
}

// Purchase matches the book only when it still has stock and applies
// both counters changes within the same server-side operation.
func (ms *mongoBookStorage) Purchase(ctx context.Context, id string) (Book, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return Book{}, ErrOutOfStock
	}
	var doc mongoBook
	err = ms.collection.FindOneAndUpdate(ctx,
		bson.M{"_id": oid, "stock": bson.M{"$gt": 0}},
		bson.M{"$inc": bson.M{"stock": -1, "sold_count": 1}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Book{}, ErrOutOfStock
	}
	if err != nil {
		return Book{}, err
	}
	return doc.toBook(), nil
}

// DeleteAll removes all books from the collection.
func (ms *mongoBookStorage) DeleteAll(ctx context.Context) error {
	_, err := ms.collection.DeleteMany(ctx, bson.M{})
	return err
}

// connectTimeout bounds the startup connection check.
func connectTimeout(d time.Duration) time.Duration {
	if d <= 0 {
		return 10 * time.Second
	}
	return d
}
