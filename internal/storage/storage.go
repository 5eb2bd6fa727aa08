package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"shop_service/internal/models"
)

const (
	usersCollection    = "users"
	productsCollection = "products"
	categoryCollection = "category"
	cartsCollection    = "carts"
	otpCollection      = "otp"
)

type Storage interface {

	// Users
	EmailExists(ctx context.Context, email string) (bool, error)
	CreateUser(ctx context.Context, user models.User) (models.User, error)
	GetUserByEmail(ctx context.Context, email string) (models.User, error)
	GetUserByID(ctx context.Context, id string) (models.User, error)
	MarkEmailVerified(ctx context.Context, email string) error

	// OTP
	CreateOTP(ctx context.Context, otp models.OTP) error
	GetUnusedOTP(ctx context.Context, email string, code int) (models.OTP, error)
	ConsumeOTP(ctx context.Context, email string, code int) error

	// Carts
	GetCartByUser(ctx context.Context, userID string) (models.Cart, error)
	CreateCart(ctx context.Context, cart models.Cart) (models.Cart, error)
	UpdateCartItems(ctx context.Context, cartID primitive.ObjectID, version int64, items []models.CartLine) error

	// Catalog
	CreateProduct(ctx context.Context, product models.Product) (models.Product, error)
	ListProducts(ctx context.Context) ([]models.Product, error)
	CreateCategory(ctx context.Context, category models.Category) (models.Category, error)
	ListCategories(ctx context.Context) ([]models.Category, error)

	Close(ctx context.Context) error
}

type MongoStorage struct {
	client *mongo.Client
	db     *mongo.Database
}

func NewMongoStorage(ctx context.Context, uri, database string) (*MongoStorage, error) {
	const op = "storage.NewMongoStorage"

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	st := &MongoStorage{
		client: client,
		db:     client.Database(database),
	}

	if err := st.ensureIndexes(ctx); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return st, nil
}

// ensureIndexes closes the check-then-insert race on registration and
// keeps the one-cart-per-user invariant at the store level.
func (m *MongoStorage) ensureIndexes(ctx context.Context) error {
	unique := options.Index().SetUnique(true)

	_, err := m.db.Collection(usersCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: unique,
	})
	if err != nil {
		return err
	}

	_, err = m.db.Collection(cartsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "user_id", Value: 1}},
		Options: unique,
	})
	return err
}

func (m *MongoStorage) EmailExists(ctx context.Context, email string) (bool, error) {
	const op = "storage.EmailExists"

	count, err := m.db.Collection(usersCollection).CountDocuments(ctx, bson.M{"email": email})
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return count > 0, nil
}

func (m *MongoStorage) CreateUser(ctx context.Context, user models.User) (models.User, error) {
	const op = "storage.CreateUser"

	res, err := m.db.Collection(usersCollection).InsertOne(ctx, user)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return models.User{}, models.ErrEmailTaken
		}
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		user.ID = id
	}

	return user, nil
}

func (m *MongoStorage) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	const op = "storage.GetUserByEmail"

	var user models.User
	err := m.db.Collection(usersCollection).FindOne(ctx, bson.M{"email": email}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.User{}, models.ErrUserNotFound
		}
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}

func (m *MongoStorage) GetUserByID(ctx context.Context, id string) (models.User, error) {
	const op = "storage.GetUserByID"

	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return models.User{}, models.ErrUserNotFound
	}

	var user models.User
	err = m.db.Collection(usersCollection).FindOne(ctx, bson.M{"_id": oid}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.User{}, models.ErrUserNotFound
		}
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}

func (m *MongoStorage) MarkEmailVerified(ctx context.Context, email string) error {
	const op = "storage.MarkEmailVerified"

	update := bson.M{"$set": bson.M{
		"is_email_verified": true,
		"status":            models.StatusVerified,
	}}

	res, err := m.db.Collection(usersCollection).UpdateOne(ctx, bson.M{"email": email}, update)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if res.MatchedCount == 0 {
		return models.ErrUserNotFound
	}

	return nil
}

func (m *MongoStorage) CreateOTP(ctx context.Context, otp models.OTP) error {
	const op = "storage.CreateOTP"

	if _, err := m.db.Collection(otpCollection).InsertOne(ctx, otp); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (m *MongoStorage) GetUnusedOTP(ctx context.Context, email string, code int) (models.OTP, error) {
	const op = "storage.GetUnusedOTP"

	filter := bson.M{"email": email, "code": code, "is_used": false}

	var otp models.OTP
	err := m.db.Collection(otpCollection).FindOne(ctx, filter).Decode(&otp)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.OTP{}, models.ErrOTPNotFound
		}
		return models.OTP{}, fmt.Errorf("%s: %w", op, err)
	}

	return otp, nil
}

// ConsumeOTP flips is_used in a single conditional update, so two
// concurrent verifications of the same code cannot both succeed.
func (m *MongoStorage) ConsumeOTP(ctx context.Context, email string, code int) error {
	const op = "storage.ConsumeOTP"

	filter := bson.M{"email": email, "code": code, "is_used": false}
	update := bson.M{"$set": bson.M{"is_used": true}}

	res, err := m.db.Collection(otpCollection).UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if res.MatchedCount == 0 {
		return models.ErrOTPNotFound
	}

	return nil
}

func (m *MongoStorage) GetCartByUser(ctx context.Context, userID string) (models.Cart, error) {
	const op = "storage.GetCartByUser"

	var cart models.Cart
	err := m.db.Collection(cartsCollection).FindOne(ctx, bson.M{"user_id": userID}).Decode(&cart)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Cart{}, models.ErrCartNotFound
		}
		return models.Cart{}, fmt.Errorf("%s: %w", op, err)
	}

	return cart, nil
}

func (m *MongoStorage) CreateCart(ctx context.Context, cart models.Cart) (models.Cart, error) {
	const op = "storage.CreateCart"

	res, err := m.db.Collection(cartsCollection).InsertOne(ctx, cart)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			// another request created the document first
			return models.Cart{}, models.ErrVersionConflict
		}
		return models.Cart{}, fmt.Errorf("%s: %w", op, err)
	}

	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		cart.ID = id
	}

	return cart, nil
}

// UpdateCartItems overwrites the item set, but only if the document
// still carries the version the caller read. A concurrent writer bumps
// the version and this update matches nothing.
func (m *MongoStorage) UpdateCartItems(ctx context.Context, cartID primitive.ObjectID, version int64, items []models.CartLine) error {
	const op = "storage.UpdateCartItems"

	filter := bson.M{"_id": cartID, "version": version}
	update := bson.M{
		"$set": bson.M{"items": items, "update_at": time.Now().UTC()},
		"$inc": bson.M{"version": 1},
	}

	res, err := m.db.Collection(cartsCollection).UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if res.MatchedCount == 0 {
		return models.ErrVersionConflict
	}

	return nil
}

func (m *MongoStorage) CreateProduct(ctx context.Context, product models.Product) (models.Product, error) {
	const op = "storage.CreateProduct"

	res, err := m.db.Collection(productsCollection).InsertOne(ctx, product)
	if err != nil {
		return models.Product{}, fmt.Errorf("%s: %w", op, err)
	}

	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		product.ID = id
	}

	return product, nil
}

func (m *MongoStorage) ListProducts(ctx context.Context) ([]models.Product, error) {
	const op = "storage.ListProducts"

	cursor, err := m.db.Collection(productsCollection).Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer cursor.Close(ctx)

	var products []models.Product
	if err := cursor.All(ctx, &products); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return products, nil
}

func (m *MongoStorage) CreateCategory(ctx context.Context, category models.Category) (models.Category, error) {
	const op = "storage.CreateCategory"

	res, err := m.db.Collection(categoryCollection).InsertOne(ctx, category)
	if err != nil {
		return models.Category{}, fmt.Errorf("%s: %w", op, err)
	}

	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		category.ID = id
	}

	return category, nil
}

func (m *MongoStorage) ListCategories(ctx context.Context) ([]models.Category, error) {
	const op = "storage.ListCategories"

	cursor, err := m.db.Collection(categoryCollection).Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer cursor.Close(ctx)

	var categories []models.Category
	if err := cursor.All(ctx, &categories); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return categories, nil
}

func (m *MongoStorage) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}
