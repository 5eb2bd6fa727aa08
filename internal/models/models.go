package models

import (
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	StatusUnverified = "un_verified"
	StatusVerified   = "verified"

	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Domain errors. Handlers map these onto HTTP statuses with errors.Is;
// anything else becomes a generic 500.
var (
	ErrEmailTaken      = errors.New("email is already in use")
	ErrUserNotFound    = errors.New("user not found")
	ErrInvalidPassword = errors.New("invalid password")
	ErrCartNotFound    = errors.New("cart not found")
	ErrInvalidQuantity = errors.New("quantity must be positive")
	ErrOTPNotFound     = errors.New("otp not found or already used")
	ErrOTPExpired      = errors.New("otp expired")
	ErrTokenInvalid    = errors.New("invalid or expired token")
	ErrTokenRevoked    = errors.New("token revoked")
	ErrVersionConflict = errors.New("document version conflict")
)

type User struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Firstname        string             `bson:"firstname" json:"firstname"`
	Lastname         string             `bson:"lastname" json:"lastname"`
	PhoneNumber      string             `bson:"phone_number" json:"phone_number"`
	Email            string             `bson:"email" json:"email"`
	Gender           string             `bson:"gender" json:"gender"`
	Country          string             `bson:"country" json:"country"`
	Province         string             `bson:"province" json:"province"`
	Address          string             `bson:"address" json:"address"`
	PasswordHash     string             `bson:"password" json:"-"`
	IsEmailVerified  bool               `bson:"is_email_verified" json:"is_email_verified"`
	Status           string             `bson:"status" json:"status"`
	Role             string             `bson:"role" json:"role"`
	ResetToken       string             `bson:"reset_token" json:"-"`
	ResetTokenExpire time.Time          `bson:"reset_token_expire" json:"-"`
	CreatedAt        time.Time          `bson:"create_at" json:"create_at"`
}

type Product struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Name        string             `bson:"product_name" json:"product_name"`
	Description string             `bson:"description" json:"description"`
	Price       float64            `bson:"price" json:"price"`
	Stocks      int                `bson:"stocks" json:"stocks"`
	Image       string             `bson:"image" json:"image"`
	CategoryID  string             `bson:"category_id" json:"category_id"`
	CreatedAt   time.Time          `bson:"create_at" json:"create_at"`
}

type Category struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Name        string             `bson:"category_name" json:"category_name"`
	Description string             `bson:"description" json:"description"`
}

// CartLine is a single product entry in a cart, keyed by ProductID
// (unique within one cart).
type CartLine struct {
	ProductID string `bson:"product_id" json:"product_id"`
	Quantity  int    `bson:"quantity" json:"quantity"`
}

// Cart is the single cart document of a user. Version guards
// read-modify-write cycles: an update carries the version it was read
// at and fails if another writer got there first.
type Cart struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	UserID    string             `bson:"user_id" json:"user_id"`
	Items     []CartLine         `bson:"items" json:"items"`
	Version   int64              `bson:"version" json:"-"`
	CreatedAt time.Time          `bson:"create_at" json:"create_at"`
	UpdatedAt time.Time          `bson:"update_at" json:"update_at"`
}

// LineFor returns the cart line for the given product, if present.
func (c *Cart) LineFor(productID string) (CartLine, bool) {
	for _, line := range c.Items {
		if line.ProductID == productID {
			return line, true
		}
	}
	return CartLine{}, false
}

type OTP struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Email     string             `bson:"email" json:"email"`
	Code      int                `bson:"code" json:"code"`
	ExpiresAt time.Time          `bson:"expires_at" json:"expires_at"`
	IsUsed    bool               `bson:"is_used" json:"is_used"`
	CreatedAt time.Time          `bson:"create_at" json:"create_at"`
}
