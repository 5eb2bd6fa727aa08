package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"shop_service/internal/auth"
	"shop_service/internal/models"
	"shop_service/internal/otp"
	"shop_service/internal/storage"
)

const resetTokenTTL = 48 * time.Hour

type RegisterInput struct {
	Firstname   string
	Lastname    string
	PhoneNumber string
	Email       string
	Gender      string
	Country     string
	Province    string
	Address     string
	Password    string
}

// CartSummary reports the outcome of a cart upsert. Created is true on
// the first add-to-cart call of a user, when a new document was made.
type CartSummary struct {
	CartID  string            `json:"cart_id"`
	Created bool              `json:"created"`
	Items   []models.CartLine `json:"items"`
}

type Service interface {
	RegisterUser(ctx context.Context, input RegisterInput) (models.User, error)
	Login(ctx context.Context, email, password string) (string, models.User, error)
	Logout(ctx context.Context, rawToken string) error
	ValidateToken(ctx context.Context, rawToken string) (*auth.Claims, error)

	SendOTP(ctx context.Context, email string) (models.OTP, error)
	VerifyOTP(ctx context.Context, email string, code int) error

	GetCart(ctx context.Context, userID string) (models.Cart, error)
	UpsertCart(ctx context.Context, userID string, lines []models.CartLine) (CartSummary, error)
	RemoveCartLine(ctx context.Context, userID, productID string) error

	CreateProduct(ctx context.Context, product models.Product) (models.Product, error)
	ListProducts(ctx context.Context) ([]models.Product, error)
	CreateCategory(ctx context.Context, category models.Category) (models.Category, error)
	ListCategories(ctx context.Context) ([]models.Category, error)
}

type service struct {
	storage storage.Storage
	tokens  *auth.TokenManager
	otp     *otp.Issuer
	log     *slog.Logger
}

func NewService(st storage.Storage, tokens *auth.TokenManager, issuer *otp.Issuer, lgr *slog.Logger) *service {
	return &service{
		storage: st,
		tokens:  tokens,
		otp:     issuer,
		log:     lgr,
	}
}

// RegisterUser builds a fresh user record from the input. The email
// existence probe gives the friendly failure; the unique index on
// users.email is what actually closes the race between two concurrent
// registrations of the same address.
func (s *service) RegisterUser(ctx context.Context, input RegisterInput) (models.User, error) {
	const op = "service.RegisterUser"

	exists, err := s.storage.EmailExists(ctx, input.Email)
	if err != nil {
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}
	if exists {
		return models.User{}, models.ErrEmailTaken
	}

	passwordHash, err := auth.HashPassword(input.Password)
	if err != nil {
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	resetToken, err := auth.NewResetToken()
	if err != nil {
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	now := time.Now().UTC()
	user := models.User{
		Firstname:        input.Firstname,
		Lastname:         input.Lastname,
		PhoneNumber:      input.PhoneNumber,
		Email:            input.Email,
		Gender:           input.Gender,
		Country:          input.Country,
		Province:         input.Province,
		Address:          input.Address,
		PasswordHash:     passwordHash,
		IsEmailVerified:  false,
		Status:           models.StatusUnverified,
		Role:             models.RoleUser,
		ResetToken:       resetToken,
		ResetTokenExpire: now.Add(resetTokenTTL),
		CreatedAt:        now,
	}

	created, err := s.storage.CreateUser(ctx, user)
	if err != nil {
		if errors.Is(err, models.ErrEmailTaken) {
			return models.User{}, models.ErrEmailTaken
		}
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	return created, nil
}

func (s *service) Login(ctx context.Context, email, password string) (string, models.User, error) {
	const op = "service.Login"

	user, err := s.storage.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			return "", models.User{}, models.ErrUserNotFound
		}
		return "", models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	if ok := auth.CheckPasswordHash(user.PasswordHash, password); !ok {
		return "", models.User{}, models.ErrInvalidPassword
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return "", models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	return token, user, nil
}

func (s *service) Logout(ctx context.Context, rawToken string) error {
	const op = "service.Logout"

	if err := s.tokens.Revoke(ctx, rawToken); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *service) ValidateToken(ctx context.Context, rawToken string) (*auth.Claims, error) {
	return s.tokens.Validate(ctx, rawToken)
}

func (s *service) SendOTP(ctx context.Context, email string) (models.OTP, error) {
	const op = "service.SendOTP"

	record, err := s.otp.Issue(ctx, email)
	if err != nil {
		return models.OTP{}, fmt.Errorf("%s: %w", op, err)
	}

	return record, nil
}

// VerifyOTP consumes the code and flips the user to verified.
func (s *service) VerifyOTP(ctx context.Context, email string, code int) error {
	const op = "service.VerifyOTP"

	if err := s.otp.Verify(ctx, email, code); err != nil {
		if errors.Is(err, models.ErrOTPNotFound) || errors.Is(err, models.ErrOTPExpired) {
			return err
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.storage.MarkEmailVerified(ctx, email); err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			return models.ErrUserNotFound
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *service) CreateProduct(ctx context.Context, product models.Product) (models.Product, error) {
	const op = "service.CreateProduct"

	product.CreatedAt = time.Now().UTC()

	created, err := s.storage.CreateProduct(ctx, product)
	if err != nil {
		return models.Product{}, fmt.Errorf("%s: %w", op, err)
	}

	return created, nil
}

func (s *service) ListProducts(ctx context.Context) ([]models.Product, error) {
	const op = "service.ListProducts"

	products, err := s.storage.ListProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return products, nil
}

func (s *service) CreateCategory(ctx context.Context, category models.Category) (models.Category, error) {
	const op = "service.CreateCategory"

	created, err := s.storage.CreateCategory(ctx, category)
	if err != nil {
		return models.Category{}, fmt.Errorf("%s: %w", op, err)
	}

	return created, nil
}

func (s *service) ListCategories(ctx context.Context) ([]models.Category, error) {
	const op = "service.ListCategories"

	categories, err := s.storage.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return categories, nil
}
