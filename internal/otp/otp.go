package otp

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"shop_service/internal/models"
)

const (
	codeMin = 10000
	codeMax = 99999

	codeTTL = 5 * time.Minute
)

type Mailer interface {
	Send(to, subject, htmlBody string) error
}

// Store is the slice of the persistence layer the issuer needs.
type Store interface {
	CreateOTP(ctx context.Context, otp models.OTP) error
	GetUnusedOTP(ctx context.Context, email string, code int) (models.OTP, error)
	ConsumeOTP(ctx context.Context, email string, code int) error
}

type Issuer struct {
	storage Store
	mailer  Mailer
	log     *slog.Logger
}

func NewIssuer(st Store, mailer Mailer, lgr *slog.Logger) *Issuer {
	return &Issuer{
		storage: st,
		mailer:  mailer,
		log:     lgr,
	}
}

// Issue persists a fresh single-use code for the email and mails it out
// of band. The caller gets a success as soon as the record is durable;
// mail delivery is not part of the contract and a send failure leaves
// the code valid.
func (i *Issuer) Issue(ctx context.Context, email string) (models.OTP, error) {
	const op = "otp.Issue"

	code, err := randomCode()
	if err != nil {
		return models.OTP{}, fmt.Errorf("%s: %w", op, err)
	}

	now := time.Now().UTC()
	record := models.OTP{
		Email:     email,
		Code:      code,
		ExpiresAt: now.Add(codeTTL),
		IsUsed:    false,
		CreatedAt: now,
	}

	if err := i.storage.CreateOTP(ctx, record); err != nil {
		return models.OTP{}, fmt.Errorf("%s: %w", op, err)
	}

	go i.sendMail(email, code)

	return record, nil
}

// Verify consumes the code on success. An expired code fails without
// being marked used, so re-checking it keeps reporting expiry rather
// than not-found.
func (i *Issuer) Verify(ctx context.Context, email string, code int) error {
	const op = "otp.Verify"

	record, err := i.storage.GetUnusedOTP(ctx, email, code)
	if err != nil {
		if errors.Is(err, models.ErrOTPNotFound) {
			return models.ErrOTPNotFound
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	if time.Now().After(record.ExpiresAt) {
		return models.ErrOTPExpired
	}

	// conditional update; a concurrent verification of the same code
	// loses here and reports not-found
	if err := i.storage.ConsumeOTP(ctx, email, code); err != nil {
		if errors.Is(err, models.ErrOTPNotFound) {
			return models.ErrOTPNotFound
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (i *Issuer) sendMail(email string, code int) {
	body := fmt.Sprintf("<p>Your verification code is <b>%d</b>. It expires in 5 minutes.</p>", code)

	if err := i.mailer.Send(email, "Your verification code", body); err != nil {
		i.log.Error("failed to send otp mail",
			slog.String("email", email),
			slog.Any("error", err),
		)
	}
}

func randomCode() (int, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(codeMax-codeMin+1))
	if err != nil {
		return 0, err
	}
	return codeMin + int(n.Int64()), nil
}
