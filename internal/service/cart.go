package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"shop_service/internal/models"
)

// Attempts per merge before giving up and asking the caller to retry.
const cartWriteRetries = 3

func (s *service) GetCart(ctx context.Context, userID string) (models.Cart, error) {
	const op = "service.GetCart"

	cart, err := s.storage.GetCartByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, models.ErrCartNotFound) {
			return models.Cart{}, models.ErrCartNotFound
		}
		return models.Cart{}, fmt.Errorf("%s: %w", op, err)
	}

	return cart, nil
}

// UpsertCart merges the incoming lines into the user's cart. Quantities
// of lines already in the cart are incremented, new products are
// appended. The write is a compare-and-swap on the cart's version; on
// conflict the whole read-merge-write cycle is redone against the fresh
// document.
func (s *service) UpsertCart(ctx context.Context, userID string, lines []models.CartLine) (CartSummary, error) {
	const op = "service.UpsertCart"

	for _, line := range lines {
		if line.Quantity < 1 {
			return CartSummary{}, models.ErrInvalidQuantity
		}
	}

	for attempt := 0; attempt < cartWriteRetries; attempt++ {
		cart, err := s.storage.GetCartByUser(ctx, userID)
		if errors.Is(err, models.ErrCartNotFound) {
			now := time.Now().UTC()
			fresh := models.Cart{
				UserID:    userID,
				Items:     mergeLines(nil, lines),
				Version:   1,
				CreatedAt: now,
				UpdatedAt: now,
			}

			created, err := s.storage.CreateCart(ctx, fresh)
			if errors.Is(err, models.ErrVersionConflict) {
				// another request created the document first
				continue
			}
			if err != nil {
				return CartSummary{}, fmt.Errorf("%s: %w", op, err)
			}

			return CartSummary{
				CartID:  created.ID.Hex(),
				Created: true,
				Items:   created.Items,
			}, nil
		}
		if err != nil {
			return CartSummary{}, fmt.Errorf("%s: %w", op, err)
		}

		merged := mergeLines(cart.Items, lines)

		err = s.storage.UpdateCartItems(ctx, cart.ID, cart.Version, merged)
		if errors.Is(err, models.ErrVersionConflict) {
			continue
		}
		if err != nil {
			return CartSummary{}, fmt.Errorf("%s: %w", op, err)
		}

		return CartSummary{
			CartID: cart.ID.Hex(),
			Items:  merged,
		}, nil
	}

	return CartSummary{}, models.ErrVersionConflict
}

// RemoveCartLine drops the line for the given product and persists the
// filtered set. A product that is not in the cart is a no-op, but a
// missing cart document is an error.
func (s *service) RemoveCartLine(ctx context.Context, userID, productID string) error {
	const op = "service.RemoveCartLine"

	for attempt := 0; attempt < cartWriteRetries; attempt++ {
		cart, err := s.storage.GetCartByUser(ctx, userID)
		if err != nil {
			if errors.Is(err, models.ErrCartNotFound) {
				return models.ErrCartNotFound
			}
			return fmt.Errorf("%s: %w", op, err)
		}

		filtered := make([]models.CartLine, 0, len(cart.Items))
		for _, line := range cart.Items {
			if line.ProductID != productID {
				filtered = append(filtered, line)
			}
		}

		err = s.storage.UpdateCartItems(ctx, cart.ID, cart.Version, filtered)
		if errors.Is(err, models.ErrVersionConflict) {
			continue
		}
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		return nil
	}

	return models.ErrVersionConflict
}

// mergeLines adds incoming quantities onto matching lines and appends
// the rest, preserving the order of the existing set. Duplicate product
// ids inside the incoming batch collapse additively as well.
func mergeLines(existing, incoming []models.CartLine) []models.CartLine {
	merged := make([]models.CartLine, len(existing))
	copy(merged, existing)

	for _, in := range incoming {
		found := false
		for i := range merged {
			if merged[i].ProductID == in.ProductID {
				merged[i].Quantity += in.Quantity
				found = true
				break
			}
		}
		if !found {
			merged = append(merged, models.CartLine{
				ProductID: in.ProductID,
				Quantity:  in.Quantity,
			})
		}
	}

	return merged
}
