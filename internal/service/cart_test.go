package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shop_service/internal/models"
)

func line(productID string, qty int) models.CartLine {
	return models.CartLine{ProductID: productID, Quantity: qty}
}

func TestUpsertCreatesCartOnFirstCall(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	summary, err := svc.UpsertCart(ctx, "u1", []models.CartLine{line("p1", 1)})
	require.NoError(t, err)

	assert.True(t, summary.Created)
	assert.NotEmpty(t, summary.CartID)
	assert.Equal(t, []models.CartLine{line("p1", 1)}, summary.Items)

	cart, err := svc.GetCart(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []models.CartLine{line("p1", 1)}, cart.Items)
}

func TestUpsertMergesAdditively(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.UpsertCart(ctx, "u1", []models.CartLine{line("p1", 1)})
	require.NoError(t, err)

	summary, err := svc.UpsertCart(ctx, "u1", []models.CartLine{line("p1", 1), line("p2", 1)})
	require.NoError(t, err)

	assert.False(t, summary.Created)
	assert.Equal(t, []models.CartLine{line("p1", 2), line("p2", 1)}, summary.Items)

	cart, err := svc.GetCart(ctx, "u1")
	require.NoError(t, err)

	merged, ok := cart.LineFor("p1")
	require.True(t, ok)
	assert.Equal(t, 2, merged.Quantity)

	_, ok = cart.LineFor("p9")
	assert.False(t, ok)
}

func TestUpsertCollapsesDuplicateIncomingLines(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	// {p1,2}+{p1,3} into an empty cart is the same as {p1,5} directly
	summary, err := svc.UpsertCart(ctx, "u1", []models.CartLine{line("p1", 2), line("p1", 3)})
	require.NoError(t, err)

	assert.Equal(t, []models.CartLine{line("p1", 5)}, summary.Items)
}

func TestUpsertAppendLeavesOtherLinesAlone(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.UpsertCart(ctx, "u1", []models.CartLine{line("p1", 2)})
	require.NoError(t, err)

	summary, err := svc.UpsertCart(ctx, "u1", []models.CartLine{line("p2", 4)})
	require.NoError(t, err)

	assert.Equal(t, []models.CartLine{line("p1", 2), line("p2", 4)}, summary.Items)
}

func TestUpsertRejectsNonPositiveQuantity(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.UpsertCart(ctx, "u1", []models.CartLine{line("p1", 0)})
	assert.ErrorIs(t, err, models.ErrInvalidQuantity)

	_, err = svc.UpsertCart(ctx, "u1", []models.CartLine{line("p1", -3)})
	assert.ErrorIs(t, err, models.ErrInvalidQuantity)

	// nothing was created
	_, err = svc.GetCart(ctx, "u1")
	assert.ErrorIs(t, err, models.ErrCartNotFound)
}

func TestUpsertRetriesOnVersionConflict(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	_, err := svc.UpsertCart(ctx, "u1", []models.CartLine{line("p1", 1)})
	require.NoError(t, err)

	st.conflictNextCartWrite = true

	summary, err := svc.UpsertCart(ctx, "u1", []models.CartLine{line("p1", 1)})
	require.NoError(t, err)

	// merged against the document as re-read after the conflict
	assert.Equal(t, []models.CartLine{line("p1", 2)}, summary.Items)
}

func TestRemoveLine(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.UpsertCart(ctx, "u1", []models.CartLine{line("p1", 2), line("p2", 1)})
	require.NoError(t, err)

	require.NoError(t, svc.RemoveCartLine(ctx, "u1", "p1"))

	cart, err := svc.GetCart(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []models.CartLine{line("p2", 1)}, cart.Items)
}

func TestRemoveAbsentLineIsNoOp(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.UpsertCart(ctx, "u1", []models.CartLine{line("p1", 2)})
	require.NoError(t, err)

	require.NoError(t, svc.RemoveCartLine(ctx, "u1", "p9"))

	cart, err := svc.GetCart(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []models.CartLine{line("p1", 2)}, cart.Items)
}

func TestRemoveLineWithoutCart(t *testing.T) {
	svc, _ := newTestService(t)

	err := svc.RemoveCartLine(context.Background(), "u1", "p1")
	assert.ErrorIs(t, err, models.ErrCartNotFound)
}

func TestRemoveLastLineKeepsDocument(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.UpsertCart(ctx, "u1", []models.CartLine{line("p1", 1)})
	require.NoError(t, err)

	require.NoError(t, svc.RemoveCartLine(ctx, "u1", "p1"))

	// the cart document survives with an empty item set
	cart, err := svc.GetCart(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
}
