package entity_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

func TestNewStockMovement_Valido(t *testing.T) {
	mov, err := entity.NewStockMovement("lvl-1", entity.MovementTypeRECEIPT,
		decimal.NewFromInt(5), decimal.NewFromInt(15), "user-1", "po-42")
	require.NoError(t, err)

	assert.NotEmpty(t, mov.ID)
	assert.Equal(t, "lvl-1", mov.StockLevelID)
	assert.Equal(t, entity.MovementTypeRECEIPT, mov.Type)
	assert.True(t, mov.QuantityChange.Equal(decimal.NewFromInt(5)))
	assert.True(t, mov.QuantityAfterMove.Equal(decimal.NewFromInt(15)))
	assert.Equal(t, "po-42", mov.Reference)
	assert.False(t, mov.CreatedAt.IsZero())
}

func TestNewStockMovement_CambioCeroRechazado(t *testing.T) {
	_, err := entity.NewStockMovement("lvl-1", entity.MovementTypeADJUST,
		decimal.Zero, decimal.NewFromInt(10), "", "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput,
		"un movimiento sin efecto nunca debe entrar al libro")
}

func TestNewStockMovement_TipoInvalido(t *testing.T) {
	_, err := entity.NewStockMovement("lvl-1", "TELETRANSPORTE",
		decimal.NewFromInt(1), decimal.NewFromInt(1), "", "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestNewStockMovement_SinNivelRechazado(t *testing.T) {
	_, err := entity.NewStockMovement("", entity.MovementTypeISSUE,
		decimal.NewFromInt(-1), decimal.NewFromInt(9), "", "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestIsPhysical(t *testing.T) {
	fisicos := []string{
		entity.MovementTypeRECEIPT, entity.MovementTypeISSUE,
		entity.MovementTypeADJUST, entity.MovementTypeTRANSFER,
	}
	for _, mt := range fisicos {
		m := &entity.StockMovement{Type: mt}
		assert.True(t, m.IsPhysical(), mt)
	}
	for _, mt := range []string{entity.MovementTypeRESERVE, entity.MovementTypeRELEASE} {
		m := &entity.StockMovement{Type: mt}
		assert.False(t, m.IsPhysical(), mt)
	}
}
