package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BetResult represents the settlement outcome of a bet
type BetResult string

const (
	BetResultWon  BetResult = "won"
	BetResultLost BetResult = "lost"
)

// BetRecord represents a settled simulated bet. Records are append-only.
type BetRecord struct {
	ID               uuid.UUID       `db:"id" json:"id" validate:"required"`
	Sequence         int64           `db:"sequence" json:"sequence"`
	PlacedAt         time.Time       `db:"placed_at" json:"placed_at" validate:"required"`
	MatchID          string          `db:"match_id" json:"match_id" validate:"required"`
	Market           MarketKind      `db:"market" json:"market" validate:"required"`
	Outcome          Outcome         `db:"outcome" json:"outcome" validate:"required"`
	StakeAmount      decimal.Decimal `db:"stake_amount" json:"stake_amount"`
	StakeFraction    float64         `db:"stake_fraction" json:"stake_fraction" validate:"gte=0,lte=1"`
	Odds             float64         `db:"odds" json:"odds" validate:"gt=1"`
	ModelProbability float64         `db:"model_probability" json:"model_probability" validate:"gt=0,lt=1"`
	ExpectedValue    float64         `db:"expected_value" json:"expected_value"`
	Result           BetResult       `db:"result" json:"result" validate:"required,oneof=won lost"`
	Profit           decimal.Decimal `db:"profit" json:"profit"`
	CapitalBefore    decimal.Decimal `db:"capital_before" json:"capital_before"`
	CapitalAfter     decimal.Decimal `db:"capital_after" json:"capital_after"`
}

// Won checks if the bet was a winner
func (r *BetRecord) Won() bool {
	return r.Result == BetResultWon
}

// GetROI returns profit as a fraction of stake
func (r *BetRecord) GetROI() float64 {
	if r.StakeAmount.IsZero() {
		return 0
	}
	return r.Profit.Div(r.StakeAmount).InexactFloat64()
}

// Verify checks the profit and capital invariants of the record
func (r *BetRecord) Verify() error {
	expected := BetProfit(r.StakeAmount, r.Odds, r.Won())
	if !r.Profit.Equal(expected) {
		return fmt.Errorf("%w: bet %s profit %s, expected %s", ErrInvalidInputs, r.ID, r.Profit, expected)
	}
	if !r.CapitalAfter.Equal(r.CapitalBefore.Add(r.Profit)) {
		return fmt.Errorf("%w: bet %s capital chain broken: %s + %s != %s",
			ErrInvalidInputs, r.ID, r.CapitalBefore, r.Profit, r.CapitalAfter)
	}
	return nil
}

// BetProfit returns stake*(odds-1) on a win and -stake otherwise
func BetProfit(stake decimal.Decimal, odds float64, won bool) decimal.Decimal {
	if !won {
		return stake.Neg()
	}
	return stake.Mul(decimal.NewFromFloat(odds).Sub(decimal.NewFromInt(1)))
}
