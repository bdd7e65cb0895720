package journals

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tavola-erp/tavola-erp/internal/ledger/shared"
)

func d(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

func TestValidateLinesBalanced(t *testing.T) {
	debit, credit, err := ValidateLines([]LineInput{
		{AccountID: 1, Debit: d("109000")},
		{AccountID: 2, Credit: d("100000")},
		{AccountID: 3, Credit: d("9000")},
	})
	require.NoError(t, err)
	assert.True(t, debit.Equal(d("109000")))
	assert.True(t, credit.Equal(d("109000")))
}

func TestValidateLinesTooFew(t *testing.T) {
	_, _, err := ValidateLines([]LineInput{{AccountID: 1, Debit: d("10")}})
	assert.ErrorIs(t, err, shared.ErrTooFewLines)

	_, _, err = ValidateLines(nil)
	assert.ErrorIs(t, err, shared.ErrTooFewLines)
}

func TestValidateLinesUnbalanced(t *testing.T) {
	_, _, err := ValidateLines([]LineInput{
		{AccountID: 1, Debit: d("100")},
		{AccountID: 2, Credit: d("90")},
	})
	assert.ErrorIs(t, err, shared.ErrUnbalanced)
}

func TestValidateLinesWithinEpsilon(t *testing.T) {
	// A rounding residue below a minor unit must not block posting.
	_, _, err := ValidateLines([]LineInput{
		{AccountID: 1, Debit: d("100.005")},
		{AccountID: 2, Credit: d("100.00")},
	})
	assert.NoError(t, err)
}

func TestValidateLinesRejectsBothSides(t *testing.T) {
	_, _, err := ValidateLines([]LineInput{
		{AccountID: 1, Debit: d("50"), Credit: d("50")},
		{AccountID: 2, Credit: d("50")},
	})
	assert.ErrorIs(t, err, shared.ErrInvalidLine)
}

func TestValidateLinesRejectsEmptyLine(t *testing.T) {
	_, _, err := ValidateLines([]LineInput{
		{AccountID: 1, Debit: d("50")},
		{AccountID: 2},
	})
	assert.ErrorIs(t, err, shared.ErrInvalidLine)
}

func TestValidateLinesRejectsNegative(t *testing.T) {
	_, _, err := ValidateLines([]LineInput{
		{AccountID: 1, Debit: d("-50")},
		{AccountID: 2, Credit: d("-50")},
	})
	assert.ErrorIs(t, err, shared.ErrInvalidLine)
}

func TestValidateLinesRejectsMissingAccount(t *testing.T) {
	_, _, err := ValidateLines([]LineInput{
		{Debit: d("50")},
		{AccountID: 2, Credit: d("50")},
	})
	assert.ErrorIs(t, err, shared.ErrInvalidLine)
}
