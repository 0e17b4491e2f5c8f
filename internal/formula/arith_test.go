package formula

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestEvalArithmeticRespectsPrecedence(t *testing.T) {
	require := require.New(t)
	v, err := evalArithmetic("2 + 3 * 4")
	require.NoError(err)
	require.True(v.Equal(decimal.NewFromInt(14)))
}

func TestEvalArithmeticRespectsParentheses(t *testing.T) {
	require := require.New(t)
	v, err := evalArithmetic("(2 + 3) * 4")
	require.NoError(err)
	require.True(v.Equal(decimal.NewFromInt(20)))
}

func TestEvalArithmeticHandlesUnaryMinus(t *testing.T) {
	require := require.New(t)
	v, err := evalArithmetic("-5 + 10")
	require.NoError(err)
	require.True(v.Equal(decimal.NewFromInt(5)))
}

func TestEvalArithmeticDivisionByZeroErrors(t *testing.T) {
	require := require.New(t)
	_, err := evalArithmetic("10 / 0")
	require.Error(err)
}

func TestEvalArithmeticMissingClosingParenErrors(t *testing.T) {
	require := require.New(t)
	_, err := evalArithmetic("(1 + 2")
	require.Error(err)
}

func TestEvalArithmeticDecimalLiterals(t *testing.T) {
	require := require.New(t)
	v, err := evalArithmetic("0.1 + 0.2")
	require.NoError(err)
	require.Equal("0.3", v.String())
}
