package aggregator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bighogz/insider-dip/internal/models"
)

func buy(sym string, transacted, owned float64) models.InsiderTransaction {
	return models.InsiderTransaction{
		Symbol:               sym,
		OwnerType:            "CEO",
		TransactionType:      "P-Purchase",
		SecuritiesTransacted: transacted,
		SecuritiesOwned:      owned,
	}
}

func TestAggregateAveragesPerSymbol(t *testing.T) {
	prices := map[string]models.PriceSeries{
		"ABC": {Symbol: "ABC", DropPercent: -20},
	}
	buys := map[string][]models.InsiderTransaction{
		"ABC": {buy("ABC", 50, 1000), buy("ABC", 150, 1000)},
	}

	got, err := Aggregate(prices, buys)

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "ABC", got[0].Symbol)
	assert.InDelta(t, 10.0, got[0].OwnershipChange, 1e-9)
	assert.InDelta(t, -20.0, got[0].PriceDrop, 1e-9)
	assert.Equal(t, 2, got[0].Transactions)
}

func TestAggregateSkipsZeroOwned(t *testing.T) {
	prices := map[string]models.PriceSeries{
		"ABC": {Symbol: "ABC", DropPercent: -12},
		"ZRO": {Symbol: "ZRO", DropPercent: -30},
	}
	buys := map[string][]models.InsiderTransaction{
		"ABC": {buy("ABC", 100, 0), buy("ABC", 100, 1000)},
		"ZRO": {buy("ZRO", 100, 0)},
	}

	got, err := Aggregate(prices, buys)

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.InDelta(t, 10.0, got[0].OwnershipChange, 1e-9)
	assert.Equal(t, 1, got[0].Transactions)
}

func TestAggregateSkipsSymbolWithoutPrices(t *testing.T) {
	prices := map[string]models.PriceSeries{
		"ABC": {Symbol: "ABC", DropPercent: -12},
	}
	buys := map[string][]models.InsiderTransaction{
		"ABC": {buy("ABC", 100, 1000)},
		"GHO": {buy("GHO", 100, 1000)},
	}

	got, err := Aggregate(prices, buys)

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "ABC", got[0].Symbol)
}

func TestAggregateNoCandidates(t *testing.T) {
	got, err := Aggregate(map[string]models.PriceSeries{}, map[string][]models.InsiderTransaction{})
	assert.ErrorIs(t, err, ErrNoCandidates)
	assert.Nil(t, got)

	_, err = Aggregate(nil, map[string][]models.InsiderTransaction{"ABC": {buy("ABC", 1, 10)}})
	assert.ErrorIs(t, err, ErrNoCandidates)
}

func TestAggregateSortedBySymbol(t *testing.T) {
	prices := map[string]models.PriceSeries{
		"CCC": {DropPercent: -11}, "AAA": {DropPercent: -12}, "BBB": {DropPercent: -13},
	}
	buys := map[string][]models.InsiderTransaction{
		"CCC": {buy("CCC", 1, 10)}, "AAA": {buy("AAA", 1, 10)}, "BBB": {buy("BBB", 1, 10)},
	}

	got, err := Aggregate(prices, buys)

	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"AAA", "BBB", "CCC"}, []string{got[0].Symbol, got[1].Symbol, got[2].Symbol})
}

func TestRank(t *testing.T) {
	in := []models.Candidate{
		{Symbol: "AAA", OwnershipChange: 1},
		{Symbol: "BBB", OwnershipChange: 5},
		{Symbol: "CCC", OwnershipChange: 3},
		{Symbol: "DDD", OwnershipChange: 5},
	}

	top := Rank(in, 3)

	require.Len(t, top, 3)
	assert.Equal(t, "BBB", top[0].Symbol)
	assert.Equal(t, "DDD", top[1].Symbol)
	assert.Equal(t, "CCC", top[2].Symbol)
	assert.Equal(t, "AAA", in[0].Symbol)
	assert.Len(t, Rank(in, 0), 4)
	assert.Len(t, Rank(in, 10), 4)
}

func TestOwnershipChange(t *testing.T) {
	pct, ok := OwnershipChange(buy("ABC", 1000, 10000))
	assert.True(t, ok)
	assert.InDelta(t, 10.0, pct, 1e-9)

	_, ok = OwnershipChange(buy("ABC", 1000, 0))
	assert.False(t, ok)
}
