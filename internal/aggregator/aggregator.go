package aggregator

import (
	"errors"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/bighogz/insider-dip/internal/models"
)

// ErrNoCandidates means no symbol survived both filters. Callers should skip
// persistence and plotting.
var ErrNoCandidates = errors.New("no matching stocks found")

type row struct {
	symbol          string
	ownershipChange float64
	priceDrop       float64
}

// OwnershipChange is shares transacted over shares owned after the trade, as
// a percentage. ok is false when owned is zero.
func OwnershipChange(tx models.InsiderTransaction) (pct float64, ok bool) {
	if tx.SecuritiesOwned == 0 {
		return 0, false
	}
	return tx.SecuritiesTransacted / tx.SecuritiesOwned * 100, true
}

// Aggregate joins filtered insider buys with filtered price series and
// averages ownership change and price drop per symbol. Transactions with zero
// securities owned are skipped, as are symbols missing from prices. The
// result is sorted by symbol.
func Aggregate(prices map[string]models.PriceSeries, buys map[string][]models.InsiderTransaction) ([]models.Candidate, error) {
	rows := make([]row, 0)
	for sym, txs := range buys {
		series, ok := prices[sym]
		if !ok {
			log.Warn().Str("symbol", sym).Msg("insider buys without a price series, skipping")
			continue
		}
		for _, tx := range txs {
			oc, ok := OwnershipChange(tx)
			if !ok {
				log.Warn().Str("symbol", sym).Time("transaction_date", tx.TransactionDate).
					Msg("securities owned is zero, skipping transaction")
				continue
			}
			rows = append(rows, row{symbol: sym, ownershipChange: oc, priceDrop: series.DropPercent})
		}
	}
	if len(rows) == 0 {
		return nil, ErrNoCandidates
	}

	bySymbol := make(map[string][]row)
	for _, r := range rows {
		bySymbol[r.symbol] = append(bySymbol[r.symbol], r)
	}

	out := make([]models.Candidate, 0, len(bySymbol))
	for sym, group := range bySymbol {
		oc := make([]float64, len(group))
		pd := make([]float64, len(group))
		for i, r := range group {
			oc[i] = r.ownershipChange
			pd[i] = r.priceDrop
		}
		out = append(out, models.Candidate{
			Symbol:          sym,
			OwnershipChange: mean(oc),
			PriceDrop:       mean(pd),
			Transactions:    len(group),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out, nil
}

// Rank returns the top n candidates by ownership change, descending. n <= 0
// returns all of them. The input is not reordered.
func Rank(candidates []models.Candidate, n int) []models.Candidate {
	ranked := append([]models.Candidate(nil), candidates...)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].OwnershipChange != ranked[j].OwnershipChange {
			return ranked[i].OwnershipChange > ranked[j].OwnershipChange
		}
		return ranked[i].Symbol < ranked[j].Symbol
	})
	if n > 0 && len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

func mean(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}
