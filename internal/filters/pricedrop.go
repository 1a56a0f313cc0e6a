package filters

import (
	"github.com/rs/zerolog/log"

	"github.com/bighogz/insider-dip/internal/models"
	"github.com/bighogz/insider-dip/internal/trend"
)

// PriceDrop keeps the series whose close-to-close change over the window is
// at or below threshold. threshold is <= 0; -10 means "fell at least 10%".
// Each returned series carries its DropPercent. Empty series are skipped.
func PriceDrop(series map[string]models.PriceSeries, threshold float64) map[string]models.PriceSeries {
	out := make(map[string]models.PriceSeries)
	for sym, s := range series {
		if s.Empty() {
			continue
		}
		c := trend.FromCloses(s.Closes())
		if c == nil {
			log.Debug().Str("symbol", sym).Msg("no usable closes in window")
			continue
		}
		s.DropPercent = c.ChangePct
		if s.DropPercent <= threshold {
			out[sym] = s
		}
	}
	return out
}
