package filters

import (
	"strings"

	"github.com/bighogz/insider-dip/internal/models"
)

// PurchaseCode is the transaction type of an open-market purchase.
const PurchaseCode = "P-Purchase"

// executiveRoles are matched as case-insensitive substrings of the free-text
// owner type, so "Chief Executive Officer (CEO)" and "Director" both match.
var executiveRoles = []string{"ceo", "cfo", "coo", "director"}

func IsExecutivePurchase(tx models.InsiderTransaction) bool {
	if tx.TransactionType != PurchaseCode {
		return false
	}
	owner := strings.ToLower(tx.OwnerType)
	for _, role := range executiveRoles {
		if strings.Contains(owner, role) {
			return true
		}
	}
	return false
}

// InsiderBuys keeps only executive open-market purchases. Symbols left with
// none are dropped.
func InsiderBuys(trades map[string][]models.InsiderTransaction) map[string][]models.InsiderTransaction {
	out := make(map[string][]models.InsiderTransaction)
	for sym, txs := range trades {
		var buys []models.InsiderTransaction
		for _, tx := range txs {
			if IsExecutivePurchase(tx) {
				buys = append(buys, tx)
			}
		}
		if len(buys) > 0 {
			out[sym] = buys
		}
	}
	return out
}
