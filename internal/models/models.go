package models

import "time"

// PricePoint is one daily bar.
type PricePoint struct {
	Date     time.Time `json:"date"`
	Open     float64   `json:"open"`
	High     float64   `json:"high"`
	Low      float64   `json:"low"`
	Close    float64   `json:"close"`
	AdjClose *float64  `json:"adj_close,omitempty"`
	Volume   float64   `json:"volume"`
}

// PriceSeries is one symbol's bars sorted ascending by date. DropPercent is
// set by the price-drop filter and is negative for a decline.
type PriceSeries struct {
	Symbol      string       `json:"symbol"`
	Points      []PricePoint `json:"points"`
	DropPercent float64      `json:"price_drop"`
}

func (s PriceSeries) Empty() bool {
	return len(s.Points) == 0
}

func (s PriceSeries) Closes() []float64 {
	out := make([]float64, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.Close
	}
	return out
}

type InsiderTransaction struct {
	Symbol               string     `json:"symbol"`
	TransactionDate      time.Time  `json:"transaction_date"`
	FilingDate           *time.Time `json:"filing_date,omitempty"`
	ReportingName        string     `json:"reporting_name,omitempty"`
	OwnerType            string     `json:"owner_type"`
	TransactionType      string     `json:"transaction_type"`
	SecuritiesTransacted float64    `json:"securities_transacted"`
	SecuritiesOwned      float64    `json:"securities_owned"`
	Price                float64    `json:"price,omitempty"`
}

// Candidate is one symbol that survived both filters.
type Candidate struct {
	Symbol          string  `json:"symbol"`
	OwnershipChange float64 `json:"ownership_change"`
	PriceDrop       float64 `json:"price_drop"`
	Transactions    int     `json:"transactions"`
}
