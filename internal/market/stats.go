package market

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Aggregate computes the console statistics of a filtered listing set.
// Listings with a zero price count towards the totals but not towards any
// price figure.
func Aggregate(listings []Listing) ConsoleStats {
	var stats ConsoleStats
	var offerPrices, soldPrices []float64

	stats.TotalListings = len(listings)
	for _, l := range listings {
		if l.Available() {
			stats.AvailableCount++
			if l.Price > 0 {
				offerPrices = append(offerPrices, l.Price)
			}
		}
		if l.IsSold {
			stats.SoldCount++
			if l.Price > 0 {
				soldPrices = append(soldPrices, l.Price)
			}
		}
		if l.IsReserved {
			stats.ReservedCount++
		}
	}

	stats.AvgOfferPrice = Mean(offerPrices)
	stats.MedianOfferPrice = Median(offerPrices)
	stats.MinOfferPrice = Min(offerPrices)
	stats.MaxOfferPrice = Max(offerPrices)
	stats.AvgSoldPrice = Mean(soldPrices)
	stats.MedianSoldPrice = Median(soldPrices)

	return stats
}

// Mean returns the arithmetic mean rounded to cents, or nil for no prices
func Mean(prices []float64) *float64 {
	if len(prices) == 0 {
		return nil
	}
	sum := decimal.Zero
	for _, p := range prices {
		sum = sum.Add(decimal.NewFromFloat(p))
	}
	return round2(sum.Div(decimal.NewFromInt(int64(len(prices)))))
}

// Median returns the middle price (mean of the two central prices for an even
// count) rounded to cents, or nil for no prices
func Median(prices []float64) *float64 {
	if len(prices) == 0 {
		return nil
	}
	sorted := make([]float64, len(prices))
	copy(sorted, prices)
	sort.Float64s(sorted)

	n := len(sorted)
	if n%2 == 1 {
		return round2(decimal.NewFromFloat(sorted[n/2]))
	}
	mid := decimal.NewFromFloat(sorted[n/2-1]).Add(decimal.NewFromFloat(sorted[n/2]))
	return round2(mid.Div(decimal.NewFromInt(2)))
}

// Min returns the lowest price rounded to cents, or nil for no prices
func Min(prices []float64) *float64 {
	if len(prices) == 0 {
		return nil
	}
	m := prices[0]
	for _, p := range prices[1:] {
		if p < m {
			m = p
		}
	}
	return round2(decimal.NewFromFloat(m))
}

// Max returns the highest price rounded to cents, or nil for no prices
func Max(prices []float64) *float64 {
	if len(prices) == 0 {
		return nil
	}
	m := prices[0]
	for _, p := range prices[1:] {
		if p > m {
			m = p
		}
	}
	return round2(decimal.NewFromFloat(m))
}

func round2(d decimal.Decimal) *float64 {
	f := d.Round(2).InexactFloat64()
	return &f
}
