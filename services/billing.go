package services

import (
	"github.com/shopspring/decimal"

	"github.com/cleanpath/cleanpath-api/models"
)

// GarbageAmount is the charge for a collected pickup request: weight times
// rate in weight-based areas, the flat rate everywhere else.
func GarbageAmount(area *models.Area, weight float64) float64 {
	if area == nil {
		return 0
	}
	amount := decimal.NewFromFloat(area.Rate)
	if area.Type == models.AreaWeightBased {
		amount = amount.Mul(decimal.NewFromFloat(weight))
	}
	return amount.Round(2).InexactFloat64()
}

// BinAmount is the charge for emptying a bin. Bins are not weighed so the
// area rate is always applied flat.
func BinAmount(area *models.Area) float64 {
	if area == nil {
		return 0
	}
	return roundAmount(area.Rate)
}

// roundAmount rounds a currency amount to cents
func roundAmount(amount float64) float64 {
	return decimal.NewFromFloat(amount).Round(2).InexactFloat64()
}

// minorUnits converts an amount to the smallest currency unit
func minorUnits(amount float64) int64 {
	return decimal.NewFromFloat(amount).Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}
