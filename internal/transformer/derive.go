package transformer

import (
	"math"
	"strings"

	"propetl/internal/property"
)

// DocStampRate is Florida's documentary stamp tax on deeds: $0.70 per $100
// of consideration.
const DocStampRate = 0.007

// EstimatePurchasePrice recovers the implied sale price from the stamp
// amount. A null or non-positive stamp yields (nil, "None").
func EstimatePurchasePrice(stamp *float64, deedType *string) (*float64, string) {
	if stamp == nil || *stamp <= 0 {
		return nil, property.ConfidenceNone
	}
	price := math.Round(*stamp / DocStampRate)

	conf := property.ConfidenceLow
	if deedType != nil {
		switch strings.ToUpper(strings.TrimSpace(*deedType)) {
		case "WD":
			conf = property.ConfidenceHigh
		case "SWD":
			conf = property.ConfidenceMedium
		}
	}
	return &price, conf
}

// PotentialEquity is just - price when both are known.
func PotentialEquity(just, price *float64) *float64 {
	if just == nil || price == nil {
		return nil
	}
	eq := *just - *price
	return &eq
}

// IsAbsentee classifies the owner as absentee when the domicile is set and
// is not FL, or when situs and mailing addresses are both known and neither
// contains the other. Missing data means not absentee.
func IsAbsentee(domicile, situsNumber, situsName, mailingLine1 *string) bool {
	if d := strings.ToUpper(strings.TrimSpace(deref(domicile))); d != "" && d != "FL" {
		return true
	}
	situs := strings.ToLower(strings.TrimSpace(deref(situsNumber) + " " + deref(situsName)))
	mailing := strings.ToLower(strings.TrimSpace(deref(mailingLine1)))
	if situs == "" || mailing == "" {
		return false
	}
	return !strings.Contains(mailing, situs) && !strings.Contains(situs, mailing)
}

// Derive fills the computed fields of r from its coerced source fields.
func Derive(r *property.Record) {
	r.EstimatedPurchasePrice, r.CalcConfidence = EstimatePurchasePrice(r.StampAmount1, r.DeedType1)
	r.PotentialEquity = PotentialEquity(r.JustValue, r.EstimatedPurchasePrice)
	r.IsAbsenteeOwner = IsAbsentee(r.OwnersDomicile, r.SitusStreetNumber, r.SitusStreetName, r.MailingAddressLine1)
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
