package property

import (
	"fmt"
	"time"
)

// Confidence tiers for EstimatedPurchasePrice.
const (
	ConfidenceHigh   = "High"
	ConfidenceMedium = "Medium"
	ConfidenceLow    = "Low"
	ConfidenceNone   = "None"
)

// Record is one persisted property, identified by FolioNumber.
//
// Nullable attributes are pointers; booleans and the confidence tier are
// always populated by the pipeline. CreatedAt/UpdatedAt are maintained by the
// store and are not canonical fields.
type Record struct {
	FolioNumber string

	NameLine1 *string
	NameLine2 *string

	MailingAddressLine1 *string
	MailingAddressLine2 *string
	MailingCity         *string
	MailingState        *string
	MailingZip          *string
	MailingZip4         *string

	SitusStreetNumber *string
	SitusStreetName   *string
	SitusStreetType   *string
	SitusCity         *string
	SitusZip          *string

	UseCode          *string
	UseType          *string
	BldgYearBuilt    *int64
	BldgTotSqFootage *int64
	Beds             *int64
	Baths            *float64

	JustLandValue     *float64
	JustBuildingValue *float64
	JustValue         *float64

	HomesteadFlag   bool
	ExemptionAmount *float64
	OwnersDomicile  *string

	SaleDate1    *string
	DeedType1    *string
	StampAmount1 *float64

	EstimatedPurchasePrice *float64
	CalcConfidence         string
	PotentialEquity        *float64
	IsAbsenteeOwner        bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// CopyFrom overwrites every canonical field except FolioNumber with the
// values from src. Timestamps are left to the store.
func (r *Record) CopyFrom(src *Record) {
	r.NameLine1 = src.NameLine1
	r.NameLine2 = src.NameLine2

	r.MailingAddressLine1 = src.MailingAddressLine1
	r.MailingAddressLine2 = src.MailingAddressLine2
	r.MailingCity = src.MailingCity
	r.MailingState = src.MailingState
	r.MailingZip = src.MailingZip
	r.MailingZip4 = src.MailingZip4

	r.SitusStreetNumber = src.SitusStreetNumber
	r.SitusStreetName = src.SitusStreetName
	r.SitusStreetType = src.SitusStreetType
	r.SitusCity = src.SitusCity
	r.SitusZip = src.SitusZip

	r.UseCode = src.UseCode
	r.UseType = src.UseType
	r.BldgYearBuilt = src.BldgYearBuilt
	r.BldgTotSqFootage = src.BldgTotSqFootage
	r.Beds = src.Beds
	r.Baths = src.Baths

	r.JustLandValue = src.JustLandValue
	r.JustBuildingValue = src.JustBuildingValue
	r.JustValue = src.JustValue

	r.HomesteadFlag = src.HomesteadFlag
	r.ExemptionAmount = src.ExemptionAmount
	r.OwnersDomicile = src.OwnersDomicile

	r.SaleDate1 = src.SaleDate1
	r.DeedType1 = src.DeedType1
	r.StampAmount1 = src.StampAmount1

	r.EstimatedPurchasePrice = src.EstimatedPurchasePrice
	r.CalcConfidence = src.CalcConfidence
	r.PotentialEquity = src.PotentialEquity
	r.IsAbsenteeOwner = src.IsAbsenteeOwner
}

// Clone returns a deep-enough copy: pointer targets are shared, which is safe
// because the pipeline never mutates through them.
func (r *Record) Clone() *Record {
	c := *r
	return &c
}

// Value returns the field value as nil, string, int64, float64 or bool.
func (r *Record) Value(f Field) any {
	switch f {
	case FolioNumber:
		return r.FolioNumber
	case NameLine1:
		return str(r.NameLine1)
	case NameLine2:
		return str(r.NameLine2)
	case MailingAddressLine1:
		return str(r.MailingAddressLine1)
	case MailingAddressLine2:
		return str(r.MailingAddressLine2)
	case MailingCity:
		return str(r.MailingCity)
	case MailingState:
		return str(r.MailingState)
	case MailingZip:
		return str(r.MailingZip)
	case MailingZip4:
		return str(r.MailingZip4)
	case SitusStreetNumber:
		return str(r.SitusStreetNumber)
	case SitusStreetName:
		return str(r.SitusStreetName)
	case SitusStreetType:
		return str(r.SitusStreetType)
	case SitusCity:
		return str(r.SitusCity)
	case SitusZip:
		return str(r.SitusZip)
	case UseCode:
		return str(r.UseCode)
	case UseType:
		return str(r.UseType)
	case BldgYearBuilt:
		return i64(r.BldgYearBuilt)
	case BldgTotSqFootage:
		return i64(r.BldgTotSqFootage)
	case Beds:
		return i64(r.Beds)
	case Baths:
		return f64(r.Baths)
	case JustLandValue:
		return f64(r.JustLandValue)
	case JustBuildingValue:
		return f64(r.JustBuildingValue)
	case JustValue:
		return f64(r.JustValue)
	case HomesteadFlag:
		return r.HomesteadFlag
	case ExemptionAmount:
		return f64(r.ExemptionAmount)
	case OwnersDomicile:
		return str(r.OwnersDomicile)
	case SaleDate1:
		return str(r.SaleDate1)
	case DeedType1:
		return str(r.DeedType1)
	case StampAmount1:
		return f64(r.StampAmount1)
	case EstimatedPurchasePrice:
		return f64(r.EstimatedPurchasePrice)
	case CalcConfidence:
		return r.CalcConfidence
	case PotentialEquity:
		return f64(r.PotentialEquity)
	case IsAbsenteeOwner:
		return r.IsAbsenteeOwner
	}
	return nil
}

// Set assigns a coerced value. v must be nil or the Go type matching the
// field's kind (string, int64, float64, bool); anything else is an error.
func (r *Record) Set(f Field, v any) error {
	switch f.Kind() {
	case KindIdentifier:
		s, ok := v.(string)
		if !ok {
			return typeErr(f, v)
		}
		r.FolioNumber = s
		return nil
	case KindBoolean:
		b, ok := v.(bool)
		if !ok && v != nil {
			return typeErr(f, v)
		}
		return r.setBool(f, b)
	case KindText, KindDate:
		var p *string
		if v != nil {
			s, ok := v.(string)
			if !ok {
				return typeErr(f, v)
			}
			p = &s
		}
		return r.setString(f, p)
	case KindInteger:
		var p *int64
		if v != nil {
			n, ok := v.(int64)
			if !ok {
				return typeErr(f, v)
			}
			p = &n
		}
		return r.setInt(f, p)
	case KindDecimal:
		var p *float64
		if v != nil {
			n, ok := v.(float64)
			if !ok {
				return typeErr(f, v)
			}
			p = &n
		}
		return r.setFloat(f, p)
	}
	return fmt.Errorf("property: unknown field %v", f)
}

func (r *Record) setString(f Field, p *string) error {
	switch f {
	case NameLine1:
		r.NameLine1 = p
	case NameLine2:
		r.NameLine2 = p
	case MailingAddressLine1:
		r.MailingAddressLine1 = p
	case MailingAddressLine2:
		r.MailingAddressLine2 = p
	case MailingCity:
		r.MailingCity = p
	case MailingState:
		r.MailingState = p
	case MailingZip:
		r.MailingZip = p
	case MailingZip4:
		r.MailingZip4 = p
	case SitusStreetNumber:
		r.SitusStreetNumber = p
	case SitusStreetName:
		r.SitusStreetName = p
	case SitusStreetType:
		r.SitusStreetType = p
	case SitusCity:
		r.SitusCity = p
	case SitusZip:
		r.SitusZip = p
	case UseCode:
		r.UseCode = p
	case UseType:
		r.UseType = p
	case OwnersDomicile:
		r.OwnersDomicile = p
	case SaleDate1:
		r.SaleDate1 = p
	case DeedType1:
		r.DeedType1 = p
	case CalcConfidence:
		r.CalcConfidence = ""
		if p != nil {
			r.CalcConfidence = *p
		}
	default:
		return fmt.Errorf("property: %v is not a text field", f)
	}
	return nil
}

func (r *Record) setInt(f Field, p *int64) error {
	switch f {
	case BldgYearBuilt:
		r.BldgYearBuilt = p
	case BldgTotSqFootage:
		r.BldgTotSqFootage = p
	case Beds:
		r.Beds = p
	default:
		return fmt.Errorf("property: %v is not an integer field", f)
	}
	return nil
}

func (r *Record) setFloat(f Field, p *float64) error {
	switch f {
	case Baths:
		r.Baths = p
	case JustLandValue:
		r.JustLandValue = p
	case JustBuildingValue:
		r.JustBuildingValue = p
	case JustValue:
		r.JustValue = p
	case ExemptionAmount:
		r.ExemptionAmount = p
	case StampAmount1:
		r.StampAmount1 = p
	case EstimatedPurchasePrice:
		r.EstimatedPurchasePrice = p
	case PotentialEquity:
		r.PotentialEquity = p
	default:
		return fmt.Errorf("property: %v is not a decimal field", f)
	}
	return nil
}

func (r *Record) setBool(f Field, b bool) error {
	switch f {
	case HomesteadFlag:
		r.HomesteadFlag = b
	case IsAbsenteeOwner:
		r.IsAbsenteeOwner = b
	default:
		return fmt.Errorf("property: %v is not a boolean field", f)
	}
	return nil
}

// Dest returns a pointer to the struct field backing f, suitable as a
// database scan destination. Nullable fields yield pointer-to-pointer
// destinations so NULL scans to nil.
func (r *Record) Dest(f Field) any {
	switch f {
	case FolioNumber:
		return &r.FolioNumber
	case NameLine1:
		return &r.NameLine1
	case NameLine2:
		return &r.NameLine2
	case MailingAddressLine1:
		return &r.MailingAddressLine1
	case MailingAddressLine2:
		return &r.MailingAddressLine2
	case MailingCity:
		return &r.MailingCity
	case MailingState:
		return &r.MailingState
	case MailingZip:
		return &r.MailingZip
	case MailingZip4:
		return &r.MailingZip4
	case SitusStreetNumber:
		return &r.SitusStreetNumber
	case SitusStreetName:
		return &r.SitusStreetName
	case SitusStreetType:
		return &r.SitusStreetType
	case SitusCity:
		return &r.SitusCity
	case SitusZip:
		return &r.SitusZip
	case UseCode:
		return &r.UseCode
	case UseType:
		return &r.UseType
	case BldgYearBuilt:
		return &r.BldgYearBuilt
	case BldgTotSqFootage:
		return &r.BldgTotSqFootage
	case Beds:
		return &r.Beds
	case Baths:
		return &r.Baths
	case JustLandValue:
		return &r.JustLandValue
	case JustBuildingValue:
		return &r.JustBuildingValue
	case JustValue:
		return &r.JustValue
	case HomesteadFlag:
		return &r.HomesteadFlag
	case ExemptionAmount:
		return &r.ExemptionAmount
	case OwnersDomicile:
		return &r.OwnersDomicile
	case SaleDate1:
		return &r.SaleDate1
	case DeedType1:
		return &r.DeedType1
	case StampAmount1:
		return &r.StampAmount1
	case EstimatedPurchasePrice:
		return &r.EstimatedPurchasePrice
	case CalcConfidence:
		return &r.CalcConfidence
	case PotentialEquity:
		return &r.PotentialEquity
	case IsAbsenteeOwner:
		return &r.IsAbsenteeOwner
	}
	return nil
}

// Values returns Value(f) for every canonical field in column order.
func (r *Record) Values() []any {
	out := make([]any, numFields)
	for f := Field(0); f < numFields; f++ {
		out[f] = r.Value(f)
	}
	return out
}

func typeErr(f Field, v any) error {
	return fmt.Errorf("property: field %s (%s) cannot hold %T", f, f.Kind(), v)
}

func str(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

func i64(p *int64) any {
	if p == nil {
		return nil
	}
	return *p
}

func f64(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}
