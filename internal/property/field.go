// Package property defines the canonical property-record model shared by the
// ingestion pipeline, the storage backends and the export path.
//
// The set of known attributes is a closed enumeration (Field). Every consumer
// iterates Fields() rather than hard-coding column lists, so adding a field
// means adding one constant, one fieldInfo entry and one case in each of
// Record.Value / Record.Set / Record.CopyFrom.
package property

import "fmt"

// Kind is the declared value kind of a canonical field.
type Kind uint8

const (
	KindIdentifier Kind = iota // trimmed, non-empty key string
	KindText                   // free text, nullable
	KindInteger                // int64, nullable
	KindDecimal                // float64, nullable
	KindBoolean                // bool, never null
	KindDate                   // date kept as cleaned text
)

func (k Kind) String() string {
	switch k {
	case KindIdentifier:
		return "identifier"
	case KindText:
		return "text"
	case KindInteger:
		return "integer"
	case KindDecimal:
		return "decimal"
	case KindBoolean:
		return "boolean"
	case KindDate:
		return "date"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Field enumerates the canonical property attributes in their fixed column
// order (storage columns and export header both use this order).
type Field uint8

const (
	FolioNumber Field = iota

	NameLine1
	NameLine2

	MailingAddressLine1
	MailingAddressLine2
	MailingCity
	MailingState
	MailingZip
	MailingZip4

	SitusStreetNumber
	SitusStreetName
	SitusStreetType
	SitusCity
	SitusZip

	UseCode
	UseType
	BldgYearBuilt
	BldgTotSqFootage
	Beds
	Baths

	JustLandValue
	JustBuildingValue
	JustValue

	HomesteadFlag
	ExemptionAmount
	OwnersDomicile

	SaleDate1
	DeedType1
	StampAmount1

	EstimatedPurchasePrice
	CalcConfidence
	PotentialEquity
	IsAbsenteeOwner

	numFields
)

type fieldInfo struct {
	name    string
	kind    Kind
	derived bool
}

var fieldTable = [numFields]fieldInfo{
	FolioNumber: {"folio_number", KindIdentifier, false},

	NameLine1: {"name_line_1", KindText, false},
	NameLine2: {"name_line_2", KindText, false},

	MailingAddressLine1: {"mailing_address_line_1", KindText, false},
	MailingAddressLine2: {"mailing_address_line_2", KindText, false},
	MailingCity:         {"mailing_city", KindText, false},
	MailingState:        {"mailing_state", KindText, false},
	MailingZip:          {"mailing_zip", KindText, false},
	MailingZip4:         {"mailing_zip4", KindText, false},

	SitusStreetNumber: {"situs_street_number", KindText, false},
	SitusStreetName:   {"situs_street_name", KindText, false},
	SitusStreetType:   {"situs_street_type", KindText, false},
	SitusCity:         {"situs_city", KindText, false},
	SitusZip:          {"situs_zip", KindText, false},

	UseCode:          {"use_code", KindText, false},
	UseType:          {"use_type", KindText, false},
	BldgYearBuilt:    {"bldg_year_built", KindInteger, false},
	BldgTotSqFootage: {"bldg_tot_sq_footage", KindInteger, false},
	Beds:             {"beds", KindInteger, false},
	Baths:            {"baths", KindDecimal, false},

	JustLandValue:     {"just_land_value", KindDecimal, false},
	JustBuildingValue: {"just_building_value", KindDecimal, false},
	JustValue:         {"just_value", KindDecimal, false},

	HomesteadFlag:   {"homestead_flag", KindBoolean, false},
	ExemptionAmount: {"exemption_amount", KindDecimal, false},
	OwnersDomicile:  {"owners_domicile", KindText, false},

	SaleDate1:    {"sale_date_1", KindDate, false},
	DeedType1:    {"deed_type_1", KindText, false},
	StampAmount1: {"stamp_amount_1", KindDecimal, false},

	EstimatedPurchasePrice: {"estimated_purchase_price", KindDecimal, true},
	CalcConfidence:         {"calc_confidence", KindText, true},
	PotentialEquity:        {"potential_equity", KindDecimal, true},
	IsAbsenteeOwner:        {"is_absentee_owner", KindBoolean, true},
}

var byName = func() map[string]Field {
	m := make(map[string]Field, numFields)
	for f := Field(0); f < numFields; f++ {
		m[fieldTable[f].name] = f
	}
	return m
}()

// String returns the canonical snake_case column name.
func (f Field) String() string {
	if f >= numFields {
		return fmt.Sprintf("field(%d)", uint8(f))
	}
	return fieldTable[f].name
}

// Kind returns the declared value kind.
func (f Field) Kind() Kind { return fieldTable[f].kind }

// Derived reports whether the field is computed by the pipeline rather than
// read from a source column.
func (f Field) Derived() bool { return fieldTable[f].derived }

// Fields returns every canonical field in column order.
func Fields() []Field {
	out := make([]Field, numFields)
	for i := range out {
		out[i] = Field(i)
	}
	return out
}

// SourceFields returns the fields that may be mapped from input columns.
func SourceFields() []Field {
	out := make([]Field, 0, numFields)
	for f := Field(0); f < numFields; f++ {
		if !fieldTable[f].derived {
			out = append(out, f)
		}
	}
	return out
}

// Columns returns the canonical column names in order.
func Columns() []string {
	out := make([]string, numFields)
	for f := Field(0); f < numFields; f++ {
		out[f] = fieldTable[f].name
	}
	return out
}

// Lookup resolves a canonical column name.
func Lookup(name string) (Field, bool) {
	f, ok := byName[name]
	return f, ok
}
