package csv

import "propetl/internal/property"

// synonyms maps normalized source header names to canonical fields. Keys must
// already be in NormalizeHeader form.
var synonyms = map[string]property.Field{
	// folio
	"folio_number": property.FolioNumber,
	"folionumber":  property.FolioNumber,
	"folio":        property.FolioNumber,
	"parcel_id":    property.FolioNumber,
	"parcelid":     property.FolioNumber,
	"parcel":       property.FolioNumber,

	// owner
	"name_line_1":  property.NameLine1,
	"owner_name":   property.NameLine1,
	"owner":        property.NameLine1,
	"name_line_2":  property.NameLine2,
	"owner_name_2": property.NameLine2,

	// mailing address
	"address_line_1":         property.MailingAddressLine1,
	"mailing_address_line_1": property.MailingAddressLine1,
	"mailing_address":        property.MailingAddressLine1,
	"address_line_2":         property.MailingAddressLine2,
	"mailing_address_line_2": property.MailingAddressLine2,
	"city":                   property.MailingCity,
	"mailing_city":           property.MailingCity,
	"state":                  property.MailingState,
	"mailing_state":          property.MailingState,
	"zip":                    property.MailingZip,
	"mailing_zip":            property.MailingZip,
	"zip4":                   property.MailingZip4,
	"mailing_zip4":           property.MailingZip4,

	// situs address
	"situs_street_number": property.SitusStreetNumber,
	"situs_street_name":   property.SitusStreetName,
	"situs_street_type":   property.SitusStreetType,
	"situs_city":          property.SitusCity,
	"situs_zip_code":      property.SitusZip,
	"situs_zip":           property.SitusZip,

	// property details
	"use_code":            property.UseCode,
	"use_type":            property.UseType,
	"property_type":       property.UseType,
	"bldg_year_built":     property.BldgYearBuilt,
	"year_built":          property.BldgYearBuilt,
	"bldg_tot_sq_footage": property.BldgTotSqFootage,
	"sq_footage":          property.BldgTotSqFootage,
	"square_footage":      property.BldgTotSqFootage,
	"beds":                property.Beds,
	"bedrooms":            property.Beds,
	"baths":               property.Baths,
	"bathrooms":           property.Baths,

	// values
	"just_land_value":     property.JustLandValue,
	"land_value":          property.JustLandValue,
	"just_building_value": property.JustBuildingValue,
	"building_value":      property.JustBuildingValue,
	"just_value":          property.JustValue,
	"assessed_value":      property.JustValue,
	"total_value":         property.JustValue,

	// exemptions
	"homestead_flag":   property.HomesteadFlag,
	"homestead":        property.HomesteadFlag,
	"exemption_amount": property.ExemptionAmount,
	"owners_domicile":  property.OwnersDomicile,
	"domicile":         property.OwnersDomicile,

	// sale history
	"sale_date_1":        property.SaleDate1,
	"last_sale_date":     property.SaleDate1,
	"deed_type_1":        property.DeedType1,
	"deed_type":          property.DeedType1,
	"stamp_amount_1":     property.StampAmount1,
	"doc_stamps":         property.StampAmount1,
	"documentary_stamps": property.StampAmount1,
}
