package transformer

import (
	"testing"

	"propetl/internal/property"
)

func s(v string) *string { return &v }

func TestEstimatePurchasePrice(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name      string
		stamp     *float64
		deed      *string
		wantPrice *float64
		wantConf  string
	}{
		{"warranty deed", f(700), s("WD"), f(100000), property.ConfidenceHigh},
		{"lowercase wd", f(700), s("wd"), f(100000), property.ConfidenceHigh},
		{"special warranty", f(700), s("SWD"), f(100000), property.ConfidenceMedium},
		{"quit claim", f(700), s("QC"), f(100000), property.ConfidenceLow},
		{"no deed type", f(700), nil, f(100000), property.ConfidenceLow},
		{"zero stamp", f(0), s("WD"), nil, property.ConfidenceNone},
		{"negative stamp", f(-7), s("WD"), nil, property.ConfidenceNone},
		{"null stamp", nil, s("WD"), nil, property.ConfidenceNone},
		{"rounds", f(1000), s("WD"), f(142857), property.ConfidenceHigh},  // 142857.14
		{"rounds half up", f(0.0035), s("WD"), f(1), property.ConfidenceHigh}, // 0.5
	}
	for _, tc := range cases {
		price, conf := EstimatePurchasePrice(tc.stamp, tc.deed)
		if !eqF(price, tc.wantPrice) || conf != tc.wantConf {
			t.Errorf("%s: got (%v, %s), want (%v, %s)", tc.name, show(price), conf, show(tc.wantPrice), tc.wantConf)
		}
	}
}

func TestPotentialEquity(t *testing.T) {
	t.Parallel()

	if got := PotentialEquity(f(250000), f(100000)); !eqF(got, f(150000)) {
		t.Fatalf("equity = %v", show(got))
	}
	if PotentialEquity(nil, f(1)) != nil || PotentialEquity(f(1), nil) != nil {
		t.Fatalf("equity must be nil when an operand is nil")
	}
	if got := PotentialEquity(f(50), f(80)); !eqF(got, f(-30)) {
		t.Fatalf("negative equity = %v", show(got))
	}
}

func TestIsAbsentee(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name                     string
		domicile, number, street *string
		mailing                  *string
		want                     bool
	}{
		{"out of state", s("NY"), s("123"), s("Main St"), s("123 Main St"), true},
		{"out of state no address", s("ny"), nil, nil, nil, true},
		{"fl situs in mailing", s("FL"), s("123"), s("Main St"), s("123 Main Street Suite 4"), false},
		{"fl mailing in situs", s("FL"), s("123"), s("Main Street"), s("123 main"), false},
		{"fl different", s("FL"), s("123"), s("Main St"), s("PO Box 9"), true},
		{"no domicile different", nil, s("1"), s("Ocean Dr"), s("55 Elm Ave"), true},
		{"case and space", nil, s("9"), s("OAK LN "), s("  9 oak ln  "), false},
		{"missing mailing", s("FL"), s("1"), s("Ocean Dr"), nil, false},
		{"missing situs", nil, nil, nil, s("55 Elm Ave"), false},
		{"blank domicile", s("  "), s("1"), s("A"), s("1 A"), false},
	}
	for _, tc := range cases {
		if got := IsAbsentee(tc.domicile, tc.number, tc.street, tc.mailing); got != tc.want {
			t.Errorf("%s: IsAbsentee = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestDerive(t *testing.T) {
	t.Parallel()

	r := &property.Record{
		FolioNumber:         "F1",
		StampAmount1:        f(700),
		DeedType1:           s("WD"),
		JustValue:           f(250000),
		OwnersDomicile:      s("NY"),
		MailingAddressLine1: s("1 Broadway"),
	}
	Derive(r)
	if !eqF(r.EstimatedPurchasePrice, f(100000)) || r.CalcConfidence != property.ConfidenceHigh {
		t.Fatalf("price = %v %s", show(r.EstimatedPurchasePrice), r.CalcConfidence)
	}
	if !eqF(r.PotentialEquity, f(150000)) {
		t.Fatalf("equity = %v", show(r.PotentialEquity))
	}
	if !r.IsAbsenteeOwner {
		t.Fatalf("NY domicile must be absentee")
	}
}
