// Package refdata serves the read-only lookups (SKPD units, disbursement
// schedules) consumed when formatting SPM numbers.
package refdata

// Unit holds the numbering codes assigned to an SKPD.
type Unit struct {
	Name       string `json:"name" db:"name"`
	UnitCode   string `json:"unit_code" db:"unit_code"`
	RegionCode string `json:"region_code" db:"region_code"`
}

// Schedule is one disbursement schedule (jadwal) entry.
type Schedule struct {
	Code        string `json:"code" db:"code"`
	Description string `json:"description" db:"description"`
	Active      bool   `json:"active" db:"active"`
}
