package sheetsync

import "strings"

// MatchesID reports whether a stored identifier cell matches id.
// Table implementations share this so every backend finds rows the same way.
func MatchesID(cell, id string) bool {
	return strings.EqualFold(strings.TrimSpace(cell), id)
}

// ContactName derives a contact name from the local part of an email address.
func ContactName(email string) string {
	if email == "" {
		return ""
	}
	local, _, _ := strings.Cut(email, "@")
	return local
}

// FormatAmount renders the amount column, e.g. "$999.00".
// The dollar prefix is written for every currency; the currency column carries the code.
func FormatAmount(rec CustomerRecord) string {
	return "$" + rec.Amount.StringFixed(2)
}

// NewRow builds the full ColumnCount-wide row for a record.
func NewRow(rec CustomerRecord) []string {
	row := make([]string, ColumnCount)
	row[ColumnCustomerID-1] = rec.CustomerID
	row[ColumnCompanyName-1] = rec.CompanyName
	row[ColumnContactName-1] = ContactName(rec.Email)
	row[ColumnEmail-1] = rec.Email
	row[ColumnStatus-1] = rec.Status
	row[ColumnAmount-1] = FormatAmount(rec)
	row[ColumnSetupCompleted-1] = SetupCompletedDefault
	row[ColumnLastUpdated-1] = rec.FormattedTimestamp()
	row[ColumnCurrency-1] = rec.Currency
	row[ColumnCountry-1] = rec.Country
	return row
}
