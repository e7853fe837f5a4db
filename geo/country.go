// Package geo provides the country lookup used to enrich STILT stations.
// The built-in table covers the STILT domain; a richer provider can be
// plugged in through the Lookup interface.
package geo

import "strings"

// Country is one ISO 3166-1 entry.
type Country struct {
	Alpha2       string
	Alpha3       string
	Name         string
	OfficialName string
	AltSpellings []string
}

// Matches reports whether q (case-insensitive) equals the alpha-2 or alpha-3
// code or any of the name fields.
func (c Country) Matches(q string) bool {
	q = strings.ToLower(q)
	if q == strings.ToLower(c.Alpha2) || q == strings.ToLower(c.Alpha3) {
		return true
	}
	if q == strings.ToLower(c.Name) || q == strings.ToLower(c.OfficialName) {
		return true
	}
	for _, alt := range c.AltSpellings {
		if q == strings.ToLower(alt) {
			return true
		}
	}
	return false
}

// Lookup resolves country codes.
type Lookup interface {
	// ByAlpha2 returns the country for an ISO 3166-1 alpha-2 code.
	ByAlpha2(code string) (Country, bool)
}

// Table is a static in-memory Lookup.
type Table struct {
	byAlpha2 map[string]Country
}

// ByAlpha2 implements Lookup.
func (t *Table) ByAlpha2(code string) (Country, bool) {
	c, ok := t.byAlpha2[strings.ToUpper(code)]
	return c, ok
}

// Default returns the built-in country table.
func Default() *Table {
	t := &Table{byAlpha2: make(map[string]Country, len(countries))}
	for _, c := range countries {
		t.byAlpha2[c.Alpha2] = c
	}
	return t
}

// countries covers the STILT model domain (Europe plus near neighbours).
var countries = []Country{
	{Alpha2: "AT", Alpha3: "AUT", Name: "Austria", OfficialName: "Republic of Austria", AltSpellings: []string{"Österreich"}},
	{Alpha2: "BE", Alpha3: "BEL", Name: "Belgium", OfficialName: "Kingdom of Belgium", AltSpellings: []string{"België", "Belgique"}},
	{Alpha2: "BG", Alpha3: "BGR", Name: "Bulgaria", OfficialName: "Republic of Bulgaria"},
	{Alpha2: "BY", Alpha3: "BLR", Name: "Belarus", OfficialName: "Republic of Belarus"},
	{Alpha2: "CH", Alpha3: "CHE", Name: "Switzerland", OfficialName: "Swiss Confederation", AltSpellings: []string{"Schweiz", "Suisse"}},
	{Alpha2: "CY", Alpha3: "CYP", Name: "Cyprus", OfficialName: "Republic of Cyprus"},
	{Alpha2: "CZ", Alpha3: "CZE", Name: "Czechia", OfficialName: "Czech Republic", AltSpellings: []string{"Česko"}},
	{Alpha2: "DE", Alpha3: "DEU", Name: "Germany", OfficialName: "Federal Republic of Germany", AltSpellings: []string{"Deutschland"}},
	{Alpha2: "DK", Alpha3: "DNK", Name: "Denmark", OfficialName: "Kingdom of Denmark", AltSpellings: []string{"Danmark"}},
	{Alpha2: "EE", Alpha3: "EST", Name: "Estonia", OfficialName: "Republic of Estonia", AltSpellings: []string{"Eesti"}},
	{Alpha2: "ES", Alpha3: "ESP", Name: "Spain", OfficialName: "Kingdom of Spain", AltSpellings: []string{"España"}},
	{Alpha2: "FI", Alpha3: "FIN", Name: "Finland", OfficialName: "Republic of Finland", AltSpellings: []string{"Suomi"}},
	{Alpha2: "FR", Alpha3: "FRA", Name: "France", OfficialName: "French Republic"},
	{Alpha2: "GB", Alpha3: "GBR", Name: "United Kingdom", OfficialName: "United Kingdom of Great Britain and Northern Ireland", AltSpellings: []string{"UK", "Great Britain"}},
	{Alpha2: "GR", Alpha3: "GRC", Name: "Greece", OfficialName: "Hellenic Republic", AltSpellings: []string{"Hellas"}},
	{Alpha2: "HR", Alpha3: "HRV", Name: "Croatia", OfficialName: "Republic of Croatia", AltSpellings: []string{"Hrvatska"}},
	{Alpha2: "HU", Alpha3: "HUN", Name: "Hungary", OfficialName: "Hungary", AltSpellings: []string{"Magyarország"}},
	{Alpha2: "IE", Alpha3: "IRL", Name: "Ireland", OfficialName: "Republic of Ireland", AltSpellings: []string{"Éire"}},
	{Alpha2: "IS", Alpha3: "ISL", Name: "Iceland", OfficialName: "Iceland", AltSpellings: []string{"Ísland"}},
	{Alpha2: "IT", Alpha3: "ITA", Name: "Italy", OfficialName: "Italian Republic", AltSpellings: []string{"Italia"}},
	{Alpha2: "LT", Alpha3: "LTU", Name: "Lithuania", OfficialName: "Republic of Lithuania", AltSpellings: []string{"Lietuva"}},
	{Alpha2: "LU", Alpha3: "LUX", Name: "Luxembourg", OfficialName: "Grand Duchy of Luxembourg"},
	{Alpha2: "LV", Alpha3: "LVA", Name: "Latvia", OfficialName: "Republic of Latvia", AltSpellings: []string{"Latvija"}},
	{Alpha2: "NL", Alpha3: "NLD", Name: "Netherlands", OfficialName: "Kingdom of the Netherlands", AltSpellings: []string{"Nederland", "Holland"}},
	{Alpha2: "NO", Alpha3: "NOR", Name: "Norway", OfficialName: "Kingdom of Norway", AltSpellings: []string{"Norge"}},
	{Alpha2: "PL", Alpha3: "POL", Name: "Poland", OfficialName: "Republic of Poland", AltSpellings: []string{"Polska"}},
	{Alpha2: "PT", Alpha3: "PRT", Name: "Portugal", OfficialName: "Portuguese Republic"},
	{Alpha2: "RO", Alpha3: "ROU", Name: "Romania", OfficialName: "Romania", AltSpellings: []string{"România"}},
	{Alpha2: "RS", Alpha3: "SRB", Name: "Serbia", OfficialName: "Republic of Serbia", AltSpellings: []string{"Srbija"}},
	{Alpha2: "RU", Alpha3: "RUS", Name: "Russia", OfficialName: "Russian Federation"},
	{Alpha2: "SE", Alpha3: "SWE", Name: "Sweden", OfficialName: "Kingdom of Sweden", AltSpellings: []string{"Sverige"}},
	{Alpha2: "SI", Alpha3: "SVN", Name: "Slovenia", OfficialName: "Republic of Slovenia", AltSpellings: []string{"Slovenija"}},
	{Alpha2: "SK", Alpha3: "SVK", Name: "Slovakia", OfficialName: "Slovak Republic", AltSpellings: []string{"Slovensko"}},
	{Alpha2: "TR", Alpha3: "TUR", Name: "Türkiye", OfficialName: "Republic of Türkiye", AltSpellings: []string{"Turkey"}},
	{Alpha2: "UA", Alpha3: "UKR", Name: "Ukraine", OfficialName: "Ukraine", AltSpellings: []string{"Ukraina"}},
}
