package stilt

// Column groups for the time-series endpoint. Every group carries isodate.
var columnGroups = map[string][]string{
	"default": {
		"isodate",
		"co2.stilt", "co2.bio", "co2.fuel", "co2.cement", "co2.background",
	},
	"co2": {
		"isodate",
		"co2.stilt", "co2.bio", "co2.bio.gee", "co2.bio.resp",
		"co2.fuel", "co2.fuel.coal", "co2.fuel.oil", "co2.fuel.gas", "co2.fuel.bio", "co2.fuel.waste",
		"co2.energy", "co2.transport", "co2.industry", "co2.residential", "co2.other_categories",
		"co2.cement", "co2.background",
	},
	"co": {
		"isodate",
		"co.stilt", "co.fuel", "co.fuel.coal", "co.fuel.oil", "co.fuel.gas", "co.fuel.bio", "co.fuel.waste",
		"co.energy", "co.transport", "co.industry", "co.residential", "co.other_categories",
		"co.cement", "co.background",
	},
	"ch4": {
		"isodate",
		"ch4.stilt", "ch4.anthropogenic", "ch4.agriculture", "ch4.waste", "ch4.energy", "ch4.other_categories",
		"ch4.natural", "ch4.wetlands", "ch4.soil_uptake", "ch4.wildfire", "ch4.other_natural",
		"ch4.background",
	},
	"rn": {
		"isodate",
		"rn", "rn.era", "rn.noah",
	},
	"wind": {
		"isodate",
		"wind.dir", "wind.u", "wind.v",
	},
	"latlon": {
		"isodate",
		"latstart", "lonstart",
	},
}

func init() {
	// "all" is the ordered union of the named groups.
	seen := map[string]bool{}
	var all []string
	for _, group := range []string{"default", "co2", "co", "ch4", "rn", "wind", "latlon"} {
		for _, col := range columnGroups[group] {
			if !seen[col] {
				seen[col] = true
				all = append(all, col)
			}
		}
	}
	columnGroups["all"] = all
}

// rawColumns is the vocabulary accepted by the raw result endpoint. The
// user's list is intersected with it case-sensitively.
var rawColumns = buildRawVocabulary()

func buildRawVocabulary() map[string]bool {
	vocab := map[string]bool{
		"isodate": true,
		"latstart": true, "lonstart": true, "aglstart": true, "zi": true,
		"wind.dir": true, "wind.u": true, "wind.v": true,
		"rn": true, "rn.era": true, "rn.noah": true,
	}

	// Tracer fields follow a species x component product.
	species := []string{"co2", "co", "ch4"}
	components := []string{
		"stilt", "background", "bio", "bio.gee", "bio.resp",
		"fuel", "fuel.coal", "fuel.oil", "fuel.gas", "fuel.bio", "fuel.waste",
		"cement", "energy", "transport", "industry", "residential",
		"other_categories",
	}
	for _, sp := range species {
		for _, comp := range components {
			vocab[sp+"."+comp] = true
		}
	}

	// Per-sector fuel splits as emitted by the model.
	sectors := []string{
		"1a1a", "1a1bcr", "1a2+6cd", "1a3a", "1a3b", "1a3ce", "1a3d+1c2",
		"1a4", "1b2abc", "2a", "2befg+3", "2c", "4", "7a",
	}
	fuels := []string{"coal", "oil", "gas", "bio", "waste"}
	for _, sp := range species {
		for _, sector := range sectors {
			vocab[sp+"."+sector] = true
			for _, fuel := range fuels {
				vocab[sp+"."+sector+"."+fuel] = true
			}
		}
	}

	for _, comp := range []string{
		"anthropogenic", "agriculture", "waste", "wetlands",
		"soil_uptake", "wildfire", "other_natural",
	} {
		vocab["ch4."+comp] = true
	}

	return vocab
}

// ColumnGroup returns the ordered column list for a group keyword. Unknown
// keywords fall back to the default group; ok reports whether the keyword
// was recognised.
func ColumnGroup(keyword string) (cols []string, ok bool) {
	if keyword == "" {
		keyword = "default"
	}
	group, found := columnGroups[keyword]
	if !found {
		group = columnGroups["default"]
	}
	return append([]string(nil), group...), found
}

// IntersectRaw filters the user's column list against the raw vocabulary
// (case-sensitive) and force-adds isodate.
func IntersectRaw(columns []string) []string {
	out := []string{"isodate"}
	for _, col := range columns {
		if col == "isodate" {
			continue
		}
		if rawColumns[col] {
			out = append(out, col)
		}
	}
	return out
}
