package nhl

import "strings"

// teamCodes maps franchise names to their current abbreviation. Stat sources
// disagree on whether the team column carries a name or a code, so lookups
// accept either.
var teamCodes = map[string]string{
	"ANAHEIM DUCKS":         "ANA",
	"BOSTON BRUINS":         "BOS",
	"BUFFALO SABRES":        "BUF",
	"CALGARY FLAMES":        "CGY",
	"CAROLINA HURRICANES":   "CAR",
	"CHICAGO BLACKHAWKS":    "CHI",
	"COLORADO AVALANCHE":    "COL",
	"COLUMBUS BLUE JACKETS": "CBJ",
	"DALLAS STARS":          "DAL",
	"DETROIT RED WINGS":     "DET",
	"EDMONTON OILERS":       "EDM",
	"FLORIDA PANTHERS":      "FLA",
	"LOS ANGELES KINGS":     "LAK",
	"MINNESOTA WILD":        "MIN",
	"MONTREAL CANADIENS":    "MTL",
	"NASHVILLE PREDATORS":   "NSH",
	"NEW JERSEY DEVILS":     "NJD",
	"NEW YORK ISLANDERS":    "NYI",
	"NEW YORK RANGERS":      "NYR",
	"OTTAWA SENATORS":       "OTT",
	"PHILADELPHIA FLYERS":   "PHI",
	"PITTSBURGH PENGUINS":   "PIT",
	"SAN JOSE SHARKS":       "SJS",
	"SEATTLE KRAKEN":        "SEA",
	"ST LOUIS BLUES":        "STL",
	"ST. LOUIS BLUES":       "STL",
	"TAMPA BAY LIGHTNING":   "TBL",
	"TORONTO MAPLE LEAFS":   "TOR",
	"UTAH HOCKEY CLUB":      "UTA",
	"UTAH MAMMOTH":          "UTA",
	"ARIZONA COYOTES":       "UTA",
	"VANCOUVER CANUCKS":     "VAN",
	"VEGAS GOLDEN KNIGHTS":  "VGK",
	"WASHINGTON CAPITALS":   "WSH",
	"WINNIPEG JETS":         "WPG",
}

// TeamCode resolves a raw team identifier to its abbreviation. Values that
// already look like a code pass through upper-cased; unknown names come back
// unchanged so joins degrade instead of dropping the row.
func TeamCode(raw string) string {
	t := strings.ToUpper(strings.TrimSpace(raw))
	if len(t) <= 3 {
		return t
	}
	if code, ok := teamCodes[t]; ok {
		return code
	}
	return t
}
