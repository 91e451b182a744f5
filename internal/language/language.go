package language

import (
	"strings"

	xlang "golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// spokenNames maps language names people type into config files onto ISO 639-1.
var spokenNames = map[string]string{
	"english":    "en",
	"spanish":    "es",
	"español":    "es",
	"french":     "fr",
	"français":   "fr",
	"german":     "de",
	"deutsch":    "de",
	"italian":    "it",
	"italiano":   "it",
	"portuguese": "pt",
	"português":  "pt",
	"japanese":   "ja",
	"korean":     "ko",
	"chinese":    "zh",
	"mandarin":   "zh",
	"russian":    "ru",
	"dutch":      "nl",
	"nederlands": "nl",
	"polish":     "pl",
	"swedish":    "sv",
}

// bibliographic holds ISO 639-2/B codes, which the CLDR tables do not parse.
var bibliographic = map[string]string{
	"fre": "fr",
	"ger": "de",
	"dut": "nl",
	"chi": "zh",
	"cze": "cs",
	"gre": "el",
}

func normalize(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}

func base(code string) (xlang.Base, bool) {
	if iso, ok := spokenNames[code]; ok {
		code = iso
	} else if iso, ok := bibliographic[code]; ok {
		code = iso
	}
	b, err := xlang.ParseBase(code)
	if err != nil {
		return xlang.Base{}, false
	}
	return b, true
}

// ToISO2 converts a language code or English/native name to ISO 639-1.
// An unrecognized two-letter input passes through; anything else
// unrecognized yields "".
func ToISO2(code string) string {
	code = normalize(code)
	if code == "" {
		return ""
	}
	if b, ok := base(code); ok {
		if s := b.String(); len(s) == 2 {
			return s
		}
	}
	if len(code) == 2 {
		return code
	}
	return ""
}

// DisplayName returns the English name for a language code, "Unknown" for
// blank input, or the upper-cased input when the code is not recognized.
func DisplayName(code string) string {
	code = normalize(code)
	if code == "" {
		return "Unknown"
	}
	if b, ok := base(code); ok {
		if name := display.English.Languages().Name(b); name != "" {
			return name
		}
	}
	return strings.ToUpper(code)
}
