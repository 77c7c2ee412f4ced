package epub

import "regexp"

// namedEntities maps HTML named entities that XML does not define to their
// numeric character references.
var namedEntities = map[string]string{
	"nbsp": "&#160;", "mdash": "&#8212;", "ndash": "&#8211;", "hellip": "&#8230;",
	"lsquo": "&#8216;", "rsquo": "&#8217;", "ldquo": "&#8220;", "rdquo": "&#8221;",
	"sbquo": "&#8218;", "bdquo": "&#8222;", "prime": "&#8242;", "Prime": "&#8243;",
	"copy": "&#169;", "reg": "&#174;", "trade": "&#8482;",
	"bull": "&#8226;", "middot": "&#183;", "laquo": "&#171;", "raquo": "&#187;",
	"lsaquo": "&#8249;", "rsaquo": "&#8250;",
	"deg": "&#176;", "times": "&#215;", "divide": "&#247;", "plusmn": "&#177;",
	"frac12": "&#189;", "frac14": "&#188;", "frac34": "&#190;",
	"para": "&#182;", "sect": "&#167;", "dagger": "&#8224;", "Dagger": "&#8225;",
	"euro": "&#8364;", "pound": "&#163;", "yen": "&#165;", "cent": "&#162;",
	"iexcl": "&#161;", "iquest": "&#191;", "shy": "&#173;", "zwj": "&#8205;", "zwnj": "&#8204;",
	"thinsp": "&#8201;", "ensp": "&#8194;", "emsp": "&#8195;",
	"eacute": "&#233;", "egrave": "&#232;", "ecirc": "&#234;", "euml": "&#235;",
	"aacute": "&#225;", "agrave": "&#224;", "acirc": "&#226;", "auml": "&#228;",
	"iacute": "&#237;", "igrave": "&#236;", "icirc": "&#238;", "iuml": "&#239;",
	"oacute": "&#243;", "ograve": "&#242;", "ocirc": "&#244;", "ouml": "&#246;",
	"uacute": "&#250;", "ugrave": "&#249;", "ucirc": "&#251;", "uuml": "&#252;",
	"ntilde": "&#241;", "ccedil": "&#231;", "szlig": "&#223;",
	"Eacute": "&#201;", "Auml": "&#196;", "Ouml": "&#214;", "Uuml": "&#220;",
	"larr": "&#8592;", "rarr": "&#8594;", "uarr": "&#8593;", "darr": "&#8595;",
}

var entityPattern = regexp.MustCompile(`&([A-Za-z][A-Za-z0-9]*);`)

// NormalizeEntities replaces known named entities with numeric references.
// Unknown names and the five XML entities are left alone.
func NormalizeEntities(s string) string {
	return entityPattern.ReplaceAllStringFunc(s, func(m string) string {
		if ref, ok := namedEntities[m[1:len(m)-1]]; ok {
			return ref
		}
		return m
	})
}
