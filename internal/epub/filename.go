package epub

import (
	"regexp"
	"strings"
)

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// Filename derives the download name for an article title:
// "Tom & Jerry: A <Tale>" becomes "tom_jerry_a_tale.epub".
func Filename(title string) string {
	name := nonAlnum.ReplaceAllString(strings.ToLower(title), "_")
	name = strings.Trim(name, "_")
	if name == "" {
		name = "article"
	}
	return name + ".epub"
}
