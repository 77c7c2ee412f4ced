package markup

import (
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"param": true, "source": true, "track": true, "wbr": true,
}

// Serialize renders n and its descendants as XHTML. Void elements are
// self-closed, text and attribute values are escaped, non-ASCII runes are
// written as numeric character references, and anything that cannot be
// expressed in XML (comments, doctypes, invalid names or characters,
// namespaced and xmlns attributes) is dropped.
func Serialize(n *html.Node) string {
	var sb strings.Builder
	writeNode(&sb, n)
	return sb.String()
}

// SerializeChildren renders the children of n, omitting n itself.
func SerializeChildren(n *html.Node) string {
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeNode(&sb, c)
	}
	return sb.String()
}

func writeNode(sb *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		writeEscaped(sb, n.Data, false)
	case html.DocumentNode:
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			writeNode(sb, c)
		}
	case html.ElementNode:
		writeElement(sb, n)
	}
}

func writeElement(sb *strings.Builder, n *html.Node) {
	name := n.Data
	if !validName(name) {
		// Keep the content of elements XML cannot name.
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			writeNode(sb, c)
		}
		return
	}

	sb.WriteByte('<')
	sb.WriteString(name)
	seen := make(map[string]bool, len(n.Attr))
	for _, a := range n.Attr {
		key := a.Key
		if a.Namespace != "" || key == "xmlns" || !validName(key) || seen[key] {
			continue
		}
		seen[key] = true
		sb.WriteByte(' ')
		sb.WriteString(key)
		sb.WriteString(`="`)
		writeEscaped(sb, a.Val, true)
		sb.WriteByte('"')
	}

	if voidElements[name] {
		sb.WriteString("/>")
		return
	}
	sb.WriteByte('>')
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeNode(sb, c)
	}
	sb.WriteString("</")
	sb.WriteString(name)
	sb.WriteByte('>')
}

func writeEscaped(sb *strings.Builder, s string, attr bool) {
	for _, r := range s {
		switch {
		case r == '&':
			sb.WriteString("&amp;")
		case r == '<':
			sb.WriteString("&lt;")
		case r == '>':
			sb.WriteString("&gt;")
		case r == '"' && attr:
			sb.WriteString("&quot;")
		case !validChar(r):
		case r > 0x7e || (attr && (r == '\n' || r == '\r' || r == '\t')):
			sb.WriteString("&#")
			sb.WriteString(strconv.Itoa(int(r)))
			sb.WriteByte(';')
		default:
			sb.WriteRune(r)
		}
	}
}

// validChar reports whether r is allowed in an XML 1.0 document.
func validChar(r rune) bool {
	switch {
	case r == 0x9 || r == 0xA || r == 0xD:
		return true
	case r >= 0x20 && r <= 0xD7FF:
		return true
	case r >= 0xE000 && r <= 0xFFFD:
		return true
	case r >= 0x10000 && r <= 0x10FFFF:
		return true
	}
	return false
}

// validName reports whether s is an unprefixed ASCII XML name.
func validName(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
		case i > 0 && (r == '-' || r == '.' || (r >= '0' && r <= '9')):
		default:
			return false
		}
	}
	return true
}
