package rowdiff

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var upper = cases.Upper(language.Und)

// TitleField turns a record key into a display label: "kick_off_time" ->
// "Kick Off Time". Only the first letter of each word changes case.
func TitleField(name string) string {
	s := strings.ReplaceAll(name, "_", " ")

	var b strings.Builder
	b.Grow(len(s))
	atWordStart := true
	for len(s) > 0 {
		r, size := utf8.DecodeRuneInString(s)
		switch {
		case unicode.IsSpace(r):
			atWordStart = true
			b.WriteRune(r)
		case atWordStart:
			atWordStart = false
			b.WriteString(upper.String(s[:size]))
		default:
			b.WriteRune(r)
		}
		s = s[size:]
	}
	return b.String()
}

// RenderNew lists every non-empty field of rec, one per line.
func RenderNew(rec RowRecord) string {
	lines := make([]string, 0, len(rec.Fields))
	for _, f := range rec.Fields {
		if f.Value == "" {
			continue
		}
		lines = append(lines, "**"+TitleField(f.Name)+":** "+f.Value)
	}
	return strings.Join(lines, "\n")
}

// RenderChanged lists each field whose value differs between prev and cur as
// "before → after". Fields are visited in prev's order, then fields only cur
// has. When nothing differs the full current row is rendered instead.
func RenderChanged(prev, cur RowRecord) string {
	pm, cm := prev.Map(), cur.Map()

	names := make([]string, 0, len(prev.Fields)+len(cur.Fields))
	seen := make(map[string]bool, cap(names))
	for _, f := range prev.Fields {
		if !seen[f.Name] {
			seen[f.Name] = true
			names = append(names, f.Name)
		}
	}
	for _, f := range cur.Fields {
		if !seen[f.Name] {
			seen[f.Name] = true
			names = append(names, f.Name)
		}
	}

	var lines []string
	for _, name := range names {
		before, after := pm[name], cm[name]
		if before == after {
			continue
		}
		line := "**" + TitleField(name) + ":** "
		if before != "" {
			line += before + " "
		}
		lines = append(lines, line+"→ "+after)
	}

	if len(lines) == 0 {
		return RenderNew(cur)
	}
	return strings.Join(lines, "\n")
}

// Render renders ch with the full-row or before/after layout.
func Render(ch Change) string {
	if ch.Kind == KindChanged && ch.Previous != nil {
		return RenderChanged(*ch.Previous, ch.Current)
	}
	return RenderNew(ch.Current)
}

// NotificationInput is everything one notification message is built from.
type NotificationInput struct {
	TableHeader   string
	Kind          Kind
	Body          string
	MentionUserID string
	PageURL       string
}

// RenderNotification prefixes a rendered row with the table it belongs to,
// then appends the optional mention and page link.
func RenderNotification(in NotificationInput) string {
	var b strings.Builder

	b.WriteString("🎟️ **")
	b.WriteString(in.TableHeader)
	b.WriteString("** · ")
	if in.Kind == KindChanged {
		b.WriteString("On-sale entry updated")
	} else {
		b.WriteString("New on-sale entry")
	}
	if in.MentionUserID != "" {
		b.WriteString(" <@")
		b.WriteString(in.MentionUserID)
		b.WriteString(">")
	}

	if in.Body != "" {
		b.WriteString("\n")
		b.WriteString(in.Body)
	}
	if in.PageURL != "" {
		b.WriteString("\n\n")
		b.WriteString(in.PageURL)
	}
	return b.String()
}
