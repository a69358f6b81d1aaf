package publish

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/fivethreefive/legisync/internal/record"
)

// MaxTitleLength is the longest title the target accepts, in characters.
const MaxTitleLength = 300

// Renderer turns a record into post text.
type Renderer interface {
	Title(rec record.Record) string
	Body(rec record.Record) string
}

// PlainRenderer writes a minimal markdown post.
type PlainRenderer struct{}

// Title implements Renderer.
func (PlainRenderer) Title(rec record.Record) string {
	switch r := rec.(type) {
	case *record.Bill:
		return fmt.Sprintf("[%s]: %s", strings.ToUpper(r.Type), r.Title)
	case *record.Vote:
		subject := r.BillTitle
		if subject == "" {
			subject = r.Description
		}
		return fmt.Sprintf("%s Vote: %s; %s", capitalize(r.Chamber), truncate(subject, 200), truncate(r.Question, 50))
	default:
		return rec.Key().String()
	}
}

// Body implements Renderer.
func (PlainRenderer) Body(rec record.Record) string {
	var b strings.Builder
	switch r := rec.(type) {
	case *record.Bill:
		fmt.Fprintf(&b, "**%s** (%s)\n\n", r.Name, r.Status)
		fmt.Fprintf(&b, "Introduced %s. [Official text](%s)\n\n", r.Introduced.Format("January 2, 2006"), r.OfficialLink)
		if r.Summary != "" {
			fmt.Fprintf(&b, "%s\n\n", r.Summary)
		}
		fmt.Fprintf(&b, "**Subjects:** %s\n\n", strings.Join(r.Subjects, ", "))
		if len(r.Timeline) > 0 {
			b.WriteString("###Timeline\n\n")
			for _, e := range r.Timeline {
				fmt.Fprintf(&b, "* %s: %s\n", e.At.Format("2006-01-02"), e.Action)
			}
			b.WriteString("\n")
		}
		if len(r.Votes) > 0 {
			b.WriteString("###Votes\n\n")
			for _, v := range r.Votes {
				fmt.Fprintf(&b, "* %s\n", v.ID)
			}
		}
	case *record.Vote:
		fmt.Fprintf(&b, "**%s**: %s\n\n", r.Question, r.Result)
		parties := make([]string, 0, len(r.Tallies))
		for party := range r.Tallies {
			parties = append(parties, party)
		}
		sort.Strings(parties)
		b.WriteString("|Party|Yes|No|Present|Not Voting|\n|:--|--:|--:|--:|--:|\n")
		for _, party := range parties {
			t := r.Tallies[party]
			fmt.Fprintf(&b, "|%s|%d|%d|%d|%d|\n", capitalize(party), t.Yes, t.No, t.Present, t.NotVoting)
		}
		total := r.Total()
		fmt.Fprintf(&b, "|Total|%d|%d|%d|%d|\n", total.Yes, total.No, total.Present, total.NotVoting)
	}
	return b.String()
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// truncate shortens s to n characters, ending in "..." when cut.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n-3]) + "..."
}
