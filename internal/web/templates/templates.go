// Package templates renders the roster page and its HTMX partials.
// Components are written in roster.templ; roster_templ.go is generated from
// it with `templ generate`.
package templates

import (
	"fmt"
	"strconv"

	"github.com/JonMunkholm/simroster/internal/core"
)

func optionalInt(p *int) string {
	if p == nil {
		return ""
	}
	return strconv.Itoa(*p)
}

// summary is the load line shown after the file name.
func summary(state core.ViewState) string {
	l := state.Load
	s := fmt.Sprintf(": year %d, %d of %d records shown, %d deceased skipped",
		l.CurrentYear, len(state.Rows), state.MasterTotal, l.Deceased)
	if n := len(l.Issues); n > 0 {
		s += fmt.Sprintf(", %d issues", n)
	}
	return s
}
