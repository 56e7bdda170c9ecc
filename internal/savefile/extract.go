package savefile

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/JonMunkholm/simroster/internal/catalog"
	"github.com/JonMunkholm/simroster/internal/roster"
)

// Element names inside a person node.
const (
	tagIsDead     = "IsDead"
	tagID         = "ID"
	tagFirstName  = "FirstName"
	tagFamilyName = "FamilyName"
	tagGender     = "Gender"
	tagBirthdate  = "Birthdate"
	tagDeathDate  = "DeathDate"
	tagYear       = "year"
	tagSeason     = "season"
	tagDay        = "day"
	tagLikes      = "Likes"
	tagHates      = "Hates"
	tagItem       = "int"
)

const itemSeparator = ", "

// IsDeceased reports whether the person's IsDead leaf reads exactly "true".
// Any other value, padded or differently cased ones included, means alive.
func IsDeceased(person *Element) bool {
	return person.Find(tagIsDead).Text() == "true"
}

// Extract converts one person node into a record. Missing leaves become nil
// fields; the only per-record failure is a missing or non-numeric ID.
func Extract(person *Element, currentYear int, cat catalog.Catalog) (roster.Record, error) {
	rec, _, err := extract(person, currentYear, cat)
	return rec, err
}

// extract is Extract plus the non-fatal anomalies found along the way.
// Returned issues carry no Index; the caller assigns it.
func extract(person *Element, currentYear int, cat catalog.Catalog) (roster.Record, []Issue, error) {
	var issues []Issue

	idText := leafText(person.Find(tagID))
	id, err := strconv.Atoi(idText)
	if err != nil {
		if idText == "" {
			return roster.Record{}, nil, ErrMissingID
		}
		return roster.Record{}, nil, fmt.Errorf("%w: %q", ErrMissingID, idText)
	}

	rec := roster.Record{
		ID:         id,
		FirstName:  leafString(person.Find(tagFirstName)),
		FamilyName: leafString(person.Find(tagFamilyName)),
		Gender:     leafString(person.Find(tagGender)),
	}

	if birth := person.Find(tagBirthdate); birth != nil {
		rec.BirthYear = leafInt(birth.Find(tagYear))
		season := leafInt(birth.Find(tagSeason))
		day := leafInt(birth.Find(tagDay))
		if season != nil && day != nil {
			rec.BirthSeason, rec.BirthDay = season, day
		} else if season != nil || day != nil {
			issues = append(issues, Issue{
				Code:    IssuePartialBirthDate,
				Message: "birth date has only one of season and day",
			})
		}
	}

	if death := person.Find(tagDeathDate); death != nil {
		rec.DeathYear = leafInt(death.Find(tagYear))
		rec.DeathSeason = leafInt(death.Find(tagSeason))
		rec.DeathDay = leafInt(death.Find(tagDay))
	}

	if rec.BirthYear != nil {
		rec.Age = roster.IntPtr(currentYear - *rec.BirthYear)
		if rec.DeathYear != nil {
			rec.DeathAge = roster.IntPtr(*rec.DeathYear - *rec.BirthYear)
		}
	}

	rec.LikedItems = resolveItems(person.Find(tagLikes), cat)
	rec.DislikedItems = resolveItems(person.Find(tagHates), cat)

	return rec, issues, nil
}

// resolveItems maps every item reference under list to its catalog name.
func resolveItems(list *Element, cat catalog.Catalog) string {
	items := list.FindAll(tagItem)
	if len(items) == 0 {
		return ""
	}
	names := make([]string, len(items))
	for i, item := range items {
		names[i] = cat.Resolve(item.Text())
	}
	return strings.Join(names, itemSeparator)
}

func leafText(e *Element) string {
	return strings.TrimSpace(e.Text())
}

func leafString(e *Element) *string {
	if s := leafText(e); s != "" {
		return &s
	}
	return nil
}

func leafInt(e *Element) *int {
	n, err := strconv.Atoi(leafText(e))
	if err != nil {
		return nil
	}
	return &n
}
