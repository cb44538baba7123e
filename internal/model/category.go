package model

import (
	"borkacal/internal/errdef"
)

// Category is the closed set of event kinds the club schedules.
type Category string

const (
	CategoryOpenGameNight Category = "open_game_night"
	CategoryMemberNight   Category = "member_night"
	CategoryTournament    Category = "tournament"
	CategorySpecialEvent  Category = "special_event"
)

// Categories lists every Category in display order.
var Categories = []Category{
	CategoryOpenGameNight,
	CategoryMemberNight,
	CategoryTournament,
	CategorySpecialEvent,
}

// ParseCategory accepts only the four known slugs.
func ParseCategory(s string) (Category, error) {
	switch c := Category(s); c {
	case CategoryOpenGameNight, CategoryMemberNight, CategoryTournament, CategorySpecialEvent:
		return c, nil
	}
	return "", errdef.NewInvalidInput("model: unknown category %q", s)
}

// Color is the brand colour used for the category's event chips.
func (c Category) Color() string {
	switch c {
	case CategoryOpenGameNight:
		return "#E63946"
	case CategoryMemberNight:
		return "#457B9D"
	case CategoryTournament:
		return "#2A9D8F"
	case CategorySpecialEvent:
		return "#F4A261"
	}
	panic("model: color requested for unknown category " + string(c))
}

// DisplayName is the Swedish label shown to members.
func (c Category) DisplayName() string {
	switch c {
	case CategoryOpenGameNight:
		return "Öppen spelkväll"
	case CategoryMemberNight:
		return "Medlemskväll"
	case CategoryTournament:
		return "Turnering"
	case CategorySpecialEvent:
		return "Specialevent"
	}
	panic("model: display name requested for unknown category " + string(c))
}
