// Package vcard converts between vCard 3.0 text and contacts.
package vcard

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/hweber/secondbrain/modules/people/model"
)

// ErrInvalidVCard is returned for input that is not a vCard
var ErrInvalidVCard = errors.New("invalid vCard format")

var houseNrRe = regexp.MustCompile(`^(.+?)\s+(\d+\w*)$`)

// Parse converts a vCard 3.0 string into a Person. Only the first TEL and
// EMAIL lines are kept.
func Parse(input string) (*model.Person, error) {
	if input == "" || !strings.Contains(input, "BEGIN:VCARD") {
		return nil, ErrInvalidVCard
	}

	person := &model.Person{ImportantDates: []model.ImportantDate{}}

	for _, line := range strings.Split(strings.TrimSpace(input), "\n") {
		line = strings.TrimSpace(line)

		switch {
		case strings.HasPrefix(line, "N:") || strings.HasPrefix(line, "N;"):
			parseName(line, person)

		case strings.HasPrefix(line, "TEL:") || strings.HasPrefix(line, "TEL;"):
			if person.Phone == nil {
				if v := lineValue(line); v != "" {
					person.Phone = &v
				}
			}

		case strings.HasPrefix(line, "EMAIL:") || strings.HasPrefix(line, "EMAIL;"):
			if person.Email == nil {
				if v := lineValue(line); v != "" {
					person.Email = &v
				}
			}

		case strings.HasPrefix(line, "ADR:") || strings.HasPrefix(line, "ADR;"):
			parseAddress(line, person)

		case strings.HasPrefix(line, "BDAY:") || strings.HasPrefix(line, "BDAY;"):
			if v := lineValue(line); v != "" {
				person.ImportantDates = append(person.ImportantDates, model.ImportantDate{Type: "birthday", Date: v})
			}

		case strings.HasPrefix(line, "ANNIVERSARY:"):
			if v := lineValue(line); v != "" {
				person.ImportantDates = append(person.ImportantDates, model.ImportantDate{Type: "anniversary", Date: v})
			}
		}
	}

	person.Name = person.FullName()
	return person, nil
}

// parseName splits N: last;first;middle;prefix;suffix
func parseName(line string, person *model.Person) {
	parts := strings.Split(lineValue(line), ";")

	if len(parts) >= 1 {
		person.LastName = parts[0]
	}
	if len(parts) >= 2 {
		person.FirstName = parts[1]
	}
	if len(parts) >= 3 && parts[2] != "" {
		middle := parts[2]
		person.MiddleName = &middle
	}
}

// parseAddress splits ADR: pobox;ext;street;city;region;zip;country and
// pulls a trailing house number off the street.
func parseAddress(line string, person *model.Person) {
	parts := strings.Split(lineValue(line), ";")

	if len(parts) >= 3 && parts[2] != "" {
		street, houseNr := splitStreet(parts[2])
		if street != "" {
			person.Street = &street
		}
		if houseNr != "" {
			person.HouseNr = &houseNr
		}
	}
	if len(parts) >= 4 && parts[3] != "" {
		city := parts[3]
		person.City = &city
	}
	if len(parts) >= 6 && parts[5] != "" {
		zip := parts[5]
		person.Zip = &zip
	}
	if len(parts) >= 7 && parts[6] != "" {
		country := parts[6]
		person.Country = &country
	}
}

// splitStreet separates "Musterstraße 12a" into street and house number
func splitStreet(full string) (string, string) {
	if m := houseNrRe.FindStringSubmatch(full); m != nil {
		return m[1], m[2]
	}
	return full, ""
}

func lineValue(line string) string {
	if idx := strings.Index(line, ":"); idx >= 0 {
		return strings.TrimSpace(line[idx+1:])
	}
	return ""
}

// Serialize converts a Person into a vCard 3.0 string. The provider picks
// which stored UID travels in the UID line.
func Serialize(person *model.Person, provider string) string {
	middle := ""
	if person.MiddleName != nil {
		middle = *person.MiddleName
	}

	lines := []string{
		"BEGIN:VCARD",
		"VERSION:3.0",
		"FN:" + person.FullName(),
		fmt.Sprintf("N:%s;%s;%s;;", person.LastName, person.FirstName, middle),
	}

	if person.Phone != nil && *person.Phone != "" {
		lines = append(lines, "TEL;TYPE=CELL:"+*person.Phone)
	}
	if person.Email != nil && *person.Email != "" {
		lines = append(lines, "EMAIL;TYPE=HOME:"+*person.Email)
	}

	if person.Street != nil || person.City != nil || person.Zip != nil || person.Country != nil {
		street := strings.TrimSpace(deref(person.Street) + " " + deref(person.HouseNr))
		lines = append(lines, fmt.Sprintf("ADR;TYPE=HOME:;;%s;%s;;%s;%s",
			street, deref(person.City), deref(person.Zip), deref(person.Country)))
	}

	for _, date := range person.ImportantDates {
		switch date.Type {
		case "birthday":
			lines = append(lines, "BDAY:"+date.Date)
		case "anniversary":
			lines = append(lines, "ANNIVERSARY:"+date.Date)
		}
	}

	if uid := person.ProviderUID(provider); uid != nil && *uid != "" {
		lines = append(lines, "UID:"+*uid)
	}

	lines = append(lines, "END:VCARD")
	return strings.Join(lines, "\n")
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
