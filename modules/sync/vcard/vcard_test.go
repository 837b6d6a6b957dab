package vcard

import (
	"strings"
	"testing"

	"github.com/hweber/secondbrain/modules/people/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleVCard = `BEGIN:VCARD
VERSION:3.0
FN:Dr. Max Peter Mustermann
N:Mustermann;Max;Peter;Dr.;
TEL;TYPE=CELL:+49 170 1234567
EMAIL;TYPE=HOME:max@example.com
ADR;TYPE=HOME:;;Musterstraße 12;Berlin;;10115;Germany
BDAY:1990-05-15
UID:ABC-123
END:VCARD`

func TestParse(t *testing.T) {
	t.Run("parses full card", func(t *testing.T) {
		person, err := Parse(sampleVCard)
		require.NoError(t, err)

		assert.Equal(t, "Max", person.FirstName)
		assert.Equal(t, "Mustermann", person.LastName)
		require.NotNil(t, person.MiddleName)
		assert.Equal(t, "Peter", *person.MiddleName)
		require.NotNil(t, person.Phone)
		assert.Equal(t, "+49 170 1234567", *person.Phone)
		require.NotNil(t, person.Email)
		assert.Equal(t, "max@example.com", *person.Email)
		require.NotNil(t, person.Street)
		assert.Equal(t, "Musterstraße", *person.Street)
		require.NotNil(t, person.HouseNr)
		assert.Equal(t, "12", *person.HouseNr)
		require.NotNil(t, person.City)
		assert.Equal(t, "Berlin", *person.City)
		require.NotNil(t, person.Zip)
		assert.Equal(t, "10115", *person.Zip)
		require.NotNil(t, person.Country)
		assert.Equal(t, "Germany", *person.Country)
		require.Len(t, person.ImportantDates, 1)
		assert.Equal(t, "birthday", person.ImportantDates[0].Type)
		assert.Equal(t, "1990-05-15", person.ImportantDates[0].Date)
	})

	t.Run("house number with letter suffix", func(t *testing.T) {
		card := "BEGIN:VCARD\nVERSION:3.0\nN:Test;Tina;;;\nADR:;;Hauptstraße 7b;Köln;;50667;Germany\nEND:VCARD"
		person, err := Parse(card)
		require.NoError(t, err)
		assert.Equal(t, "Hauptstraße", *person.Street)
		assert.Equal(t, "7b", *person.HouseNr)
	})

	t.Run("street without house number", func(t *testing.T) {
		card := "BEGIN:VCARD\nVERSION:3.0\nN:Test;Tina;;;\nADR:;;Am Markt;Bremen;;28195;Germany\nEND:VCARD"
		person, err := Parse(card)
		require.NoError(t, err)
		assert.Equal(t, "Am Markt", *person.Street)
		assert.Nil(t, person.HouseNr)
	})

	t.Run("only first phone and email kept", func(t *testing.T) {
		card := "BEGIN:VCARD\nVERSION:3.0\nN:Test;Tina;;;\nTEL:111\nTEL:222\nEMAIL:a@b.c\nEMAIL:d@e.f\nEND:VCARD"
		person, err := Parse(card)
		require.NoError(t, err)
		assert.Equal(t, "111", *person.Phone)
		assert.Equal(t, "a@b.c", *person.Email)
	})

	t.Run("rejects empty input", func(t *testing.T) {
		_, err := Parse("")
		assert.ErrorIs(t, err, ErrInvalidVCard)
	})

	t.Run("rejects non-vcard input", func(t *testing.T) {
		_, err := Parse("just some text")
		assert.ErrorIs(t, err, ErrInvalidVCard)
	})
}

func TestSerialize(t *testing.T) {
	phone := "+49 30 555"
	email := "anna@example.com"
	uid := "uid-42"

	person := &model.Person{
		FirstName: "Anna",
		LastName:  "Schmidt",
		Phone:     &phone,
		Email:     &email,
		ImportantDates: []model.ImportantDate{
			{Type: "anniversary", Date: "2010-09-01"},
		},
		NextcloudUID: &uid,
	}

	out := Serialize(person, "nextcloud")

	assert.True(t, strings.HasPrefix(out, "BEGIN:VCARD"))
	assert.Contains(t, out, "VERSION:3.0")
	assert.Contains(t, out, "FN:Anna Schmidt")
	assert.Contains(t, out, "N:Schmidt;Anna;;;")
	assert.Contains(t, out, "TEL;TYPE=CELL:+49 30 555")
	assert.Contains(t, out, "ANNIVERSARY:2010-09-01")
	assert.Contains(t, out, "UID:uid-42")
	assert.True(t, strings.HasSuffix(out, "END:VCARD"))
}

func TestSerializeUIDPerProvider(t *testing.T) {
	icloud := "i-1"
	google := "g-1"
	person := &model.Person{FirstName: "A", LastName: "B", ICloudUID: &icloud, GoogleUID: &google}

	assert.Contains(t, Serialize(person, "icloud"), "UID:i-1")
	assert.Contains(t, Serialize(person, "google"), "UID:g-1")
	assert.NotContains(t, Serialize(person, "nextcloud"), "UID:")
}

func TestRoundTrip(t *testing.T) {
	original, err := Parse(sampleVCard)
	require.NoError(t, err)

	uid := "rt-1"
	original.ICloudUID = &uid

	again, err := Parse(Serialize(original, "icloud"))
	require.NoError(t, err)

	assert.Equal(t, original.FirstName, again.FirstName)
	assert.Equal(t, original.MiddleName, again.MiddleName)
	assert.Equal(t, original.LastName, again.LastName)
	assert.Equal(t, original.Phone, again.Phone)
	assert.Equal(t, original.Email, again.Email)
	assert.Equal(t, original.City, again.City)
	assert.Equal(t, original.Zip, again.Zip)
	assert.Equal(t, original.Country, again.Country)
	assert.Equal(t, original.ImportantDates, again.ImportantDates)
}
