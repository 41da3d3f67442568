package address

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse_PlainAddress(t *testing.T) {
	a := Parse("user@example.com")
	assert.Equal(t, "user@example.com", a.Address)
	assert.Equal(t, "", a.Name)
}

func TestParse_NameAndAddress(t *testing.T) {
	a := Parse("John Doe <john@example.com>")
	assert.Equal(t, "john@example.com", a.Address)
	assert.Equal(t, "John Doe", a.Name)
}

func TestParse_QuotedNameWithComma(t *testing.T) {
	a := Parse(`"Doe, John" <john@example.com>`)
	assert.Equal(t, "john@example.com", a.Address)
	assert.Equal(t, "Doe, John", a.Name)
}

func TestParse_CommentBecomesNameWhenNoDisplayName(t *testing.T) {
	a := Parse("john@example.com (John Doe)")
	assert.Equal(t, "john@example.com", a.Address)
	assert.Equal(t, "John Doe", a.Name)
}

func TestParseList_MultipleAddresses(t *testing.T) {
	list := ParseList("a@x.com, \"B, C\" <b@x.com>, d@x.com")
	if assert.Len(t, list, 3) {
		assert.Equal(t, "a@x.com", list[0].Address)
		assert.Equal(t, "b@x.com", list[1].Address)
		assert.Equal(t, "B, C", list[1].Name)
		assert.Equal(t, "d@x.com", list[2].Address)
	}
}

func TestParseList_Group(t *testing.T) {
	list := ParseList("Friends: a@x.com, b@x.com;, c@x.com")
	if assert.Len(t, list, 2) {
		assert.True(t, list[0].IsGroup())
		assert.Equal(t, "Friends", list[0].Name)
		assert.Len(t, list[0].Group, 2)
		assert.Equal(t, "c@x.com", list[1].Address)
	}
}

func TestFlatten_ExpandsGroups(t *testing.T) {
	list := ParseList("Friends: a@x.com, b@x.com;, c@x.com")
	flat := Flatten(list)
	assert.Len(t, flat, 3)
	for _, a := range flat {
		assert.False(t, a.IsGroup())
	}
}

func TestParse_RoundTripNoSpecials(t *testing.T) {
	cases := []Address{
		{Name: "Alice", Address: "alice@example.com"},
		{Name: "", Address: "bob@example.com"},
	}
	for _, original := range cases {
		s := original.Name + " <" + original.Address + ">"
		if original.Name == "" {
			s = original.Address
		}
		parsed := Parse(s)
		assert.Equal(t, original, parsed)
	}
}
