package booking

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeduplicateKeepsFirstSeen(t *testing.T) {
	in := []Booking{
		{ID: "A", CustomerName: "first A", TotalGross: decimal.NewFromInt(10)},
		{ID: "B", CustomerName: "first B"},
		{ID: "A", CustomerName: "second A", TotalGross: decimal.NewFromInt(99)},
		{ID: "C", CustomerName: "only C"},
		{ID: "B", CustomerName: "second B"},
		{ID: "A", CustomerName: "third A"},
	}

	res := Deduplicate(in)

	require.Len(t, res.Bookings, 3)
	assert.Equal(t, "first A", res.Bookings[0].CustomerName)
	assert.Equal(t, "first B", res.Bookings[1].CustomerName)
	assert.Equal(t, "only C", res.Bookings[2].CustomerName)
	assert.Equal(t, 3, res.Duplicates)
	assert.Equal(t, 0, res.MissingID)
}

func TestDeduplicateKeepsRecordsWithoutID(t *testing.T) {
	in := []Booking{{ID: ""}, {ID: "X"}, {ID: ""}, {ID: "X"}}

	res := Deduplicate(in)

	assert.Len(t, res.Bookings, 3)
	assert.Equal(t, 2, res.MissingID)
	assert.Equal(t, 1, res.Duplicates)
}

func TestDeduplicateGroups(t *testing.T) {
	var in []Booking
	groups := []string{"g1", "g2", "g3", "g4"}
	for round := 0; round < 3; round++ {
		for i, id := range groups {
			in = append(in, Booking{ID: id, ParticipantCount: round*10 + i})
		}
	}

	res := Deduplicate(in)

	require.Len(t, res.Bookings, len(groups))
	for i, b := range res.Bookings {
		assert.Equal(t, groups[i], b.ID)
		assert.Equal(t, i, b.ParticipantCount)
	}
}

func TestDeduplicateEmpty(t *testing.T) {
	res := Deduplicate(nil)
	assert.Empty(t, res.Bookings)
	assert.Zero(t, res.Duplicates)
}
