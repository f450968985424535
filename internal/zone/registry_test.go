package zone

import (
	"strings"
	"testing"

	"marketplace-checkout/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRegistry(t *testing.T) {
	r := Default()
	require.Equal(t, 6, r.Len())

	city, ok := r.FindByID("lilongwe")
	require.True(t, ok)
	assert.Equal(t, "Lilongwe", city.Name)
	assert.Equal(t, "Central Region", city.RegionName)

	assert.False(t, r.Contains("johannesburg"))
	assert.False(t, r.Contains(""))
	assert.Equal(t, "lilongwe", r.List()[0].ID)
}

func TestNewRejectsDuplicatesAndBlankIDs(t *testing.T) {
	_, err := New(nil)
	assert.ErrorIs(t, err, ErrEmptyRegistry)

	_, err = New([]domain.DeliveryCity{{ID: "a", Name: "A"}, {ID: " a ", Name: "A2"}})
	assert.ErrorContains(t, err, "duplicate id")

	_, err = New([]domain.DeliveryCity{{ID: "", Name: "Nowhere"}})
	assert.ErrorContains(t, err, "id required")
}

func TestListIsACopy(t *testing.T) {
	r, err := New([]domain.DeliveryCity{{ID: "a", Name: "A"}})
	require.NoError(t, err)
	list := r.List()
	list[0].Name = "mutated"
	city, _ := r.FindByID("a")
	assert.Equal(t, "A", city.Name)
}

func TestLoadYAMLRejectsUnknownFields(t *testing.T) {
	_, err := LoadYAML(strings.NewReader("cities:\n  - id: a\n    name: A\n    population: 3\n"))
	assert.Error(t, err)
}

func TestNilRegistry(t *testing.T) {
	var r *Registry
	assert.False(t, r.Contains("lilongwe"))
	assert.Zero(t, r.Len())
	assert.Nil(t, r.List())
}
