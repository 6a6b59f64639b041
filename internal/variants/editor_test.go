package variants

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/victorjakob/mamareykjavik/internal/domain/event"
)

func threeVariants() []event.TicketVariant {
	return []event.TicketVariant{
		{Name: "Early", Price: 1000, Meta: map[string]any{"tier": 1}},
		{Name: "Standard", Price: 3000, Meta: map[string]any{"tier": 2}},
		{Name: "Supporter", Price: 5000, Meta: map[string]any{"tier": 3}},
	}
}

func TestAdd_AppendsBlank(t *testing.T) {
	e := NewEditor(nil)
	e.Add()
	e.Add()

	got := e.List()
	require.Len(t, got, 2)
	assert.Equal(t, "", got[1].Name)
	assert.Equal(t, 0, got[1].Price)
	assert.Nil(t, got[1].Capacity)
	assert.NotNil(t, got[1].Meta)
	assert.Empty(t, got[1].Meta)
}

func TestRemove_ShiftsAndBounds(t *testing.T) {
	e := NewEditor(threeVariants())

	require.NoError(t, e.Remove(0))
	got := e.List()
	require.Len(t, got, 2)
	assert.Equal(t, "Standard", got[0].Name)
	assert.Equal(t, "Supporter", got[1].Name)

	for _, idx := range []int{-1, 2, 10} {
		err := e.Remove(idx)
		assert.True(t, errors.Is(err, ErrIndexOutOfRange), "index %d", idx)
	}
	assert.Equal(t, 2, e.Len())
}

func TestUpdate_SiblingsUntouched(t *testing.T) {
	e := NewEditor(threeVariants())
	before := e.List()

	require.NoError(t, e.Update(1, FieldPrice, 500))
	after := e.List()

	assert.Equal(t, 500, after[1].Price)
	assert.Equal(t, 3000, before[1].Price, "earlier list must not change")

	for _, i := range []int{0, 2} {
		assert.Equal(t, before[i], after[i])
	}

	// the replaced element's meta is a copy, not the old map
	after[1].Meta["tier"] = 99
	assert.Equal(t, 2, before[1].Meta["tier"])
}

func TestUpdate_Fields(t *testing.T) {
	e := NewEditor(threeVariants())

	require.NoError(t, e.Update(0, FieldName, "Earlybird"))
	require.NoError(t, e.Update(0, FieldPrice, float64(1500)))
	require.NoError(t, e.Update(0, FieldCapacity, "20"))
	require.NoError(t, e.Update(0, FieldMeta, map[string]any{"note": "first 20"}))

	v := e.List()[0]
	assert.Equal(t, "Earlybird", v.Name)
	assert.Equal(t, 1500, v.Price)
	require.NotNil(t, v.Capacity)
	assert.Equal(t, 20, *v.Capacity)
	assert.Equal(t, map[string]any{"note": "first 20"}, v.Meta)

	require.NoError(t, e.Update(0, FieldCapacity, ""))
	assert.Nil(t, e.List()[0].Capacity)

	assert.True(t, errors.Is(e.Update(0, "colour", "red"), ErrUnknownField))
	assert.True(t, errors.Is(e.Update(0, FieldPrice, "abc"), ErrInvalidValue))
	assert.True(t, errors.Is(e.Update(0, FieldPrice, 1.5), ErrInvalidValue))
	assert.True(t, errors.Is(e.Update(0, FieldName, 3), ErrInvalidValue))
	assert.True(t, errors.Is(e.Update(5, FieldName, "x"), ErrIndexOutOfRange))
}

func TestNewEditor_CopiesInitial(t *testing.T) {
	initial := threeVariants()
	e := NewEditor(initial)

	require.NoError(t, e.Update(0, FieldName, "changed"))
	assert.Equal(t, "Early", initial[0].Name)
}

func TestPayload_EmptyIsNil(t *testing.T) {
	e := NewEditor(nil)
	assert.Nil(t, e.Payload())

	e.Add()
	assert.Len(t, e.Payload(), 1)

	require.NoError(t, e.Remove(0))
	assert.Nil(t, e.Payload())
	assert.NotNil(t, e.List())
}
