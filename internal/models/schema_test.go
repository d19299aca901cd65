package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddField(t *testing.T) {
	var s FieldSchema

	s.AddField(BucketString, "Color")
	s.AddField(BucketString, "Size")
	s.AddField(BucketNumber, "Weight")
	s.AddField(BucketDropdown, "Condition")

	assert.Equal(t, []string{"Color", "Size"}, s.StringFields)
	assert.Equal(t, []string{"Weight"}, s.NumberFields)
	assert.Equal(t, []string{"Condition"}, s.DropdownFields)
}

func TestAddFieldBooleanCanonicalization(t *testing.T) {
	var s FieldSchema

	s.AddField(BucketBoolean, "true")
	s.AddField(BucketBoolean, "false")
	assert.Equal(t, []bool{true, false}, s.BooleanFields)

	// Empty selection means "no value supplied".
	s.AddField(BucketBoolean, "")
	assert.Equal(t, []bool{true, false}, s.BooleanFields)

	// Anything outside the canonical inputs is ignored too.
	s.AddField(BucketBoolean, "yes")
	assert.Equal(t, []bool{true, false}, s.BooleanFields)
}

func TestAddFieldEmptyIsNoop(t *testing.T) {
	s := FieldSchema{StringFields: []string{"Color"}}

	s.AddField(BucketString, "")
	assert.Equal(t, []string{"Color"}, s.StringFields)

	s.AddField("unknownBucket", "Color")
	assert.Equal(t, []string{"Color"}, s.StringFields)
	assert.Empty(t, s.NumberFields)
}

func TestAddFieldCrossBucketUniqueness(t *testing.T) {
	var s FieldSchema

	s.AddField(BucketString, "Weight")
	s.AddField(BucketNumber, "Weight")
	s.AddField(BucketDropdown, "Weight")
	s.AddField(BucketString, "Weight")

	assert.Equal(t, []string{"Weight"}, s.StringFields)
	assert.Empty(t, s.NumberFields)
	assert.Empty(t, s.DropdownFields)
}

func TestFieldNamesAndType(t *testing.T) {
	var s FieldSchema
	s.AddField(BucketString, "Color")
	s.AddField(BucketNumber, "Weight")
	s.AddField(BucketDropdown, "Condition")
	s.AddField(BucketBoolean, "true")

	assert.Equal(t, []string{"Color", "Weight", "Condition"}, s.FieldNames())

	bucket, ok := s.FieldType("Weight")
	require.True(t, ok)
	assert.Equal(t, BucketNumber, bucket)

	_, ok = s.FieldType("Missing")
	assert.False(t, ok)
}

func TestExtends(t *testing.T) {
	old := FieldSchema{
		StringFields:  []string{"Color"},
		NumberFields:  []string{"Weight"},
		BooleanFields: []bool{true},
	}

	grown := old
	grown.StringFields = []string{"Color", "Size"}
	grown.BooleanFields = []bool{true, false}
	assert.True(t, grown.Extends(&old))

	renamed := FieldSchema{
		StringFields:  []string{"Colour"},
		NumberFields:  []string{"Weight"},
		BooleanFields: []bool{true},
	}
	assert.False(t, renamed.Extends(&old))

	shrunk := FieldSchema{NumberFields: []string{"Weight"}}
	assert.False(t, shrunk.Extends(&old))
}

func TestNormalize(t *testing.T) {
	raw := FieldSchema{
		StringFields:   []string{"Color", "", "Color"},
		NumberFields:   []string{"Weight", "Color"},
		BooleanFields:  []bool{true},
		DropdownFields: []string{"Condition"},
	}

	s := raw.Normalize()
	assert.Equal(t, []string{"Color"}, s.StringFields)
	assert.Equal(t, []string{"Weight"}, s.NumberFields)
	assert.Equal(t, []bool{true}, s.BooleanFields)
	assert.Equal(t, []string{"Condition"}, s.DropdownFields)
}

func TestNormalizeValues(t *testing.T) {
	var s FieldSchema
	s.AddField(BucketString, "Color")
	s.AddField(BucketNumber, "Weight")

	t.Run("DropsUnknownKeys", func(t *testing.T) {
		values, err := s.NormalizeValues(map[string]any{
			"Color":   "red",
			"Unknown": "dropped",
		})
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"Color": "red"}, values)
	})

	t.Run("CoercesNumbers", func(t *testing.T) {
		values, err := s.NormalizeValues(map[string]any{"Weight": 3})
		require.NoError(t, err)
		assert.Equal(t, float64(3), values["Weight"])
	})

	t.Run("RejectsWrongTypes", func(t *testing.T) {
		_, err := s.NormalizeValues(map[string]any{"Weight": "heavy"})
		assert.Error(t, err)

		_, err = s.NormalizeValues(map[string]any{"Color": 7})
		assert.Error(t, err)
	})

	t.Run("EmptyBagStaysNil", func(t *testing.T) {
		values, err := s.NormalizeValues(nil)
		require.NoError(t, err)
		assert.Nil(t, values)
	})
}
