package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProductColumns(t *testing.T) {
	assert.Equal(t, []string{
		"id", "owner", "name", "expiry_date", "manufacturer", "batch_number",
		"confidence", "raw_text", "source_path", "content_hash", "deleted",
		"created_at", "updated_at",
	}, Columns(Product{}))
}

func TestProductValidators(t *testing.T) {
	byName := map[string]int{}
	fields := Product{}.Fields()
	for i, f := range fields {
		byName[f.Descriptor().Name] = i
	}

	conf := fields[byName["confidence"]].Descriptor()
	require.Len(t, conf.Validators, 1)
	check := conf.Validators[0].(func(string) error)
	assert.NoError(t, check("medium"))
	assert.Error(t, check("certain"))

	exp := fields[byName["expiry_date"]].Descriptor()
	assert.True(t, exp.Optional)
	assert.True(t, exp.Nillable)
}

func TestStringValidators(t *testing.T) {
	checks := StringValidators(Product{})

	require.Len(t, checks["confidence"], 1)
	assert.NoError(t, checks["confidence"][0]("none"))
	assert.Error(t, checks["confidence"][0]("certain"))

	require.NotEmpty(t, checks["expiry_date"])
	run := func(col, v string) error {
		for _, c := range checks[col] {
			if err := c(v); err != nil {
				return err
			}
		}
		return nil
	}
	assert.NoError(t, run("expiry_date", "2026-08-15"))
	assert.Error(t, run("expiry_date", "15.08.2026"))
	assert.Error(t, run("content_hash", string(make([]byte, 65))))
	assert.Empty(t, checks["deleted"])
}

func TestIndexColumns(t *testing.T) {
	assert.Equal(t, [][]string{
		{"owner", "expiry_date"},
		{"owner", "content_hash"},
	}, IndexColumns(Product{}))
}
