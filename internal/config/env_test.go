// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseString(t *testing.T) {
	t.Setenv("CAMREC_TEST_STR", "value")
	assert.Equal(t, "value", ParseString("CAMREC_TEST_STR", "def"))
	assert.Equal(t, "def", ParseString("CAMREC_TEST_UNSET", "def"))

	t.Setenv("CAMREC_TEST_EMPTY", "")
	assert.Equal(t, "def", ParseString("CAMREC_TEST_EMPTY", "def"))
}

func TestParseStringWithAlias(t *testing.T) {
	assert.Equal(t, "def", ParseStringWithAlias("CAMREC_TEST_A", "CAMREC_TEST_B", "def"))

	t.Setenv("CAMREC_TEST_B", "alias")
	assert.Equal(t, "alias", ParseStringWithAlias("CAMREC_TEST_A", "CAMREC_TEST_B", "def"))

	t.Setenv("CAMREC_TEST_A", "primary")
	assert.Equal(t, "primary", ParseStringWithAlias("CAMREC_TEST_A", "CAMREC_TEST_B", "def"))
}

func TestParseNumeric(t *testing.T) {
	t.Setenv("CAMREC_TEST_INT", "42")
	t.Setenv("CAMREC_TEST_BADINT", "forty")
	t.Setenv("CAMREC_TEST_FLOAT", "0.25")
	t.Setenv("CAMREC_TEST_DUR", "1m30s")
	t.Setenv("CAMREC_TEST_BADDUR", "soon")

	assert.Equal(t, 42, ParseInt("CAMREC_TEST_INT", 1))
	assert.Equal(t, 1, ParseInt("CAMREC_TEST_BADINT", 1))
	assert.InDelta(t, 0.25, ParseFloat("CAMREC_TEST_FLOAT", 1), 1e-9)
	assert.Equal(t, 90*time.Second, ParseDuration("CAMREC_TEST_DUR", time.Second))
	assert.Equal(t, time.Second, ParseDuration("CAMREC_TEST_BADDUR", time.Second))
}

func TestParseBool(t *testing.T) {
	for in, want := range map[string]bool{"true": true, "YES": true, "1": true, "false": false, "no": false, "0": false} {
		t.Setenv("CAMREC_TEST_BOOL", in)
		assert.Equal(t, want, ParseBool("CAMREC_TEST_BOOL", !want), in)
	}
	t.Setenv("CAMREC_TEST_BOOL", "maybe")
	assert.True(t, ParseBool("CAMREC_TEST_BOOL", true))
}
