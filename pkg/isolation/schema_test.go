// Copyright 2025 SQLFence Authors.
// SPDX-License-Identifier: Apache-2.0

package isolation

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInspectQuerySchemas(t *testing.T) {
	tests := []struct {
		query   string
		op      Operation
		schemas []string
	}{
		{"SELECT id FROM t", OpSelect, []string{}},
		{"SELECT user FROM mysql.user", OpSelect, []string{"mysql"}},
		{"SELECT a.x FROM plugin_weather.obs a JOIN plugin_geo.cities b ON a.id = b.id", OpSelect, []string{"plugin_geo", "plugin_weather"}},
		{"INSERT INTO plugin_weather.obs (a) SELECT a FROM plugin_other.src", OpInsert, []string{"plugin_other", "plugin_weather"}},
		{"DELETE FROM plugin_weather.obs WHERE id IN (SELECT id FROM Plugin_Weather.old)", OpDelete, []string{"plugin_weather"}},
		{"SELECT 1 FROM t WHERE EXISTS (SELECT 1 FROM information_schema.tables)", OpSelect, []string{"information_schema"}},
		{"WITH c AS (SELECT 1) SELECT * FROM c", OpSelect, []string{}},
	}
	for i, test := range tests {
		op, schemas, err := InspectQuery(test.query)
		require.NoError(t, err, "case %d", i)
		require.Equal(t, test.op, op, "case %d", i)
		require.ElementsMatch(t, test.schemas, schemas, "case %d", i)
	}
}

func TestInspectQueryParseFailure(t *testing.T) {
	op, schemas, err := InspectQuery("NOT REALLY SQL (((")
	require.Error(t, err)
	require.Equal(t, OpUnknown, op)
	require.Empty(t, schemas)
	// the unknown kind is denied even by the most permissive policy
	require.False(t, AdminPluginPolicy().Allows(op))
}

func TestSchemaAllowed(t *testing.T) {
	def := DefaultPluginPolicy()
	admin := AdminPluginPolicy()
	own := "plugin_weather"

	tests := []struct {
		policy Policy
		schema string
		within bool
	}{
		{def, "", true},
		{def, "plugin_weather", true},
		{def, "Plugin_Weather", true},
		{def, "mysql", false},
		{def, "information_schema", false},
		{def, "plugin_other", false},
		{def, "app", false},
		{admin, "mysql", true},
		{admin, "plugin_other", true},
		{admin, "app", true},
	}
	for i, test := range tests {
		require.Equal(t, test.within, test.policy.SchemaAllowed(test.schema, own), "case %d", i)
	}

	// without a caller identity every qualified schema is foreign
	require.False(t, def.SchemaAllowed("plugin_weather", ""))
	require.True(t, def.SchemaAllowed("", ""))
}
