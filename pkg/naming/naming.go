// Copyright 2025 SQLFence Authors.
// SPDX-License-Identifier: Apache-2.0

package naming

import (
	"strings"
)

// SchemaPrefix namespaces every plugin schema.
const SchemaPrefix = "plugin_"

// maxIdentifierLen matches the MySQL identifier length limit.
const maxIdentifierLen = 64

var systemSchemas = map[string]struct{}{
	"mysql":              {},
	"information_schema": {},
	"performance_schema": {},
	"sys":                {},
}

// SanitizeIdentifier lowercases the name and replaces every character outside
// [a-z0-9_] so the result is always safe to interpolate as an identifier.
func SanitizeIdentifier(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	s := b.String()
	if len(s) > maxIdentifierLen {
		s = s[:maxIdentifierLen]
	}
	return s
}

// SchemaName derives the schema owned by a plugin.
func SchemaName(pluginID string) string {
	s := SchemaPrefix + SanitizeIdentifier(pluginID)
	if len(s) > maxIdentifierLen {
		s = s[:maxIdentifierLen]
	}
	return s
}

// TableName derives the fully qualified name of a plugin-owned table.
func TableName(pluginID, table string) string {
	return SchemaName(pluginID) + "." + SanitizeIdentifier(table)
}

// IsPluginSchema reports whether the schema belongs to some plugin.
func IsPluginSchema(schema string) bool {
	return strings.HasPrefix(strings.ToLower(schema), SchemaPrefix)
}

// IsSystemSchema reports whether the schema is a system schema that only
// policies with system-schema access may touch.
func IsSystemSchema(schema string) bool {
	_, ok := systemSchemas[strings.ToLower(schema)]
	return ok
}
