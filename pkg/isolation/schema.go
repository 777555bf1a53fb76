// Copyright 2025 SQLFence Authors.
// SPDX-License-Identifier: Apache-2.0

package isolation

import (
	"sort"
	"strings"

	"github.com/pingcap/tidb/pkg/parser"
	"github.com/pingcap/tidb/pkg/parser/ast"
	"github.com/sqlfence/sqlfence/lib/util/errors"
	"github.com/sqlfence/sqlfence/pkg/naming"
)

// schemaVisitor collects every schema qualifier referenced by a statement.
// Unqualified table names resolve to the caller's own schema downstream, so
// they are not collected here.
type schemaVisitor struct {
	schemas map[string]struct{}
}

func (v *schemaVisitor) Enter(n ast.Node) (node ast.Node, skipChildren bool) {
	if tn, ok := n.(*ast.TableName); ok && tn.Schema.L != "" {
		v.schemas[tn.Schema.L] = struct{}{}
	}
	return n, false
}

func (v *schemaVisitor) Leave(n ast.Node) (node ast.Node, ok bool) {
	return n, true
}

// InspectQuery parses the query once and returns the operation kind of its
// first statement together with every schema qualifier the statements
// reference. Any parse failure maps to OpUnknown, which no policy allows.
func InspectQuery(query string) (op Operation, schemas []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			op, schemas, err = OpUnknown, nil, errors.Errorf("parser panic: %v", r)
		}
	}()
	p := parser.New()
	stmts, _, err := p.Parse(query, "", "")
	if err != nil {
		return OpUnknown, nil, errors.WithStack(err)
	}
	if len(stmts) == 0 {
		return OpUnknown, nil, errors.Errorf("no statement found")
	}
	v := &schemaVisitor{schemas: make(map[string]struct{})}
	for _, stmt := range stmts {
		stmt.Accept(v)
	}
	schemas = make([]string, 0, len(v.schemas))
	for schema := range v.schemas {
		schemas = append(schemas, schema)
	}
	sort.Strings(schemas)
	return OperationOf(stmts[0]), schemas, nil
}

// SchemaAllowed reports whether the policy permits touching the schema.
// Unqualified references and the plugin's own schema are always permitted.
// System schemas require the system-schema flag; everything else, including
// other plugins' schemas, requires the cross-plugin flag.
func (p Policy) SchemaAllowed(schema, ownSchema string) bool {
	switch {
	case schema == "":
		return true
	case ownSchema != "" && strings.EqualFold(schema, ownSchema):
		return true
	case naming.IsSystemSchema(schema):
		return p.AllowSystemSchema
	case naming.IsPluginSchema(schema):
		return p.AllowCrossPlugin
	default:
		// schemas outside the plugin namespace are as foreign as another plugin's
		return p.AllowCrossPlugin
	}
}
