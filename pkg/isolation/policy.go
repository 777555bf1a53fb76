// Copyright 2025 SQLFence Authors.
// SPDX-License-Identifier: Apache-2.0

package isolation

import (
	"time"

	"github.com/pingcap/tidb/pkg/parser/ast"
)

// Operation is the kind of SQL statement a policy can allow or deny.
type Operation int

const (
	OpUnknown Operation = iota
	OpSelect
	OpInsert
	OpUpdate
	OpDelete
	OpCreateTable
	OpAlterTable
	OpDropTable
	OpCreateIndex
	OpDropIndex
	OpTruncate
)

var operationNames = map[Operation]string{
	OpUnknown:     "UNKNOWN",
	OpSelect:      "SELECT",
	OpInsert:      "INSERT",
	OpUpdate:      "UPDATE",
	OpDelete:      "DELETE",
	OpCreateTable: "CREATE_TABLE",
	OpAlterTable:  "ALTER_TABLE",
	OpDropTable:   "DROP_TABLE",
	OpCreateIndex: "CREATE_INDEX",
	OpDropIndex:   "DROP_INDEX",
	OpTruncate:    "TRUNCATE",
}

func (o Operation) String() string {
	if name, ok := operationNames[o]; ok {
		return name
	}
	return "UNKNOWN"
}

// Policy is the immutable bundle describing what a class of plugin caller may
// do. It is configuration, constructed once and never mutated.
type Policy struct {
	Name              string
	AllowCrossPlugin  bool
	AllowSystemSchema bool
	MaxComplexity     int
	// MaxExecutionTime is advisory: enforced downstream by the engine's
	// statement timeout, not by this layer.
	MaxExecutionTime time.Duration
	allowed          uint32
}

// NewPolicy builds a policy allowing exactly the given operations.
func NewPolicy(name string, maxComplexity int, maxExecutionTime time.Duration, ops ...Operation) Policy {
	p := Policy{
		Name:             name,
		MaxComplexity:    maxComplexity,
		MaxExecutionTime: maxExecutionTime,
	}
	for _, op := range ops {
		if op != OpUnknown {
			p.allowed |= 1 << uint(op)
		}
	}
	return p
}

// Allows reports whether the policy permits the operation. OpUnknown is never
// permitted.
func (p Policy) Allows(op Operation) bool {
	return op != OpUnknown && p.allowed&(1<<uint(op)) != 0
}

// Operations lists the allowed operation kinds in declaration order.
func (p Policy) Operations() []Operation {
	ops := make([]Operation, 0, 10)
	for op := OpSelect; op <= OpTruncate; op++ {
		if p.Allows(op) {
			ops = append(ops, op)
		}
	}
	return ops
}

// DefaultPluginPolicy is the restrictive policy for ordinary plugins: the four
// DML operations only, confined to the plugin's own schema.
func DefaultPluginPolicy() Policy {
	return NewPolicy("plugin-default", 1000, 5*time.Second,
		OpSelect, OpInsert, OpUpdate, OpDelete)
}

// AdminPluginPolicy is the permissive policy for administrative plugins.
func AdminPluginPolicy() Policy {
	p := NewPolicy("plugin-admin", 10000, 30*time.Second,
		OpSelect, OpInsert, OpUpdate, OpDelete,
		OpCreateTable, OpAlterTable, OpDropTable,
		OpCreateIndex, OpDropIndex, OpTruncate)
	p.AllowCrossPlugin = true
	p.AllowSystemSchema = true
	return p
}

// OperationOf maps a parsed statement to its operation kind. Statement shapes
// outside the governed set map to OpUnknown, which no policy allows.
func OperationOf(stmt ast.StmtNode) Operation {
	switch stmt.(type) {
	case *ast.SelectStmt, *ast.SetOprStmt:
		return OpSelect
	case *ast.InsertStmt:
		return OpInsert
	case *ast.UpdateStmt:
		return OpUpdate
	case *ast.DeleteStmt:
		return OpDelete
	case *ast.CreateTableStmt:
		return OpCreateTable
	case *ast.AlterTableStmt:
		return OpAlterTable
	case *ast.DropTableStmt:
		return OpDropTable
	case *ast.CreateIndexStmt:
		return OpCreateIndex
	case *ast.DropIndexStmt:
		return OpDropIndex
	case *ast.TruncateTableStmt:
		return OpTruncate
	default:
		return OpUnknown
	}
}

// ClassifyQuery parses the query and returns the operation kind of its first
// statement.
func ClassifyQuery(query string) (Operation, error) {
	op, _, err := InspectQuery(query)
	return op, err
}
