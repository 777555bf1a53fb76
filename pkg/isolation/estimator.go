// Copyright 2025 SQLFence Authors.
// SPDX-License-Identifier: Apache-2.0

package isolation

import (
	"math"

	"github.com/pingcap/tidb/pkg/parser"
	"github.com/pingcap/tidb/pkg/parser/ast"
	"github.com/pingcap/tidb/pkg/parser/opcode"
	_ "github.com/pingcap/tidb/pkg/parser/test_driver"
	"github.com/sqlfence/sqlfence/lib/config"
	"github.com/sqlfence/sqlfence/lib/util/errors"
	"github.com/sqlfence/sqlfence/pkg/metrics"
	"go.uber.org/zap"
)

// Estimator derives a deterministic complexity score from the parsed structure
// of a query. The score grows monotonically with constructs known to correlate
// with expensive execution plans. It holds only immutable configuration, so one
// instance serves concurrent callers.
type Estimator struct {
	lg       *zap.Logger
	weights  config.ComplexityWeights
	fallback int
}

// NewEstimator creates an Estimator. A zero FallbackComplexity resolves to the
// complexity ceiling, so an unparseable query is scored right at the ceiling
// and passes the complexity check (fail-open). Configure a larger fallback to
// fail closed instead.
func NewEstimator(cfg config.Isolation, lg *zap.Logger) *Estimator {
	fallback := cfg.FallbackComplexity
	if fallback == 0 {
		fallback = cfg.MaxQueryComplexity
	}
	return &Estimator{
		lg:       lg,
		weights:  cfg.Weights.Merged(),
		fallback: fallback,
	}
}

// Estimate returns the complexity score for the query. It never fails: a query
// that cannot be structurally analyzed is logged and scored with the configured
// fallback complexity.
func (e *Estimator) Estimate(query string) int {
	counts, err := analyzeQuery(query)
	if err != nil {
		metrics.ParseFallbackCounter.Inc()
		e.lg.Warn("failed to parse query, using fallback complexity",
			zap.String("query", query),
			zap.Int("fallback", e.fallback),
			zap.Error(err))
		return e.fallback
	}
	return counts.score(e.weights)
}

// constructCounts tallies each weighted construct independently.
type constructCounts struct {
	joins          int
	cartesianJoins int
	subqueries     int
	unions         int
	intersects     int
	excepts        int
	recursiveCTEs  int
	aggregates     int
	windows        int
	wildcards      int
	whereOrs       int
	whereFunctions int
}

// score is 1 + the weighted sum of all counts, clamped at the largest
// representable integer. A bare score of 1 means no qualifying construct
// was found.
func (c *constructCounts) score(w config.ComplexityWeights) int {
	score := 1
	add := func(count, weight int) {
		if count <= 0 || weight <= 0 {
			return
		}
		p := count * weight
		if p/count != weight || score > math.MaxInt-p {
			score = math.MaxInt
			return
		}
		score += p
	}
	add(c.joins, w.Join)
	add(c.cartesianJoins, w.CartesianJoin)
	add(c.subqueries, w.Subquery)
	add(c.unions, w.Union)
	add(c.intersects, w.Intersect)
	add(c.excepts, w.Except)
	add(c.recursiveCTEs, w.RecursiveCTE)
	add(c.aggregates, w.Aggregate)
	add(c.windows, w.Window)
	add(c.wildcards, w.Wildcard)
	add(c.whereOrs, w.WhereOr)
	add(c.whereFunctions, w.WhereFunction)
	return score
}

// analyzeQuery parses the query and walks every statement. Keywords inside
// string literals and comments never reach the walk because the analysis works
// on the AST, not on the query text.
func analyzeQuery(query string) (counts *constructCounts, err error) {
	// The parser is not guaranteed to never panic on adversarial input.
	defer func() {
		if r := recover(); r != nil {
			counts, err = nil, errors.Errorf("parser panic: %v", r)
		}
	}()
	p := parser.New()
	stmts, _, err := p.Parse(query, "", "")
	if err != nil {
		return nil, errors.WithStack(err)
	}
	counts = &constructCounts{}
	for _, stmt := range stmts {
		counts.walkStmt(stmt)
	}
	// Some statement-splitting clients submit "SELECT ...; SELECT ..." in place
	// of an explicit set operation. Without explicit set-operation nodes, the
	// extra statements are charged as unions.
	if len(stmts) > 1 && counts.unions == 0 && counts.intersects == 0 && counts.excepts == 0 {
		counts.unions = len(stmts) - 1
	}
	return counts, nil
}

func (c *constructCounts) walkStmt(stmt ast.StmtNode) {
	switch nn := stmt.(type) {
	case *ast.SelectStmt:
		c.walkSelect(nn)
	case *ast.SetOprStmt:
		c.walkSetOpr(nn)
	case *ast.InsertStmt:
		if nn.Table != nil && nn.Table.TableRefs != nil {
			c.walkTableRef(nn.Table.TableRefs)
		}
		if nn.Select != nil {
			c.subqueries++
			c.walkResultSet(nn.Select)
		}
	case *ast.UpdateStmt:
		c.walkWith(nn.With)
		if nn.TableRefs != nil && nn.TableRefs.TableRefs != nil {
			c.walkTableRef(nn.TableRefs.TableRefs)
		}
		c.walkWhere(nn.Where)
	case *ast.DeleteStmt:
		c.walkWith(nn.With)
		if nn.TableRefs != nil && nn.TableRefs.TableRefs != nil {
			c.walkTableRef(nn.TableRefs.TableRefs)
		}
		c.walkWhere(nn.Where)
	}
}

func (c *constructCounts) walkSelect(sel *ast.SelectStmt) {
	c.walkWith(sel.With)
	if sel.From != nil && sel.From.TableRefs != nil {
		c.walkTableRef(sel.From.TableRefs)
	}
	if sel.Fields != nil {
		for _, field := range sel.Fields.Fields {
			if field.WildCard != nil {
				c.wildcards++
				continue
			}
			c.walkFieldExpr(field.Expr)
		}
	}
	c.walkWhere(sel.Where)
}

// walkWith charges a recursive WITH clause once, regardless of how many CTEs
// it declares, and descends into every CTE body.
func (c *constructCounts) walkWith(with *ast.WithClause) {
	if with == nil {
		return
	}
	if with.IsRecursive {
		c.recursiveCTEs++
	}
	for _, cte := range with.CTEs {
		if cte.Query != nil && cte.Query.Query != nil {
			c.walkResultSetBody(cte.Query.Query)
		}
	}
}

func (c *constructCounts) walkSetOpr(stmt *ast.SetOprStmt) {
	c.walkWith(stmt.With)
	if stmt.SelectList != nil {
		c.walkSetOprList(stmt.SelectList)
	}
}

func (c *constructCounts) walkSetOprList(list *ast.SetOprSelectList) {
	for _, sel := range list.Selects {
		switch nn := sel.(type) {
		case *ast.SelectStmt:
			c.countSetOp(nn.AfterSetOperator)
			c.walkSelect(nn)
		case *ast.SetOprSelectList:
			c.countSetOp(nn.AfterSetOperator)
			c.walkSetOprList(nn)
		}
	}
}

// countSetOp charges the operator connecting a branch to the one before it.
// The first branch carries no operator.
func (c *constructCounts) countSetOp(tp *ast.SetOprType) {
	if tp == nil {
		return
	}
	switch *tp {
	case ast.Union, ast.UnionAll:
		c.unions++
	case ast.Intersect, ast.IntersectAll:
		c.intersects++
	case ast.Except, ast.ExceptAll:
		c.excepts++
	}
}

// walkTableRef descends a FROM clause. Every join node is charged the join
// weight; an unconditioned join is additionally charged as a cartesian join,
// which also covers plain comma-separated table lists.
func (c *constructCounts) walkTableRef(join *ast.Join) {
	if join.Right != nil {
		c.joins++
		if isCartesian(join) {
			c.cartesianJoins++
		}
	}
	if join.Left != nil {
		c.walkResultSet(join.Left)
	}
	if join.Right != nil {
		c.walkResultSet(join.Right)
	}
	if join.On != nil {
		c.walkWhere(join.On.Expr)
	}
}

func isCartesian(join *ast.Join) bool {
	return join.On == nil && len(join.Using) == 0 && !join.NaturalJoin
}

func (c *constructCounts) walkResultSet(rs ast.ResultSetNode) {
	switch nn := rs.(type) {
	case *ast.Join:
		c.walkTableRef(nn)
	case *ast.TableSource:
		c.walkResultSet(nn.Source)
	case *ast.SelectStmt:
		c.subqueries++
		c.walkSelect(nn)
	case *ast.SetOprStmt:
		c.subqueries++
		c.walkSetOpr(nn)
	case *ast.TableName:
	}
}

// walkFieldExpr descends a column-list expression. Aggregates and window
// expressions are weighted here; scalar function calls in the column list are
// not, only their arguments are searched for nested subqueries.
func (c *constructCounts) walkFieldExpr(expr ast.ExprNode) {
	switch nn := expr.(type) {
	case nil:
	case *ast.AggregateFuncExpr:
		c.aggregates++
		for _, arg := range nn.Args {
			c.walkFieldExpr(arg)
		}
	case *ast.WindowFuncExpr:
		c.windows++
		for _, arg := range nn.Args {
			c.walkFieldExpr(arg)
		}
	case *ast.SubqueryExpr:
		c.walkSubquery(nn)
	case *ast.ExistsSubqueryExpr:
		c.walkFieldExpr(nn.Sel)
	case *ast.FuncCallExpr:
		for _, arg := range nn.Args {
			c.walkFieldExpr(arg)
		}
	case *ast.FuncCastExpr:
		c.walkFieldExpr(nn.Expr)
	case *ast.BinaryOperationExpr:
		c.walkFieldExpr(nn.L)
		c.walkFieldExpr(nn.R)
	case *ast.UnaryOperationExpr:
		c.walkFieldExpr(nn.V)
	case *ast.ParenthesesExpr:
		c.walkFieldExpr(nn.Expr)
	case *ast.CaseExpr:
		c.walkFieldExpr(nn.Value)
		for _, when := range nn.WhenClauses {
			c.walkFieldExpr(when.Expr)
			c.walkFieldExpr(when.Result)
		}
		c.walkFieldExpr(nn.ElseClause)
	case *ast.RowExpr:
		for _, v := range nn.Values {
			c.walkFieldExpr(v)
		}
	}
}

func (c *constructCounts) walkSubquery(sub *ast.SubqueryExpr) {
	c.subqueries++
	c.walkResultSetBody(sub.Query)
}

// walkResultSetBody is walkResultSet minus the subquery charge, for bodies
// that have already been charged by the caller.
func (c *constructCounts) walkResultSetBody(rs ast.ResultSetNode) {
	switch nn := rs.(type) {
	case *ast.SelectStmt:
		c.walkSelect(nn)
	case *ast.SetOprStmt:
		c.walkSetOpr(nn)
	}
}

// walkWhere descends a WHERE predicate tree. Every OR operator and every
// function call on the way down is charged; both operands and all function
// arguments are always visited further.
func (c *constructCounts) walkWhere(expr ast.ExprNode) {
	switch nn := expr.(type) {
	case nil:
	case *ast.BinaryOperationExpr:
		if nn.Op == opcode.LogicOr {
			c.whereOrs++
		}
		c.walkWhere(nn.L)
		c.walkWhere(nn.R)
	case *ast.UnaryOperationExpr:
		c.walkWhere(nn.V)
	case *ast.ParenthesesExpr:
		c.walkWhere(nn.Expr)
	case *ast.FuncCallExpr:
		c.whereFunctions++
		for _, arg := range nn.Args {
			c.walkWhere(arg)
		}
	case *ast.FuncCastExpr:
		c.whereFunctions++
		c.walkWhere(nn.Expr)
	case *ast.AggregateFuncExpr:
		for _, arg := range nn.Args {
			c.walkWhere(arg)
		}
	case *ast.SubqueryExpr:
		c.walkSubquery(nn)
	case *ast.ExistsSubqueryExpr:
		c.walkWhere(nn.Sel)
	case *ast.CompareSubqueryExpr:
		c.walkWhere(nn.L)
		c.walkWhere(nn.R)
	case *ast.PatternInExpr:
		c.walkWhere(nn.Expr)
		for _, item := range nn.List {
			c.walkWhere(item)
		}
		c.walkWhere(nn.Sel)
	case *ast.BetweenExpr:
		c.walkWhere(nn.Expr)
		c.walkWhere(nn.Left)
		c.walkWhere(nn.Right)
	case *ast.PatternLikeOrIlikeExpr:
		c.walkWhere(nn.Expr)
		c.walkWhere(nn.Pattern)
	case *ast.PatternRegexpExpr:
		c.walkWhere(nn.Expr)
		c.walkWhere(nn.Pattern)
	case *ast.IsNullExpr:
		c.walkWhere(nn.Expr)
	case *ast.IsTruthExpr:
		c.walkWhere(nn.Expr)
	case *ast.CaseExpr:
		c.walkWhere(nn.Value)
		for _, when := range nn.WhenClauses {
			c.walkWhere(when.Expr)
			c.walkWhere(when.Result)
		}
		c.walkWhere(nn.ElseClause)
	case *ast.RowExpr:
		for _, v := range nn.Values {
			c.walkWhere(v)
		}
	}
}
