// Package policy implements the per-user condition DSL and the hard
// filters that gate every candidate buy/sell (§4.5).
package policy

import (
	"fmt"
	"strconv"
	"strings"
)

// comparator is one of the DSL's recognised comparison operators.
type comparator string

const (
	cmpGTE comparator = ">="
	cmpLTE comparator = "<="
	cmpGT  comparator = ">"
	cmpLT  comparator = "<"
	cmpEQ  comparator = "="
)

// condition is a single "VARIABLE comparator literal" clause, e.g. "V1>=60".
type condition struct {
	variable string
	cmp      comparator
	literal  int
}

func (c condition) eval(vars map[string]int) bool {
	v := vars[c.variable] // missing variables evaluate as 0, per the DSL's contract
	switch c.cmp {
	case cmpGTE:
		return v >= c.literal
	case cmpLTE:
		return v <= c.literal
	case cmpGT:
		return v > c.literal
	case cmpLT:
		return v < c.literal
	case cmpEQ:
		return v == c.literal
	}
	return false
}

// connector is the boolean operator joining two clauses. Both connectors
// share one precedence and are evaluated strictly left-to-right, per §4.5.
type connector string

const (
	connAnd connector = "AND"
	connOr  connector = "OR"
)

// Expr is a parsed condition DSL expression: a left-associative chain of
// clauses joined by AND/OR.
type Expr struct {
	clauses    []condition
	connectors []connector // len(connectors) == len(clauses)-1
}

// Empty reports whether the expression has no clauses (an empty DSL string),
// in which case the caller falls back to a single-score threshold per §4.5.
func (e Expr) Empty() bool { return len(e.clauses) == 0 }

// Eval evaluates the expression left-to-right against a variable map
// (typically a snapshot row's per-version scores, e.g. {"V1": 65, "V5": 55}).
func (e Expr) Eval(vars map[string]int) bool {
	if len(e.clauses) == 0 {
		return true
	}
	result := e.clauses[0].eval(vars)
	for i, conn := range e.connectors {
		rhs := e.clauses[i+1].eval(vars)
		if conn == connAnd {
			result = result && rhs
		} else {
			result = result || rhs
		}
	}
	return result
}

var comparators = []comparator{cmpGTE, cmpLTE, cmpGT, cmpLT, cmpEQ} // order matters: two-char ops first

// Parse compiles a condition DSL string like "V1>=60 AND V5>=50 AND V4>40"
// into an Expr. Returns a descriptive error on malformed input (the
// controller wraps it in domain.ErrConfig); an empty or whitespace-only
// string parses to an empty Expr.
func Parse(src string) (Expr, error) {
	src = strings.TrimSpace(src)
	if src == "" {
		return Expr{}, nil
	}

	var clauses []condition
	var connectors []connector

	for _, token := range splitOnConnectors(src) {
		token = strings.TrimSpace(token)
		if token == "AND" || token == "OR" {
			connectors = append(connectors, connector(token))
			continue
		}
		c, err := parseClause(token)
		if err != nil {
			return Expr{}, fmt.Errorf("condition DSL %q: %w", src, err)
		}
		clauses = append(clauses, c)
	}

	if len(clauses) == 0 {
		return Expr{}, fmt.Errorf("condition DSL %q: no clauses found", src)
	}
	if len(connectors) != len(clauses)-1 {
		return Expr{}, fmt.Errorf("condition DSL %q: malformed connector sequence", src)
	}

	return Expr{clauses: clauses, connectors: connectors}, nil
}

// splitOnConnectors tokenizes on whitespace-delimited AND/OR while leaving
// "V1>=60"-style clauses intact (they contain no spaces in the expected
// input form).
func splitOnConnectors(src string) []string {
	fields := strings.Fields(src)
	return fields
}

func parseClause(token string) (condition, error) {
	for _, c := range comparators {
		if idx := strings.Index(token, string(c)); idx > 0 {
			variable := strings.ToUpper(strings.TrimSpace(token[:idx]))
			litStr := strings.TrimSpace(token[idx+len(c):])
			lit, err := strconv.Atoi(litStr)
			if err != nil {
				return condition{}, fmt.Errorf("bad literal in clause %q: %w", token, err)
			}
			return condition{variable: variable, cmp: c, literal: lit}, nil
		}
	}
	return condition{}, fmt.Errorf("no comparator found in clause %q", token)
}

// ScoreVars builds the variable map a snapshot row's per-version scores
// feed to Expr.Eval, keyed the way the DSL references them ("V1", "V3.5", …).
func ScoreVars(scores map[string]int) map[string]int {
	vars := make(map[string]int, len(scores))
	for version, score := range scores {
		vars[strings.ToUpper(version)] = score
	}
	return vars
}
