package repo

import (
	"fmt"

	"outreach/pkg/goutil"
)

type LogicalOp string

const (
	And LogicalOp = "AND"
	Or  LogicalOp = "OR"
)

type Op string

const (
	OpEq    Op = "="
	OpNotEq Op = "!="
	OpGt    Op = ">"
	OpGte   Op = ">="
	OpLt    Op = "<"
	OpLte   Op = "<="
	OpLike  Op = "LIKE"
	OpIn    Op = "IN"

	OpIsNull  Op = "IS NULL"
	OpNotNull Op = "IS NOT NULL"
)

// Condition is one predicate of a WHERE clause. A condition with nested
// Conditions renders as a parenthesized group and ignores Field/Op/Value.
// Conditions with a nil Value are skipped, so optional predicates can be
// passed through unset.
type Condition struct {
	Field         string
	Op            Op
	Value         interface{}
	NextLogicalOp LogicalOp
	Conditions    []*Condition
}

type Filter struct {
	Conditions []*Condition
	Pagination *Pagination
	OrderBy    string
}

func (f *Filter) GetConditions() []*Condition {
	if f != nil && f.Conditions != nil {
		return f.Conditions
	}
	return nil
}

func (f *Filter) GetOrderBy() string {
	if f != nil && f.OrderBy != "" {
		return f.OrderBy
	}
	return "id DESC"
}

type Pagination struct {
	Page    *uint32 `json:"page,omitempty" schema:"page"`
	Limit   *uint32 `json:"limit,omitempty" schema:"limit"`
	HasNext *bool   `json:"has_next,omitempty" schema:"-"`
	Total   *uint64 `json:"total,omitempty" schema:"-"`
}

func (p *Pagination) GetPage() uint32 {
	if p != nil && p.Page != nil {
		return *p.Page
	}
	return 0
}

func (p *Pagination) GetLimit() uint32 {
	if p != nil && p.Limit != nil {
		return *p.Limit
	}
	return 0
}

func (p *Pagination) GetHasNext() bool {
	if p != nil && p.HasNext != nil {
		return *p.HasNext
	}
	return false
}

func (p *Pagination) GetTotal() uint64 {
	if p != nil && p.Total != nil {
		return *p.Total
	}
	return 0
}

func ToSqlWithArgs(conditions []*Condition) (string, []interface{}) {
	var (
		sql       string
		args      []interface{}
		pendingOp LogicalOp
	)
	for _, condition := range conditions {
		frag, fragArgs := conditionToSql(condition)
		if frag == "" {
			continue
		}

		if sql != "" {
			op := pendingOp
			if op == "" {
				op = And
			}
			sql += fmt.Sprintf(" %s ", op)
		}

		sql += frag
		args = append(args, fragArgs...)
		pendingOp = condition.NextLogicalOp
	}

	return sql, args
}

func conditionToSql(condition *Condition) (string, []interface{}) {
	if len(condition.Conditions) > 0 {
		sub, subArgs := ToSqlWithArgs(condition.Conditions)
		if sub == "" {
			return "", nil
		}
		return fmt.Sprintf("(%s)", sub), subArgs
	}

	switch condition.Op {
	case OpIsNull, OpNotNull:
		return fmt.Sprintf("%s %s", condition.Field, condition.Op), nil
	}

	if goutil.IsNil(condition.Value) {
		return "", nil
	}

	switch condition.Op {
	case OpEq, OpNotEq, OpGt, OpGte, OpLt, OpLte, OpLike, OpIn:
		return fmt.Sprintf("%s %s ?", condition.Field, condition.Op), []interface{}{condition.Value}
	}

	return "", nil
}
