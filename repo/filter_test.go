package repo

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"outreach/pkg/goutil"
)

func TestToSqlWithArgs(t *testing.T) {
	tests := []struct {
		name       string
		conditions []*Condition
		wantSql    string
		wantArgs   []interface{}
	}{
		{
			name:     "empty",
			wantSql:  "",
			wantArgs: nil,
		},
		{
			name: "single condition",
			conditions: []*Condition{
				{Field: "status", Op: OpEq, Value: uint32(1)},
			},
			wantSql:  "status = ?",
			wantArgs: []interface{}{uint32(1)},
		},
		{
			name: "defaults to AND",
			conditions: []*Condition{
				{Field: "lead_score", Op: OpGte, Value: uint32(60)},
				{Field: "lead_score", Op: OpLte, Value: uint32(80)},
			},
			wantSql:  "lead_score >= ? AND lead_score <= ?",
			wantArgs: []interface{}{uint32(60), uint32(80)},
		},
		{
			name: "explicit OR",
			conditions: []*Condition{
				{Field: "city", Op: OpEq, Value: "austin", NextLogicalOp: Or},
				{Field: "city", Op: OpEq, Value: "dallas"},
			},
			wantSql:  "city = ? OR city = ?",
			wantArgs: []interface{}{"austin", "dallas"},
		},
		{
			name: "nil value skipped without dangling operator",
			conditions: []*Condition{
				{Field: "status", Op: OpEq, Value: uint32(2)},
				{Field: "city", Op: OpEq, Value: (*string)(nil)},
				{Field: "is_archived", Op: OpEq, Value: false},
			},
			wantSql:  "status = ? AND is_archived = ?",
			wantArgs: []interface{}{uint32(2), false},
		},
		{
			name: "leading nil value skipped",
			conditions: []*Condition{
				{Field: "campaign_id", Op: OpEq, Value: (*uint64)(nil)},
				{Field: "prospect_id", Op: OpEq, Value: goutil.Uint64(7)},
			},
			wantSql:  "prospect_id = ?",
			wantArgs: []interface{}{goutil.Uint64(7)},
		},
		{
			name: "null ops take no args",
			conditions: []*Condition{
				{Field: "unsubscribed_at", Op: OpIsNull},
				{Field: "email_sent_at", Op: OpNotNull},
			},
			wantSql:  "unsubscribed_at IS NULL AND email_sent_at IS NOT NULL",
			wantArgs: nil,
		},
		{
			name: "nested group renders parenthesized",
			conditions: []*Condition{
				{Field: "is_archived", Op: OpEq, Value: false},
				{Conditions: []*Condition{
					{Field: "website", Op: OpIsNull, NextLogicalOp: Or},
					{Field: "website", Op: OpEq, Value: ""},
				}},
			},
			wantSql:  "is_archived = ? AND (website IS NULL OR website = ?)",
			wantArgs: []interface{}{false, ""},
		},
		{
			name: "empty nested group skipped",
			conditions: []*Condition{
				{Field: "status", Op: OpEq, Value: uint32(1)},
				{Conditions: []*Condition{
					{Field: "city", Op: OpEq, Value: (*string)(nil)},
				}},
			},
			wantSql:  "status = ?",
			wantArgs: []interface{}{uint32(1)},
		},
		{
			name: "in op",
			conditions: []*Condition{
				{Field: "status", Op: OpIn, Value: []uint32{1, 2}},
			},
			wantSql:  "status IN ?",
			wantArgs: []interface{}{[]uint32{1, 2}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args := ToSqlWithArgs(tt.conditions)
			assert.Equal(t, tt.wantSql, sql)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestFilterGetOrderBy(t *testing.T) {
	assert.Equal(t, "id DESC", (&Filter{}).GetOrderBy())
	assert.Equal(t, "lead_score DESC, id ASC", (&Filter{OrderBy: "lead_score DESC, id ASC"}).GetOrderBy())
}
