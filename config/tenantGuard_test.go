package config

import (
	"sync"
	"testing"

	"gorm.io/gorm/clause"
	"gorm.io/gorm/schema"
)

type tenantScopedModel struct {
	ID         int
	BusinessId string
	Name       string
}

type unscopedModel struct {
	ID   int
	Name string
}

func TestSchemaHasBusinessId(t *testing.T) {
	cache := &sync.Map{}
	namer := schema.NamingStrategy{}

	scoped, err := schema.Parse(&tenantScopedModel{}, cache, namer)
	if err != nil {
		t.Fatalf("parse scoped model: %v", err)
	}
	if !schemaHasBusinessId(scoped) {
		t.Fatal("model with BusinessId not recognized as tenant scoped")
	}

	unscoped, err := schema.Parse(&unscopedModel{}, cache, namer)
	if err != nil {
		t.Fatalf("parse unscoped model: %v", err)
	}
	if schemaHasBusinessId(unscoped) {
		t.Fatal("model without BusinessId recognized as tenant scoped")
	}

	if schemaHasBusinessId(nil) {
		t.Fatal("nil schema recognized as tenant scoped")
	}
}

func TestWhereFiltersBusinessId(t *testing.T) {
	cases := []struct {
		name string
		expr clause.Expression
		want bool
	}{
		{"eq on business_id", clause.Eq{Column: "business_id", Value: "b1"}, true},
		{"eq on qualified column", clause.Eq{Column: clause.Column{Table: "invoices", Name: "business_id"}, Value: "b1"}, true},
		{"eq on other column", clause.Eq{Column: "customer_id", Value: 7}, false},
		{"in on business_id", clause.IN{Column: "business_id", Values: []interface{}{"b1"}}, true},
		{"raw condition", clause.Expr{SQL: "business_id = ? AND current_status = ?"}, true},
		{"raw unrelated", clause.Expr{SQL: "customer_id = ?"}, false},
		{"nested and", clause.AndConditions{Exprs: []clause.Expression{
			clause.Eq{Column: "customer_id", Value: 7},
			clause.Eq{Column: "business_id", Value: "b1"},
		}}, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := clause.Clause{Expression: clause.Where{Exprs: []clause.Expression{tc.expr}}}
			if got := whereFiltersBusinessId(c); got != tc.want {
				t.Fatalf("whereFiltersBusinessId = %v, want %v", got, tc.want)
			}
		})
	}

	if whereFiltersBusinessId(clause.Clause{}) {
		t.Fatal("empty clause reported as filtering business_id")
	}
}
