package config

import (
	"strings"

	"github.com/ledgerline/invoicing_backend/appctx"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/schema"
)

// TenantGuardPlugin scopes query/update/delete statements to the request's
// business_id whenever the model carries that column. It is a safety net
// behind the explicit business_id filters in the model layer, not a
// replacement for them.
//
// Raw SQL is NOT covered; report queries must filter business_id themselves.
// Internal tooling bypasses the guard via appctx.ContextKeySkipTenantScope
// or appctx.ContextKeyIsAdmin.
type TenantGuardPlugin struct{}

func NewTenantGuardPlugin() *TenantGuardPlugin { return &TenantGuardPlugin{} }

func (p *TenantGuardPlugin) Name() string { return "tenant_guard" }

func (p *TenantGuardPlugin) Initialize(db *gorm.DB) error {
	if err := db.Callback().Query().Before("gorm:query").Register("tenant_guard:query", scopeToTenant); err != nil {
		return err
	}
	if err := db.Callback().Row().Before("gorm:row").Register("tenant_guard:row", scopeToTenant); err != nil {
		return err
	}
	if err := db.Callback().Update().Before("gorm:update").Register("tenant_guard:update", scopeToTenant); err != nil {
		return err
	}
	return db.Callback().Delete().Before("gorm:delete").Register("tenant_guard:delete", scopeToTenant)
}

func scopeToTenant(db *gorm.DB) {
	if db == nil || db.Statement == nil || db.Statement.Context == nil {
		return
	}
	ctx := db.Statement.Context

	if appctx.GetBool(ctx, appctx.ContextKeySkipTenantScope) || appctx.GetBool(ctx, appctx.ContextKeyIsAdmin) {
		return
	}
	businessId, ok := appctx.GetString(ctx, appctx.ContextKeyBusinessId)
	if !ok || businessId == "" {
		return
	}

	if !schemaHasBusinessId(db.Statement.Schema) {
		return
	}
	// Don't duplicate an explicit tenant filter.
	if whereFiltersBusinessId(db.Statement.Clauses["WHERE"]) {
		return
	}

	db.Statement.AddClause(clause.Where{
		Exprs: []clause.Expression{
			clause.Eq{
				Column: clause.Column{Table: db.Statement.Table, Name: "business_id"},
				Value:  businessId,
			},
		},
	})
}

func schemaHasBusinessId(s *schema.Schema) bool {
	if s == nil {
		return false
	}
	for _, f := range s.Fields {
		if strings.EqualFold(f.DBName, "business_id") {
			return true
		}
	}
	return false
}

func whereFiltersBusinessId(c clause.Clause) bool {
	w, ok := c.Expression.(clause.Where)
	if !ok {
		return false
	}
	for _, e := range w.Exprs {
		if exprFiltersBusinessId(e) {
			return true
		}
	}
	return false
}

func exprFiltersBusinessId(e clause.Expression) bool {
	switch v := e.(type) {
	case clause.Eq:
		return columnIsBusinessId(v.Column)
	case clause.Neq:
		return columnIsBusinessId(v.Column)
	case clause.IN:
		return columnIsBusinessId(v.Column)
	case clause.AndConditions:
		for _, x := range v.Exprs {
			if exprFiltersBusinessId(x) {
				return true
			}
		}
		return false
	case clause.OrConditions:
		for _, x := range v.Exprs {
			if exprFiltersBusinessId(x) {
				return true
			}
		}
		return false
	case clause.Expr:
		// Best-effort for raw conditions like "business_id = ? AND ...".
		return strings.Contains(strings.ToLower(v.SQL), "business_id")
	default:
		return false
	}
}

func columnIsBusinessId(col any) bool {
	switch c := col.(type) {
	case string:
		return strings.EqualFold(c, "business_id")
	case clause.Column:
		return strings.EqualFold(c.Name, "business_id")
	default:
		return false
	}
}
