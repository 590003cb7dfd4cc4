// Package pgxcasbin persists Casbin policy rules in a Postgres table through
// pgx. The table layout is (ptype, v0..v5) and is created by migrations.
package pgxcasbin

import (
	"context"

	"github.com/casbin/casbin/v3/model"
	"github.com/casbin/casbin/v3/persist"
)

// Adapter stores and retrieves Casbin policies using pgx.
type Adapter struct {
	store *store
}

var (
	_ persist.Adapter             = (*Adapter)(nil)
	_ persist.ContextAdapter      = (*Adapter)(nil)
	_ persist.BatchAdapter        = (*Adapter)(nil)
	_ persist.ContextBatchAdapter = (*Adapter)(nil)
)

// Option configures an Adapter.
type Option func(*Adapter)

// WithTableName overrides the default rule table name.
func WithTableName(tableName string) Option {
	return func(a *Adapter) {
		a.store.setTableName(tableName)
	}
}

// NewAdapter creates a pgx-backed Casbin adapter. The rule table must exist.
func NewAdapter(ctx context.Context, db Commander, opts ...Option) (*Adapter, error) {
	if db == nil {
		return nil, ErrNilDB
	}
	if err := db.Ping(ctx); err != nil {
		return nil, err
	}

	adapter := &Adapter{store: newStore(db)}
	for _, opt := range opts {
		opt(adapter)
	}

	return adapter, nil
}

// Seed inserts rules that are not stored yet. Existing rules are left as is.
func (a *Adapter) Seed(ctx context.Context, ptype string, rules [][]string) error {
	return a.store.insertMany(ctx, ptype, rules)
}

// LoadPolicyCtx loads all policies into the model.
func (a *Adapter) LoadPolicyCtx(ctx context.Context, m model.Model) error {
	lines, err := a.store.selectAll(ctx)
	if err != nil {
		return err
	}

	for _, line := range lines {
		if err := persist.LoadPolicyArray(line, m); err != nil {
			return err
		}
	}
	return nil
}

// SavePolicyCtx replaces the stored policies with the ones in the model.
func (a *Adapter) SavePolicyCtx(ctx context.Context, m model.Model) error {
	var lines [][]string
	for _, sec := range []string{"p", "g"} {
		for ptype, ast := range m[sec] {
			for _, rule := range ast.Policy {
				lines = append(lines, append([]string{ptype}, rule...))
			}
		}
	}
	return a.store.replaceAll(ctx, lines)
}

// AddPolicyCtx adds a single policy rule.
func (a *Adapter) AddPolicyCtx(ctx context.Context, _ string, ptype string, rule []string) error {
	return a.store.insertMany(ctx, ptype, [][]string{rule})
}

// AddPoliciesCtx adds multiple policy rules.
func (a *Adapter) AddPoliciesCtx(ctx context.Context, _ string, ptype string, rules [][]string) error {
	return a.store.insertMany(ctx, ptype, rules)
}

// RemovePolicyCtx removes a single policy rule.
func (a *Adapter) RemovePolicyCtx(ctx context.Context, _ string, ptype string, rule []string) error {
	return a.store.deleteMany(ctx, ptype, [][]string{rule})
}

// RemovePoliciesCtx removes multiple policy rules.
func (a *Adapter) RemovePoliciesCtx(ctx context.Context, _ string, ptype string, rules [][]string) error {
	return a.store.deleteMany(ctx, ptype, rules)
}

// RemoveFilteredPolicyCtx removes rules whose fields from fieldIndex on match
// fieldValues. Empty values match anything.
func (a *Adapter) RemoveFilteredPolicyCtx(ctx context.Context, _ string, ptype string, fieldIndex int, fieldValues ...string) error {
	return a.store.deleteWhere(ctx, ptype, fieldIndex, fieldValues...)
}

func (a *Adapter) LoadPolicy(m model.Model) error {
	return a.LoadPolicyCtx(context.Background(), m)
}

func (a *Adapter) SavePolicy(m model.Model) error {
	return a.SavePolicyCtx(context.Background(), m)
}

func (a *Adapter) AddPolicy(sec, ptype string, rule []string) error {
	return a.AddPolicyCtx(context.Background(), sec, ptype, rule)
}

func (a *Adapter) AddPolicies(sec, ptype string, rules [][]string) error {
	return a.AddPoliciesCtx(context.Background(), sec, ptype, rules)
}

func (a *Adapter) RemovePolicy(sec, ptype string, rule []string) error {
	return a.RemovePolicyCtx(context.Background(), sec, ptype, rule)
}

func (a *Adapter) RemovePolicies(sec, ptype string, rules [][]string) error {
	return a.RemovePoliciesCtx(context.Background(), sec, ptype, rules)
}

func (a *Adapter) RemoveFilteredPolicy(sec, ptype string, fieldIndex int, fieldValues ...string) error {
	return a.RemoveFilteredPolicyCtx(context.Background(), sec, ptype, fieldIndex, fieldValues...)
}
