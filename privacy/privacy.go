package privacy

import (
	"context"
	"errors"
	"fmt"

	"github.com/syssam/quarry/compiler"
	"github.com/syssam/quarry/expr"
	"github.com/syssam/quarry/query"
	"github.com/syssam/quarry/schema"
)

// Policy decision sentinel errors.
//
// Rules return them, possibly wrapped, to steer the evaluation. Use
// errors.Is to check for them:
//
//	if errors.Is(err, privacy.Deny) { ... }
var (
	// Allow may be returned by rules to indicate that the policy
	// evaluation should terminate with an allow decision.
	Allow = errors.New("privacy: allow rule")

	// Deny may be returned by rules to indicate that the policy
	// evaluation should terminate with a deny decision.
	Deny = errors.New("privacy: deny rule")

	// Skip may be returned by rules to indicate that the policy
	// evaluation should continue to the next rule in the chain.
	Skip = errors.New("privacy: skip rule")
)

// Allowf returns a formatted wrapped Allow decision.
func Allowf(format string, a ...any) error {
	return fmt.Errorf(format+": %w", append(a, Allow)...)
}

// Denyf returns a formatted wrapped Deny decision.
func Denyf(format string, a ...any) error {
	return fmt.Errorf(format+": %w", append(a, Deny)...)
}

// Skipf returns a formatted wrapped Skip decision.
func Skipf(format string, a ...any) error {
	return fmt.Errorf(format+": %w", append(a, Skip)...)
}

// AlwaysAllowRule returns a rule that always returns an Allow decision.
func AlwaysAllowRule() QueryMutationRule {
	return fixedDecision{Allow}
}

// AlwaysDenyRule returns a rule that always returns a Deny decision.
func AlwaysDenyRule() QueryMutationRule {
	return fixedDecision{Deny}
}

// ContextQueryMutationRule creates a rule from a function of the context
// only. Returning nil is equivalent to returning Skip.
func ContextQueryMutationRule(eval func(context.Context) error) QueryMutationRule {
	return contextDecision{eval}
}

type (
	// QueryRule decides whether a row-producing statement may run.
	QueryRule interface {
		EvalQuery(context.Context, query.Selectable) error
	}

	// QueryPolicy combines multiple query rules into a single policy.
	QueryPolicy []QueryRule

	// MutationRule decides whether an insert, update or delete may run.
	MutationRule interface {
		EvalMutation(context.Context, *Mutation) error
	}

	// MutationPolicy combines multiple mutation rules into a single policy.
	MutationPolicy []MutationRule

	// QueryMutationRule is an interface which groups query and mutation rules.
	QueryMutationRule interface {
		QueryRule
		MutationRule
	}
)

// Mutation describes an insert, update or delete under evaluation.
type Mutation struct {
	Op    compiler.Op
	Table *schema.Descriptor
	Stmt  query.Statement
}

// NewMutation describes stmt. It fails for statements that are not
// mutations.
func NewMutation(stmt query.Statement) (*Mutation, error) {
	switch s := stmt.(type) {
	case *query.InsertStmt:
		return &Mutation{Op: compiler.OpInsert, Table: s.Node().Table, Stmt: s}, nil
	case *query.UpdateStmt:
		return &Mutation{Op: compiler.OpUpdate, Table: s.Node().Table, Stmt: s}, nil
	case *query.DeleteStmt:
		return &Mutation{Op: compiler.OpDelete, Table: s.Node().Table, Stmt: s}, nil
	default:
		return nil, fmt.Errorf("privacy: %T is not a mutation", stmt)
	}
}

// Values returns the host values the mutation writes to column, one per
// inserted row or a single one for updates. The second result is false
// when the column is not written, or is written from an expression.
func (m *Mutation) Values(column string) ([]any, bool) {
	switch s := m.Stmt.(type) {
	case *query.InsertStmt:
		n := s.Node()
		i := -1
		for j, c := range n.Columns {
			if c == column {
				i = j
			}
		}
		if i < 0 || len(n.Rows) == 0 {
			return nil, false
		}
		vs := make([]any, 0, len(n.Rows))
		for _, row := range n.Rows {
			v, ok := hostValue(row[i])
			if !ok {
				return nil, false
			}
			vs = append(vs, v)
		}
		return vs, true
	case *query.UpdateStmt:
		for _, a := range s.Node().Set {
			if a.Column == column {
				v, ok := hostValue(a.Value)
				if !ok {
					return nil, false
				}
				return []any{v}, true
			}
		}
	}
	return nil, false
}

func hostValue(e expr.Expr) (any, bool) {
	l, ok := e.(*expr.Literal)
	if !ok || l.Null {
		return nil, false
	}
	return l.Value, true
}

// MutationRuleFunc type is an adapter which allows the use of
// ordinary functions as mutation rules.
type MutationRuleFunc func(context.Context, *Mutation) error

// EvalMutation returns f(ctx, m).
func (f MutationRuleFunc) EvalMutation(ctx context.Context, m *Mutation) error {
	return f(ctx, m)
}

// QueryRuleFunc type is an adapter which allows the use of ordinary
// functions as query rules.
type QueryRuleFunc func(context.Context, query.Selectable) error

// EvalQuery returns f(ctx, q).
func (f QueryRuleFunc) EvalQuery(ctx context.Context, q query.Selectable) error {
	return f(ctx, q)
}

// OnMutationOperation evaluates the given rule only on a given mutation operation.
func OnMutationOperation(rule MutationRule, op compiler.Op) MutationRule {
	return MutationRuleFunc(func(ctx context.Context, m *Mutation) error {
		if m.Op == op {
			return rule.EvalMutation(ctx, m)
		}
		return Skip
	})
}

// OnTables evaluates the given rule only on mutations of the named tables.
func OnTables(rule MutationRule, tables ...string) MutationRule {
	return MutationRuleFunc(func(ctx context.Context, m *Mutation) error {
		for _, t := range tables {
			if m.Table.Name() == t {
				return rule.EvalMutation(ctx, m)
			}
		}
		return Skip
	})
}

// DenyMutationOperationRule returns a rule denying specified mutation operation.
func DenyMutationOperationRule(op compiler.Op) MutationRule {
	rule := MutationRuleFunc(func(_ context.Context, m *Mutation) error {
		return Denyf("privacy: operation %s is not allowed", m.Op)
	})
	return OnMutationOperation(rule, op)
}

// AllowMutationOperationRule returns a rule allowing specified mutation operation.
func AllowMutationOperationRule(op compiler.Op) MutationRule {
	rule := MutationRuleFunc(func(context.Context, *Mutation) error {
		return Allow
	})
	return OnMutationOperation(rule, op)
}

// Policy groups query and mutation policies.
type Policy struct {
	Query    QueryPolicy
	Mutation MutationPolicy
}

// Eval evaluates stmt against the policy. A decision attached to ctx with
// DecisionContext wins over the rules. It returns nil when the statement
// may run, and the deny decision otherwise.
func (p Policy) Eval(ctx context.Context, stmt query.Statement) error {
	if decision, ok := DecisionFromContext(ctx); ok {
		return decision
	}
	var decision error
	if q, ok := stmt.(query.Selectable); ok {
		decision = p.Query.EvalQuery(ctx, q)
	} else {
		m, err := NewMutation(stmt)
		if err != nil {
			return err
		}
		decision = p.Mutation.EvalMutation(ctx, m)
	}
	if decision == nil || errors.Is(decision, Skip) || errors.Is(decision, Allow) {
		return nil
	}
	return decision
}

// EvalQuery evaluates a query against a query policy.
func (policies QueryPolicy) EvalQuery(ctx context.Context, q query.Selectable) error {
	for _, policy := range policies {
		switch decision := policy.EvalQuery(ctx, q); {
		case decision == nil || errors.Is(decision, Skip):
		default:
			return decision
		}
	}
	return nil
}

// EvalMutation evaluates a mutation against a mutation policy.
func (policies MutationPolicy) EvalMutation(ctx context.Context, m *Mutation) error {
	for _, policy := range policies {
		switch decision := policy.EvalMutation(ctx, m); {
		case decision == nil || errors.Is(decision, Skip):
		default:
			return decision
		}
	}
	return nil
}

type decisionCtxKey struct{}

// DecisionContext creates a new context from the given parent context with
// a policy decision attach to it.
func DecisionContext(parent context.Context, decision error) context.Context {
	if decision == nil || errors.Is(decision, Skip) {
		return parent
	}
	return context.WithValue(parent, decisionCtxKey{}, decision)
}

// DecisionFromContext retrieves the policy decision from the context.
func DecisionFromContext(ctx context.Context) (error, bool) {
	decision, ok := ctx.Value(decisionCtxKey{}).(error)
	if ok && errors.Is(decision, Allow) {
		decision = nil
	}
	return decision, ok
}

type fixedDecision struct {
	decision error
}

func (f fixedDecision) EvalQuery(context.Context, query.Selectable) error {
	return f.decision
}

func (f fixedDecision) EvalMutation(context.Context, *Mutation) error {
	return f.decision
}

type contextDecision struct {
	eval func(context.Context) error
}

func (c contextDecision) EvalQuery(ctx context.Context, _ query.Selectable) error {
	return c.eval(ctx)
}

func (c contextDecision) EvalMutation(ctx context.Context, _ *Mutation) error {
	return c.eval(ctx)
}

var _ QueryMutationRule = AlwaysAllowRule()
