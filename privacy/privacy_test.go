package privacy_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/quarry/compiler"
	"github.com/syssam/quarry/expr"
	"github.com/syssam/quarry/privacy"
	"github.com/syssam/quarry/query"
	"github.com/syssam/quarry/schema"
	"github.com/syssam/quarry/schema/field"
)

var document = schema.MustTable("document", []schema.ColumnDef{
	schema.AutoID("id", field.TypeInt),
	schema.Column("owner_id", field.TypeInt),
	schema.Column("tenant", field.TypeString),
	schema.Column("title", field.TypeString),
})

var (
	selectDocs = query.From(document).Select(expr.F("title", document.C("title")))
	insertDocs = query.InsertInto(document).ValuesMany([]query.Values{
		{"owner_id": 42, "tenant": "acme", "title": "a"},
		{"owner_id": 42, "tenant": "acme", "title": "b"},
	})
	updateDoc = query.Update(document).
			Set(query.Values{"title": "c", "tenant": "foo"}).
			Where(expr.EQ(document.C("id"), 1))
	deleteDoc = query.DeleteFrom(document).Where(expr.EQ(document.C("id"), 1))
)

func mutation(t *testing.T, stmt query.Statement) *privacy.Mutation {
	t.Helper()
	m, err := privacy.NewMutation(stmt)
	require.NoError(t, err)
	return m
}

func TestDecisions(t *testing.T) {
	err := privacy.Denyf("no access to %s", "document")
	assert.ErrorIs(t, err, privacy.Deny)
	assert.Equal(t, "no access to document: privacy: deny rule", err.Error())
	assert.ErrorIs(t, privacy.Allowf("ok"), privacy.Allow)
	assert.ErrorIs(t, privacy.Skipf("later"), privacy.Skip)
}

func TestNewMutation(t *testing.T) {
	tests := []struct {
		name string
		stmt query.Statement
		op   compiler.Op
	}{
		{"insert", insertDocs, compiler.OpInsert},
		{"update", updateDoc, compiler.OpUpdate},
		{"delete", deleteDoc, compiler.OpDelete},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := mutation(t, tt.stmt)
			assert.Equal(t, tt.op, m.Op)
			assert.Same(t, document, m.Table)
		})
	}
	_, err := privacy.NewMutation(selectDocs)
	assert.Error(t, err)
}

func TestMutationValues(t *testing.T) {
	vs, ok := mutation(t, insertDocs).Values("owner_id")
	require.True(t, ok)
	assert.Equal(t, []any{42, 42}, vs)

	vs, ok = mutation(t, updateDoc).Values("tenant")
	require.True(t, ok)
	assert.Equal(t, []any{"foo"}, vs)

	_, ok = mutation(t, updateDoc).Values("owner_id")
	assert.False(t, ok)
	_, ok = mutation(t, deleteDoc).Values("owner_id")
	assert.False(t, ok)

	computed := query.Update(document).
		Set(query.Values{"title": expr.Concat(document.C("title"), "!")}).
		Where(expr.EQ(document.C("id"), 1))
	_, ok = mutation(t, computed).Values("title")
	assert.False(t, ok)
}

func TestPolicyEval(t *testing.T) {
	ctx := context.Background()
	policy := privacy.Policy{
		Query: privacy.QueryPolicy{privacy.AlwaysAllowRule()},
		Mutation: privacy.MutationPolicy{
			privacy.DenyMutationOperationRule(compiler.OpDelete),
			privacy.AllowMutationOperationRule(compiler.OpInsert),
			privacy.AlwaysDenyRule(),
		},
	}
	tests := []struct {
		name string
		stmt query.Statement
		deny bool
	}{
		{"select", selectDocs, false},
		{"insert", insertDocs, false},
		{"update", updateDoc, true},
		{"delete", deleteDoc, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := policy.Eval(ctx, tt.stmt)
			if tt.deny {
				assert.ErrorIs(t, err, privacy.Deny)
			} else {
				assert.NoError(t, err)
			}
		})
	}

	t.Run("empty policy allows", func(t *testing.T) {
		assert.NoError(t, privacy.Policy{}.Eval(ctx, deleteDoc))
	})

	t.Run("decision context", func(t *testing.T) {
		assert.NoError(t, policy.Eval(privacy.DecisionContext(ctx, privacy.Allow), deleteDoc))
		err := policy.Eval(privacy.DecisionContext(ctx, privacy.Denyf("read only")), selectDocs)
		assert.ErrorIs(t, err, privacy.Deny)
		assert.NoError(t, policy.Eval(privacy.DecisionContext(ctx, privacy.Skip), insertDocs))
	})

	t.Run("custom error", func(t *testing.T) {
		boom := errors.New("boom")
		p := privacy.Policy{Query: privacy.QueryPolicy{
			privacy.QueryRuleFunc(func(context.Context, query.Selectable) error { return boom }),
		}}
		assert.ErrorIs(t, p.Eval(ctx, selectDocs), boom)
	})
}

func TestOnTables(t *testing.T) {
	ctx := context.Background()
	rule := privacy.OnTables(privacy.AlwaysDenyRule(), "document")
	assert.ErrorIs(t, rule.EvalMutation(ctx, mutation(t, deleteDoc)), privacy.Deny)

	other := privacy.OnTables(privacy.AlwaysDenyRule(), "company")
	assert.ErrorIs(t, other.EvalMutation(ctx, mutation(t, deleteDoc)), privacy.Skip)
}
