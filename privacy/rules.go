package privacy

import (
	"context"
	"fmt"
	"slices"

	"github.com/syssam/quarry/query"
)

// Viewer represents the authenticated user issuing statements.
type Viewer interface {
	// GetID returns the viewer's unique identifier.
	GetID() string
	// GetRoles returns the viewer's roles.
	GetRoles() []string
	// GetTenantID returns the viewer's tenant, or "" outside multi-tenant
	// setups.
	GetTenantID() string
}

type viewerCtxKey struct{}

// WithViewer returns a new context with the viewer attached.
func WithViewer(ctx context.Context, viewer Viewer) context.Context {
	return context.WithValue(ctx, viewerCtxKey{}, viewer)
}

// ViewerFromContext retrieves the viewer from the context, or nil.
func ViewerFromContext(ctx context.Context) Viewer {
	v, _ := ctx.Value(viewerCtxKey{}).(Viewer)
	return v
}

// SimpleViewer is a basic implementation of the Viewer interface.
type SimpleViewer struct {
	UserID   string
	Roles    []string
	TenantID string
}

// GetID returns the user ID.
func (v *SimpleViewer) GetID() string { return v.UserID }

// GetRoles returns the user's roles.
func (v *SimpleViewer) GetRoles() []string { return v.Roles }

// GetTenantID returns the tenant ID.
func (v *SimpleViewer) GetTenantID() string { return v.TenantID }

// DenyIfNoViewer returns a rule that denies every statement issued
// without a viewer in the context.
//
//	privacy.Policy{Mutation: privacy.MutationPolicy{
//	    privacy.DenyIfNoViewer(),
//	    privacy.HasRole("admin"),
//	    privacy.AlwaysDenyRule(),
//	}}
func DenyIfNoViewer() QueryMutationRule {
	return ContextQueryMutationRule(func(ctx context.Context) error {
		if ViewerFromContext(ctx) == nil {
			return Denyf("privacy: viewer required")
		}
		return Skip
	})
}

// HasRole returns a rule that allows viewers with the given role and
// skips otherwise.
func HasRole(role string) QueryMutationRule {
	return HasAnyRole(role)
}

// HasAnyRole returns a rule that allows viewers with any of the given
// roles and skips otherwise.
func HasAnyRole(roles ...string) QueryMutationRule {
	return ContextQueryMutationRule(func(ctx context.Context) error {
		viewer := ViewerFromContext(ctx)
		if viewer == nil {
			return Skip
		}
		for _, role := range roles {
			if slices.Contains(viewer.GetRoles(), role) {
				return Allow
			}
		}
		return Skip
	})
}

// IsOwner returns a mutation rule that allows inserts and updates writing
// the viewer's id to column, in every row.
func IsOwner(column string) MutationRule {
	return MutationRuleFunc(func(ctx context.Context, m *Mutation) error {
		viewer := ViewerFromContext(ctx)
		if viewer == nil {
			return Skip
		}
		values, ok := m.Values(column)
		if !ok {
			return Skip
		}
		for _, v := range values {
			if text(v) != viewer.GetID() {
				return Skip
			}
		}
		return Allow
	})
}

// TenantRule returns a mutation rule that allows inserts and updates
// writing the viewer's tenant to column, and denies those writing another
// tenant.
func TenantRule(column string) MutationRule {
	return MutationRuleFunc(func(ctx context.Context, m *Mutation) error {
		viewer := ViewerFromContext(ctx)
		if viewer == nil || viewer.GetTenantID() == "" {
			return Skip
		}
		values, ok := m.Values(column)
		if !ok {
			return Skip
		}
		for _, v := range values {
			if text(v) != viewer.GetTenantID() {
				return Denyf("privacy: tenant mismatch on %s", m.Table.Name())
			}
		}
		return Allow
	})
}

// OwnerQueryRule returns a query rule denying queries without a viewer.
// The query itself must filter on the owner.
func OwnerQueryRule() QueryRule {
	return QueryRuleFunc(func(ctx context.Context, _ query.Selectable) error {
		if ViewerFromContext(ctx) == nil {
			return Denyf("privacy: viewer required for owner-filtered query")
		}
		return Skip
	})
}

// TenantQueryRule returns a query rule denying queries without a viewer
// or tenant.
func TenantQueryRule() QueryRule {
	return QueryRuleFunc(func(ctx context.Context, _ query.Selectable) error {
		viewer := ViewerFromContext(ctx)
		if viewer == nil {
			return Denyf("privacy: viewer required for tenant-filtered query")
		}
		if viewer.GetTenantID() == "" {
			return Denyf("privacy: tenant required")
		}
		return Skip
	})
}

func text(v any) string {
	switch v := v.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}
