// Package privacy decides whether statements may run, before they are
// compiled.
//
// A Policy holds query rules, evaluated for row-producing statements, and
// mutation rules, evaluated for inserts, updates and deletes. Rules return
// Allow, Deny or Skip, possibly wrapped; the first non-Skip decision ends
// the evaluation. When every rule skips, the statement runs.
//
//	policy := privacy.Policy{
//	    Query: privacy.QueryPolicy{privacy.TenantQueryRule()},
//	    Mutation: privacy.MutationPolicy{
//	        privacy.DenyIfNoViewer(),
//	        privacy.HasRole("admin"),
//	        privacy.OnTables(privacy.IsOwner("owner_id"), "document"),
//	        privacy.AlwaysDenyRule(),
//	    },
//	}
//	conn := session.New(runner, session.WithPolicy(policy))
//	ctx = privacy.WithViewer(ctx, &privacy.SimpleViewer{UserID: "42", Roles: []string{"user"}})
//
// Mutation rules see the host values a statement writes through
// Mutation.Values. A decision attached with DecisionContext bypasses the
// rules, which lets trusted code run statements on behalf of the system:
//
//	ctx = privacy.DecisionContext(ctx, privacy.Allow)
package privacy
