package graphql

import (
	"github.com/graphql-go/graphql"

	"github.com/kaleido-sync/watchagg/pkg/watch"
)

// Resolver binds the GraphQL schema's field resolvers to an Aggregator.
type Resolver struct {
	agg *watch.Aggregator
}

// NewResolver creates a new Resolver over agg.
func NewResolver(agg *watch.Aggregator) *Resolver {
	return &Resolver{agg: agg}
}

// targetView is the GraphQL-facing projection of a watch.TargetSnapshot.
type targetView struct {
	TargetID         int64
	PendingResponses int
	Current          bool
	ResumeToken      string
	Active           bool
}

func (r *Resolver) toView(snap watch.TargetSnapshot) targetView {
	return targetView{
		TargetID:         int64(snap.TargetID),
		PendingResponses: snap.PendingResponses,
		Current:          snap.Current,
		ResumeToken:      string(snap.ResumeToken),
		Active:           snap.Active,
	}
}

// ResolveTarget resolves the `target(id: Int!)` query field.
func (r *Resolver) ResolveTarget(p graphql.ResolveParams) (interface{}, error) {
	id, ok := p.Args["id"].(int)
	if !ok {
		return nil, nil
	}

	snap, ok := r.agg.TargetSnapshotFor(watch.TargetID(id))
	if !ok {
		return nil, nil
	}
	return r.toView(snap), nil
}

// ResolveTargets resolves the `targets` query field.
func (r *Resolver) ResolveTargets(p graphql.ResolveParams) (interface{}, error) {
	ids := r.agg.TrackedTargets()
	views := make([]targetView, 0, len(ids))
	for _, id := range ids {
		if snap, ok := r.agg.TargetSnapshotFor(id); ok {
			views = append(views, r.toView(snap))
		}
	}
	return views, nil
}
