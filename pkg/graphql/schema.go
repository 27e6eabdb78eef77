package graphql

import (
	"github.com/graphql-go/graphql"

	"github.com/kaleido-sync/watchagg/pkg/watch"
)

// Schema builds the introspection GraphQL schema over an Aggregator: a
// `target(id)` lookup and a `targets` listing, both read-only.
func Schema(agg *watch.Aggregator) (graphql.Schema, error) {
	targetType := graphql.NewObject(graphql.ObjectConfig{
		Name:        "Target",
		Description: "A watch target's current bookkeeping in the aggregator",
		Fields: graphql.Fields{
			"targetId": &graphql.Field{
				Type:        graphql.NewNonNull(graphql.Int),
				Description: "The target's id",
			},
			"pendingResponses": &graphql.Field{
				Type:        graphql.NewNonNull(graphql.Int),
				Description: "Outstanding ADD/REMOVE acks owed by the server",
			},
			"current": &graphql.Field{
				Type:        graphql.NewNonNull(graphql.Boolean),
				Description: "Whether the server has declared this target caught up",
			},
			"resumeToken": &graphql.Field{
				Type:        graphql.NewNonNull(graphql.String),
				Description: "The target's last-known resume token",
			},
			"active": &graphql.Field{
				Type:        graphql.NewNonNull(graphql.Boolean),
				Description: "Whether the target currently has QueryData and no pending acks",
			},
		},
	})

	resolver := NewResolver(agg)

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"target": &graphql.Field{
				Type: targetType,
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{
						Type: graphql.NewNonNull(graphql.Int),
					},
				},
				Resolve: resolver.ResolveTarget,
			},
			"targets": &graphql.Field{
				Type:    graphql.NewList(graphql.NewNonNull(targetType)),
				Resolve: resolver.ResolveTargets,
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: queryType,
	})
}
