package graphql

import (
	"testing"

	"github.com/graphql-go/graphql"

	"github.com/kaleido-sync/watchagg/pkg/watch"
)

func newTestAggregator() *watch.Aggregator {
	queryData := map[watch.TargetID]*watch.QueryData{
		1: {TargetID: 1, Purpose: watch.PurposeListen},
	}
	return watch.NewAggregator(
		func(t watch.TargetID) *watch.QueryData { return queryData[t] },
		func(t watch.TargetID) *watch.OrderedSet[watch.DocumentKey] { return watch.NewOrderedSet[watch.DocumentKey]() },
	)
}

func TestSchemaTargetsQuery(t *testing.T) {
	agg := newTestAggregator()
	agg.RecordPendingTargetRequest(1)
	agg.AddTargetChange(watch.WatchTargetChange{State: watch.TargetAdded, TargetIDs: []watch.TargetID{1}, ResumeToken: watch.ResumeToken("tok")})

	schema, err := Schema(agg)
	if err != nil {
		t.Fatalf("unexpected error building schema: %v", err)
	}

	result := graphql.Do(graphql.Params{
		Schema:        schema,
		RequestString: `{ targets { targetId current resumeToken active } }`,
	})
	if len(result.Errors) > 0 {
		t.Fatalf("unexpected GraphQL errors: %v", result.Errors)
	}

	data, ok := result.Data.(map[string]interface{})
	if !ok {
		t.Fatal("expected a data map in the result")
	}
	targets, ok := data["targets"].([]interface{})
	if !ok || len(targets) != 1 {
		t.Fatalf("expected exactly one target, got %v", data["targets"])
	}
}

func TestSchemaTargetQueryMissing(t *testing.T) {
	agg := newTestAggregator()
	schema, err := Schema(agg)
	if err != nil {
		t.Fatalf("unexpected error building schema: %v", err)
	}

	result := graphql.Do(graphql.Params{
		Schema:        schema,
		RequestString: `{ target(id: 99) { targetId } }`,
	})
	if len(result.Errors) > 0 {
		t.Fatalf("unexpected GraphQL errors: %v", result.Errors)
	}
	data := result.Data.(map[string]interface{})
	if data["target"] != nil {
		t.Errorf("expected nil target for an untracked id, got %v", data["target"])
	}
}
