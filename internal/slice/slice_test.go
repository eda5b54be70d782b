package slice

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/deskops/helpdesk-admin/internal/domain"
	"github.com/deskops/helpdesk-admin/internal/events"
	"github.com/deskops/helpdesk-admin/internal/payload"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeService struct {
	list   func(ctx context.Context, filter url.Values) (any, error)
	create func(ctx context.Context, p domain.Record) (any, error)
	update func(ctx context.Context, id string, p domain.Record) (any, error)
	remove func(ctx context.Context, id string) (any, error)
}

func (f *fakeService) List(ctx context.Context, filter url.Values) (any, error) {
	return f.list(ctx, filter)
}

func (f *fakeService) Create(ctx context.Context, p domain.Record) (any, error) {
	return f.create(ctx, p)
}

func (f *fakeService) Update(ctx context.Context, id string, p domain.Record) (any, error) {
	return f.update(ctx, id, p)
}

func (f *fakeService) Delete(ctx context.Context, id string) (any, error) {
	return f.remove(ctx, id)
}

type statusError struct {
	status int
	body   any
}

func (e statusError) Error() string     { return "backend error" }
func (e statusError) StatusCode() int   { return e.status }
func (e statusError) ResponseBody() any { return e.body }

var (
	categories = domain.Resource{Name: "categories", Entity: "category", Collection: "categories", IDField: "category_id"}.Normalize()
	priorities = domain.Resource{Name: "priorities", Entity: "priority", Collection: "priorities", IDField: "priority_id"}.Normalize()
)

func seeded(t *testing.T, res domain.Resource, svc *fakeService, items []any, opts ...Option) *Slice {
	t.Helper()
	svc.list = func(context.Context, url.Values) (any, error) {
		return map[string]any{res.Collection: items}, nil
	}
	s := New(res, svc, opts...)
	require.NoError(t, s.FetchAll(context.Background(), nil))
	return s
}

func ids(t *testing.T, s *Slice, field string) []any {
	t.Helper()
	var out []any
	for _, item := range s.Snapshot().Items {
		out = append(out, item[field])
	}
	return out
}

func TestNewSliceStartsEmptyAndIdle(t *testing.T) {
	s := New(categories, &fakeService{})
	state := s.Snapshot()

	assert.Empty(t, state.Items)
	assert.False(t, state.Loading)
	assert.Nil(t, state.Error)
	assert.Nil(t, state.LastUpdated)
	for _, op := range []Op{OpFetch, OpCreate, OpUpdate, OpDelete} {
		assert.Equal(t, PhaseIdle, state.Status[op])
	}
}

func TestFetchAllReplacesItems(t *testing.T) {
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := &fakeService{}
	var gotFilter url.Values
	svc.list = func(_ context.Context, filter url.Values) (any, error) {
		gotFilter = filter
		return map[string]any{"categories": []any{map[string]any{"category_id": float64(1), "name": "A"}}}, nil
	}
	s := New(categories, svc, WithClock(func() time.Time { return fixed }))

	filter := url.Values{"includeInactive": {"true"}}
	require.NoError(t, s.FetchAll(context.Background(), filter))

	state := s.Snapshot()
	assert.Equal(t, []domain.Record{{"category_id": float64(1), "name": "A"}}, state.Items)
	assert.False(t, state.Loading)
	assert.Nil(t, state.Error)
	require.NotNil(t, state.LastUpdated)
	assert.Equal(t, fixed, *state.LastUpdated)
	assert.Equal(t, PhaseFulfilled, state.Status[OpFetch])
	assert.Equal(t, filter, gotFilter)
}

func TestFetchAllFailurePreservesItems(t *testing.T) {
	svc := &fakeService{}
	s := seeded(t, categories, svc, []any{map[string]any{"category_id": 1}})
	before := s.Snapshot()

	svc.list = func(context.Context, url.Values) (any, error) {
		return nil, statusError{500, map[string]any{"message": "database offline"}}
	}
	err := s.FetchAll(context.Background(), nil)

	var errPayload *payload.ErrorPayload
	require.ErrorAs(t, err, &errPayload)
	state := s.Snapshot()
	assert.Equal(t, before.Items, state.Items)
	assert.Equal(t, before.LastUpdated, state.LastUpdated)
	require.NotNil(t, state.Error)
	assert.Equal(t, "database offline", state.Error.Message)
	assert.Equal(t, PhaseRejected, state.Status[OpFetch])
	assert.False(t, state.Loading)
}

func TestFetchAllUnrecognizedShapeIsRejected(t *testing.T) {
	svc := &fakeService{}
	s := seeded(t, categories, svc, []any{map[string]any{"category_id": 1}})

	svc.list = func(context.Context, url.Values) (any, error) {
		return map[string]any{"message": "ok"}, nil
	}
	require.Error(t, s.FetchAll(context.Background(), nil))

	state := s.Snapshot()
	assert.Len(t, state.Items, 1)
	assert.Equal(t, payload.CodeUnrecognized, state.Error.Code)
}

func TestCreatePrependsEntity(t *testing.T) {
	slas := domain.Resource{Name: "slas", Entity: "sla", IDField: "sla_id"}.Normalize()
	svc := &fakeService{}
	s := seeded(t, slas, svc, []any{map[string]any{"sla_id": float64(1)}, map[string]any{"sla_id": float64(2)}})

	svc.create = func(_ context.Context, p domain.Record) (any, error) {
		entity := p.Merge(domain.Record{"sla_id": float64(7)})
		return map[string]any{"sla": map[string]any(entity)}, nil
	}
	created, err := s.Create(context.Background(), domain.Record{"name": "Fast", "response_target_minutes": float64(30)})
	require.NoError(t, err)

	assert.Equal(t, float64(7), created["sla_id"])
	assert.Equal(t, []any{float64(7), float64(1), float64(2)}, ids(t, s, "sla_id"))
	assert.Equal(t, "Fast", s.Snapshot().Items[0]["name"])
	assert.Equal(t, PhaseFulfilled, s.Snapshot().Status[OpCreate])
}

func TestCreateFailureLeavesItems(t *testing.T) {
	svc := &fakeService{}
	s := seeded(t, categories, svc, []any{map[string]any{"category_id": 1}})

	svc.create = func(context.Context, domain.Record) (any, error) {
		return nil, errors.New("connection reset")
	}
	_, err := s.Create(context.Background(), domain.Record{"name": "B"})
	require.Error(t, err)

	state := s.Snapshot()
	assert.Len(t, state.Items, 1)
	assert.Equal(t, payload.CodeTransport, state.Error.Code)
	assert.Equal(t, "connection reset", state.Error.Message)
	assert.Equal(t, PhaseRejected, state.Status[OpCreate])
}

func TestCreateWithoutEntityIsRejected(t *testing.T) {
	svc := &fakeService{}
	s := seeded(t, categories, svc, []any{map[string]any{"category_id": 1}})

	svc.create = func(context.Context, domain.Record) (any, error) {
		return map[string]any{"message": "created"}, nil
	}
	_, err := s.Create(context.Background(), domain.Record{"name": "B"})
	require.Error(t, err)
	assert.Len(t, s.Snapshot().Items, 1)
	assert.Equal(t, payload.CodeUnrecognized, s.Snapshot().Error.Code)
}

func TestUpdateMergesAndPreservesFields(t *testing.T) {
	svc := &fakeService{}
	s := seeded(t, categories, svc, []any{
		map[string]any{"category_id": float64(1), "a": float64(1), "b": float64(2)},
		map[string]any{"category_id": float64(2), "a": float64(5)},
	})

	svc.update = func(_ context.Context, id string, p domain.Record) (any, error) {
		assert.Equal(t, "1", id)
		return map[string]any{"data": map[string]any{"category_id": float64(1), "a": float64(9)}}, nil
	}
	updated, err := s.Update(context.Background(), "1", domain.Record{"a": float64(9)})
	require.NoError(t, err)

	want := domain.Record{"category_id": float64(1), "a": float64(9), "b": float64(2)}
	assert.Equal(t, want, updated)
	assert.Equal(t, want, s.Snapshot().Items[0])
	assert.Equal(t, float64(5), s.Snapshot().Items[1]["a"])
}

func TestUpdateUsesPatchWhenResponseHasNoEntity(t *testing.T) {
	svc := &fakeService{}
	s := seeded(t, categories, svc, []any{map[string]any{"category_id": "1", "name": "old", "is_active": true}})

	svc.update = func(context.Context, string, domain.Record) (any, error) {
		return map[string]any{"message": "updated"}, nil
	}
	updated, err := s.Update(context.Background(), "1", domain.Record{"name": "new"})
	require.NoError(t, err)
	assert.Equal(t, domain.Record{"category_id": "1", "name": "new", "is_active": true}, updated)
}

func TestUpdateMissIsNoOp(t *testing.T) {
	svc := &fakeService{}
	s := seeded(t, categories, svc, []any{map[string]any{"category_id": float64(1)}, map[string]any{"category_id": float64(2)}})
	before := s.Snapshot().Items

	svc.update = func(context.Context, string, domain.Record) (any, error) {
		return map[string]any{"category": map[string]any{"category_id": float64(999), "name": "ghost"}}, nil
	}
	updated, err := s.Update(context.Background(), "999", domain.Record{"name": "ghost"})
	require.NoError(t, err)
	assert.Nil(t, updated)

	state := s.Snapshot()
	assert.Equal(t, before, state.Items)
	assert.Nil(t, state.Error)
	assert.Equal(t, PhaseFulfilled, state.Status[OpUpdate])
}

func TestUpdateFailureLeavesItems(t *testing.T) {
	svc := &fakeService{}
	s := seeded(t, categories, svc, []any{map[string]any{"category_id": float64(1), "name": "A"}})

	svc.update = func(context.Context, string, domain.Record) (any, error) {
		return nil, statusError{422, map[string]any{"errors": []any{"name taken"}}}
	}
	_, err := s.Update(context.Background(), "1", domain.Record{"name": "B"})
	require.Error(t, err)

	state := s.Snapshot()
	assert.Equal(t, "A", state.Items[0]["name"])
	assert.Equal(t, "name taken", state.Error.Message)
	assert.Equal(t, 422, state.Error.Status)
}

func TestUpdateSyncsNestedSystemUser(t *testing.T) {
	systems := domain.Resource{
		Name: "systems", Entity: "system", IDField: "system_id",
		Nested: []domain.NestedSync{{Field: "system_user", Keys: []string{"is_active"}}},
	}.Normalize()
	svc := &fakeService{}
	s := seeded(t, systems, svc, []any{map[string]any{
		"system_id":   float64(4),
		"is_active":   true,
		"system_user": map[string]any{"user_id": float64(10), "is_active": true},
	}})

	updated, err := s.UpdateWith(context.Background(), "4", domain.Record{"is_active": false}, func(context.Context) (any, error) {
		return map[string]any{"message": "status changed"}, nil
	})
	require.NoError(t, err)

	assert.Equal(t, false, updated["is_active"])
	user := s.Snapshot().Items[0]["system_user"].(map[string]any)
	assert.Equal(t, false, user["is_active"])
	assert.Equal(t, float64(10), user["user_id"])
}

func TestDeleteRemovesExactlyOne(t *testing.T) {
	svc := &fakeService{}
	s := seeded(t, priorities, svc, []any{
		map[string]any{"priority_id": float64(1)},
		map[string]any{"priority_id": float64(2)},
		map[string]any{"priority_id": float64(3)},
	})

	svc.remove = func(_ context.Context, id string) (any, error) {
		assert.Equal(t, "2", id)
		return map[string]any{"message": "deleted"}, nil
	}
	require.NoError(t, s.Delete(context.Background(), "2"))
	assert.Equal(t, []any{float64(1), float64(3)}, ids(t, s, "priority_id"))
}

func TestDeleteMatchesGenericID(t *testing.T) {
	svc := &fakeService{}
	s := seeded(t, priorities, svc, []any{
		map[string]any{"priority_id": float64(4)},
		map[string]any{"id": float64(5), "name": "legacy"},
		map[string]any{"priority_id": float64(6)},
	})

	svc.remove = func(context.Context, string) (any, error) {
		return map[string]any{"priority": map[string]any{"priority_id": float64(5)}}, nil
	}
	require.NoError(t, s.Delete(context.Background(), "5"))

	for _, item := range s.Snapshot().Items {
		assert.False(t, item.MatchesID("priority_id", "5"))
	}
	assert.Len(t, s.Snapshot().Items, 2)
}

func TestDeleteFailureLeavesItems(t *testing.T) {
	svc := &fakeService{}
	s := seeded(t, priorities, svc, []any{map[string]any{"priority_id": float64(1)}})

	svc.remove = func(context.Context, string) (any, error) {
		return nil, statusError{403, map[string]any{"message": "forbidden"}}
	}
	require.Error(t, s.Delete(context.Background(), "1"))
	assert.Len(t, s.Snapshot().Items, 1)
	assert.Equal(t, PhaseRejected, s.Snapshot().Status[OpDelete])
}

func mixedPriorities() []any {
	return []any{
		map[string]any{"priority_id": float64(1), "id": float64(2), "name": "LOW"},
		map[string]any{"priority_id": float64(2), "id": float64(10), "name": "MEDIUM"},
		map[string]any{"priority_id": float64(3), "id": float64(11), "name": "URGENT"},
	}
}

func TestDeleteWithBothIdentifiersRemovesOnlyResourceMatch(t *testing.T) {
	svc := &fakeService{}
	s := seeded(t, priorities, svc, mixedPriorities())

	svc.remove = func(context.Context, string) (any, error) {
		return map[string]any{"message": "deleted"}, nil
	}
	require.NoError(t, s.Delete(context.Background(), "2"))
	assert.Equal(t, []any{float64(1), float64(3)}, ids(t, s, "priority_id"))
}

func TestUpdateWithBothIdentifiersTargetsResourceMatch(t *testing.T) {
	svc := &fakeService{}
	s := seeded(t, priorities, svc, mixedPriorities())

	svc.update = func(context.Context, string, domain.Record) (any, error) {
		return map[string]any{"message": "updated"}, nil
	}
	updated, err := s.Update(context.Background(), "2", domain.Record{"name": "HIGH"})
	require.NoError(t, err)
	assert.Equal(t, float64(2), updated["priority_id"])

	items := s.Snapshot().Items
	assert.Equal(t, []any{float64(1), float64(2), float64(3)}, ids(t, s, "priority_id"))
	assert.Equal(t, "LOW", items[0]["name"])
	assert.Equal(t, "HIGH", items[1]["name"])
}

func TestDeleteIgnoresDifferentEchoedID(t *testing.T) {
	svc := &fakeService{}
	s := seeded(t, priorities, svc, mixedPriorities())

	svc.remove = func(context.Context, string) (any, error) {
		return map[string]any{"message": "deleted", "id": float64(11)}, nil
	}
	require.NoError(t, s.Delete(context.Background(), "1"))
	assert.Equal(t, []any{float64(2), float64(3)}, ids(t, s, "priority_id"))
}

func TestCreateRejectsEnvelopeWithoutID(t *testing.T) {
	svc := &fakeService{}
	s := seeded(t, categories, svc, []any{map[string]any{"category_id": float64(1)}})

	svc.create = func(context.Context, domain.Record) (any, error) {
		return map[string]any{"message": "created", "data": map[string]any{"affectedRows": float64(1)}}, nil
	}
	rec, err := s.Create(context.Background(), domain.Record{"name": "B"})
	require.Error(t, err)
	assert.Nil(t, rec)

	state := s.Snapshot()
	assert.Equal(t, []any{float64(1)}, ids(t, s, "category_id"))
	assert.Equal(t, payload.CodeUnrecognized, state.Error.Code)
	assert.Equal(t, PhaseRejected, state.Status[OpCreate])
}

func TestPendingOperationClearsError(t *testing.T) {
	svc := &fakeService{}
	s := seeded(t, categories, svc, nil)
	svc.list = func(context.Context, url.Values) (any, error) { return nil, errors.New("boom") }
	require.Error(t, s.FetchAll(context.Background(), nil))
	require.NotNil(t, s.Snapshot().Error)

	started := make(chan struct{})
	release := make(chan struct{})
	svc.create = func(context.Context, domain.Record) (any, error) {
		close(started)
		<-release
		return map[string]any{"category_id": float64(3)}, nil
	}
	done := make(chan error, 1)
	go func() {
		_, err := s.Create(context.Background(), domain.Record{})
		done <- err
	}()
	<-started

	pending := s.Snapshot()
	assert.Nil(t, pending.Error)
	assert.True(t, pending.Loading)
	assert.Equal(t, PhasePending, pending.Status[OpCreate])

	close(release)
	require.NoError(t, <-done)
	assert.False(t, s.Snapshot().Loading)
}

func TestClearError(t *testing.T) {
	svc := &fakeService{list: func(context.Context, url.Values) (any, error) { return nil, errors.New("down") }}
	s := New(categories, svc)
	require.Error(t, s.FetchAll(context.Background(), nil))

	s.ClearError()
	assert.Nil(t, s.Snapshot().Error)
}

func TestSnapshotIsIsolated(t *testing.T) {
	svc := &fakeService{}
	s := seeded(t, categories, svc, []any{map[string]any{"category_id": float64(1), "name": "A"}})

	snap := s.Snapshot()
	snap.Items[0]["name"] = "mutated"
	snap.Status[OpFetch] = PhaseIdle

	assert.Equal(t, "A", s.Snapshot().Items[0]["name"])
	assert.Equal(t, PhaseFulfilled, s.Snapshot().Status[OpFetch])

	found, ok := s.Find("1")
	require.True(t, ok)
	found["name"] = "other"
	assert.Equal(t, "A", s.Snapshot().Items[0]["name"])
}

// overlappingFetches starts a slow fetch, completes a fast one while the slow
// one is still in flight, then releases the slow one.
func overlappingFetches(t *testing.T, opts ...Option) (s *Slice, midLoading bool, slowErr error) {
	t.Helper()
	slowStarted := make(chan struct{})
	release := make(chan struct{})
	var mu sync.Mutex
	calls := 0

	svc := &fakeService{}
	svc.list = func(context.Context, url.Values) (any, error) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		if n == 1 {
			close(slowStarted)
			<-release
			return []any{map[string]any{"category_id": "slow"}}, nil
		}
		return []any{map[string]any{"category_id": "fast"}}, nil
	}
	s = New(categories, svc, opts...)

	done := make(chan error, 1)
	go func() { done <- s.FetchAll(context.Background(), nil) }()
	<-slowStarted

	require.NoError(t, s.FetchAll(context.Background(), nil))
	midLoading = s.Snapshot().Loading

	close(release)
	slowErr = <-done
	return s, midLoading, slowErr
}

func TestOverlappingFetchesLastSettlementWins(t *testing.T) {
	s, midLoading, slowErr := overlappingFetches(t)

	require.NoError(t, slowErr)
	assert.False(t, midLoading, "settling the fast fetch clears loading")
	assert.Equal(t, []any{"slow"}, ids(t, s, "category_id"))
	assert.False(t, s.Snapshot().Loading)
}

func TestOverlappingFetchesLatestRequestWins(t *testing.T) {
	s, midLoading, slowErr := overlappingFetches(t, WithLatestRequestWins())

	require.ErrorIs(t, slowErr, ErrStaleResponse)
	assert.True(t, midLoading, "slow fetch still in flight")
	assert.Equal(t, []any{"fast"}, ids(t, s, "category_id"))

	state := s.Snapshot()
	assert.False(t, state.Loading)
	assert.Equal(t, PhaseFulfilled, state.Status[OpFetch])
}

func TestLatestRequestWinsDiscardsFetchOverlappingDelete(t *testing.T) {
	fetchStarted := make(chan struct{})
	release := make(chan struct{})
	svc := &fakeService{}
	s := seeded(t, priorities, svc, []any{map[string]any{"priority_id": "1"}, map[string]any{"priority_id": "2"}}, WithLatestRequestWins())

	svc.list = func(context.Context, url.Values) (any, error) {
		close(fetchStarted)
		<-release
		return []any{map[string]any{"priority_id": "1"}, map[string]any{"priority_id": "2"}}, nil
	}
	svc.remove = func(context.Context, string) (any, error) { return nil, nil }

	done := make(chan error, 1)
	go func() { done <- s.FetchAll(context.Background(), nil) }()
	<-fetchStarted

	require.NoError(t, s.Delete(context.Background(), "2"))
	close(release)
	require.ErrorIs(t, <-done, ErrStaleResponse)

	assert.Equal(t, []any{"1"}, ids(t, s, "priority_id"))
}

type recordedOp struct {
	resource, op, outcome string
}

type fakeRecorder struct {
	mu  sync.Mutex
	ops []recordedOp
}

func (f *fakeRecorder) RecordOperation(resource, op, outcome string, _ time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ops = append(f.ops, recordedOp{resource, op, outcome})
}

func TestSettledOperationsPublishEventsAndMetrics(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	var got []events.Event
	for _, et := range events.AllTypes() {
		dispatcher.Subscribe(et, func(_ context.Context, e events.Event) error {
			got = append(got, e)
			return nil
		})
	}
	recorder := &fakeRecorder{}

	svc := &fakeService{}
	s := seeded(t, categories, svc, []any{map[string]any{"category_id": float64(1)}},
		WithDispatcher(dispatcher), WithMetrics(recorder))

	svc.remove = func(context.Context, string) (any, error) {
		return nil, statusError{404, map[string]any{"message": "gone"}}
	}
	require.Error(t, s.Delete(context.Background(), "1"))

	require.Len(t, got, 2)
	assert.Equal(t, events.EventResourceFetched, got[0].Type)
	assert.Equal(t, events.FetchedPayload{Count: 1}, got[0].Payload)
	assert.NotEmpty(t, got[0].ID)

	assert.Equal(t, events.EventResourceFailed, got[1].Type)
	assert.Equal(t, "delete", got[1].Operation)
	assert.Equal(t, "1", got[1].EntityID)
	assert.Equal(t, events.FailedPayload{Code: payload.CodeUpstream, Message: "gone", Status: 404}, got[1].Payload)

	assert.Equal(t, []recordedOp{
		{"categories", "fetch", "fulfilled"},
		{"categories", "delete", "rejected"},
	}, recorder.ops)
}
