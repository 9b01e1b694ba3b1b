package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore is an in-memory Store counting saves
type memStore struct {
	mu      sync.Mutex
	records []Record
	saves   int
	loadErr error
	saveErr error
}

func (m *memStore) Load() ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	res := make([]Record, len(m.records))
	copy(res, m.records)
	return res, nil
}

func (m *memStore) Save(records []Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	m.records = make([]Record, len(records))
	copy(m.records, records)
	return nil
}

type listenerMock struct {
	mu     sync.Mutex
	events []Event
}

func (l *listenerMock) OnChange(_ context.Context, ev Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
}

func seqIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func TestService_Create(t *testing.T) {
	st := &memStore{}
	lst := &listenerMock{}
	svc := NewService(st, Config{Listener: lst})

	rec, err := svc.Create(context.Background(), NewRecord{JobRole: "Backend Engineer",
		Summary: "5 YOE, Go + distributed systems", Source: "linkedin.com/x"})
	require.NoError(t, err)
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, StatusApplied, rec.Status)
	assert.Equal(t, "Backend Engineer", rec.JobRole)
	assert.Equal(t, "5 YOE, Go + distributed systems", rec.Summary)
	assert.Equal(t, "linkedin.com/x", rec.Source)

	list, err := svc.List()
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, rec, list[0])
	assert.Equal(t, 1, st.saves)

	require.Len(t, lst.events, 1)
	assert.Equal(t, EventCreated, lst.events[0].Type)
	assert.Equal(t, rec, lst.events[0].Record)
}

func TestService_CreateAcceptsEmptyFields(t *testing.T) {
	svc := NewService(&memStore{}, Config{})
	rec, err := svc.Create(context.Background(), NewRecord{})
	require.NoError(t, err)
	assert.Equal(t, StatusApplied, rec.Status)
	assert.Empty(t, rec.JobRole)
}

func TestService_CreateUniqueIDs(t *testing.T) {
	svc := NewService(&memStore{}, Config{})
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		rec, err := svc.Create(context.Background(), NewRecord{JobRole: "same role"})
		require.NoError(t, err)
		assert.False(t, seen[rec.ID], "duplicate id %s", rec.ID)
		seen[rec.ID] = true
	}
	list, err := svc.List()
	require.NoError(t, err)
	assert.Len(t, list, 100)
}

func TestService_CreateConcurrent(t *testing.T) {
	svc := NewService(&memStore{}, Config{})
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.Create(context.Background(), NewRecord{JobRole: fmt.Sprintf("role %d", i)})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	list, err := svc.List()
	require.NoError(t, err)
	assert.Len(t, list, 20, "no lost updates")
}

func TestService_ListIdempotent(t *testing.T) {
	svc := NewService(&memStore{}, Config{IDFunc: seqIDs()})
	for _, role := range []string{"a", "b", "c"} {
		_, err := svc.Create(context.Background(), NewRecord{JobRole: role})
		require.NoError(t, err)
	}

	first, err := svc.List()
	require.NoError(t, err)
	second, err := svc.List()
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, []string{"id-1", "id-2", "id-3"}, []string{first[0].ID, first[1].ID, first[2].ID}, "insertion order")
}

func TestService_ListEmpty(t *testing.T) {
	svc := NewService(&memStore{}, Config{})
	list, err := svc.List()
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestService_UpdateStatus(t *testing.T) {
	st := &memStore{}
	lst := &listenerMock{}
	svc := NewService(st, Config{IDFunc: seqIDs(), Listener: lst})
	for _, role := range []string{"a", "b", "c"} {
		_, err := svc.Create(context.Background(), NewRecord{JobRole: role, Summary: "s-" + role, Source: "src"})
		require.NoError(t, err)
	}
	before, err := svc.List()
	require.NoError(t, err)

	rec, err := svc.UpdateStatus(context.Background(), "id-2", "interview")
	require.NoError(t, err)
	assert.Equal(t, "interview", rec.Status)
	assert.Equal(t, "b", rec.JobRole)

	after, err := svc.List()
	require.NoError(t, err)
	require.Len(t, after, 3)
	assert.Equal(t, before[0], after[0])
	assert.Equal(t, before[2], after[2])
	expected := before[1]
	expected.Status = "interview"
	assert.Equal(t, expected, after[1])

	last := lst.events[len(lst.events)-1]
	assert.Equal(t, EventStatus, last.Type)
	assert.Equal(t, StatusApplied, last.PrevStatus)
	assert.Equal(t, "interview", last.Record.Status)
}

func TestService_UpdateStatusAnyString(t *testing.T) {
	svc := NewService(&memStore{}, Config{IDFunc: seqIDs()})
	_, err := svc.Create(context.Background(), NewRecord{JobRole: "a"})
	require.NoError(t, err)
	for _, status := range []string{"rejected", "", "offer 🎉", "some custom status"} {
		rec, err := svc.UpdateStatus(context.Background(), "id-1", status)
		require.NoError(t, err)
		assert.Equal(t, status, rec.Status)
	}
}

func TestService_DeleteByID(t *testing.T) {
	st := &memStore{}
	svc := NewService(st, Config{IDFunc: seqIDs()})
	for _, role := range []string{"a", "b", "c"} {
		_, err := svc.Create(context.Background(), NewRecord{JobRole: role})
		require.NoError(t, err)
	}

	rec, err := svc.DeleteByID(context.Background(), "id-2")
	require.NoError(t, err)
	assert.Equal(t, "b", rec.JobRole)

	list, err := svc.List()
	require.NoError(t, err)
	require.Len(t, list, 2)
	for _, r := range list {
		assert.NotEqual(t, "id-2", r.ID)
	}
	assert.Equal(t, "id-1", list[0].ID)
	assert.Equal(t, "id-3", list[1].ID)
}

func TestService_DeleteByRole(t *testing.T) {
	prep := func(t *testing.T, policy RolePolicy) (*Service, *listenerMock) {
		lst := &listenerMock{}
		svc := NewService(&memStore{}, Config{IDFunc: seqIDs(), RolePolicy: policy, Listener: lst})
		for _, role := range []string{"dev", "ops", "dev"} {
			_, err := svc.Create(context.Background(), NewRecord{JobRole: role})
			require.NoError(t, err)
		}
		return svc, lst
	}

	t.Run("first match by default", func(t *testing.T) {
		svc, _ := prep(t, "")
		removed, err := svc.DeleteByRole(context.Background(), "dev")
		require.NoError(t, err)
		require.Len(t, removed, 1)
		assert.Equal(t, "id-1", removed[0].ID)

		list, err := svc.List()
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, "id-2", list[0].ID)
		assert.Equal(t, "id-3", list[1].ID, "second dev record left intact")
	})

	t.Run("all matches", func(t *testing.T) {
		svc, lst := prep(t, RolePolicyAll)
		removed, err := svc.DeleteByRole(context.Background(), "dev")
		require.NoError(t, err)
		require.Len(t, removed, 2)

		list, err := svc.List()
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, "ops", list[0].JobRole)

		deletes := 0
		for _, ev := range lst.events {
			if ev.Type == EventDeleted {
				deletes++
			}
		}
		assert.Equal(t, 2, deletes)
	})
}

func TestService_NotFound(t *testing.T) {
	st := &memStore{}
	lst := &listenerMock{}
	svc := NewService(st, Config{IDFunc: seqIDs(), Listener: lst})
	_, err := svc.Create(context.Background(), NewRecord{JobRole: "a"})
	require.NoError(t, err)
	savesBefore, eventsBefore := st.saves, len(lst.events)
	before, err := svc.List()
	require.NoError(t, err)

	_, err = svc.UpdateStatus(context.Background(), "missing", "x")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.DeleteByID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.DeleteByRole(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	after, err := svc.List()
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Equal(t, savesBefore, st.saves, "no persistence write")
	assert.Len(t, lst.events, eventsBefore, "no events")
}

func TestService_StoreErrors(t *testing.T) {
	t.Run("load error", func(t *testing.T) {
		svc := NewService(&memStore{loadErr: errors.New("bad file")}, Config{})
		_, err := svc.Create(context.Background(), NewRecord{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bad file")
		_, err = svc.List()
		require.Error(t, err)
		_, err = svc.DeleteByID(context.Background(), "x")
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrNotFound)
	})

	t.Run("save error", func(t *testing.T) {
		lst := &listenerMock{}
		svc := NewService(&memStore{saveErr: errors.New("disk full")}, Config{Listener: lst})
		_, err := svc.Create(context.Background(), NewRecord{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "disk full")
		assert.Empty(t, lst.events)
	})
}

func TestParseRolePolicy(t *testing.T) {
	tbl := []struct {
		in      string
		want    RolePolicy
		wantErr bool
	}{
		{"first", RolePolicyFirst, false},
		{"ALL", RolePolicyAll, false},
		{" all ", RolePolicyAll, false},
		{"some", "", true},
		{"", "", true},
	}
	for _, tt := range tbl {
		t.Run(tt.in, func(t *testing.T) {
			res, err := ParseRolePolicy(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, res)
		})
	}
}

func TestEvent_String(t *testing.T) {
	rec := Record{ID: "id1", JobRole: "dev", Status: "offer", Source: "pasted"}
	assert.Equal(t, `job "dev" added (id1), source: pasted`, Event{Type: EventCreated, Record: rec}.String())
	assert.Equal(t, `job "dev" (id1) status changed: applied -> offer`,
		Event{Type: EventStatus, Record: rec, PrevStatus: "applied"}.String())
	assert.Equal(t, `job "dev" (id1) deleted`, Event{Type: EventDeleted, Record: rec}.String())
}
