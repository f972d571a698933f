package patient

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"
)

// -- Mock Store --

// memStore keeps the encoded collection in memory so every Load decodes a
// fresh copy, the same as the real backends.
type memStore struct {
	mu      sync.Mutex
	data    []byte
	saves   int
	loadErr error
	saveErr error
}

func newMemStore(t *testing.T, c *Collection) *memStore {
	t.Helper()
	m := &memStore{}
	if c != nil {
		data, err := encodeCollection(c)
		if err != nil {
			t.Fatalf("encode: %v", err)
		}
		m.data = data
	}
	return m
}

func (m *memStore) Load(_ context.Context) (*Collection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, storageErr("load", m.loadErr)
	}
	if m.data == nil {
		return nil, missing("memory")
	}
	return decodeCollection(m.data, "memory")
}

func (m *memStore) Save(ctx context.Context, c *Collection) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return storageErr("save", err)
	}
	if m.saveErr != nil {
		return storageErr("save", m.saveErr)
	}
	data, err := encodeCollection(c)
	if err != nil {
		return err
	}
	m.data = data
	m.saves++
	return nil
}

func (m *memStore) Ping(_ context.Context) error { return nil }
func (m *memStore) Close() error                 { return nil }

type recordedOp struct{ op, outcome string }

type fakeRecorder struct {
	mu  sync.Mutex
	ops []recordedOp
}

func (r *fakeRecorder) RecordOperation(op, outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops = append(r.ops, recordedOp{op, outcome})
}

func mustRecord(t *testing.T, f Fields) Record {
	t.Helper()
	r, err := NewRecord(f)
	if err != nil {
		t.Fatalf("NewRecord: %v", err)
	}
	return r
}

// seededService stores three patients with heights 1.5, 1.8 and 1.6 in that
// order.
func seededService(t *testing.T) (*Service, *memStore) {
	t.Helper()
	c := NewCollection()
	c.Put("P001", mustRecord(t, Fields{Name: "A", City: "X", Age: 20, Gender: "male", Height: 1.5, Weight: 60}))
	c.Put("P002", mustRecord(t, Fields{Name: "B", City: "Y", Age: 30, Gender: "female", Height: 1.8, Weight: 50}))
	c.Put("P003", mustRecord(t, Fields{Name: "C", City: "Z", Age: 40, Gender: "other", Height: 1.6, Weight: 90}))
	store := newMemStore(t, c)
	return NewService(store), store
}

func ids(ps []Patient) []string {
	out := make([]string, 0, len(ps))
	for _, p := range ps {
		out = append(out, p.ID)
	}
	return out
}

func TestService_CreateGet(t *testing.T) {
	store := newMemStore(t, NewCollection())
	svc := NewService(store)
	ctx := context.Background()

	if err := svc.Create(ctx, "P010", Fields{Name: "Ravi", City: "Pune", Age: 30, Gender: "Male", Height: 1.75, Weight: 70}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	p, err := svc.Get(ctx, "P010")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if p.Gender != GenderMale || p.BMI != 22.86 || p.Verdict != VerdictNormal {
		t.Errorf("unexpected patient %+v", p)
	}
}

func TestService_Create_AppendsAtEnd(t *testing.T) {
	svc, _ := seededService(t)
	ctx := context.Background()
	if err := svc.Create(ctx, "P000", validFields()); err != nil {
		t.Fatalf("Create: %v", err)
	}
	c, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if !reflect.DeepEqual(c.IDs(), []string{"P001", "P002", "P003", "P000"}) {
		t.Errorf("unexpected order %v", c.IDs())
	}
}

func TestService_Create_Duplicate(t *testing.T) {
	svc, store := seededService(t)
	before := string(store.data)

	err := svc.Create(context.Background(), "P001", validFields())
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if string(store.data) != before || store.saves != 0 {
		t.Error("collection changed after a rejected create")
	}
}

func TestService_Create_InvalidNeverSaves(t *testing.T) {
	svc, store := seededService(t)
	f := validFields()
	f.Age = 200
	err := svc.Create(context.Background(), "P100", f)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	if store.saves != 0 {
		t.Errorf("expected no save, got %d", store.saves)
	}
}

func TestService_ExpiredDeadlineNeverSaves(t *testing.T) {
	svc, store := seededService(t)
	before := string(store.data)
	ctx, cancel := context.WithTimeout(context.Background(), -time.Second)
	defer cancel()

	errs := []error{
		svc.Create(ctx, "P100", validFields()),
		svc.Update(ctx, "P001", Patch{Weight: Some(80.0)}),
		svc.Delete(ctx, "P002"),
	}
	for i, err := range errs {
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("write %d: expected a deadline error, got %v", i, err)
		}
	}
	if store.saves != 0 || string(store.data) != before {
		t.Error("collection changed after the request deadline passed")
	}
}

func TestService_Create_TinyHeightIsInvalid(t *testing.T) {
	svc, store := seededService(t)
	f := validFields()
	f.Height = 1e-200

	err := svc.Create(context.Background(), "P100", f)
	var verr *ValidationError
	if !errors.As(err, &verr) || !verr.Has("height") {
		t.Fatalf("expected a height violation, got %v", err)
	}
	if store.saves != 0 {
		t.Errorf("expected no save, got %d", store.saves)
	}
}

func TestService_Update_WeightOnly(t *testing.T) {
	svc, _ := seededService(t)
	ctx := context.Background()

	if err := svc.Update(ctx, "P002", Patch{Weight: Some(81.0)}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	p, err := svc.Get(ctx, "P002")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if p.Name != "B" || p.City != "Y" || p.Age != 30 || p.Height != 1.8 {
		t.Errorf("unrelated fields changed: %+v", p)
	}
	if p.Weight != 81 || p.BMI != 25 || p.Verdict != VerdictOverweight {
		t.Errorf("expected recomputed bmi 25 Overweight, got %+v", p)
	}
}

func TestService_Update_EmptyPatchRederives(t *testing.T) {
	svc, store := seededService(t)
	if err := svc.Update(context.Background(), "P001", Patch{}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if store.saves != 1 {
		t.Errorf("expected one save, got %d", store.saves)
	}
}

func TestService_Update_NotFound(t *testing.T) {
	svc, store := seededService(t)
	err := svc.Update(context.Background(), "P999", Patch{Age: Some(40)})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if store.saves != 0 {
		t.Errorf("expected no save, got %d", store.saves)
	}
}

func TestService_Update_InvalidPatch(t *testing.T) {
	svc, store := seededService(t)
	err := svc.Update(context.Background(), "P001", Patch{Height: Some(-1.0)})
	var verr *ValidationError
	if !errors.As(err, &verr) || !verr.Has("height") {
		t.Fatalf("expected height violation, got %v", err)
	}
	if store.saves != 0 {
		t.Errorf("expected no save, got %d", store.saves)
	}
}

func TestService_Delete(t *testing.T) {
	svc, _ := seededService(t)
	ctx := context.Background()

	if err := svc.Delete(ctx, "P002"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := svc.Get(ctx, "P002"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	c, _ := svc.List(ctx)
	if !reflect.DeepEqual(c.IDs(), []string{"P001", "P003"}) {
		t.Errorf("unexpected ids %v", c.IDs())
	}
}

func TestService_Delete_NotFound(t *testing.T) {
	svc, store := seededService(t)
	before := string(store.data)
	if err := svc.Delete(context.Background(), "P999"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if string(store.data) != before {
		t.Error("collection changed after a failed delete")
	}
}

func TestService_Sort(t *testing.T) {
	svc, _ := seededService(t)
	ctx := context.Background()

	tests := []struct {
		field, order string
		want         []string
	}{
		{"height", "desc", []string{"P002", "P003", "P001"}},
		{"height", "asc", []string{"P001", "P003", "P002"}},
		{"weight", "asc", []string{"P002", "P001", "P003"}},
		{"bmi", "desc", []string{"P003", "P001", "P002"}},
	}
	for _, tt := range tests {
		ps, err := svc.Sort(ctx, tt.field, tt.order)
		if err != nil {
			t.Fatalf("Sort(%s, %s): %v", tt.field, tt.order, err)
		}
		if got := ids(ps); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Sort(%s, %s) = %v, want %v", tt.field, tt.order, got, tt.want)
		}
	}
}

func TestService_Sort_StableOnTies(t *testing.T) {
	c := NewCollection()
	for _, id := range []string{"c", "a", "b"} {
		c.Put(id, mustRecord(t, validFields()))
	}
	svc := NewService(newMemStore(t, c))
	for _, order := range []string{"asc", "desc"} {
		ps, err := svc.Sort(context.Background(), "bmi", order)
		if err != nil {
			t.Fatalf("Sort: %v", err)
		}
		if got := ids(ps); !reflect.DeepEqual(got, []string{"c", "a", "b"}) {
			t.Errorf("%s: ties reordered: %v", order, got)
		}
	}
}

func TestService_Sort_InvalidArguments(t *testing.T) {
	svc, store := seededService(t)
	store.loadErr = errors.New("must not be read")

	_, err := svc.Sort(context.Background(), "age", "asc")
	if !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
	if ArgumentMessage(err) != "Invalid sort_by field. Must be one of ['height', 'weight', 'bmi']" {
		t.Errorf("unexpected message %q", ArgumentMessage(err))
	}

	_, err = svc.Sort(context.Background(), "height", "up")
	if ArgumentMessage(err) != "Invalid order. Must be 'asc' or 'desc'" {
		t.Errorf("unexpected message %q", ArgumentMessage(err))
	}
}

func TestService_StorageErrors(t *testing.T) {
	svc, store := seededService(t)
	store.saveErr = errors.New("disk full")

	err := svc.Create(context.Background(), "P100", validFields())
	if !errors.Is(err, ErrStorage) {
		t.Fatalf("expected ErrStorage, got %v", err)
	}

	store.loadErr = errors.New("unreadable")
	if _, err := svc.List(context.Background()); !errors.Is(err, ErrStorage) {
		t.Errorf("expected ErrStorage, got %v", err)
	}
}

func TestService_MissingCollection(t *testing.T) {
	store := newMemStore(t, nil)
	svc := NewService(store)
	_, err := svc.List(context.Background())
	if !errors.Is(err, ErrCollectionMissing) || !errors.Is(err, ErrStorage) {
		t.Fatalf("expected missing collection storage error, got %v", err)
	}

	created, err := Initialize(context.Background(), store)
	if err != nil || !created {
		t.Fatalf("Initialize() = %v, %v", created, err)
	}
	created, err = Initialize(context.Background(), store)
	if err != nil || created {
		t.Fatalf("second Initialize() = %v, %v", created, err)
	}
	c, err := svc.List(context.Background())
	if err != nil || c.Len() != 0 {
		t.Errorf("expected empty collection, got %v %v", c, err)
	}
}

func TestService_ConcurrentCreates(t *testing.T) {
	store := newMemStore(t, NewCollection())
	svc := NewService(store)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := string(rune('A' + i))
			if err := svc.Create(context.Background(), id, validFields()); err != nil {
				t.Errorf("Create(%s): %v", id, err)
			}
		}(i)
	}
	wg.Wait()

	c, err := svc.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if c.Len() != 20 {
		t.Errorf("expected 20 patients, got %d", c.Len())
	}
}

func TestService_RecordsOutcomes(t *testing.T) {
	svc, _ := seededService(t)
	rec := &fakeRecorder{}
	svc.SetRecorder(rec)
	ctx := context.Background()

	_, _ = svc.Get(ctx, "P001")
	_, _ = svc.Get(ctx, "missing")
	_ = svc.Create(ctx, "P001", validFields())

	want := []recordedOp{
		{"get", "ok"},
		{"get", "not_found"},
		{"create", "conflict"},
	}
	if !reflect.DeepEqual(rec.ops, want) {
		t.Errorf("recorded %v, want %v", rec.ops, want)
	}
}

func TestService_Verify(t *testing.T) {
	data := []byte(`{
		"ok":     {"name": "A", "city": "X", "age": 20, "gender": "male", "height": 1.75, "weight": 70, "bmi": 22.86, "verdict": "Normal weight"},
		"stale":  {"name": "B", "city": "X", "age": 20, "gender": "male", "height": 1.75, "weight": 70, "bmi": 30, "verdict": "Obesity"},
		"upper":  {"name": "C", "city": "X", "age": 20, "gender": "Male", "height": 1.75, "weight": 70, "bmi": 22.86, "verdict": "Normal weight"},
		"old":    {"name": "D", "city": "X", "age": 200, "gender": "male", "height": 1.75, "weight": 70, "bmi": 22.86, "verdict": "Normal weight"}
	}`)
	svc := NewService(&memStore{data: data})

	problems, err := svc.Verify(context.Background())
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	got := make([]string, 0, len(problems))
	for _, p := range problems {
		got = append(got, p.ID)
	}
	if !reflect.DeepEqual(got, []string{"stale", "upper", "old"}) {
		t.Errorf("unexpected problems %+v", problems)
	}
}
