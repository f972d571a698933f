package patient

import (
	"context"
	"fmt"
	"sync"
)

// Recorder observes the outcome of every collection operation.
type Recorder interface {
	RecordOperation(op, outcome string)
}

// Service runs collection operations against a Store. Each operation loads
// the full collection; writes hold mu across load, mutate and save, which
// serialises writers inside this process only.
type Service struct {
	store Store
	mu    sync.Mutex
	rec   Recorder
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

func (s *Service) SetRecorder(r Recorder) { s.rec = r }

func (s *Service) record(op string, err error) {
	if s.rec != nil {
		s.rec.RecordOperation(op, Outcome(err))
	}
}

// List returns the persisted collection.
func (s *Service) List(ctx context.Context) (c *Collection, err error) {
	defer func() { s.record("list", err) }()
	return s.store.Load(ctx)
}

// Sort returns every patient ordered by field. Arguments are checked before
// the collection is read.
func (s *Service) Sort(ctx context.Context, field, order string) (ps []Patient, err error) {
	defer func() { s.record("sort", err) }()
	f, err := ParseSortField(field)
	if err != nil {
		return nil, err
	}
	o, err := ParseSortOrder(order)
	if err != nil {
		return nil, err
	}
	c, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	ps = c.Patients()
	sortPatients(ps, f, o)
	return ps, nil
}

func (s *Service) Get(ctx context.Context, id string) (p Patient, err error) {
	defer func() { s.record("get", err) }()
	c, err := s.store.Load(ctx)
	if err != nil {
		return Patient{}, err
	}
	r, ok := c.Get(id)
	if !ok {
		return Patient{}, ErrNotFound
	}
	return Patient{ID: id, Record: r}, nil
}

// Create validates the patient, rejects a taken id and persists.
func (s *Service) Create(ctx context.Context, id string, f Fields) (err error) {
	defer func() { s.record("create", err) }()
	p, err := NewPatient(id, f)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.store.Load(ctx)
	if err != nil {
		return err
	}
	if c.Has(p.ID) {
		return ErrConflict
	}
	c.Put(p.ID, p.Record)
	return s.store.Save(ctx, c)
}

// Update merges patch onto the stored record and rebuilds it, so bmi and
// verdict are recomputed whatever the patch touched.
func (s *Service) Update(ctx context.Context, id string, patch Patch) (err error) {
	defer func() { s.record("update", err) }()
	if err := patch.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.store.Load(ctx)
	if err != nil {
		return err
	}
	existing, ok := c.Get(id)
	if !ok {
		return ErrNotFound
	}
	rec, err := NewRecord(patch.Apply(existing.Fields()))
	if err != nil {
		return err
	}
	c.Put(id, rec)
	return s.store.Save(ctx, c)
}

func (s *Service) Delete(ctx context.Context, id string) (err error) {
	defer func() { s.record("delete", err) }()
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.store.Load(ctx)
	if err != nil {
		return err
	}
	if !c.Delete(id) {
		return ErrNotFound
	}
	return s.store.Save(ctx, c)
}

// Problem is a stored record that would not be accepted today.
type Problem struct {
	ID    string `json:"id"`
	Issue string `json:"issue"`
}

// Verify reports stored records that violate the record constraints or
// were persisted with a bmi or verdict that differs from the recomputed
// value.
func (s *Service) Verify(ctx context.Context) ([]Problem, error) {
	c, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	stale := make(map[string]bool)
	for _, id := range c.Stale() {
		stale[id] = true
	}
	var problems []Problem
	for _, p := range c.Patients() {
		if p.ID == "" {
			problems = append(problems, Problem{ID: p.ID, Issue: "empty id"})
		}
		want, err := NewRecord(p.Fields())
		if err != nil {
			problems = append(problems, Problem{ID: p.ID, Issue: err.Error()})
			continue
		}
		if want.Gender != p.Gender {
			problems = append(problems, Problem{ID: p.ID, Issue: fmt.Sprintf("gender %q is not normalised", p.Gender)})
		}
		if stale[p.ID] {
			problems = append(problems, Problem{
				ID:    p.ID,
				Issue: fmt.Sprintf("stored bmi/verdict did not match height and weight, expected %.2f (%s)", want.BMI, want.Verdict),
			})
		}
	}
	return problems, nil
}
