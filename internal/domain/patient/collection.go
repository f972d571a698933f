package patient

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Collection maps patient ids to records and remembers the order in which
// ids were first seen, so a load/save round trip keeps the stored layout
// and new patients are appended at the end.
type Collection struct {
	ids     []string
	records map[string]Record
	stale   []string
}

func NewCollection() *Collection {
	return &Collection{records: make(map[string]Record)}
}

func (c *Collection) Len() int { return len(c.ids) }

func (c *Collection) Has(id string) bool {
	_, ok := c.records[id]
	return ok
}

func (c *Collection) Get(id string) (Record, bool) {
	r, ok := c.records[id]
	return r, ok
}

// Put stores r under id, keeping the position of an existing id.
func (c *Collection) Put(id string, r Record) {
	if _, ok := c.records[id]; !ok {
		c.ids = append(c.ids, id)
	}
	c.records[id] = r
}

// Delete removes id and reports whether it was present.
func (c *Collection) Delete(id string) bool {
	if _, ok := c.records[id]; !ok {
		return false
	}
	delete(c.records, id)
	for i, v := range c.ids {
		if v == id {
			c.ids = append(c.ids[:i], c.ids[i+1:]...)
			break
		}
	}
	return true
}

// IDs returns the ids in stored order.
func (c *Collection) IDs() []string {
	out := make([]string, len(c.ids))
	copy(out, c.ids)
	return out
}

// Stale lists ids whose decoded bmi or verdict disagreed with the value
// recomputed from height and weight.
func (c *Collection) Stale() []string {
	out := make([]string, len(c.stale))
	copy(out, c.stale)
	return out
}

// Patients returns every record with its id, in stored order.
func (c *Collection) Patients() []Patient {
	out := make([]Patient, 0, len(c.ids))
	for _, id := range c.ids {
		out = append(out, Patient{ID: id, Record: c.records[id]})
	}
	return out
}

// MarshalJSON writes the collection as one object keyed by id, in stored
// order.
func (c *Collection) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, id := range c.ids {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(id)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(c.records[id])
		if err != nil {
			return nil, fmt.Errorf("encode patient %s: %w", id, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads an id-keyed object, keeping key order. A repeated key
// keeps its first position and its last value. Derived fields are
// recomputed from height and weight rather than taken from the input.
func (c *Collection) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("patient collection must be a JSON object")
	}
	fresh := NewCollection()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		id, ok := tok.(string)
		if !ok {
			return fmt.Errorf("unexpected token %v", tok)
		}
		var r Record
		if err := dec.Decode(&r); err != nil {
			return fmt.Errorf("decode patient %s: %w", id, err)
		}
		before := r
		r.rederive()
		if r != before {
			fresh.stale = append(fresh.stale, id)
		}
		fresh.Put(id, r)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*c = *fresh
	return nil
}
