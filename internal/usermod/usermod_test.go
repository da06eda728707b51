package usermod

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

type fakeModule struct {
	id          uint16
	name        string
	initialized int
	polls       []time.Time
	value       int
	exportErr   error
}

func (m *fakeModule) ID() uint16   { return m.id }
func (m *fakeModule) Name() string { return m.name }
func (m *fakeModule) Initialize()  { m.initialized++ }

func (m *fakeModule) Poll(now time.Time) { m.polls = append(m.polls, now) }

func (m *fakeModule) ExportConfig(root map[string]json.RawMessage) error {
	if m.exportErr != nil {
		return m.exportErr
	}
	data, _ := json.Marshal(map[string]int{"value": m.value})
	root[m.name] = data
	return nil
}

func (m *fakeModule) LoadConfig(root map[string]json.RawMessage) bool {
	raw, ok := root[m.name]
	if !ok {
		return false
	}
	var v struct {
		Value *int `json:"value"`
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return false
	}
	if v.Value != nil {
		m.value = *v.Value
	}
	return true
}

func TestRegisterAndGet(t *testing.T) {
	r := NewRegistry()
	a := &fakeModule{id: 1, name: "a"}

	if err := r.Register(a); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, ok := r.Get(1)
	if !ok || got != a {
		t.Errorf("Get(1): got %v, %v", got, ok)
	}
	if _, ok := r.Get(2); ok {
		t.Error("Get(2): expected not found")
	}
}

func TestRegisterDuplicateID(t *testing.T) {
	r := NewRegistry()
	r.Register(&fakeModule{id: 1, name: "a"})

	err := r.Register(&fakeModule{id: 1, name: "b"})
	if !errors.Is(err, ErrDuplicateID) {
		t.Errorf("expected ErrDuplicateID, got %v", err)
	}
	if len(r.Modules()) != 1 {
		t.Errorf("expected 1 module, got %d", len(r.Modules()))
	}
}

func TestModulesOrder(t *testing.T) {
	r := NewRegistry()
	r.Register(&fakeModule{id: 9, name: "first"})
	r.Register(&fakeModule{id: 2, name: "second"})

	mods := r.Modules()
	if len(mods) != 2 || mods[0].Name() != "first" || mods[1].Name() != "second" {
		t.Errorf("unexpected order: %v", mods)
	}
}

func TestInitializeAndPoll(t *testing.T) {
	r := NewRegistry()
	a := &fakeModule{id: 1, name: "a"}
	b := &fakeModule{id: 2, name: "b"}
	r.Register(a)
	r.Register(b)

	r.Initialize()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	r.Poll(now)

	for _, m := range []*fakeModule{a, b} {
		if m.initialized != 1 {
			t.Errorf("%s: expected 1 Initialize, got %d", m.name, m.initialized)
		}
		if len(m.polls) != 1 || !m.polls[0].Equal(now) {
			t.Errorf("%s: expected one poll at %v, got %v", m.name, now, m.polls)
		}
	}
}

func TestExportConfig(t *testing.T) {
	r := NewRegistry()
	r.Register(&fakeModule{id: 1, name: "a", value: 3})
	r.Register(&fakeModule{id: 2, name: "b", value: 4})

	root, err := r.ExportConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(root["a"]) != `{"value":3}` || string(root["b"]) != `{"value":4}` {
		t.Errorf("unexpected export: a=%s b=%s", root["a"], root["b"])
	}
}

func TestExportConfigError(t *testing.T) {
	r := NewRegistry()
	r.Register(&fakeModule{id: 1, name: "a", exportErr: errors.New("boom")})

	if _, err := r.ExportConfig(); err == nil {
		t.Error("expected error")
	}
}

func TestLoadConfigReportsMissing(t *testing.T) {
	r := NewRegistry()
	a := &fakeModule{id: 1, name: "a"}
	b := &fakeModule{id: 2, name: "b"}
	r.Register(a)
	r.Register(b)

	missing := r.LoadConfig(map[string]json.RawMessage{"a": json.RawMessage(`{"value":8}`)})

	if len(missing) != 1 || missing[0] != "b" {
		t.Errorf("expected missing [b], got %v", missing)
	}
	if a.value != 8 {
		t.Errorf("expected a.value=8, got %d", a.value)
	}
}
