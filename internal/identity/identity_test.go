package identity

import (
	"context"
	"fmt"
	"testing"

	"kiln/internal/scene"
)

const knownID = "4f8a2b6c-1d3e-4a5b-9c7d-0e1f2a3b4c5d"

type stubRegistry struct {
	ids    map[string]string
	saved  map[string]string
	lookup error
}

func newStubRegistry() *stubRegistry {
	return &stubRegistry{ids: make(map[string]string), saved: make(map[string]string)}
}

func (r *stubRegistry) LookupIdentity(_ context.Context, name string) (string, bool, error) {
	if r.lookup != nil {
		return "", false, r.lookup
	}
	id, ok := r.ids[name]
	return id, ok, nil
}

func (r *stubRegistry) SaveIdentity(_ context.Context, name, id, hash string) error {
	r.saved[name] = id
	return nil
}

func TestValid(t *testing.T) {
	cases := []struct {
		id   string
		want bool
	}{
		{knownID, true},
		{"", false},
		{"not-a-uuid", false},
		{"4f8a2b6c-1d3e-4a5b-9c7d-0e1f2a3b4c5", false},  // 35 chars
		{"4f8a2b6c1d3e4a5b9c7d0e1f2a3b4c5d0000", false}, // 36 chars, no hyphens
		{"zf8a2b6c-1d3e-4a5b-9c7d-0e1f2a3b4c5d", false},
	}
	for _, tc := range cases {
		if got := Valid(tc.id); got != tc.want {
			t.Errorf("Valid(%q) = %v, want %v", tc.id, got, tc.want)
		}
	}
}

func TestEnsureKeepsExistingIdentity(t *testing.T) {
	reg := newStubRegistry()
	mat := &scene.Material{Name: "Paint", Identity: knownID}

	id, err := Ensure(context.Background(), reg, mat)
	if err != nil {
		t.Fatalf("Ensure failed: %v", err)
	}
	if id != knownID {
		t.Fatalf("id = %q, want existing identity", id)
	}
	if len(reg.saved) != 0 {
		t.Fatal("registry written for a material that already had an identity")
	}
}

func TestEnsureRecoversIdentityFromRegistry(t *testing.T) {
	reg := newStubRegistry()
	reg.ids["Paint"] = knownID
	mat := &scene.Material{Name: "Paint"}

	id, err := Ensure(context.Background(), reg, mat)
	if err != nil {
		t.Fatalf("Ensure failed: %v", err)
	}
	if id != knownID || mat.Identity != knownID {
		t.Fatalf("id = %q, material identity = %q", id, mat.Identity)
	}
}

func TestEnsureAssignsAndRecordsNewIdentity(t *testing.T) {
	reg := newStubRegistry()
	mat := &scene.Material{Name: "Paint", Identity: "garbage"}

	id, err := Ensure(context.Background(), reg, mat)
	if err != nil {
		t.Fatalf("Ensure failed: %v", err)
	}
	if !Valid(id) {
		t.Fatalf("assigned identity %q is malformed", id)
	}
	if mat.Identity != id {
		t.Fatal("material not updated in place")
	}
	if reg.saved["Paint"] != id {
		t.Fatal("new identity not recorded")
	}
}

func TestEnsureWorksWithoutRegistry(t *testing.T) {
	mat := &scene.Material{Name: "Paint"}
	id, err := Ensure(context.Background(), nil, mat)
	if err != nil {
		t.Fatalf("Ensure failed: %v", err)
	}
	if !Valid(id) {
		t.Fatalf("assigned identity %q is malformed", id)
	}
}

func TestEnsurePropagatesLookupError(t *testing.T) {
	reg := newStubRegistry()
	reg.lookup = fmt.Errorf("catalog locked")
	mat := &scene.Material{Name: "Paint"}

	if _, err := Ensure(context.Background(), reg, mat); err == nil {
		t.Fatal("lookup error swallowed")
	}
}
