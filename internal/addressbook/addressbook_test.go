package addressbook

import (
	"testing"

	"backend/internal/models"
)

func TestAppendAddressDemotesOldDefault(t *testing.T) {
	list := []models.Address{
		{ID: "a1", Title: "Home", IsDefault: true},
		{ID: "a2", Title: "Work"},
	}

	out := appendAddress(list, models.Address{ID: "a3", Title: "Gym", IsDefault: true})
	if len(out) != 3 {
		t.Fatalf("expected 3 addresses, got %d", len(out))
	}
	defaults := 0
	for _, addr := range out {
		if addr.IsDefault {
			defaults++
			if addr.ID != "a3" {
				t.Fatalf("expected a3 to be the default, got %s", addr.ID)
			}
		}
	}
	if defaults != 1 {
		t.Fatalf("expected exactly one default, got %d", defaults)
	}
	if list[0].IsDefault != true {
		t.Fatal("input slice must not be mutated")
	}
}

func TestAppendAddressNonDefaultKeepsExisting(t *testing.T) {
	list := []models.Address{{ID: "a1", IsDefault: true}}

	out := appendAddress(list, models.Address{ID: "a2"})
	if !out[0].IsDefault {
		t.Fatal("existing default must survive a non-default add")
	}
}

func TestReplaceAddressKeepsID(t *testing.T) {
	list := []models.Address{
		{ID: "a1", Title: "Home", IsDefault: true},
		{ID: "a2", Title: "Work"},
	}

	out, replaced, ok := replaceAddress(list, "a2", models.Address{Title: "Office", IsDefault: true})
	if !ok {
		t.Fatal("expected the replace to find a2")
	}
	if replaced.ID != "a2" {
		t.Fatalf("id must be preserved, got %q", replaced.ID)
	}
	if replaced.Title != "Office" {
		t.Fatalf("expected updated title, got %q", replaced.Title)
	}
	if out[0].IsDefault {
		t.Fatal("old default must be demoted")
	}
}

func TestReplaceAddressUnknownID(t *testing.T) {
	list := []models.Address{{ID: "a1"}}

	if _, _, ok := replaceAddress(list, "missing", models.Address{Title: "X"}); ok {
		t.Fatal("unknown id must not replace anything")
	}
}

func TestRemoveAddress(t *testing.T) {
	list := []models.Address{{ID: "a1"}, {ID: "a2"}, {ID: "a3"}}

	out, ok := removeAddress(list, "a2")
	if !ok {
		t.Fatal("expected the remove to find a2")
	}
	if len(out) != 2 || out[0].ID != "a1" || out[1].ID != "a3" {
		t.Fatalf("unexpected remainder %v", out)
	}

	if _, ok := removeAddress(list, "missing"); ok {
		t.Fatal("unknown id must not remove anything")
	}
}

func TestNormalizeTrimsFields(t *testing.T) {
	addr := normalize(models.Address{Title: "  Home ", Detail: " 12 Main St ", Note: " ring twice "})
	if addr.Title != "Home" || addr.Detail != "12 Main St" || addr.Note != "ring twice" {
		t.Fatalf("unexpected normalized address %+v", addr)
	}
}

func TestNewAddressIDShape(t *testing.T) {
	id, err := newAddressID()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(id) != 36 {
		t.Fatalf("expected uuid-shaped id, got %q", id)
	}
	other, _ := newAddressID()
	if id == other {
		t.Fatal("ids must not repeat")
	}
}
