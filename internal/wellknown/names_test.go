package wellknown

import "testing"

func TestLookupMatchesText(t *testing.T) {
	for n := Name(1); n < nameCount; n++ {
		got, ok := Lookup(n.String())
		if !ok || got != n {
			t.Fatalf("Lookup(%q) = %v %v, want %v", n.String(), got, ok, n)
		}
	}
	if _, ok := Lookup("NoSuchName"); ok {
		t.Fatalf("unexpected hit for unknown name")
	}
	if !Is(".ctor", Ctor) || Is(".cctor", Ctor) {
		t.Fatalf("Is mismatch for constructor names")
	}
}
