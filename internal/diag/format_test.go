package diag

import "testing"

func TestFormatShort(t *testing.T) {
	bag := NewBag(10)
	r := NewDedupReporter(BagReporter{Bag: bag})
	ReportWarning(r, EmitResourceHashUnavailable, "data.bin", "open data.bin:\nno such file").Emit()
	ReportWarning(r, EmitResourceHashUnavailable, "data.bin", "open data.bin:\nno such file").Emit()
	ReportError(r, EmitUnresolvedLocation, "Lib.Widget", "unknown:location").
		WithNote("App.Program::Main", "referenced here").
		Emit()
	bag.Sort()

	want := "error EMT3001 Lib.Widget: unknown:location\n" +
		"  note EMT3001 App.Program::Main: referenced here\n" +
		"warning EMT3004 data.bin: open data.bin: no such file"
	if got := FormatShort(bag.Items(), true); got != want {
		t.Fatalf("unexpected output:\nwant:\n%s\n\ngot:\n%s", want, got)
	}
	if !bag.HasErrors() || bag.Len() != 2 {
		t.Fatalf("bag state: errors=%v len=%d", bag.HasErrors(), bag.Len())
	}
}

func TestBagLimit(t *testing.T) {
	bag := NewBag(1)
	if !bag.Add(NewError(EmitMalformedIR, "", "a")) {
		t.Fatalf("first add rejected")
	}
	if bag.Add(NewError(EmitMalformedIR, "", "b")) {
		t.Fatalf("limit not enforced")
	}
}
