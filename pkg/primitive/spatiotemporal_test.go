package primitive

import (
	"testing"
	"time"
)

func TestAnchorSpatiotemporalLastWeekCalendar(t *testing.T) {
	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC) // a Friday
	tr, _ := AnchorSpatiotemporal("what happened last week", now, TaskContextGeneral, nil)
	if tr == nil {
		t.Fatal("expected a resolved time range")
	}
	if tr.End.After(now) {
		t.Fatalf("last week must end before now, got end=%v now=%v", tr.End, now)
	}
}

func TestAnchorSpatiotemporalFinancialLastWeekIsClosedBusinessWeek(t *testing.T) {
	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	tr, _ := AnchorSpatiotemporal("last week's closing balance", now, TaskContextFinancial, nil)
	if tr == nil {
		t.Fatal("expected a resolved time range")
	}
	if tr.End.Weekday() != time.Friday {
		t.Fatalf("financial week must end on a Friday, got %v", tr.End.Weekday())
	}
}

type fakeGeo struct{ known map[string]string }

func (g fakeGeo) Resolve(place string) (string, bool) {
	v, ok := g.known[place]
	return v, ok
}

func TestAnchorSpatiotemporalResolvesPlace(t *testing.T) {
	geo := fakeGeo{known: map[string]string{"Paris": "FR-75"}}
	_, place := AnchorSpatiotemporal("the Paris office", time.Now(), TaskContextGeneral, geo)
	if place != "FR-75" {
		t.Fatalf("expected resolved place FR-75, got %q", place)
	}
}
