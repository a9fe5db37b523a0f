package repo

import (
	"reflect"
	"testing"
)

type row struct {
	ID   int64
	Note string
}

func TestCollapseByIDKeepsFirstSeen(t *testing.T) {
	rows := []row{
		{ID: 1, Note: "first"},
		{ID: 1, Note: "dup"},
		{ID: 2, Note: "only"},
		{ID: 3, Note: "first"},
		{ID: 3, Note: "dup"},
		{ID: 3, Note: "dup"},
	}
	got := CollapseByID(rows, func(r row) int64 { return r.ID })
	want := []row{
		{ID: 1, Note: "first"},
		{ID: 2, Note: "only"},
		{ID: 3, Note: "first"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestCollapseByIDEmpty(t *testing.T) {
	if got := CollapseByID(nil, func(r row) int64 { return r.ID }); len(got) != 0 {
		t.Fatalf("expected empty, got %+v", got)
	}
}

func TestCollapseByIDNoDuplicates(t *testing.T) {
	rows := []row{{ID: 5}, {ID: 4}, {ID: 9}}
	got := CollapseByID(rows, func(r row) int64 { return r.ID })
	if !reflect.DeepEqual(got, rows) {
		t.Fatalf("order must be preserved, got %+v", got)
	}
}
