package repo

import (
	"strings"
	"testing"
)

func TestOrderByAllowList(t *testing.T) {
	got, err := orderBy("date", "desc", "id", "asc")
	if err != nil {
		t.Fatalf("orderBy: %v", err)
	}
	if got != "ORDER BY c.date DESC, c.id DESC" {
		t.Fatalf("got %q", got)
	}
}

func TestOrderByDefaults(t *testing.T) {
	got, err := orderBy("", "", "id", "asc")
	if err != nil {
		t.Fatalf("orderBy: %v", err)
	}
	if got != "ORDER BY c.id ASC" {
		t.Fatalf("got %q", got)
	}
}

func TestOrderByRejectsUnknownColumn(t *testing.T) {
	_, err := orderBy("created_at; DROP TABLE users", "asc", "id", "asc")
	if err == nil {
		t.Fatal("expected error for unknown sort column")
	}
	if !strings.Contains(err.Error(), "invalid") {
		t.Fatalf("error should read as invalid input, got %q", err.Error())
	}
}

func TestOrderByRejectsUnknownDirection(t *testing.T) {
	_, err := orderBy("date", "sideways", "id", "asc")
	if err == nil {
		t.Fatal("expected error for unknown sort order")
	}
}

func TestOrderBySpecialityMapsToJoinedName(t *testing.T) {
	got, err := orderBy("speciality", "asc", "id", "asc")
	if err != nil {
		t.Fatalf("orderBy: %v", err)
	}
	if got != "ORDER BY s.name ASC, c.id ASC" {
		t.Fatalf("got %q", got)
	}
}
