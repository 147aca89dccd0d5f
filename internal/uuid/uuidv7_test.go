package uuid

import (
	"sort"
	"testing"
	"time"

	googleuuid "github.com/google/uuid"
)

func TestNewAt(t *testing.T) {
	t.Run("is a valid v7 uuid", func(t *testing.T) {
		id := NewAt(time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC))
		parsed, err := googleuuid.Parse(id)
		if err != nil {
			t.Fatalf("expected valid uuid, got %v", err)
		}
		if parsed.Version() != 7 {
			t.Errorf("expected version 7, got %d", parsed.Version())
		}
	})

	t.Run("carries the timestamp", func(t *testing.T) {
		at := time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)
		parsed := googleuuid.MustParse(NewAt(at))
		sec, nsec := parsed.Time().UnixTime()
		got := time.Unix(sec, nsec).UTC()
		if !got.Equal(at) {
			t.Errorf("expected %s, got %s", at, got)
		}
	})

	t.Run("sorts by time", func(t *testing.T) {
		base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
		var ids []string
		for i := 0; i < 5; i++ {
			ids = append(ids, NewAt(base.Add(time.Duration(i)*time.Second)))
		}
		if !sort.StringsAreSorted(ids) {
			t.Errorf("expected ids to be sorted: %v", ids)
		}
	})
}

func TestIsValid(t *testing.T) {
	if !IsValid(New()) {
		t.Error("expected generated id to be valid")
	}
	if IsValid("not-a-uuid") {
		t.Error("expected garbage to be invalid")
	}
}
