package pagination

import (
	"errors"
	"iter"
	"testing"
)

func numbers(n int, failAt int) iter.Seq2[int, error] {
	return func(yield func(int, error) bool) {
		for i := 1; i <= n; i++ {
			if i == failAt {
				yield(0, errors.New("boom"))
				return
			}
			if !yield(i, nil) {
				return
			}
		}
	}
}

func TestDefaults(t *testing.T) {
	var p PageRequest
	p.Defaults()
	if p.Page != 1 || p.PageSize != 20 {
		t.Errorf("expected 1/20, got %d/%d", p.Page, p.PageSize)
	}
	if p.Offset() != 0 {
		t.Errorf("expected offset 0, got %d", p.Offset())
	}

	big := PageRequest{Page: 3, PageSize: 500}
	big.Defaults()
	if big.PageSize != 100 || big.Offset() != 200 {
		t.Errorf("expected capped size 100 and offset 200, got %d/%d", big.PageSize, big.Offset())
	}
}

func TestNewPageResponse(t *testing.T) {
	resp := NewPageResponse[int](nil, 2, 10, 25)
	if resp.TotalPages != 3 {
		t.Errorf("expected 3 pages, got %d", resp.TotalPages)
	}
	if resp.Data == nil {
		t.Error("expected empty slice instead of nil")
	}

	if exact := NewPageResponse([]int{1}, 1, 5, 10); exact.TotalPages != 2 {
		t.Errorf("expected 2 pages, got %d", exact.TotalPages)
	}
	if empty := NewPageResponse([]int{}, 1, 0, 0); empty.TotalPages != 0 {
		t.Errorf("expected 0 pages for zero size, got %d", empty.TotalPages)
	}
}

func TestCollect(t *testing.T) {
	tests := []struct {
		name      string
		req       PageRequest
		wantFirst int
		wantLen   int
	}{
		{"first page", PageRequest{Page: 1, PageSize: 4}, 1, 4},
		{"middle page", PageRequest{Page: 2, PageSize: 4}, 5, 4},
		{"last partial page", PageRequest{Page: 3, PageSize: 4}, 9, 2},
		{"past the end", PageRequest{Page: 9, PageSize: 4}, 0, 0},
		{"defaults", PageRequest{}, 1, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := Collect(numbers(10, -1), tt.req)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if resp.TotalItems != 10 {
				t.Errorf("expected 10 items, got %d", resp.TotalItems)
			}
			if len(resp.Data) != tt.wantLen {
				t.Fatalf("expected %d items on page, got %d", tt.wantLen, len(resp.Data))
			}
			if tt.wantLen > 0 && resp.Data[0] != tt.wantFirst {
				t.Errorf("expected page to start at %d, got %d", tt.wantFirst, resp.Data[0])
			}
		})
	}

	t.Run("propagates errors", func(t *testing.T) {
		if _, err := Collect(numbers(10, 3), PageRequest{}); err == nil {
			t.Error("expected error")
		}
	})
}
