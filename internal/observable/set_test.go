package observable

import (
	"errors"
	"slices"
	"strconv"
	"sync"
	"testing"
	"time"
)

func TestSetAddIgnoresDuplicates(t *testing.T) {
	t.Parallel()
	s := NewSet("a.com")
	if s.Add("a.com") {
		t.Fatal("Add of present element reported insertion")
	}
	if s.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", s.Len())
	}
	if !s.Add("b.com") {
		t.Fatal("Add of new element reported no insertion")
	}
	if got := s.Values(); !slices.Equal(got, []string{"a.com", "b.com"}) {
		t.Fatalf("Values() = %v", got)
	}
}

func TestSetAddNotifiesWithSnapshot(t *testing.T) {
	t.Parallel()
	s := NewSet[string]()
	var got [][]string
	s.AddListener("x", func(v []string) { got = append(got, v) })

	s.Add("a.com")
	s.Add("b.com")
	s.Add("a.com")

	want := [][]string{{"a.com"}, {"a.com", "b.com"}, {"a.com", "b.com"}}
	if len(got) != len(want) {
		t.Fatalf("notified %d times, want %d", len(got), len(want))
	}
	for i := range want {
		if !slices.Equal(got[i], want[i]) {
			t.Fatalf("call %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestSetSnapshotIsDetached(t *testing.T) {
	t.Parallel()
	s := NewSet("a.com")
	s.AddListener("x", func(v []string) { v[0] = "mutated" })
	s.Add("b.com")

	vals := s.Values()
	vals[1] = "changed"
	if got := s.Values(); !slices.Equal(got, []string{"a.com", "b.com"}) {
		t.Fatalf("set was mutated through a snapshot: %v", got)
	}
}

func TestSetReplaceDedups(t *testing.T) {
	t.Parallel()
	s := NewSet("x.com")
	n := 0
	s.AddListener("x", func([]string) { n++ })

	s.Replace([]string{"b.com", "a.com", "b.com"})
	if got := s.Values(); !slices.Equal(got, []string{"b.com", "a.com"}) {
		t.Fatalf("Values() = %v", got)
	}
	s.Replace(nil)
	if s.Len() != 0 || n != 2 {
		t.Fatalf("Len()=%d notified=%d", s.Len(), n)
	}
}

func TestSetDeleteAt(t *testing.T) {
	t.Parallel()
	s := NewSet("a", "b", "c")
	var last []string
	s.AddListener("x", func(v []string) { last = v })

	if err := s.DeleteAt(1); err != nil {
		t.Fatalf("DeleteAt(1): %v", err)
	}
	if !slices.Equal(last, []string{"a", "c"}) || !slices.Equal(s.Values(), []string{"a", "c"}) {
		t.Fatalf("after DeleteAt: last=%v values=%v", last, s.Values())
	}
}

func TestSetDeleteAtOutOfRange(t *testing.T) {
	t.Parallel()
	for _, idx := range []int{-1, 2, 10} {
		s := NewSet("a", "b")
		n := 0
		s.AddListener("x", func([]string) { n++ })

		err := s.DeleteAt(idx)
		if !errors.Is(err, ErrIndexOutOfRange) {
			t.Fatalf("DeleteAt(%d) err = %v, want ErrIndexOutOfRange", idx, err)
		}
		if !slices.Equal(s.Values(), []string{"a", "b"}) || n != 0 {
			t.Fatalf("DeleteAt(%d) changed set: %v (notified %d)", idx, s.Values(), n)
		}
	}
}

func TestSetRemoveAllListeners(t *testing.T) {
	t.Parallel()
	s := NewSet[string]()
	n := 0
	s.AddListener("a", func([]string) { n++ })
	s.AddListener("a", func([]string) { n++ })
	s.Add("x")
	if n != 1 {
		t.Fatalf("notified %d, want 1", n)
	}
	s.RemoveAllListeners()
	s.Add("y")
	if n != 1 {
		t.Fatalf("notified %d after RemoveAllListeners", n)
	}
	if !s.Contains("y") {
		t.Fatal("Contains(y) = false")
	}
}

func TestSetConcurrentMutationsDispatchInOrder(t *testing.T) {
	t.Parallel()
	s := NewSet[string]()
	var mu sync.Mutex
	var last []string
	s.AddListener("slow", func(items []string) {
		time.Sleep(time.Duration(len(items)%3) * 50 * time.Microsecond)
		mu.Lock()
		last = items
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if i%2 == 0 {
				s.Add(strconv.Itoa(i))
			} else {
				s.Replace([]string{strconv.Itoa(i)})
			}
		}()
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if !slices.Equal(last, s.Values()) {
		t.Fatalf("last dispatched %v, current %v", last, s.Values())
	}
}
