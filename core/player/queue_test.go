package player

import (
	"reflect"
	"testing"
)

func TestQueuePrependPutsNewestFirst(t *testing.T) {
	q := NewQueue("b", "c")
	q.Prepend("a")
	if got := q.Items(); !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Fatalf("unexpected queue order: %v", got)
	}
}

func TestQueueRemoveAllDropsDuplicates(t *testing.T) {
	q := NewQueue("a", "b", "a", "c", "a")
	q.RemoveAll("a")
	if got := q.Items(); !reflect.DeepEqual(got, []string{"b", "c"}) {
		t.Fatalf("unexpected queue after RemoveAll: %v", got)
	}
}

func TestQueueAllowsDuplicates(t *testing.T) {
	q := NewQueue("a")
	q.Prepend("a")
	if q.Len() != 2 {
		t.Fatalf("duplicates should be allowed, len = %d", q.Len())
	}
}

func TestQueueNextAfterWrapsAround(t *testing.T) {
	q := NewQueue("a", "b", "c")

	next, ok := q.NextAfter("c")
	if !ok || next != "a" {
		t.Fatalf("NextAfter(c) = %q, %v; want a, true", next, ok)
	}
}

func TestQueueNextAfterMissingTrackStartsAtHead(t *testing.T) {
	q := NewQueue("a", "b", "c")

	next, ok := q.NextAfter("zzz")
	if !ok || next != "a" {
		t.Fatalf("NextAfter(missing) = %q, %v; want a, true", next, ok)
	}
}

func TestQueuePrevBeforeWrapsToTail(t *testing.T) {
	q := NewQueue("a", "b", "c")

	prev, ok := q.PrevBefore("a")
	if !ok || prev != "c" {
		t.Fatalf("PrevBefore(a) = %q, %v; want c, true", prev, ok)
	}
}

func TestQueueNavigationOnEmptyQueue(t *testing.T) {
	q := NewQueue()
	if _, ok := q.NextAfter("a"); ok {
		t.Fatal("NextAfter on empty queue should report false")
	}
	if _, ok := q.PrevBefore("a"); ok {
		t.Fatal("PrevBefore on empty queue should report false")
	}
}

func TestQueueReplace(t *testing.T) {
	q := NewQueue("a")
	q.Replace([]string{"x", "y"})
	if got := q.Items(); !reflect.DeepEqual(got, []string{"x", "y"}) {
		t.Fatalf("unexpected queue after Replace: %v", got)
	}
}
