// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package utask

// tickAfter reports whether a is strictly after b on the wrapping tick
// counter, using the signed-difference idiom: a is after b iff
// int32(b-a) < 0. This is correct across a single wrap provided no
// scheduled delay exceeds half the tick range.
func tickAfter(a, b uint32) bool {
	return int32(b-a) < 0
}

// tickBefore reports whether a is strictly before b.
func tickBefore(a, b uint32) bool {
	return tickAfter(b, a)
}

// delayQueue is a doubly-linked list of TCBs, addressed by index into a
// shared tcbArena, kept sorted ascending by expiry under wrap-aware
// comparison. It is not internally locked; callers must already
// hold the kernel's critical section.
type delayQueue struct {
	arena      *tcbArena
	head, tail tcbIndex
	length     int
}

func newDelayQueue(arena *tcbArena) *delayQueue {
	return &delayQueue{arena: arena, head: tcbNil, tail: tcbNil}
}

// enqueue inserts idx at the unique position that keeps expiry values
// ascending. Ties are placed after existing entries with the same
// expiry, preserving FIFO among equally-timed messages. O(n) over the
// currently queued entries.
func (q *delayQueue) enqueue(idx tcbIndex) {
	node := q.arena.get(idx)

	if q.head == tcbNil {
		node.next, node.prev = tcbNil, tcbNil
		q.head, q.tail = idx, idx
		q.length++
		return
	}

	// Find the first entry whose expiry is strictly after node's expiry;
	// insert immediately before it. If none, append at the tail.
	cur := q.head
	for cur != tcbNil {
		curNode := q.arena.get(cur)
		if tickAfter(curNode.expiry, node.expiry) {
			break
		}
		cur = curNode.next
	}

	if cur == tcbNil {
		// Append at tail.
		node.prev = q.tail
		node.next = tcbNil
		q.arena.get(q.tail).next = idx
		q.tail = idx
	} else if cur == q.head {
		node.prev = tcbNil
		node.next = cur
		q.arena.get(cur).prev = idx
		q.head = idx
	} else {
		curNode := q.arena.get(cur)
		prev := curNode.prev
		node.prev = prev
		node.next = cur
		q.arena.get(prev).next = idx
		curNode.prev = idx
	}
	q.length++
}

// front returns the head without removing it, or tcbNil if empty.
func (q *delayQueue) front() tcbIndex {
	return q.head
}

// dequeue removes and returns the head, or tcbNil if empty.
func (q *delayQueue) dequeue() tcbIndex {
	idx := q.head
	if idx == tcbNil {
		return tcbNil
	}
	q.unlink(idx)
	return idx
}

// unlink removes idx from the queue in place, used by both dequeue and
// cancel.
func (q *delayQueue) unlink(idx tcbIndex) {
	node := q.arena.get(idx)

	if node.prev != tcbNil {
		q.arena.get(node.prev).next = node.next
	} else {
		q.head = node.next
	}

	if node.next != tcbNil {
		q.arena.get(node.next).prev = node.prev
	} else {
		q.tail = node.prev
	}

	node.next, node.prev = tcbNil, tcbNil
	q.length--
}

// cancel traverses the queue, removing every TCB whose (task, id) pair
// matches, returning the indices of the removed TCBs (their number is the
// count removed). It does not touch the pool or the TCB free list; the
// caller (Kernel.Cancel) reads the payloads from the returned TCBs and
// releases them. cancel must not be called from ISR context.
func (q *delayQueue) cancel(task *Task, id int) (removed []tcbIndex) {
	cur := q.head
	for cur != tcbNil {
		node := q.arena.get(cur)
		next := node.next
		if node.task == task && node.id == id {
			q.unlink(cur)
			removed = append(removed, cur)
		}
		cur = next
	}
	return removed
}
