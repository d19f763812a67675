package cache

import "time"

// entry is one cached decompression result. It doubles as its own node in
// the recency list: head is the most recently used, tail the least.
type entry struct {
	key        string
	data       []byte
	size       int64
	storedAt   time.Time
	lastAccess time.Time
	expiresAt  time.Time // zero means no TTL

	prev *entry
	next *entry
}

func (e *entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// lruList tracks usage order.
type lruList struct {
	head *entry
	tail *entry
}

func (l *lruList) pushFront(e *entry) {
	e.prev = nil
	e.next = l.head
	if l.head != nil {
		l.head.prev = e
	}
	l.head = e
	if l.tail == nil {
		l.tail = e
	}
}

func (l *lruList) remove(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		l.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		l.tail = e.prev
	}
	e.prev, e.next = nil, nil
}

func (l *lruList) moveToFront(e *entry) {
	if l.head == e {
		return
	}
	l.remove(e)
	l.pushFront(e)
}
