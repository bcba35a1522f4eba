package space

// PageList is the intrusive doubly linked list of a space's pages, in
// insertion order. Insertion and removal are O(1).
type PageList struct {
	first, last *Page
	n           int
}

// First returns the head of the list.
func (l *PageList) First() *Page { return l.first }

// Last returns the tail of the list.
func (l *PageList) Last() *Page { return l.last }

// Len returns the number of pages.
func (l *PageList) Len() int { return l.n }

// PushBack appends p.
func (l *PageList) PushBack(p *Page) {
	p.prev, p.next = l.last, nil
	if l.last != nil {
		l.last.next = p
	} else {
		l.first = p
	}
	l.last = p
	l.n++
}

// PushFront prepends p.
func (l *PageList) PushFront(p *Page) {
	p.prev, p.next = nil, l.first
	if l.first != nil {
		l.first.prev = p
	} else {
		l.last = p
	}
	l.first = p
	l.n++
}

// Remove unlinks p. p must be in this list.
func (l *PageList) Remove(p *Page) {
	if p.prev != nil {
		p.prev.next = p.next
	} else {
		l.first = p.next
	}
	if p.next != nil {
		p.next.prev = p.prev
	} else {
		l.last = p.prev
	}
	p.prev, p.next = nil, nil
	l.n--
}

// Slice returns the pages in list order.
func (l *PageList) Slice() []*Page {
	out := make([]*Page, 0, l.n)
	for p := l.first; p != nil; p = p.next {
		out = append(out, p)
	}
	return out
}
