package observable

// listeners is an ordered id -> callback table. Re-adding an id replaces the
// callback in place, so position is the first registration's.
type listeners[T any] struct {
	order []string
	fns   map[string]func(T)
}

func (l *listeners[T]) add(id string, fn func(T)) {
	if l.fns == nil {
		l.fns = map[string]func(T){}
	}
	if _, ok := l.fns[id]; !ok {
		l.order = append(l.order, id)
	}
	l.fns[id] = fn
}

func (l *listeners[T]) remove(id string) {
	if _, ok := l.fns[id]; !ok {
		return
	}
	delete(l.fns, id)
	for i, v := range l.order {
		if v == id {
			l.order = append(l.order[:i], l.order[i+1:]...)
			break
		}
	}
}

func (l *listeners[T]) clear() {
	l.order = nil
	l.fns = nil
}

func (l *listeners[T]) len() int { return len(l.order) }

// snapshot returns callbacks in order; callers invoke them without holding locks.
func (l *listeners[T]) snapshot() []func(T) {
	if len(l.order) == 0 {
		return nil
	}
	out := make([]func(T), 0, len(l.order))
	for _, id := range l.order {
		if fn := l.fns[id]; fn != nil {
			out = append(out, fn)
		}
	}
	return out
}
