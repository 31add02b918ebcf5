package staging

// Command is a list mutation whose positions were captured when the user acted. Positions
// are checked against the list as it is when the command runs, so a stale command is a
// no-op rather than an error.
type Command interface {
	apply(l *List) bool
}

// RemoveAt removes the item at Position.
type RemoveAt struct{ Position int }

// MoveItem moves the item at From to To.
type MoveItem struct{ From, To int }

// MoveUp swaps the item at Position with its predecessor.
type MoveUp struct{ Position int }

// MoveDown swaps the item at Position with its successor.
type MoveDown struct{ Position int }

// ClearAll empties the list.
type ClearAll struct{}

func (c RemoveAt) apply(l *List) bool { return l.Remove(c.Position) }
func (c MoveItem) apply(l *List) bool { return l.Move(c.From, c.To) }
func (c MoveUp) apply(l *List) bool   { return l.Move(c.Position, c.Position-1) }
func (c MoveDown) apply(l *List) bool { return l.Move(c.Position, c.Position+1) }

func (c ClearAll) apply(l *List) bool {
	empty := l.Len() == 0
	l.Clear()
	return !empty
}

// Dispatch runs cmd and reports whether the list changed.
func (l *List) Dispatch(cmd Command) bool {
	return cmd.apply(l)
}

// Drag is an in-progress drag gesture. The source position is fixed when the drag starts.
type Drag struct {
	list   *List
	source int
}

// BeginDrag starts dragging the item at position.
func (l *List) BeginDrag(position int) (Drag, bool) {
	if position < 0 || position >= l.Len() {
		return Drag{}, false
	}
	return Drag{list: l, source: position}, true
}

// Source returns the position captured at drag start.
func (d Drag) Source() int { return d.source }

// DropOn completes the drag over target. Dropping an item onto itself does nothing.
func (d Drag) DropOn(target int) bool {
	if d.list == nil || d.source == target {
		return false
	}
	return d.list.Move(d.source, target)
}
