package cart

import (
	"storefront/internal/model"
)

// Engine owns the ordered cart lines. It is not safe for concurrent use;
// callers serialize access (see session.Session).
type Engine struct {
	lines     []Line
	seq       int64
	policy    Policy
	observers []Observer
}

// Option configures an Engine.
type Option func(*Engine)

// WithObserver registers o for mutation notifications.
func WithObserver(o Observer) Option {
	return func(e *Engine) { e.observers = append(e.observers, o) }
}

// WithPolicy replaces the totals policy.
func WithPolicy(p Policy) Option {
	return func(e *Engine) { e.policy = p }
}

func NewEngine(opts ...Option) *Engine {
	e := &Engine{policy: DefaultPolicy()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Restore seeds the engine with previously persisted lines without notifying observers.
func (e *Engine) Restore(lines []Line, seq int64) {
	e.lines = e.lines[:0]
	for _, l := range lines {
		if l.Quantity <= 0 {
			continue
		}
		v := l.Variant().withDefaults()
		l.Size, l.Frame = v.Size, v.Frame
		e.lines = append(e.lines, l)
	}
	e.seq = seq
}

// Seq is the sequence number of the last applied mutation.
func (e *Engine) Seq() int64 { return e.seq }

// Lines returns a copy of the current lines in cart order.
func (e *Engine) Lines() []Line {
	out := make([]Line, len(e.lines))
	copy(out, e.lines)
	return out
}

// Len is the number of distinct lines.
func (e *Engine) Len() int { return len(e.lines) }

// Add puts one unit of p into the cart. An existing line with the same
// identity is incremented and keeps the price it was created with.
func (e *Engine) Add(p model.Product, unitPrice int64, v Variant) []Line {
	return e.addLine(NewLine(p, unitPrice, v), 0, 0)
}

func (e *Engine) addLine(l Line, seq, ts int64) []Line {
	key := l.Key()
	op := OpAdd
	merged := false
	for i := range e.lines {
		if e.lines[i].Key() == key {
			e.lines[i].Quantity++
			merged = true
			op = OpMerge
			break
		}
	}
	if !merged {
		l.Quantity = 1
		e.lines = append(e.lines, l)
	}
	v := l.Variant()
	snapshot := l
	e.commit(Event{Op: op, ProductID: l.ProductID, Variant: &v, Delta: 1, Line: &snapshot, TS: ts}, seq)
	return e.Lines()
}

// UpdateQuantity adds delta to every line matching productID (and v, when set).
// Lines driven to zero or below are removed.
func (e *Engine) UpdateQuantity(productID int, delta int, v *Variant) []Line {
	v = normalize(v)
	e.updateQuantity(productID, delta, v)
	e.commit(Event{Op: OpUpdate, ProductID: productID, Variant: v, Delta: delta}, 0)
	return e.Lines()
}

func (e *Engine) updateQuantity(productID int, delta int, v *Variant) {
	kept := e.lines[:0]
	for _, l := range e.lines {
		if l.matches(productID, v) {
			l.Quantity += delta
			if l.Quantity <= 0 {
				continue
			}
		}
		kept = append(kept, l)
	}
	e.lines = kept
}

// Remove drops every line matching productID (and v, when set).
func (e *Engine) Remove(productID int, v *Variant) []Line {
	v = normalize(v)
	e.remove(productID, v)
	e.commit(Event{Op: OpRemove, ProductID: productID, Variant: v}, 0)
	return e.Lines()
}

func (e *Engine) remove(productID int, v *Variant) {
	kept := e.lines[:0]
	for _, l := range e.lines {
		if !l.matches(productID, v) {
			kept = append(kept, l)
		}
	}
	e.lines = kept
}

// Clear empties the cart.
func (e *Engine) Clear() []Line {
	e.lines = nil
	e.commit(Event{Op: OpClear}, 0)
	return e.Lines()
}

// Apply replays a recorded event. Events at or below the current sequence
// are skipped; applied reports whether ev changed the cart.
func (e *Engine) Apply(ev Event) (applied bool) {
	if ev.Seq <= e.seq {
		return false
	}
	switch ev.Op {
	case OpAdd, OpMerge:
		if ev.Line == nil {
			return false
		}
		l := *ev.Line
		v := l.Variant().withDefaults()
		l.Size, l.Frame = v.Size, v.Frame
		e.addLine(l, ev.Seq, ev.TS)
		return true
	case OpUpdate:
		v := normalize(ev.Variant)
		e.updateQuantity(ev.ProductID, ev.Delta, v)
	case OpRemove:
		e.remove(ev.ProductID, normalize(ev.Variant))
	case OpClear:
		e.lines = nil
	default:
		return false
	}
	e.commit(ev, ev.Seq)
	return true
}

// commit stamps ev and notifies observers. seq > 0 forces the sequence
// number, used on replay.
func (e *Engine) commit(ev Event, seq int64) {
	if seq > 0 {
		e.seq = seq
	} else {
		e.seq++
	}
	ev.Seq = e.seq
	if ev.TS == 0 {
		ev.TS = NowUnix()
	}
	if len(e.observers) == 0 {
		return
	}
	lines := e.Lines()
	for _, o := range e.observers {
		o.CartChanged(ev, lines)
	}
}

func normalize(v *Variant) *Variant {
	if v == nil {
		return nil
	}
	n := v.withDefaults()
	return &n
}
