// Package observer implements a synchronous subject/observer pair.
//
// A Subject owns an ordered list of observers and calls OnSubjectChanged on
// each of them, inline, whenever its owner reports a change. Nothing guards
// against reentrancy: an observer must not mutate the subject that is
// notifying it.
package observer

import (
	"errors"
	"reflect"
)

// ErrObserverNotFound is returned when removing an observer that was never
// added.
var ErrObserverNotFound = errors.New("observer: not registered")

// Observer is anything that wants to hear about changes.
type Observer interface {
	OnSubjectChanged()
}

// Func adapts a plain function to Observer. Func values are not comparable,
// so register them through Subject.Subscribe to be able to remove them.
type Func func()

// OnSubjectChanged calls f.
func (f Func) OnSubjectChanged() { f() }

// Subject holds registered observers. The zero value is ready to use. It is
// not safe for concurrent use.
type Subject struct {
	observers []Observer
}

// AddObserver appends o. Registering the same observer twice means it is
// notified twice.
func (s *Subject) AddObserver(o Observer) {
	s.observers = append(s.observers, o)
}

// RemoveObserver removes the first registration equal to o.
func (s *Subject) RemoveObserver(o Observer) error {
	for i, cur := range s.observers {
		if same(cur, o) {
			s.observers = append(s.observers[:i], s.observers[i+1:]...)
			return nil
		}
	}
	return ErrObserverNotFound
}

// Subscribe registers fn and returns a function that removes exactly that
// registration.
func (s *Subject) Subscribe(fn func()) (unsubscribe func()) {
	h := &handle{fn: fn}
	s.AddObserver(h)
	return func() { _ = s.RemoveObserver(h) }
}

// NotifyObservers calls every observer in registration order. Observers
// added or removed during the call take effect on the next notification.
func (s *Subject) NotifyObservers() {
	snapshot := make([]Observer, len(s.observers))
	copy(snapshot, s.observers)
	for _, o := range snapshot {
		o.OnSubjectChanged()
	}
}

// Len returns the number of registrations.
func (s *Subject) Len() int { return len(s.observers) }

type handle struct{ fn func() }

func (h *handle) OnSubjectChanged() { h.fn() }

// same compares two observers without panicking on uncomparable dynamic
// types such as Func.
func same(a, b Observer) bool {
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb || ta == nil {
		return false
	}
	// Value.Comparable looks through interface fields to the dynamic values.
	if !reflect.ValueOf(a).Comparable() || !reflect.ValueOf(b).Comparable() {
		return false
	}
	return a == b
}
