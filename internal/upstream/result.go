package upstream

// Result carries the outcome of one upstream step. A failed step keeps its
// error so the caller can log and count it before falling back to a default.
type Result[T any] struct {
	Value T
	Err   error
}

// OK wraps a successful value.
func OK[T any](v T) Result[T] {
	return Result[T]{Value: v}
}

// Fail wraps a failure.
func Fail[T any](err error) Result[T] {
	return Result[T]{Err: err}
}

// Failed reports whether the step failed.
func (r Result[T]) Failed() bool {
	return r.Err != nil
}

// Kind returns the failure class, KindNone on success.
func (r Result[T]) Kind() Kind {
	return KindOf(r.Err)
}

// Or returns the value on success and def on failure.
func (r Result[T]) Or(def T) T {
	if r.Err != nil {
		return def
	}
	return r.Value
}
