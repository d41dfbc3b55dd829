package requestcache

// Ready returns a Pending that is already done with value.
func Ready[V any](value V) Pending[V] {
	return &settled[V]{value: value, done: true}
}

// Failed returns a Pending that fails with err on its first poll.
func Failed[V any](err error) Pending[V] {
	return &settled[V]{err: err}
}

type settled[V any] struct {
	value V
	done  bool
	err   error
}

func (s *settled[V]) Poll() (V, bool, error) {
	return s.value, s.done, s.err
}

func (s *settled[V]) Close() error {
	return nil
}
