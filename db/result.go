/*
 * Copyright (c) 2025 Johan Stenstam, johani@johani.org
 */

package db

// Result is one decoded row.
type Result struct {
	values *ValueSet
}

func NewResult(values *ValueSet) *Result {
	return &Result{values: values}
}

func (r *Result) ValueSet() *ValueSet {
	if r == nil {
		return nil
	}
	return r.values
}

// ResultCursor is the iteration protocol a backend provides for a read.
// Called with finish == false it steps to the next row and returns it
// decoded, or nil at the end. Called with finish == true it releases the
// underlying statement and returns nil.
type ResultCursor func(finish bool) (*ValueSet, error)

// ResultList is a lazy cursor over backend rows. It must always be closed,
// also after it has been exhausted.
type ResultList struct {
	cursor   ResultCursor
	cached   []*Result
	pos      int
	fetched  bool
	started  bool
	finished bool
	closed   bool
}

func NewResultList(cursor ResultCursor) *ResultList {
	return &ResultList{cursor: cursor}
}

// NewCachedResultList returns an already materialised list; used by backends
// that do not stream, and by tests.
func NewCachedResultList(rows ...*ValueSet) *ResultList {
	rl := &ResultList{fetched: true, finished: true}
	for _, vs := range rows {
		rl.cached = append(rl.cached, NewResult(vs))
	}
	return rl
}

func (rl *ResultList) step() (*Result, error) {
	if rl.finished {
		return nil, nil
	}
	if rl.closed || rl.cursor == nil {
		return nil, Errorf("result list is closed")
	}
	vs, err := rl.cursor(false)
	if err != nil {
		rl.finished = true
		return nil, err
	}
	if vs == nil {
		rl.finished = true
		return nil, nil
	}
	return NewResult(vs), nil
}

// Next returns the next result, or nil when the list is exhausted.
func (rl *ResultList) Next() (*Result, error) {
	rl.started = true
	if rl.fetched {
		if rl.pos >= len(rl.cached) {
			return nil, nil
		}
		r := rl.cached[rl.pos]
		rl.pos++
		return r, nil
	}
	return rl.step()
}

// Begin returns the first result. A list that was fetched with FetchAll can
// be restarted any number of times; a streaming list only before the first
// call to Next.
func (rl *ResultList) Begin() (*Result, error) {
	if rl.fetched {
		rl.pos = 0
		return rl.Next()
	}
	if rl.started {
		return nil, Errorf("cannot restart a streaming result list")
	}
	return rl.Next()
}

// FetchAll drains the remaining rows into memory so that Size and Begin
// can be used.
func (rl *ResultList) FetchAll() error {
	if rl.fetched {
		return nil
	}
	for {
		r, err := rl.step()
		if err != nil {
			return err
		}
		if r == nil {
			break
		}
		rl.cached = append(rl.cached, r)
	}
	rl.fetched = true
	rl.pos = 0
	return nil
}

// Size is the number of cached rows; it is only meaningful after FetchAll.
func (rl *ResultList) Size() int {
	return len(rl.cached)
}

// Close releases the backend statement. It is safe to call more than once.
func (rl *ResultList) Close() error {
	if rl == nil || rl.closed {
		return nil
	}
	rl.closed = true
	rl.finished = true
	if rl.cursor == nil {
		return nil
	}
	_, err := rl.cursor(true)
	return err
}
