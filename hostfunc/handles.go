package hostfunc

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

var (
	ErrInvalidHandle = errors.New("invalid handle")
	ErrOutOfRange    = errors.New("index out of range")
	ErrNegativeSize  = errors.New("negative size")
	ErrHandleLimit   = errors.New("handle limit exceeded")
	ErrSizeLimit     = errors.New("handle size limit exceeded")
)

// HandleStore holds the integer lists a Falak program refers to by handle.
// Handles are indexes into the store and are never reused within a test case.
type HandleStore struct {
	lists      [][]int32
	maxHandles int
	maxSize    int
	mu         sync.RWMutex
}

// HandleOption configures a HandleStore.
type HandleOption func(*HandleStore)

// WithMaxHandles caps the number of handles a program may allocate. 0 means no limit.
func WithMaxHandles(n int) HandleOption {
	return func(s *HandleStore) {
		s.maxHandles = n
	}
}

// WithMaxHandleSize caps the element count of a single list. 0 means no limit.
func WithMaxHandleSize(n int) HandleOption {
	return func(s *HandleStore) {
		s.maxSize = n
	}
}

func NewHandleStore(opts ...HandleOption) *HandleStore {
	s := &HandleStore{}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// New allocates a list of n zeros and returns its handle.
func (s *HandleStore) New(n int32) (int32, error) {
	if n < 0 {
		return 0, fmt.Errorf("new(%d): %w", n, ErrNegativeSize)
	}
	if s.maxSize > 0 && int(n) > s.maxSize {
		return 0, fmt.Errorf("new(%d): %w", n, ErrSizeLimit)
	}
	return s.alloc(make([]int32, n))
}

// FromString allocates a list holding the code points of str.
func (s *HandleStore) FromString(str string) (int32, error) {
	runes := []rune(str)
	if s.maxSize > 0 && len(runes) > s.maxSize {
		return 0, ErrSizeLimit
	}
	list := make([]int32, len(runes))
	for i, r := range runes {
		list[i] = int32(r)
	}
	return s.alloc(list)
}

func (s *HandleStore) alloc(list []int32) (int32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.maxHandles > 0 && len(s.lists) >= s.maxHandles {
		return 0, ErrHandleLimit
	}
	s.lists = append(s.lists, list)
	return int32(len(s.lists) - 1), nil
}

func (s *HandleStore) Size(h int32) (int32, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list, err := s.list(h)
	if err != nil {
		return 0, err
	}
	return int32(len(list)), nil
}

// Add appends v to the list behind h.
func (s *HandleStore) Add(h, v int32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.list(h)
	if err != nil {
		return err
	}
	if s.maxSize > 0 && len(list) >= s.maxSize {
		return fmt.Errorf("add(%d): %w", h, ErrSizeLimit)
	}
	s.lists[h] = append(list, v)
	return nil
}

func (s *HandleStore) Get(h, i int32) (int32, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list, err := s.list(h)
	if err != nil {
		return 0, err
	}
	if i < 0 || int(i) >= len(list) {
		return 0, fmt.Errorf("get(%d, %d): %w (size %d)", h, i, ErrOutOfRange, len(list))
	}
	return list[i], nil
}

func (s *HandleStore) Set(h, i, v int32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.list(h)
	if err != nil {
		return err
	}
	if i < 0 || int(i) >= len(list) {
		return fmt.Errorf("set(%d, %d): %w (size %d)", h, i, ErrOutOfRange, len(list))
	}
	list[i] = v
	return nil
}

// String decodes the list behind h as a sequence of code points.
func (s *HandleStore) String(h int32) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list, err := s.list(h)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for _, c := range list {
		b.WriteRune(rune(c))
	}
	return b.String(), nil
}

// Len returns the number of allocated handles.
func (s *HandleStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.lists)
}

func (s *HandleStore) list(h int32) ([]int32, error) {
	if h < 0 || int(h) >= len(s.lists) {
		return nil, fmt.Errorf("%w: %d", ErrInvalidHandle, h)
	}
	return s.lists[h], nil
}
