package kv

import "sort"

// Memory keeps values in process. It backs tests and the degraded mode of
// the store when nothing on disk can be opened.
type Memory struct {
	quota  int64
	values map[string][]byte
}

func NewMemory(quota int64) *Memory {
	return &Memory{quota: quota, values: map[string][]byte{}}
}

func (m *Memory) Get(key string) ([]byte, error) {
	v, ok := m.values[key]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (m *Memory) Set(key string, value []byte) error {
	if err := validateKey(key); err != nil {
		return err
	}
	var others int64
	for k, v := range m.values {
		if k != key {
			others += int64(len(v))
		}
	}
	if err := checkQuota(m.quota, others, value); err != nil {
		return err
	}
	stored := make([]byte, len(value))
	copy(stored, value)
	m.values[key] = stored
	return nil
}

func (m *Memory) Delete(key string) error {
	delete(m.values, key)
	return nil
}

func (m *Memory) Keys() ([]string, error) {
	keys := make([]string, 0, len(m.values))
	for k := range m.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

func (m *Memory) Close() error { return nil }

// SetQuota changes the byte limit for subsequent writes.
func (m *Memory) SetQuota(quota int64) { m.quota = quota }
