package document

import (
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Key is a namespaced identifier such as group/owner, modeled as a
// two-field composite rather than a bare string so that namespace and
// name survive independently of how a particular serialization format
// chooses to delimit them. Its only legal textual form is
// "namespace/name".
type Key struct {
	Namespace string
	Name      string
}

// NewKey parses the canonical "namespace/name" form.
func NewKey(s string) (Key, error) {
	idx := strings.IndexByte(s, '/')
	if idx <= 0 || idx == len(s)-1 {
		return Key{}, fmt.Errorf("key %q is not of the form namespace/name", s)
	}
	return Key{Namespace: s[:idx], Name: s[idx+1:]}, nil
}

// MustKey panics on an invalid key; used for the small set of
// compile-time-known keys (group/owner, group/bot) the engine itself
// depends on.
func MustKey(s string) Key {
	k, err := NewKey(s)
	if err != nil {
		panic(err)
	}
	return k
}

func (k Key) String() string {
	return k.Namespace + "/" + k.Name
}

func (k Key) Less(o Key) bool {
	if k.Namespace != o.Namespace {
		return k.Namespace < o.Namespace
	}
	return k.Name < o.Name
}

func (k Key) MarshalYAML() (interface{}, error) {
	return k.String(), nil
}

func (k *Key) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := NewKey(s)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// KeySet is a logical set of Keys: order-irrelevant, no duplicates.
// It serializes as a sorted YAML sequence so backups and re-writes are
// byte-for-byte deterministic across identical logical sets.
type KeySet map[Key]struct{}

func NewKeySet(keys ...Key) KeySet {
	s := make(KeySet, len(keys))
	for _, k := range keys {
		s[k] = struct{}{}
	}
	return s
}

func (s KeySet) Add(k Key)         { s[k] = struct{}{} }
func (s KeySet) Contains(k Key) bool { _, ok := s[k]; return ok }
func (s KeySet) Len() int          { return len(s) }

// Intersects reports whether s and o share at least one element.
func (s KeySet) Intersects(o KeySet) bool {
	small, big := s, o
	if len(big) < len(small) {
		small, big = big, small
	}
	for k := range small {
		if _, ok := big[k]; ok {
			return true
		}
	}
	return false
}

// Sorted returns the set's elements ordered by (namespace, name).
func (s KeySet) Sorted() []Key {
	out := make([]Key, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

func (s KeySet) MarshalYAML() (interface{}, error) {
	sorted := s.Sorted()
	strs := make([]string, len(sorted))
	for i, k := range sorted {
		strs[i] = k.String()
	}
	return strs, nil
}

func (s *KeySet) UnmarshalYAML(value *yaml.Node) error {
	var strs []string
	if err := value.Decode(&strs); err != nil {
		return err
	}
	out := make(KeySet, len(strs))
	for _, raw := range strs {
		k, err := NewKey(raw)
		if err != nil {
			return err
		}
		out[k] = struct{}{}
	}
	*s = out
	return nil
}

// StringSet is a logical set of plain strings (managed-members,
// managed-room-ids, managed-groups in the tracking section), with the
// same deterministic-sort-on-marshal behavior as KeySet.
type StringSet map[string]struct{}

func NewStringSet(items ...string) StringSet {
	s := make(StringSet, len(items))
	for _, it := range items {
		s[it] = struct{}{}
	}
	return s
}

func (s StringSet) Add(item string)          { s[item] = struct{}{} }
func (s StringSet) Contains(item string) bool { _, ok := s[item]; return ok }
func (s StringSet) Len() int                  { return len(s) }

func (s StringSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Minus returns the elements in s but not in o (s − o).
func (s StringSet) Minus(o StringSet) StringSet {
	out := make(StringSet)
	for k := range s {
		if !o.Contains(k) {
			out.Add(k)
		}
	}
	return out
}

func (s StringSet) MarshalYAML() (interface{}, error) {
	return s.Sorted(), nil
}

func (s *StringSet) UnmarshalYAML(value *yaml.Node) error {
	var strs []string
	if err := value.Decode(&strs); err != nil {
		return err
	}
	*s = NewStringSet(strs...)
	return nil
}
