package model

import (
	"cmp"
	"slices"
)

// Set представляет множество идентификаторов. Повторное добавление не создаёт дубликатов.
type Set[K comparable] map[K]struct{}

// NewSet создаёт множество из перечисленных элементов.
func NewSet[K comparable](items ...K) Set[K] {
	s := make(Set[K], len(items))
	for _, item := range items {
		s[item] = struct{}{}
	}
	return s
}

// Has сообщает, входит ли элемент в множество. Безопасен для nil-множества.
func (s Set[K]) Has(k K) bool {
	_, ok := s[k]
	return ok
}

// Add добавляет элемент.
func (s Set[K]) Add(k K) {
	s[k] = struct{}{}
}

// Remove удаляет элемент.
func (s Set[K]) Remove(k K) {
	delete(s, k)
}

// Len возвращает количество элементов.
func (s Set[K]) Len() int {
	return len(s)
}

// Clone возвращает независимую копию множества.
func (s Set[K]) Clone() Set[K] {
	c := make(Set[K], len(s))
	for k := range s {
		c[k] = struct{}{}
	}
	return c
}

// SortedBy возвращает элементы множества, упорядоченные по ключу сравнения.
func SortedBy[K comparable, O cmp.Ordered](s Set[K], key func(K) O) []K {
	items := make([]K, 0, len(s))
	for k := range s {
		items = append(items, k)
	}
	slices.SortFunc(items, func(a, b K) int {
		return cmp.Compare(key(a), key(b))
	})
	return items
}
