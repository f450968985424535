package domain

import "sort"

// FieldErrors maps a dotted field path (e.g. "billing.phone", "shipping.city_id")
// to a user-facing message.
type FieldErrors map[string]string

// Add records msg for field unless an error is already present for it.
func (fe FieldErrors) Add(field, msg string) {
	if _, ok := fe[field]; !ok {
		fe[field] = msg
	}
}

// Merge copies other into fe, overwriting per field.
func (fe FieldErrors) Merge(other FieldErrors) {
	for k, v := range other {
		fe[k] = v
	}
}

// Fields returns the field paths in sorted order.
func (fe FieldErrors) Fields() []string {
	out := make([]string, 0, len(fe))
	for k := range fe {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (fe FieldErrors) Empty() bool {
	return len(fe) == 0
}
