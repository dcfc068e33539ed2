package reconcile

// SelectedField is one user-selected field value destined for the local
// record.
type SelectedField struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

// Selection accumulates the fields a reviewer has chosen to sync. Entries
// are ordered by selection time; when a field appears more than once the
// latest entry wins at collapse.
type Selection struct {
	entries []SelectedField
}

// Toggle records a checkbox change. A select-all toggle (multiple) appends
// when checked and clears the whole selection when unchecked. A single-field
// toggle appends when checked and removes every entry for that field when
// unchecked.
func (s *Selection) Toggle(checked bool, field, value string, multiple bool) {
	if multiple {
		if checked {
			s.entries = append(s.entries, SelectedField{Field: field, Value: value})
		} else {
			s.entries = nil
		}
		return
	}
	if checked {
		s.entries = append(s.entries, SelectedField{Field: field, Value: value})
		return
	}
	kept := s.entries[:0]
	for _, e := range s.entries {
		if e.Field != field {
			kept = append(kept, e)
		}
	}
	s.entries = kept
}

// Len returns the number of recorded entries.
func (s *Selection) Len() int {
	return len(s.entries)
}

// Entries returns a copy of the recorded entries in selection order.
func (s *Selection) Entries() []SelectedField {
	out := make([]SelectedField, len(s.entries))
	copy(out, s.entries)
	return out
}

// Clear drops every entry.
func (s *Selection) Clear() {
	s.entries = nil
}

// Collapse flattens the selection into a field-to-value map. Later entries
// for the same field overwrite earlier ones.
func (s *Selection) Collapse() map[string]string {
	out := make(map[string]string, len(s.entries))
	for _, e := range s.entries {
		out[e.Field] = e.Value
	}
	return out
}

// SelectAllExternal builds the selection a full takeover of the external
// record produces: every comparison field with its external value, empty or
// not.
func SelectAllExternal(rows []ComparisonRow) map[string]string {
	out := make(map[string]string, len(rows))
	for _, row := range rows {
		out[row.Field] = row.External
	}
	return out
}
