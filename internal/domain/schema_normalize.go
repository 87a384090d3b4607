package domain

// NormalizeOptional corrects required properties that can also be null.
//
// A required property typed exactly null, or whose anyOf carries a null
// branch, loses the null branch and is removed from Required. When a single
// branch is left the property collapses to that branch, keeping the outer
// title, description and default. The walk descends through nested object
// properties only; array items are left untouched.
func (s *Schema) NormalizeOptional() {
	if !s.IsObject() || s.Properties == nil {
		return
	}
	for _, name := range s.Properties.Keys() {
		prop, _ := s.Properties.Get(name)
		if prop == nil {
			continue
		}
		if s.IsRequired(name) && prop.acceptsNull() {
			s.RemoveRequired(name)
			prop = prop.withoutNull()
			s.Properties.Set(name, prop)
		}
		prop.NormalizeOptional()
	}
}

func (s *Schema) acceptsNull() bool {
	if s.IsNullType() {
		return true
	}
	for _, b := range s.AnyOf {
		if b.IsNullType() {
			return true
		}
	}
	return false
}

// withoutNull strips null branches. A bare null type becomes an untyped node.
func (s *Schema) withoutNull() *Schema {
	if s.IsNullType() {
		c := s.Clone()
		c.Type = ""
		return c
	}
	branches := make([]*Schema, 0, len(s.AnyOf))
	for _, b := range s.AnyOf {
		if !b.IsNullType() {
			branches = append(branches, b)
		}
	}
	if len(branches) != 1 {
		c := s.Clone()
		c.AnyOf = branches
		return c
	}
	flat := branches[0].Clone()
	if s.Title != "" {
		flat.Title = s.Title
	}
	if s.Description != "" {
		flat.Description = s.Description
	}
	if s.Default != nil {
		flat.Default = s.Default
	}
	if s.In != "" {
		flat.In = s.In
	}
	return flat
}

// UnwrapOptional returns the non-null branch of an Optional[T]-style node and
// whether the node was optional at all. Nodes with more than one non-null
// branch keep their anyOf minus the null branch.
func (s *Schema) UnwrapOptional() (*Schema, bool) {
	if s == nil || !s.acceptsNull() || s.IsNullType() {
		return s, false
	}
	return s.withoutNull(), true
}
