package ir

// CollectRefs computes the referenced declaration names of d from its
// typed payload. Primitive names are skipped, duplicates and self
// references are dropped, and first-appearance order is preserved.
//
// Nested declarations are not part of the payload; compilers append their
// names explicitly.
func CollectRefs(d *Declaration) []string {
	c := refCollector{self: d.Name, seen: make(map[string]bool)}

	for _, p := range d.Params {
		c.addType(p.Type)
	}
	if d.Return != nil {
		c.addType(*d.Return)
	}
	for _, f := range d.Fields {
		c.addType(f.Type)
	}
	if d.Underlying != "" {
		c.add(d.Underlying)
	}
	c.add(d.Release)
	c.add(d.Base)
	for _, m := range d.Methods {
		for _, p := range m.Params {
			c.addType(p.Type)
		}
		if m.Return != nil {
			c.addType(*m.Return)
		}
	}
	if d.Type != nil {
		c.addType(*d.Type)
	}

	if c.refs == nil {
		return []string{}
	}
	return c.refs
}

type refCollector struct {
	self string
	seen map[string]bool
	refs []string
}

func (c *refCollector) addType(t TypeRef) {
	c.add(t.Name)
}

func (c *refCollector) add(name string) {
	if name == "" || name == c.self || IsPrimitive(name) || c.seen[name] {
		return
	}
	c.seen[name] = true
	c.refs = append(c.refs, name)
}
