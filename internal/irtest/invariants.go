package irtest

import (
	"fmt"

	"ilmerge/internal/ir"
)

// CheckInvariants validates the structural links of a module:
// 1) every declared node carries a NodeID and no ID is used twice
// 2) nested types, members and parameters point back at their owner
// 3) every declared type's home module is m
func CheckInvariants(m *ir.Module) error {
	if m == nil {
		return fmt.Errorf("nil module")
	}
	seen := make(map[ir.NodeID]string)
	claim := func(id ir.NodeID, what string) error {
		if !id.IsValid() {
			return fmt.Errorf("%s has no node id", what)
		}
		if prev, ok := seen[id]; ok {
			return fmt.Errorf("node id %s used by %s and %s", id, prev, what)
		}
		seen[id] = what
		return nil
	}

	for _, t := range m.AllTypes() {
		name := t.FullName()
		if err := claim(t.ID, "type "+name); err != nil {
			return err
		}
		if t.HomeModule() != m {
			return fmt.Errorf("type %s: home module is not %s", name, m.Name)
		}
		for _, n := range t.NestedTypes {
			if n.DeclaringType != t {
				return fmt.Errorf("nested type %s does not point at %s", n.Name, name)
			}
		}
		for _, f := range t.Fields {
			if err := claim(f.ID, "field "+name+"::"+f.Name); err != nil {
				return err
			}
			if f.DeclaringType != t {
				return fmt.Errorf("field %s::%s has wrong declaring type", name, f.Name)
			}
		}
		for _, meth := range t.Methods {
			if err := claim(meth.ID, "method "+meth.FullName()); err != nil {
				return err
			}
			if meth.DeclaringType != t {
				return fmt.Errorf("method %s has wrong declaring type", meth.FullName())
			}
			for _, p := range meth.Params {
				if p.DeclaringMethod != meth {
					return fmt.Errorf("param %s of %s has wrong declaring method", p.Name, meth.FullName())
				}
			}
			if err := checkBlocks(meth, claim); err != nil {
				return err
			}
		}
	}
	return nil
}

func checkBlocks(m *ir.Method, claim func(ir.NodeID, string) error) error {
	if m.Body == nil {
		return nil
	}
	if err := claim(m.Body.ID, "body of "+m.FullName()); err != nil {
		return err
	}
	var err error
	m.Body.Walk(func(s *ir.Stmt) bool {
		if err != nil {
			return false
		}
		for _, b := range s.Blocks() {
			if e := claim(b.ID, "block in "+m.FullName()); e != nil {
				err = e
				return false
			}
		}
		return true
	})
	return err
}
