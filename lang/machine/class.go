package machine

import "fmt"

// Class holds a name, an optional superclass, the instance-method and
// field-index map triads (all + public variants), a default-field-values
// vector, the static-method/field maps, a cached init method, and a
// one-slot method-lookup cache (§3.2, §4.5).
type Class struct {
	objHeader

	Name       string
	Superclass *Class

	AllInstanceMethods *Map
	PubInstanceMethods *Map
	AllFieldIndexes    *Map
	PubFieldIndexes    *Map
	DefaultFieldValues []Value

	StaticMethods *Map
	StaticFields  *Map

	InitMethod Value // Null if none

	// methodCache is the one-slot (name, value) cache invalidated by any
	// new lookup with a different name; method redefinition is rare
	// outside class-definition time (§4.5).
	methodCacheName  string
	methodCacheValue Value
	methodCacheValid bool

	pubMethodCacheName  string
	pubMethodCacheValue Value
	pubMethodCacheValid bool
}

// newClass pre-allocates the six internal maps and the default-field-
// values vector, exactly as PyroClass_new does, and initializes every
// pointer field to a safe zero value before any sub-allocation so the GC
// can sweep a partially-constructed class if the accountant refuses a
// later allocation (§4.5's tolerate-partial-failure rule).
func (vm *VM) newClass(name string) *Class {
	c := &Class{Name: name, InitMethod: Null}
	c.objType = ObjClass
	vm.registerObject(c)

	c.AllInstanceMethods = vm.newMap()
	c.PubInstanceMethods = vm.newMap()
	c.AllFieldIndexes = vm.newMap()
	c.PubFieldIndexes = vm.newMap()
	c.StaticMethods = vm.newMap()
	c.StaticFields = vm.newMap()
	return c
}

func (c *Class) typeName() string    { return "class" }
func (c *Class) debugString() string { return fmt.Sprintf("class(%s)", c.Name) }

func (c *Class) blacken(gc *collector) {
	if c.Superclass != nil {
		gc.markObject(c.Superclass)
	}
	gc.markObject(c.AllInstanceMethods)
	gc.markObject(c.PubInstanceMethods)
	gc.markObject(c.AllFieldIndexes)
	gc.markObject(c.PubFieldIndexes)
	gc.markObject(c.StaticMethods)
	gc.markObject(c.StaticFields)
	for _, v := range c.DefaultFieldValues {
		gc.markValue(v)
	}
	gc.markValue(c.InitMethod)
	if c.methodCacheValid {
		gc.markValue(c.methodCacheValue)
	}
	if c.pubMethodCacheValid {
		gc.markValue(c.pubMethodCacheValue)
	}
}

// DefineField appends a default value and records its index under name in
// AllFieldIndexes (and PubFieldIndexes if public), maintaining the §3.3
// invariant that default_field_values.count == all_field_indexes.size.
func (c *Class) DefineField(vm *VM, name string, public bool, defaultValue Value) {
	idx := int64(len(c.DefaultFieldValues))
	c.DefaultFieldValues = append(c.DefaultFieldValues, defaultValue)
	key := Obj(vm.internString(name))
	c.AllFieldIndexes.Set(key, I64(idx))
	if public {
		c.PubFieldIndexes.Set(key, I64(idx))
	}
}

// DefineMethod installs fn under name in AllInstanceMethods (and
// PubInstanceMethods if public), invalidating any lookup cache entry for
// the same name.
func (c *Class) DefineMethod(vm *VM, name string, public bool, fn Value) {
	key := Obj(vm.internString(name))
	c.AllInstanceMethods.Set(key, fn)
	if public {
		c.PubInstanceMethods.Set(key, fn)
	}
	if name == "$init" {
		c.InitMethod = fn
	}
	if c.methodCacheName == name {
		c.methodCacheValid = false
	}
	if c.pubMethodCacheName == name {
		c.pubMethodCacheValid = false
	}
}

func (c *Class) DefineStaticMethod(vm *VM, name string, fn Value) {
	c.StaticMethods.Set(Obj(vm.internString(name)), fn)
}

func (c *Class) DefineStaticField(vm *VM, name string, val Value) {
	c.StaticFields.Set(Obj(vm.internString(name)), val)
}

// lookupMethod queries AllInstanceMethods (or PubInstanceMethods when
// public is true), short-circuiting repeated same-name lookups through the
// one-slot cache (§4.5, §4.9). ok is false if not found; isPrivate is true
// only in the public-lookup case when the name exists in AllInstanceMethods
// but not PubInstanceMethods (the caller should report "method X is
// private").
func (vm *VM) lookupMethod(c *Class, name string, public bool) (Value, bool, bool) {
	if public {
		if c.pubMethodCacheValid && c.pubMethodCacheName == name {
			return c.pubMethodCacheValue, true, false
		}
	} else {
		if c.methodCacheValid && c.methodCacheName == name {
			return c.methodCacheValue, true, false
		}
	}

	key := Obj(vm.internString(name))
	v, found := c.AllInstanceMethods.Get(key)
	if !found {
		return Null, false, false
	}

	c.methodCacheName = name
	c.methodCacheValue = v
	c.methodCacheValid = true

	if public {
		pv, pfound := c.PubInstanceMethods.Get(key)
		if !pfound {
			return Null, false, true
		}
		c.pubMethodCacheName = name
		c.pubMethodCacheValue = pv
		c.pubMethodCacheValid = true
		return pv, true, false
	}

	return v, true, false
}

// inherit copies down all six class maps from super to sub, sets
// sub.Superclass and sub.InitMethod, and forbids self-inheritance (§4.10
// INHERIT opcode).
func (vm *VM) inherit(sub, super *Class) error {
	if sub == super {
		return fmt.Errorf("a class cannot inherit from itself")
	}
	super.AllInstanceMethods.table.copyEntriesInto(sub.AllInstanceMethods.table)
	super.PubInstanceMethods.table.copyEntriesInto(sub.PubInstanceMethods.table)
	super.AllFieldIndexes.table.copyEntriesInto(sub.AllFieldIndexes.table)
	super.PubFieldIndexes.table.copyEntriesInto(sub.PubFieldIndexes.table)
	super.StaticMethods.table.copyEntriesInto(sub.StaticMethods.table)
	super.StaticFields.table.copyEntriesInto(sub.StaticFields.table)
	sub.DefaultFieldValues = append(append([]Value(nil), super.DefaultFieldValues...), sub.DefaultFieldValues...)
	sub.Superclass = super
	sub.InitMethod = super.InitMethod
	return nil
}
