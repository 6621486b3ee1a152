package machine

// ObjectType is the closed set of heap object variants (§3.2).
type ObjectType uint8

const (
	ObjStr ObjectType = iota + 1
	ObjBuf
	ObjTup
	ObjVec
	ObjMap
	ObjClosure
	ObjFunction
	ObjNativeFn
	ObjBoundMethod
	ObjClass
	ObjInstance
	ObjModule
	ObjIter
	ObjQueue
	ObjUpvalue
	ObjFile
	ObjErr
	ObjResourcePointer
)

var objTypeNames = map[ObjectType]string{
	ObjStr:             "str",
	ObjBuf:              "buf",
	ObjTup:              "tup",
	ObjVec:              "vec",
	ObjMap:              "map",
	ObjClosure:          "closure",
	ObjFunction:         "function",
	ObjNativeFn:         "native_fn",
	ObjBoundMethod:      "bound_method",
	ObjClass:            "class",
	ObjInstance:         "instance",
	ObjModule:           "module",
	ObjIter:             "iter",
	ObjQueue:            "queue",
	ObjUpvalue:          "upvalue",
	ObjFile:             "file",
	ObjErr:              "err",
	ObjResourcePointer:  "resource_pointer",
}

func (t ObjectType) String() string {
	if s, ok := objTypeNames[t]; ok {
		return s
	}
	return "unknown"
}

// Object is implemented by every heap-allocated value. header returns the
// embedded object header so the GC and allocator can manipulate the
// object's list-linkage, class pointer and mark bit uniformly regardless of
// concrete type.
type Object interface {
	header() *objHeader
	objectType() ObjectType
	typeName() string
	debugString() string
	// blacken pushes every Value and Object this object directly
	// references onto the collector's grey stack / mark set. See gc.go.
	blacken(gc *collector)
}

// objHeader is the common state every heap object carries: a link to the
// next object in the VM's global object list (used for sweep), a reference
// to its class (may be nil), and a GC mark bit. It is embedded as the first
// field of every concrete object type.
type objHeader struct {
	next         Object
	class        *Class
	marked       bool
	objType      ObjectType
	identityHash uint64
}

func (h *objHeader) header() *objHeader   { return h }
func (h *objHeader) objectType() ObjectType { return h.objType }

func (h *objHeader) typeNameOrClass() string {
	if h.class != nil {
		return h.class.Name
	}
	return h.objType.String()
}

// classOf returns the Class driving method/field lookup for v, or nil if v
// is not an Obj or the object has no class (e.g. a bare Function).
func classOf(v Value) *Class {
	if !v.IsObj() || v.obj == nil {
		return nil
	}
	return v.obj.header().class
}
