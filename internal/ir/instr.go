package ir

// Instr is a sealed interface over prelude instructions. Preludes carry
// the side-effecting parts of an expression (container construction, item
// access, method calls, boxing) hoisted ahead of the statement that uses
// their Temp results.
type Instr interface {
	instr() // Sealed - only types in this package implement it
}

// ListNew builds a list object from already-evaluated items.
type ListNew struct {
	Result Temp
	Items  []Expr
}

func (ListNew) instr() {}

// TupleNew builds a heap tuple object.
type TupleNew struct {
	Result Temp
	Items  []Expr
}

func (TupleNew) instr() {}

// SetNew builds a set object.
type SetNew struct {
	Result Temp
	Items  []Expr
}

func (SetNew) instr() {}

// DictNew builds a dict object and stores each entry.
type DictNew struct {
	Result  Temp
	Entries []DictEntry
}

// DictEntry is one key/value pair of a dict display.
type DictEntry struct {
	Key   Expr
	Value Expr
}

func (DictNew) instr() {}

// GetItem loads container[key] through the runtime subscript protocol.
type GetItem struct {
	Result    Temp
	Container Expr
	Key       Expr
}

func (GetItem) instr() {}

// SetItem stores container[key] = value.
type SetItem struct {
	Container Expr
	Key       Expr
	Value     Expr
}

func (SetItem) instr() {}

// FastGetItem loads a list element through the direct-structure fast
// path chosen by the builder: plain non-negative constant index, negative
// constant index, or runtime-signed index.
type FastGetItem struct {
	Result   Temp
	List     Expr
	Index    Expr
	IndexNeg bool // constant negative index
	Signed   bool // runtime index of unknown sign
}

func (FastGetItem) instr() {}

// MethodOp enumerates the lowering strategies for recognized container
// and string methods. Adding support for a new method means classifying
// its name onto one of these cases in irbuild; no new control flow.
type MethodOp int

const (
	// MethodAppend lowers to mp_obj_list_append.
	MethodAppend MethodOp = iota
	// MethodPop lowers to a load-method/call-method statement block.
	MethodPop
	// MethodDictGet lowers to mp_obj_dict_get (1 arg) or a 2-arg call.
	MethodDictGet
	// MethodSetDefault lowers to a 1- or 2-arg attr call.
	MethodSetDefault
	// MethodUpdate lowers to a 0- or 1-arg attr call.
	MethodUpdate
	// MethodSetAdd lowers to mp_obj_set_store.
	MethodSetAdd
	// MethodZeroArg lowers to mp_call_function_0 on the loaded attribute.
	MethodZeroArg
	// MethodOneArg lowers to mp_call_function_1 on the loaded attribute.
	MethodOneArg
	// MethodTwoArg lowers to a 0/1/2-arg attr call.
	MethodTwoArg
	// MethodGeneric is the load-method/call-method fallback for anything
	// not otherwise classified.
	MethodGeneric
)

// MethodCall invokes a recognized container/string method on a receiver.
// Name is kept for MP_QSTR_ emission; Op selects the lowering strategy.
type MethodCall struct {
	Result   *Temp // nil when the result is discarded
	Receiver Expr
	Name     string
	Op       MethodOp
	Args     []Expr
}

func (MethodCall) instr() {}

// Box converts a native value to mp_obj_t.
type Box struct {
	Result Temp
	Value  Expr
}

func (Box) instr() {}

// Unbox converts a boxed value to the target native kind.
type Unbox struct {
	Result Temp
	Value  Expr
	Target Kind
}

func (Unbox) instr() {}

// AttrLoad reads a field of an object whose class is statically known,
// through a typed pointer cast.
type AttrLoad struct {
	Result Temp
	Obj    Expr
	ClassC string
	Attr   string
	Kind   Kind
}

func (AttrLoad) instr() {}

// AttrLoadDyn reads an attribute through the runtime when the object's
// class is not statically known.
type AttrLoadDyn struct {
	Result Temp
	Obj    Expr
	Attr   string
}

func (AttrLoadDyn) instr() {}

// ListComp is a list comprehension lowered to an inline accumulation
// loop. Range-form comprehensions iterate a native counter; otherwise the
// iterator protocol is used.
type ListComp struct {
	Result     Temp
	CLoopVar   string
	IsRange    bool
	RangeStart Expr // nil means 0
	RangeEnd   Expr
	RangeStep  Expr // nil means 1

	IterPrelude []Instr
	Iterable    Expr // iterator form only

	ElementPrelude   []Instr
	Element          Expr
	ConditionPrelude []Instr
	Condition        Expr // nil when the comprehension has no filter
}

func (ListComp) instr() {}
