package cemit

import (
	"fmt"
	"strings"

	"github.com/roach88/pyrite/internal/ir"
)

// ClassEmitter renders the C surface of one class: instance struct,
// vtable, runtime handlers, constructor, locals dict and type object.
// Method bodies are rendered separately by MethodEmitter.
type ClassEmitter struct {
	cls *ir.ClassIR
}

func NewClassEmitter(cls *ir.ClassIR) *ClassEmitter {
	return &ClassEmitter{cls: cls}
}

// fieldWithPath pairs a stored field with its member path from an
// instance pointer of this class.
type fieldWithPath struct {
	field *ir.FieldIR
	path  string
}

// allStoredFields walks base-first so inherited fields keep their
// declaration order. Final fields are folded at build time and never
// stored.
func (e *ClassEmitter) allStoredFields() []fieldWithPath {
	var out []fieldWithPath
	var walk func(c *ir.ClassIR, prefix string)
	walk = func(c *ir.ClassIR, prefix string) {
		if c.Base != nil {
			walk(c.Base, prefix+"super.")
		}
		for i := range c.Fields {
			f := &c.Fields[i]
			if f.IsFinal {
				continue
			}
			out = append(out, fieldWithPath{field: f, path: prefix + f.CName})
		}
	}
	walk(e.cls, "")
	return out
}

// propertyInfo pairs a property getter with its optional setter and the
// class that declares each.
type propertyInfo struct {
	name        string
	getter      *ir.MethodIR
	getterOwner *ir.ClassIR
	setter      *ir.MethodIR
	setterOwner *ir.ClassIR
}

// allProperties resolves properties along the base chain; the most
// derived getter wins its name.
func (e *ClassEmitter) allProperties() []propertyInfo {
	var out []propertyInfo
	seen := map[string]bool{}
	for c := e.cls; c != nil; c = c.Base {
		for _, name := range c.MethodOrder {
			m := c.Methods[name]
			if !m.IsProperty || seen[m.Name] {
				continue
			}
			seen[m.Name] = true
			p := propertyInfo{name: m.Name, getter: m, getterOwner: c}
			if s, owner, ok := e.cls.MethodLookup(m.Name + ".setter"); ok {
				p.setter, p.setterOwner = s, owner
			}
			out = append(out, p)
		}
	}
	return out
}

// localsDictMethods lists the methods exposed through the locals dict:
// plain methods plus static/class methods. Private methods stay off the
// runtime surface, and dunders are excluded except the container
// protocol trio.
func (e *ClassEmitter) localsDictMethods() []methodWithOwner {
	var out []methodWithOwner
	seen := map[string]bool{}
	for c := e.cls; c != nil; c = c.Base {
		for _, key := range c.MethodOrder {
			m := c.Methods[key]
			if seen[m.Name] || m.IsProperty || m.IsSetter || m.IsPrivate {
				continue
			}
			seen[m.Name] = true
			if m.IsStatic || m.IsClassMethod {
				out = append(out, methodWithOwner{m, c})
				continue
			}
			if m.IsSpecial {
				switch m.Name {
				case "__len__", "__getitem__", "__setitem__":
					out = append(out, methodWithOwner{m, c})
				}
				continue
			}
			out = append(out, methodWithOwner{m, c})
		}
	}
	return out
}

type methodWithOwner struct {
	m     *ir.MethodIR
	owner *ir.ClassIR
}

func (e *ClassEmitter) method(name string) *ir.MethodIR {
	return e.cls.Methods[name]
}

// EmitForwardDecls returns the typedefs plus constructor and type
// declarations other translation units of the module body rely on.
func (e *ClassEmitter) EmitForwardDecls() []string {
	c := e.cls.CName
	lines := []string{fmt.Sprintf("typedef struct _%s_obj_t %s_obj_t;", c, c)}
	if len(e.cls.VTable) > 0 {
		lines = append(lines, fmt.Sprintf("typedef struct _%s_vtable_t %s_vtable_t;", c, c))
	}
	lines = append(lines,
		fmt.Sprintf("static mp_obj_t %s_make_new(const mp_obj_type_t *type, size_t n_args, size_t n_kw, const mp_obj_t *args);", c),
		fmt.Sprintf("extern const mp_obj_type_t %s_type;", c),
	)
	return lines
}

// EmitStruct returns the vtable struct (when the class is open) and the
// instance struct. A derived class embeds its base as the first member;
// the root holds the object header and the vtable pointer.
func (e *ClassEmitter) EmitStruct() []string {
	c := e.cls.CName
	var lines []string

	if len(e.cls.VTable) > 0 {
		lines = append(lines, fmt.Sprintf("struct _%s_vtable_t {", c))
		for _, entry := range e.cls.VTable {
			m := entry.Impl.Methods[entry.Name]
			params := []string{fmt.Sprintf("%s_obj_t *self", c)}
			for _, p := range m.Params {
				params = append(params, fmt.Sprintf("%s %s", p.Kind.CType(), p.CName))
			}
			lines = append(lines, fmt.Sprintf("    %s (*%s)(%s);",
				m.RetKind.CType(), entry.Name, strings.Join(params, ", ")))
		}
		lines = append(lines, "};", "")
	}

	lines = append(lines, fmt.Sprintf("struct _%s_obj_t {", c))
	if e.cls.Base != nil {
		lines = append(lines, fmt.Sprintf("    %s_obj_t super;", e.cls.Base.CName))
	} else {
		lines = append(lines, "    mp_obj_base_t base;")
		if len(e.cls.VTable) > 0 {
			lines = append(lines, fmt.Sprintf("    const %s_vtable_t *vtable;", c))
		}
	}
	for i := range e.cls.Fields {
		f := &e.cls.Fields[i]
		if f.IsFinal {
			continue
		}
		lines = append(lines, fmt.Sprintf("    %s %s;", f.Kind.CType(), f.CName))
	}
	lines = append(lines, "};", "")
	return lines
}

func fieldTypeID(k ir.Kind) int {
	switch k {
	case ir.KindInt:
		return 1
	case ir.KindFloat:
		return 2
	case ir.KindBool:
		return 3
	default:
		return 0
	}
}

func (e *ClassEmitter) emitFieldDescriptors() []string {
	fields := e.allStoredFields()
	if len(fields) == 0 {
		return nil
	}
	c := e.cls.CName
	lines := []string{
		"typedef struct {",
		"    qstr name;",
		"    uint16_t offset;",
		"    uint8_t type;",
		fmt.Sprintf("} %s_field_t;", c),
		"",
		fmt.Sprintf("static const %s_field_t %s_fields[] = {", c, c),
	}
	for _, fp := range fields {
		lines = append(lines, fmt.Sprintf("    { MP_QSTR_%s, offsetof(%s_obj_t, %s), %d },",
			fp.field.Name, c, fp.path, fieldTypeID(fp.field.Kind)))
	}
	lines = append(lines, "    { MP_QSTR_NULL, 0, 0 }", "};", "")
	return lines
}

// propertySelf renders the receiver for a property entry whose owner
// may be an ancestor.
func (e *ClassEmitter) propertySelf(owner *ir.ClassIR) string {
	if owner == e.cls {
		return "self"
	}
	return fmt.Sprintf("(%s_obj_t *)self", owner.CName)
}

func (e *ClassEmitter) emitPropertyDispatch(props []propertyInfo) []string {
	var lines []string
	for _, p := range props {
		lines = append(lines, fmt.Sprintf("    if (attr == MP_QSTR_%s) {", p.name))
		lines = append(lines, "        if (dest[0] == MP_OBJ_NULL) {")
		call := fmt.Sprintf("%s_native(%s)", p.getter.CName, e.propertySelf(p.getterOwner))
		lines = append(lines, fmt.Sprintf("            dest[0] = %s;", boxValue(call, p.getter.RetKind)))
		lines = append(lines, "            return;", "        }")
		lines = append(lines, "        if (dest[1] != MP_OBJ_NULL) {")
		if p.setter != nil && len(p.setter.Params) > 0 {
			arg := unboxValue("dest[1]", p.setter.Params[0].Kind)
			lines = append(lines, fmt.Sprintf("            %s_native(%s, %s);",
				p.setter.CName, e.propertySelf(p.setterOwner), arg))
			lines = append(lines, "            dest[0] = MP_OBJ_NULL;")
		} else {
			lines = append(lines, "            dest[1] = MP_OBJ_SENTINEL;")
		}
		lines = append(lines, "            return;", "        }", "    }", "")
	}
	return lines
}

// emitAttrHandler serves field loads and stores through the descriptor
// table, with properties dispatched ahead of it. Unmatched names fall
// through to the runtime's default lookup.
func (e *ClassEmitter) emitAttrHandler() []string {
	fields := e.allStoredFields()
	props := e.allProperties()
	if len(fields) == 0 && len(props) == 0 {
		return nil
	}
	c := e.cls.CName

	lines := []string{fmt.Sprintf("static void %s_attr(mp_obj_t self_in, qstr attr, mp_obj_t *dest) {", c)}
	if len(fields) > 0 || len(props) > 0 {
		lines = append(lines, fmt.Sprintf("    %s_obj_t *self = MP_OBJ_TO_PTR(self_in);", c), "")
	}
	lines = append(lines, e.emitPropertyDispatch(props)...)

	if len(fields) > 0 {
		lines = append(lines,
			fmt.Sprintf("    for (const %s_field_t *f = %s_fields; f->name != MP_QSTR_NULL; f++) {", c, c),
			"        if (f->name == attr) {",
			"            if (dest[0] == MP_OBJ_NULL) {",
			"                char *ptr = (char *)self + f->offset;",
			"                switch (f->type) {",
			"                    case 0: dest[0] = *(mp_obj_t *)ptr; break;",
			"                    case 1: dest[0] = mp_obj_new_int(*(mp_int_t *)ptr); break;",
			"                    case 2: dest[0] = mp_obj_new_float(*(mp_float_t *)ptr); break;",
			"                    case 3: dest[0] = *(bool *)ptr ? mp_const_true : mp_const_false; break;",
			"                }",
			"            } else if (dest[1] != MP_OBJ_NULL) {",
			"                char *ptr = (char *)self + f->offset;",
			"                switch (f->type) {",
			"                    case 0: *(mp_obj_t *)ptr = dest[1]; break;",
			"                    case 1: *(mp_int_t *)ptr = mp_obj_get_int(dest[1]); break;",
			"                    case 2: *(mp_float_t *)ptr = mp_obj_get_float(dest[1]); break;",
			"                    case 3: *(bool *)ptr = mp_obj_is_true(dest[1]); break;",
			"                }",
			"                dest[0] = MP_OBJ_NULL;",
			"            }",
			"            return;",
			"        }",
			"    }",
			"",
		)
	}
	lines = append(lines, "    dest[1] = MP_OBJ_SENTINEL;", "}", "")
	return lines
}

func (e *ClassEmitter) emitVTableInstance() []string {
	entries := e.cls.VTable
	if len(entries) == 0 {
		return nil
	}
	c := e.cls.CName
	lines := []string{fmt.Sprintf("static const %s_vtable_t %s_vtable_inst = {", c, c)}
	for _, entry := range entries {
		m := entry.Impl.Methods[entry.Name]
		if entry.Impl == e.cls {
			lines = append(lines, fmt.Sprintf("    .%s = %s_native,", entry.Name, m.CName))
			continue
		}
		// Inherited implementation: its self parameter is the ancestor's
		// struct, so the pointer needs a cast to this slot's type.
		params := []string{fmt.Sprintf("%s_obj_t *", c)}
		for _, p := range m.Params {
			params = append(params, p.Kind.CType())
		}
		lines = append(lines, fmt.Sprintf("    .%s = (%s (*)(%s))%s_native,",
			entry.Name, m.RetKind.CType(), strings.Join(params, ", "), m.CName))
	}
	lines = append(lines, "};", "")
	return lines
}

func (e *ClassEmitter) vtableInit() []string {
	if len(e.cls.VTable) == 0 {
		return nil
	}
	c := e.cls.CName
	path := e.cls.VTablePath()
	if e.cls.Base != nil {
		return []string{fmt.Sprintf("    self->%s = (const %s_vtable_t *)&%s_vtable_inst;",
			path, e.cls.Root().CName, c)}
	}
	return []string{fmt.Sprintf("    self->%s = &%s_vtable_inst;", path, c)}
}

// emitMakeNew builds the constructor: allocate, seed the vtable, zero
// the stored fields, then run __init__ through its boxed wrapper.
func (e *ClassEmitter) emitMakeNew() []string {
	if e.cls.IsDataclass {
		return e.emitDataclassMakeNew()
	}
	c := e.cls.CName

	var init *ir.MethodIR
	if m, _, ok := e.cls.MethodLookup("__init__"); ok {
		init = m
	}

	lines := []string{fmt.Sprintf(
		"static mp_obj_t %s_make_new(const mp_obj_type_t *type, size_t n_args, size_t n_kw, const mp_obj_t *args) {", c)}

	num, required := 0, 0
	if init != nil {
		num = len(init.Params)
		for _, p := range init.Params {
			if p.Default == nil {
				required++
			}
		}
	}
	lines = append(lines, fmt.Sprintf("    mp_arg_check_num(n_args, n_kw, %d, %d, false);", required, num))
	lines = append(lines, "", fmt.Sprintf("    %s_obj_t *self = mp_obj_malloc(%s_obj_t, type);", c, c))
	lines = append(lines, e.vtableInit()...)

	for _, fp := range e.allStoredFields() {
		switch fp.field.Kind {
		case ir.KindInt:
			lines = append(lines, fmt.Sprintf("    self->%s = 0;", fp.path))
		case ir.KindFloat:
			lines = append(lines, fmt.Sprintf("    self->%s = 0.0;", fp.path))
		case ir.KindBool:
			lines = append(lines, fmt.Sprintf("    self->%s = false;", fp.path))
		default:
			lines = append(lines, fmt.Sprintf("    self->%s = mp_const_none;", fp.path))
		}
	}

	if init != nil {
		lines = append(lines, "")
		if num+1 > 3 || required < num {
			// The wrapper uses the array convention; forward however many
			// arguments arrived.
			lines = append(lines,
				fmt.Sprintf("    mp_obj_t init_args[%d];", num+1),
				"    init_args[0] = MP_OBJ_FROM_PTR(self);",
				"    for (size_t i = 0; i < n_args; i++) {",
				"        init_args[i + 1] = args[i];",
				"    }",
				fmt.Sprintf("    %s_mp(n_args + 1, init_args);", init.CName))
		} else {
			parts := []string{"MP_OBJ_FROM_PTR(self)"}
			for i := 0; i < num; i++ {
				parts = append(parts, fmt.Sprintf("args[%d]", i))
			}
			lines = append(lines, fmt.Sprintf("    %s_mp(%s);", init.CName, strings.Join(parts, ", ")))
		}
	}

	lines = append(lines, "", "    return MP_OBJ_FROM_PTR(self);", "}", "")
	return lines
}

// emitDataclassMakeNew parses keyword-capable constructor arguments
// straight into the stored fields.
func (e *ClassEmitter) emitDataclassMakeNew() []string {
	c := e.cls.CName
	fields := e.allStoredFields()

	lines := []string{fmt.Sprintf(
		"static mp_obj_t %s_make_new(const mp_obj_type_t *type, size_t n_args, size_t n_kw, const mp_obj_t *args) {", c)}

	lines = append(lines, "    enum {")
	for _, fp := range fields {
		lines = append(lines, fmt.Sprintf("        ARG_%s,", fp.field.CName))
	}
	lines = append(lines, "    };")

	lines = append(lines, "    static const mp_arg_t allowed_args[] = {")
	for _, fp := range fields {
		f := fp.field
		switch f.Kind {
		case ir.KindInt:
			if f.Default != nil {
				lines = append(lines, fmt.Sprintf("        { MP_QSTR_%s, MP_ARG_INT, {.u_int = %s} },",
					f.Name, defaultC(f.Default, ir.KindInt)))
			} else {
				lines = append(lines, fmt.Sprintf("        { MP_QSTR_%s, MP_ARG_REQUIRED | MP_ARG_INT },", f.Name))
			}
		case ir.KindBool:
			if f.Default != nil {
				lines = append(lines, fmt.Sprintf("        { MP_QSTR_%s, MP_ARG_BOOL, {.u_bool = %s} },",
					f.Name, defaultC(f.Default, ir.KindBool)))
			} else {
				lines = append(lines, fmt.Sprintf("        { MP_QSTR_%s, MP_ARG_REQUIRED | MP_ARG_BOOL },", f.Name))
			}
		default:
			// Floats and objects both ride MP_ARG_OBJ; a none default is
			// resolved at store time.
			if f.Default != nil {
				lines = append(lines, fmt.Sprintf("        { MP_QSTR_%s, MP_ARG_OBJ, {.u_obj = MP_ROM_NONE} },", f.Name))
			} else {
				lines = append(lines, fmt.Sprintf("        { MP_QSTR_%s, MP_ARG_REQUIRED | MP_ARG_OBJ },", f.Name))
			}
		}
	}
	lines = append(lines, "    };", "")

	lines = append(lines,
		fmt.Sprintf("    mp_arg_val_t parsed[%d];", len(fields)),
		fmt.Sprintf("    mp_arg_parse_all_kw_array(n_args, n_kw, args, %d, allowed_args, parsed);", len(fields)),
		"",
		fmt.Sprintf("    %s_obj_t *self = mp_obj_malloc(%s_obj_t, type);", c, c))
	lines = append(lines, e.vtableInit()...)

	for _, fp := range fields {
		f := fp.field
		arg := fmt.Sprintf("parsed[ARG_%s]", f.CName)
		switch f.Kind {
		case ir.KindInt:
			lines = append(lines, fmt.Sprintf("    self->%s = %s.u_int;", fp.path, arg))
		case ir.KindBool:
			lines = append(lines, fmt.Sprintf("    self->%s = %s.u_bool;", fp.path, arg))
		case ir.KindFloat:
			if f.Default != nil {
				lines = append(lines, fmt.Sprintf("    self->%s = (%s.u_obj == mp_const_none) ? %s : mp_get_float_checked(%s.u_obj);",
					fp.path, arg, defaultC(f.Default, ir.KindFloat), arg))
			} else {
				lines = append(lines, fmt.Sprintf("    self->%s = mp_get_float_checked(%s.u_obj);", fp.path, arg))
			}
		default:
			if f.Default != nil {
				lines = append(lines, fmt.Sprintf("    self->%s = (%s.u_obj == mp_const_none) ? %s : %s.u_obj;",
					fp.path, arg, defaultC(f.Default, ir.KindDynamic), arg))
			} else {
				lines = append(lines, fmt.Sprintf("    self->%s = %s.u_obj;", fp.path, arg))
			}
		}
	}

	lines = append(lines, "", "    return MP_OBJ_FROM_PTR(self);", "}", "")
	return lines
}

func (e *ClassEmitter) emitPrintHandler() []string {
	c := e.cls.CName
	userRepr := e.method("__repr__")
	userStr := e.method("__str__")
	dataclassRepr := e.cls.IsDataclass && e.cls.Dataclass.Repr && userRepr == nil

	switch {
	case userStr != nil && userRepr != nil:
		return []string{
			fmt.Sprintf("static void %s_print(const mp_print_t *print, mp_obj_t self_in, mp_print_kind_t kind) {", c),
			"    mp_obj_t result;",
			"    if (kind == PRINT_STR) {",
			fmt.Sprintf("        result = %s_mp(self_in);", userStr.CName),
			"    } else {",
			fmt.Sprintf("        result = %s_mp(self_in);", userRepr.CName),
			"    }",
			"    mp_obj_print_helper(print, result, PRINT_STR);",
			"}",
			"",
		}
	case userRepr != nil:
		// str() falls back to repr().
		return []string{
			fmt.Sprintf("static void %s_print(const mp_print_t *print, mp_obj_t self_in, mp_print_kind_t kind) {", c),
			"    (void)kind;",
			fmt.Sprintf("    mp_obj_t result = %s_mp(self_in);", userRepr.CName),
			"    mp_obj_print_helper(print, result, PRINT_STR);",
			"}",
			"",
		}
	case userStr != nil:
		return []string{
			fmt.Sprintf("static void %s_print(const mp_print_t *print, mp_obj_t self_in, mp_print_kind_t kind) {", c),
			"    if (kind == PRINT_STR) {",
			fmt.Sprintf("        mp_obj_t result = %s_mp(self_in);", userStr.CName),
			"        mp_obj_print_helper(print, result, PRINT_STR);",
			"    } else {",
			fmt.Sprintf("        mp_printf(print, \"<%s object>\");", e.cls.Name),
			"    }",
			"}",
			"",
		}
	case dataclassRepr:
		return e.emitDataclassPrintHandler()
	default:
		return nil
	}
}

func (e *ClassEmitter) emitDataclassPrintHandler() []string {
	c := e.cls.CName
	lines := []string{
		fmt.Sprintf("static void %s_print(const mp_print_t *print, mp_obj_t self_in, mp_print_kind_t kind) {", c),
		fmt.Sprintf("    %s_obj_t *self = MP_OBJ_TO_PTR(self_in);", c),
		"    (void)kind;",
		fmt.Sprintf("    mp_printf(print, \"%s(\");", e.cls.Name),
	}
	for i, fp := range e.allStoredFields() {
		sep := ""
		if i > 0 {
			sep = ", "
		}
		switch fp.field.Kind {
		case ir.KindInt:
			lines = append(lines, fmt.Sprintf("    mp_printf(print, \"%s%s=%%d\", (int)self->%s);",
				sep, fp.field.Name, fp.path))
		case ir.KindBool:
			lines = append(lines, fmt.Sprintf("    mp_printf(print, \"%s%s=%%s\", self->%s ? \"True\" : \"False\");",
				sep, fp.field.Name, fp.path))
		case ir.KindFloat:
			lines = append(lines,
				fmt.Sprintf("    mp_printf(print, \"%s%s=\");", sep, fp.field.Name),
				fmt.Sprintf("    mp_obj_print_helper(print, mp_obj_new_float(self->%s), PRINT_REPR);", fp.path))
		default:
			lines = append(lines,
				fmt.Sprintf("    mp_printf(print, \"%s%s=\");", sep, fp.field.Name),
				fmt.Sprintf("    mp_obj_print_helper(print, self->%s, PRINT_REPR);", fp.path))
		}
	}
	lines = append(lines, "    mp_printf(print, \")\");", "}", "")
	return lines
}

var comparisonSlots = []struct {
	op     string
	method string
}{
	{"MP_BINARY_OP_EQUAL", "__eq__"},
	{"MP_BINARY_OP_NOT_EQUAL", "__ne__"},
	{"MP_BINARY_OP_LESS", "__lt__"},
	{"MP_BINARY_OP_LESS_EQUAL", "__le__"},
	{"MP_BINARY_OP_MORE", "__gt__"},
	{"MP_BINARY_OP_MORE_EQUAL", "__ge__"},
}

func (e *ClassEmitter) hasUserComparisons() bool {
	for _, s := range comparisonSlots {
		if e.method(s.method) != nil {
			return true
		}
	}
	return false
}

func (e *ClassEmitter) hasDataclassEq() bool {
	return e.cls.IsDataclass && e.cls.Dataclass.Eq && e.method("__eq__") == nil
}

func (e *ClassEmitter) emitBinaryOpHandler() []string {
	if !e.hasUserComparisons() && !e.hasDataclassEq() {
		return nil
	}
	c := e.cls.CName
	lines := []string{fmt.Sprintf(
		"static mp_obj_t %s_binary_op(mp_binary_op_t op, mp_obj_t lhs_in, mp_obj_t rhs_in) {", c)}

	for _, s := range comparisonSlots {
		if m := e.method(s.method); m != nil {
			lines = append(lines,
				fmt.Sprintf("    if (op == %s) {", s.op),
				fmt.Sprintf("        return %s_mp(lhs_in, rhs_in);", m.CName),
				"    }")
		}
	}

	if e.hasDataclassEq() {
		lines = append(lines,
			"    if (op == MP_BINARY_OP_EQUAL) {",
			"        if (!mp_obj_is_type(rhs_in, mp_obj_get_type(lhs_in))) {",
			"            return mp_const_false;",
			"        }",
			fmt.Sprintf("        %s_obj_t *lhs = MP_OBJ_TO_PTR(lhs_in);", c),
			fmt.Sprintf("        %s_obj_t *rhs = MP_OBJ_TO_PTR(rhs_in);", c))
		var conds []string
		for _, fp := range e.allStoredFields() {
			if fp.field.Kind == ir.KindDynamic {
				conds = append(conds, fmt.Sprintf("mp_obj_equal(lhs->%s, rhs->%s)", fp.path, fp.path))
			} else {
				conds = append(conds, fmt.Sprintf("lhs->%s == rhs->%s", fp.path, fp.path))
			}
		}
		if len(conds) == 0 {
			lines = append(lines, "        return mp_const_true;")
		} else {
			lines = append(lines,
				"        return mp_obj_new_bool(",
				"            "+strings.Join(conds, " &&\n            "),
				"        );")
		}
		lines = append(lines, "    }")
	}

	lines = append(lines, "    return MP_OBJ_NULL;", "}", "")
	return lines
}

func (e *ClassEmitter) emitUnaryOpHandler() []string {
	m := e.method("__hash__")
	if m == nil {
		return nil
	}
	c := e.cls.CName
	return []string{
		fmt.Sprintf("static mp_obj_t %s_unary_op(mp_unary_op_t op, mp_obj_t self_in) {", c),
		"    if (op == MP_UNARY_OP_HASH) {",
		fmt.Sprintf("        return %s_mp(self_in);", m.CName),
		"    }",
		"    return MP_OBJ_NULL;",
		"}",
		"",
	}
}

func (e *ClassEmitter) emitIterHandlers() []string {
	iter := e.method("__iter__")
	next := e.method("__next__")
	if iter == nil && next == nil {
		return nil
	}
	c := e.cls.CName
	var lines []string

	if iter != nil && next == nil {
		lines = append(lines,
			fmt.Sprintf("static mp_obj_t %s_getiter(mp_obj_t self_in, mp_obj_iter_buf_t *iter_buf) {", c),
			"    (void)iter_buf;",
			fmt.Sprintf("    return %s_mp(self_in);", iter.CName),
			"}",
			"")
	}

	if next != nil {
		// __next__ signals exhaustion by raising StopIteration; the slot
		// protocol wants the sentinel instead.
		lines = append(lines,
			fmt.Sprintf("static mp_obj_t %s_iternext(mp_obj_t self_in) {", c),
			"    nlr_buf_t nlr;",
			"    if (nlr_push(&nlr) == 0) {",
			fmt.Sprintf("        mp_obj_t result = %s_mp(self_in);", next.CName),
			"        nlr_pop();",
			"        return result;",
			"    } else {",
			"        mp_obj_t exc = MP_OBJ_FROM_PTR(nlr.ret_val);",
			"        if (mp_obj_is_subclass_fast(MP_OBJ_FROM_PTR(mp_obj_get_type(exc)), MP_OBJ_FROM_PTR(&mp_type_StopIteration))) {",
			"            return MP_OBJ_STOP_ITERATION;",
			"        }",
			"        nlr_jump(nlr.ret_val);",
			"    }",
			"}",
			"")
	}
	return lines
}

func (e *ClassEmitter) emitLocalsDict() []string {
	methods := e.localsDictMethods()
	if len(methods) == 0 {
		return nil
	}
	c := e.cls.CName
	var lines []string

	wrapped := false
	for _, mo := range methods {
		m := mo.m
		if (m.IsStatic || m.IsClassMethod) && mo.owner == e.cls {
			kind := "mp_type_staticmethod"
			if m.IsClassMethod {
				kind = "mp_type_classmethod"
			}
			lines = append(lines,
				fmt.Sprintf("static const mp_rom_obj_static_class_method_t %s_obj = {", m.CName),
				fmt.Sprintf("    {&%s}, MP_ROM_PTR(&%s_fun_obj)", kind, m.CName),
				"};")
			wrapped = true
		}
	}
	if wrapped {
		lines = append(lines, "")
	}

	lines = append(lines, fmt.Sprintf("static const mp_rom_map_elem_t %s_locals_dict_table[] = {", c))
	for _, mo := range methods {
		lines = append(lines, fmt.Sprintf("    { MP_ROM_QSTR(MP_QSTR_%s), MP_ROM_PTR(&%s_obj) },",
			mo.m.Name, mo.m.CName))
	}
	lines = append(lines, "};",
		fmt.Sprintf("static MP_DEFINE_CONST_DICT(%s_locals_dict, %s_locals_dict_table);", c, c),
		"")
	return lines
}

func (e *ClassEmitter) emitTypeDefinition() []string {
	c := e.cls.CName
	slots := []string{fmt.Sprintf("    make_new, %s_make_new", c)}

	if len(e.allStoredFields()) > 0 || len(e.allProperties()) > 0 {
		slots = append(slots, fmt.Sprintf("    attr, %s_attr", c))
	}
	if e.method("__str__") != nil || e.method("__repr__") != nil ||
		(e.cls.IsDataclass && e.cls.Dataclass.Repr) {
		slots = append(slots, fmt.Sprintf("    print, %s_print", c))
	}
	if e.hasUserComparisons() || e.hasDataclassEq() {
		slots = append(slots, fmt.Sprintf("    binary_op, %s_binary_op", c))
	}
	if e.method("__hash__") != nil {
		slots = append(slots, fmt.Sprintf("    unary_op, %s_unary_op", c))
	}

	hasNext := e.method("__next__") != nil
	hasIter := e.method("__iter__") != nil
	switch {
	case hasNext:
		slots = append(slots, fmt.Sprintf("    iter, %s_iternext", c))
	case hasIter:
		slots = append(slots, fmt.Sprintf("    iter, %s_getiter", c))
	}

	if e.cls.Base != nil {
		slots = append(slots, fmt.Sprintf("    parent, &%s_type", e.cls.Base.CName))
	}
	if len(e.localsDictMethods()) > 0 {
		slots = append(slots, fmt.Sprintf("    locals_dict, &%s_locals_dict", c))
	}

	flags := "MP_TYPE_FLAG_NONE"
	if hasNext {
		flags = "MP_TYPE_FLAG_ITER_IS_ITERNEXT"
	}

	lines := []string{
		"MP_DEFINE_CONST_OBJ_TYPE(",
		fmt.Sprintf("    %s_type,", c),
		fmt.Sprintf("    MP_QSTR_%s,", e.cls.Name),
		fmt.Sprintf("    %s,", flags),
		strings.Join(slots, ",\n"),
		");",
		"",
	}
	return lines
}

// EmitSupport returns everything except the struct and the method
// bodies: handlers, vtable instance, constructor, locals dict and the
// type object, in dependency order.
func (e *ClassEmitter) EmitSupport() string {
	var sections []string
	sections = append(sections, e.emitFieldDescriptors()...)
	sections = append(sections, e.emitAttrHandler()...)
	sections = append(sections, e.emitPrintHandler()...)
	sections = append(sections, e.emitBinaryOpHandler()...)
	sections = append(sections, e.emitUnaryOpHandler()...)
	sections = append(sections, e.emitIterHandlers()...)
	sections = append(sections, e.emitVTableInstance()...)
	sections = append(sections, e.emitMakeNew()...)
	sections = append(sections, e.emitLocalsDict()...)
	sections = append(sections, e.emitTypeDefinition()...)
	return strings.Join(sections, "\n")
}
