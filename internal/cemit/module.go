package cemit

import (
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/pyrite/internal/ir"
)

// moduleUses aggregates the per-body emission requirements that decide
// which include lines and helper blocks the translation unit carries.
type moduleUses struct {
	print      bool
	listOpt    bool
	builtins   bool
	checkedDiv bool
	rtuples    map[string]ir.RTuple
}

func aggregateUses(m *ir.ModuleIR) moduleUses {
	agg := moduleUses{rtuples: make(map[string]ir.RTuple)}
	take := func(print, listOpt, builtins, checkedDiv bool, rts []ir.RTuple) {
		agg.print = agg.print || print
		agg.listOpt = agg.listOpt || listOpt
		agg.builtins = agg.builtins || builtins
		agg.checkedDiv = agg.checkedDiv || checkedDiv
		for _, rt := range rts {
			agg.rtuples[rt.Key()] = rt
		}
	}
	for _, name := range m.FunctionOrder {
		fn := m.Functions[name]
		take(fn.UsesPrint, fn.UsesListOpt, fn.UsesBuiltins, fn.UsesCheckedDiv, fn.UsedRTuples)
	}
	for _, cname := range m.ClassOrder {
		cls := m.Classes[cname]
		for _, mname := range cls.MethodOrder {
			mth := cls.Methods[mname]
			take(mth.UsesPrint, mth.UsesListOpt, mth.UsesBuiltins, mth.UsesCheckedDiv, mth.UsedRTuples)
		}
	}
	return agg
}

func (u moduleUses) sortedRTuples() []ir.RTuple {
	out := make([]ir.RTuple, 0, len(u.rtuples))
	for _, rt := range u.rtuples {
		out = append(out, rt)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].StructName() < out[j].StructName()
	})
	return out
}

// EmitModule assembles the complete C translation unit: includes,
// forward declarations, shared typedefs and helper blocks, struct
// layouts, prototypes, function and class code, and the registration
// tail. Base pointers and vtable layouts must be resolved beforehand.
func EmitModule(m *ir.ModuleIR) string {
	agg := aggregateUses(m)
	classes := m.ClassesInOrder()

	var sections []string
	add := func(lines []string) {
		if len(lines) > 0 {
			sections = append(sections, strings.Join(lines, "\n"))
		}
	}

	add(emitIncludes(agg))
	add(emitForwardDecls(classes))
	add(emitFFIDecls(m.FFIBindings))

	if rts := agg.sortedRTuples(); len(rts) > 0 {
		var lines []string
		for _, rt := range rts {
			lines = append(lines, rt.Typedef())
		}
		add(lines)
	}

	add(floatHelper)
	if agg.checkedDiv {
		add(checkedDivHelpers)
	}
	if agg.listOpt {
		add(listHelpers)
	}

	add(emitStructs(m, classes))
	add(emitPrototypes(m, classes))

	for _, name := range m.FunctionOrder {
		fn := m.Functions[name]
		if fn.IsGenerator {
			g := NewGeneratorEmitter(fn)
			sections = append(sections, g.EmitIternext(), g.EmitWrapper())
			continue
		}
		sections = append(sections, NewFunctionEmitter(fn).Emit())
	}

	for _, cls := range classes {
		for _, mname := range cls.MethodOrder {
			meth := cls.Methods[mname]
			me := NewMethodEmitter(cls, meth)
			sections = append(sections, me.EmitNative())
			// Private methods never reach the locals dict, so a boxed
			// wrapper would have no caller.
			if !meth.IsPrivate || meth.IsProperty || meth.IsSetter {
				sections = append(sections, me.EmitWrapper())
			}
		}
		sections = append(sections, NewClassEmitter(cls).EmitSupport())
	}

	add(emitGlobalsTable(m))
	add(emitRegistration(m.CName))

	return strings.Join(sections, "\n\n") + "\n"
}

func emitIncludes(agg moduleUses) []string {
	lines := []string{
		`#include "py/runtime.h"`,
		`#include "py/obj.h"`,
		`#include "py/objtype.h"`,
		`#include <stddef.h>`,
	}
	if agg.print {
		lines = append(lines, `#include "py/mpprint.h"`)
	}
	if agg.builtins {
		lines = append(lines, `#include "py/builtin.h"`)
	}
	return lines
}

func emitForwardDecls(classes []*ir.ClassIR) []string {
	var lines []string
	for _, cls := range classes {
		lines = append(lines, NewClassEmitter(cls).EmitForwardDecls()...)
	}
	return lines
}

// emitFFIDecls declares the extern symbols the sibling binding generator
// provides. All cross-boundary values travel boxed.
func emitFFIDecls(bindings []ir.FFIBinding) []string {
	var lines []string
	for _, b := range bindings {
		params := "void"
		if b.NArgs > 0 {
			parts := make([]string, b.NArgs)
			for i := range parts {
				parts[i] = fmt.Sprintf("mp_obj_t arg%d", i)
			}
			params = strings.Join(parts, ", ")
		}
		lines = append(lines, fmt.Sprintf("extern mp_obj_t %s_%s(%s);",
			ir.SanitizeName(b.Alias), ir.SanitizeName(b.Member), params))
	}
	return lines
}

func emitStructs(m *ir.ModuleIR, classes []*ir.ClassIR) []string {
	var lines []string
	for _, cls := range classes {
		lines = append(lines, NewClassEmitter(cls).EmitStruct()...)
		lines = append(lines, "")
	}
	for _, name := range m.FunctionOrder {
		fn := m.Functions[name]
		if fn.IsGenerator {
			lines = append(lines, NewGeneratorEmitter(fn).EmitStruct())
		}
	}
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// emitPrototypes declares every callable before any body, so emission
// order never constrains who may call whom.
func emitPrototypes(m *ir.ModuleIR, classes []*ir.ClassIR) []string {
	var lines []string
	for _, name := range m.FunctionOrder {
		sig, _ := functionSignature(m.Functions[name])
		lines = append(lines, sig+";")
	}
	for _, cls := range classes {
		for _, mname := range cls.MethodOrder {
			lines = append(lines, NewMethodEmitter(cls, cls.Methods[mname]).nativeSignature()+";")
		}
	}
	return lines
}

func emitGlobalsTable(m *ir.ModuleIR) []string {
	lines := []string{
		fmt.Sprintf("static const mp_rom_map_elem_t %s_module_globals_table[] = {", m.CName),
		fmt.Sprintf("    { MP_ROM_QSTR(MP_QSTR___name__), MP_ROM_QSTR(MP_QSTR_%s) },", m.CName),
	}
	for _, name := range m.FunctionOrder {
		fn := m.Functions[name]
		lines = append(lines, fmt.Sprintf("    { MP_ROM_QSTR(MP_QSTR_%s), MP_ROM_PTR(&%s_obj) },",
			fn.Name, fn.CName))
	}
	for _, name := range m.ClassOrder {
		cls := m.Classes[name]
		lines = append(lines, fmt.Sprintf("    { MP_ROM_QSTR(MP_QSTR_%s), MP_ROM_PTR(&%s_type) },",
			cls.Name, cls.CName))
	}
	lines = append(lines, "};")
	lines = append(lines, fmt.Sprintf("MP_DEFINE_CONST_DICT(%s_module_globals, %s_module_globals_table);",
		m.CName, m.CName))
	return lines
}

func emitRegistration(cName string) []string {
	return []string{
		fmt.Sprintf("const mp_obj_module_t %s_user_cmodule = {", cName),
		"    .base = { &mp_type_module },",
		fmt.Sprintf("    .globals = (mp_obj_dict_t *)&%s_module_globals,", cName),
		"};",
		"",
		fmt.Sprintf("MP_REGISTER_MODULE(MP_QSTR_%s, %s_user_cmodule);", cName, cName),
	}
}

// floatHelper bridges int-or-float arguments into native float slots.
// Guarded so float-less ports still compile the integer-only remainder.
var floatHelper = []string{
	"#if MICROPY_FLOAT_IMPL != MICROPY_FLOAT_IMPL_NONE",
	"static inline mp_float_t mp_get_float_checked(mp_obj_t obj) {",
	"    if (mp_obj_is_float(obj)) {",
	"        return mp_obj_float_get(obj);",
	"    }",
	"    return (mp_float_t)mp_obj_get_int(obj);",
	"}",
	"#endif",
}

// checkedDivHelpers give native integer floor division and modulo the
// Python sign convention and the zero check.
var checkedDivHelpers = []string{
	"static inline mp_int_t mp_int_floor_divide_checked(mp_int_t num, mp_int_t denom) {",
	"    if (denom == 0) {",
	`        mp_raise_msg(&mp_type_ZeroDivisionError, MP_ERROR_TEXT("division by zero"));`,
	"    }",
	"    if (num >= 0) {",
	"        if (denom < 0) {",
	"            num += -denom - 1;",
	"        }",
	"    } else {",
	"        if (denom >= 0) {",
	"            num += -denom + 1;",
	"        }",
	"    }",
	"    return num / denom;",
	"}",
	"",
	"static inline mp_int_t mp_int_modulo_checked(mp_int_t dividend, mp_int_t divisor) {",
	"    if (divisor == 0) {",
	`        mp_raise_msg(&mp_type_ZeroDivisionError, MP_ERROR_TEXT("division by zero"));`,
	"    }",
	"    dividend %= divisor;",
	"    if ((dividend < 0 && divisor > 0) || (dividend > 0 && divisor < 0)) {",
	"        dividend += divisor;",
	"    }",
	"    return dividend;",
	"}",
}

// listHelpers are the unchecked fast paths for list-typed values whose
// bounds the lowering already proved or rechecked.
var listHelpers = []string{
	`#include "py/objlist.h"`,
	"",
	"static inline mp_obj_t mp_list_get_fast(mp_obj_t list, size_t index) {",
	"    mp_obj_list_t *self = MP_OBJ_TO_PTR(list);",
	"    return self->items[index];",
	"}",
	"",
	"static inline mp_obj_t mp_list_get_neg(mp_obj_t list, mp_int_t index) {",
	"    mp_obj_list_t *self = MP_OBJ_TO_PTR(list);",
	"    return self->items[self->len + index];",
	"}",
	"",
	"static inline mp_obj_t mp_list_get_int(mp_obj_t list, mp_int_t index) {",
	"    mp_obj_list_t *self = MP_OBJ_TO_PTR(list);",
	"    if (index < 0) {",
	"        index += self->len;",
	"    }",
	"    return self->items[index];",
	"}",
	"",
	"static inline size_t mp_list_len_fast(mp_obj_t list) {",
	"    return ((mp_obj_list_t *)MP_OBJ_TO_PTR(list))->len;",
	"}",
	"",
	"static inline mp_int_t mp_list_sum_int(mp_obj_t list) {",
	"    mp_obj_list_t *self = MP_OBJ_TO_PTR(list);",
	"    mp_int_t sum = 0;",
	"    for (size_t i = 0; i < self->len; i++) {",
	"        sum += mp_obj_get_int(self->items[i]);",
	"    }",
	"    return sum;",
	"}",
	"",
	"static inline mp_float_t mp_list_sum_float(mp_obj_t list) {",
	"    mp_obj_list_t *self = MP_OBJ_TO_PTR(list);",
	"    mp_float_t sum = 0.0;",
	"    for (size_t i = 0; i < self->len; i++) {",
	"        mp_obj_t item = self->items[i];",
	"        if (mp_obj_is_float(item)) {",
	"            sum += mp_obj_float_get(item);",
	"        } else {",
	"            sum += (mp_float_t)mp_obj_get_int(item);",
	"        }",
	"    }",
	"    return sum;",
	"}",
}
