package cemit

import (
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/pyrite/internal/irbuild"
	"github.com/roach88/pyrite/internal/pysrc"
)

func compileC(t *testing.T, src string) string {
	t.Helper()
	mod, err := pysrc.Parse(src)
	require.NoError(t, err)
	out, err := irbuild.New("demo", nil).Build(mod)
	require.NoError(t, err)
	return EmitModule(out)
}

func TestFunctionLowering(t *testing.T) {
	c := compileC(t, `
def add(a: int, b: int) -> int:
    return a + b
`)
	assert.Contains(t, c, "static mp_obj_t add(mp_obj_t a_obj, mp_obj_t b_obj)")
	assert.Contains(t, c, "mp_int_t a = mp_obj_get_int(a_obj);")
	assert.Contains(t, c, "return mp_obj_new_int((a + b));")
	assert.Contains(t, c, "MP_DEFINE_CONST_FUN_OBJ_2(add_obj, add);")
	assert.Contains(t, c, "{ MP_ROM_QSTR(MP_QSTR_add), MP_ROM_PTR(&add_obj) },")
	assert.Contains(t, c, "MP_REGISTER_MODULE(MP_QSTR_demo, demo_user_cmodule);")
}

func TestDefaultArgumentSignature(t *testing.T) {
	c := compileC(t, `
def scale(x: float, factor: float = 2.0) -> float:
    return x * factor
`)
	assert.Contains(t, c, "static mp_obj_t scale(size_t n_args, const mp_obj_t *args)")
	assert.Contains(t, c, "(n_args > 1) ? mp_get_float_checked(args[1]) : 2.0;")
	assert.Contains(t, c, "MP_DEFINE_CONST_FUN_OBJ_VAR_BETWEEN(scale_obj, 1, 2, scale);")
}

func TestCheckedDivisionHelpers(t *testing.T) {
	c := compileC(t, `
def half(a: int, b: int) -> int:
    return a // b
`)
	assert.Contains(t, c, "static inline mp_int_t mp_int_floor_divide_checked")
	assert.Contains(t, c, "mp_int_floor_divide_checked(a, b)")
	assert.Contains(t, c, `MP_ERROR_TEXT("division by zero")`)
}

func TestPrintLowering(t *testing.T) {
	c := compileC(t, `
def shout(msg: str) -> None:
    print(msg)
`)
	assert.Contains(t, c, `#include "py/mpprint.h"`)
	assert.Contains(t, c, "mp_obj_print_helper(&mp_plat_print, msg, PRINT_STR);")
	assert.Contains(t, c, `mp_print_str(&mp_plat_print, "\n");`)
}

func TestListSumFastPath(t *testing.T) {
	c := compileC(t, `
def total(items: list[int]) -> int:
    return sum(items)
`)
	assert.Contains(t, c, `#include "py/objlist.h"`)
	assert.Contains(t, c, "static inline mp_int_t mp_list_sum_int")
	assert.Contains(t, c, "mp_list_sum_int(items)")
}

func TestFlatTupleLocal(t *testing.T) {
	c := compileC(t, `
def pair(a: int, b: int) -> int:
    p = (a, b)
    return p[0] + p[1]
`)
	assert.Contains(t, c, "typedef struct { mp_int_t f0; mp_int_t f1; } rtuple_int_int_t;")
	assert.Contains(t, c, "rtuple_int_int_t p = {a, b};")
	assert.Contains(t, c, "p.f0")
}

func TestTryExceptUsesNLR(t *testing.T) {
	c := compileC(t, `
def safe(a: int, b: int) -> int:
    try:
        return a // b
    except ZeroDivisionError:
        return 0
`)
	assert.Contains(t, c, "nlr_buf_t")
	assert.Contains(t, c, "if (nlr_push(")
	assert.Contains(t, c, "nlr_pop();")
	assert.Contains(t, c, "mp_obj_is_subclass_fast")
}

func TestFinallyRunsBeforeEarlyReturn(t *testing.T) {
	c := compileC(t, `
def f() -> int:
    try:
        return 1
    finally:
        print("bye")
`)
	ret := strings.Index(c, "return _t")
	bye := strings.Index(c, `"bye"`)
	require.GreaterOrEqual(t, ret, 0)
	require.GreaterOrEqual(t, bye, 0)
	// The finally body and the nlr_pop come before control leaves.
	assert.Less(t, bye, ret)
	assert.Less(t, strings.Index(c, "nlr_pop();"), bye)
	// Once on the return path, once on the fallthrough path.
	assert.Equal(t, 2, strings.Count(c, `"bye"`))
}

func TestBreakInsideTryRunsFinally(t *testing.T) {
	c := compileC(t, `
def drain(n: int) -> int:
    count = 0
    while count < n:
        try:
            count += 1
            break
        finally:
            print("out")
    return count
`)
	brk := strings.Index(c, "break;")
	out := strings.Index(c, `"out"`)
	pop := strings.Index(c, "nlr_pop();")
	require.GreaterOrEqual(t, brk, 0)
	require.GreaterOrEqual(t, out, 0)
	assert.Less(t, pop, brk)
	assert.Less(t, out, brk)
	assert.Equal(t, 2, strings.Count(c, `"out"`))
}

func TestStarArgsBodyReference(t *testing.T) {
	c := compileC(t, `
def collect(*args) -> int:
    return len(args)
`)
	assert.Contains(t, c, "mp_obj_t _star_args = mp_obj_new_tuple(")
	assert.Contains(t, c, "mp_obj_len(_star_args)")
}

func TestClassSurface(t *testing.T) {
	c := compileC(t, `
class Point:
    x: int
    y: int

    def __init__(self, x: int, y: int) -> None:
        self.x = x
        self.y = y

    def total(self) -> int:
        return self.x + self.y
`)
	assert.Contains(t, c, "typedef struct _Point_obj_t Point_obj_t;")
	assert.Contains(t, c, "static mp_int_t Point_total_native(Point_obj_t *self)")
	assert.Contains(t, c, "self->x")
	assert.Contains(t, c, "Point_make_new")
	assert.Contains(t, c, "{ MP_ROM_QSTR(MP_QSTR_total), MP_ROM_PTR(&Point_total_obj) },")
	assert.Contains(t, c, "{ MP_ROM_QSTR(MP_QSTR_Point), MP_ROM_PTR(&Point_type) },")
}

func TestVirtualDispatchThroughVTable(t *testing.T) {
	c := compileC(t, `
class Animal:
    def speak(self) -> int:
        return 1

class Dog(Animal):
    def speak(self) -> int:
        return 2

def talk(a: Animal) -> int:
    return a.speak()
`)
	assert.Contains(t, c, "typedef struct _Animal_vtable_t Animal_vtable_t;")
	assert.Contains(t, c, "vtable->speak")
	assert.Contains(t, c, "Dog_speak_native")
}

func TestSealedSubclassSeedsInheritedVTable(t *testing.T) {
	c := compileC(t, `
class Animal:
    def speak(self) -> int:
        return 1

@final
class Dog(Animal):
    def speak(self) -> int:
        return 2

def talk(a: Animal) -> int:
    return a.speak()
`)
	// Dog instances flow into Animal-typed receivers, so the constructor
	// must still seed the inherited vtable pointer with Dog's overrides.
	assert.Contains(t, c, "static const Dog_vtable_t Dog_vtable_inst = {")
	assert.Contains(t, c, ".speak = Dog_speak_native,")
	assert.Contains(t, c, "self->super.vtable = (const Animal_vtable_t *)&Dog_vtable_inst;")
}

func TestPrivateMethodsStayOffLocalsDict(t *testing.T) {
	c := compileC(t, `
class Counter:
    def _bump(self) -> int:
        return 1

    def tick(self) -> int:
        return self._bump()
`)
	assert.Contains(t, c, "Counter__bump_native")
	assert.Contains(t, c, "{ MP_ROM_QSTR(MP_QSTR_tick), MP_ROM_PTR(&Counter_tick_obj) },")
	assert.NotContains(t, c, "MP_QSTR__bump")
	assert.NotContains(t, c, "Counter__bump_obj")
}

func TestDataclassDerivation(t *testing.T) {
	c := compileC(t, `
@dataclass
class Vec:
    x: float
    y: float
`)
	assert.Contains(t, c, "Vec_make_new")
	assert.Contains(t, c, "mp_arg_parse_all_kw_array")
	assert.Contains(t, c, "MP_BINARY_OP_EQUAL")
	assert.Contains(t, c, `mp_printf(print, "Vec(");`)
}

func TestGeneratorLowering(t *testing.T) {
	c := compileC(t, `
def count(n: int):
    for i in range(n):
        yield i
`)
	assert.Contains(t, c, "typedef struct _count_gen_t {")
	assert.Contains(t, c, "uint16_t state;")
	assert.Contains(t, c, "static mp_obj_t count_gen_iternext(mp_obj_t self_in)")
	assert.Contains(t, c, "self->state = 0xFFFF;")
	assert.Contains(t, c, "case 1:\n        goto state_1;")
	assert.Contains(t, c, "for (self->i = 0, self->_end_i = self->n; self->i < self->_end_i; self->i++) {")
	assert.Contains(t, c, "self->state = 1;")
	assert.Contains(t, c, "return mp_obj_new_int(self->i);")
	assert.Contains(t, c, "state_1:;")
	assert.Contains(t, c, "MP_TYPE_FLAG_ITER_IS_ITERNEXT")
	assert.Contains(t, c, "mp_obj_malloc(count_gen_t, &count_gen_type);")
	assert.Contains(t, c, "gen->n = mp_obj_get_int(n_obj);")
	assert.Contains(t, c, "MP_DEFINE_CONST_FUN_OBJ_1(count_obj, count);")
}

func TestExternBindingDeclaration(t *testing.T) {
	c := compileC(t, `
import machine as hw

def restart() -> None:
    hw.reset()
`)
	assert.Contains(t, c, "extern mp_obj_t hw_reset(void);")
	assert.Contains(t, c, "hw_reset()")
}

func TestGoldenSimpleModule(t *testing.T) {
	c := compileC(t, `
def add(a: int, b: int) -> int:
    return a + b

def scale(x: float, factor: float = 2.0) -> float:
    return x * factor
`)
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "simple_module", []byte(c))
}
