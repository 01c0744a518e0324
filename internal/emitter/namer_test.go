package emitter

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/bindgen/internal/ir"
)

func topDecl(ns, name string, kind ir.Kind) ir.Declaration {
	return ir.Declaration{Name: ir.Qualify(ns, name), Namespace: ns, Kind: kind, Refs: []string{}}
}

func TestNamer_UniqueShortNames(t *testing.T) {
	n := NewNamer([]ir.Declaration{
		topDecl("Win32.Foundation", "RECT", ir.KindStruct),
		topDecl("Win32.System.Console", "Beep", ir.KindMethod),
	})

	assert.Equal(t, "RECT", n.Ident("Win32.Foundation.RECT"))
	assert.Equal(t, "Beep", n.Ident("Win32.System.Console.Beep"))
}

func TestNamer_CollisionUsesLastSegment(t *testing.T) {
	n := NewNamer([]ir.Declaration{
		topDecl("Win32.System.Console", "COORD", ir.KindStruct),
		topDecl("Win32.Graphics.Gdi", "COORD", ir.KindStruct),
		topDecl("Win32.Foundation", "RECT", ir.KindStruct),
	})

	assert.Equal(t, "Console_COORD", n.Ident("Win32.System.Console.COORD"))
	assert.Equal(t, "Gdi_COORD", n.Ident("Win32.Graphics.Gdi.COORD"))
	assert.Equal(t, "RECT", n.Ident("Win32.Foundation.RECT"))
}

func TestNamer_CollisionUsesFullNamespace(t *testing.T) {
	n := NewNamer([]ir.Declaration{
		topDecl("A.Common", "X", ir.KindStruct),
		topDecl("B.Common", "X", ir.KindStruct),
	})

	assert.Equal(t, "A_Common_X", n.Ident("A.Common.X"))
	assert.Equal(t, "B_Common_X", n.Ident("B.Common.X"))
}

func TestNamer_WidenedNameAlreadyTaken(t *testing.T) {
	n := NewNamer([]ir.Declaration{
		topDecl("C", "Console_COORD", ir.KindStruct),
		topDecl("A.Console", "COORD", ir.KindStruct),
		topDecl("B.X", "COORD", ir.KindStruct),
	})

	assert.Equal(t, "Console_COORD", n.Ident("C.Console_COORD"))
	assert.Equal(t, "A_Console_COORD", n.Ident("A.Console.COORD"))
	assert.Equal(t, "X_COORD", n.Ident("B.X.COORD"))
}

func TestNamer_Nested(t *testing.T) {
	parent := topDecl("Win32.UI.Input", "INPUT", ir.KindStruct)
	child := ir.Declaration{
		Name:      "Win32.UI.Input.INPUT._Anonymous",
		Namespace: "Win32.UI.Input",
		Parent:    parent.Name,
		Kind:      ir.KindUnion,
	}
	grandchild := ir.Declaration{
		Name:      child.Name + ".Inner",
		Namespace: "Win32.UI.Input",
		Parent:    child.Name,
		Kind:      ir.KindStruct,
	}

	n := NewNamer([]ir.Declaration{parent, child, grandchild})

	assert.Equal(t, "INPUT__Anonymous", n.Ident(child.Name))
	assert.Equal(t, "INPUT__Anonymous_Inner", n.Ident(grandchild.Name))
}

func TestNamer_NestedFollowsParentRename(t *testing.T) {
	a := topDecl("A", "S", ir.KindStruct)
	b := topDecl("B", "S", ir.KindStruct)
	child := ir.Declaration{Name: "A.S.U", Namespace: "A", Parent: "A.S", Kind: ir.KindUnion}

	n := NewNamer([]ir.Declaration{a, b, child})

	assert.Equal(t, "A_S_U", n.Ident(child.Name))
}

func TestNamer_UnknownFallsBackToShortName(t *testing.T) {
	n := NewNamer(nil)
	assert.Equal(t, "HWND", n.Ident("Win32.Foundation.HWND"))
}

func enumDecl(ns, name string, members ...string) ir.Declaration {
	d := topDecl(ns, name, ir.KindEnum)
	d.Underlying = "uint32"
	for i, m := range members {
		d.Members = append(d.Members, ir.EnumMember{Name: m, Value: strconv.Itoa(i)})
	}
	return d
}

func TestNamer_Members(t *testing.T) {
	n := NewNamer([]ir.Declaration{
		enumDecl("Test.Paint", "COLOR", "None", "Red"),
		enumDecl("Test.Paint", "SHAPE", "None", "Square"),
		topDecl("Test.Paint", "Red", ir.KindConstant),
	})

	assert.Equal(t, "COLOR_None", n.Member("Test.Paint.COLOR", "None"))
	assert.Equal(t, "SHAPE_None", n.Member("Test.Paint.SHAPE", "None"))
	assert.Equal(t, "COLOR_Red", n.Member("Test.Paint.COLOR", "Red"))
	assert.Equal(t, "Square", n.Member("Test.Paint.SHAPE", "Square"))
	assert.Equal(t, "Red", n.Ident("Test.Paint.Red"))
}

func TestNamer_MembersFollowEnumRename(t *testing.T) {
	n := NewNamer([]ir.Declaration{
		enumDecl("A.Gdi", "MODE", "OFF"),
		enumDecl("B.Console", "MODE", "OFF"),
	})

	assert.Equal(t, "Gdi_MODE_OFF", n.Member("A.Gdi.MODE", "OFF"))
	assert.Equal(t, "Console_MODE_OFF", n.Member("B.Console.MODE", "OFF"))
}

func TestParamName(t *testing.T) {
	tests := map[string]string{
		"hWnd":  "hWnd",
		"type":  "type_",
		"range": "range_",
		"err":   "err_",
		"r":     "r_",
		"r1":    "r1_",
	}
	for in, want := range tests {
		assert.Equal(t, want, paramName(in), in)
	}
	assert.Equal(t, "err", fieldName("err"))
	assert.Equal(t, "func_", fieldName("func"))
}
