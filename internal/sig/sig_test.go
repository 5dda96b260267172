package sig

import (
	"testing"

	"github.com/stretchr/testify/require"

	"ilmerge/internal/ir"
	"ilmerge/internal/irtest"
	"ilmerge/internal/metadata"
)

// fakeTokens hands out TypeRef rows in first-use order.
type fakeTokens struct {
	rows map[*ir.Type]metadata.Token
}

func (f *fakeTokens) TypeDefOrRef(t *ir.Type) metadata.Token {
	if tok, ok := f.rows[t]; ok {
		return tok
	}
	tok := metadata.MakeToken(metadata.TableTypeRef, uint32(len(f.rows)+1))
	f.rows[t] = tok
	return tok
}

func newEncoder(w *irtest.World) *Encoder {
	return NewEncoder(&fakeTokens{rows: map[*ir.Type]metadata.Token{}}, w.App, "mscorlib")
}

func TestAddMethodSignature(t *testing.T) {
	w := irtest.NewWorld("App")
	calc := w.Class(w.App, "App", "Calc", nil)
	add := w.Method(calc, "Add", ir.MethodFlags(ir.AccessPublic)|ir.MethodStatic, w.Core.Int32, w.Core.Int32, w.Core.Int32)

	data, err := newEncoder(w).Method(add)
	require.NoError(t, err)
	require.Equal(t, []byte{0x00, 0x02, 0x08, 0x08, 0x08}, data)

	text, err := Format(data, nil)
	require.NoError(t, err)
	require.Equal(t, "int32(int32, int32)", text)
}

func TestGenericMethodSignatureUsesMethodParams(t *testing.T) {
	w := irtest.NewWorld("App")
	cls := w.Class(w.App, "App", "Util", nil)
	id := w.Method(cls, "Id", ir.MethodFlags(ir.AccessPublic), w.Core.Object, w.Core.Object)
	tp := w.MethodParam(id, "T")
	id.ReturnType = tp
	id.Params[0].Type = tp

	data, err := newEncoder(w).Method(id)
	require.NoError(t, err)
	require.Equal(t, []byte{0x30, 0x01, 0x01, ElemMVar, 0x00, ElemMVar, 0x00}, data)

	text, err := Format(data, nil)
	require.NoError(t, err)
	require.Equal(t, "instance <1> !!0(!!0)", text)
}

func TestTypeSpecSignatures(t *testing.T) {
	w := irtest.NewWorld("App")
	box := w.Generic(w.App, "App", "Box", "T")
	enc := newEncoder(w)

	data, err := enc.Type(w.Types().Instantiate(box, w.Core.Int32))
	require.NoError(t, err)
	// TypeRef row 1 encodes as 1<<2 | 1
	require.Equal(t, []byte{ElemGenericInst, ElemClass, 0x05, 0x01, ElemI4}, data)

	data, err = enc.Type(w.Types().ArrayOf(w.Core.Int32, 2, []int{3}, []int{0}))
	require.NoError(t, err)
	require.Equal(t, []byte{ElemArray, ElemI4, 0x02, 0x01, 0x03, 0x01, 0x00}, data)
	text, err := FormatType(data, nil)
	require.NoError(t, err)
	require.Equal(t, "int32[,]", text)

	data, err = enc.Type(box.TemplateParams[0])
	require.NoError(t, err)
	require.Equal(t, []byte{ElemVar, 0x00}, data)
}

func TestFieldAndLocalSignatures(t *testing.T) {
	w := irtest.NewWorld("App")
	node := w.Class(w.App, "App", "Node", nil)
	next := w.Field(node, "next", node, ir.FieldFlags(ir.AccessPublic))
	enc := newEncoder(w)

	data, err := enc.Field(next)
	require.NoError(t, err)
	require.Equal(t, []byte{KindField, ElemClass, 0x05}, data)

	locals := []*ir.Local{
		{Name: "i", Type: w.Core.Int32},
		{Name: "p", Type: w.Types().ReferenceTo(w.Core.Byte), Pinned: true},
		{Name: "names", Type: w.Types().Vector(w.Core.String)},
	}
	data, err = enc.Locals(locals)
	require.NoError(t, err)
	require.Equal(t, []byte{KindLocal, 0x03, ElemI4, ElemPinned, ElemByRef, ElemU1, ElemSZArray, ElemString}, data)

	text, err := Format(data, nil)
	require.NoError(t, err)
	require.Equal(t, "locals(int32, pinned uint8&, string[])", text)
}

func TestCustomAttributeBlob(t *testing.T) {
	w := irtest.NewWorld("App")
	_, ctor := w.AttributeClass(w.App, "App", "InfoAttribute", w.Core.String, w.Core.Int32, w.Core.Type)
	attr := w.Attr(ctor,
		ir.AttrArg{Type: w.Core.String, Value: "hi"},
		ir.AttrArg{Type: w.Core.Int32, Value: int32(7)},
		ir.AttrArg{Type: w.Core.Type, Value: w.Core.Int32},
	)
	attr.Named = []ir.NamedArg{{Name: "Flag", Arg: ir.AttrArg{Type: w.Core.Boolean, Value: true}}}

	data, err := newEncoder(w).Attribute(attr)
	require.NoError(t, err)

	var want []byte
	want = append(want, 0x01, 0x00)
	want = append(want, 0x02, 'h', 'i')
	want = append(want, 0x07, 0x00, 0x00, 0x00)
	want = append(want, 0x0C)
	want = append(want, "System.Int32"...)
	want = append(want, 0x01, 0x00)
	want = append(want, NamedArgProp, ElemBoolean, 0x04, 'F', 'l', 'a', 'g', 0x01)
	require.Equal(t, want, data)
}

func TestBoxedEnumAttributeArgument(t *testing.T) {
	w := irtest.NewWorld("App")
	color := w.Enum(w.App, "App", "Color", "Red", "Green")
	_, ctor := w.AttributeClass(w.App, "App", "TagAttribute", w.Core.Object)
	attr := w.Attr(ctor, ir.AttrArg{Type: w.Core.Object, Value: ir.AttrArg{Type: color, Value: int32(1)}})

	data, err := newEncoder(w).Attribute(attr)
	require.NoError(t, err)

	want := []byte{0x01, 0x00, ElemEnum, 0x09}
	want = append(want, "App.Color"...)
	want = append(want, 0x01, 0x00, 0x00, 0x00, 0x00, 0x00)
	require.Equal(t, want, data)

	nullAttr := w.Attr(ctor, ir.AttrArg{Type: w.Core.Object})
	data, err = newEncoder(w).Attribute(nullAttr)
	require.NoError(t, err)
	require.Equal(t, []byte{0x01, 0x00, ElemString, 0xFF, 0x00, 0x00}, data)
}

func TestAttributeArgumentCountMismatch(t *testing.T) {
	w := irtest.NewWorld("App")
	_, ctor := w.AttributeClass(w.App, "App", "InfoAttribute", w.Core.String)
	_, err := newEncoder(w).Attribute(w.Attr(ctor))
	require.ErrorIs(t, err, ErrMalformed)
}

func TestMalformedTypes(t *testing.T) {
	w := irtest.NewWorld("App")
	enc := newEncoder(w)

	_, err := enc.Type(nil)
	require.ErrorIs(t, err, ErrMalformed)

	_, err = enc.Field(&ir.Field{Name: "broken", Type: &ir.Type{Kind: ir.TypeInvalid}})
	require.ErrorIs(t, err, ErrMalformed)

	_, err = enc.MethodSpec(nil)
	require.ErrorIs(t, err, ErrMalformed)
}

func TestConstantBlobs(t *testing.T) {
	elem, data, err := Constant(&ir.Constant{Code: ir.CodeInt32, Value: int32(5)})
	require.NoError(t, err)
	require.Equal(t, ElemI4, elem)
	require.Equal(t, []byte{0x05, 0x00, 0x00, 0x00}, data)

	elem, data, err = Constant(&ir.Constant{Code: ir.CodeString, Value: "hi"})
	require.NoError(t, err)
	require.Equal(t, ElemString, elem)
	require.Equal(t, []byte{'h', 0x00, 'i', 0x00}, data)

	elem, data, err = Constant(&ir.Constant{Code: ir.CodeObject})
	require.NoError(t, err)
	require.Equal(t, ElemClass, elem)
	require.Equal(t, []byte{0, 0, 0, 0}, data)

	_, _, err = Constant(&ir.Constant{Code: ir.CodeInt16, Value: "nope"})
	require.ErrorIs(t, err, ErrMalformed)
}

func TestMarshalDescriptors(t *testing.T) {
	data, err := Marshal(&ir.MarshalInfo{Native: ir.NativeLPWStr, ParamIndex: -1, Size: -1})
	require.NoError(t, err)
	require.Equal(t, []byte{0x15}, data)

	data, err = Marshal(&ir.MarshalInfo{Native: ir.NativeArray, Element: ir.NativeI4, ParamIndex: 1, Size: -1})
	require.NoError(t, err)
	require.Equal(t, []byte{0x2A, 0x07, 0x01}, data)

	data, err = Marshal(&ir.MarshalInfo{Native: ir.NativeCustom, CustomMarshaler: "M", ParamIndex: -1, Size: -1})
	require.NoError(t, err)
	require.Equal(t, []byte{0x2C, 0x00, 0x00, 0x01, 'M', 0x00}, data)
}
