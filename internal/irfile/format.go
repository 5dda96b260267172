// Package irfile reads and writes IR snapshots: a flat, msgpack encoded
// form of an ir.Program in which every node is listed once and references
// are node ids. Snapshots ending in .xz are xz compressed.
package irfile

import "ilmerge/internal/ir"

const (
	magic         = "IRPK"
	formatVersion = 1
)

// ref is the snapshot id of a node; zero is nil.
type ref = uint32

type snapshot struct {
	Magic   string `msgpack:"magic"`
	Version uint16 `msgpack:"version"`
	// Order lists the program's modules.
	Order []ref `msgpack:"order"`

	Locations  []wLocation `msgpack:"locations"`
	Modules    []wModule   `msgpack:"modules"`
	Types      []wType     `msgpack:"types"`
	Fields     []wField    `msgpack:"fields"`
	Methods    []wMethod   `msgpack:"methods"`
	Params     []wParam    `msgpack:"params"`
	Locals     []wLocal    `msgpack:"locals"`
	Properties []wProperty `msgpack:"props"`
	Events     []wEvent    `msgpack:"events"`
	Blocks     []wBlock    `msgpack:"blocks"`
}

type wLocation struct {
	ID             ref             `msgpack:"id"`
	Kind           ir.LocationKind `msgpack:"kind"`
	Name           string          `msgpack:"name"`
	Version        [4]uint16       `msgpack:"ver"`
	Culture        string          `msgpack:"culture,omitempty"`
	PublicKey      []byte          `msgpack:"pk,omitempty"`
	PublicKeyToken []byte          `msgpack:"pkt,omitempty"`
	Flags          uint32          `msgpack:"flags,omitempty"`
	HashValue      []byte          `msgpack:"hash,omitempty"`
}

type wAssembly struct {
	Name          string      `msgpack:"name"`
	Version       [4]uint16   `msgpack:"ver"`
	Culture       string      `msgpack:"culture,omitempty"`
	PublicKey     []byte      `msgpack:"pk,omitempty"`
	Flags         uint32      `msgpack:"flags,omitempty"`
	HashAlgorithm uint32      `msgpack:"alg,omitempty"`
	Attributes    []wAttr     `msgpack:"attrs,omitempty"`
	Security      []wSecurity `msgpack:"sec,omitempty"`
}

type wResource struct {
	Name       string `msgpack:"name"`
	Public     bool   `msgpack:"public,omitempty"`
	Data       []byte `msgpack:"data,omitempty"`
	LinkedFile string `msgpack:"file,omitempty"`
}

type wModule struct {
	ID         ref           `msgpack:"id"`
	Name       string        `msgpack:"name"`
	Kind       ir.ModuleKind `msgpack:"kind"`
	Assembly   *wAssembly    `msgpack:"asm,omitempty"`
	Location   ref           `msgpack:"loc,omitempty"`
	Types      []ref         `msgpack:"types"`
	Attributes []wAttr       `msgpack:"attrs,omitempty"`
	EntryPoint ref           `msgpack:"entry,omitempty"`
	Resources  []wResource   `msgpack:"res,omitempty"`
}

type wType struct {
	ID        ref          `msgpack:"id"`
	Kind      ir.TypeKind  `msgpack:"kind"`
	Namespace string       `msgpack:"ns,omitempty"`
	Name      string       `msgpack:"name,omitempty"`
	Flags     ir.TypeFlags `msgpack:"flags,omitempty"`
	Code      ir.TypeCode  `msgpack:"code,omitempty"`

	Module        ref `msgpack:"mod,omitempty"`
	DeclaringType ref `msgpack:"decl,omitempty"`
	BaseType      ref `msgpack:"base,omitempty"`

	Interfaces  []ref `msgpack:"ifaces,omitempty"`
	NestedTypes []ref `msgpack:"nested,omitempty"`
	Fields      []ref `msgpack:"fields,omitempty"`
	Methods     []ref `msgpack:"methods,omitempty"`
	Properties  []ref `msgpack:"props,omitempty"`
	Events      []ref `msgpack:"events,omitempty"`

	TemplateParams []ref `msgpack:"tparams,omitempty"`
	Template       ref   `msgpack:"template,omitempty"`
	TemplateArgs   []ref `msgpack:"targs,omitempty"`

	Element     ref   `msgpack:"elem,omitempty"`
	Modifier    ref   `msgpack:"modifier,omitempty"`
	Rank        int   `msgpack:"rank,omitempty"`
	Sizes       []int `msgpack:"sizes,omitempty"`
	LowerBounds []int `msgpack:"lbounds,omitempty"`

	ParamIndex      int                  `msgpack:"pindex,omitempty"`
	DeclaringMethod ref                  `msgpack:"dmethod,omitempty"`
	ParamFlags      ir.GenericParamFlags `msgpack:"pflags,omitempty"`
	Constraints     []ref                `msgpack:"constraints,omitempty"`

	Layout     *ir.ClassLayout `msgpack:"layout,omitempty"`
	Attributes []wAttr         `msgpack:"attrs,omitempty"`
	Security   []wSecurity     `msgpack:"sec,omitempty"`
}

type wField struct {
	ID            ref             `msgpack:"id"`
	Name          string          `msgpack:"name"`
	Flags         ir.FieldFlags   `msgpack:"flags,omitempty"`
	Type          ref             `msgpack:"type"`
	DeclaringType ref             `msgpack:"decl"`
	Default       *wConst         `msgpack:"default,omitempty"`
	Offset        int             `msgpack:"offset"`
	InitialData   []byte          `msgpack:"data,omitempty"`
	Marshal       *ir.MarshalInfo `msgpack:"marshal,omitempty"`
	Attributes    []wAttr         `msgpack:"attrs,omitempty"`
	Unspecialized ref             `msgpack:"unspec,omitempty"`
}

type wMethod struct {
	ID            ref                `msgpack:"id"`
	Name          string             `msgpack:"name"`
	Flags         ir.MethodFlags     `msgpack:"flags,omitempty"`
	ImplFlags     ir.MethodImplFlags `msgpack:"impl,omitempty"`
	CallConv      ir.CallConv        `msgpack:"cc,omitempty"`
	DeclaringType ref                `msgpack:"decl,omitempty"`

	ReturnType       ref             `msgpack:"ret,omitempty"`
	Params           []ref           `msgpack:"params,omitempty"`
	ReturnAttributes []wAttr         `msgpack:"rattrs,omitempty"`
	ReturnMarshal    *ir.MarshalInfo `msgpack:"rmarshal,omitempty"`

	TemplateParams []ref `msgpack:"tparams,omitempty"`
	Template       ref   `msgpack:"template,omitempty"`
	TemplateArgs   []ref `msgpack:"targs,omitempty"`
	Unspecialized  ref   `msgpack:"unspec,omitempty"`

	Overrides []ref           `msgpack:"overrides,omitempty"`
	PInvoke   *ir.PInvokeInfo `msgpack:"pinvoke,omitempty"`

	InitLocals bool  `msgpack:"initlocals,omitempty"`
	Locals     []ref `msgpack:"locals,omitempty"`
	Body       ref   `msgpack:"body,omitempty"`

	Attributes []wAttr     `msgpack:"attrs,omitempty"`
	Security   []wSecurity `msgpack:"sec,omitempty"`
}

type wParam struct {
	ID              ref             `msgpack:"id"`
	Name            string          `msgpack:"name"`
	Index           int             `msgpack:"index"`
	Type            ref             `msgpack:"type"`
	Flags           ir.ParamFlags   `msgpack:"flags,omitempty"`
	Default         *wConst         `msgpack:"default,omitempty"`
	Marshal         *ir.MarshalInfo `msgpack:"marshal,omitempty"`
	Attributes      []wAttr         `msgpack:"attrs,omitempty"`
	DeclaringMethod ref             `msgpack:"method"`
}

type wLocal struct {
	ID     ref    `msgpack:"id"`
	Name   string `msgpack:"name,omitempty"`
	Type   ref    `msgpack:"type"`
	Pinned bool   `msgpack:"pinned,omitempty"`
}

type wProperty struct {
	ID            ref              `msgpack:"id"`
	Name          string           `msgpack:"name"`
	Flags         ir.PropertyFlags `msgpack:"flags,omitempty"`
	Type          ref              `msgpack:"type"`
	Params        []ref            `msgpack:"params,omitempty"`
	HasThis       bool             `msgpack:"this,omitempty"`
	DeclaringType ref              `msgpack:"decl"`
	Getter        ref              `msgpack:"get,omitempty"`
	Setter        ref              `msgpack:"set,omitempty"`
	Others        []ref            `msgpack:"others,omitempty"`
	Default       *wConst          `msgpack:"default,omitempty"`
	Attributes    []wAttr          `msgpack:"attrs,omitempty"`
}

type wEvent struct {
	ID            ref           `msgpack:"id"`
	Name          string        `msgpack:"name"`
	Flags         ir.EventFlags `msgpack:"flags,omitempty"`
	Type          ref           `msgpack:"type"`
	DeclaringType ref           `msgpack:"decl"`
	Adder         ref           `msgpack:"add,omitempty"`
	Remover       ref           `msgpack:"remove,omitempty"`
	Raiser        ref           `msgpack:"raise,omitempty"`
	Others        []ref         `msgpack:"others,omitempty"`
	Attributes    []wAttr       `msgpack:"attrs,omitempty"`
}

type wBlock struct {
	ID    ref      `msgpack:"id"`
	Stmts []*wStmt `msgpack:"stmts"`
}

// Statement payload tags.
const (
	stExpr uint8 = iota + 1
	stAssign
	stReturn
	stBranch
	stSwitch
	stIf
	stWhile
	stBlock
	stTry
	stThrow
	stNop
)

// Statement and expression flag bits.
const (
	fIfFalse = 1 << iota
	fShort
	fLeave
	fUnsigned
	fChecked
	fVirtual
	fTail
	fVolatile
	fReadOnly
)

type wPos struct {
	File   string `msgpack:"f"`
	Line   int    `msgpack:"l"`
	Column int    `msgpack:"c,omitempty"`
}

type wStmt struct {
	Kind    ir.StmtKind `msgpack:"k"`
	Data    uint8       `msgpack:"d"`
	Pos     *wPos       `msgpack:"pos,omitempty"`
	Exprs   []*wExpr    `msgpack:"x,omitempty"`
	Blocks  []ref       `msgpack:"b,omitempty"`
	Flags   uint16      `msgpack:"fl,omitempty"`
	Catches []wCatch    `msgpack:"catch,omitempty"`
}

type wCatch struct {
	Type     ref `msgpack:"type,omitempty"`
	Variable ref `msgpack:"var,omitempty"`
	Filter   ref `msgpack:"filter,omitempty"`
	Body     ref `msgpack:"body"`
}

// Expression payload tags.
const (
	exLiteral uint8 = iota + 1
	exParam
	exLocal
	exThis
	exBinary
	exUnary
	exCall
	exNew
	exNewArray
	exField
	exIndex
	exArrayLength
	exConvert
	exTypeOp
	exAddressOf
	exIndirect
	exMethodRef
	exStack
	exConditional
)

type wExpr struct {
	Kind  ir.ExprKind `msgpack:"k"`
	Data  uint8       `msgpack:"d"`
	Type  ref         `msgpack:"t,omitempty"`
	Value *wValue     `msgpack:"v,omitempty"`
	Ref   ref         `msgpack:"r,omitempty"`
	Ref2  ref         `msgpack:"r2,omitempty"`
	Op    uint8       `msgpack:"op,omitempty"`
	Flags uint16      `msgpack:"fl,omitempty"`
	To    ir.TypeCode `msgpack:"to,omitempty"`
	// N splits Kids where a payload has two lists.
	N    int      `msgpack:"n,omitempty"`
	Kids []*wExpr `msgpack:"kids,omitempty"`
}

// Value tags.
const (
	vNil uint8 = iota
	vBool
	vI1
	vI2
	vI4
	vI8
	vU1
	vU2
	vU4
	vU8
	vR4
	vR8
	vString
	vType
	vArray
	vBoxed
)

type wValue struct {
	K   uint8   `msgpack:"k"`
	I   int64   `msgpack:"i,omitempty"`
	U   uint64  `msgpack:"u,omitempty"`
	F   float64 `msgpack:"f,omitempty"`
	S   string  `msgpack:"s,omitempty"`
	T   ref     `msgpack:"t,omitempty"`
	Arr []wArg  `msgpack:"arr,omitempty"`
	Box *wArg   `msgpack:"box,omitempty"`
}

type wConst struct {
	Code  ir.TypeCode `msgpack:"code"`
	Value wValue      `msgpack:"v"`
}

type wArg struct {
	Type  ref    `msgpack:"type"`
	Value wValue `msgpack:"v"`
}

type wNamed struct {
	IsField bool   `msgpack:"field,omitempty"`
	Name    string `msgpack:"name"`
	Arg     wArg   `msgpack:"arg"`
}

type wAttr struct {
	Ctor  ref      `msgpack:"ctor"`
	Args  []wArg   `msgpack:"args,omitempty"`
	Named []wNamed `msgpack:"named,omitempty"`
}

type wSecurity struct {
	Action      ir.SecurityAction `msgpack:"action"`
	Permissions []wAttr           `msgpack:"perms"`
}
