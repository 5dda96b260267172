package metadata

import "fmt"

// Coded identifies a coded index kind.
type Coded uint8

const (
	TypeDefOrRef Coded = iota
	HasConstant
	HasCustomAttribute
	HasFieldMarshal
	HasDeclSecurity
	MemberRefParent
	HasSemantics
	MethodDefOrRef
	MemberForwarded
	Implementation
	CustomAttributeType
	ResolutionScope
	TypeOrMethodDef
	numCoded
)

// noTable marks an unused tag.
const noTable Table = 0xFF

type codedInfo struct {
	name   string
	bits   uint
	tables []Table
}

var codedKinds = [numCoded]codedInfo{
	TypeDefOrRef: {"TypeDefOrRef", 2, []Table{TableTypeDef, TableTypeRef, TableTypeSpec}},
	HasConstant:  {"HasConstant", 2, []Table{TableField, TableParam, TableProperty}},
	HasCustomAttribute: {"HasCustomAttribute", 5, []Table{
		TableMethodDef, TableField, TableTypeRef, TableTypeDef, TableParam, TableInterfaceImpl,
		TableMemberRef, TableModule, TableDeclSecurity, TableProperty, TableEvent,
		TableStandAloneSig, TableModuleRef, TableTypeSpec, TableAssembly, TableAssemblyRef,
		TableFile, TableExportedType, TableManifestResource, TableGenericParam,
		TableGenericParamConstraint, TableMethodSpec,
	}},
	HasFieldMarshal: {"HasFieldMarshal", 1, []Table{TableField, TableParam}},
	HasDeclSecurity: {"HasDeclSecurity", 2, []Table{TableTypeDef, TableMethodDef, TableAssembly}},
	MemberRefParent: {"MemberRefParent", 3, []Table{
		TableTypeDef, TableTypeRef, TableModuleRef, TableMethodDef, TableTypeSpec,
	}},
	HasSemantics:    {"HasSemantics", 1, []Table{TableEvent, TableProperty}},
	MethodDefOrRef:  {"MethodDefOrRef", 1, []Table{TableMethodDef, TableMemberRef}},
	MemberForwarded: {"MemberForwarded", 1, []Table{TableField, TableMethodDef}},
	Implementation:  {"Implementation", 2, []Table{TableFile, TableAssemblyRef, TableExportedType}},
	CustomAttributeType: {"CustomAttributeType", 3, []Table{
		noTable, noTable, TableMethodDef, TableMemberRef, noTable,
	}},
	ResolutionScope: {"ResolutionScope", 2, []Table{
		TableModule, TableModuleRef, TableAssemblyRef, TableTypeRef,
	}},
	TypeOrMethodDef: {"TypeOrMethodDef", 1, []Table{TableTypeDef, TableMethodDef}},
}

func (c Coded) String() string {
	if c < numCoded {
		return codedKinds[c].name
	}
	return fmt.Sprintf("Coded(%d)", uint8(c))
}

// Bits returns the width of the tag.
func (c Coded) Bits() uint { return codedKinds[c].bits }

// Tables lists the tables addressable by c in tag order. Unused tags are
// reported as 0xFF.
func (c Coded) Tables() []Table { return codedKinds[c].tables }

// Encode packs tok as a c-coded index: row<<bits | tag. A nil token encodes
// as 0. It returns an error when tok's table cannot be addressed by c.
func (c Coded) Encode(tok Token) (uint32, error) {
	if tok == 0 {
		return 0, nil
	}
	info := codedKinds[c]
	for tag, t := range info.tables {
		if t == tok.Table() {
			return tok.Row()<<info.bits | uint32(tag), nil
		}
	}
	return 0, fmt.Errorf("metadata: %s cannot reference %s", info.name, tok.Table())
}

// MustEncode is Encode for callers that have already validated the table.
func (c Coded) MustEncode(tok Token) uint32 {
	v, err := c.Encode(tok)
	if err != nil {
		panic(err)
	}
	return v
}

// Decode unpacks a c-coded index.
func (c Coded) Decode(v uint32) (Token, error) {
	if v == 0 {
		return 0, nil
	}
	info := codedKinds[c]
	tag := v & (1<<info.bits - 1)
	if int(tag) >= len(info.tables) || info.tables[tag] == noTable {
		return 0, fmt.Errorf("metadata: bad %s tag %d", info.name, tag)
	}
	return MakeToken(info.tables[tag], v>>info.bits), nil
}

// Wide reports whether c needs four bytes given the row counts: the largest
// addressed table must fit in the 16-bits left after the tag.
func (c Coded) Wide(rows *[NumTables]uint32) bool {
	info := codedKinds[c]
	limit := uint32(1) << (16 - info.bits)
	for _, t := range info.tables {
		if t != noTable && rows[t] >= limit {
			return true
		}
	}
	return false
}
