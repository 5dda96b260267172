// Package metadata holds the physical metadata model: table identifiers,
// tokens, coded indices, the column schema of every table, the four heaps
// and the serializer for the #~ stream and the metadata root.
package metadata

import "fmt"

// Table identifies a metadata table.
type Table uint8

const (
	TableModule                 Table = 0x00
	TableTypeRef                Table = 0x01
	TableTypeDef                Table = 0x02
	TableFieldPtr               Table = 0x03
	TableField                  Table = 0x04
	TableMethodPtr              Table = 0x05
	TableMethodDef              Table = 0x06
	TableParamPtr               Table = 0x07
	TableParam                  Table = 0x08
	TableInterfaceImpl          Table = 0x09
	TableMemberRef              Table = 0x0A
	TableConstant               Table = 0x0B
	TableCustomAttribute        Table = 0x0C
	TableFieldMarshal           Table = 0x0D
	TableDeclSecurity           Table = 0x0E
	TableClassLayout            Table = 0x0F
	TableFieldLayout            Table = 0x10
	TableStandAloneSig          Table = 0x11
	TableEventMap               Table = 0x12
	TableEventPtr               Table = 0x13
	TableEvent                  Table = 0x14
	TablePropertyMap            Table = 0x15
	TablePropertyPtr            Table = 0x16
	TableProperty               Table = 0x17
	TableMethodSemantics        Table = 0x18
	TableMethodImpl             Table = 0x19
	TableModuleRef              Table = 0x1A
	TableTypeSpec               Table = 0x1B
	TableImplMap                Table = 0x1C
	TableFieldRVA               Table = 0x1D
	TableEncLog                 Table = 0x1E
	TableEncMap                 Table = 0x1F
	TableAssembly               Table = 0x20
	TableAssemblyProcessor      Table = 0x21
	TableAssemblyOS             Table = 0x22
	TableAssemblyRef            Table = 0x23
	TableAssemblyRefProcessor   Table = 0x24
	TableAssemblyRefOS          Table = 0x25
	TableFile                   Table = 0x26
	TableExportedType           Table = 0x27
	TableManifestResource       Table = 0x28
	TableNestedClass            Table = 0x29
	TableGenericParam           Table = 0x2A
	TableMethodSpec             Table = 0x2B
	TableGenericParamConstraint Table = 0x2C

	// NumTables is one past the highest table id.
	NumTables = 0x2D
)

var tableNames = [NumTables]string{
	"Module", "TypeRef", "TypeDef", "FieldPtr", "Field", "MethodPtr", "MethodDef", "ParamPtr",
	"Param", "InterfaceImpl", "MemberRef", "Constant", "CustomAttribute", "FieldMarshal",
	"DeclSecurity", "ClassLayout", "FieldLayout", "StandAloneSig", "EventMap", "EventPtr",
	"Event", "PropertyMap", "PropertyPtr", "Property", "MethodSemantics", "MethodImpl",
	"ModuleRef", "TypeSpec", "ImplMap", "FieldRVA", "EncLog", "EncMap", "Assembly",
	"AssemblyProcessor", "AssemblyOS", "AssemblyRef", "AssemblyRefProcessor", "AssemblyRefOS",
	"File", "ExportedType", "ManifestResource", "NestedClass", "GenericParam", "MethodSpec",
	"GenericParamConstraint",
}

func (t Table) String() string {
	if int(t) < NumTables {
		return tableNames[t]
	}
	if t == TableUserString {
		return "UserString"
	}
	return fmt.Sprintf("Table(%#x)", uint8(t))
}

// TableUserString is the token type of #US heap references in ldstr.
const TableUserString Table = 0x70

// Token is a table-qualified row reference: table<<24 | row.
type Token uint32

// MakeToken builds a token from a table and a 1-based row.
func MakeToken(t Table, row uint32) Token {
	return Token(uint32(t)<<24 | row&0x00FFFFFF)
}

// Table returns the table part.
func (t Token) Table() Table { return Table(t >> 24) }

// Row returns the 1-based row, or the heap offset for user strings.
func (t Token) Row() uint32 { return uint32(t) & 0x00FFFFFF }

// IsNil reports whether the token references no row.
func (t Token) IsNil() bool { return t.Row() == 0 }

func (t Token) String() string {
	return fmt.Sprintf("%s[%d] (0x%08X)", t.Table(), t.Row(), uint32(t))
}
