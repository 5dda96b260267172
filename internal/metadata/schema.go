package metadata

// ColumnKind selects how a column is stored.
type ColumnKind uint8

const (
	ColU16 ColumnKind = iota
	ColU32
	ColString
	ColGUID
	ColBlob
	// ColIndex is a plain row index into Column.Table.
	ColIndex
	// ColCoded is a coded index of kind Column.Coded.
	ColCoded
)

// Column describes one column of a table.
type Column struct {
	Name  string
	Kind  ColumnKind
	Table Table
	Coded Coded
}

// Schema describes the columns of a table and, for sorted tables, the key
// columns in comparison order.
type Schema struct {
	Table    Table
	Columns  []Column
	SortKeys []int
	// Unique drops rows whose key equals an existing row.
	Unique bool
}

// Sorted reports whether rows must be ordered by the key columns.
func (s *Schema) Sorted() bool { return len(s.SortKeys) > 0 }

func u16(name string) Column  { return Column{Name: name, Kind: ColU16} }
func u32(name string) Column  { return Column{Name: name, Kind: ColU32} }
func str(name string) Column  { return Column{Name: name, Kind: ColString} }
func guid(name string) Column { return Column{Name: name, Kind: ColGUID} }
func blob(name string) Column { return Column{Name: name, Kind: ColBlob} }
func index(name string, t Table) Column {
	return Column{Name: name, Kind: ColIndex, Table: t}
}
func coded(name string, c Coded) Column {
	return Column{Name: name, Kind: ColCoded, Coded: c}
}

var schemas = [NumTables]Schema{
	TableModule: {Columns: []Column{
		u16("Generation"), str("Name"), guid("Mvid"), guid("EncId"), guid("EncBaseId"),
	}},
	TableTypeRef: {Columns: []Column{
		coded("ResolutionScope", ResolutionScope), str("TypeName"), str("TypeNamespace"),
	}},
	TableTypeDef: {Columns: []Column{
		u32("Flags"), str("TypeName"), str("TypeNamespace"), coded("Extends", TypeDefOrRef),
		index("FieldList", TableField), index("MethodList", TableMethodDef),
	}},
	TableFieldPtr: {Columns: []Column{index("Field", TableField)}},
	TableField: {Columns: []Column{
		u16("Flags"), str("Name"), blob("Signature"),
	}},
	TableMethodPtr: {Columns: []Column{index("Method", TableMethodDef)}},
	TableMethodDef: {Columns: []Column{
		u32("RVA"), u16("ImplFlags"), u16("Flags"), str("Name"), blob("Signature"),
		index("ParamList", TableParam),
	}},
	TableParamPtr: {Columns: []Column{index("Param", TableParam)}},
	TableParam: {Columns: []Column{
		u16("Flags"), u16("Sequence"), str("Name"),
	}},
	TableInterfaceImpl: {Columns: []Column{
		index("Class", TableTypeDef), coded("Interface", TypeDefOrRef),
	}, SortKeys: []int{0, 1}, Unique: true},
	TableMemberRef: {Columns: []Column{
		coded("Class", MemberRefParent), str("Name"), blob("Signature"),
	}},
	TableConstant: {Columns: []Column{
		u16("Type"), coded("Parent", HasConstant), blob("Value"),
	}, SortKeys: []int{1}},
	TableCustomAttribute: {Columns: []Column{
		coded("Parent", HasCustomAttribute), coded("Type", CustomAttributeType), blob("Value"),
	}, SortKeys: []int{0}},
	TableFieldMarshal: {Columns: []Column{
		coded("Parent", HasFieldMarshal), blob("NativeType"),
	}, SortKeys: []int{0}},
	TableDeclSecurity: {Columns: []Column{
		u16("Action"), coded("Parent", HasDeclSecurity), blob("PermissionSet"),
	}, SortKeys: []int{1}},
	TableClassLayout: {Columns: []Column{
		u16("PackingSize"), u32("ClassSize"), index("Parent", TableTypeDef),
	}, SortKeys: []int{2}},
	TableFieldLayout: {Columns: []Column{
		u32("Offset"), index("Field", TableField),
	}, SortKeys: []int{1}},
	TableStandAloneSig: {Columns: []Column{blob("Signature")}},
	TableEventMap: {Columns: []Column{
		index("Parent", TableTypeDef), index("EventList", TableEvent),
	}},
	TableEventPtr: {Columns: []Column{index("Event", TableEvent)}},
	TableEvent: {Columns: []Column{
		u16("EventFlags"), str("Name"), coded("EventType", TypeDefOrRef),
	}},
	TablePropertyMap: {Columns: []Column{
		index("Parent", TableTypeDef), index("PropertyList", TableProperty),
	}},
	TablePropertyPtr: {Columns: []Column{index("Property", TableProperty)}},
	TableProperty: {Columns: []Column{
		u16("Flags"), str("Name"), blob("Type"),
	}},
	TableMethodSemantics: {Columns: []Column{
		u16("Semantics"), index("Method", TableMethodDef), coded("Association", HasSemantics),
	}, SortKeys: []int{2}},
	TableMethodImpl: {Columns: []Column{
		index("Class", TableTypeDef), coded("MethodBody", MethodDefOrRef),
		coded("MethodDeclaration", MethodDefOrRef),
	}, SortKeys: []int{0}},
	TableModuleRef: {Columns: []Column{str("Name")}},
	TableTypeSpec:  {Columns: []Column{blob("Signature")}},
	TableImplMap: {Columns: []Column{
		u16("MappingFlags"), coded("MemberForwarded", MemberForwarded), str("ImportName"),
		index("ImportScope", TableModuleRef),
	}, SortKeys: []int{1}},
	TableFieldRVA: {Columns: []Column{
		u32("RVA"), index("Field", TableField),
	}, SortKeys: []int{1}},
	TableEncLog: {Columns: []Column{u32("Token"), u32("FuncCode")}},
	TableEncMap: {Columns: []Column{u32("Token")}},
	TableAssembly: {Columns: []Column{
		u32("HashAlgId"), u16("MajorVersion"), u16("MinorVersion"), u16("BuildNumber"),
		u16("RevisionNumber"), u32("Flags"), blob("PublicKey"), str("Name"), str("Culture"),
	}},
	TableAssemblyProcessor: {Columns: []Column{u32("Processor")}},
	TableAssemblyOS: {Columns: []Column{
		u32("OSPlatformID"), u32("OSMajorVersion"), u32("OSMinorVersion"),
	}},
	TableAssemblyRef: {Columns: []Column{
		u16("MajorVersion"), u16("MinorVersion"), u16("BuildNumber"), u16("RevisionNumber"),
		u32("Flags"), blob("PublicKeyOrToken"), str("Name"), str("Culture"), blob("HashValue"),
	}},
	TableAssemblyRefProcessor: {Columns: []Column{
		u32("Processor"), index("AssemblyRef", TableAssemblyRef),
	}},
	TableAssemblyRefOS: {Columns: []Column{
		u32("OSPlatformID"), u32("OSMajorVersion"), u32("OSMinorVersion"),
		index("AssemblyRef", TableAssemblyRef),
	}},
	TableFile: {Columns: []Column{
		u32("Flags"), str("Name"), blob("HashValue"),
	}},
	TableExportedType: {Columns: []Column{
		u32("Flags"), u32("TypeDefId"), str("TypeName"), str("TypeNamespace"),
		coded("Implementation", Implementation),
	}},
	TableManifestResource: {Columns: []Column{
		u32("Offset"), u32("Flags"), str("Name"), coded("Implementation", Implementation),
	}},
	TableNestedClass: {Columns: []Column{
		index("NestedClass", TableTypeDef), index("EnclosingClass", TableTypeDef),
	}, SortKeys: []int{0}},
	TableGenericParam: {Columns: []Column{
		u16("Number"), u16("Flags"), coded("Owner", TypeOrMethodDef), str("Name"),
	}, SortKeys: []int{2, 0}},
	TableMethodSpec: {Columns: []Column{
		coded("Method", MethodDefOrRef), blob("Instantiation"),
	}},
	TableGenericParamConstraint: {Columns: []Column{
		index("Owner", TableGenericParam), coded("Constraint", TypeDefOrRef),
	}, SortKeys: []int{0}},
}

func init() {
	for i := range schemas {
		schemas[i].Table = Table(i)
	}
}

// SchemaOf returns the schema of t.
func SchemaOf(t Table) *Schema {
	return &schemas[t]
}

// ColumnIndex returns the position of the named column, or -1.
func (s *Schema) ColumnIndex(name string) int {
	for i, c := range s.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}
