package diag

import (
	"fmt"
)

type Code uint16

const (
	// Неизвестная ошибка - на первое время
	UnknownCode Code = 0

	// Загрузка входов
	LoadInfo              Code = 1000
	LoadReadFailed        Code = 1001
	LoadBadSnapshot       Code = 1002
	LoadUnsupportedFormat Code = 1003
	LoadMissingModule     Code = 1004
	LoadDuplicateType     Code = 1005
	LoadDuplicateModule   Code = 1006

	// Дублирование
	DupInfo             Code = 2000
	DupUnresolvedMember Code = 2001
	DupUnresolvedType   Code = 2002
	DupTypeConflict     Code = 2003

	// Эмиссия метаданных и IL
	EmitInfo                    Code = 3000
	EmitUnresolvedLocation      Code = 3001
	EmitMalformedIR             Code = 3002
	EmitCompressedRange         Code = 3003
	EmitResourceHashUnavailable Code = 3004
	EmitBranchRelaxed           Code = 3005
	EmitMissingEntryPoint       Code = 3006

	// Вывод и проект
	IOInfo            Code = 4000
	IOWriteFailed     Code = 4001
	IOCacheCorrupt    Code = 4002
	ProjInvalidConfig Code = 4100
	ProjMissingInput  Code = 4101
)

var codeDescription = map[Code]string{
	UnknownCode:                 "Unknown error",
	LoadInfo:                    "Load information",
	LoadReadFailed:              "Failed to read input",
	LoadBadSnapshot:             "Malformed IR snapshot",
	LoadUnsupportedFormat:       "Unsupported input format",
	LoadMissingModule:           "Input holds no module",
	LoadDuplicateType:           "Type declared by more than one input",
	LoadDuplicateModule:         "Module provided by more than one input",
	DupInfo:                     "Duplication information",
	DupUnresolvedMember:         "Member reference left pointing at the original",
	DupUnresolvedType:           "Type reference left pointing at the original",
	DupTypeConflict:             "Duplicated type collides with an existing type",
	EmitInfo:                    "Emission information",
	EmitUnresolvedLocation:      "Reference to an entity with unknown location",
	EmitMalformedIR:             "Malformed IR",
	EmitCompressedRange:         "Value out of compressed integer range",
	EmitResourceHashUnavailable: "Linked resource could not be hashed",
	EmitBranchRelaxed:           "Short branch widened to long form",
	EmitMissingEntryPoint:       "Executable has no entry point",
	IOInfo:                      "Output information",
	IOWriteFailed:               "Failed to write output",
	IOCacheCorrupt:              "Corrupt cache entry",
	ProjInvalidConfig:           "Invalid project manifest",
	ProjMissingInput:            "Project manifest lists no inputs",
}

func (c Code) ID() string {
	ic := int(c)
	switch {
	case ic >= 1000 && ic < 2000:
		return fmt.Sprintf("LOD%04d", ic)
	case ic >= 2000 && ic < 3000:
		return fmt.Sprintf("DUP%04d", ic)
	case ic >= 3000 && ic < 4000:
		return fmt.Sprintf("EMT%04d", ic)
	case ic >= 4000 && ic < 4100:
		return fmt.Sprintf("IO%04d", ic)
	case ic >= 4100 && ic < 5000:
		return fmt.Sprintf("PRJ%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[Code(0)]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}
