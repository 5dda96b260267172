package diag

// Note adds secondary context to a diagnostic.
type Note struct {
	Subject string
	Msg     string
}

// Diagnostic is a single finding. Subject names the entity the finding is
// about: an input path, a type or member name, or a manifest section.
type Diagnostic struct {
	Severity Severity
	Code     Code
	Message  string
	Subject  string
	Notes    []Note
}
