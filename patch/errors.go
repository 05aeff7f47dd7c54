package patch

import "errors"

var (
	// ErrParseFailed wraps any error from unmarshaling the raw patch JSON.
	ErrParseFailed = errors.New("patch: CFG_PARSE_ERROR")

	// ErrSchemaVersionUnsupported is returned when schemaVersion != "v1".
	ErrSchemaVersionUnsupported = errors.New("patch: schema_version_unsupported")

	// ErrGateEmptyComposite is returned when an All/Any gate has no children.
	ErrGateEmptyComposite = errors.New("patch: CFG_GATE_EMPTY_COMPOSITE")

	// ErrGateUnknownType is returned when a Gate decodes to no known shape.
	ErrGateUnknownType = errors.New("patch: CFG_GATE_UNKNOWN_TYPE")
)
