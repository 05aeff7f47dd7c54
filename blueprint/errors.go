package blueprint

import "errors"

var (
	// ErrDuplicateNodeName is returned when two nodes in the same blueprint
	// share a name.
	ErrDuplicateNodeName = errors.New("blueprint: duplicate node name")

	// ErrEmptyBlueprint is returned by Build when no nodes were added.
	ErrEmptyBlueprint = errors.New("blueprint: no nodes declared")

	// ErrTerminalNotJoin is returned when the last node is not a Join.
	ErrTerminalNotJoin = errors.New("blueprint: terminal node must be a join")

	// ErrResponseTypeMismatch is returned when the terminal join's output
	// type does not match the flow's declared response type.
	ErrResponseTypeMismatch = errors.New("blueprint: terminal join output type does not match declared response type")

	// ErrEmptyNodeName is returned when Step/Join is called with an empty name.
	ErrEmptyNodeName = errors.New("blueprint: node name must not be empty")

	// ErrEmptyModuleType is returned when Step is called with an empty module type.
	ErrEmptyModuleType = errors.New("blueprint: module type must not be empty")
)
