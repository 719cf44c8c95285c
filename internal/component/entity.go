package component

import "github.com/google/uuid"

// Entity stores the spawn data of an in-world entity.
// Pure data, zero methods; all mutations happen in world functions.
type Entity struct {
	UUID uuid.UUID
	Kind string // "golem", "arrow", "falling_block", ...
	Pos  Pos
	AI   bool // false while frozen by an action limiter
}
