package component

// Pos is a block position in the world.
type Pos struct {
	X int32
	Y int32
	Z int32
}

// Up returns the position directly above p.
func (p Pos) Up() Pos { return Pos{X: p.X, Y: p.Y + 1, Z: p.Z} }
