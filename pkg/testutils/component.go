package testutils

// Payload types shared by the storage tests. Sizes differ on purpose so blocks hold different
// element counts.

type Transform struct {
	X, Y, Z    float64
	Yaw, Pitch float32
}

type Velocity struct {
	DX, DY, DZ float32
}

type Health struct {
	Current, Max int
}

// Labeled holds pointers, which must stay visible to the garbage collector while pooled.
type Labeled struct {
	Label string
	Tags  []string
	Owner *Health
}

// Empty is zero-sized.
type Empty struct{}
