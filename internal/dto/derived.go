package dto

// Derived holds the encoded variants produced from one upload.
type Derived struct {
	Display   []byte
	Thumbnail []byte
}
