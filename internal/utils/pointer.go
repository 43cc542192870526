package utils

// Ptr returns a pointer to v, so call sites can take the address of a
// literal inline:
//
//	opts.Temperature = utils.Ptr(0.2)
func Ptr[T any](v T) *T {
	return &v
}
