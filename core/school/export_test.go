package school

// SetReadRandFunc swaps the invite code entropy source in tests.
func SetReadRandFunc(fn func([]byte) (int, error)) {
	readRandFunc = fn
}
