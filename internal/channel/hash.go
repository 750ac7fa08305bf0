package channel

// Hash returns the channel hash, the XOR of all name bytes followed by all
// key bytes. Different channels can share the same hash.
func Hash(name string, key []byte) uint8 {
	var h uint8
	for i := 0; i < len(name); i++ {
		h ^= name[i]
	}
	for _, b := range key {
		h ^= b
	}
	return h
}
