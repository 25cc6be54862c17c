package trie

// keyToNibbles expands a byte slice into its nibble (4-bit) sequence,
// high nibble first, the indexing scheme every node type in this
// package paths on.
func keyToNibbles(key []byte) []byte {
	nibbles := make([]byte, len(key)*2)
	for i, b := range key {
		nibbles[i*2] = b >> 4
		nibbles[i*2+1] = b & 0x0f
	}
	return nibbles
}

// nibblesToKey packs a nibble sequence of even length back into bytes.
func nibblesToKey(nibbles []byte) []byte {
	if len(nibbles)%2 != 0 {
		panic("trie: odd nibble count cannot be packed")
	}
	key := make([]byte, len(nibbles)/2)
	for i := range key {
		key[i] = nibbles[i*2]<<4 | nibbles[i*2+1]
	}
	return key
}

// hexPrefixEncode implements Ethereum's hex-prefix encoding: it packs a
// nibble path plus a leaf/extension flag into a byte slice, used as the
// first element of an encoded leaf or extension node.
func hexPrefixEncode(nibbles []byte, isLeaf bool) []byte {
	oddLen := len(nibbles) % 2
	flag := 0
	if isLeaf {
		flag = 2
	}
	flag += oddLen

	var out []byte
	if oddLen == 1 {
		out = append(out, byte(flag)<<4|nibbles[0])
		nibbles = nibbles[1:]
	} else {
		out = append(out, byte(flag)<<4)
	}
	return append(out, nibblesToKey(nibbles)...)
}

// hexPrefixDecode inverts hexPrefixEncode, returning the nibble path and
// whether the encoded node was a leaf.
func hexPrefixDecode(encoded []byte) (nibbles []byte, isLeaf bool) {
	if len(encoded) == 0 {
		return nil, false
	}
	flag := encoded[0] >> 4
	isLeaf = flag&2 != 0
	oddLen := flag & 1

	nibbles = keyToNibbles(encoded)
	if oddLen == 1 {
		nibbles = nibbles[1:]
	} else {
		nibbles = nibbles[2:]
	}
	return nibbles, isLeaf
}

// commonPrefixLen returns the length of the shared prefix of a and b.
func commonPrefixLen(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return i
		}
	}
	return n
}
