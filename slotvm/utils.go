package slotvm

// BytesToValue converts a byte slice to a fixed-size slot value. If the
// input is larger than [ValueLen], it will be truncated.
func BytesToValue(input []byte) [ValueLen]byte {
	value := [ValueLen]byte{}
	lim := len(input)
	if lim > ValueLen {
		lim = ValueLen
	}
	copy(value[:], input[:lim])
	return value
}
