package conv

// Utoa writes the base-10 representation of n into the tail of buf and
// returns the used slice. Digits are produced least significant first.
// buf should be length >= 20 for uint64; a short buf yields an empty slice.
func Utoa(buf []byte, n uint64) []byte {
	if len(buf) == 0 {
		return buf[:0]
	}
	i := len(buf)
	if n == 0 {
		i--
		buf[i] = '0'
		return buf[i:]
	}
	for n > 0 {
		if i == 0 {
			return buf[:0]
		}
		i--
		buf[i] = byte('0' + (n % 10))
		n /= 10
	}
	return buf[i:]
}
