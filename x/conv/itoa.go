package conv

// Itoa writes the base-10 representation of n into the tail of buf and
// returns the used slice. buf should be length >= 20 for int64.
// No allocations; no fmt/strconv dependency.
func Itoa(buf []byte, n int64) []byte {
	if n >= 0 {
		return Utoa(buf, uint64(n))
	}
	// Two's complement magnitude; exact for math.MinInt64.
	digits := Utoa(buf, uint64(^n)+1)
	i := len(buf) - len(digits)
	if i == 0 {
		return buf[:0]
	}
	i--
	buf[i] = '-'
	return buf[i:]
}
