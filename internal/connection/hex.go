package connection

// hexDecoder converts an ASCII-hex text stream into bytes. Whitespace
// and separators between digits are skipped; a digit pair split across
// two chunks is carried over. Not safe for concurrent use; each source
// owns its decoder.
type hexDecoder struct {
	pending   byte
	hasNibble bool
}

// Decode consumes one text chunk and returns the decoded bytes. A
// non-hex, non-separator character resynchronizes the decoder by
// dropping any pending nibble.
func (d *hexDecoder) Decode(chunk []byte) []byte {
	out := make([]byte, 0, len(chunk)/2)
	for _, c := range chunk {
		v, ok := hexValue(c)
		if !ok {
			d.hasNibble = false
			continue
		}
		if d.hasNibble {
			out = append(out, d.pending<<4|v)
			d.hasNibble = false
		} else {
			d.pending = v
			d.hasNibble = true
		}
	}
	return out
}

func hexValue(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	default:
		return 0, false
	}
}
