package asmpickle

// escapeBytes string-escapes raw bytes the way pydec's pydecodeStringEscape
// expects to unescape them, so a BINSTRING/BINBYTES/BINUNICODE payload
// (arbitrary bytes, not pre-escaped like the ASCII STRING opcode's own
// argument) can be inlined into a DecodedOp's Mnemonic as quoted text.
// Only used for payloads under pydec.LargeStringThreshold; bigger payloads
// are left untouched in the buffer and re-read via ReadAt.
func escapeBytes(raw []byte) string {
	const hexdigits = "0123456789abcdef"
	out := make([]byte, 0, len(raw))
	for _, b := range raw {
		switch {
		case b == '\\' || b == '"':
			out = append(out, '\\', b)
		case b >= 0x20 && b < 0x7f:
			out = append(out, b)
		default:
			out = append(out, '\\', 'x', hexdigits[b>>4], hexdigits[b&0xf])
		}
	}
	return string(out)
}

// quoteMnemonic formats a string-bearing opcode's mnemonic the way
// pydec's extractQuotedPayload expects to parse it back: `<name> "<text>"`.
func quoteMnemonic(name, escaped string) string {
	return name + ` "` + escaped + `"`
}
