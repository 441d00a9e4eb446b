package metadata

import "fmt"

// Token is a metadata token: table id in the top byte, 1-based row in the
// low 24 bits.
type Token uint32

// MakeToken builds a token for row of table t.
func MakeToken(t TableID, row uint32) Token {
	return Token(uint32(t)<<24 | row&0x00FFFFFF)
}

// Table returns the token's table.
func (t Token) Table() TableID {
	return TableID(t >> 24)
}

// Row returns the 1-based row.
func (t Token) Row() uint32 {
	return uint32(t) & 0x00FFFFFF
}

// IsNull reports whether the token has no row.
func (t Token) IsNull() bool {
	return t.Row() == 0
}

func (t Token) String() string {
	return fmt.Sprintf("0x%08x", uint32(t))
}
