package polymarket

import (
	"encoding/base64"
	"fmt"
	"strconv"
)

// EndCursor is the next_cursor value the CLOB returns after the last page.
// It is base64("-1").
const EndCursor = "LTE="

// EncodeCursor renders a record offset in the CLOB cursor format.
func EncodeCursor(offset int) string {
	return base64.StdEncoding.EncodeToString([]byte(strconv.Itoa(offset)))
}

// DecodeCursor parses a CLOB cursor back into a record offset. EndCursor
// decodes to -1.
func DecodeCursor(cursor string) (int, error) {
	raw, err := base64.StdEncoding.DecodeString(cursor)
	if err != nil {
		return 0, fmt.Errorf("polymarket: decode cursor %q: %w", cursor, err)
	}
	offset, err := strconv.Atoi(string(raw))
	if err != nil {
		return 0, fmt.Errorf("polymarket: decode cursor %q: %w", cursor, err)
	}
	return offset, nil
}
