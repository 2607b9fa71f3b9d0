// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import (
	"fmt"
	"strconv"
)

// Number parsing is a deliberately narrowed adaptation of the teacher's
// asm/expr.go: that file implements a full shunting-yard arithmetic
// expression parser with operator precedence, because its source
// language allows expressions like "LABEL+2". This instruction set's
// grammar (spec.md §3/§4.2) only ever needs a single immediate literal or
// a single label reference per operand slot, so the expression-stack and
// operator-precedence machinery is dropped entirely; only literal
// recognition (this file) and label lookup (label.go) remain.

// looksLikeNumber reports whether tok could be the start of a numeric
// literal, as opposed to a label reference. It is a probe: a false result
// means the caller should try label resolution instead; a true result
// commits to parsing tok as a number, so a malformed literal from here on
// is a hard error. A token of hex digits ending in 'h' ("F0h") is taken as
// a number even when it starts with a letter.
func looksLikeNumber(tok string) bool {
	if tok == "" {
		return false
	}
	if tok[0] == '\'' || tok[0] == '$' {
		return true
	}
	if last := tok[len(tok)-1]; len(tok) >= 2 && (last == 'h' || last == 'H') &&
		allDigitsInBase(tok[:len(tok)-1], 16) {
		return true
	}
	return decimal(tok[0])
}

// parseLiteral parses one of the five immediate literal forms named in
// spec.md §3: decimal, hex ("1Ah", "0x1A", "$1A"), binary ("1011b"),
// octal ("17q"), or a character literal ('X').
func parseLiteral(tok string) (uint64, error) {
	if tok == "" {
		return 0, fmt.Errorf("empty literal")
	}

	if tok[0] == '\'' {
		if len(tok) == 3 && tok[2] == '\'' {
			return uint64(tok[1]), nil
		}
		return 0, fmt.Errorf("malformed character literal %q", tok)
	}

	if tok[0] == '$' {
		return parseBase(tok[1:], 16, "hexadecimal")
	}
	if len(tok) >= 2 && tok[0] == '0' && (tok[1] == 'x' || tok[1] == 'X') {
		return parseBase(tok[2:], 16, "hexadecimal")
	}

	last := tok[len(tok)-1]
	switch {
	case last == 'h' || last == 'H':
		return parseBase(tok[:len(tok)-1], 16, "hexadecimal")
	case last == 'q' || last == 'Q':
		return parseBase(tok[:len(tok)-1], 8, "octal")
	case last == 'b' || last == 'B':
		body := tok[:len(tok)-1]
		if body != "" && allDigitsInBase(body, 2) {
			return parseBase(body, 2, "binary")
		}
	}

	return parseBase(tok, 10, "decimal")
}

func parseBase(body string, base int, baseName string) (uint64, error) {
	if body == "" {
		return 0, fmt.Errorf("missing digits in %s literal", baseName)
	}
	v, err := strconv.ParseUint(body, base, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s literal %q", baseName, body)
	}
	return v, nil
}

func allDigitsInBase(s string, base int) bool {
	for i := 0; i < len(s); i++ {
		v, err := strconv.ParseUint(s[i:i+1], base, 8)
		if err != nil {
			_ = v
			return false
		}
	}
	return true
}

// parseU8 parses tok as an 8-bit immediate, rejecting values that
// overflow a byte.
func parseU8(tok string) (byte, error) {
	v, err := parseLiteral(tok)
	if err != nil {
		return 0, err
	}
	if v > 0xFF {
		return 0, fmt.Errorf("immediate %q does not fit in 8 bits", tok)
	}
	return byte(v), nil
}

// parseU16 parses tok as a 16-bit immediate, rejecting values that
// overflow a word.
func parseU16(tok string) (uint16, error) {
	v, err := parseLiteral(tok)
	if err != nil {
		return 0, err
	}
	if v > 0xFFFF {
		return 0, fmt.Errorf("immediate %q does not fit in 16 bits", tok)
	}
	return uint16(v), nil
}
