// internal/dtmf/keypad.go
// Package dtmf synthesizes and detects Dual-Tone Multi-Frequency (touch tone)
// keys by spectral peak picking.
package dtmf

import "strings"

// Keys is the 16-key alphabet in keypad order: four rows of four columns.
const Keys = "123A456B789C*0#D"

// ColumnTones are the keypad column frequencies in Hz (1209-1633).
var ColumnTones = [4]float64{1209, 1336, 1477, 1633}

// RowTones are the keypad row frequencies in Hz (697-941).
var RowTones = [4]float64{697, 770, 852, 941}

// Pair is the two tones sent for one key.
type Pair struct {
	Column float64
	Row    float64
}

// Index returns the position of key in Keys, or -1 if key is not a DTMF key.
func Index(key rune) int {
	if key > 0x7f {
		return -1
	}
	return strings.IndexRune(Keys, key)
}

// Lookup returns the tone pair for key. The boolean is false for any rune
// outside Keys; lookups are case sensitive.
func Lookup(key rune) (Pair, bool) {
	i := Index(key)
	if i < 0 {
		return Pair{}, false
	}
	return Pair{Column: ColumnTones[i%4], Row: RowTones[i/4]}, true
}

// KeyAt returns the key at the given column and row indexes.
func KeyAt(col, row int) (rune, bool) {
	if col < 0 || col >= len(ColumnTones) || row < 0 || row >= len(RowTones) {
		return 0, false
	}
	return rune(Keys[row*len(ColumnTones)+col]), true
}
