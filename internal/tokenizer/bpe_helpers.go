package tokenizer

import "strings"

// pair is two adjacent BPE symbols.
type pair struct {
	a string
	b string
}

type textPart struct {
	text      string
	isSpecial bool
}

func splitRunes(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}

func getPairs(word []string) map[pair]struct{} {
	pairs := make(map[pair]struct{})
	if len(word) < 2 {
		return pairs
	}
	prev := word[0]
	for _, w := range word[1:] {
		pairs[pair{a: prev, b: w}] = struct{}{}
		prev = w
	}
	return pairs
}

func mergePair(word []string, p pair) []string {
	out := make([]string, 0, len(word))
	for i := 0; i < len(word); i++ {
		if i < len(word)-1 && word[i] == p.a && word[i+1] == p.b {
			out = append(out, word[i]+word[i+1])
			i++
			continue
		}
		out = append(out, word[i])
	}
	return out
}

// sortLongestFirst orders special tokens so the longest match wins during splitting.
func sortLongestFirst(specials []string) {
	for i := 1; i < len(specials); i++ {
		j := i
		for j > 0 && len(specials[j]) > len(specials[j-1]) {
			specials[j], specials[j-1] = specials[j-1], specials[j]
			j--
		}
	}
}

func isSpecialToken(s string) bool {
	if len(s) < 4 {
		return false
	}
	return strings.HasPrefix(s, "<|") && strings.HasSuffix(s, "|>")
}

func splitSpecials(text string, specials []string) []textPart {
	if len(specials) == 0 {
		return []textPart{{text: text}}
	}
	var parts []textPart
	var buf strings.Builder
	for i := 0; i < len(text); {
		match := ""
		for _, sp := range specials {
			if sp != "" && strings.HasPrefix(text[i:], sp) {
				match = sp
				break
			}
		}
		if match != "" {
			if buf.Len() > 0 {
				parts = append(parts, textPart{text: buf.String()})
				buf.Reset()
			}
			parts = append(parts, textPart{text: match, isSpecial: true})
			i += len(match)
			continue
		}
		buf.WriteByte(text[i])
		i++
	}
	if buf.Len() > 0 {
		parts = append(parts, textPart{text: buf.String()})
	}
	return parts
}

// bytesToUnicode maps bytes to printable runes so byte-level BPE is reversible.
func bytesToUnicode() (map[byte]string, map[rune]byte) {
	var bs []int
	for i := int('!'); i <= int('~'); i++ {
		bs = append(bs, i)
	}
	for i := int('¡'); i <= int('¬'); i++ {
		bs = append(bs, i)
	}
	for i := int('®'); i <= int('ÿ'); i++ {
		bs = append(bs, i)
	}
	printable := make(map[int]bool, len(bs))
	for _, b := range bs {
		printable[b] = true
	}

	cs := make([]int, len(bs))
	copy(cs, bs)
	n := 0
	for b := 0; b < 256; b++ {
		if printable[b] {
			continue
		}
		bs = append(bs, b)
		cs = append(cs, 256+n)
		n++
	}

	enc := make(map[byte]string, len(bs))
	dec := make(map[rune]byte, len(bs))
	for i := range bs {
		enc[byte(bs[i])] = string(rune(cs[i]))
		dec[rune(cs[i])] = byte(bs[i])
	}
	return enc, dec
}

// ByteSymbols returns the 256 byte-level symbols in byte order. It is the
// minimal vocabulary any byte-level BPE model must contain.
func ByteSymbols() []string {
	enc, _ := bytesToUnicode()
	out := make([]string, 256)
	for b := 0; b < 256; b++ {
		out[b] = enc[byte(b)]
	}
	return out
}
