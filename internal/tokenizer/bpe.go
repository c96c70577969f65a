package tokenizer

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/jellydator/ttlcache/v3"
)

// wsClass is Unicode whitespace as the reference pre-tokenizer sees it.
// Go's \s alone only covers ASCII.
const wsClass = `\s\x{0B}\x{1C}-\x{1F}\x{85}\p{Z}`

// gpt2Pattern is the GPT-2 pre-tokenizer regex without the `\s+(?!\S)`
// branch, which Go's regexp cannot express. pretokenize restores that
// behaviour by hand.
const gpt2Pattern = `'s|'t|'re|'ve|'m|'ll|'d| ?\p{L}+| ?\p{N}+| ?[^` + wsClass + `\p{L}\p{N}]+|[` + wsClass + `]+`

// llama3Pattern replaces pre-tokenizer regexes that rely on lookahead.
const llama3Pattern = `(?:'[sS]|'[tT]|'[rR][eE]|'[vV][eE]|'[mM]|'[lL][lL]|'[dD])|[^\r\n\p{L}\p{N}]?\p{L}+|\p{N}{1,3}| ?[^` + wsClass + `\p{L}\p{N}]+[\r\n]*|[` + wsClass + `]*[\r\n]+|[` + wsClass + `]+`

// DefaultCacheCapacity bounds the per-word merge cache.
const DefaultCacheCapacity = 1 << 16

// ErrUnknownToken is returned when text maps to a symbol outside the
// vocabulary and the model has no unknown token.
var ErrUnknownToken = errors.New("unknown token")

// AddedToken is an entry of the added-tokens table (special or not).
type AddedToken struct {
	ID      int
	Content string
	Special bool
}

// Options describe a byte-level BPE model.
type Options struct {
	Vocab          map[string]int
	Merges         [][2]string
	AddedTokens    []AddedToken
	Pattern        string
	AddPrefixSpace bool
	AddBOS         bool
	BOSToken       string
	EOSToken       string
	UnkToken       string
	// CacheCapacity bounds the merge cache in words (0 = DefaultCacheCapacity).
	CacheCapacity uint64
}

// BPE is a byte-level BPE tokenizer compatible with GPT-2 family models.
// It is safe for concurrent use.
type BPE struct {
	encoder        map[string]int
	decoder        []string
	ranks          map[pair]int
	byteEnc        map[byte]string
	byteDec        map[rune]byte
	pattern        *regexp.Regexp
	specials       []string
	specialIDs     map[int]bool
	addPrefixSpace bool
	addBOS         bool
	bosID          int
	eosID          int
	unkID          int

	// cache holds merged symbols per pre-token; least recently used
	// words are evicted at capacity.
	cache *ttlcache.Cache[string, []string]
}

// New builds a tokenizer from in-memory model data.
func New(opts Options) (*BPE, error) {
	if len(opts.Vocab) == 0 {
		return nil, fmt.Errorf("empty vocabulary")
	}
	pat := opts.Pattern
	if pat == "" {
		pat = gpt2Pattern
	}
	re, err := regexp.Compile(pat)
	if err != nil {
		return nil, fmt.Errorf("pre-tokenizer pattern: %w", err)
	}

	encoder := make(map[string]int, len(opts.Vocab)+len(opts.AddedTokens))
	maxID := -1
	for tok, id := range opts.Vocab {
		if id < 0 {
			return nil, fmt.Errorf("negative id %d for token %q", id, tok)
		}
		encoder[tok] = id
		maxID = max(maxID, id)
	}
	for _, at := range opts.AddedTokens {
		encoder[at.Content] = at.ID
		maxID = max(maxID, at.ID)
	}
	decoder := make([]string, maxID+1)
	for tok, id := range encoder {
		decoder[id] = tok
	}

	ranks := make(map[pair]int, len(opts.Merges))
	for i, m := range opts.Merges {
		p := pair{a: m[0], b: m[1]}
		if _, ok := ranks[p]; !ok {
			ranks[p] = i
		}
	}

	specialIDs := make(map[int]bool)
	var specials []string
	for _, at := range opts.AddedTokens {
		if at.Special || isSpecialToken(at.Content) {
			specialIDs[at.ID] = true
			specials = append(specials, at.Content)
		}
	}
	for _, name := range []string{opts.BOSToken, opts.EOSToken, opts.UnkToken} {
		if id, ok := encoder[name]; ok && name != "" && !specialIDs[id] {
			specialIDs[id] = true
			specials = append(specials, name)
		}
	}
	sortLongestFirst(specials)

	capacity := opts.CacheCapacity
	if capacity == 0 {
		capacity = DefaultCacheCapacity
	}
	byteEnc, byteDec := bytesToUnicode()
	return &BPE{
		encoder:        encoder,
		decoder:        decoder,
		ranks:          ranks,
		byteEnc:        byteEnc,
		byteDec:        byteDec,
		pattern:        re,
		specials:       specials,
		specialIDs:     specialIDs,
		addPrefixSpace: opts.AddPrefixSpace,
		addBOS:         opts.AddBOS,
		bosID:          lookup(encoder, opts.BOSToken),
		eosID:          lookup(encoder, opts.EOSToken),
		unkID:          lookup(encoder, opts.UnkToken),
		cache:          ttlcache.New(ttlcache.WithCapacity[string, []string](capacity)),
	}, nil
}

func lookup(encoder map[string]int, tok string) int {
	if tok == "" {
		return -1
	}
	if id, ok := encoder[tok]; ok {
		return id
	}
	return -1
}

// Encode converts text to token ids, adding the BOS token and the leading
// space when the model asks for them.
func (t *BPE) Encode(text string) ([]int, error) {
	var ids []int
	if t.addBOS && t.bosID >= 0 {
		ids = append(ids, t.bosID)
	}
	if t.addPrefixSpace && text != "" && !strings.HasPrefix(text, " ") {
		text = " " + text
	}
	return t.encode(ids, text)
}

// EncodeContinuation encodes text that follows already encoded input: no
// BOS token and no added leading space.
func (t *BPE) EncodeContinuation(text string) ([]int, error) {
	return t.encode(nil, text)
}

func (t *BPE) encode(ids []int, text string) ([]int, error) {
	for _, part := range splitSpecials(text, t.specials) {
		if part.isSpecial {
			ids = append(ids, t.encoder[part.text])
			continue
		}
		for _, word := range t.pretokenize(part.text) {
			for _, sym := range t.bpe(t.byteEncode(word)) {
				id, ok := t.encoder[sym]
				if !ok {
					if t.unkID < 0 {
						return nil, fmt.Errorf("%w: %q", ErrUnknownToken, sym)
					}
					id = t.unkID
				}
				ids = append(ids, id)
			}
		}
	}
	return ids, nil
}

// Decode converts token ids back to text. With skipSpecial set, special
// tokens (end-of-text, padding, ...) are dropped from the output. Byte
// sequences that are not valid UTF-8, e.g. a character cut in half by
// trimming, are replaced with U+FFFD.
func (t *BPE) Decode(ids []int, skipSpecial bool) (string, error) {
	var b []byte
	for _, id := range ids {
		if id < 0 || id >= len(t.decoder) || t.decoder[id] == "" {
			return "", fmt.Errorf("token id out of range: %d", id)
		}
		if t.specialIDs[id] {
			if !skipSpecial {
				b = append(b, t.decoder[id]...)
			}
			continue
		}
		for _, r := range t.decoder[id] {
			if by, ok := t.byteDec[r]; ok {
				b = append(b, by)
			} else {
				b = utf8.AppendRune(b, r)
			}
		}
	}
	return strings.ToValidUTF8(string(b), "�"), nil
}

// VocabSize reports the size of the id space.
func (t *BPE) VocabSize() int { return len(t.decoder) }

// EOSToken returns the end-of-sequence token text, or "" when the model
// defines none.
func (t *BPE) EOSToken() string {
	if t.eosID < 0 {
		return ""
	}
	return t.decoder[t.eosID]
}

// EOSID returns the end-of-sequence token id or -1.
func (t *BPE) EOSID() int { return t.eosID }

// IsSpecial reports whether id is a special/control token.
func (t *BPE) IsSpecial(id int) bool { return t.specialIDs[id] }

// pretokenize splits text with the pre-tokenizer regex. A whitespace run
// followed by a non-space character gives its last rune to the next word,
// which is what `\s+(?!\S)` does in the reference tokenizer.
func (t *BPE) pretokenize(s string) []string {
	var out []string
	for len(s) > 0 {
		loc := t.pattern.FindStringIndex(s)
		if loc == nil || loc[1] == loc[0] {
			out = append(out, s)
			break
		}
		if loc[0] > 0 {
			out = append(out, s[:loc[0]])
		}
		end := loc[1]
		m := s[loc[0]:end]
		if end < len(s) && isSpace(m) && utf8.RuneCountInString(m) > 1 {
			_, size := utf8.DecodeLastRuneInString(m)
			end -= size
		}
		out = append(out, s[loc[0]:end])
		s = s[end:]
	}
	return out
}

func isSpace(s string) bool {
	for _, r := range s {
		if !unicode.IsSpace(r) && (r < 0x1C || r > 0x1F) {
			return false
		}
	}
	return true
}

func (t *BPE) byteEncode(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		b.WriteString(t.byteEnc[s[i]])
	}
	return b.String()
}

func (t *BPE) bpe(token string) []string {
	if it := t.cache.Get(token); it != nil {
		return it.Value()
	}

	word := splitRunes(token)
	pairs := getPairs(word)
	for len(pairs) > 0 {
		best := pair{}
		bestRank := -1
		for p := range pairs {
			if rank, ok := t.ranks[p]; ok && (bestRank < 0 || rank < bestRank) {
				best, bestRank = p, rank
			}
		}
		if bestRank < 0 {
			break
		}
		word = mergePair(word, best)
		if len(word) == 1 {
			break
		}
		pairs = getPairs(word)
	}

	t.cache.Set(token, word, ttlcache.NoTTL)
	return word
}
