package tokenizer

import (
	"reflect"
	"strconv"
	"testing"
)

func byteVocab() map[string]int {
	v := make(map[string]int, 256)
	for id, sym := range ByteSymbols() {
		v[sym] = id
	}
	return v
}

func TestMergeCacheStaysWithinCapacity(t *testing.T) {
	tok, err := New(Options{Vocab: byteVocab(), CacheCapacity: 8})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	for i := 0; i < 100; i++ {
		if _, err := tok.Encode("word" + strconv.Itoa(i) + "x"); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	if n := tok.cache.Len(); n > 8 {
		t.Fatalf("cache holds %d words, capacity 8", n)
	}
	// evicted words still encode correctly
	ids, err := tok.Encode("word0x")
	if err != nil || len(ids) == 0 {
		t.Fatalf("re-encode: %v %v", ids, err)
	}
}

func TestPretokenizeUnicodeWhitespace(t *testing.T) {
	tok, err := New(Options{Vocab: byteVocab()})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	cases := []struct {
		in   string
		want []string
	}{
		{"a\u00a0\u00a0b", []string{"a", "\u00a0", "\u00a0", "b"}},
		{"x\u3000y", []string{"x", "\u3000", "y"}},
		{"end\u00a0\u00a0", []string{"end", "\u00a0\u00a0"}},
		{"a  b", []string{"a", " ", " b"}},
	}
	for _, c := range cases {
		if got := tok.pretokenize(c.in); !reflect.DeepEqual(got, c.want) {
			t.Fatalf("pretokenize %q = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestEncodeContinuationSkipsBOSAndPrefixSpace(t *testing.T) {
	v := byteVocab()
	v["<s>"] = 256
	tok, err := New(Options{Vocab: v, BOSToken: "<s>", AddBOS: true, AddPrefixSpace: true})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	full, _ := tok.Encode("hi")
	cont, _ := tok.EncodeContinuation("hi")
	if len(full) != 4 || full[0] != 256 {
		t.Fatalf("Encode(hi) = %v, want BOS + space + h + i", full)
	}
	if want := []int{v["h"], v["i"]}; !reflect.DeepEqual(cont, want) {
		t.Fatalf("EncodeContinuation(hi) = %v, want %v", cont, want)
	}
}
