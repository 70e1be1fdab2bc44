package embedding

import (
	"testing"
)

func TestSimpleTokenizer_Tokenize(t *testing.T) {
	tok := &SimpleTokenizer{}
	ids, attn, types := tok.Tokenize("hello world", 10)
	if len(ids) != 10 || len(attn) != 10 || len(types) != 10 {
		t.Fatalf("lengths = %d/%d/%d, want 10", len(ids), len(attn), len(types))
	}
	if ids[0] != clsTokenID {
		t.Errorf("expected CLS %d, got %d", clsTokenID, ids[0])
	}
	if ids[3] != sepTokenID {
		t.Errorf("expected SEP at 3, got %d", ids[3])
	}
	for i, want := range []int64{1, 1, 1, 1, 0} {
		if attn[i] != want {
			t.Errorf("attention[%d] = %d, want %d", i, attn[i], want)
		}
	}
	upper, _, _ := tok.Tokenize("HELLO World", 10)
	if upper[1] != ids[1] || upper[2] != ids[2] {
		t.Error("tokenizer should be case-insensitive")
	}
}

func TestSimpleTokenizer_Truncates(t *testing.T) {
	tok := &SimpleTokenizer{}
	ids, attn, _ := tok.Tokenize("a b c d e f g h i j k l", 5)
	if len(ids) != 5 {
		t.Fatalf("len(ids) = %d", len(ids))
	}
	if ids[4] != sepTokenID || attn[4] != 1 {
		t.Errorf("last position should be SEP, got %d", ids[4])
	}
}

func TestSplitWords(t *testing.T) {
	words := SplitWords("  a  b\tc\n ")
	if len(words) != 3 {
		t.Errorf("expected 3 words, got %v", words)
	}
	if len(SplitWords("")) != 0 {
		t.Error("empty string should have no words")
	}
}

func TestHashString(t *testing.T) {
	h := HashString("abc")
	if h == 0 {
		t.Error("hash should be non-zero")
	}
	if HashString("abc") != HashString("abc") {
		t.Error("hash should be deterministic")
	}
}
