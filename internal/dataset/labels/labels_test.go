package labels

import (
	"reflect"
	"testing"
)

func TestToken(t *testing.T) {
	tests := []struct {
		rel, sep, want string
	}{
		{"cat/001.png", "_", "cat"},
		{"animals/dog/x_1.jpg", "_", "dog"},
		{"cat_001.png", "_", "cat"},
		{"cat-001.png", "-", "cat"},
		{"plain.png", "_", "plain"},
		{"_leading.png", "_", "_leading"},
		{"bird_a_b.png", "", "bird_a_b"},
	}
	for _, tt := range tests {
		if got := Token(tt.rel, tt.sep); got != tt.want {
			t.Errorf("Token(%q, %q) = %q, want %q", tt.rel, tt.sep, got, tt.want)
		}
	}
}

func TestMappingIsSortedAndDeterministic(t *testing.T) {
	first := NewMapping([]string{"dog", "cat", "dog", "bird", "cat"})
	second := NewMapping([]string{"bird", "cat", "dog"})

	if !reflect.DeepEqual(first.Tokens(), []string{"bird", "cat", "dog"}) {
		t.Fatalf("tokens = %v", first.Tokens())
	}
	for _, tok := range []string{"bird", "cat", "dog"} {
		a, _ := first.ID(tok)
		b, _ := second.ID(tok)
		if a != b {
			t.Errorf("id of %q differs across runs: %d vs %d", tok, a, b)
		}
	}
	if id, _ := first.ID("cat"); id != 1 {
		t.Errorf("cat id = %d, want 1", id)
	}
	if _, ok := first.ID("fish"); ok {
		t.Error("unknown token should not resolve")
	}
}

func TestIntMappingSortsNumerically(t *testing.T) {
	m := NewIntMapping([]int64{10, 2, 2, 1})
	if m.Len() != 3 {
		t.Fatalf("len = %d", m.Len())
	}
	if !reflect.DeepEqual(m.Tokens(), []string{"1", "2", "10"}) {
		t.Errorf("tokens = %v", m.Tokens())
	}
	if id, ok := m.IntID(10); !ok || id != 2 {
		t.Errorf("IntID(10) = %d, %v", id, ok)
	}
}

func TestPreSplit(t *testing.T) {
	test, stripped, ok := PreSplit([]string{"train/cat/1.png", "Test/dog/2.png", "train/dog_3.png"})
	if !ok {
		t.Fatal("expected pre-split layout")
	}
	if !reflect.DeepEqual(test, []bool{false, true, false}) {
		t.Errorf("test = %v", test)
	}
	if !reflect.DeepEqual(stripped, []string{"cat/1.png", "dog/2.png", "dog_3.png"}) {
		t.Errorf("stripped = %v", stripped)
	}

	for _, rels := range [][]string{
		{"train/cat/1.png", "train/dog/2.png"},
		{"train/cat/1.png", "test/dog/2.png", "extra/3.png"},
		{"train/cat/1.png", "test.png"},
		nil,
	} {
		if _, _, ok := PreSplit(rels); ok {
			t.Errorf("PreSplit(%v) should be false", rels)
		}
	}
}
