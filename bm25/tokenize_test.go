package bm25

import (
	"reflect"
	"testing"
)

func TestTokenizeLowercasesAndSplits(t *testing.T) {
	got := Tokenize("The Quick Brown Fox")
	want := []string{"quick", "brown", "fox"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Tokenize() = %v, want %v", got, want)
	}
}

func TestTokenizeFiltersStopwordsAndSingleChars(t *testing.T) {
	got := Tokenize("a the of contract is void")
	want := []string{"contract", "void"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Tokenize() = %v, want %v", got, want)
	}
}

func TestTokenizePreservesApostrophes(t *testing.T) {
	got := Tokenize("the defendant's motion")
	want := []string{"defendant's", "motion"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Tokenize() = %v, want %v", got, want)
	}
}

func TestTokenizePreservesSectionMarker(t *testing.T) {
	got := Tokenize("liability under § 1983")
	want := []string{"liability", "under", "§", "1983"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Tokenize() = %v, want %v", got, want)
	}
}

func TestTokenizePreservesVAbbreviation(t *testing.T) {
	got := Tokenize("Smith v. Jones established the rule")
	want := []string{"smith", "v.", "jones", "established", "rule"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Tokenize() = %v, want %v", got, want)
	}
}

func TestTokenizeEmpty(t *testing.T) {
	if got := Tokenize(""); got != nil {
		t.Errorf("Tokenize(\"\") = %v, want nil", got)
	}
}
