package chunker

import (
	"strings"
	"testing"

	"github.com/casetrack/casetrack/parser"
)

func mkPage(num int, content string) parser.Page {
	return parser.Page{
		Number:           num,
		Content:          content,
		Paragraphs:       strings.Split(content, "\n\n"),
		ExtractionMethod: parser.Native,
	}
}

func TestChunkContractNeverSplitsClause(t *testing.T) {
	clause := "1.1 Each party shall maintain the confidentiality of all information disclosed under this Agreement for a period of five years following termination, and shall not disclose such information to any third party without prior written consent."
	content := "PREAMBLE\n\n" + clause + "\n\n1.2 This clause is short."

	page := mkPage(1, content)
	candidates := chunkContract(page)

	found := false
	for _, c := range candidates {
		if strings.Contains(c.Text, "1.1 Each party shall maintain") {
			found = true
			if !strings.Contains(c.Text, "five years following termination") {
				t.Errorf("clause 1.1 was split across chunks: %q", c.Text)
			}
		}
	}
	if !found {
		t.Fatal("expected a chunk containing clause 1.1")
	}
}

func TestChunkDepositionKeepsQAPairTogether(t *testing.T) {
	content := "Q. Did you see the defendant on January 5th?\nA. Yes, I saw him at the office around 3pm.\nQ. What time did you leave?\nA. Around 5pm."
	page := mkPage(1, content)

	candidates := chunkDeposition(page)
	for _, c := range candidates {
		if strings.Contains(c.Text, "Did you see the defendant") && !strings.Contains(c.Text, "I saw him at the office") {
			t.Errorf("Q&A pair split: %q", c.Text)
		}
	}
}

func TestChunkDepositionNoOrphanedAnswer(t *testing.T) {
	content := "Q. Did you see the defendant on January 5th?\nA. Yes, I saw him at the office around 3pm."
	page := mkPage(1, content)
	candidates := chunkDeposition(page)
	if len(candidates) != 1 {
		t.Fatalf("expected 1 chunk for a single Q&A pair, got %d", len(candidates))
	}
	if !strings.Contains(candidates[0].Text, "Q.") || !strings.Contains(candidates[0].Text, "A.") {
		t.Errorf("chunk missing Q or A: %q", candidates[0].Text)
	}
}

func TestChunkStatuteNeverSplitsSubsection(t *testing.T) {
	content := "§ 1983. Civil action for deprivation of rights\n(a) Every person who, under color of any statute, ordinance, regulation, custom, or usage, of any State subjects any citizen to deprivation of rights shall be liable.\n(b) No exception applies here."
	page := mkPage(1, content)
	candidates := chunkStatute(page)
	for _, c := range candidates {
		if strings.Contains(c.Text, "(a) Every person") && !strings.Contains(c.Text, "shall be liable") {
			t.Errorf("subsection (a) was split: %q", c.Text)
		}
	}
}

func TestChunkDiscoveryKeepsRequestAndResponseTogether(t *testing.T) {
	content := "Request No. 1: Produce all documents relating to the contract.\nResponse: Plaintiff objects on grounds of privilege.\nRequest No. 2: Produce all correspondence."
	page := mkPage(1, content)
	candidates := chunkDiscovery(page)
	for _, c := range candidates {
		if strings.Contains(c.Text, "Request No. 1") && !strings.Contains(c.Text, "objects on grounds of privilege") {
			t.Errorf("request/response pair split: %q", c.Text)
		}
	}
}

func TestChunkDefaultRespectsCharBounds(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 40; i++ {
		b.WriteString("This is a sentence that contributes to the overall length of the paragraph. ")
	}
	content := strings.Repeat(b.String()+"\n\n", 5)
	page := mkPage(1, content)

	candidates := chunkDefault(page)
	if len(candidates) == 0 {
		t.Fatal("expected at least one chunk")
	}
	for _, c := range candidates {
		if estimateChars(c.Text) > defaultMaxChars {
			t.Errorf("chunk exceeds max chars: got %d, want <= %d", estimateChars(c.Text), defaultMaxChars)
		}
	}
}

func TestChunkDefaultNoMidWordSplit(t *testing.T) {
	content := strings.Repeat("supercalifragilisticexpialidocious ", 200)
	page := mkPage(1, content)
	candidates := chunkDefault(page)
	for _, c := range candidates {
		for _, word := range strings.Fields(c.Text) {
			if word != "supercalifragilisticexpialidocious" {
				t.Errorf("mid-word split produced fragment: %q", word)
			}
		}
	}
}

func TestChunkDocumentAssignsDenseSequence(t *testing.T) {
	doc := &parser.ParsedDocument{
		Pages: []parser.Page{
			mkPage(1, "First page short paragraph."),
			mkPage(2, "Second page short paragraph."),
		},
	}
	candidates := ChunkDocument(doc, CategoryDefault)
	for i, c := range candidates {
		if c.Sequence != i {
			t.Errorf("candidate[%d].Sequence = %d, want %d", i, c.Sequence, i)
		}
	}
}

func TestChunkDocumentSkipsSkippedPages(t *testing.T) {
	doc := &parser.ParsedDocument{
		Pages: []parser.Page{
			mkPage(1, "Readable page."),
			{Number: 2, ExtractionMethod: parser.Skipped},
		},
	}
	candidates := ChunkDocument(doc, CategoryDefault)
	for _, c := range candidates {
		if c.Page == 2 {
			t.Error("expected no chunk from a Skipped page")
		}
	}
}

func TestClassifyByFilename(t *testing.T) {
	tests := []struct {
		filename string
		want     Category
	}{
		{"Master_Services_Agreement.pdf", CategoryContract},
		{"Smith_Deposition_Transcript.pdf", CategoryDeposition},
		{"Appellants_Opening_Brief.pdf", CategoryBrief},
		{"Interrogatories_Set_One.pdf", CategoryDiscovery},
		{"Complaint.pdf", CategoryPleading},
	}
	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			if got := Classify(tt.filename, ""); got != tt.want {
				t.Errorf("Classify(%q) = %v, want %v", tt.filename, got, tt.want)
			}
		})
	}
}

func TestClassifyByContent(t *testing.T) {
	text := "Q. State your name for the record.\nA. John Smith."
	if got := Classify("exhibit12.pdf", text); got != CategoryDeposition {
		t.Errorf("Classify by content = %v, want CategoryDeposition", got)
	}
}

func TestClassifyFallsBackToDefault(t *testing.T) {
	if got := Classify("notes.txt", "just some unremarkable text"); got != CategoryDefault {
		t.Errorf("Classify fallback = %v, want CategoryDefault", got)
	}
}

func TestMergeUndersizedMergesTrailingSliver(t *testing.T) {
	chunks := []Candidate{
		{Text: strings.Repeat("word ", 300), CharStart: 0, CharEnd: 1500},
		{Text: "tiny", CharStart: 1500, CharEnd: 1504},
	}
	merged := mergeUndersized(chunks, 400, 2200)
	if len(merged) != 1 {
		t.Fatalf("expected sliver to merge into previous chunk, got %d chunks", len(merged))
	}
	if !strings.Contains(merged[0].Text, "tiny") {
		t.Error("merged chunk lost the sliver's text")
	}
}

func TestMergeUndersizedLeavesSliverWhenMergeWouldOverflow(t *testing.T) {
	chunks := []Candidate{
		{Text: strings.Repeat("word ", 500), CharStart: 0, CharEnd: 2500},
		{Text: "tiny", CharStart: 2500, CharEnd: 2504},
	}
	merged := mergeUndersized(chunks, 400, 2200)
	if len(merged) != 2 {
		t.Fatalf("expected sliver to stay separate rather than overflow maxChars, got %d chunks", len(merged))
	}
}

func TestTrailingWordsStopsAtWordBoundary(t *testing.T) {
	got := trailingWords("the quick brown fox jumps over the lazy dog", 10)
	if strings.HasPrefix(got, " ") {
		t.Errorf("trailingWords should trim leading space: %q", got)
	}
	for _, r := range got {
		_ = r
	}
	if len([]rune(got)) > 15 {
		t.Errorf("trailingWords returned unexpectedly long text: %q", got)
	}
}
