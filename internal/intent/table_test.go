// internal/intent/table_test.go
package intent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildTable(t *testing.T) {
	rows := []Row{
		{Query: "Which fertilizer for wheat?", Label: "fertilizer_advice"},
		{Query: "गेहूं के लिए खाद", Label: "Fertilizer_Advice"},
		{Query: "", Label: "fertilizer_advice"},
		{Query: "price of onion", Label: ""},
		{Query: "price of onion", Label: "market_price"},
	}

	table, stats := BuildTable(rows, BuildOptions{})

	assert.Equal(t, RowStats{Accepted: 3, Skipped: 2}, stats)
	assert.Equal(t, []string{"fertilizer_advice", "market_price"}, table.Names())

	rec, ok := table.Record("fertilizer_advice")
	require.True(t, ok)
	assert.Equal(t, 2, rec.SampleCount)
	assert.Equal(t, []string{"which fertilizer for wheat", "गेहूं के लिए खाद"}, rec.SamplePhrases)
	assert.Equal(t, []string{"fertilizer", "wheat", "which", "खाद", "गेहूं"}, rec.KeywordList())
	assert.False(t, rec.HasKeyword("for"))
	assert.False(t, rec.HasKeyword("के"))
	assert.Equal(t, []LanguageTag{LanguageEnglish, LanguageHindi}, rec.Languages())

	assert.Equal(t, TableStats{Intents: 2, Samples: 3, Keywords: 7}, table.Stats())
}

func TestBuildTable_RowOrderDoesNotChangeKeywords(t *testing.T) {
	rows := []Row{
		{Query: "spray neem oil", Label: "pest_control"},
		{Query: "aphids on mustard", Label: "pest_control"},
		{Query: "whitefly on cotton", Label: "pest_control"},
	}
	reversed := []Row{rows[2], rows[1], rows[0]}

	a, _ := BuildTable(rows, BuildOptions{})
	b, _ := BuildTable(reversed, BuildOptions{})

	ra, _ := a.Record("pest_control")
	rb, _ := b.Record("pest_control")
	assert.Equal(t, ra.KeywordList(), rb.KeywordList())
}

func TestBuildTable_Aliases(t *testing.T) {
	table, _ := BuildTable([]Row{
		{Query: "बीज कहाँ मिलेगा", Label: "बीज की जानकारी"},
		{Query: "seed for paddy", Label: "seed_inquiry"},
	}, BuildOptions{Aliases: DefaultLabelAliases()})

	assert.Equal(t, []string{"seed_inquiry"}, table.Names())
	rec, _ := table.Record("seed_inquiry")
	assert.Equal(t, 2, rec.SampleCount)
}

func TestEmptyTable(t *testing.T) {
	table := EmptyTable()
	assert.Equal(t, 0, table.Len())
	assert.Empty(t, table.Names())
	assert.Equal(t, TableStats{}, table.Stats())
}
