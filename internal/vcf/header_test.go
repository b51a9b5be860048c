package vcf

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readHeaderString(t *testing.T, s string) (*Header, error) {
	t.Helper()
	r, err := OpenReader(strings.NewReader(s))
	require.NoError(t, err)
	return ReadHeader(r)
}

func TestParseSchemaLine(t *testing.T) {
	tests := []struct {
		name   string
		line   string
		want   Schema
		wantOK bool
	}{
		{
			"vep declaration",
			`##INFO=<ID=CSQ,Number=.,Type=String,Description="Consequence annotations from Ensembl VEP. Format: Allele|Consequence|IMPACT|SYMBOL">`,
			Schema{"Allele", "Consequence", "IMPACT", "SYMBOL"},
			true,
		},
		{
			"names are trimmed",
			`##INFO=<ID=CSQ,Description="Format: Allele | IMPACT |SYMBOL ">`,
			Schema{"Allele", "IMPACT", "SYMBOL"},
			true,
		},
		{
			"unquoted clause ends at angle bracket",
			`##INFO=<ID=CSQ,Description=Format:Allele|IMPACT>`,
			Schema{"Allele", "IMPACT"},
			true,
		},
		{"no format clause", `##INFO=<ID=CSQ,Number=.,Type=String,Description="VEP">`, nil, false},
		{"empty clause", `##INFO=<ID=CSQ,Description="Format: ">`, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseSchemaLine(tt.line)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReadHeader_SchemaAndSamples(t *testing.T) {
	h, err := readHeaderString(t, "##fileformat=VCFv4.2\n"+
		`##INFO=<ID=CSQ,Number=.,Type=String,Description="Format: Allele|IMPACT|SYMBOL">`+"\n"+
		"#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\tFORMAT\tS1\tS2\n")
	require.NoError(t, err)

	assert.Equal(t, Schema{"Allele", "IMPACT", "SYMBOL"}, h.Schema)
	assert.Equal(t, []string{"S1", "S2"}, h.SampleNames)
	assert.Len(t, h.Lines, 3)
}

func TestReadHeader_NoSchemaNoSamples(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{"eight columns", "#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\n"},
		{"format but no samples", "#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\tFORMAT\n"},
		{"short header", "#CHROM\tPOS\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := readHeaderString(t, "##fileformat=VCFv4.2\n"+tt.header)
			require.NoError(t, err)
			assert.Nil(t, h.Schema)
			assert.Empty(t, h.SampleNames)
		})
	}
}

func TestReadHeader_ANNDeclarationIsNotSchema(t *testing.T) {
	h, err := readHeaderString(t,
		`##INFO=<ID=ANN,Number=.,Type=String,Description="Functional annotations: 'Allele | Annotation'">`+"\n"+
			"#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\n")
	require.NoError(t, err)
	assert.Nil(t, h.Schema)
}

func TestReadHeader_FirstSchemaWins(t *testing.T) {
	h, err := readHeaderString(t,
		`##INFO=<ID=CSQ,Description="Format: A|B">`+"\n"+
			`##INFO=<ID=CSQ,Description="Format: C|D">`+"\n"+
			"#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\n")
	require.NoError(t, err)
	assert.Equal(t, Schema{"A", "B"}, h.Schema)
}

func TestReadHeader_MissingColumnHeader(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"only meta lines", "##fileformat=VCFv4.2\n##source=test\n"},
		{"data before header", "##fileformat=VCFv4.2\n1\t100\t.\tA\tG\t50\tPASS\t.\n"},
		{"empty input", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := readHeaderString(t, tt.input)
			require.Error(t, err)
			var fe *FormatError
			assert.True(t, errors.As(err, &fe), "want FormatError, got %T", err)
		})
	}
}
