package imageprovider_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/precivox/precivox-images/internal/errors"
	"github.com/precivox/precivox-images/internal/imageprovider"
)

func TestCanonicalKey(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "arroz branco", imageprovider.CanonicalKey("Arroz Branco"))
	assert.Equal(t, "arroz branco", imageprovider.CanonicalKey("  arroz branco  "))
	assert.Equal(t, "café pilão", imageprovider.CanonicalKey("\tCAFÉ PILÃO\n"), "diacritics stay in the key")
}

func TestNormalizeQuery(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		title string
		want  string
	}{
		{"plain", "Cerveja Skol 350ml", "cerveja skol 350ml produto embalagem foto"},
		{"diacritics folded", "Açúcar União 1kg", "acucar uniao 1kg produto embalagem foto"},
		{"punctuation to spaces", "Café-Pilão (500g)", "cafe pilao 500g produto embalagem foto"},
		{"symbols dropped", "Leite Ninho® 400g!!", "leite ninho 400g produto embalagem foto"},
		{"whitespace collapsed", "  Óleo   de\tSoja  ", "oleo de soja produto embalagem foto"},
		{"only punctuation", "--- !!!", "produto embalagem foto"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, imageprovider.NormalizeQuery(tt.title))
		})
	}
}

func TestNormalizeQuery_Deterministic(t *testing.T) {
	t.Parallel()

	title := "Biscoito Maizena Vitarella 400g"
	assert.Equal(t, imageprovider.NormalizeQuery(title), imageprovider.NormalizeQuery(title))
}

func TestValidateTitle(t *testing.T) {
	t.Parallel()

	require.NoError(t, imageprovider.ValidateTitle("Arroz Tio João 5kg"))
	require.NoError(t, imageprovider.ValidateTitle(strings.Repeat("ã", imageprovider.MaxTitleLength)),
		"limit counts characters, not bytes")

	tests := []struct {
		name  string
		title string
	}{
		{"empty", ""},
		{"blank", "   \t "},
		{"too long", strings.Repeat("a", imageprovider.MaxTitleLength+1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := imageprovider.ValidateTitle(tt.title)
			require.Error(t, err)
			assert.True(t, errors.IsCategory(err, errors.CategoryValidation))
		})
	}
}

func TestPlaceholderURL(t *testing.T) {
	t.Parallel()

	base := imageprovider.DefaultPlaceholderBase
	tests := []struct {
		title string
		want  string
	}{
		{"Arroz Branco", base + "?text=Arroz%20Branco"},
		{"Feijão & Cia", base + "?text=Feij%C3%A3o%20%26%20Cia"},
		{"Pão (integral)!", base + "?text=P%C3%A3o%20(integral)!"},
		{"1+1", base + "?text=1%2B1"},
		{"", base + "?text="},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, imageprovider.PlaceholderURL("", tt.title), tt.title)
	}

	assert.Equal(t, "https://img.local/ph?text=Sal", imageprovider.PlaceholderURL("https://img.local/ph", "Sal"))
	assert.Equal(t,
		"https://via.placeholder.com/300x300/cccccc/666666?text=Cerveja%20Skol%20350ml",
		imageprovider.PlaceholderURL("", "Cerveja Skol 350ml"))
}

func TestPlaceholderURL_TruncatesLongTitle(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("ã", 100_000)
	got := imageprovider.PlaceholderURL("", long)
	assert.Equal(t,
		imageprovider.DefaultPlaceholderBase+"?text="+strings.Repeat("%C3%A3", imageprovider.MaxTitleLength),
		got)

	exact := strings.Repeat("a", imageprovider.MaxTitleLength)
	assert.Equal(t, imageprovider.DefaultPlaceholderBase+"?text="+exact, imageprovider.PlaceholderURL("", exact))
}
