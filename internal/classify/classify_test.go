package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	c := NewCategorizer(DefaultTaxonomy())

	cases := map[string]string{
		"Edital de Seleção 2024 Inscrições até 15/03/2025 para artistas": "Edital",
		"Festival de MÚSICA independente":                                "Música",
		"Mostra de teatro e dança":                                       "Teatro",
		"Prêmio de dramaturgia":                                          "Teatro",
		"Premio nacional de ciencia":                                     "Prêmio",
		"Concurso público para professores":                              "Formação",
		"Seleção de projetos de audiovisual":                             "Cinema",
		"Licitação de obras viárias":                                     "Outros",
	}

	for in, want := range cases {
		got := c.Classify(in)
		require.NotNil(t, got, in)
		assert.Equal(t, want, *got, in)
	}

	assert.Nil(t, c.Classify("   "))
}

func TestClassifyCustomTaxonomy(t *testing.T) {
	t.Parallel()

	c := NewCategorizer(Taxonomy{
		Categories:   []Category{{Label: "Ciência", Keywords: []string{"pesquisa"}}},
		Fallbacks:    []Category{{Label: "Aviso", Keywords: []string{"aviso"}}},
		DefaultLabel: "Geral",
	})

	assert.Equal(t, "Ciência", *c.Classify("Bolsas de PESQUISA"))
	assert.Equal(t, "Aviso", *c.Classify("Aviso de pauta"))
	assert.Equal(t, "Geral", *c.Classify("Nada a declarar"))
	assert.Equal(t, []string{"Ciência", "Aviso", "Geral"}, c.Labels())
}

func TestLabels(t *testing.T) {
	t.Parallel()

	labels := NewCategorizer(Taxonomy{}).Labels()
	assert.Equal(t, []string{
		"Música", "Teatro", "Dança", "Cinema", "Literatura", "Artes Visuais",
		"Patrimônio", "Fomento", "Formação", "Edital", "Prêmio", "Concurso", "Outros",
	}, labels)
}

func TestIsRelevantTiers(t *testing.T) {
	t.Parallel()

	f := NewRelevanceFilter(DefaultTaxonomy())

	cases := map[string]bool{
		"Edital de Seleção 2024":                        true,
		"CHAMADA PÚBLICA para coletivos":                true,
		"Abertas as inscrições com patrocínio estadual": true,
		"Inscrições abertas para museu municipal":       true,
		"Inscrições abertas para motoristas":            false,
		"Teatro e cinema no fim de semana":              false,
		"Previsão do tempo para amanhã":                 false,
		"":                                              false,
	}

	for in, want := range cases {
		assert.Equal(t, want, f.IsRelevant(in), in)
	}
}

func TestIsRelevantMonotonic(t *testing.T) {
	t.Parallel()

	f := NewRelevanceFilter(DefaultTaxonomy())
	base := "Reunião do conselho na quinta-feira"
	require.False(t, f.IsRelevant(base))

	for _, kw := range DefaultTaxonomy().Relevance.High {
		assert.True(t, f.IsRelevant(base+" "+kw), kw)
	}
}

func TestIsRelevantAccentInsensitive(t *testing.T) {
	t.Parallel()

	f := NewRelevanceFilter(DefaultTaxonomy())
	assert.True(t, f.IsRelevant("selecao de projetos"))
	assert.True(t, f.IsRelevant("PREMIO estadual"))
}
