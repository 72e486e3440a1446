// Package classify holds the keyword taxonomy used to label editais and to decide whether a
// candidate is worth keeping.
package classify

import "EditaisScanner/internal/domain"

// Category is one taxonomy label with the keywords that select it.
type Category struct {
	Label    string   `yaml:"label"`
	Keywords []string `yaml:"keywords"`
}

// Relevance groups keywords by weight.
type Relevance struct {
	High   []string `yaml:"high"`
	Medium []string `yaml:"medium"`
	Low    []string `yaml:"low"`
}

// Taxonomy is the configuration table behind Categorizer and RelevanceFilter.
type Taxonomy struct {
	// Categories are checked in declaration order; the first hit wins.
	Categories []Category `yaml:"categories"`
	// Fallbacks are the coarse notice/award/contest checks run when no category matched.
	Fallbacks    []Category `yaml:"fallbacks"`
	DefaultLabel string     `yaml:"defaultLabel"`
	Relevance    Relevance  `yaml:"relevance"`
}

// DefaultTaxonomy returns the hand-tuned Portuguese table for arts and culture calls.
func DefaultTaxonomy() Taxonomy {
	return Taxonomy{
		Categories: []Category{
			{Label: "Música", Keywords: []string{"música", "musical", "músico", "musicista", "concerto", "show"}},
			{Label: "Teatro", Keywords: []string{"teatro", "teatral", "dramaturgia", "cênico", "espetáculo"}},
			{Label: "Dança", Keywords: []string{"dança", "bailarino", "coreografia"}},
			{Label: "Cinema", Keywords: []string{"cinema", "audiovisual", "filme", "curta-metragem"}},
			{Label: "Literatura", Keywords: []string{"literatura", "livro", "escritor", "poesia", "conto"}},
			{Label: "Artes Visuais", Keywords: []string{"artes visuais", "exposição", "galeria", "artista plástico"}},
			{Label: "Patrimônio", Keywords: []string{"patrimônio", "histórico", "cultural", "preservação"}},
			{Label: "Fomento", Keywords: []string{"fomento", "incentivo", "financiamento", "patrocínio"}},
			{Label: "Formação", Keywords: []string{"formação", "workshop", "oficina", "curso", "capacitação"}},
		},
		Fallbacks: []Category{
			{Label: "Edital", Keywords: []string{"edital"}},
			{Label: "Prêmio", Keywords: []string{"prêmio"}},
			{Label: "Concurso", Keywords: []string{"concurso"}},
		},
		DefaultLabel: domain.DefaultCategory,
		Relevance: Relevance{
			High: []string{
				"edital", "editais", "chamada pública", "chamamento público", "seleção",
				"concurso", "prêmio", "premiação", "lei rouanet", "proac",
			},
			Medium: []string{
				"inscrição", "inscrições", "oportunidade", "participação", "fomento",
				"incentivo", "financiamento", "patrocínio", "apoio", "fundo", "recurso", "bolsa",
			},
			Low: []string{
				"cultura", "cultural", "arte", "artista", "artístico", "música", "teatro",
				"dança", "cinema", "literatura", "patrimônio", "museu", "biblioteca", "exposição",
			},
		},
	}
}

// WithDefaults fills the empty parts of t from DefaultTaxonomy.
func (t Taxonomy) WithDefaults() Taxonomy {
	def := DefaultTaxonomy()
	if len(t.Categories) == 0 {
		t.Categories = def.Categories
	}
	if len(t.Fallbacks) == 0 {
		t.Fallbacks = def.Fallbacks
	}
	if t.DefaultLabel == "" {
		t.DefaultLabel = def.DefaultLabel
	}
	if len(t.Relevance.High) == 0 && len(t.Relevance.Medium) == 0 && len(t.Relevance.Low) == 0 {
		t.Relevance = def.Relevance
	}
	return t
}
