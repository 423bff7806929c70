// Package catalog holds the ordered list of news stimuli the interview
// walks through. The catalog is loaded once at startup and shared
// read-only across all sessions; order defines interview order.
package catalog

import "esgadvisor/internal/model"

// Greeting opens every interview transcript.
const Greeting = "Hola! Soy tu asesor ESG. Analizaré tu perfil de inversión mediante 5 noticias. ¿Preparado para comenzar?"

// openingQuestion is the first prompt for every stimulus.
const openingQuestion = "¿Qué opinas sobre esta noticia?"

// Catalog is an immutable ordered list of stimuli.
type Catalog struct {
	stimuli []model.Stimulus
}

// New builds a catalog from stimuli, renumbering IDs to their ordinal
// position so interview order and IDs always agree.
func New(stimuli []model.Stimulus) *Catalog {
	owned := make([]model.Stimulus, len(stimuli))
	copy(owned, stimuli)
	for i := range owned {
		owned[i].ID = i
	}
	return &Catalog{stimuli: owned}
}

// Len returns the number of stimuli.
func (c *Catalog) Len() int {
	return len(c.stimuli)
}

// At returns the stimulus at ordinal position i. The bool is false when i
// is out of range.
func (c *Catalog) At(i int) (model.Stimulus, bool) {
	if i < 0 || i >= len(c.stimuli) {
		return model.Stimulus{}, false
	}
	return c.stimuli[i], true
}

// Stimuli returns a copy of the ordered stimulus list.
func (c *Catalog) Stimuli() []model.Stimulus {
	out := make([]model.Stimulus, len(c.stimuli))
	copy(out, c.stimuli)
	return out
}

// Default returns the built-in five-item ESG news catalog.
func Default() *Catalog {
	return New([]model.Stimulus{
		{
			Text:            "Repsol entre las 50 empresas con mayor responsabilidad histórica en el calentamiento global",
			OpeningQuestion: openingQuestion,
			SeedQuestions: []model.SeedQuestion{
				{Dimension: model.DimensionEnvironmental, Prompt: "¿Cómo valoras que una empresa energética gestione su transición ecológica?"},
				{Dimension: model.DimensionSocial, Prompt: "¿Crees que deberían compensar a las comunidades afectadas por su impacto ambiental?"},
				{Dimension: model.DimensionGovernance, Prompt: "¿Qué medidas de transparencia esperarías en su reporting de sostenibilidad?"},
			},
		},
		{
			Text:            "Inditex anuncia la revisión de las condiciones laborales en toda su cadena de proveedores asiáticos",
			OpeningQuestion: openingQuestion,
			SeedQuestions: []model.SeedQuestion{
				{Dimension: model.DimensionSocial, Prompt: "¿Qué peso das a los derechos de los empleados al evaluar una inversión?"},
				{Dimension: model.DimensionGovernance, Prompt: "¿Deberían las auditorías de proveedores ser públicas y verificables?"},
				{Dimension: model.DimensionRisk, Prompt: "¿Cómo afectaría a tu inversión un escándalo laboral en la cadena de suministro?"},
			},
		},
		{
			Text:            "Un gran banco español multado por deficiencias en sus políticas anticorrupción y de remuneración ejecutiva",
			OpeningQuestion: openingQuestion,
			SeedQuestions: []model.SeedQuestion{
				{Dimension: model.DimensionGovernance, Prompt: "¿Qué importancia tiene para ti la ética corporativa y la estructura del consejo?"},
				{Dimension: model.DimensionRisk, Prompt: "¿Invertirías en una empresa sancionada si su rentabilidad sigue siendo alta?"},
			},
		},
		{
			Text:            "La volatilidad de los mercados energéticos dispara las pérdidas de los fondos más expuestos a combustibles fósiles",
			OpeningQuestion: openingQuestion,
			SeedQuestions: []model.SeedQuestion{
				{Dimension: model.DimensionRisk, Prompt: "¿Qué nivel de volatilidad estás dispuesto a asumir en tu cartera?"},
				{Dimension: model.DimensionEnvironmental, Prompt: "¿Consideras la huella ecológica de un fondo antes de invertir en él?"},
			},
		},
		{
			Text:            "Una tecnológica líder crea un comité independiente de diversidad e inclusión con poder de veto sobre contrataciones directivas",
			OpeningQuestion: openingQuestion,
			SeedQuestions: []model.SeedQuestion{
				{Dimension: model.DimensionSocial, Prompt: "¿Qué valor das a la diversidad e inclusión en los equipos directivos?"},
				{Dimension: model.DimensionGovernance, Prompt: "¿Un comité con poder de veto mejora o entorpece el gobierno corporativo?"},
			},
		},
	})
}
