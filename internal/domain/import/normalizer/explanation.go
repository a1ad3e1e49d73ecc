// explanation.go maps payslip line-item descriptions to plain-language explanations.
package normalizer

import (
	"regexp"
)

// ExplanationRule pairs a description pattern with the text shown to the employee.
type ExplanationRule struct {
	Pattern     *regexp.Regexp
	Explanation string
}

// Sanitizer explains line items using an ordered rule table. First match wins.
type Sanitizer struct {
	rules []ExplanationRule
}

// NewSanitizer creates a sanitizer loaded with the default Brazilian payroll rules.
func NewSanitizer() *Sanitizer {
	return &Sanitizer{
		rules: defaultExplanationRules(),
	}
}

// Explain returns the explanation for a line-item description, or "" when no rule applies.
// Patterns are matched against the accent-folded, upper-cased description.
func (s *Sanitizer) Explain(description string) string {
	folded := Fold(description)
	for _, rule := range s.rules {
		if rule.Pattern.MatchString(folded) {
			return rule.Explanation
		}
	}
	return ""
}

// AddRule appends a custom rule. Custom rules are checked after the defaults.
func (s *Sanitizer) AddRule(pattern string, explanation string) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return err
	}
	s.rules = append(s.rules, ExplanationRule{
		Pattern:     re,
		Explanation: explanation,
	})
	return nil
}

// RuleCount returns the number of loaded rules.
func (s *Sanitizer) RuleCount() int {
	return len(s.rules)
}

var defaultSanitizer = NewSanitizer()

// Explain explains a description using the default rule table.
func Explain(description string) string {
	return defaultSanitizer.Explain(description)
}

// defaultExplanationRules returns the rule table. Patterns expect folded input,
// so they are written without accents. More specific rules come first.
func defaultExplanationRules() []ExplanationRule {
	return []ExplanationRule{
		// Loans and advances
		{regexp.MustCompile(`EMPRESTIMO|CONSIGNADO`), "Parcela de empréstimo consignado descontada diretamente do salário."},
		{regexp.MustCompile(`ADIANTAMENTO|ADTO`), "Valor adiantado durante o mês e descontado no fechamento da folha."},

		// Taxes and contributions
		{regexp.MustCompile(`INSS`), "Contribuição previdenciária ao INSS, calculada por faixas sobre a remuneração."},
		{regexp.MustCompile(`IRRF|IMPOSTO DE RENDA`), "Imposto de Renda Retido na Fonte sobre a base após deduções legais."},
		{regexp.MustCompile(`SINDICAL|SINDICATO`), "Contribuição destinada ao sindicato da categoria."},
		{regexp.MustCompile(`PENSAO`), "Pensão alimentícia descontada por determinação judicial."},

		// Benefits
		{regexp.MustCompile(`VALE TRANSPORTE|VALE-TRANSPORTE|\bV\.?T\b`), "Coparticipação no vale-transporte, limitada a 6% do salário base."},
		{regexp.MustCompile(`VALE REFEICAO|VALE ALIMENTACAO|REFEICAO|ALIMENTACAO`), "Coparticipação no benefício de refeição ou alimentação."},
		{regexp.MustCompile(`ODONTO`), "Mensalidade ou coparticipação do plano odontológico."},
		{regexp.MustCompile(`PLANO DE SAUDE|ASSIST\w*\s+MEDICA|SAUDE`), "Mensalidade ou coparticipação do plano de saúde."},

		// Time-related
		{regexp.MustCompile(`DSR|DESCANSO SEMANAL`), "Descanso Semanal Remunerado, reflexo de horas extras e adicionais no repouso."},
		{regexp.MustCompile(`HORA\w*\s+EXTRA|H\.?\s?EXTRA|H\.E\.`), "Horas trabalhadas além da jornada, pagas com adicional."},
		{regexp.MustCompile(`NOTURNO`), "Adicional pelo trabalho realizado entre 22h e 5h."},
		{regexp.MustCompile(`FALTA`), "Desconto por faltas não justificadas no período."},
		{regexp.MustCompile(`ATRASO`), "Desconto por atrasos ou saídas antecipadas registrados no ponto."},

		// Salary components
		{regexp.MustCompile(`FERIAS`), "Valores relativos a férias, incluindo o terço constitucional quando aplicável."},
		{regexp.MustCompile(`\b13|DECIMO TERCEIRO`), "Parcela do décimo terceiro salário."},
		{regexp.MustCompile(`PERICULOSIDADE`), "Adicional de 30% sobre o salário base por atividade perigosa."},
		{regexp.MustCompile(`INSALUBRIDADE`), "Adicional por exposição a agentes nocivos à saúde."},
		{regexp.MustCompile(`GRATIFICACAO`), "Gratificação paga pela função ou por liberalidade da empresa."},
		{regexp.MustCompile(`COMISS`), "Comissões sobre vendas ou resultados."},
		{regexp.MustCompile(`PLR|PARTICIPACAO NOS LUCROS`), "Participação nos lucros ou resultados."},
		{regexp.MustCompile(`SALARIO|SALARIO BASE|ORDENADO`), "Salário base contratual referente aos dias trabalhados no mês."},
	}
}
