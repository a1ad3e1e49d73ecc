package parser

import (
	"regexp"
	"strings"

	"github.com/FACorreiaa/meu-holerite/internal/domain/import/normalizer"
)

// DefaultEmployerName is recorded on every payslip. The portal layout does
// not expose the employer in a stable position.
const DefaultEmployerName = "Empregador não informado"

// LineItem is one earnings (V) or deduction (D) row of a payslip.
type LineItem struct {
	Code        string `json:"code"`
	Description string `json:"description"`
	Reference   string `json:"reference"`
	Amount      string `json:"amount"`
	Explanation string `json:"explanation"`
}

// IsEarning reports whether the item is routed to earnings.
func (li LineItem) IsEarning() bool {
	return strings.HasPrefix(li.Code, "V")
}

// PayslipRecord is the structured content of a payslip ("recibo de pagamento").
// Amounts keep the document's locale formatting ("1.234,56").
type PayslipRecord struct {
	EmployeeName               string     `json:"employee_name"`
	EmployeeID                 string     `json:"employee_id"`
	Period                     string     `json:"period"`
	PaymentDate                string     `json:"payment_date"`
	EmployerName               string     `json:"employer_name"`
	EarningsItems              []LineItem `json:"earnings_items"`
	DeductionItems             []LineItem `json:"deduction_items"`
	TotalEarnings              string     `json:"total_earnings"`
	TotalDeductions            string     `json:"total_deductions"`
	NetAmount                  string     `json:"net_amount"`
	SocialSecurityBase         string     `json:"social_security_base"`
	SeveranceFundMonthlyAmount string     `json:"severance_fund_monthly_amount"`
	IncomeTaxBase              string     `json:"income_tax_base"`
}

// The amount must sit on the label's own line; thousands separators are optional.
const amountAfterLabel = `[^\n]{0,50}?R\$[^\S\n]*(-?\d[\d.]*,\d{2})`

func labelledAmount(label string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)` + label + amountAfterLabel)
}

var (
	reEmployeeID    = regexp.MustCompile(`(?i)(?:MATR[IÍ]CULA|REGISTRO)[^\S\n]*:?[^\S\n]*(\d+)`)
	rePayslipPeriod = regexp.MustCompile(`(?i)(?:REFER[EÊ]NCIA|COMPET[EÊ]NCIA|FOLHA[^\S\n]+MENSAL)[^\S\n]*:?[^\S\n]*(\p{L}{3,}(?:[^\S\n]+DE)?[^\S\n]*/?[^\S\n]*\d{4})`)
	reNameSplit     = regexp.MustCompile(`\s{3,}|\t|(?i:CPF)`)
	reAdmission     = regexp.MustCompile(`(?i)ADMISS[AÃ]O\s*:?\s*(\d{2}/\d{2}/\d{4})`)
	reLineItem      = regexp.MustCompile(`^([VD]\d{2,})\s+(.+)$`)
	reReference     = regexp.MustCompile(`^[\d.,]+$`)

	paymentDateLabels = []*regexp.Regexp{
		regexp.MustCompile(`(?i)DATA\s+DE\s+PAGAMENTO\s*:?\s*(\d{2}/\d{2}/\d{4})`),
		regexp.MustCompile(`(?i)PAGAMENTO\s+EM\s*:?\s*(\d{2}/\d{2}/\d{4})`),
		regexp.MustCompile(`(?i)PAGO\s+EM\s*:?\s*(\d{2}/\d{2}/\d{4})`),
	}

	reTotalEarnings   = labelledAmount(`TOTAL\s+(?:DE\s+)?(?:VENCIMENTOS|PROVENTOS)`)
	reTotalDeductions = labelledAmount(`TOTAL\s+(?:DE\s+)?DESCONTOS`)
	reNetAmount       = labelledAmount(`(?:VALOR\s+L[IÍ]QUIDO|L[IÍ]QUIDO\s+A\s+RECEBER)`)
	reINSSBase        = labelledAmount(`BASE\s+(?:DE\s+)?(?:C[AÁ]LCULO\s+)?(?:DO\s+)?INSS`)
	reIRRFBase        = labelledAmount(`BASE\s+(?:DE\s+)?(?:C[AÁ]LCULO\s+)?(?:DO\s+)?IRRF`)
	reFGTS            = []*regexp.Regexp{
		labelledAmount(`FGTS\s+DO\s+M[EÊ]S`),
		labelledAmount(`DEP[OÓ]SITO\s+(?:DO\s+)?FGTS`),
		labelledAmount(`FGTS`),
	}
)

// ParsePayslip extracts a PayslipRecord from payslip text.
// It never fails: fields that cannot be located keep their defaults.
func ParsePayslip(text string) PayslipRecord {
	text = normalizeNewlines(text)
	lines := splitLines(text)

	earnings, deductions := extractLineItems(lines)

	return PayslipRecord{
		EmployeeName:               extractPayslipName(lines),
		EmployeeID:                 firstMatch(text, "", reEmployeeID),
		Period:                     firstMatch(text, NotFound, rePayslipPeriod),
		PaymentDate:                extractPaymentDate(text, lines),
		EmployerName:               DefaultEmployerName,
		EarningsItems:              earnings,
		DeductionItems:             deductions,
		TotalEarnings:              firstMatch(text, ZeroAmount, reTotalEarnings),
		TotalDeductions:            firstMatch(text, ZeroAmount, reTotalDeductions),
		NetAmount:                  firstMatch(text, ZeroAmount, reNetAmount),
		SocialSecurityBase:         firstMatch(text, ZeroAmount, reINSSBase),
		SeveranceFundMonthlyAmount: firstMatch(text, ZeroAmount, reFGTS...),
		IncomeTaxBase:              firstMatch(text, ZeroAmount, reIRRFBase),
	}
}

// extractPayslipName reads the line below the first "NOME" header; the name
// is its first column.
func extractPayslipName(lines []string) string {
	for i, line := range lines {
		if !strings.Contains(strings.ToUpper(line), "NOME") {
			continue
		}
		if i+1 >= len(lines) {
			return NotFound
		}
		first := reNameSplit.Split(lines[i+1], 2)[0]
		name := strings.TrimSpace(strings.ReplaceAll(first, "*", ""))
		if name == "" {
			return NotFound
		}
		return name
	}
	return NotFound
}

// extractPaymentDate tries labelled dates, then a window under the last
// "DATA DE PAGAMENTO" header. The admission date shares the same format and
// is never accepted; when it is the only candidate the last date in the
// document is used instead.
func extractPaymentDate(text string, lines []string) string {
	admission := firstMatch(text, "", reAdmission)

	date := firstMatch(text, "", paymentDateLabels...)
	if date == "" {
		date = dateUnderHeader(lines)
	}

	if date != "" && date != admission {
		return date
	}

	all := reDate.FindAllString(text, -1)
	if len(all) == 0 {
		return ""
	}
	if last := all[len(all)-1]; last != admission {
		return last
	}
	return ""
}

func dateUnderHeader(lines []string) string {
	header := -1
	for i, line := range lines {
		if strings.Contains(strings.ToUpper(line), "DATA DE PAGAMENTO") {
			header = i
		}
	}
	if header < 0 {
		return ""
	}

	end := min(header+4, len(lines))
	for _, line := range lines[header:end] {
		if d := reDate.FindString(line); d != "" {
			return d
		}
	}
	return ""
}

func extractLineItems(lines []string) (earnings, deductions []LineItem) {
	earnings = make([]LineItem, 0)
	deductions = make([]LineItem, 0)

	for _, line := range lines {
		item, ok := parseLineItem(strings.TrimSpace(line))
		if !ok {
			continue
		}
		if item.IsEarning() {
			earnings = append(earnings, item)
		} else {
			deductions = append(deductions, item)
		}
	}
	return earnings, deductions
}

// parseLineItem splits "V001 SALARIO BASE 30,00 R$ 1.500,00" into code,
// description, reference quantity and amount.
func parseLineItem(line string) (LineItem, bool) {
	m := reLineItem.FindStringSubmatch(line)
	if m == nil {
		return LineItem{}, false
	}
	code, content := m[1], m[2]

	remainder, amount := content, ""
	if idx := strings.LastIndex(content, "R$"); idx >= 0 {
		remainder = content[:idx]
		amount = strings.TrimSpace(content[idx+len("R$"):])
	}

	description := strings.TrimSpace(remainder)
	reference := ""
	if tokens := strings.Fields(remainder); len(tokens) >= 2 {
		if last := tokens[len(tokens)-1]; reReference.MatchString(last) {
			reference = last
			cut := strings.LastIndex(remainder, last)
			description = strings.TrimSpace(remainder[:cut] + remainder[cut+len(last):])
		}
	}

	return LineItem{
		Code:        code,
		Description: description,
		Reference:   reference,
		Amount:      amount,
		Explanation: normalizer.Explain(description),
	}, true
}
