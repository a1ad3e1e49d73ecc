package parser

import (
	"fmt"
	"strings"
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// documentGenerator builds synthetic portal documents with gofakeit so the
// extractors are exercised over varied names, dates and amounts.
type documentGenerator struct {
	faker *gofakeit.Faker
}

func newDocumentGenerator(seed int64) *documentGenerator {
	return &documentGenerator{faker: gofakeit.New(seed)}
}

func (g *documentGenerator) date() string {
	return fmt.Sprintf("%02d/%02d/%04d", g.faker.Number(1, 28), g.faker.Number(1, 12), g.faker.Number(2015, 2025))
}

func (g *documentGenerator) clock() (raw, canonical string) {
	h, m := g.faker.Number(0, 220), g.faker.Number(0, 59)
	return fmt.Sprintf("%02d:%02d", h, m), fmt.Sprintf("%d:%02d", h, m)
}

func (g *documentGenerator) amount() string {
	return fmt.Sprintf("%d,%02d", g.faker.Number(1, 999), g.faker.Number(0, 99))
}

type generatedTimesheet struct {
	text     string
	name     string
	worked   string
	absences string
	absence  string
}

func (g *documentGenerator) timesheet() generatedTimesheet {
	name := strings.ToUpper(g.faker.Name())
	workedRaw, worked := g.clock()
	absRaw, absences := g.clock()
	absence := g.date()

	text := strings.Join([]string{
		"ESPELHO DE PONTO",
		fmt.Sprintf("Funcionário: %d - %s", g.faker.Number(1, 9999), name),
		"Período: " + g.date() + " a " + g.date(),
		absence + " Seg FALTA",
		workedRaw + " Horas Trabalhadas",
		absRaw + " Faltas",
	}, "\n")

	return generatedTimesheet{text: text, name: name, worked: worked, absences: absences, absence: absence}
}

type generatedPayslip struct {
	text    string
	name    string
	id      string
	payDate string
	salary  string
	net     string
}

func (g *documentGenerator) payslip() generatedPayslip {
	name := strings.ToUpper(g.faker.Name())
	id := fmt.Sprintf("%06d", g.faker.Number(1, 999999))
	admission := "01/01/2010"
	payDate := g.date()
	salary := g.amount()
	net := g.amount()

	text := strings.Join([]string{
		"RECIBO DE PAGAMENTO",
		"Referência: " + strings.ToUpper(g.faker.MonthString()[:3]) + "/2024",
		"Matrícula: " + id,
		"NOME        CPF",
		name + "      " + g.faker.Numerify("###.###.###-##"),
		"Admissão: " + admission,
		"V001 SALARIO BASE 30,00 R$ " + salary,
		"D001 INSS 7,50 R$ " + g.amount(),
		"Valor Líquido R$ " + net,
		"Data de Pagamento: " + payDate,
	}, "\n")

	return generatedPayslip{text: text, name: name, id: id, payDate: payDate, salary: salary, net: net}
}

func TestParseTimesheet_Generated(t *testing.T) {
	gen := newDocumentGenerator(42)

	for i := 0; i < 25; i++ {
		doc := gen.timesheet()
		rec := ParseTimesheet(doc.text)

		assert.Equal(t, doc.name, rec.EmployeeName)
		require.Len(t, rec.SummaryItems, 2, doc.text)
		assert.Equal(t, SummaryItem{Label: LabelWorkedHours, Value: doc.worked}, rec.SummaryItems[0])
		assert.Equal(t, SummaryItem{Label: LabelAbsences, Value: doc.absences, IsNegative: true}, rec.SummaryItems[1])
		assert.Equal(t, []string{doc.absence}, rec.AbsenceDates)
		assert.True(t, rec.HasAbsenceDays)
	}
}

func TestParsePayslip_Generated(t *testing.T) {
	gen := newDocumentGenerator(7)

	for i := 0; i < 25; i++ {
		doc := gen.payslip()
		rec := ParsePayslip(doc.text)

		assert.Equal(t, doc.name, rec.EmployeeName)
		assert.Equal(t, doc.id, rec.EmployeeID)
		assert.Equal(t, doc.payDate, rec.PaymentDate)
		assert.Equal(t, doc.net, rec.NetAmount)
		require.Len(t, rec.EarningsItems, 1)
		assert.Equal(t, doc.salary, rec.EarningsItems[0].Amount)
		assert.Equal(t, "30,00", rec.EarningsItems[0].Reference)
		require.Len(t, rec.DeductionItems, 1)
	}
}
