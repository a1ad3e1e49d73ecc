package sniffer

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		text string
		want DocumentKind
	}{
		{"ponto only", "Relatório de PONTO do colaborador", KindTimesheet},
		{"espelho lowercase", "espelho de ponto - janeiro", KindTimesheet},
		{"batida", "Batidas registradas no relógio", KindTimesheet},
		{"pagamento only", "Recibo de PAGAMENTO de salário", KindPayslip},
		{"holerite", "Holerite mensal", KindPayslip},
		{"demonstrativo", "Demonstrativo de Pagamento", KindPayslip},
		{"espelho and demonstrativo tie-break", "ESPELHO DE PONTO\nDEMONSTRATIVO DE PAGAMENTO", KindPayslip},
		{"ponto and pagamento without demonstrativo", "ESPELHO DE PONTO\nData de pagamento 05/02/2024", KindTimesheet},
		{"no keywords", "Nota fiscal de serviço eletrônica", KindUnknown},
		{"empty", "", KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.text))
		})
	}
}

func TestClassify_Concurrent(t *testing.T) {
	var wg sync.WaitGroup
	results := make([]DocumentKind, 64)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				results[i] = Classify("espelho de ponto")
			} else {
				results[i] = Classify("demonstrativo de pagamento")
			}
		}(i)
	}
	wg.Wait()

	for i, got := range results {
		if i%2 == 0 {
			assert.Equal(t, KindTimesheet, got)
		} else {
			assert.Equal(t, KindPayslip, got)
		}
	}
}

func TestParseKind(t *testing.T) {
	t.Run("accepts aliases", func(t *testing.T) {
		for in, want := range map[string]DocumentKind{
			"payslip":    KindPayslip,
			" Holerite ": KindPayslip,
			"timesheet":  KindTimesheet,
			"PONTO":      KindTimesheet,
		} {
			got, err := ParseKind(in)
			require.NoError(t, err, in)
			assert.Equal(t, want, got, in)
		}
	})

	t.Run("rejects unknown", func(t *testing.T) {
		got, err := ParseKind("invoice")
		assert.ErrorIs(t, err, ErrUnknownKind)
		assert.Equal(t, KindUnknown, got)
	})
}

func TestDocumentKind_Valid(t *testing.T) {
	assert.True(t, KindPayslip.Valid())
	assert.True(t, KindTimesheet.Valid())
	assert.False(t, KindUnknown.Valid())
}
