package insights

import (
	"fmt"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/FACorreiaa/meu-holerite/internal/domain/import/normalizer"
	"github.com/FACorreiaa/meu-holerite/internal/domain/import/parser"
	"github.com/FACorreiaa/meu-holerite/internal/domain/import/repository"
)

// Line-item sides as stored in LineItemDocument.Side.
const (
	SideEarning   = "earning"
	SideDeduction = "deduction"
)

// LineItemDocument is one payslip line as indexed for search.
type LineItemDocument struct {
	ID          string `json:"id"`
	Period      string `json:"period"`
	Code        string `json:"code"`
	Description string `json:"description"`
	Explanation string `json:"explanation"`
	Amount      string `json:"amount"`
	Side        string `json:"side"`
	// Folded holds the accent-free description so "salario" finds "SALÁRIO".
	Folded string `json:"folded"`
}

// SearchHit is a matching line item with its relevance score.
type SearchHit struct {
	Document LineItemDocument `json:"document"`
	Score    float64          `json:"score"`
}

// SearchIndex provides full-text search over stored payslip line items.
// The index lives in memory and is rebuilt from the repository.
type SearchIndex struct {
	index   bleve.Index
	indexMu sync.RWMutex
}

// NewSearchIndex creates an empty in-memory index.
func NewSearchIndex() (*SearchIndex, error) {
	index, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create index: %w", err)
	}
	return &SearchIndex{index: index}, nil
}

func buildIndexMapping() mapping.IndexMapping {
	textFieldMapping := bleve.NewTextFieldMapping()
	textFieldMapping.Analyzer = standard.Name

	keywordFieldMapping := bleve.NewTextFieldMapping()
	keywordFieldMapping.Analyzer = keyword.Name

	docMapping := bleve.NewDocumentMapping()
	docMapping.AddFieldMappingsAt("period", keywordFieldMapping)
	docMapping.AddFieldMappingsAt("code", keywordFieldMapping)
	docMapping.AddFieldMappingsAt("side", keywordFieldMapping)
	docMapping.AddFieldMappingsAt("amount", keywordFieldMapping)
	docMapping.AddFieldMappingsAt("description", textFieldMapping)
	docMapping.AddFieldMappingsAt("explanation", textFieldMapping)
	docMapping.AddFieldMappingsAt("folded", textFieldMapping)

	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultMapping = docMapping
	indexMapping.DefaultAnalyzer = standard.Name
	return indexMapping
}

// Rebuild replaces the index content with the line items of payslips.
func (si *SearchIndex) Rebuild(payslips []*repository.Payslip) error {
	si.indexMu.Lock()
	defer si.indexMu.Unlock()

	batch := si.index.NewBatch()

	existing, err := si.allIDs()
	if err != nil {
		return err
	}
	for _, id := range existing {
		batch.Delete(id)
	}

	for _, p := range payslips {
		for _, doc := range lineItemDocuments(p.Record) {
			if err := batch.Index(doc.ID, doc); err != nil {
				return fmt.Errorf("failed to index line item %s: %w", doc.ID, err)
			}
		}
	}

	if err := si.index.Batch(batch); err != nil {
		return fmt.Errorf("failed to execute batch index: %w", err)
	}
	return nil
}

func lineItemDocuments(rec parser.PayslipRecord) []LineItemDocument {
	docs := make([]LineItemDocument, 0, len(rec.EarningsItems)+len(rec.DeductionItems))
	add := func(side string, items []parser.LineItem) {
		for i, it := range items {
			docs = append(docs, LineItemDocument{
				ID:          fmt.Sprintf("%s|%s|%s|%d", rec.Period, side, it.Code, i),
				Period:      rec.Period,
				Code:        it.Code,
				Description: it.Description,
				Explanation: it.Explanation,
				Amount:      it.Amount,
				Side:        side,
				Folded:      normalizer.Fold(it.Description),
			})
		}
	}
	add(SideEarning, rec.EarningsItems)
	add(SideDeduction, rec.DeductionItems)
	return docs
}

// Search runs a fuzzy match query over descriptions and explanations.
func (si *SearchIndex) Search(query string, limit int) ([]SearchHit, error) {
	si.indexMu.RLock()
	defer si.indexMu.RUnlock()

	if limit <= 0 {
		limit = 10
	}

	matchQuery := bleve.NewMatchQuery(normalizer.Fold(query))
	matchQuery.SetFuzziness(1)

	searchRequest := bleve.NewSearchRequest(matchQuery)
	searchRequest.Size = limit
	searchRequest.Fields = []string{"*"}

	searchResults, err := si.index.Search(searchRequest)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	return convertHits(searchResults), nil
}

// SearchByCode returns every indexed line carrying an exact payroll code.
func (si *SearchIndex) SearchByCode(code string, limit int) ([]SearchHit, error) {
	si.indexMu.RLock()
	defer si.indexMu.RUnlock()

	if limit <= 0 {
		limit = 100
	}

	termQuery := bleve.NewTermQuery(code)
	termQuery.SetField("code")

	searchRequest := bleve.NewSearchRequest(termQuery)
	searchRequest.Size = limit
	searchRequest.Fields = []string{"*"}

	searchResults, err := si.index.Search(searchRequest)
	if err != nil {
		return nil, fmt.Errorf("code search failed: %w", err)
	}
	return convertHits(searchResults), nil
}

func convertHits(searchResults *bleve.SearchResult) []SearchHit {
	hits := make([]SearchHit, 0, len(searchResults.Hits))
	for _, hit := range searchResults.Hits {
		doc := LineItemDocument{ID: hit.ID}
		doc.Period, _ = hit.Fields["period"].(string)
		doc.Code, _ = hit.Fields["code"].(string)
		doc.Description, _ = hit.Fields["description"].(string)
		doc.Explanation, _ = hit.Fields["explanation"].(string)
		doc.Amount, _ = hit.Fields["amount"].(string)
		doc.Side, _ = hit.Fields["side"].(string)
		doc.Folded, _ = hit.Fields["folded"].(string)
		hits = append(hits, SearchHit{Document: doc, Score: hit.Score})
	}
	return hits
}

func (si *SearchIndex) allIDs() ([]string, error) {
	count, err := si.index.DocCount()
	if err != nil {
		return nil, fmt.Errorf("failed to count documents: %w", err)
	}
	if count == 0 {
		return nil, nil
	}

	searchRequest := bleve.NewSearchRequest(bleve.NewMatchAllQuery())
	searchRequest.Size = int(count)

	searchResults, err := si.index.Search(searchRequest)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	ids := make([]string, 0, len(searchResults.Hits))
	for _, hit := range searchResults.Hits {
		ids = append(ids, hit.ID)
	}
	return ids, nil
}

// DocumentCount returns the number of indexed line items.
func (si *SearchIndex) DocumentCount() (uint64, error) {
	si.indexMu.RLock()
	defer si.indexMu.RUnlock()
	return si.index.DocCount()
}

func (si *SearchIndex) Close() error {
	si.indexMu.Lock()
	defer si.indexMu.Unlock()

	if si.index != nil {
		return si.index.Close()
	}
	return nil
}
