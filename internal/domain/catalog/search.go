package catalog

import (
	"fmt"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/simple"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/google/uuid"

	"github.com/construlink/obra-tracker/internal/domain/import/record"
	"github.com/construlink/obra-tracker/pkg/normtext"
)

// optionDocument is the indexed shape of a catalog option.
type optionDocument struct {
	ID    string `json:"id"`
	Field string `json:"field"`
	Name  string `json:"name"`
	Canon string `json:"canon"`
}

// SearchIndex backs the resolver UI's free selector: operators type a few
// characters and get ranked catalog options for one identifier field.
// In-memory only; rebuilt whenever the catalog refreshes.
type SearchIndex struct {
	index bleve.Index
	mu    sync.RWMutex
}

// NewSearchIndex creates an empty in-memory index.
func NewSearchIndex() (*SearchIndex, error) {
	index, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("create catalog search index: %w", err)
	}
	return &SearchIndex{index: index}, nil
}

func buildIndexMapping() mapping.IndexMapping {
	textFieldMapping := bleve.NewTextFieldMapping()
	textFieldMapping.Analyzer = simple.Name

	keywordFieldMapping := bleve.NewTextFieldMapping()
	keywordFieldMapping.Analyzer = keyword.Name

	docMapping := bleve.NewDocumentMapping()
	docMapping.AddFieldMappingsAt("field", keywordFieldMapping)
	docMapping.AddFieldMappingsAt("name", textFieldMapping)
	docMapping.AddFieldMappingsAt("canon", textFieldMapping)

	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultMapping = docMapping
	indexMapping.DefaultAnalyzer = simple.Name
	return indexMapping
}

// Rebuild replaces the index contents with the catalog's current options.
func (si *SearchIndex) Rebuild(c *Catalog) error {
	si.mu.Lock()
	defer si.mu.Unlock()

	newIndex, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return fmt.Errorf("rebuild catalog search index: %w", err)
	}

	batch := newIndex.NewBatch()
	for _, f := range record.IdentifierFields() {
		for _, opt := range c.Options(f) {
			doc := optionDocument{
				ID:    opt.ID.String(),
				Field: string(f),
				Name:  opt.Name,
				Canon: normtext.Canonicalize(opt.Name),
			}
			if err := batch.Index(string(f)+"/"+doc.ID, doc); err != nil {
				return err
			}
		}
	}
	if err := newIndex.Batch(batch); err != nil {
		return err
	}

	old := si.index
	si.index = newIndex
	if old != nil {
		_ = old.Close()
	}
	return nil
}

// Search returns up to limit options of one field ranked by relevance.
// An empty query matches every option of the field.
func (si *SearchIndex) Search(f record.Field, query string, limit int) ([]Option, error) {
	si.mu.RLock()
	defer si.mu.RUnlock()

	if limit <= 0 {
		limit = 20
	}

	fieldQuery := bleve.NewTermQuery(string(f))
	fieldQuery.SetField("field")

	var q = bleve.NewConjunctionQuery(fieldQuery)
	if canon := normtext.Canonicalize(query); canon != "" {
		nameQuery := bleve.NewMatchQuery(canon)
		nameQuery.SetField("canon")
		nameQuery.SetFuzziness(1)

		prefixQuery := bleve.NewPrefixQuery(canon)
		prefixQuery.SetField("canon")

		q = bleve.NewConjunctionQuery(fieldQuery, bleve.NewDisjunctionQuery(nameQuery, prefixQuery))
	}

	req := bleve.NewSearchRequestOptions(q, limit, 0, false)
	req.Fields = []string{"id", "name"}

	res, err := si.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("catalog search: %w", err)
	}

	opts := make([]Option, 0, len(res.Hits))
	for _, hit := range res.Hits {
		idStr, _ := hit.Fields["id"].(string)
		name, _ := hit.Fields["name"].(string)
		id, err := uuid.Parse(idStr)
		if err != nil {
			continue
		}
		opts = append(opts, Option{ID: id, Name: name})
	}
	return opts, nil
}

// Close releases the index.
func (si *SearchIndex) Close() error {
	si.mu.Lock()
	defer si.mu.Unlock()
	if si.index == nil {
		return nil
	}
	err := si.index.Close()
	si.index = nil
	return err
}
