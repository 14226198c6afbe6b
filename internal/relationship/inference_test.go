package relationship

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bpointel/docintel/internal/domain/entity"
	"github.com/bpointel/docintel/internal/heuristics"
	"github.com/bpointel/docintel/internal/infrastructure/monitoring/logging"
)

func testStore(t *testing.T, relationStrings []string) *heuristics.Store {
	t.Helper()
	dir := t.TempDir()

	files := map[string]interface{}{
		heuristics.FileCompanyAliases: map[string]string{"ibm": "IBM"},
		heuristics.FileCountries:      []string{"Germany"},
		heuristics.FileTechTerms:      []string{"Kubernetes"},
		heuristics.FileIndustries:     []string{"Software"},
		heuristics.FileServices:       []string{"Hosting"},
		heuristics.FileProducts:       map[string][]string{"WebSphere": {}},
		heuristics.FilePartnerships:   []string{"joint venture"},
		heuristics.FileRelationships:  relationStrings,
		heuristics.FileVersion:        map[string]string{"version": "test"},
	}
	for name, content := range files {
		data, err := json.Marshal(content)
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), data, 0644))
	}

	store, err := heuristics.Load(dir)
	require.NoError(t, err)
	return store
}

func newInferencer(t *testing.T, relationStrings []string) *Inferencer {
	t.Helper()
	return NewInferencer(testStore(t, relationStrings), logging.NewNopLogger())
}

func resolved(docID uuid.UUID, start, end int, typ entity.Type, surface, canonical string) entity.Entity {
	return entity.Entity{
		ID:         uuid.New(),
		DocumentID: docID,
		Span:       entity.Span{ChunkSeq: 0, Start: start, End: end},
		SpanHash:   entity.SpanHash(0, start, end, typ),
		Type:       typ,
		Surface:    surface,
		Normalized: entity.Normalized{"canonical": canonical},
		Confidence: 0.9,
	}
}

func relsOfType(rels []*entity.Relationship, typ entity.RelationType) []*entity.Relationship {
	var out []*entity.Relationship
	for _, r := range rels {
		if r.Type == typ {
			out = append(out, r)
		}
	}
	return out
}

func TestInfer_RelationString(t *testing.T) {
	docID := uuid.New()
	inf := newInferencer(t, []string{"WebSphere belongs to IBM"})

	product := resolved(docID, 10, 19, entity.TypeProduct, "WebSphere", "WebSphere")
	company := resolved(docID, 40, 43, entity.TypeCompany, "IBM", "IBM")

	rels := inf.Infer([]entity.Entity{product, company})

	fromString := relsOfType(rels, entity.RelationBelongsTo)
	require.NotEmpty(t, fromString)

	var matched *entity.Relationship
	for _, r := range fromString {
		if r.Evidence.Pattern == "relationship_string" {
			matched = r
		}
	}
	require.NotNil(t, matched)
	assert.Equal(t, product.ID, matched.HeadEntityID)
	assert.Equal(t, company.ID, matched.TailEntityID)
	assert.InDelta(t, 0.85, matched.Confidence, 1e-9)
	assert.Equal(t, 30, matched.Evidence.Distance)
	assert.Equal(t, "WebSphere belongs to IBM", matched.Evidence.Matched)
	assert.Equal(t, "rules", matched.Source)
}

func TestInfer_RelationStringTooFarApart(t *testing.T) {
	docID := uuid.New()
	inf := newInferencer(t, []string{"WebSphere belongs to IBM"})

	product := resolved(docID, 0, 9, entity.TypeProduct, "WebSphere", "WebSphere")
	company := resolved(docID, 700, 703, entity.TypeCompany, "IBM", "IBM")

	rels := inf.Infer([]entity.Entity{product, company})
	for _, r := range rels {
		assert.NotEqual(t, "relationship_string", r.Evidence.Pattern)
	}
}

func TestInfer_TypedProximityRules(t *testing.T) {
	docID := uuid.New()
	inf := newInferencer(t, []string{"WebSphere belongs to IBM"})

	cases := []struct {
		name     string
		head     entity.Entity
		tail     entity.Entity
		relType  entity.RelationType
		conf     float64
	}{
		{
			name:    "product then company",
			head:    resolved(docID, 0, 9, entity.TypeProduct, "WebSphere", "WebSphere"),
			tail:    resolved(docID, 50, 53, entity.TypeCompany, "Acme", "Acme"),
			relType: entity.RelationBelongsTo,
			conf:    0.75,
		},
		{
			name:    "company then product",
			head:    resolved(docID, 0, 4, entity.TypeCompany, "Acme", "Acme"),
			tail:    resolved(docID, 50, 59, entity.TypeProduct, "Gadget", "Gadget"),
			relType: entity.RelationHasProduct,
			conf:    0.75,
		},
		{
			name:    "person then company",
			head:    resolved(docID, 0, 8, entity.TypePerson, "Jane Doe", "Jane Doe"),
			tail:    resolved(docID, 30, 34, entity.TypeCompany, "Acme", "Acme"),
			relType: entity.RelationWorksFor,
			conf:    0.65,
		},
		{
			name:    "company then location",
			head:    resolved(docID, 0, 4, entity.TypeCompany, "Acme", "Acme"),
			tail:    resolved(docID, 20, 27, entity.TypeLocation, "Germany", "Germany"),
			relType: entity.RelationLocatedIn,
			conf:    0.70,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rels := inf.Infer([]entity.Entity{tc.head, tc.tail})
			typed := relsOfType(rels, tc.relType)
			require.Len(t, typed, 1)
			assert.InDelta(t, tc.conf, typed[0].Confidence, 1e-9)
			assert.Equal(t, tc.head.ID, typed[0].HeadEntityID)
			assert.Equal(t, tc.tail.ID, typed[0].TailEntityID)
		})
	}
}

func TestInfer_ReversedPairUsesTypedRule(t *testing.T) {
	// Span order is company-first; the WORKS_FOR rule still applies with
	// the person as head.
	docID := uuid.New()
	inf := newInferencer(t, []string{"WebSphere belongs to IBM"})

	company := resolved(docID, 0, 4, entity.TypeCompany, "Acme", "Acme")
	person := resolved(docID, 20, 28, entity.TypePerson, "Jane Doe", "Jane Doe")

	rels := inf.Infer([]entity.Entity{company, person})
	typed := relsOfType(rels, entity.RelationWorksFor)
	require.Len(t, typed, 1)
	assert.Equal(t, person.ID, typed[0].HeadEntityID)
	assert.Equal(t, company.ID, typed[0].TailEntityID)
}

func TestInfer_FallbackRelatedTo(t *testing.T) {
	docID := uuid.New()
	inf := newInferencer(t, []string{"WebSphere belongs to IBM"})

	a := resolved(docID, 0, 10, entity.TypeTechnology, "Kubernetes", "Kubernetes")
	b := resolved(docID, 40, 47, entity.TypeLocation, "Germany", "Germany")

	rels := inf.Infer([]entity.Entity{a, b})
	related := relsOfType(rels, entity.RelationRelatedTo)
	require.Len(t, related, 1)
	assert.InDelta(t, 0.60, related[0].Confidence, 1e-9)
}

func TestInfer_NonLinkableTypesSkipped(t *testing.T) {
	docID := uuid.New()
	inf := newInferencer(t, []string{"WebSphere belongs to IBM"})

	a := resolved(docID, 0, 3, entity.TypeMoney, "$5M", "$5M")
	b := resolved(docID, 10, 13, entity.TypePercent, "12%", "12%")

	assert.Empty(t, inf.Infer([]entity.Entity{a, b}))
}

func TestInfer_ProximityTooFarApart(t *testing.T) {
	docID := uuid.New()
	inf := newInferencer(t, []string{"WebSphere belongs to IBM"})

	a := resolved(docID, 0, 8, entity.TypePerson, "Jane Doe", "Jane Doe")
	b := resolved(docID, 400, 404, entity.TypeCompany, "Acme", "Acme")

	assert.Empty(t, inf.Infer([]entity.Entity{a, b}))
}

func TestInfer_FewerThanTwoEntities(t *testing.T) {
	inf := newInferencer(t, []string{"WebSphere belongs to IBM"})
	assert.Empty(t, inf.Infer(nil))
	assert.Empty(t, inf.Infer([]entity.Entity{
		resolved(uuid.New(), 0, 4, entity.TypeCompany, "Acme", "Acme"),
	}))
}
