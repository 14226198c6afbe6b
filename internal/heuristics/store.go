// Package heuristics loads the curated reference data (alias maps, country
// list, taxonomies, products, relationship strings) into fast lookup
// structures.  The Store is immutable after Load and safely shared
// read-concurrently across all pipeline workers without locking; mutation
// happens out-of-band via a separate curation process and requires a restart.
package heuristics

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bpointel/docintel/pkg/errors"
)

// Reference file names within the heuristics directory.  Every file listed in
// requiredFiles must be present and well-formed at startup; a missing or
// malformed required file is fatal because no tier can safely run without the
// reference data.  Optional files merely disable their feature when absent.
const (
	FileCompanyAliases = "company_aliases_clean.json"
	FileCountries      = "countries.json"
	FileTechTerms      = "tech_terms.json"
	FileIndustries     = "taxonomy_industries.json"
	FileServices       = "taxonomy_services.json"
	FileProducts       = "products.json"
	FilePartnerships   = "partnerships.json"
	FileRelationships  = "ner_relationships.json"
	FileVersion        = "version.json"

	FileContentTypes        = "content_types.json"
	FileBusinessTitles      = "business_titles.json"
	FileSkills              = "skills.json"
	FileTimeRanges          = "time_ranges.json"
	FileTemporalDescriptors = "temporal_descriptors.json"
)

var requiredFiles = []string{
	FileCompanyAliases,
	FileCountries,
	FileTechTerms,
	FileIndustries,
	FileServices,
	FileProducts,
	FilePartnerships,
	FileRelationships,
	FileVersion,
}

// ─────────────────────────────────────────────────────────────────────────────
// Term lists
// ─────────────────────────────────────────────────────────────────────────────

// ListName identifies one curated source list.  The heuristic matcher's
// longest-match-wins rule applies within a single list; candidates from
// different lists may legitimately overlap in span.
type ListName string

const (
	ListCompanyAlias       ListName = "company_alias"
	ListCountry            ListName = "country"
	ListTechTerm           ListName = "tech_term"
	ListIndustry           ListName = "industry"
	ListService            ListName = "service"
	ListProduct            ListName = "product"
	ListPartnership        ListName = "partnership"
	ListBusinessTitle      ListName = "business_title"
	ListSkill              ListName = "skill"
	ListTimeRange          ListName = "time_range"
	ListTemporalDescriptor ListName = "temporal_descriptor"
)

// Term is one curated entry: the lowercased surface to match and the
// canonical form it resolves to.  IsAlias distinguishes a product alias from
// a canonical product name (they carry different confidences).
type Term struct {
	Surface   string
	Canonical string
	IsAlias   bool
}

// TermList is one source list's entries, sorted by surface length descending
// so a scanning matcher naturally prefers the longest match.
type TermList struct {
	Name  ListName
	Terms []Term
}

// RelationString is a curated "X belongs to Y" assertion parsed from
// ner_relationships.json.
type RelationString struct {
	Head string // e.g. "WebSphere"
	Tail string // e.g. "IBM"
	Raw  string
}

// ContentTypeRule is one label's scoring rule from the optional
// content_types.json; consumed by internal/classify.
type ContentTypeRule struct {
	Label         string   `json:"label"`
	URLPatterns   []string `json:"url_patterns"`
	TitlePatterns []string `json:"title_patterns"`
	BodyPatterns  []string `json:"body_patterns"`
	Signals       []string `json:"signals"`
	MinScore      float64  `json:"min_score"`
	ReviewBelow   float64  `json:"review_below"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Store
// ─────────────────────────────────────────────────────────────────────────────

// Store is the loaded reference data.  All maps are keyed by lowercased
// surface form; all slices are sorted longest-surface-first.
type Store struct {
	version string

	companyAliases map[string]string
	products       map[string]productEntry

	lists []TermList

	relationStrings  []RelationString
	contentTypeRules []ContentTypeRule
}

type productEntry struct {
	canonical string
	isAlias   bool
}

// Version returns the reference-data version stamp recorded on every entity.
func (s *Store) Version() string { return s.version }

// Lists returns every loaded term list in a stable order.  Optional lists
// whose files were absent are omitted.
func (s *Store) Lists() []TermList { return s.lists }

// CanonicalCompany resolves a company surface form through the alias table.
func (s *Store) CanonicalCompany(surface string) (string, bool) {
	c, ok := s.companyAliases[strings.ToLower(strings.TrimSpace(surface))]
	return c, ok
}

// CanonicalProduct resolves a product surface form; isAlias reports whether
// the match came through an alias rather than the canonical name.
func (s *Store) CanonicalProduct(surface string) (canonical string, isAlias, ok bool) {
	e, ok := s.products[strings.ToLower(strings.TrimSpace(surface))]
	if !ok {
		return "", false, false
	}
	return e.canonical, e.isAlias, true
}

// RelationStrings returns the curated relationship assertions.
func (s *Store) RelationStrings() []RelationString { return s.relationStrings }

// ContentTypeRules returns the classifier rules, nil when content_types.json
// was absent (classifier disabled, non-fatal).
func (s *Store) ContentTypeRules() []ContentTypeRule { return s.contentTypeRules }

// ─────────────────────────────────────────────────────────────────────────────
// Loading
// ─────────────────────────────────────────────────────────────────────────────

// Load reads every reference file under dir and builds the Store.  A missing
// or malformed required file returns a fatal error; optional files are
// skipped silently when absent.
func Load(dir string) (*Store, error) {
	for _, name := range requiredFiles {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			return nil, errors.New(errors.ErrCodeHeuristicsFileMissing,
				fmt.Sprintf("required heuristics file %s is missing in %s", name, dir))
		}
	}

	s := &Store{
		companyAliases: make(map[string]string),
		products:       make(map[string]productEntry),
	}

	// version.json: {"version": "..."}
	var ver struct {
		Version string `json:"version"`
	}
	if err := readJSON(dir, FileVersion, &ver); err != nil {
		return nil, err
	}
	if ver.Version == "" {
		return nil, errors.New(errors.ErrCodeHeuristicsVersion,
			fmt.Sprintf("%s has no version field", FileVersion))
	}
	s.version = ver.Version

	// company_aliases_clean.json: {"ibm corp": "IBM", ...}
	var aliases map[string]string
	if err := readJSON(dir, FileCompanyAliases, &aliases); err != nil {
		return nil, err
	}
	companyTerms := make([]Term, 0, len(aliases))
	for alias, canonical := range aliases {
		lower := strings.ToLower(strings.TrimSpace(alias))
		if lower == "" || canonical == "" {
			continue
		}
		s.companyAliases[lower] = canonical
		companyTerms = append(companyTerms, Term{Surface: lower, Canonical: canonical})
	}
	s.appendList(ListCompanyAlias, companyTerms)

	// Plain string lists.
	for _, spec := range []struct {
		file     string
		name     ListName
		required bool
	}{
		{FileCountries, ListCountry, true},
		{FileTechTerms, ListTechTerm, true},
		{FileIndustries, ListIndustry, true},
		{FileServices, ListService, true},
		{FilePartnerships, ListPartnership, true},
		{FileBusinessTitles, ListBusinessTitle, false},
		{FileSkills, ListSkill, false},
		{FileTimeRanges, ListTimeRange, false},
		{FileTemporalDescriptors, ListTemporalDescriptor, false},
	} {
		terms, err := loadStringList(dir, spec.file, spec.required)
		if err != nil {
			return nil, err
		}
		if terms != nil {
			s.appendList(spec.name, terms)
		}
	}

	// products.json: {"WebSphere": ["websphere application server", "was"], ...}
	var products map[string][]string
	if err := readJSON(dir, FileProducts, &products); err != nil {
		return nil, err
	}
	productTerms := make([]Term, 0, len(products))
	for canonical, productAliases := range products {
		lower := strings.ToLower(strings.TrimSpace(canonical))
		if lower == "" {
			continue
		}
		s.products[lower] = productEntry{canonical: canonical}
		productTerms = append(productTerms, Term{Surface: lower, Canonical: canonical})
		for _, a := range productAliases {
			al := strings.ToLower(strings.TrimSpace(a))
			if al == "" || al == lower {
				continue
			}
			s.products[al] = productEntry{canonical: canonical, isAlias: true}
			productTerms = append(productTerms, Term{Surface: al, Canonical: canonical, IsAlias: true})
		}
	}
	s.appendList(ListProduct, productTerms)

	// ner_relationships.json: ["WebSphere belongs to IBM", ...]
	var rawRelations []string
	if err := readJSON(dir, FileRelationships, &rawRelations); err != nil {
		return nil, err
	}
	for _, raw := range rawRelations {
		head, tail, ok := splitBelongsTo(raw)
		if !ok {
			return nil, errors.New(errors.ErrCodeHeuristicsFileInvalid,
				fmt.Sprintf("%s: entry %q is not of the form \"X belongs to Y\"", FileRelationships, raw))
		}
		s.relationStrings = append(s.relationStrings, RelationString{Head: head, Tail: tail, Raw: raw})
	}

	// content_types.json (optional): {"case_study": {rule...}, ...}
	ctPath := filepath.Join(dir, FileContentTypes)
	if _, err := os.Stat(ctPath); err == nil {
		var rules map[string]ContentTypeRule
		if err := readJSON(dir, FileContentTypes, &rules); err != nil {
			return nil, err
		}
		labels := make([]string, 0, len(rules))
		for label := range rules {
			labels = append(labels, label)
		}
		sort.Strings(labels)
		for _, label := range labels {
			r := rules[label]
			r.Label = label
			s.contentTypeRules = append(s.contentTypeRules, r)
		}
	}

	return s, nil
}

// appendList sorts terms longest-surface-first and records the list.
func (s *Store) appendList(name ListName, terms []Term) {
	sort.Slice(terms, func(i, j int) bool {
		if len(terms[i].Surface) != len(terms[j].Surface) {
			return len(terms[i].Surface) > len(terms[j].Surface)
		}
		return terms[i].Surface < terms[j].Surface
	})
	s.lists = append(s.lists, TermList{Name: name, Terms: terms})
}

func loadStringList(dir, file string, required bool) ([]Term, error) {
	if !required {
		if _, err := os.Stat(filepath.Join(dir, file)); err != nil {
			return nil, nil
		}
	}
	var raw []string
	if err := readJSON(dir, file, &raw); err != nil {
		return nil, err
	}
	terms := make([]Term, 0, len(raw))
	for _, entry := range raw {
		lower := strings.ToLower(strings.TrimSpace(entry))
		if lower == "" {
			continue
		}
		terms = append(terms, Term{Surface: lower, Canonical: entry})
	}
	return terms, nil
}

func readJSON(dir, file string, out interface{}) error {
	data, err := os.ReadFile(filepath.Join(dir, file))
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeHeuristicsFileMissing,
			fmt.Sprintf("failed to read heuristics file %s", file))
	}
	if err := json.Unmarshal(data, out); err != nil {
		return errors.Wrap(err, errors.ErrCodeHeuristicsFileInvalid,
			fmt.Sprintf("heuristics file %s is malformed", file))
	}
	return nil
}

// splitBelongsTo parses "X belongs to Y" case-insensitively.
func splitBelongsTo(raw string) (head, tail string, ok bool) {
	lower := strings.ToLower(raw)
	idx := strings.Index(lower, " belongs to ")
	if idx <= 0 {
		return "", "", false
	}
	head = strings.TrimSpace(raw[:idx])
	tail = strings.TrimSpace(raw[idx+len(" belongs to "):])
	if head == "" || tail == "" {
		return "", "", false
	}
	return head, tail, true
}
