package heuristics

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bpointel/docintel/pkg/errors"
)

// writeFixture materialises a minimal valid heuristics directory.  Individual
// tests overwrite or remove files to exercise failure paths.
func writeFixture(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	files := map[string]interface{}{
		FileCompanyAliases: map[string]string{
			"ibm":      "IBM",
			"ibm corp": "IBM",
			"acme":     "Acme Corp",
		},
		FileCountries:  []string{"Germany", "United States"},
		FileTechTerms:  []string{"Kubernetes", "machine learning"},
		FileIndustries: []string{"Financial Services"},
		FileServices:   []string{"Customer Experience (CX) Operations"},
		FileProducts: map[string][]string{
			"WebSphere": {"websphere application server", "was"},
		},
		FilePartnerships:  []string{"strategic partnership"},
		FileRelationships: []string{"WebSphere belongs to IBM"},
		FileVersion:       map[string]string{"version": "2026-08-01"},
	}
	for name, content := range files {
		writeJSON(t, dir, name, content)
	}
	return dir
}

func writeJSON(t *testing.T, dir, name string, content interface{}) {
	t.Helper()
	data, err := json.Marshal(content)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), data, 0644))
}

func TestLoad_Valid(t *testing.T) {
	dir := writeFixture(t)
	s, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "2026-08-01", s.Version())
}

func TestLoad_MissingRequiredFileIsFatal(t *testing.T) {
	dir := writeFixture(t)
	require.NoError(t, os.Remove(filepath.Join(dir, FileCountries)))

	_, err := Load(dir)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeHeuristicsFileMissing))
}

func TestLoad_MalformedRequiredFileIsFatal(t *testing.T) {
	dir := writeFixture(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileTechTerms), []byte("{not json"), 0644))

	_, err := Load(dir)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeHeuristicsFileInvalid))
}

func TestLoad_MissingVersionFieldIsFatal(t *testing.T) {
	dir := writeFixture(t)
	writeJSON(t, dir, FileVersion, map[string]string{})

	_, err := Load(dir)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeHeuristicsVersion))
}

func TestLoad_MalformedRelationStringIsFatal(t *testing.T) {
	dir := writeFixture(t)
	writeJSON(t, dir, FileRelationships, []string{"no relation phrase here"})

	_, err := Load(dir)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeHeuristicsFileInvalid))
}

func TestCanonicalCompany(t *testing.T) {
	s, err := Load(writeFixture(t))
	require.NoError(t, err)

	c, ok := s.CanonicalCompany("IBM Corp")
	require.True(t, ok)
	assert.Equal(t, "IBM", c)

	// Case-insensitive with whitespace trim.
	c, ok = s.CanonicalCompany("  ibm  ")
	require.True(t, ok)
	assert.Equal(t, "IBM", c)

	_, ok = s.CanonicalCompany("Unknown Inc")
	assert.False(t, ok)
}

func TestCanonicalProduct(t *testing.T) {
	s, err := Load(writeFixture(t))
	require.NoError(t, err)

	c, isAlias, ok := s.CanonicalProduct("WebSphere")
	require.True(t, ok)
	assert.Equal(t, "WebSphere", c)
	assert.False(t, isAlias)

	c, isAlias, ok = s.CanonicalProduct("WAS")
	require.True(t, ok)
	assert.Equal(t, "WebSphere", c)
	assert.True(t, isAlias)
}

func TestLists_SortedLongestFirst(t *testing.T) {
	s, err := Load(writeFixture(t))
	require.NoError(t, err)

	for _, list := range s.Lists() {
		for i := 1; i < len(list.Terms); i++ {
			assert.GreaterOrEqual(t,
				len(list.Terms[i-1].Surface), len(list.Terms[i].Surface),
				"list %s must be sorted longest-surface-first", list.Name)
		}
	}
}

func TestRelationStrings_Parsed(t *testing.T) {
	s, err := Load(writeFixture(t))
	require.NoError(t, err)

	rels := s.RelationStrings()
	require.Len(t, rels, 1)
	assert.Equal(t, "WebSphere", rels[0].Head)
	assert.Equal(t, "IBM", rels[0].Tail)
}

func TestOptionalLists_AbsentByDefault(t *testing.T) {
	s, err := Load(writeFixture(t))
	require.NoError(t, err)

	for _, list := range s.Lists() {
		assert.NotEqual(t, ListBusinessTitle, list.Name)
	}
	assert.Nil(t, s.ContentTypeRules())
}

func TestOptionalLists_LoadedWhenPresent(t *testing.T) {
	dir := writeFixture(t)
	writeJSON(t, dir, FileBusinessTitles, []string{"Chief Technology Officer"})
	writeJSON(t, dir, FileContentTypes, map[string]ContentTypeRule{
		"case_study": {
			BodyPatterns: []string{"customer story"},
			Signals:      []string{"metrics"},
			MinScore:     2,
			ReviewBelow:  3,
		},
	})

	s, err := Load(dir)
	require.NoError(t, err)

	var foundTitles bool
	for _, list := range s.Lists() {
		if list.Name == ListBusinessTitle {
			foundTitles = true
			require.Len(t, list.Terms, 1)
			assert.Equal(t, "chief technology officer", list.Terms[0].Surface)
		}
	}
	assert.True(t, foundTitles)

	rules := s.ContentTypeRules()
	require.Len(t, rules, 1)
	assert.Equal(t, "case_study", rules[0].Label)
}
