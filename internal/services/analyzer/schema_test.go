package analyzer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSchemaTypesFromJSONLD(t *testing.T) {
	a := analyzePage(t, `<html><head>
		<script type="application/ld+json">
		{"@context":"https://schema.org","@type":"Article","headline":"Post"}
		</script>
	</head><body></body></html>`)

	assert.True(t, a.HasSchemaMarkup)
	assert.Equal(t, []string{"Article"}, a.SchemaTypes)
}

func TestSchemaTypeListFiltered(t *testing.T) {
	a := analyzePage(t, `<html><head>
		<script type="application/ld+json">
		{"@type":["Product","InternalThing"]}
		</script>
	</head><body></body></html>`)

	assert.Equal(t, []string{"Product"}, a.SchemaTypes)
}

func TestSchemaGraphAndArrays(t *testing.T) {
	a := analyzePage(t, `<html><head>
		<script type="application/ld+json">
		{"@context":"https://schema.org","@graph":[{"@type":"Organization"},{"@type":"WebPage"}]}
		</script>
		<script type="application/ld+json">
		[{"@type":"FAQPage"},{"@type":"Recipe"}]
		</script>
	</head><body></body></html>`)

	assert.True(t, a.HasSchemaMarkup)
	assert.Equal(t, []string{"FAQPage", "Organization", "Recipe", "WebPage"}, a.SchemaTypes)
}

func TestSchemaInvalidJSONLDSkipped(t *testing.T) {
	a := analyzePage(t, `<html><head>
		<script type="application/ld+json">{not valid json</script>
	</head><body></body></html>`)

	assert.False(t, a.HasSchemaMarkup)
	assert.Empty(t, a.SchemaTypes)
}

func TestSchemaInvalidBlockDoesNotHideValidOne(t *testing.T) {
	a := analyzePage(t, `<html><head>
		<script type="application/ld+json">{broken</script>
		<script type="application/ld+json">{"@type":"Event"}</script>
	</head><body></body></html>`)

	assert.True(t, a.HasSchemaMarkup)
	assert.Equal(t, []string{"Event"}, a.SchemaTypes)
}

func TestSchemaMicrodataPresence(t *testing.T) {
	a := analyzePage(t, `<html><body>
		<div itemscope itemtype="https://schema.org/Person"><span itemprop="name">Ada</span></div>
	</body></html>`)

	assert.True(t, a.HasSchemaMarkup)
	assert.Empty(t, a.SchemaTypes, "schema types come from JSON-LD only")
}

func TestSchemaRDFaPresence(t *testing.T) {
	a := analyzePage(t, `<html><body>
		<div vocab="https://schema.org/" typeof="Person"><span property="name">Ada</span></div>
	</body></html>`)

	assert.True(t, a.HasSchemaMarkup)
}

func TestOpenGraphDoesNotCountAsSchema(t *testing.T) {
	a := analyzePage(t, `<html><head>
		<meta property="og:title" content="Shared Title">
		<meta property="og:image" content="https://example.com/img.png">
	</head><body></body></html>`)

	assert.False(t, a.HasSchemaMarkup)
	assert.Equal(t, "Shared Title", a.OGData["title"])
	assert.Equal(t, "https://example.com/img.png", a.OGData["image"])
}

func TestSocialMetaKeysAndFiltering(t *testing.T) {
	a := analyzePage(t, `<html><head>
		<meta property="OG:locale" content="en_US">
		<meta property="og:description" content="">
		<meta property="og:">
		<meta name="twitter:card" content="summary_large_image">
		<meta name="twitter:site" content="@example">
	</head><body></body></html>`)

	assert.Equal(t, "en_US", a.OGData["locale"])
	assert.NotContains(t, a.OGData, "description")
	assert.Equal(t, "summary_large_image", a.TwitterData["card"])
	assert.Equal(t, "@example", a.TwitterData["site"])
}

func TestCollectSchemaTypesIgnoresScalars(t *testing.T) {
	types := make(map[string]struct{})
	collectSchemaTypes("just a string", types)
	collectSchemaTypes(42.0, types)
	collectSchemaTypes(map[string]any{"@type": 7.0}, types)

	assert.Empty(t, types)
}
