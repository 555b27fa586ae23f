package analyzer

// stopWords is the fixed English stop-word list applied during keyword
// extraction. Tokens on this list never become keywords.
var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "and": {}, "or": {}, "but": {}, "in": {},
	"on": {}, "at": {}, "to": {}, "for": {}, "of": {}, "with": {}, "by": {},
	"from": {}, "up": {}, "about": {}, "into": {}, "through": {}, "during": {},
	"is": {}, "are": {}, "was": {}, "were": {}, "be": {}, "been": {},
	"being": {}, "have": {}, "has": {}, "had": {}, "do": {}, "does": {},
	"did": {}, "will": {}, "would": {}, "could": {}, "should": {}, "may": {},
	"might": {}, "shall": {}, "can": {}, "need": {}, "dare": {}, "ought": {},
	"used": {}, "it": {}, "its": {}, "this": {}, "that": {}, "these": {},
	"those": {}, "i": {}, "me": {}, "my": {}, "we": {}, "our": {}, "you": {},
	"your": {}, "he": {}, "his": {}, "she": {}, "her": {}, "they": {},
	"their": {}, "what": {}, "which": {}, "who": {}, "when": {}, "where": {},
	"why": {}, "how": {}, "all": {}, "each": {}, "every": {}, "both": {},
	"few": {}, "more": {}, "most": {}, "other": {}, "some": {}, "such": {},
	"no": {}, "not": {}, "only": {}, "same": {}, "so": {}, "than": {},
	"too": {}, "very": {}, "just": {}, "also": {}, "as": {}, "if": {},
	"then": {},
}

func isStopWord(token string) bool {
	_, ok := stopWords[token]
	return ok
}

// seoSchemaTypes is the set of schema.org types worth surfacing. JSON-LD
// types outside this set are ignored.
var seoSchemaTypes = map[string]struct{}{
	"Article": {}, "NewsArticle": {}, "BlogPosting": {}, "WebPage": {},
	"Product": {}, "LocalBusiness": {}, "Organization": {}, "Person": {},
	"Event": {}, "FAQPage": {}, "HowTo": {}, "Review": {},
	"AggregateRating": {}, "BreadcrumbList": {}, "Recipe": {},
	"VideoObject": {}, "ImageObject": {}, "SoftwareApplication": {},
	"Course": {},
}
