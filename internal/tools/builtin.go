package tools

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"time"
	"unicode"
)

// Registered pairs a descriptor with the local handler that serves it.
type Registered struct {
	Descriptor Descriptor
	Handler    Handler
}

// Catalog is the set of tools this gateway can execute locally. Requests
// reference catalog tools by name; a requested tool with no catalog entry
// simply gets no handler, and the executor reports it back to the model as
// unhandled.
type Catalog map[string]Registered

// Register adds a tool to the catalog, replacing any entry with the same name.
func (c Catalog) Register(desc Descriptor, handler Handler) {
	c[desc.Name] = Registered{Descriptor: desc, Handler: handler}
}

// Descriptors returns the catalog's descriptors sorted by name.
func (c Catalog) Descriptors() []Descriptor {
	descs := make([]Descriptor, 0, len(c))
	for _, entry := range c {
		descs = append(descs, entry.Descriptor)
	}
	sort.Slice(descs, func(i, j int) bool { return descs[i].Name < descs[j].Name })
	return descs
}

// Handlers builds the per-request handler map for the requested descriptors.
// Each handler validates arguments against the schema the request declared,
// the same schema the model saw.
func (c Catalog) Handlers(descs []Descriptor) map[string]Handler {
	handlers := make(map[string]Handler, len(descs))
	for _, d := range descs {
		entry, ok := c[d.Name]
		if !ok {
			continue
		}
		handlers[d.Name] = WithValidation(d, entry.Handler)
	}
	return handlers
}

// Builtin returns the resume-domain tool catalog the gateway executes
// locally on the model's behalf.
func Builtin() Catalog {
	c := Catalog{}
	c.Register(Descriptor{
		Name:        "extract_keywords",
		Description: "Extract the most frequent meaningful keywords from a block of text, such as a resume or a job description.",
		InputSchema: SchemaFor(&extractKeywordsArgs{}),
	}, extractKeywords)
	c.Register(Descriptor{
		Name:        "match_score",
		Description: "Score how well a resume covers the keywords of a job description, from 0 to 100, with the matched and missing terms.",
		InputSchema: SchemaFor(&matchScoreArgs{}),
	}, matchScore)
	c.Register(Descriptor{
		Name:        "current_date",
		Description: "Get the current date in YYYY-MM-DD format. Useful for date calculations on employment history.",
		InputSchema: SchemaFor(&currentDateArgs{}),
	}, currentDate)
	return c
}

type extractKeywordsArgs struct {
	Text        string `json:"text" jsonschema:"description=Text to extract keywords from"`
	MaxKeywords int    `json:"max_keywords,omitempty" jsonschema:"description=Maximum number of keywords to return (default 10)"`
}

func extractKeywords(ctx context.Context, args map[string]any) (any, error) {
	var in extractKeywordsArgs
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}
	limit := in.MaxKeywords
	if limit <= 0 {
		limit = 10
	}

	counts := map[string]int{}
	for _, word := range tokenize(in.Text) {
		counts[word]++
	}

	keywords := make([]string, 0, len(counts))
	for word := range counts {
		keywords = append(keywords, word)
	}
	// Most frequent first; ties resolve alphabetically for stable output
	sort.Slice(keywords, func(i, j int) bool {
		if counts[keywords[i]] != counts[keywords[j]] {
			return counts[keywords[i]] > counts[keywords[j]]
		}
		return keywords[i] < keywords[j]
	})
	if len(keywords) > limit {
		keywords = keywords[:limit]
	}

	return map[string]any{"keywords": keywords}, nil
}

type matchScoreArgs struct {
	ResumeText string `json:"resume_text" jsonschema:"description=Full text of the resume"`
	JobText    string `json:"job_text" jsonschema:"description=Full text of the job description"`
}

func matchScore(ctx context.Context, args map[string]any) (any, error) {
	var in matchScoreArgs
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}

	resumeWords := map[string]bool{}
	for _, word := range tokenize(in.ResumeText) {
		resumeWords[word] = true
	}

	jobWords := map[string]bool{}
	for _, word := range tokenize(in.JobText) {
		jobWords[word] = true
	}

	matched := make([]string, 0, len(jobWords))
	missing := make([]string, 0, len(jobWords))
	for word := range jobWords {
		if resumeWords[word] {
			matched = append(matched, word)
		} else {
			missing = append(missing, word)
		}
	}
	sort.Strings(matched)
	sort.Strings(missing)

	score := 0
	if len(jobWords) > 0 {
		score = (100 * len(matched)) / len(jobWords)
	}

	return map[string]any{
		"score":   score,
		"matched": matched,
		"missing": missing,
	}, nil
}

type currentDateArgs struct{}

func currentDate(ctx context.Context, args map[string]any) (any, error) {
	return map[string]any{"date": time.Now().UTC().Format("2006-01-02")}, nil
}

func decodeArgs(args map[string]any, v any) error {
	data, err := json.Marshal(args)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// stopwords excluded from keyword extraction and match scoring
var stopwords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true,
	"be": true, "but": true, "by": true, "for": true, "from": true, "has": true,
	"have": true, "in": true, "is": true, "it": true, "its": true, "of": true,
	"on": true, "or": true, "our": true, "that": true, "the": true, "their": true,
	"this": true, "to": true, "was": true, "we": true, "were": true, "will": true,
	"with": true, "you": true, "your": true,
}

func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '+' && r != '#'
	})
	words := make([]string, 0, len(fields))
	for _, f := range fields {
		if stopwords[f] {
			continue
		}
		words = append(words, f)
	}
	return words
}
