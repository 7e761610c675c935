package providers

import (
	"context"
	"hash/fnv"
	"regexp"
	"strings"
	"sync"

	"github.com/goliatone/go-locsync/internal/textutil"
	"github.com/goliatone/go-locsync/pkg/interfaces"
)

var promptText = regexp.MustCompile(`(?s)^Translate '(.*)' from ([a-z-]+) to ([a-z-]+) with`)

// StaticGenerator answers from a fixed table keyed by "<lang>:<text>" and
// otherwise echoes the source text tagged with the target language. It backs
// offline runs and tests.
type StaticGenerator struct {
	mu        sync.RWMutex
	responses map[string]string
}

// NewStaticGenerator constructs a static generator with optional canned responses.
func NewStaticGenerator(responses map[string]string) *StaticGenerator {
	table := make(map[string]string, len(responses))
	for key, value := range responses {
		table[key] = value
	}
	return &StaticGenerator{responses: table}
}

func (g *StaticGenerator) Name() string {
	return "static"
}

// Set registers a canned translation.
func (g *StaticGenerator) Set(lang, text, translation string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.responses[lang+":"+text] = translation
}

func (g *StaticGenerator) Generate(_ context.Context, req interfaces.GenerateRequest) (string, error) {
	match := promptText.FindStringSubmatch(req.Prompt)
	if match == nil {
		return req.Prompt, nil
	}
	text, target := match[1], match[3]
	g.mu.RLock()
	answer, ok := g.responses[target+":"+text]
	g.mu.RUnlock()
	if ok {
		return answer, nil
	}
	return "[" + target + "] " + text, nil
}

// HashEmbedder produces deterministic bag-of-words vectors by hashing
// normalized tokens into a fixed number of buckets.
type HashEmbedder struct {
	dimension int
}

// NewHashEmbedder constructs a hashing embedder with the given dimension.
func NewHashEmbedder(dimension int) *HashEmbedder {
	if dimension <= 0 {
		dimension = 384
	}
	return &HashEmbedder{dimension: dimension}
}

func (e *HashEmbedder) Name() string {
	return "hash"
}

func (e *HashEmbedder) Dimension() int {
	return e.dimension
}

func (e *HashEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vector := make([]float32, e.dimension)
		normalized := textutil.NormalizeText(text, textutil.NormalizeOptions{RemoveAccents: true, Lowercase: true})
		for _, token := range strings.Fields(normalized) {
			h := fnv.New32a()
			_, _ = h.Write([]byte(token))
			vector[int(h.Sum32()%uint32(e.dimension))]++
		}
		out[i] = vector
	}
	return out, nil
}
