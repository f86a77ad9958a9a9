package forensics

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/net/html"

	"github.com/verilayer/lavs/internal/domain"
	"github.com/verilayer/lavs/internal/lookup"
)

// WebProducer fills the URL pattern integrity layer. It fetches the page and
// scores template and linguistic uniformity: machine-generated sites repeat
// the same DOM blocks, pace their sentences evenly, and lean on a narrow
// vocabulary. Transport signals (redirect chains, expiring TLS) add a small
// contribution.
type WebProducer struct {
	fetcher *lookup.Fetcher
}

func NewWebProducer(fetcher *lookup.Fetcher) *WebProducer {
	return &WebProducer{fetcher: fetcher}
}

func (p *WebProducer) Layer() string { return domain.LayerPatternURL }

const (
	webWeightDOM       = 0.30
	webWeightSentences = 0.25
	webWeightVocab     = 0.20
	webWeightGenerator = 0.15
	webWeightTransport = 0.10
)

func (p *WebProducer) Analyze(ctx context.Context, art *domain.Artifact) domain.LayerEvidence {
	if p.fetcher == nil {
		return domain.Unavailable(p.Layer(), "page fetcher not configured")
	}

	page, err := p.fetcher.Fetch(ctx, art.URL)
	if err != nil {
		return domain.Unavailable(p.Layer(), fmt.Sprintf("failed to fetch page: %v", err))
	}
	if page.StatusCode >= 400 {
		return domain.Unavailable(p.Layer(), fmt.Sprintf("page returned status %d", page.StatusCode))
	}

	doc, err := html.Parse(bytes.NewReader(page.Body))
	if err != nil {
		return domain.Unavailable(p.Layer(), fmt.Sprintf("failed to parse HTML: %v", err))
	}

	text, tags, generator := walkPage(doc)

	var ws weightedSum

	repetition := tagRepetition(tags)
	ws.add(webWeightDOM, domRisk(repetition),
		fmt.Sprintf("DOM block repetition: %.3f", repetition),
		"Highly repetitive page structure (template-generated content).")

	sentSpread := sentenceLengthSpread(text)
	ws.add(webWeightSentences, sentenceRisk(sentSpread),
		fmt.Sprintf("Sentence length spread: %.2f", sentSpread),
		"Unnaturally even sentence pacing (possible generated prose).")

	topRatio := topWordRatio(text)
	ws.add(webWeightVocab, vocabRisk(topRatio),
		fmt.Sprintf("Top content-word ratio: %.3f", topRatio),
		"Narrow vocabulary with heavy word reuse.")

	ws.add(webWeightGenerator, generatorRisk(generator),
		fmt.Sprintf("Generator meta: %s", orNone(generator)),
		"Page declares an AI content generator.")

	ws.add(webWeightTransport, transportRisk(page),
		fmt.Sprintf("Redirects: %d, TLS days left: %d", page.Redirects, page.TLSDaysLeft),
		"Suspicious transport profile (long redirect chain or expiring TLS).")

	return domain.LayerEvidence{
		Layer:     p.Layer(),
		Score:     ws.total(),
		Details:   ws.details,
		Available: true,
	}
}

// walkPage collects visible text, structural tag sequence, and the content of
// any generator meta tag.
func walkPage(doc *html.Node) (text string, tags []string, generator string) {
	var sb strings.Builder
	var walk func(*html.Node, bool)
	walk = func(n *html.Node, skip bool) {
		switch n.Type {
		case html.ElementNode:
			name := n.Data
			switch name {
			case "script", "style", "noscript":
				skip = true
			case "meta":
				if metaName(n) == "generator" {
					generator = metaContent(n)
				}
			}
			tags = append(tags, name)
		case html.TextNode:
			if !skip {
				sb.WriteString(n.Data)
				sb.WriteString(" ")
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c, skip)
		}
	}
	walk(doc, false)
	return sb.String(), tags, generator
}

func metaName(n *html.Node) string {
	for _, a := range n.Attr {
		if a.Key == "name" {
			return strings.ToLower(a.Val)
		}
	}
	return ""
}

func metaContent(n *html.Node) string {
	for _, a := range n.Attr {
		if a.Key == "content" {
			return a.Val
		}
	}
	return ""
}

// tagRepetition measures how much of the tag stream is consumed by its single
// most common trigram. Templated listings repeat one block shape over and
// over.
func tagRepetition(tags []string) float64 {
	if len(tags) < 10 {
		return 0
	}
	counts := make(map[string]int)
	for i := 0; i+3 <= len(tags); i++ {
		counts[strings.Join(tags[i:i+3], ">")]++
	}
	max := 0
	for _, c := range counts {
		if c > max {
			max = c
		}
	}
	return float64(max) / float64(len(tags)-2)
}

// sentenceLengthSpread returns the stddev of word counts per sentence.
func sentenceLengthSpread(text string) float64 {
	sentences := strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?'
	})
	var lengths []float64
	for _, s := range sentences {
		words := strings.Fields(s)
		if len(words) >= 3 {
			lengths = append(lengths, float64(len(words)))
		}
	}
	if len(lengths) < 5 {
		// Too little prose to judge pacing.
		return 100
	}
	return stddev(lengths)
}

// topWordRatio is the frequency share of the most common content word (5+
// characters, so articles and prepositions drop out).
func topWordRatio(text string) float64 {
	counts := make(map[string]int)
	total := 0
	for _, w := range strings.Fields(strings.ToLower(text)) {
		w = strings.Trim(w, ".,;:!?\"'()[]")
		if len(w) < 5 {
			continue
		}
		counts[w]++
		total++
	}
	if total < 50 {
		return 0
	}
	words := make([]string, 0, len(counts))
	for w := range counts {
		words = append(words, w)
	}
	sort.Slice(words, func(i, j int) bool {
		if counts[words[i]] != counts[words[j]] {
			return counts[words[i]] > counts[words[j]]
		}
		return words[i] < words[j]
	})
	return float64(counts[words[0]]) / float64(total)
}

var aiGenerators = []string{"GPT", "ChatGPT", "Jasper", "Copy.ai", "Writesonic", "AI"}

func generatorRisk(generator string) float64 {
	if generator == "" {
		return 0
	}
	for _, g := range aiGenerators {
		if strings.Contains(generator, g) {
			return 85
		}
	}
	return 0
}

func domRisk(repetition float64) float64 {
	switch {
	case repetition > 0.35:
		return 65
	case repetition > 0.20:
		return 30
	default:
		return 0
	}
}

func sentenceRisk(spread float64) float64 {
	switch {
	case spread < 3:
		return 60
	case spread < 6:
		return 25
	default:
		return 0
	}
}

func vocabRisk(ratio float64) float64 {
	switch {
	case ratio > 0.05:
		return 50
	case ratio > 0.03:
		return 20
	default:
		return 0
	}
}

func transportRisk(page *lookup.PageResult) float64 {
	var risk float64
	if page.Redirects >= 3 {
		risk += 50
	}
	if page.TLSDaysLeft >= 0 && page.TLSDaysLeft < 14 {
		risk += 50
	}
	return risk
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}
