package forensics

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/verilayer/lavs/internal/domain"
	"github.com/verilayer/lavs/internal/lookup"
)

func servePage(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func templatePage() string {
	var sb strings.Builder
	sb.WriteString("<html><head><meta name=\"generator\" content=\"GPT Site Builder\"></head><body>")
	for i := 0; i < 60; i++ {
		sb.WriteString("<div><span><a>Great product here today</a></span></div>")
	}
	sb.WriteString("</body></html>")
	return sb.String()
}

func articlePage() string {
	return `<html><head><title>Field notes</title></head><body>
<h1>Field notes from the survey</h1>
<p>We spent three weeks mapping the estuary, and the weather refused to cooperate.
Some days the fog lifted before noon. Others it sat on the water until dark,
which made the photographic record patchy at best.</p>
<p>The sediment cores told a different story than the aerial imagery suggested,
with distinct banding at depths nobody on the team had predicted from the
published literature.</p>
<p>Funding permitting, the follow-up campaign starts next spring. Until then the
dataset is archived with the regional office, and requests for access go through
the usual review.</p>
</body></html>`
}

func TestWebTemplatePageScoresHigherThanArticle(t *testing.T) {
	fetcher := lookup.NewFetcher(nil, 5*time.Second)
	p := NewWebProducer(fetcher)

	tmplSrv := servePage(t, templatePage())
	artSrv := servePage(t, articlePage())

	tmpl := p.Analyze(context.Background(), &domain.Artifact{URL: tmplSrv.URL, Type: domain.ContentURL})
	article := p.Analyze(context.Background(), &domain.Artifact{URL: artSrv.URL, Type: domain.ContentURL})

	if !tmpl.Available || !article.Available {
		t.Fatalf("both analyses must be available: tmpl=%+v article=%+v", tmpl, article)
	}
	if tmpl.Score <= article.Score {
		t.Errorf("template page (%v) must out-score article page (%v)", tmpl.Score, article.Score)
	}
	if !containsDetail(tmpl.Details, "generator") && !containsDetail(tmpl.Details, "Generator") {
		t.Errorf("expected generator detail, got %v", tmpl.Details)
	}
}

func TestWebFetchFailure(t *testing.T) {
	fetcher := lookup.NewFetcher(nil, time.Second)
	p := NewWebProducer(fetcher)

	ev := p.Analyze(context.Background(), &domain.Artifact{
		URL:  "http://127.0.0.1:1/unreachable",
		Type: domain.ContentURL,
	})

	if ev.Available {
		t.Fatalf("expected unavailable evidence, got %+v", ev)
	}
	if !containsDetail(ev.Details, "fetch") {
		t.Errorf("expected fetch failure reason, got %v", ev.Details)
	}
}

func TestWebErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	t.Cleanup(srv.Close)

	p := NewWebProducer(lookup.NewFetcher(nil, time.Second))
	ev := p.Analyze(context.Background(), &domain.Artifact{URL: srv.URL, Type: domain.ContentURL})

	if ev.Available {
		t.Fatalf("expected unavailable evidence for 404, got %+v", ev)
	}
	if !containsDetail(ev.Details, "404") {
		t.Errorf("expected status reason, got %v", ev.Details)
	}
}

func TestWebNilFetcher(t *testing.T) {
	p := NewWebProducer(nil)

	ev := p.Analyze(context.Background(), &domain.Artifact{URL: "https://example.com", Type: domain.ContentURL})

	if ev.Available {
		t.Fatalf("expected unavailable evidence without a fetcher, got %+v", ev)
	}
}
