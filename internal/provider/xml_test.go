package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/feedrank/feedrank/internal/domain"
)

const xmlFeedBody = `<?xml version="1.0" encoding="UTF-8"?>
<feed>
  <items>
    <item>
      <id>vid-9</id>
      <headline>Inside the Scheduler</headline>
      <type>video</type>
      <publication_date>2026-02-11 16:45:00</publication_date>
      <stats>
        <views>54000</views>
        <likes>4300</likes>
        <duration>22:10</duration>
      </stats>
      <categories>
        <category>go</category>
        <category>runtime</category>
      </categories>
    </item>
    <item>
      <id>post-3</id>
      <headline>Migrations Without Downtime</headline>
      <type>article</type>
      <publication_date>2026-02-08</publication_date>
      <stats>
        <reading_time>9</reading_time>
        <reactions>210</reactions>
        <comments>34</comments>
      </stats>
      <categories>
        <category>databases</category>
      </categories>
    </item>
  </items>
</feed>`

func TestXMLProvider_FetchContents(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		_, _ = w.Write([]byte(xmlFeedBody))
	}))
	defer srv.Close()

	p := NewXMLProvider("xmlnews", srv.URL, time.Second)
	got, err := p.FetchContents(context.Background())
	if err != nil {
		t.Fatalf("FetchContents: %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("got %d contents, want 2", len(got))
	}

	vid := got[0]
	if vid.ID != "vid-9" || vid.Title != "Inside the Scheduler" || vid.Type != domain.TypeVideo {
		t.Errorf("video item = %+v", vid)
	}
	if vid.Metrics.Number("views") != 54000 || vid.Metrics.Number("likes") != 4300 {
		t.Errorf("video metrics = %v", vid.Metrics)
	}
	if vid.Metrics.Text("duration") != "22:10" {
		t.Errorf("duration = %q, want 22:10", vid.Metrics.Text("duration"))
	}
	if len(vid.Tags) != 2 || vid.Tags[1] != "runtime" {
		t.Errorf("video tags = %v", vid.Tags)
	}

	art := got[1]
	if art.Type != domain.TypeArticle {
		t.Errorf("article type = %q", art.Type)
	}
	if art.Metrics.Number("reading_time") != 9 || art.Metrics.Number("comments") != 34 {
		t.Errorf("article metrics = %v", art.Metrics)
	}
	// Article items never carry video stats.
	if _, ok := art.Metrics["views"]; ok {
		t.Error("article metrics include views")
	}
	want := time.Date(2026, 2, 8, 0, 0, 0, 0, time.UTC)
	if !art.PublishedAt.Equal(want) {
		t.Errorf("PublishedAt = %v, want %v", art.PublishedAt, want)
	}
}

func TestXMLProvider_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<feed><items><item>`))
	}))
	defer srv.Close()

	p := NewXMLProvider("xmlnews", srv.URL, time.Second)
	if _, err := p.FetchContents(context.Background()); err == nil {
		t.Fatal("expected error on malformed feed")
	}
}

func TestXMLProvider_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := NewXMLProvider("xmlnews", srv.URL, time.Second)
	if _, err := p.FetchContents(context.Background()); err == nil {
		t.Fatal("expected error on 500 response")
	}
}

func TestMetricsFromStats(t *testing.T) {
	stats := xmlStats{
		Views: 100, Likes: 10, Duration: "01:00",
		ReadingTime: 5, Reactions: 50, Comments: 7,
	}

	videoMetrics := metricsFromStats(domain.TypeVideo, stats)
	if videoMetrics.Number("views") != 100 || videoMetrics.Number("likes") != 10 {
		t.Errorf("video metrics = %v", videoMetrics)
	}

	articleMetrics := metricsFromStats(domain.TypeArticle, stats)
	if articleMetrics.Number("reading_time") != 5 || articleMetrics.Number("reactions") != 50 {
		t.Errorf("article metrics = %v", articleMetrics)
	}

	// Unknown types get the article mapping.
	otherMetrics := metricsFromStats("podcast", stats)
	if otherMetrics.Number("reading_time") != 5 {
		t.Errorf("unknown type metrics = %v", otherMetrics)
	}
}
