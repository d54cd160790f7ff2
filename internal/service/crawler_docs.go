package service

import (
	"context"
	"fmt"
	"net/http"

	"flowgen/internal/model"

	"github.com/PuerkitoBio/goquery"
)

// learnFromDocs crawls the official documentation pages for embedded
// workflow JSON. A page that cannot be fetched is skipped, not fatal.
func (s *LearningService) learnFromDocs(ctx context.Context, counts *crawlCounts) error {
	pages := []string{
		s.cfg.DocsURL + "/workflows/",
		s.cfg.DocsURL + "/integrations/",
	}

	for _, pageURL := range pages {
		doc, err := s.fetchDocument(ctx, pageURL)
		if err != nil {
			s.log.Debug("docs page skipped", "url", pageURL, "error", err)
			counts.skipped++
			continue
		}

		doc.Find("code.language-json").Each(func(_ int, sel *goquery.Selection) {
			raw := sel.Text()
			shape, ok := parseWorkflowArtifact(raw)
			if !ok {
				return
			}
			counts.found++

			added, err := s.admitExample(ctx, exampleCandidate{
				title:       fmt.Sprintf("Official Docs Example %d", counts.found),
				description: "Extracted from official documentation",
				source:      model.SourceDocs,
				sourceURL:   pageURL,
				// code blocks have no URL of their own; dedup by content
				dedupURL: "",
				raw:      raw,
				parsed:   shape,
			})
			if err != nil {
				s.log.Warn("docs example admission failed", "url", pageURL, "error", err)
				counts.skipped++
				return
			}
			if added {
				counts.added++
			} else {
				counts.skipped++
			}
		})
	}

	return nil
}

// fetchDocument is the tolerant page fetch shared by the HTML crawlers:
// transport failures and non-2xx statuses both come back as errors for
// the caller to absorb.
func (s *LearningService) fetchDocument(ctx context.Context, url string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetch %s: status %d", url, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", url, err)
	}
	return doc, nil
}
