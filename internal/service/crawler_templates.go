package service

import (
	"context"
	"strings"

	"flowgen/internal/model"

	"github.com/PuerkitoBio/goquery"
)

// templates beyond this are ignored per cycle
const templateCrawlLimit = 50

// learnFromTemplates crawls the curated template gallery. Template
// cards are previews without downloadable JSON, so they only count as
// found; any workflow JSON embedded on the page itself is admitted the
// same way docs blocks are.
func (s *LearningService) learnFromTemplates(ctx context.Context, counts *crawlCounts) error {
	doc, err := s.fetchDocument(ctx, s.cfg.TemplatesURL)
	if err != nil {
		// single entry page; unreachable means the whole source is down
		return err
	}

	doc.Find("div.template-card").EachWithBreak(func(i int, sel *goquery.Selection) bool {
		if i >= templateCrawlLimit {
			return false
		}
		title := strings.TrimSpace(sel.Find("h3").First().Text())
		link, _ := sel.Find("a").First().Attr("href")
		if title == "" || link == "" {
			counts.skipped++
			return true
		}
		counts.found++
		return true
	})

	doc.Find("code.language-json").Each(func(_ int, sel *goquery.Selection) {
		raw := sel.Text()
		shape, ok := parseWorkflowArtifact(raw)
		if !ok {
			return
		}
		counts.found++

		added, err := s.admitExample(ctx, exampleCandidate{
			title:       "Template Gallery Example",
			description: "Extracted from the workflow template gallery",
			source:      model.SourceTemplates,
			sourceURL:   s.cfg.TemplatesURL,
			dedupURL:    "",
			raw:         raw,
			parsed:      shape,
		})
		if err != nil {
			s.log.Warn("template example admission failed", "error", err)
			counts.skipped++
			return
		}
		if added {
			counts.added++
		} else {
			counts.skipped++
		}
	})

	return nil
}
