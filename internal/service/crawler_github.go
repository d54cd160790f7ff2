package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"flowgen/internal/model"
)

type githubRepo struct {
	Name            string `json:"name"`
	Description     string `json:"description"`
	StargazersCount int    `json:"stargazers_count"`
	ContentsURL     string `json:"contents_url"`
}

type githubSearchResponse struct {
	Items []githubRepo `json:"items"`
}

type githubContentItem struct {
	Name        string `json:"name"`
	DownloadURL string `json:"download_url"`
}

// learnFromGitHub searches repositories by popularity and inspects
// their root directories for workflow JSON files. Repositories below
// the configured star floor are dropped before any contents fetch, and
// a courtesy delay separates successive repositories.
func (s *LearningService) learnFromGitHub(ctx context.Context, counts *crawlCounts) error {
	searchURL := fmt.Sprintf("%s/search/repositories?q=%s&sort=stars&order=desc&per_page=30",
		s.cfg.GitHubAPIURL, url.QueryEscape(s.cfg.GitHubSearchQuery))

	body, status, err := s.githubGet(ctx, searchURL)
	if err != nil {
		// the search call is the whole source; its failure fails the crawl
		return fmt.Errorf("search repositories: %w", err)
	}
	if status != http.StatusOK {
		return nil
	}

	var search githubSearchResponse
	if err := json.Unmarshal(body, &search); err != nil {
		return fmt.Errorf("decode search response: %w", err)
	}

	delay := time.Duration(s.cfg.CrawlDelaySeconds) * time.Second
	for _, repo := range search.Items {
		if repo.StargazersCount < s.cfg.GitHubMinStars {
			counts.skipped++
			continue
		}

		s.crawlRepository(ctx, repo, counts)

		// rate-limit discipline toward the API
		time.Sleep(delay)
	}

	return nil
}

// crawlRepository inspects one repository's root listing. Every failure
// in here is per-item: it is absorbed into the skip count.
func (s *LearningService) crawlRepository(ctx context.Context, repo githubRepo, counts *crawlCounts) {
	contentsURL := strings.Replace(repo.ContentsURL, "{+path}", "", 1)

	body, status, err := s.githubGet(ctx, contentsURL)
	if err != nil || status != http.StatusOK {
		counts.skipped++
		return
	}

	var items []githubContentItem
	if err := json.Unmarshal(body, &items); err != nil {
		counts.skipped++
		return
	}

	for _, item := range items {
		if !strings.HasSuffix(item.Name, ".json") || item.DownloadURL == "" {
			continue
		}

		raw, status, err := s.githubGet(ctx, item.DownloadURL)
		if err != nil || status != http.StatusOK {
			counts.skipped++
			continue
		}

		shape, ok := parseWorkflowArtifact(string(raw))
		if !ok {
			continue
		}
		counts.found++

		added, err := s.admitExample(ctx, exampleCandidate{
			title:       repo.Name,
			description: repo.Description,
			source:      model.SourceGitHub,
			sourceURL:   item.DownloadURL,
			dedupURL:    item.DownloadURL,
			raw:         string(raw),
			parsed:      shape,
			stars:       repo.StargazersCount,
		})
		if err != nil {
			s.log.Warn("github example admission failed", "url", item.DownloadURL, "error", err)
			counts.skipped++
			continue
		}
		if added {
			counts.added++
		} else {
			counts.skipped++
		}
	}
}

func (s *LearningService) githubGet(ctx context.Context, rawURL string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", fmt.Sprintf("token %s", s.cfg.GitHubToken))
	req.Header.Set("Accept", "application/vnd.github.v3+json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read %s: %w", rawURL, err)
	}
	return body, resp.StatusCode, nil
}
