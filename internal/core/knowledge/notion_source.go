package knowledge

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/studiokb/linebridge/internal/core"
	"github.com/studiokb/linebridge/internal/models"
)

const (
	notionBaseURL = "https://api.notion.com/v1"
	notionVersion = "2022-06-28"
)

// NotionSource fetches knowledge pages from the Notion API and flattens
// their blocks into plain markdown text.
type NotionSource struct {
	apiKey  string
	pageIDs []string
	http    *http.Client
	logger  *zap.Logger
}

func NewNotionSource(apiKey string, pageIDs []string, logger *zap.Logger) *NotionSource {
	return &NotionSource{
		apiKey:  apiKey,
		pageIDs: pageIDs,
		http:    &http.Client{Timeout: 30 * time.Second},
		logger:  logger,
	}
}

func (s *NotionSource) ListPageIDs() []string {
	return s.pageIDs
}

// FetchPage retrieves one page's title and content. Returns nil on any
// failure so a single broken page never fails a snapshot rebuild.
func (s *NotionSource) FetchPage(ctx context.Context, id string) *models.KnowledgePage {
	title, err := s.fetchTitle(ctx, id)
	if err != nil {
		s.logger.Error("notion page fetch failed", zap.String("page_id", id), zap.Error(err))
		return nil
	}

	content, err := s.fetchContent(ctx, id)
	if err != nil {
		s.logger.Error("notion blocks fetch failed", zap.String("page_id", id), zap.Error(err))
		return nil
	}

	return &models.KnowledgePage{ID: id, Title: title, Content: content}
}

// Minimal slices of the Notion API payloads; only the fields we read.

type richText struct {
	PlainText string `json:"plain_text"`
}

type titleProperty struct {
	Type  string     `json:"type"`
	Title []richText `json:"title"`
}

type pageResponse struct {
	Properties map[string]titleProperty `json:"properties"`
	Icon       *struct {
		Emoji string `json:"emoji"`
	} `json:"icon"`
}

type blockContent struct {
	RichText []richText `json:"rich_text"`
}

type block struct {
	Type string `json:"type"`

	Paragraph        *blockContent `json:"paragraph"`
	Heading1         *blockContent `json:"heading_1"`
	Heading2         *blockContent `json:"heading_2"`
	Heading3         *blockContent `json:"heading_3"`
	BulletedListItem *blockContent `json:"bulleted_list_item"`
	NumberedListItem *blockContent `json:"numbered_list_item"`
	ToDo             *blockContent `json:"to_do"`
	Quote            *blockContent `json:"quote"`
	Callout          *blockContent `json:"callout"`
	Toggle           *blockContent `json:"toggle"`
}

type blocksResponse struct {
	Results    []block `json:"results"`
	HasMore    bool    `json:"has_more"`
	NextCursor string  `json:"next_cursor"`
}

func (s *NotionSource) fetchTitle(ctx context.Context, pageID string) (string, error) {
	var page pageResponse
	if err := s.get(ctx, "/pages/"+url.PathEscape(pageID), &page); err != nil {
		return "", err
	}

	for _, prop := range page.Properties {
		if prop.Type != "title" || len(prop.Title) == 0 {
			continue
		}
		var b strings.Builder
		for _, t := range prop.Title {
			b.WriteString(t.PlainText)
		}
		return b.String(), nil
	}
	if page.Icon != nil && page.Icon.Emoji != "" {
		return page.Icon.Emoji + " Page", nil
	}
	return "Untitled", nil
}

func (s *NotionSource) fetchContent(ctx context.Context, pageID string) (string, error) {
	var b strings.Builder
	cursor := ""
	for {
		path := "/blocks/" + url.PathEscape(pageID) + "/children?page_size=100"
		if cursor != "" {
			path += "&start_cursor=" + url.QueryEscape(cursor)
		}

		var resp blocksResponse
		if err := s.get(ctx, path, &resp); err != nil {
			return "", err
		}

		for _, blk := range resp.Results {
			if line := renderBlock(blk); line != "" {
				b.WriteString(line)
				b.WriteString("\n")
			}
		}

		if !resp.HasMore || resp.NextCursor == "" {
			break
		}
		cursor = resp.NextCursor
	}
	return b.String(), nil
}

// renderBlock flattens one block to a markdown-ish line.
func renderBlock(blk block) string {
	join := func(c *blockContent) string {
		if c == nil {
			return ""
		}
		var b strings.Builder
		for _, t := range c.RichText {
			b.WriteString(t.PlainText)
		}
		return b.String()
	}

	switch blk.Type {
	case "paragraph":
		return join(blk.Paragraph)
	case "heading_1":
		return "# " + join(blk.Heading1)
	case "heading_2":
		return "## " + join(blk.Heading2)
	case "heading_3":
		return "### " + join(blk.Heading3)
	case "bulleted_list_item":
		return "- " + join(blk.BulletedListItem)
	case "numbered_list_item":
		return "1. " + join(blk.NumberedListItem)
	case "to_do":
		return "- " + join(blk.ToDo)
	case "quote":
		return "> " + join(blk.Quote)
	case "callout":
		return join(blk.Callout)
	case "toggle":
		return join(blk.Toggle)
	default:
		return ""
	}
}

func (s *NotionSource) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, notionBaseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Notion-Version", notionVersion)

	resp, err := s.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("notion api: unexpected status %d for %s", resp.StatusCode, path)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

var _ core.KnowledgeSource = (*NotionSource)(nil)
