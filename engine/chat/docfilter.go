package chat

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/gsainfoteam/chatbot-be/engine/llm"
	"github.com/gsainfoteam/chatbot-be/engine/mcp"
	"github.com/gsainfoteam/chatbot-be/pkg/logger"
)

// FilterConfig tunes the document relevance filter.
type FilterConfig struct {
	// FetchTool is the retrieval tool that returns a document's full text
	// for a path argument.
	FetchTool       string
	TopCandidates   int
	MaxSelected     int
	MaxSubDocuments int
	ResourceBaseURL string
	CacheSize       int
	CacheTTL        time.Duration
}

// Filterer narrows a document listing down to the few documents worth
// injecting into the answer prompt: keyword scoring, content fetch, model
// re-ranking, and a one-level sub-document pass.
type Filterer struct {
	retrieval Retrieval
	model     llm.Client
	config    FilterConfig
	cache     *expirable.LRU[string, string]
}

func NewFilterer(retrieval Retrieval, model llm.Client, cfg FilterConfig) *Filterer {
	if cfg.FetchTool == "" {
		cfg.FetchTool = "get_resource"
	}
	if cfg.TopCandidates == 0 {
		cfg.TopCandidates = 5
	}
	if cfg.MaxSelected == 0 {
		cfg.MaxSelected = 3
	}
	if cfg.MaxSubDocuments == 0 {
		cfg.MaxSubDocuments = 3
	}
	if cfg.CacheSize == 0 {
		cfg.CacheSize = 128
	}
	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = 10 * time.Minute
	}
	return &Filterer{
		retrieval: retrieval,
		model:     model,
		config:    cfg,
		cache:     expirable.NewLRU[string, string](cfg.CacheSize, nil, cfg.CacheTTL),
	}
}

// Filter implements the full relevance sub-pipeline for one question.
func (f *Filterer) Filter(ctx context.Context, question string, refs []mcp.ResourceRef) (*FilterResult, error) {
	log := logger.FromContext(ctx)

	textual := keepMarkdown(refs)
	if len(textual) == 0 {
		return &FilterResult{}, nil
	}

	keywords := extractKeywords(question)
	ranked := rankByKeywords(textual, keywords)
	if len(ranked) > f.config.TopCandidates {
		ranked = ranked[:f.config.TopCandidates]
	}

	candidates := f.fetchCandidates(ctx, ranked)
	if len(candidates) == 0 {
		return &FilterResult{}, nil
	}

	selected := f.rerank(ctx, question, candidates)
	if len(selected) == 0 {
		return &FilterResult{}, nil
	}

	var blocks []string
	var used []ResourceInfo
	var crossRefs []SubDocumentRef
	for _, doc := range selected {
		blocks = append(blocks, fmt.Sprintf("## 리소스: %s\n\n%s", doc.Title, doc.Content))
		crossRefs = append(crossRefs, doc.SubDocuments...)
		if info, ok := f.citableResource(doc); ok {
			used = append(used, info)
		}
	}

	if section := f.subDocumentSection(ctx, keywords, crossRefs); section != "" {
		blocks = append(blocks, section)
	}

	log.Debug("Document filtering complete",
		"candidates", len(textual),
		"selected", len(selected),
		"citable", len(used),
	)
	return &FilterResult{
		Content:       strings.Join(blocks, "\n\n"),
		UsedResources: used,
	}, nil
}

// fetchCandidates loads full content for ranked refs, skipping individual
// fetch failures.
func (f *Filterer) fetchCandidates(ctx context.Context, refs []mcp.ResourceRef) []DocumentCandidate {
	log := logger.FromContext(ctx)
	var candidates []DocumentCandidate
	for _, ref := range refs {
		content, err := f.fetchContent(ctx, ref.Path)
		if err != nil {
			log.Warn("Candidate fetch failed", "path", ref.Path, "error", err)
			continue
		}
		if content == "" {
			continue
		}
		candidates = append(candidates, DocumentCandidate{
			Title:        documentTitle(ref.Path),
			Content:      content,
			Path:         ref.Path,
			Formats:      ref.Formats,
			SubDocuments: parseCrossReferences(content),
		})
	}
	return candidates
}

func (f *Filterer) fetchContent(ctx context.Context, path string) (string, error) {
	normalized := stripExtension(path)
	if cached, ok := f.cache.Get(normalized); ok {
		return cached, nil
	}
	result, err := f.retrieval.CallTool(ctx, f.config.FetchTool, map[string]any{"path": normalized})
	if err != nil {
		return "", err
	}
	content := mcp.JoinedText(result.Texts)
	f.cache.Add(normalized, content)
	return content, nil
}

// rerank asks the model to pick up to MaxSelected documents by number from
// a title-only list. Any failure falls open to the first MaxSelected
// candidates; "없음" means select zero. A single candidate skips the call.
func (f *Filterer) rerank(ctx context.Context, question string, candidates []DocumentCandidate) []DocumentCandidate {
	if len(candidates) <= 1 {
		return candidates
	}
	log := logger.FromContext(ctx)
	firstN := candidates
	if len(firstN) > f.config.MaxSelected {
		firstN = firstN[:f.config.MaxSelected]
	}

	titles := make([]string, len(candidates))
	for i, doc := range candidates {
		titles[i] = doc.Title
	}
	resp, err := f.model.Chat(ctx, &llm.Request{
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: buildRerankPrompt(question, titles, f.config.MaxSelected)},
		},
		Options: llm.CallOptions{Temperature: 0.1, MaxTokens: 50},
	})
	if err != nil {
		log.Warn("Relevance re-ranking failed, keeping leading candidates", "error", err)
		return firstN
	}

	picks, ok := parseRerankResponse(resp.Content, len(candidates), f.config.MaxSelected)
	if !ok {
		log.Warn("Unparsable re-ranking response, keeping leading candidates", "response", resp.Content)
		return firstN
	}
	selected := make([]DocumentCandidate, 0, len(picks))
	for _, idx := range picks {
		selected = append(selected, candidates[idx])
	}
	return selected
}

// parseRerankResponse extracts 1-based document numbers. ok is false only
// when the response is unparsable; "없음" parses as an empty selection.
func parseRerankResponse(content string, total, max int) ([]int, bool) {
	if strings.Contains(content, "없음") {
		return nil, true
	}
	seen := make(map[int]struct{})
	var picks []int
	for _, match := range numberPattern.FindAllString(content, -1) {
		n, err := strconv.Atoi(match)
		if err != nil || n < 1 || n > total {
			continue
		}
		if _, dup := seen[n-1]; dup {
			continue
		}
		seen[n-1] = struct{}{}
		picks = append(picks, n-1)
		if len(picks) == max {
			break
		}
	}
	if len(picks) == 0 {
		return nil, false
	}
	return picks, true
}

func (f *Filterer) citableResource(doc DocumentCandidate) (ResourceInfo, bool) {
	format := ""
	for _, candidate := range []string{"pdf", "png"} {
		for _, have := range doc.Formats {
			if strings.EqualFold(have, candidate) {
				format = candidate
				break
			}
		}
		if format != "" {
			break
		}
	}
	if format == "" {
		return ResourceInfo{}, false
	}
	info := ResourceInfo{
		Path:    fmt.Sprintf("%s (%s)", doc.Title, strings.ToUpper(format)),
		Formats: doc.Formats,
	}
	if f.config.ResourceBaseURL != "" {
		info.URL = f.config.ResourceBaseURL + "/" + stripExtension(doc.Path)
	}
	return info, true
}

// subDocumentSection scores cross-references against the question keywords
// and appends up to MaxSubDocuments fetched sub-documents. Individual fetch
// failures are skipped.
func (f *Filterer) subDocumentSection(ctx context.Context, keywords []string, refs []SubDocumentRef) string {
	if f.config.MaxSubDocuments == 0 || len(refs) == 0 {
		return ""
	}
	log := logger.FromContext(ctx)

	type scoredRef struct {
		ref   SubDocumentRef
		score int
	}
	scored := make([]scoredRef, 0, len(refs))
	for _, ref := range refs {
		score := 2*keywordScore(ref.Path, keywords) + keywordScore(ref.Description, keywords)
		if score > 0 {
			scored = append(scored, scoredRef{ref: ref, score: score})
		}
	}
	if len(scored) == 0 {
		return ""
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].score > scored[j].score })
	if len(scored) > f.config.MaxSubDocuments {
		scored = scored[:f.config.MaxSubDocuments]
	}

	var blocks []string
	for _, entry := range scored {
		content, err := f.fetchContent(ctx, entry.ref.Path)
		if err != nil {
			log.Warn("Sub-document fetch failed", "path", entry.ref.Path, "error", err)
			continue
		}
		if content == "" {
			continue
		}
		blocks = append(blocks, fmt.Sprintf("### %s\n\n%s", documentTitle(entry.ref.Path), content))
	}
	if len(blocks) == 0 {
		return ""
	}
	return "## 관련 하위 문서\n\n" + strings.Join(blocks, "\n\n")
}

var (
	keywordPattern  = regexp.MustCompile(`[가-힣]+|[a-zA-Z]+`)
	numberPattern   = regexp.MustCompile(`\d+`)
	extensionRegex  = regexp.MustCompile(`\.[a-zA-Z]{1,5}$`)
	crossRefPattern = regexp.MustCompile(`<document\s+path="([^"]+)"\s+description="([^"]*)"\s*/?>`)
)

// extractKeywords tokenizes a question into runs of Hangul syllables or
// Latin letters, dropping single-character tokens.
func extractKeywords(question string) []string {
	var keywords []string
	for _, token := range keywordPattern.FindAllString(question, -1) {
		if utf8.RuneCountInString(token) > 1 {
			keywords = append(keywords, token)
		}
	}
	return keywords
}

// keywordScore adds a keyword's length for each of its occurrences in text.
func keywordScore(text string, keywords []string) int {
	score := 0
	for _, keyword := range keywords {
		score += strings.Count(text, keyword) * utf8.RuneCountInString(keyword)
	}
	return score
}

// rankByKeywords orders refs by descending path score. The sort is stable
// so equal scores preserve listing order.
func rankByKeywords(refs []mcp.ResourceRef, keywords []string) []mcp.ResourceRef {
	type scoredRef struct {
		ref   mcp.ResourceRef
		score int
	}
	scored := make([]scoredRef, 0, len(refs))
	for _, ref := range refs {
		scored = append(scored, scoredRef{ref: ref, score: keywordScore(ref.Path, keywords)})
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].score > scored[j].score })
	out := make([]mcp.ResourceRef, len(scored))
	for i, entry := range scored {
		out[i] = entry.ref
	}
	return out
}

func keepMarkdown(refs []mcp.ResourceRef) []mcp.ResourceRef {
	var out []mcp.ResourceRef
	for _, ref := range refs {
		if ref.HasFormat("md") || ref.HasFormat("markdown") {
			out = append(out, ref)
		}
	}
	return out
}

func parseCrossReferences(content string) []SubDocumentRef {
	matches := crossRefPattern.FindAllStringSubmatch(content, -1)
	if len(matches) == 0 {
		return nil
	}
	refs := make([]SubDocumentRef, 0, len(matches))
	for _, match := range matches {
		refs = append(refs, SubDocumentRef{Path: match[1], Description: match[2]})
	}
	return refs
}

func stripExtension(path string) string {
	return extensionRegex.ReplaceAllString(path, "")
}

func documentTitle(path string) string {
	base := path
	if idx := strings.LastIndex(base, "/"); idx >= 0 {
		base = base[idx+1:]
	}
	return stripExtension(base)
}
