package service

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/noah-isme/railrules-api/internal/dto"
	"github.com/noah-isme/railrules-api/internal/models"
	"github.com/noah-isme/railrules-api/internal/repository"
	"github.com/noah-isme/railrules-api/internal/textdiff"
)

const (
	// HighlightStateUnseen means the viewer has unread changes for the entity.
	HighlightStateUnseen = "unseen"
	// HighlightStateAcknowledged means every change of the entity was read.
	HighlightStateAcknowledged = "acknowledged"

	highlightClass = "change-highlight"

	// fallbackMinRunes is the shortest word kept when a change has no diff segments.
	fallbackMinRunes = 4
)

// Acknowledger marks a viewer's notifications for an entity read.
type Acknowledger interface {
	Acknowledge(ctx context.Context, userID uint, entityType models.EntityType, entityID uint) (int64, error)
}

// HighlightService marks words from unread changes in rendered content.
type HighlightService interface {
	Highlight(ctx context.Context, viewerID uint, entityType models.EntityType, entityID uint, rendered string) (dto.HighlightResult, error)
	Acknowledge(ctx context.Context, viewerID uint, entityType models.EntityType, entityID uint) (int64, error)
}

// HighlightTarget is a word to mark and the change log that introduced it.
type HighlightTarget struct {
	Word        string
	ChangeLogID uint
}

type highlightService struct {
	notifications repository.NotificationRepository
	changelogs    repository.ChangeLogRepository
	acknowledger  Acknowledger
	cache         *highlightCache
	sanitizer     *bluemonday.Policy
	logger        zerolog.Logger
	tracer        trace.Tracer
}

// NewHighlightService constructs the highlight presenter. A nil redis client
// disables the unread-id cache.
func NewHighlightService(notifications repository.NotificationRepository, changelogs repository.ChangeLogRepository, acknowledger Acknowledger, redisClient *redis.Client, ttl time.Duration, logger zerolog.Logger) HighlightService {
	serviceLogger := logger.With().Str("component", "highlight_service").Logger()
	return &highlightService{
		notifications: notifications,
		changelogs:    changelogs,
		acknowledger:  acknowledger,
		cache:         newHighlightCache(redisClient, ttl, serviceLogger),
		sanitizer:     bluemonday.UGCPolicy(),
		logger:        serviceLogger,
		tracer:        otel.Tracer("github.com/noah-isme/railrules-api/internal/service/highlight"),
	}
}

func (s *highlightService) Highlight(ctx context.Context, viewerID uint, entityType models.EntityType, entityID uint, rendered string) (dto.HighlightResult, error) {
	if viewerID == 0 {
		return dto.HighlightResult{}, ErrUnauthenticated
	}
	if !entityType.Valid() {
		return dto.HighlightResult{}, ErrInvalidEntityType
	}

	spanCtx, span := s.tracer.Start(ctx, "highlight.render", trace.WithAttributes(
		attribute.Int64("highlight.viewer_id", int64(viewerID)),
		attribute.String("highlight.entity_type", string(entityType)),
		attribute.Int64("highlight.entity_id", int64(entityID)),
	))
	defer span.End()

	clean := s.sanitizer.Sanitize(rendered)
	result := dto.HighlightResult{
		HTML:         clean,
		State:        HighlightStateAcknowledged,
		ChangeLogIDs: []uint{},
		Words:        []string{},
	}

	ids, err := s.unreadChangeLogIDs(spanCtx, viewerID, entityType, entityID)
	if err != nil {
		span.RecordError(err)
		return dto.HighlightResult{}, err
	}
	if len(ids) == 0 {
		return result, nil
	}

	entries, err := s.changelogs.FindByIDs(spanCtx, ids)
	if err != nil {
		span.RecordError(err)
		return dto.HighlightResult{}, err
	}

	result.State = HighlightStateUnseen
	result.ChangeLogIDs = ids

	targets := ExtractHighlightTargets(entries)
	if len(targets) == 0 {
		return result, nil
	}

	marked, err := HighlightMarkup(clean, targets)
	if err != nil {
		s.logger.Warn().Err(err).Uint("entity_id", entityID).Msg("failed to highlight rendered content")
		return result, nil
	}

	result.HTML = marked
	for _, target := range targets {
		result.Words = append(result.Words, target.Word)
	}
	return result, nil
}

func (s *highlightService) Acknowledge(ctx context.Context, viewerID uint, entityType models.EntityType, entityID uint) (int64, error) {
	if s.acknowledger == nil {
		return 0, fmt.Errorf("acknowledger not configured")
	}
	return s.acknowledger.Acknowledge(ctx, viewerID, entityType, entityID)
}

func (s *highlightService) unreadChangeLogIDs(ctx context.Context, viewerID uint, entityType models.EntityType, entityID uint) ([]uint, error) {
	key := highlightCacheKey(viewerID, entityType, entityID)
	if ids, ok := s.cache.load(ctx, key); ok {
		return ids, nil
	}

	ids, err := s.notifications.UnreadChangeLogIDs(ctx, viewerID, entityType, entityID)
	if err != nil {
		return nil, err
	}
	s.cache.store(ctx, key, ids)
	return ids, nil
}

// ExtractHighlightTargets collects the words added by UPDATE entries. Entries
// are expected newest first; a word recurring across entries is attributed to
// the first entry that adds it. Changes without diff segments fall back to
// the words of their new value that are at least four runes long.
func ExtractHighlightTargets(entries []models.ChangeLog) []HighlightTarget {
	seen := make(map[string]struct{})
	targets := make([]HighlightTarget, 0)

	add := func(word string, changeLogID uint) {
		key := strings.ToLower(word)
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		targets = append(targets, HighlightTarget{Word: word, ChangeLogID: changeLogID})
	}

	for _, entry := range entries {
		if entry.Action != models.ActionUpdate {
			continue
		}
		for _, change := range entry.Changes.Data().FieldChanges {
			if len(change.Diff) > 0 {
				for _, word := range textdiff.AddedWords(fromDiffSegments(change.Diff)) {
					if trimmed := trimWord(word); trimmed != "" {
						add(trimmed, entry.ID)
					}
				}
				continue
			}
			if change.NewValue == nil {
				continue
			}
			for _, word := range strings.Fields(*change.NewValue) {
				trimmed := trimWord(word)
				if utf8.RuneCountInString(trimmed) < fallbackMinRunes {
					continue
				}
				add(trimmed, entry.ID)
			}
		}
	}

	return targets
}

// HighlightMarkup wraps each case-insensitive whole-word occurrence of the
// targets found in text nodes with a change-highlight mark. Content of script,
// style, textarea and existing mark elements is left alone.
func HighlightMarkup(markup string, targets []HighlightTarget) (string, error) {
	if strings.TrimSpace(markup) == "" || len(targets) == 0 {
		return markup, nil
	}

	matcher, err := newWordMatcher(targets)
	if err != nil {
		return "", err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return "", err
	}

	body := doc.Find("body")
	if body.Length() == 0 {
		return markup, nil
	}

	var textNodes []*html.Node
	for _, node := range body.Nodes {
		collectTextNodes(node, &textNodes)
	}
	for _, node := range textNodes {
		matcher.wrap(node)
	}

	return body.Html()
}

func collectTextNodes(node *html.Node, out *[]*html.Node) {
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		switch child.Type {
		case html.TextNode:
			*out = append(*out, child)
		case html.ElementNode:
			switch child.DataAtom {
			case atom.Script, atom.Style, atom.Textarea, atom.Mark:
				continue
			}
			collectTextNodes(child, out)
		}
	}
}

type wordPattern struct {
	pattern     *regexp.Regexp
	changeLogID uint
}

type wordMatcher struct {
	patterns []wordPattern
}

type wordMatch struct {
	start, end  int
	changeLogID uint
}

func newWordMatcher(targets []HighlightTarget) (*wordMatcher, error) {
	ordered := make([]HighlightTarget, len(targets))
	copy(ordered, targets)
	sort.SliceStable(ordered, func(i, j int) bool {
		return utf8.RuneCountInString(ordered[i].Word) > utf8.RuneCountInString(ordered[j].Word)
	})

	matcher := &wordMatcher{patterns: make([]wordPattern, 0, len(ordered))}
	for _, target := range ordered {
		pattern, err := regexp.Compile("(?i)" + regexp.QuoteMeta(target.Word))
		if err != nil {
			return nil, fmt.Errorf("compile highlight pattern for %q: %w", target.Word, err)
		}
		matcher.patterns = append(matcher.patterns, wordPattern{pattern: pattern, changeLogID: target.ChangeLogID})
	}
	return matcher, nil
}

// find returns non-overlapping whole-word matches ordered by offset. On an
// overlap the earlier match wins, then the longer one.
func (m *wordMatcher) find(text string) []wordMatch {
	candidates := make([]wordMatch, 0)
	for _, wp := range m.patterns {
		for _, loc := range wp.pattern.FindAllStringIndex(text, -1) {
			if loc[0] == loc[1] || !isWordBoundary(text, loc[0], loc[1]) {
				continue
			}
			candidates = append(candidates, wordMatch{start: loc[0], end: loc[1], changeLogID: wp.changeLogID})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].start != candidates[j].start {
			return candidates[i].start < candidates[j].start
		}
		return candidates[i].end > candidates[j].end
	})

	matches := make([]wordMatch, 0, len(candidates))
	cursor := 0
	for _, candidate := range candidates {
		if candidate.start < cursor {
			continue
		}
		matches = append(matches, candidate)
		cursor = candidate.end
	}
	return matches
}

func (m *wordMatcher) wrap(node *html.Node) {
	matches := m.find(node.Data)
	if len(matches) == 0 || node.Parent == nil {
		return
	}

	parent := node.Parent
	text := node.Data
	cursor := 0
	for _, match := range matches {
		if match.start > cursor {
			parent.InsertBefore(&html.Node{Type: html.TextNode, Data: text[cursor:match.start]}, node)
		}
		mark := &html.Node{
			Type:     html.ElementNode,
			Data:     "mark",
			DataAtom: atom.Mark,
			Attr: []html.Attribute{
				{Key: "class", Val: highlightClass},
				{Key: "data-changelog-id", Val: strconv.FormatUint(uint64(match.changeLogID), 10)},
			},
		}
		mark.AppendChild(&html.Node{Type: html.TextNode, Data: text[match.start:match.end]})
		parent.InsertBefore(mark, node)
		cursor = match.end
	}
	if cursor < len(text) {
		parent.InsertBefore(&html.Node{Type: html.TextNode, Data: text[cursor:]}, node)
	}
	parent.RemoveChild(node)
}

func isWordBoundary(text string, start, end int) bool {
	if start > 0 {
		before, _ := utf8.DecodeLastRuneInString(text[:start])
		if isWordRune(before) {
			return false
		}
	}
	if end < len(text) {
		after, _ := utf8.DecodeRuneInString(text[end:])
		if isWordRune(after) {
			return false
		}
	}
	return true
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func trimWord(word string) string {
	return strings.TrimFunc(word, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
