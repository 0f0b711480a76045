package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/noah-isme/railrules-api/internal/models"
	"github.com/noah-isme/railrules-api/internal/repository"
)

func updateEntry(id uint, changes ...models.FieldChange) models.ChangeLog {
	return models.ChangeLog{
		ID:         id,
		EntityType: models.EntityRule,
		EntityID:   42,
		Action:     models.ActionUpdate,
		Changes:    datatypes.NewJSONType(models.ChangeSet{FieldChanges: changes}),
	}
}

func targetWords(targets []HighlightTarget) []string {
	words := make([]string, 0, len(targets))
	for _, target := range targets {
		words = append(words, target.Word)
	}
	return words
}

func TestExtractTargetsFromAddedSegments(t *testing.T) {
	entries := []models.ChangeLog{
		updateEntry(2, models.FieldChange{Field: fieldDescription, Diff: []models.DiffSegment{
			{Type: "unchanged", Content: "Speed is"},
			{Type: "remove", Content: "60"},
			{Type: "add", Content: "75 (km/h),"},
		}}),
		updateEntry(1, models.FieldChange{Field: fieldDescription, Diff: []models.DiffSegment{
			{Type: "add", Content: "75 at"},
		}}),
	}

	targets := ExtractHighlightTargets(entries)
	require.Equal(t, []HighlightTarget{
		{Word: "75", ChangeLogID: 2},
		{Word: "km/h", ChangeLogID: 2},
		{Word: "at", ChangeLogID: 1},
	}, targets)
}

func TestExtractTargetsFallbackDropsShortWords(t *testing.T) {
	entries := []models.ChangeLog{
		updateEntry(4, models.FieldChange{Field: fieldTitle, OldValue: strPtr("Old"), NewValue: strPtr("New rule for the yard: slow")}),
	}

	words := targetWords(ExtractHighlightTargets(entries))
	require.Equal(t, []string{"rule", "yard", "slow"}, words)
	for _, word := range words {
		require.GreaterOrEqual(t, len([]rune(word)), 4)
	}
}

func TestExtractTargetsIgnoresNonUpdateEntries(t *testing.T) {
	create := updateEntry(1, models.FieldChange{Field: fieldTitle, NewValue: strPtr("Brand new manual")})
	create.Action = models.ActionCreate

	require.Empty(t, ExtractHighlightTargets([]models.ChangeLog{create}))
}

func TestHighlightMarkupWholeWordsCaseInsensitive(t *testing.T) {
	markup := `<p>Rail speed: RAIL limits apply on railway rail.</p>`

	out, err := HighlightMarkup(markup, []HighlightTarget{{Word: "rail", ChangeLogID: 7}})
	require.NoError(t, err)
	require.Equal(t, 3, strings.Count(out, `<mark class="change-highlight" data-changelog-id="7">`))
	require.Contains(t, out, `<mark class="change-highlight" data-changelog-id="7">RAIL</mark>`)
	require.Contains(t, out, "railway")
	require.NotContains(t, out, `>railway</mark>`)
}

func TestHighlightMarkupEscapesMetacharacters(t *testing.T) {
	markup := `<p>Version v1x2 was replaced by v1.2 and a+b holds, not aab.</p>`

	out, err := HighlightMarkup(markup, []HighlightTarget{{Word: "v1.2", ChangeLogID: 1}, {Word: "a+b", ChangeLogID: 1}})
	require.NoError(t, err)
	require.Contains(t, out, `<mark class="change-highlight" data-changelog-id="1">v1.2</mark>`)
	require.Contains(t, out, `<mark class="change-highlight" data-changelog-id="1">a+b</mark>`)
	require.Contains(t, out, "Version v1x2 was")
	require.Contains(t, out, "not aab.")
	require.Equal(t, 2, strings.Count(out, "<mark"))
}

func TestHighlightMarkupSkipsAttributesAndScripts(t *testing.T) {
	markup := `<div id="signal" title="signal"><script>var signal = 1;</script><p>Obey the signal.</p><mark>signal</mark></div>`

	out, err := HighlightMarkup(markup, []HighlightTarget{{Word: "signal", ChangeLogID: 3}})
	require.NoError(t, err)
	require.Equal(t, 1, strings.Count(out, `data-changelog-id="3"`))
	require.Contains(t, out, `<div id="signal" title="signal">`)
	require.Contains(t, out, `var signal = 1;`)
	require.Contains(t, out, `Obey the <mark class="change-highlight" data-changelog-id="3">signal</mark>.`)
}

func TestHighlightMarkupPrefersLongerOverlappingWord(t *testing.T) {
	out, err := HighlightMarkup(`<p>well-known route, well kept</p>`, []HighlightTarget{
		{Word: "well", ChangeLogID: 1},
		{Word: "well-known", ChangeLogID: 2},
	})
	require.NoError(t, err)
	require.Contains(t, out, `<mark class="change-highlight" data-changelog-id="2">well-known</mark>`)
	require.Contains(t, out, `<mark class="change-highlight" data-changelog-id="1">well</mark> kept`)
}

func TestHighlightServiceCachesAndAcknowledges(t *testing.T) {
	db := setupServiceDB(t)
	ctx := context.Background()
	redisClient := setupRedis(t)

	users := repository.NewUserRepository(db)
	ids := seedUsers(t, users, "editor", "viewer")
	notifications := repository.NewNotificationRepository(db)
	changelogs := repository.NewChangeLogRepository(db)

	notifier := NewNotificationService(notifications, users, NotificationOptions{Redis: redisClient, HighlightTTL: time.Minute}, nil, testLogger())
	recorder := NewChangeLogService(changelogs, NewChangeLogBuilder(0), notifier, testLogger())
	highlighter := NewHighlightService(notifications, changelogs, notifier, redisClient, time.Minute, testLogger())

	previous := Snapshot{Title: "Speed", Description: `<div id="s1">Speed limit is 60</div>`}
	current := Snapshot{Title: "Speed", Description: `<div id="s1">Speed limit is 75</div>`}
	entry, err := recorder.Record(ctx, BuildInput{
		EntityType: models.EntityRule,
		EntityID:   42,
		Action:     models.ActionUpdate,
		Old:        previous,
		New:        current,
		Metadata:   ChangeMetadata{Reason: "raised limit", AuthorUserID: ids[0]},
	}, Audience{})
	require.NoError(t, err)

	result, err := highlighter.Highlight(ctx, ids[1], models.EntityRule, 42, current.Description)
	require.NoError(t, err)
	require.Equal(t, HighlightStateUnseen, result.State)
	require.Equal(t, []uint{entry.ID}, result.ChangeLogIDs)
	require.Equal(t, []string{"75"}, result.Words)
	require.Contains(t, result.HTML, `<mark class="change-highlight" data-changelog-id="`)
	require.Contains(t, result.HTML, `>75</mark>`)

	cached, err := redisClient.Exists(ctx, highlightCacheKey(ids[1], models.EntityRule, 42)).Result()
	require.NoError(t, err)
	require.Equal(t, int64(1), cached)

	authorView, err := highlighter.Highlight(ctx, ids[0], models.EntityRule, 42, current.Description)
	require.NoError(t, err)
	require.Equal(t, HighlightStateAcknowledged, authorView.State)
	require.NotContains(t, authorView.HTML, "<mark")

	updated, err := highlighter.Acknowledge(ctx, ids[1], models.EntityRule, 42)
	require.NoError(t, err)
	require.Equal(t, int64(1), updated)

	after, err := highlighter.Highlight(ctx, ids[1], models.EntityRule, 42, current.Description)
	require.NoError(t, err)
	require.Equal(t, HighlightStateAcknowledged, after.State)
	require.Empty(t, after.ChangeLogIDs)
	require.NotContains(t, after.HTML, "<mark")

	again, err := highlighter.Acknowledge(ctx, ids[1], models.EntityRule, 42)
	require.NoError(t, err)
	require.Zero(t, again)
}

func TestHighlightRejectsAnonymousViewer(t *testing.T) {
	svc := NewHighlightService(nil, nil, nil, nil, time.Minute, testLogger())

	_, err := svc.Highlight(context.Background(), 0, models.EntityRule, 1, "<p>x</p>")
	require.ErrorIs(t, err, ErrUnauthenticated)
}
