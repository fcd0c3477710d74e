package discord

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"

	"MemberSync/internal/domain"
	"MemberSync/internal/ports"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	restErr := func(status int, code int) error {
		e := &discordgo.RESTError{Response: &http.Response{StatusCode: status}}
		if code != 0 {
			e.Message = &discordgo.APIErrorMessage{Code: code}
		}
		return e
	}

	assert.ErrorIs(t, classify(restErr(http.StatusForbidden, 0)), domain.ErrForbidden)
	assert.ErrorIs(t, classify(restErr(http.StatusNotFound, 0)), domain.ErrNotFound)
	assert.ErrorIs(t, classify(restErr(http.StatusTooManyRequests, 0)), domain.ErrRateLimited)
	assert.ErrorIs(t, classify(restErr(http.StatusBadRequest, discordgo.ErrCodeUnknownMember)), domain.ErrNotFound)

	plain := errors.New("boom")
	assert.Equal(t, plain, classify(plain))
	assert.ErrorIs(t, classify(restErr(http.StatusBadGateway, 0)), domain.ErrUnavailable)
	assert.ErrorIs(t, classify(restErr(http.StatusInternalServerError, 0)), domain.ErrUnavailable)
	other := restErr(http.StatusBadRequest, 0)
	assert.Equal(t, other, classify(other))
}

func TestHierarchyManageable(t *testing.T) {
	t.Parallel()

	h := hierarchy{
		ownerID:       "owner",
		botID:         "bot",
		rolePositions: map[string]int{"low": 1, "mid": 5, "high": 10},
	}
	h.botTop = h.topPosition([]string{"mid"})

	assert.True(t, h.manageable("u1", []string{"low"}))
	assert.True(t, h.manageable("u2", nil))
	assert.False(t, h.manageable("u3", []string{"low", "high"}))
	assert.False(t, h.manageable("u4", []string{"mid"}))
	assert.False(t, h.manageable("owner", nil))
	assert.False(t, h.manageable("bot", nil))
}

func TestHierarchyToDomain(t *testing.T) {
	t.Parallel()

	h := hierarchy{botTop: 3, rolePositions: map[string]int{"r1": 1}}
	m := h.toDomain(&discordgo.Member{
		Nick:  "Junco Zé",
		Roles: []string{"r1"},
		User:  &discordgo.User{ID: "42", Username: "ze", Bot: false},
	})

	assert.Equal(t, domain.Member{
		ID:         "42",
		Username:   "ze",
		Nickname:   "Junco Zé",
		Roles:      []string{"r1"},
		Manageable: true,
	}, m)
}

func TestEmbeds(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	progress := progressEmbed(ports.Progress{Job: "promote", Index: 3, Total: 10}, now)
	assert.Equal(t, "N/A", progress.Fields[0].Value)
	assert.Equal(t, "3/10", progress.Fields[1].Value)
	assert.Equal(t, colorInProgress, progress.Color)

	assert.Equal(t, colorCompletedClean, reportEmbed("t", "s", true, now).Color)
	assert.Equal(t, colorCompletedErrors, reportEmbed("t", "s", false, now).Color)
}

func TestDirectoryCachesHierarchy(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	loads := 0
	d := NewDirectory(nil, "guild", nil)
	d.now = func() time.Time { return now }
	d.loadHierarchy = func(context.Context) (hierarchy, error) {
		loads++
		return hierarchy{botID: "bot", botTop: loads}, nil
	}
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		h, err := d.hierarchy(ctx, false)
		assert.NoError(t, err)
		assert.Equal(t, 1, h.botTop)
	}
	assert.Equal(t, 1, loads)

	now = now.Add(hierarchyTTL)
	_, err := d.hierarchy(ctx, false)
	assert.NoError(t, err)
	assert.Equal(t, 2, loads)

	_, err = d.hierarchy(ctx, true)
	assert.NoError(t, err)
	assert.Equal(t, 3, loads)
}

func TestDirectoryDoesNotCacheFailures(t *testing.T) {
	t.Parallel()

	loads := 0
	d := NewDirectory(nil, "guild", nil)
	d.loadHierarchy = func(context.Context) (hierarchy, error) {
		loads++
		if loads == 1 {
			return hierarchy{}, domain.ErrUnavailable
		}
		return hierarchy{botID: "bot"}, nil
	}

	_, err := d.hierarchy(context.Background(), false)
	assert.ErrorIs(t, err, domain.ErrUnavailable)
	h, err := d.hierarchy(context.Background(), false)
	assert.NoError(t, err)
	assert.Equal(t, "bot", h.botID)
	assert.Equal(t, 2, loads)
}
