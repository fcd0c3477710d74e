package discord

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"MemberSync/internal/domain"
	"MemberSync/internal/ports"
)

const (
	membersPageSize = 1000
	hierarchyTTL    = 5 * time.Minute
)

// Directory implements ports.Directory over the Discord REST API for a single guild.
// The role hierarchy is cached for hierarchyTTL; ListMembers always reloads it.
type Directory struct {
	session *discordgo.Session
	guildID string
	logger  *slog.Logger

	loadHierarchy func(context.Context) (hierarchy, error)
	now           func() time.Time

	mu         sync.Mutex
	cached     hierarchy
	cachedAt   time.Time
	haveCached bool
}

var _ ports.Directory = (*Directory)(nil)

// NewSession builds a REST-only bot session.
func NewSession(token string) (*discordgo.Session, error) {
	if token == "" {
		return nil, errors.New("discord token is not configured")
	}
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	// The pipeline throttles itself and never retries; surface 429s instead of sleeping inside the client.
	session.ShouldRetryOnRateLimit = false
	return session, nil
}

// NewDirectory wires a session to a guild.
func NewDirectory(session *discordgo.Session, guildID string, logger *slog.Logger) *Directory {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	d := &Directory{session: session, guildID: guildID, logger: logger, now: time.Now}
	d.loadHierarchy = d.fetchHierarchy
	return d
}

// ListMembers pages through the whole guild and computes manageability for each member.
func (d *Directory) ListMembers(ctx context.Context) ([]domain.Member, error) {
	h, err := d.hierarchy(ctx, true)
	if err != nil {
		return nil, err
	}

	var (
		members []domain.Member
		after   string
	)
	for {
		page, err := d.session.GuildMembers(d.guildID, after, membersPageSize, discordgo.WithContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("list guild members: %w", classify(err))
		}
		for _, m := range page {
			members = append(members, h.toDomain(m))
		}
		if len(page) < membersPageSize {
			break
		}
		after = page[len(page)-1].User.ID
	}

	d.logger.Debug("listed guild members", "guild", d.guildID, "count", len(members))
	return members, nil
}

// FetchMember loads a single member.
func (d *Directory) FetchMember(ctx context.Context, id string) (domain.Member, error) {
	h, err := d.hierarchy(ctx, false)
	if err != nil {
		return domain.Member{}, err
	}
	m, err := d.session.GuildMember(d.guildID, id, discordgo.WithContext(ctx))
	if err != nil {
		return domain.Member{}, fmt.Errorf("fetch member %s: %w", id, classify(err))
	}
	return h.toDomain(m), nil
}

// SetNickname changes a member's guild nickname.
func (d *Directory) SetNickname(ctx context.Context, id, nickname, reason string) error {
	opts := []discordgo.RequestOption{discordgo.WithContext(ctx)}
	if reason != "" {
		opts = append(opts, discordgo.WithAuditLogReason(reason))
	}
	if err := d.session.GuildMemberNickname(d.guildID, id, nickname, opts...); err != nil {
		return fmt.Errorf("set nickname of %s: %w", id, classify(err))
	}
	return nil
}

// AddRole grants roleID to a member.
func (d *Directory) AddRole(ctx context.Context, id, roleID string) error {
	if err := d.session.GuildMemberRoleAdd(d.guildID, id, roleID, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("add role %s to %s: %w", roleID, id, classify(err))
	}
	return nil
}

// RemoveRole revokes roleID from a member.
func (d *Directory) RemoveRole(ctx context.Context, id, roleID string) error {
	if err := d.session.GuildMemberRoleRemove(d.guildID, id, roleID, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("remove role %s from %s: %w", roleID, id, classify(err))
	}
	return nil
}

// hierarchy captures what decides whether the bot may edit a member:
// the guild owner is never editable, and the bot's highest role must
// sit above the member's highest role.
type hierarchy struct {
	ownerID       string
	botID         string
	botTop        int
	rolePositions map[string]int
}

// hierarchy returns the cached hierarchy unless it is stale or refresh is set.
func (d *Directory) hierarchy(ctx context.Context, refresh bool) (hierarchy, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !refresh && d.haveCached && d.now().Sub(d.cachedAt) < hierarchyTTL {
		return d.cached, nil
	}
	h, err := d.loadHierarchy(ctx)
	if err != nil {
		return hierarchy{}, err
	}
	d.cached, d.cachedAt, d.haveCached = h, d.now(), true
	return h, nil
}

func (d *Directory) fetchHierarchy(ctx context.Context) (hierarchy, error) {
	guild, err := d.session.Guild(d.guildID, discordgo.WithContext(ctx))
	if err != nil {
		return hierarchy{}, fmt.Errorf("fetch guild %s: %w", d.guildID, classify(err))
	}
	roles, err := d.session.GuildRoles(d.guildID, discordgo.WithContext(ctx))
	if err != nil {
		return hierarchy{}, fmt.Errorf("fetch guild roles: %w", classify(err))
	}
	self, err := d.session.User("@me", discordgo.WithContext(ctx))
	if err != nil {
		return hierarchy{}, fmt.Errorf("fetch bot user: %w", classify(err))
	}
	botMember, err := d.session.GuildMember(d.guildID, self.ID, discordgo.WithContext(ctx))
	if err != nil {
		return hierarchy{}, fmt.Errorf("fetch bot member: %w", classify(err))
	}

	h := hierarchy{
		ownerID:       guild.OwnerID,
		botID:         self.ID,
		rolePositions: make(map[string]int, len(roles)),
	}
	for _, r := range roles {
		h.rolePositions[r.ID] = r.Position
	}
	h.botTop = h.topPosition(botMember.Roles)
	return h, nil
}

func (h hierarchy) topPosition(roleIDs []string) int {
	top := 0
	for _, id := range roleIDs {
		if p, ok := h.rolePositions[id]; ok && p > top {
			top = p
		}
	}
	return top
}

func (h hierarchy) manageable(userID string, roleIDs []string) bool {
	if userID == h.ownerID || userID == h.botID {
		return false
	}
	return h.botTop > h.topPosition(roleIDs)
}

func (h hierarchy) toDomain(m *discordgo.Member) domain.Member {
	member := domain.Member{
		Nickname: m.Nick,
		Roles:    append([]string(nil), m.Roles...),
	}
	if m.User != nil {
		member.ID = m.User.ID
		member.Username = m.User.Username
		member.Bot = m.User.Bot
	}
	member.Manageable = h.manageable(member.ID, member.Roles)
	return member
}

// classify maps REST failures onto domain sentinels while keeping the original error text.
func classify(err error) error {
	var rateErr *discordgo.RateLimitError
	if errors.As(err, &rateErr) {
		return fmt.Errorf("%w: %v", domain.ErrRateLimited, err)
	}

	var restErr *discordgo.RESTError
	if !errors.As(err, &restErr) {
		return err
	}
	if restErr.Message != nil && restErr.Message.Code == discordgo.ErrCodeUnknownMember {
		return fmt.Errorf("%w: %v", domain.ErrNotFound, err)
	}
	if restErr.Response == nil {
		return err
	}
	switch restErr.Response.StatusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %v", domain.ErrNotFound, err)
	case http.StatusForbidden:
		return fmt.Errorf("%w: %v", domain.ErrForbidden, err)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %v", domain.ErrRateLimited, err)
	}
	if restErr.Response.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("%w: %v", domain.ErrUnavailable, err)
	}
	return err
}
