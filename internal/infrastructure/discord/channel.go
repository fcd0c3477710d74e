package discord

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"MemberSync/internal/ports"
)

const (
	colorInProgress      = 0x00bbff
	colorCompletedClean  = 0x00ff00
	colorCompletedErrors = 0xff9900

	reportFileName = "errors.md"
)

// ChannelReporter shows batch progress as a single channel message edited in place
// and posts the final report to the same channel.
type ChannelReporter struct {
	session   *discordgo.Session
	channelID string
	now       func() time.Time

	mu        sync.Mutex
	messageID string
}

var (
	_ ports.ProgressSink    = (*ChannelReporter)(nil)
	_ ports.ReportPublisher = (*ChannelReporter)(nil)
)

// NewChannelReporter targets channelID.
func NewChannelReporter(session *discordgo.Session, channelID string) *ChannelReporter {
	return &ChannelReporter{session: session, channelID: channelID, now: time.Now}
}

// Publish creates the progress message on first use and edits it afterwards.
func (c *ChannelReporter) Publish(ctx context.Context, p ports.Progress) error {
	embed := progressEmbed(p, c.now())

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.messageID == "" {
		msg, err := c.session.ChannelMessageSendEmbed(c.channelID, embed, discordgo.WithContext(ctx))
		if err != nil {
			return fmt.Errorf("send progress message: %w", classify(err))
		}
		c.messageID = msg.ID
		return nil
	}

	edit := discordgo.NewMessageEdit(c.channelID, c.messageID).SetEmbed(embed)
	if _, err := c.session.ChannelMessageEditComplex(edit, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("edit progress message: %w", classify(err))
	}
	return nil
}

// PublishReport replaces the progress message with the final summary,
// attaching the rendered report when it is not clean.
func (c *ChannelReporter) PublishReport(ctx context.Context, title, summary string, clean bool, attachment []byte) error {
	send := &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{reportEmbed(title, summary, clean, c.now())},
	}
	if !clean && len(attachment) > 0 {
		send.Files = []*discordgo.File{{
			Name:        reportFileName,
			ContentType: "text/markdown",
			Reader:      bytes.NewReader(attachment),
		}}
	}

	if _, err := c.session.ChannelMessageSendComplex(c.channelID, send, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("send report: %w", classify(err))
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.messageID != "" {
		if err := c.session.ChannelMessageDelete(c.channelID, c.messageID, discordgo.WithContext(ctx)); err != nil {
			return fmt.Errorf("delete progress message: %w", classify(err))
		}
		c.messageID = ""
	}
	return nil
}

func progressEmbed(p ports.Progress, now time.Time) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       p.Job,
		Description: "Update in progress...",
		Color:       colorInProgress,
		Timestamp:   now.Format(time.RFC3339),
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Updating", Value: nonEmpty(p.Label), Inline: true},
			{Name: "Progress", Value: fmt.Sprintf("%d/%d", p.Index, p.Total), Inline: true},
		},
	}
}

func reportEmbed(title, summary string, clean bool, now time.Time) *discordgo.MessageEmbed {
	color := colorCompletedClean
	if !clean {
		color = colorCompletedErrors
	}
	return &discordgo.MessageEmbed{
		Title:       title,
		Description: summary,
		Color:       color,
		Timestamp:   now.Format(time.RFC3339),
	}
}

// nonEmpty keeps embed fields valid; Discord rejects empty field values.
func nonEmpty(v string) string {
	if v == "" {
		return "N/A"
	}
	return v
}
