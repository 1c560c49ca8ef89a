package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/devblac/sweepwatch/internal/marketplace"
)

const (
	defaultAPIBase = "https://discord.com/api/v10"

	colorBlue   = 0x3498DB
	colorGreen  = 0x2ECC71
	colorOrange = 0xE67E22
	colorRed    = 0xE74C3C

	maxImageLinks = 10
)

// Sender publishes a formatted sale notification to the chat channel.
type Sender interface {
	Ready() bool
	Send(ctx context.Context, sale marketplace.SaleEvent, images []string) error
}

// DiscordSender posts sale embeds to one channel via the Discord REST API.
type DiscordSender struct {
	apiBase   string
	token     string
	channelID string
	client    *http.Client
	nowFunc   func() time.Time
}

// NewDiscordSender builds a sender for the given bot token and channel.
// apiBase overrides the Discord API base URL; empty selects the default.
func NewDiscordSender(apiBase, token, channelID string) *DiscordSender {
	if apiBase == "" {
		apiBase = defaultAPIBase
	}
	return &DiscordSender{
		apiBase:   strings.TrimRight(apiBase, "/"),
		token:     token,
		channelID: channelID,
		client:    &http.Client{Timeout: 8 * time.Second},
		nowFunc:   time.Now,
	}
}

// Ready reports whether the sender has a usable channel handle.
func (s *DiscordSender) Ready() bool {
	return s != nil && s.token != "" && s.channelID != ""
}

// Send builds the sale embed and posts it to the channel.
func (s *DiscordSender) Send(ctx context.Context, sale marketplace.SaleEvent, images []string) error {
	body, err := json.Marshal(map[string]any{
		"embeds": []embed{buildEmbed(sale, images, s.nowFunc())},
	})
	if err != nil {
		return fmt.Errorf("marshal embed: %w", err)
	}

	url := fmt.Sprintf("%s/channels/%s/messages", s.apiBase, s.channelID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bot "+s.token)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("discord status %d", resp.StatusCode)
	}
	return nil
}

type embed struct {
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Color       int          `json:"color"`
	Timestamp   string       `json:"timestamp"`
	Image       *embedImage  `json:"image,omitempty"`
	Fields      []embedField `json:"fields,omitempty"`
	Footer      *embedFooter `json:"footer,omitempty"`
}

type embedImage struct {
	URL string `json:"url"`
}

type embedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type embedFooter struct {
	Text string `json:"text"`
}

func buildEmbed(sale marketplace.SaleEvent, images []string, now time.Time) embed {
	count := sale.TokenCount()
	buyer := truncateAddr(sale.Buyer)
	price := FormatPrice(sale.TotalPrice)

	var title string
	var color int
	description := fmt.Sprintf("**Total Price:** %s ETH", price)

	switch Classify(count) {
	case CategorySingle:
		tokenID := ""
		if count > 0 {
			tokenID = sale.TokenIDs[0]
		}
		title = fmt.Sprintf("🎨 User %s... bought NFT #%s!", buyer, tokenID)
		color = colorBlue
		description = fmt.Sprintf("**Price:** %s ETH", price)
	case CategoryMini:
		title = fmt.Sprintf("⚡ Mini sweep! User %s... grabbed %d NFTs!", buyer, count)
		color = colorGreen
	case CategoryBig:
		title = fmt.Sprintf("🔥 Big sweep alert! User %s... swept %d NFTs!", buyer, count)
		color = colorOrange
	default:
		title = fmt.Sprintf("💥 Huge sweep! User %s... dominated with %d NFTs!", buyer, count)
		color = colorRed
	}

	e := embed{
		Title:       title,
		Description: description,
		Color:       color,
		Timestamp:   now.UTC().Format(time.RFC3339),
		Footer:      &embedFooter{Text: "NFT Sales Monitor"},
	}

	if sale.TxHash != "" {
		e.Fields = append(e.Fields, embedField{
			Name:  "Transaction",
			Value: fmt.Sprintf("[View on Etherscan](https://etherscan.io/tx/%s)", sale.TxHash),
		})
	}

	if len(images) > 0 {
		e.Image = &embedImage{URL: images[0]}
		if len(images) > 1 {
			e.Fields = append(e.Fields, embedField{
				Name:  "NFT Images",
				Value: imageLinks(sale.TokenIDs, images),
			})
		}
	}

	return e
}

func imageLinks(tokenIDs, images []string) string {
	lines := []string{}
	for i, img := range images {
		if i >= maxImageLinks {
			break
		}
		label := fmt.Sprintf("#%d", i+1)
		if i < len(tokenIDs) {
			label = "#" + tokenIDs[i]
		}
		lines = append(lines, fmt.Sprintf("[NFT %s](%s)", label, img))
	}
	out := strings.Join(lines, "\n")
	if extra := len(images) - maxImageLinks; extra > 0 {
		out += fmt.Sprintf("\n... and %d more", extra)
	}
	return out
}
