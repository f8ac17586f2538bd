// AngelaMos | 2026
// bot.go

package admission

import (
	"context"
	"regexp"
	"slices"
	"strings"
)

type BotCategory string

const (
	CategorySearchEngine BotCategory = "SEARCH_ENGINE"
	CategoryPreview      BotCategory = "PREVIEW"
	CategoryAutomated    BotCategory = "AUTOMATED"
	CategoryCrawler      BotCategory = "CRAWLER"
	CategoryMissingUA    BotCategory = "MISSING_USER_AGENT"
)

type botRule struct {
	category BotCategory
	pattern  *regexp.Regexp
}

// Order matters: named crawlers are matched before the generic
// bot/crawler/spider catch-all.
var botRules = []botRule{
	{CategorySearchEngine, regexp.MustCompile(
		`(?i)(googlebot|bingbot|duckduckbot|yandex(bot)?|baiduspider|applebot|slurp)`,
	)},
	{CategoryPreview, regexp.MustCompile(
		`(?i)(facebookexternalhit|twitterbot|slackbot|discordbot|linkedinbot|whatsapp|telegrambot|embedly)`,
	)},
	{CategoryAutomated, regexp.MustCompile(
		`(?i)(curl/|wget/|python-requests|python-urllib|aiohttp|httpx|go-http-client|okhttp|java/|apache-httpclient|libwww-perl|scrapy|axios/|node-fetch|undici|headlesschrome|phantomjs|selenium|puppeteer|playwright)`,
	)},
	{CategoryCrawler, regexp.MustCompile(`(?i)(bot\b|crawler|spider|scraper)`)},
}

// DefaultAllowedBots keeps search indexing and link previews working.
var DefaultAllowedBots = []BotCategory{CategorySearchEngine, CategoryPreview}

// BotDetector classifies a request by its User-Agent header.
type BotDetector struct {
	allowed []BotCategory
}

func NewBotDetector(allowed ...BotCategory) *BotDetector {
	if len(allowed) == 0 {
		allowed = DefaultAllowedBots
	}
	return &BotDetector{allowed: allowed}
}

// Classify reports the matched category. ok is false for browser traffic.
func Classify(userAgent string) (BotCategory, bool) {
	ua := strings.TrimSpace(userAgent)
	if ua == "" {
		return CategoryMissingUA, true
	}
	for _, rule := range botRules {
		if rule.pattern.MatchString(ua) {
			return rule.category, true
		}
	}
	return "", false
}

func (b *BotDetector) Inspect(_ context.Context, req Request) Decision {
	category, isBot := Classify(req.UserAgent)
	if !isBot || slices.Contains(b.allowed, category) {
		return Allow()
	}
	return Deny(ReasonBot, "bot:"+string(category))
}
